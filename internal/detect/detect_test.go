package detect

import (
	"context"
	"image"
	"testing"
	"time"
)

func TestScriptedDetectorCycle(t *testing.T) {
	d := NewScriptedDetector()
	frame := image.NewRGBA(image.Rect(0, 0, 640, 480))

	cases := []struct {
		second int64
		label  string
	}{
		{0, "person"},
		{2, "person"},
		{3, "fire"},
		{5, "fire"},
		{6, "smoke"},
		{8, "smoke"},
		{10, "person"}, // cycle wraps
	}
	for _, tc := range cases {
		dets, err := d.Detect(context.Background(), frame, time.Unix(tc.second, 0))
		if err != nil {
			t.Fatalf("second %d: %v", tc.second, err)
		}
		if len(dets) != 1 {
			t.Fatalf("second %d: got %d detections, want 1", tc.second, len(dets))
		}
		if dets[0].Label != tc.label {
			t.Fatalf("second %d: label = %s, want %s", tc.second, dets[0].Label, tc.label)
		}
		if dets[0].Confidence <= 0 || dets[0].Confidence > 1 {
			t.Fatalf("second %d: confidence %f out of range", tc.second, dets[0].Confidence)
		}
		if dets[0].Box.Empty() {
			t.Fatalf("second %d: empty box", tc.second)
		}
	}

	dets, err := d.Detect(context.Background(), frame, time.Unix(9, 0))
	if err != nil {
		t.Fatalf("quiet second: %v", err)
	}
	if len(dets) != 0 {
		t.Fatalf("second 9 should be quiet, got %v", dets)
	}
}

func TestScriptedDetectorPre1970Timestamps(t *testing.T) {
	d := NewScriptedDetector()
	frame := image.NewRGBA(image.Rect(0, 0, 640, 480))

	cases := []struct {
		second int64
		label  string // empty means quiet
	}{
		{-10, "person"}, // phase 0
		{-7, "fire"},    // phase 3
		{-2, "smoke"},   // phase 8
		{-1, ""},        // phase 9, quiet
	}
	for _, tc := range cases {
		dets, err := d.Detect(context.Background(), frame, time.Unix(tc.second, 0))
		if err != nil {
			t.Fatalf("second %d: %v", tc.second, err)
		}
		if tc.label == "" {
			if len(dets) != 0 {
				t.Fatalf("second %d should be quiet, got %v", tc.second, dets)
			}
			continue
		}
		if len(dets) != 1 || dets[0].Label != tc.label {
			t.Fatalf("second %d: got %v, want one %s", tc.second, dets, tc.label)
		}
	}
}

func TestScriptedDetectorIsDeterministic(t *testing.T) {
	d := NewScriptedDetector()
	frame := image.NewRGBA(image.Rect(0, 0, 320, 240))
	ts := time.Unix(4, 0)

	a, _ := d.Detect(context.Background(), frame, ts)
	b, _ := d.Detect(context.Background(), frame, ts)
	if len(a) != len(b) || a[0] != b[0] {
		t.Fatalf("same timestamp produced different detections: %v vs %v", a, b)
	}
}

func TestScriptedDetectorHonorsContext(t *testing.T) {
	d := NewScriptedDetector()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := d.Detect(ctx, image.NewRGBA(image.Rect(0, 0, 10, 10)), time.Unix(0, 0)); err == nil {
		t.Fatal("expected error from canceled context")
	}
}

func TestThresholdsFor(t *testing.T) {
	th := Thresholds{Default: 0.5, PerClass: map[string]float32{"fire": 0.3}}
	if got := th.For("fire"); got != 0.3 {
		t.Fatalf("fire threshold = %f, want 0.3", got)
	}
	if got := th.For("person"); got != 0.5 {
		t.Fatalf("person threshold = %f, want 0.5", got)
	}

	var zero Thresholds
	if got := zero.For("person"); got != DefaultConfidence {
		t.Fatalf("zero-value threshold = %f, want %f", got, DefaultConfidence)
	}
}

func TestNonMaxSuppression(t *testing.T) {
	dets := []Detection{
		{Label: "person", Confidence: 0.9, Box: image.Rect(100, 100, 200, 200)},
		{Label: "person", Confidence: 0.6, Box: image.Rect(105, 105, 205, 205)}, // overlaps first
		{Label: "person", Confidence: 0.8, Box: image.Rect(400, 400, 500, 500)}, // elsewhere
		{Label: "fire", Confidence: 0.7, Box: image.Rect(100, 100, 200, 200)},   // other class
	}

	kept := nonMaxSuppression(dets, 0.45)
	if len(kept) != 3 {
		t.Fatalf("kept %d detections, want 3: %v", len(kept), kept)
	}
	for _, d := range kept {
		if d.Label == "person" && d.Confidence == 0.6 {
			t.Fatal("overlapping lower-confidence box survived NMS")
		}
	}
}

func TestLetterboxMapping(t *testing.T) {
	// 1280x720 source: scale 0.5, 640x360 scaled, 140px vertical padding.
	frame := image.NewRGBA(image.Rect(0, 0, 1280, 720))
	lb := letterbox(frame, inputSize)

	if lb.scale != 0.5 {
		t.Fatalf("scale = %f, want 0.5", lb.scale)
	}
	if lb.padX != 0 || lb.padY != 140 {
		t.Fatalf("pad = (%d, %d), want (0, 140)", lb.padX, lb.padY)
	}
	if len(lb.pixels) != 3*inputSize*inputSize {
		t.Fatalf("pixel buffer length = %d", len(lb.pixels))
	}

	// A centered 100x100 model-space box maps back to a 200x200 source box.
	rect := lb.unmap(320, 320, 100, 100)
	want := image.Rect(540, 260, 740, 460)
	if rect != want {
		t.Fatalf("unmapped box = %v, want %v", rect, want)
	}
}

func TestUnmapClampsToFrame(t *testing.T) {
	frame := image.NewRGBA(image.Rect(0, 0, 640, 640))
	lb := letterbox(frame, inputSize)

	rect := lb.unmap(10, 10, 100, 100)
	if rect.Min.X < 0 || rect.Min.Y < 0 {
		t.Fatalf("box not clamped: %v", rect)
	}
}
