package pipeline

import (
	"context"
	"image"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/vigilo-ai/vigilo/internal/alert"
	"github.com/vigilo-ai/vigilo/internal/detect"
	"github.com/vigilo-ai/vigilo/internal/frames"
	"github.com/vigilo-ai/vigilo/internal/gate"
	"github.com/vigilo-ai/vigilo/internal/schedule"
	"github.com/vigilo-ai/vigilo/internal/snapshot"
)

// stubSource yields pre-built frames.
type stubSource struct {
	frames []frames.Frame
	pos    int
}

func (s *stubSource) Next(ctx context.Context) (frames.Frame, error) {
	if err := ctx.Err(); err != nil {
		return frames.Frame{}, err
	}
	if s.pos >= len(s.frames) {
		return frames.Frame{}, io.EOF
	}
	f := s.frames[s.pos]
	s.pos++
	return f, nil
}

func (s *stubSource) Close() error { return nil }

// stubDetector returns a scripted detection list per frame index.
type stubDetector struct {
	byIndex map[int][]detect.Detection
	calls   int
}

func (d *stubDetector) Detect(_ context.Context, _ image.Image, ts time.Time) ([]detect.Detection, error) {
	idx := int(ts.Unix())
	d.calls++
	return d.byIndex[idx], nil
}

func (d *stubDetector) Close() error { return nil }

// captureSink records delivered events.
type captureSink struct {
	mu     sync.Mutex
	events []*alert.Event
}

func (c *captureSink) Name() string { return "capture" }
func (c *captureSink) Deliver(_ context.Context, ev *alert.Event) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, ev)
	return nil
}
func (c *captureSink) Close(context.Context) error { return nil }

func (c *captureSink) all() []*alert.Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]*alert.Event, len(c.events))
	copy(out, c.events)
	return out
}

func buildFrames(seconds ...int) []frames.Frame {
	out := make([]frames.Frame, len(seconds))
	for i, s := range seconds {
		out[i] = frames.Frame{
			Image:     image.NewRGBA(image.Rect(0, 0, 320, 240)),
			Index:     i,
			Timestamp: time.Unix(int64(s), 0).UTC(),
		}
	}
	return out
}

func personAt(sec int) (int, []detect.Detection) {
	return sec, []detect.Detection{{Label: "person", Confidence: 0.85, Box: image.Rect(40, 40, 120, 200)}}
}

func fireAt(sec int) (int, []detect.Detection) {
	return sec, []detect.Detection{{Label: "fire", Confidence: 0.92, Box: image.Rect(60, 60, 200, 200)}}
}

func newTestPipeline(t *testing.T, src frames.Source, det detect.Detector, afterHoursForced bool) (*Pipeline, *captureSink, *alert.Emitter) {
	t.Helper()

	sched, err := schedule.New(22, 6, true)
	if err != nil {
		t.Fatalf("schedule: %v", err)
	}
	if afterHoursForced {
		sched.Force(true)
	}

	snaps, err := snapshot.NewWriter(t.TempDir())
	if err != nil {
		t.Fatalf("snapshot writer: %v", err)
	}

	sink := &captureSink{}
	em := alert.NewEmitter(alert.EmitterConfig{QueueSize: 16, Workers: 1, ShutdownTimeout: time.Second}, []alert.Sink{sink}, nil)

	p, err := New(Options{
		Feed:         "test-cam",
		Source:       src,
		Detector:     det,
		Schedule:     sched,
		Gate:         gate.New(30*time.Second, 10),
		Snapshots:    snaps,
		Emitter:      em,
		BlurEnabled:  true,
		BlurStrength: 8,
	})
	if err != nil {
		t.Fatalf("pipeline: %v", err)
	}
	return p, sink, em
}

func TestFireAlertsGatedByCooldown(t *testing.T) {
	// Fire at t=0 fires, t=5 suppressed by cooldown, t=31 fires again.
	sec0, dets0 := fireAt(0)
	sec5, dets5 := fireAt(5)
	sec31, dets31 := fireAt(31)
	det := &stubDetector{byIndex: map[int][]detect.Detection{sec0: dets0, sec5: dets5, sec31: dets31}}
	src := &stubSource{frames: buildFrames(0, 5, 31)}

	p, sink, em := newTestPipeline(t, src, det, false)

	stats, err := p.Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	em.Close(context.Background())

	if stats.Frames != 3 {
		t.Fatalf("frames = %d", stats.Frames)
	}
	if stats.Fired != 2 {
		t.Fatalf("fired = %d, want 2", stats.Fired)
	}
	if stats.Suppressed[gate.ReasonSuppressedCooldown] != 1 {
		t.Fatalf("cooldown suppressions = %d, want 1", stats.Suppressed[gate.ReasonSuppressedCooldown])
	}

	events := sink.all()
	if len(events) != 2 {
		t.Fatalf("delivered %d events, want 2", len(events))
	}
	if events[0].Threats[0].Label != "fire" || events[0].Threats[0].Priority != "high" {
		t.Fatalf("unexpected first event %+v", events[0].Threats)
	}
	if events[0].SnapshotPath == "" {
		t.Fatal("fired alert should carry a snapshot path")
	}
}

func TestDaytimePersonIsNonThreat(t *testing.T) {
	sec, dets := personAt(0)
	det := &stubDetector{byIndex: map[int][]detect.Detection{sec: dets}}
	src := &stubSource{frames: buildFrames(0)}

	// Schedule enabled but t=0 is 00:00 UTC... that is inside 22-6. Use a
	// noon timestamp instead.
	noon := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	src.frames[0].Timestamp = noon
	det.byIndex = map[int][]detect.Detection{int(noon.Unix()): dets}

	p, sink, em := newTestPipeline(t, src, det, false)

	stats, err := p.Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	em.Close(context.Background())

	if stats.Fired != 0 {
		t.Fatalf("fired = %d, want 0", stats.Fired)
	}
	if stats.Suppressed[gate.ReasonSuppressedNonThreat] != 1 {
		t.Fatalf("non-threat suppressions = %d", stats.Suppressed[gate.ReasonSuppressedNonThreat])
	}
	if len(sink.all()) != 0 {
		t.Fatal("no events should be delivered for daytime person")
	}
}

func TestAfterHoursPersonFires(t *testing.T) {
	sec, dets := personAt(0)
	det := &stubDetector{byIndex: map[int][]detect.Detection{sec: dets}}
	src := &stubSource{frames: buildFrames(0)}

	p, sink, em := newTestPipeline(t, src, det, true)

	stats, err := p.Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	em.Close(context.Background())

	if stats.Fired != 1 {
		t.Fatalf("fired = %d, want 1", stats.Fired)
	}
	events := sink.all()
	if len(events) != 1 {
		t.Fatalf("delivered %d events", len(events))
	}
	if !events[0].AfterHours {
		t.Fatal("event should be marked after hours")
	}
	if events[0].Threats[0].Label != "person" || events[0].Threats[0].Priority != "high" {
		t.Fatalf("unexpected threats %+v", events[0].Threats)
	}
}

func TestEmptyFramesSkipGate(t *testing.T) {
	det := &stubDetector{byIndex: map[int][]detect.Detection{}}
	src := &stubSource{frames: buildFrames(0, 1, 2)}

	p, sink, em := newTestPipeline(t, src, det, true)

	stats, err := p.Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	em.Close(context.Background())

	if stats.Frames != 3 || stats.Detections != 0 {
		t.Fatalf("stats = %+v", stats)
	}
	if len(stats.Suppressed) != 0 {
		t.Fatalf("no gate decisions expected, got %v", stats.Suppressed)
	}
	if len(sink.all()) != 0 {
		t.Fatal("no events expected")
	}
}

func TestRunStopsOnContextCancel(t *testing.T) {
	det := &stubDetector{byIndex: map[int][]detect.Detection{}}
	src := &stubSource{frames: buildFrames(0, 1, 2)}

	p, _, em := newTestPipeline(t, src, det, false)
	defer em.Close(context.Background())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	stats, err := p.Run(ctx)
	if err != nil {
		t.Fatalf("canceled run should end cleanly, got %v", err)
	}
	if stats.Frames != 0 {
		t.Fatalf("frames = %d, want 0", stats.Frames)
	}
}
