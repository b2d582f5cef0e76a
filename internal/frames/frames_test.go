package frames

import (
	"context"
	"errors"
	"image"
	"image/jpeg"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeTestImage(t *testing.T, path string) {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 8, 8))
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create %s: %v", path, err)
	}
	defer f.Close()

	switch filepath.Ext(path) {
	case ".png":
		err = png.Encode(f, img)
	default:
		err = jpeg.Encode(f, img, nil)
	}
	if err != nil {
		t.Fatalf("encode %s: %v", path, err)
	}
}

func TestDirSourceOrderAndTimestamps(t *testing.T) {
	dir := t.TempDir()
	writeTestImage(t, filepath.Join(dir, "frame_002.jpg"))
	writeTestImage(t, filepath.Join(dir, "frame_001.jpg"))
	writeTestImage(t, filepath.Join(dir, "frame_003.png"))
	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	start := time.Unix(1000, 0)
	src, err := NewDirSource(dir, start, 2*time.Second)
	if err != nil {
		t.Fatalf("new dir source: %v", err)
	}
	defer src.Close()

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		f, err := src.Next(ctx)
		if err != nil {
			t.Fatalf("frame %d: %v", i, err)
		}
		if f.Index != i {
			t.Fatalf("frame %d: index = %d", i, f.Index)
		}
		want := start.Add(time.Duration(i) * 2 * time.Second)
		if !f.Timestamp.Equal(want) {
			t.Fatalf("frame %d: timestamp = %v, want %v", i, f.Timestamp, want)
		}
	}

	if _, err := src.Next(ctx); !errors.Is(err, io.EOF) {
		t.Fatalf("expected EOF after last frame, got %v", err)
	}
}

func TestDirSourceEmptyDir(t *testing.T) {
	if _, err := NewDirSource(t.TempDir(), time.Now(), time.Second); err == nil {
		t.Fatal("expected error for directory with no images")
	}
}

func TestSyntheticSourceBounded(t *testing.T) {
	src := NewSyntheticSource(320, 240, 2, time.Unix(0, 0), time.Second)
	ctx := context.Background()

	f1, err := src.Next(ctx)
	if err != nil {
		t.Fatalf("first frame: %v", err)
	}
	if got := f1.Image.Bounds(); got.Dx() != 320 || got.Dy() != 240 {
		t.Fatalf("frame bounds = %v", got)
	}
	if _, err := src.Next(ctx); err != nil {
		t.Fatalf("second frame: %v", err)
	}
	if _, err := src.Next(ctx); !errors.Is(err, io.EOF) {
		t.Fatalf("expected EOF after maxFrames, got %v", err)
	}
}

func TestSourceHonorsContext(t *testing.T) {
	src := NewSyntheticSource(0, 0, 0, time.Unix(0, 0), time.Second)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := src.Next(ctx); err == nil {
		t.Fatal("expected context error")
	}
}
