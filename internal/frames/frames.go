// Package frames supplies images to the pipeline. Sources stamp each frame
// with a capture instant; the rest of the system never reads the clock.
package frames

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// Frame is one image plus its capture metadata.
type Frame struct {
	Image     image.Image
	Index     int
	Timestamp time.Time
}

// Source yields frames in capture order. Next returns io.EOF when the source
// is exhausted.
type Source interface {
	Next(ctx context.Context) (Frame, error)
	Close() error
}

// DirSource reads a directory of JPEG/PNG files in name order, stamping
// frames at a fixed interval from a start instant. It stands in for a live
// camera when replaying recorded footage.
type DirSource struct {
	paths    []string
	pos      int
	start    time.Time
	interval time.Duration
}

// NewDirSource lists the image files under dir. Interval defaults to one
// second per frame.
func NewDirSource(dir string, start time.Time, interval time.Duration) (*DirSource, error) {
	if interval <= 0 {
		interval = time.Second
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read frame dir: %w", err)
	}

	var paths []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(e.Name())) {
		case ".jpg", ".jpeg", ".png":
			paths = append(paths, filepath.Join(dir, e.Name()))
		}
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("no image files in %s", dir)
	}
	sort.Strings(paths)

	return &DirSource{paths: paths, start: start, interval: interval}, nil
}

func (s *DirSource) Next(ctx context.Context) (Frame, error) {
	if err := ctx.Err(); err != nil {
		return Frame{}, err
	}
	if s.pos >= len(s.paths) {
		return Frame{}, io.EOF
	}

	path := s.paths[s.pos]
	img, err := decodeImage(path)
	if err != nil {
		return Frame{}, fmt.Errorf("decode %s: %w", path, err)
	}

	f := Frame{
		Image:     img,
		Index:     s.pos,
		Timestamp: s.start.Add(time.Duration(s.pos) * s.interval),
	}
	s.pos++
	return f, nil
}

func (s *DirSource) Close() error { return nil }

func decodeImage(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	switch strings.ToLower(filepath.Ext(path)) {
	case ".png":
		return png.Decode(f)
	default:
		return jpeg.Decode(f)
	}
}

// SyntheticSource emits solid-color frames forever, for demo runs with no
// footage on disk. Bounded by maxFrames when positive.
type SyntheticSource struct {
	width     int
	height    int
	pos       int
	maxFrames int
	start     time.Time
	interval  time.Duration
}

func NewSyntheticSource(width, height, maxFrames int, start time.Time, interval time.Duration) *SyntheticSource {
	if width <= 0 {
		width = 640
	}
	if height <= 0 {
		height = 480
	}
	if interval <= 0 {
		interval = time.Second
	}
	return &SyntheticSource{width: width, height: height, maxFrames: maxFrames, start: start, interval: interval}
}

func (s *SyntheticSource) Next(ctx context.Context) (Frame, error) {
	if err := ctx.Err(); err != nil {
		return Frame{}, err
	}
	if s.maxFrames > 0 && s.pos >= s.maxFrames {
		return Frame{}, io.EOF
	}

	img := image.NewRGBA(image.Rect(0, 0, s.width, s.height))
	shade := uint8(40 + (s.pos%8)*20)
	fill := color.RGBA{R: shade, G: shade, B: shade, A: 255}
	for y := 0; y < s.height; y++ {
		for x := 0; x < s.width; x++ {
			img.SetRGBA(x, y, fill)
		}
	}

	f := Frame{
		Image:     img,
		Index:     s.pos,
		Timestamp: s.start.Add(time.Duration(s.pos) * s.interval),
	}
	s.pos++
	return f, nil
}

func (s *SyntheticSource) Close() error { return nil }
