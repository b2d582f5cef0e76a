// Package snapshot persists annotated alert evidence frames.
package snapshot

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/jpeg"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/vigilo-ai/vigilo/internal/detect"
)

var (
	colorPerson = color.RGBA{R: 255, A: 255}                 // red
	colorOther  = color.RGBA{R: 255, G: 165, A: 255}         // orange
	colorStamp  = color.RGBA{R: 255, G: 255, B: 255, A: 255} // white
)

// Writer saves annotated snapshots under a directory.
type Writer struct {
	dir string
}

func NewWriter(dir string) (*Writer, error) {
	if dir == "" {
		return nil, fmt.Errorf("snapshot dir is empty")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create snapshot dir: %w", err)
	}
	return &Writer{dir: dir}, nil
}

// Save draws detection boxes and a timestamp onto a copy of the frame and
// writes it as threat_YYYYMMDD_HHMMSS.jpg, returning the full path.
func (w *Writer) Save(frame image.Image, dets []detect.Detection, ts time.Time) (string, error) {
	bounds := frame.Bounds()
	canvas := image.NewRGBA(bounds)
	draw.Draw(canvas, bounds, frame, bounds.Min, draw.Src)

	for _, d := range dets {
		c := colorOther
		if d.Label == "person" {
			c = colorPerson
		}
		strokeRect(canvas, d.Box, c, 3)
		drawText(canvas, d.Box.Min.X, d.Box.Min.Y-4, d.Label, c)
	}
	drawText(canvas, bounds.Min.X+10, bounds.Min.Y+20, ts.Format("2006-01-02 15:04:05"), colorStamp)

	name := fmt.Sprintf("threat_%s.jpg", ts.Format("20060102_150405"))
	path := filepath.Join(w.dir, name)

	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create snapshot: %w", err)
	}
	defer f.Close()

	if err := jpeg.Encode(f, canvas, &jpeg.Options{Quality: 90}); err != nil {
		return "", fmt.Errorf("encode snapshot: %w", err)
	}
	return path, nil
}

func strokeRect(img *image.RGBA, r image.Rectangle, c color.RGBA, width int) {
	r = r.Intersect(img.Bounds())
	if r.Empty() {
		return
	}
	for i := 0; i < width; i++ {
		drawHLine(img, r.Min.X, r.Max.X, r.Min.Y+i, c)
		drawHLine(img, r.Min.X, r.Max.X, r.Max.Y-1-i, c)
		drawVLine(img, r.Min.X+i, r.Min.Y, r.Max.Y, c)
		drawVLine(img, r.Max.X-1-i, r.Min.Y, r.Max.Y, c)
	}
}

func drawHLine(img *image.RGBA, x1, x2, y int, c color.RGBA) {
	if y < img.Bounds().Min.Y || y >= img.Bounds().Max.Y {
		return
	}
	for x := x1; x < x2; x++ {
		img.SetRGBA(x, y, c)
	}
}

func drawVLine(img *image.RGBA, x, y1, y2 int, c color.RGBA) {
	if x < img.Bounds().Min.X || x >= img.Bounds().Max.X {
		return
	}
	for y := y1; y < y2; y++ {
		img.SetRGBA(x, y, c)
	}
}

func drawText(img *image.RGBA, x, y int, text string, c color.RGBA) {
	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(c),
		Face: basicfont.Face7x13,
		Dot:  fixed.P(x, y),
	}
	d.DrawString(text)
}
