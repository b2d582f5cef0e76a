// Package detect produces object detections from camera frames. The real
// detector runs a YOLO-family ONNX model; a scripted detector stands in when
// no model bundle is configured.
package detect

import (
	"context"
	"image"
	"time"
)

// DefaultConfidence is the fallback score cutoff when a class has no
// per-class threshold configured.
const DefaultConfidence float32 = 0.5

// Detection is one detected object in a frame.
type Detection struct {
	Label      string          `json:"label"`
	Confidence float32         `json:"confidence"`
	Box        image.Rectangle `json:"box"`
}

// Detector turns a frame into detections. The timestamp is the frame's
// capture instant, supplied by the caller so detectors stay deterministic.
// Implementations must be safe for sequential reuse; they are not required
// to be safe for concurrent calls.
type Detector interface {
	Detect(ctx context.Context, frame image.Image, ts time.Time) ([]Detection, error)
	Close() error
}

// Thresholds holds the global confidence cutoff plus per-class overrides.
type Thresholds struct {
	Default  float32
	PerClass map[string]float32
}

// For returns the cutoff that applies to a class name.
func (t Thresholds) For(class string) float32 {
	if v, ok := t.PerClass[class]; ok && v > 0 {
		return v
	}
	if t.Default > 0 {
		return t.Default
	}
	return DefaultConfidence
}

// targetClasses is the set of classes the pipeline cares about; everything
// else a model emits is dropped at the detector boundary.
var targetClasses = map[string]struct{}{
	"person":   {},
	"fire":     {},
	"smoke":    {},
	"backpack": {},
	"handbag":  {},
	"suitcase": {},
}

func isTargetClass(name string) bool {
	_, ok := targetClasses[name]
	return ok
}
