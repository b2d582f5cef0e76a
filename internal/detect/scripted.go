package detect

import (
	"context"
	"image"
	"time"
)

// ScriptedDetector fabricates detections on a fixed cycle keyed off the frame
// timestamp, for running the pipeline without a model bundle: person for the
// first three seconds of each ten-second cycle, then fire, then smoke, then a
// quiet second. Deterministic given the timestamps it is fed.
type ScriptedDetector struct{}

func NewScriptedDetector() *ScriptedDetector {
	return &ScriptedDetector{}
}

func (s *ScriptedDetector) Detect(ctx context.Context, frame image.Image, ts time.Time) ([]Detection, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.script(frame, ts), nil
}

func (s *ScriptedDetector) script(frame image.Image, ts time.Time) []Detection {
	b := frame.Bounds()
	w, h := b.Dx(), b.Dy()

	phase := ts.Unix() % 10
	if phase < 0 {
		phase += 10
	}

	switch {
	case phase < 3:
		return []Detection{{
			Label:      "person",
			Confidence: 0.85,
			Box:        image.Rect(w/4, h/4, w/2, h/2),
		}}
	case phase < 6:
		return []Detection{{
			Label:      "fire",
			Confidence: 0.92,
			Box:        image.Rect(w/3, h/3, 2*w/3, 2*h/3),
		}}
	case phase < 9:
		return []Detection{{
			Label:      "smoke",
			Confidence: 0.78,
			Box:        image.Rect(w/6, h/6, 5*w/6, 5*h/6),
		}}
	default:
		return nil
	}
}

func (s *ScriptedDetector) Close() error { return nil }
