// Package pipeline wires frames, detection, classification, privacy, gating,
// and alert delivery into one per-feed loop.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"time"

	"go.uber.org/zap"

	"github.com/vigilo-ai/vigilo/internal/alert"
	"github.com/vigilo-ai/vigilo/internal/detect"
	"github.com/vigilo-ai/vigilo/internal/frames"
	"github.com/vigilo-ai/vigilo/internal/gate"
	"github.com/vigilo-ai/vigilo/internal/privacy"
	"github.com/vigilo-ai/vigilo/internal/schedule"
	"github.com/vigilo-ai/vigilo/internal/snapshot"
	"github.com/vigilo-ai/vigilo/internal/telemetry"
	"github.com/vigilo-ai/vigilo/internal/threat"
)

// Options collects the collaborators for one feed's pipeline.
type Options struct {
	Feed         string
	Source       frames.Source
	Detector     detect.Detector
	Schedule     *schedule.Schedule
	Gate         *gate.Gate
	Snapshots    *snapshot.Writer
	Emitter      *alert.Emitter
	BlurEnabled  bool
	BlurStrength int
	Log          *zap.Logger
	Telemetry    *telemetry.Provider
}

// Stats summarizes one pipeline run.
type Stats struct {
	Frames     int
	Detections int
	Fired      int
	Suppressed map[gate.Reason]int
}

// Pipeline owns a feed's processing loop. One goroutine drives Run; the gate
// serializes internally, so nothing else here needs locking.
type Pipeline struct {
	opts  Options
	log   *zap.Logger
	stats Stats
}

func New(opts Options) (*Pipeline, error) {
	if opts.Source == nil {
		return nil, errors.New("pipeline requires a frame source")
	}
	if opts.Detector == nil {
		return nil, errors.New("pipeline requires a detector")
	}
	if opts.Schedule == nil {
		return nil, errors.New("pipeline requires a schedule")
	}
	if opts.Gate == nil {
		return nil, errors.New("pipeline requires a gate")
	}
	if opts.Feed == "" {
		opts.Feed = "camera-1"
	}
	log := opts.Log
	if log == nil {
		log = zap.NewNop()
	}
	return &Pipeline{
		opts: opts,
		log:  log.With(zap.String("feed", opts.Feed)),
		stats: Stats{
			Suppressed: make(map[gate.Reason]int),
		},
	}, nil
}

// Run consumes the source until EOF or context cancellation. Frames are
// processed strictly in order; the returned stats cover the whole run.
func (p *Pipeline) Run(ctx context.Context) (Stats, error) {
	for {
		f, err := p.opts.Source.Next(ctx)
		if err != nil {
			if errors.Is(err, io.EOF) {
				return p.stats, nil
			}
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return p.stats, nil
			}
			return p.stats, fmt.Errorf("next frame: %w", err)
		}
		if err := p.processFrame(ctx, f); err != nil {
			return p.stats, err
		}
	}
}

// Stats returns the counters accumulated so far.
func (p *Pipeline) Stats() Stats {
	return p.stats
}

func (p *Pipeline) processFrame(ctx context.Context, f frames.Frame) error {
	start := time.Now()
	dets, err := p.opts.Detector.Detect(ctx, f.Image, f.Timestamp)
	inferenceMs := float64(time.Since(start)) / float64(time.Millisecond)
	if err != nil {
		return fmt.Errorf("detect frame %d: %w", f.Index, err)
	}

	p.stats.Frames++
	p.stats.Detections += len(dets)
	p.opts.Telemetry.RecordFrame(p.opts.Feed, len(dets), inferenceMs)

	if len(dets) == 0 {
		return nil
	}

	afterHours := p.opts.Schedule.AfterHours(f.Timestamp)

	verdicts := make([]threat.Verdict, len(dets))
	for i, d := range dets {
		verdicts[i] = threat.Classify(threat.ParseLabel(d.Label), afterHours)
	}

	// One gate decision per frame, on the most severe verdict present.
	best := verdicts[0]
	for _, v := range verdicts[1:] {
		if v.IsThreat && (!best.IsThreat || v.Priority > best.Priority) {
			best = v
		}
	}

	decision := p.opts.Gate.Decide(best, f.Timestamp)
	p.opts.Telemetry.RecordDecision(p.opts.Feed, string(decision.Reason))

	if !decision.ShouldAlert {
		p.stats.Suppressed[decision.Reason]++
		p.log.Debug("alert suppressed",
			zap.String("reason", string(decision.Reason)),
			zap.Int("frame", f.Index),
			zap.Int("detections", len(dets)))
		return nil
	}
	p.stats.Fired++

	evidence := p.maskedFrame(f.Image, dets, verdicts)

	var snapshotPath string
	if p.opts.Snapshots != nil {
		snapshotPath, err = p.opts.Snapshots.Save(evidence, threatDetections(dets, verdicts), f.Timestamp)
		if err != nil {
			// Alert delivery still proceeds; the slot is already consumed.
			p.log.Warn("snapshot failed", zap.Int("frame", f.Index), zap.Error(err))
			snapshotPath = ""
		}
	}

	ev := alert.BuildEvent(alert.BuildParams{
		Feed:         p.opts.Feed,
		Timestamp:    f.Timestamp,
		AfterHours:   afterHours,
		Detections:   dets,
		Verdicts:     verdicts,
		SnapshotPath: snapshotPath,
	})
	if ev != nil && p.opts.Emitter != nil {
		p.opts.Emitter.Emit(ctx, ev)
		p.log.Info("alert fired",
			zap.String("alert_id", ev.ID),
			zap.Int("frame", f.Index),
			zap.Int("threats", len(ev.Threats)),
			zap.String("snapshot", snapshotPath))
	}
	return nil
}

// maskedFrame pixelates people who are not part of the threat before the
// frame is persisted anywhere.
func (p *Pipeline) maskedFrame(img image.Image, dets []detect.Detection, verdicts []threat.Verdict) image.Image {
	if !p.opts.BlurEnabled {
		return img
	}
	var regions []image.Rectangle
	for i, v := range verdicts {
		if v.Label == threat.LabelPerson && !v.IsThreat {
			regions = append(regions, dets[i].Box)
		}
	}
	if len(regions) == 0 {
		return img
	}
	return privacy.Pixelate(img, regions, p.opts.BlurStrength)
}

func threatDetections(dets []detect.Detection, verdicts []threat.Verdict) []detect.Detection {
	out := make([]detect.Detection, 0, len(dets))
	for i, v := range verdicts {
		if v.IsThreat {
			out = append(out, dets[i])
		}
	}
	return out
}
