// Package alert builds and delivers alert events for fired gate decisions.
// Delivery runs off the frame path through a buffered emitter; a failed
// delivery never rolls back the gate decision that produced it.
package alert

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/vigilo-ai/vigilo/internal/detect"
	"github.com/vigilo-ai/vigilo/internal/threat"
)

// ThreatInfo is one classified detection carried in an alert.
type ThreatInfo struct {
	Label      string      `json:"label"`
	Priority   string      `json:"priority"`
	Confidence float32     `json:"confidence"`
	Box        BoundingBox `json:"box"`
}

// BoundingBox is the detection box in source-frame pixels.
type BoundingBox struct {
	X1 int `json:"x1"`
	Y1 int `json:"y1"`
	X2 int `json:"x2"`
	Y2 int `json:"y2"`
}

// Event is the canonical alert payload handed to every sink.
type Event struct {
	ID           string       `json:"id"`
	Timestamp    time.Time    `json:"timestamp"`
	Feed         string       `json:"feed"`
	AfterHours   bool         `json:"after_hours"`
	Threats      []ThreatInfo `json:"threats"`
	Message      string       `json:"message"`
	SnapshotPath string       `json:"snapshot_path,omitempty"`
}

// BuildParams collects the inputs for one alert event.
type BuildParams struct {
	Feed         string
	Timestamp    time.Time
	AfterHours   bool
	Detections   []detect.Detection
	Verdicts     []threat.Verdict
	SnapshotPath string
}

// BuildEvent assembles an event from the frame's threat detections. The
// detections and verdicts slices are parallel; non-threat entries are left
// out of the payload.
func BuildEvent(params BuildParams) *Event {
	var infos []ThreatInfo
	var labels []string
	for i, v := range params.Verdicts {
		if !v.IsThreat || i >= len(params.Detections) {
			continue
		}
		d := params.Detections[i]
		infos = append(infos, ThreatInfo{
			Label:      string(v.Label),
			Priority:   v.Priority.String(),
			Confidence: d.Confidence,
			Box:        BoundingBox{X1: d.Box.Min.X, Y1: d.Box.Min.Y, X2: d.Box.Max.X, Y2: d.Box.Max.Y},
		})
		labels = append(labels, string(v.Label))
	}
	if len(infos) == 0 {
		return nil
	}

	feed := params.Feed
	if feed == "" {
		feed = "camera-1"
	}

	return &Event{
		ID:           uuid.NewString(),
		Timestamp:    params.Timestamp,
		Feed:         feed,
		AfterHours:   params.AfterHours,
		Threats:      infos,
		Message:      composeMessage(labels, feed, params.Timestamp),
		SnapshotPath: params.SnapshotPath,
	}
}

// composeMessage renders the notification body sent over SMS-style sinks.
func composeMessage(labels []string, feed string, ts time.Time) string {
	var b strings.Builder
	b.WriteString("SECURITY ALERT\n")
	fmt.Fprintf(&b, "Time: %s\n", ts.Format("2006-01-02 15:04:05"))
	fmt.Fprintf(&b, "Threat Detected: %s\n", joinThreats(labels))
	fmt.Fprintf(&b, "Location: %s\n", feed)
	b.WriteString("Action Required: Immediate attention needed")
	return b.String()
}

func joinThreats(labels []string) string {
	switch len(labels) {
	case 0:
		return "unknown"
	case 1:
		return labels[0]
	default:
		return strings.Join(labels[:len(labels)-1], ", ") + " and " + labels[len(labels)-1]
	}
}
