// Package schedule decides whether an instant falls in the after-hours
// window, during which person and bag detections are escalated.
package schedule

import (
	"fmt"
	"sync"
	"time"
)

const (
	DefaultStartHour = 22 // 10 PM
	DefaultEndHour   = 6  // 6 AM
)

// Schedule evaluates the after-hours window against a caller-supplied clock.
// It never reads time.Now itself.
type Schedule struct {
	startHour int
	endHour   int

	mu      sync.Mutex
	enabled bool
	forced  bool
}

// New builds a schedule for the window [startHour:00, endHour:00), hours in
// local 24h time. A start hour greater than the end hour spans midnight.
func New(startHour, endHour int, enabled bool) (*Schedule, error) {
	if startHour < 0 || startHour > 23 {
		return nil, fmt.Errorf("start hour %d out of range [0,23]", startHour)
	}
	if endHour < 0 || endHour > 23 {
		return nil, fmt.Errorf("end hour %d out of range [0,23]", endHour)
	}
	return &Schedule{startHour: startHour, endHour: endHour, enabled: enabled}, nil
}

// AfterHours reports whether now is inside the restricted window. Always
// false while the schedule is disabled, always true while forced on.
func (s *Schedule) AfterHours(now time.Time) bool {
	s.mu.Lock()
	enabled, forced := s.enabled, s.forced
	s.mu.Unlock()

	if forced {
		return true
	}
	if !enabled {
		return false
	}

	h := now.Hour()
	if s.startHour > s.endHour {
		// Overnight window, e.g. 22:00 to 06:00.
		return h >= s.startHour || h < s.endHour
	}
	return h >= s.startHour && h < s.endHour
}

// Toggle flips the schedule on or off and reports the new state.
func (s *Schedule) Toggle() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.enabled = !s.enabled
	return s.enabled
}

// Force pins after-hours on regardless of the clock, for demos and drills.
func (s *Schedule) Force(on bool) {
	s.mu.Lock()
	s.forced = on
	s.mu.Unlock()
}
