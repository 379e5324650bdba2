package models

import (
	"fmt"
	"time"

	"github.com/julianstephens/tempo/internal/constants"
)

// Session is one completed focus period. Sessions are append-only.
type Session struct {
	ID              string                `json:"id"`
	Date            string                `json:"date"`       // YYYY-MM-DD format
	StartTime       string                `json:"start_time"` // RFC3339 timestamp
	DurationMinutes int                   `json:"duration_minutes"`
	Mode            constants.SessionMode `json:"mode"`
	Rating          *int                  `json:"rating,omitempty"` // 1-5
	Tags            []string              `json:"tags,omitempty"`
}

func (s Session) EntityID() string      { return s.ID }
func (s Session) RetentionDate() string { return s.Date }

func (s *Session) Validate() error {
	if s.ID == "" {
		return fmt.Errorf("session id cannot be empty")
	}
	if _, err := time.Parse(constants.DateFormat, s.Date); err != nil {
		return fmt.Errorf("invalid session date (expected YYYY-MM-DD): %w", err)
	}
	if s.StartTime != "" {
		if _, err := time.Parse(time.RFC3339, s.StartTime); err != nil {
			return fmt.Errorf("invalid session start time (expected RFC3339): %w", err)
		}
	}
	if s.DurationMinutes < 0 {
		return fmt.Errorf("session duration cannot be negative")
	}
	if !ValidMode(s.Mode) {
		return fmt.Errorf("unknown session mode %q", s.Mode)
	}
	if s.Rating != nil && (*s.Rating < 1 || *s.Rating > 5) {
		return fmt.Errorf("rating must be between 1 and 5")
	}
	return nil
}

// ValidMode reports whether mode is one of the known presets
func ValidMode(mode constants.SessionMode) bool {
	for _, m := range constants.Modes {
		if m == mode {
			return true
		}
	}
	return false
}
