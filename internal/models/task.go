package models

import (
	"time"

	"github.com/julianstephens/tempo/internal/constants"
)

type Task struct {
	ID              string  `json:"id"`
	Text            string  `json:"text"`
	Completed       bool    `json:"completed"`
	CompletedAt     *string `json:"completed_at,omitempty"` // RFC3339 timestamp
	IsDeleted       bool    `json:"is_deleted,omitempty"`
	DeletedAt       *string `json:"deleted_at,omitempty"` // RFC3339 timestamp
	TimeSpent       int64   `json:"time_spent"`                  // milliseconds
	LastActiveStart *int64  `json:"last_active_start,omitempty"` // unix milliseconds
}

func (t Task) EntityID() string { return t.ID }

// RetentionDate dates tombstones by deletion and finished tasks by completion.
// Open tasks are exempt from retention.
func (t Task) RetentionDate() string {
	switch {
	case t.IsDeleted && t.DeletedAt != nil:
		return dateOf(*t.DeletedAt)
	case t.Completed && t.CompletedAt != nil:
		return dateOf(*t.CompletedAt)
	default:
		return ""
	}
}

// IsActive reports whether the task timer is currently running
func (t Task) IsActive() bool {
	return t.LastActiveStart != nil
}

// ElapsedAt returns the total time spent including a running interval.
func (t Task) ElapsedAt(now time.Time) time.Duration {
	total := t.TimeSpent
	if t.LastActiveStart != nil {
		if delta := now.UnixMilli() - *t.LastActiveStart; delta > 0 {
			total += delta
		}
	}
	return time.Duration(total) * time.Millisecond
}

func dateOf(ts string) string {
	parsed, err := time.Parse(time.RFC3339, ts)
	if err != nil {
		// Keep records with unreadable timestamps rather than sweeping them.
		return ""
	}
	return parsed.Format(constants.DateFormat)
}
