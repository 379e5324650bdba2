package models

import (
	"fmt"
	"time"

	"github.com/julianstephens/tempo/internal/constants"
)

// CalendarEvent is a dated entry shown on the planner calendar
type CalendarEvent struct {
	ID    string `json:"id"`
	Date  string `json:"date"` // YYYY-MM-DD format
	Title string `json:"title"`
	Type  string `json:"type"`
	Color string `json:"color"`
}

func (e CalendarEvent) EntityID() string      { return e.ID }
func (e CalendarEvent) RetentionDate() string { return e.Date }

func (e *CalendarEvent) Validate() error {
	if e.Title == "" {
		return fmt.Errorf("event title cannot be empty")
	}
	if _, err := time.Parse(constants.DateFormat, e.Date); err != nil {
		return fmt.Errorf("invalid date format (expected YYYY-MM-DD): %w", err)
	}
	return nil
}
