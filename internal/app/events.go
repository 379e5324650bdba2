package app

import (
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/julianstephens/tempo/internal/models"
)

// AddEvent creates a calendar event
func (s *Store) AddEvent(e models.CalendarEvent) (models.CalendarEvent, error) {
	e.Title = strings.TrimSpace(e.Title)
	if e.Date == "" {
		e.Date = s.today()
	}
	if err := e.Validate(); err != nil {
		return models.CalendarEvent{}, err
	}
	e.ID = uuid.New().String()

	s.mu.Lock()
	defer s.mu.Unlock()
	return e, s.events.Upsert(e)
}

// UpdateEvent applies fn to event ref and validates the result.
func (s *Store) UpdateEvent(ref string, fn func(*models.CalendarEvent)) (models.CalendarEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, err := resolve(s.events.Items(), ref, "event")
	if err != nil {
		return models.CalendarEvent{}, err
	}
	id := e.ID
	fn(&e)
	e.ID = id
	e.Title = strings.TrimSpace(e.Title)
	if err := e.Validate(); err != nil {
		return models.CalendarEvent{}, err
	}
	return e, s.events.Upsert(e)
}

// DeleteEvent removes event ref
func (s *Store) DeleteEvent(ref string) (models.CalendarEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, err := resolve(s.events.Items(), ref, "event")
	if err != nil {
		return models.CalendarEvent{}, err
	}
	return e, s.events.Delete(e.ID)
}

// EventsOn returns the events dated date.
func (s *Store) EventsOn(date string) []models.CalendarEvent {
	var out []models.CalendarEvent
	for _, e := range s.events.Items() {
		if e.Date == date {
			out = append(out, e)
		}
	}
	return out
}

// Events returns every event ordered by date.
func (s *Store) Events() []models.CalendarEvent {
	out := s.events.Items()
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date < out[j].Date })
	return out
}
