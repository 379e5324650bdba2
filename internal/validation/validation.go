package validation

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/julianstephens/tempo/internal/constants"
	"github.com/julianstephens/tempo/internal/models"
)

// ConflictType represents the type of validation conflict
type ConflictType string

const (
	ConflictDuplicateID         ConflictType = "duplicate_id"
	ConflictDuplicateHabitName  ConflictType = "duplicate_habit_name"
	ConflictOverlappingSessions ConflictType = "overlapping_sessions"
	ConflictMultipleActiveTasks ConflictType = "multiple_active_tasks"
	ConflictInvalidDateTime     ConflictType = "invalid_datetime"
	ConflictInvalidRecord       ConflictType = "invalid_record"
)

// Conflict represents a detected problem in stored data
type Conflict struct {
	Type        ConflictType
	Collection  string
	Description string
	Date        string   // YYYY-MM-DD format (if applicable)
	IDs         []string // ids of the records involved
}

// ValidationResult contains all detected conflicts
type ValidationResult struct {
	Conflicts []Conflict
}

// HasConflicts returns true if there are any conflicts
func (vr *ValidationResult) HasConflicts() bool {
	return len(vr.Conflicts) > 0
}

// FormatReport returns a human-readable report of all conflicts
func (vr *ValidationResult) FormatReport() string {
	if !vr.HasConflicts() {
		return "No conflicts detected."
	}

	var b strings.Builder
	b.WriteString("Conflicts detected:\n")
	for _, conflict := range vr.Conflicts {
		fmt.Fprintf(&b, "- %s\n", conflict.Description)
	}
	return b.String()
}

func (vr *ValidationResult) add(c Conflict) {
	vr.Conflicts = append(vr.Conflicts, c)
}

func (vr *ValidationResult) merge(other ValidationResult) {
	vr.Conflicts = append(vr.Conflicts, other.Conflicts...)
}

// Data is a snapshot of every collection to validate
type Data struct {
	Sessions []models.Session
	Habits   []models.Habit
	Tasks    []models.Task
	Events   []models.CalendarEvent
}

// Validator checks stored collections for records the application would
// never write itself
type Validator struct{}

// New creates a new Validator
func New() *Validator {
	return &Validator{}
}

// Validate runs every collection check
func (v *Validator) Validate(d Data) ValidationResult {
	result := ValidationResult{Conflicts: []Conflict{}}
	result.merge(v.ValidateSessions(d.Sessions))
	result.merge(v.ValidateHabits(d.Habits))
	result.merge(v.ValidateTasks(d.Tasks))
	result.merge(v.ValidateEvents(d.Events))
	return result
}

// ValidateSessions checks sessions for invalid fields, duplicate ids and
// sessions whose focus periods overlap
func (v *Validator) ValidateSessions(sessions []models.Session) ValidationResult {
	result := ValidationResult{Conflicts: []Conflict{}}
	checkDuplicateIDs(&result, constants.CollectionSessions, ids(sessions))

	type span struct {
		session    models.Session
		start, end time.Time
	}
	var spans []span
	for _, s := range sessions {
		if err := s.Validate(); err != nil {
			result.add(Conflict{
				Type:        ConflictInvalidRecord,
				Collection:  constants.CollectionSessions,
				Description: fmt.Sprintf("Session %s: %v", s.ID, err),
				Date:        s.Date,
				IDs:         []string{s.ID},
			})
			continue
		}
		if s.StartTime == "" || s.DurationMinutes == 0 {
			continue
		}
		start, _ := time.Parse(time.RFC3339, s.StartTime)
		spans = append(spans, span{s, start, start.Add(time.Duration(s.DurationMinutes) * time.Minute)})
	}

	// Sort by start time for overlap detection
	sort.Slice(spans, func(i, j int) bool {
		return spans[i].start.Before(spans[j].start)
	})
	for i := 1; i < len(spans); i++ {
		prev, cur := spans[i-1], spans[i]
		if timesOverlap(prev.start, prev.end, cur.start, cur.end) {
			result.add(Conflict{
				Type:       ConflictOverlappingSessions,
				Collection: constants.CollectionSessions,
				Description: fmt.Sprintf("Sessions overlap: %s (%s, %d min) and %s (%s, %d min)",
					prev.session.ID, prev.start.Format(time.RFC3339), prev.session.DurationMinutes,
					cur.session.ID, cur.start.Format(time.RFC3339), cur.session.DurationMinutes),
				Date: cur.session.Date,
				IDs:  []string{prev.session.ID, cur.session.ID},
			})
		}
	}
	return result
}

// ValidateHabits checks habits for duplicate names and malformed check-in dates
func (v *Validator) ValidateHabits(habits []models.Habit) ValidationResult {
	result := ValidationResult{Conflicts: []Conflict{}}
	checkDuplicateIDs(&result, constants.CollectionHabits, ids(habits))

	nameCount := make(map[string][]string)
	for _, h := range habits {
		// Skip empty names to avoid false positives
		if name := strings.ToLower(strings.TrimSpace(h.Name)); name != "" {
			nameCount[name] = append(nameCount[name], h.ID)
		} else {
			result.add(Conflict{
				Type:        ConflictInvalidRecord,
				Collection:  constants.CollectionHabits,
				Description: fmt.Sprintf("Habit %s has no name", h.ID),
				IDs:         []string{h.ID},
			})
		}

		for i, d := range h.CompletedDates {
			if !isValidDate(d) {
				result.add(Conflict{
					Type:        ConflictInvalidDateTime,
					Collection:  constants.CollectionHabits,
					Description: fmt.Sprintf("Habit %q has invalid check-in date: %s", h.Name, d),
					IDs:         []string{h.ID},
				})
			} else if i > 0 && h.CompletedDates[i-1] >= d {
				result.add(Conflict{
					Type:        ConflictInvalidRecord,
					Collection:  constants.CollectionHabits,
					Description: fmt.Sprintf("Habit %q check-in dates are not a sorted set at %s", h.Name, d),
					Date:        d,
					IDs:         []string{h.ID},
				})
			}
		}
	}

	for _, name := range sortedKeys(nameCount) {
		if habitIDs := nameCount[name]; len(habitIDs) > 1 {
			result.add(Conflict{
				Type:        ConflictDuplicateHabitName,
				Collection:  constants.CollectionHabits,
				Description: fmt.Sprintf("Duplicate habit name: %q (IDs: %v)", name, habitIDs),
				IDs:         habitIDs,
			})
		}
	}
	return result
}

// ValidateTasks checks tasks for invalid timestamps and more than one running
// timer
func (v *Validator) ValidateTasks(tasks []models.Task) ValidationResult {
	result := ValidationResult{Conflicts: []Conflict{}}
	checkDuplicateIDs(&result, constants.CollectionTasks, ids(tasks))

	var active []string
	for _, t := range tasks {
		if strings.TrimSpace(t.Text) == "" {
			result.add(Conflict{
				Type:        ConflictInvalidRecord,
				Collection:  constants.CollectionTasks,
				Description: fmt.Sprintf("Task %s has no text", t.ID),
				IDs:         []string{t.ID},
			})
		}
		if t.TimeSpent < 0 {
			result.add(Conflict{
				Type:        ConflictInvalidRecord,
				Collection:  constants.CollectionTasks,
				Description: fmt.Sprintf("Task %q has negative time spent", t.Text),
				IDs:         []string{t.ID},
			})
		}
		stamps := []struct {
			field string
			value *string
		}{{"completed_at", t.CompletedAt}, {"deleted_at", t.DeletedAt}}
		for _, ts := range stamps {
			if ts.value == nil {
				continue
			}
			if _, err := time.Parse(time.RFC3339, *ts.value); err != nil {
				result.add(Conflict{
					Type:        ConflictInvalidDateTime,
					Collection:  constants.CollectionTasks,
					Description: fmt.Sprintf("Task %q has invalid %s: %s", t.Text, ts.field, *ts.value),
					IDs:         []string{t.ID},
				})
			}
		}
		if t.IsActive() && !t.IsDeleted {
			active = append(active, t.ID)
		}
	}

	if len(active) > 1 {
		result.add(Conflict{
			Type:        ConflictMultipleActiveTasks,
			Collection:  constants.CollectionTasks,
			Description: fmt.Sprintf("%d task timers are running at once (IDs: %v)", len(active), active),
			IDs:         active,
		})
	}
	return result
}

// ValidateEvents checks calendar events for invalid fields and duplicate ids
func (v *Validator) ValidateEvents(events []models.CalendarEvent) ValidationResult {
	result := ValidationResult{Conflicts: []Conflict{}}
	checkDuplicateIDs(&result, constants.CollectionEvents, ids(events))

	for _, e := range events {
		if err := e.Validate(); err != nil {
			result.add(Conflict{
				Type:        ConflictInvalidRecord,
				Collection:  constants.CollectionEvents,
				Description: fmt.Sprintf("Event %s: %v", e.ID, err),
				Date:        e.Date,
				IDs:         []string{e.ID},
			})
		}
	}
	return result
}

// Helper functions

type identified interface {
	EntityID() string
}

func ids[T identified](items []T) []string {
	out := make([]string, len(items))
	for i, item := range items {
		out[i] = item.EntityID()
	}
	return out
}

func checkDuplicateIDs(result *ValidationResult, collection string, all []string) {
	seen := make(map[string]int, len(all))
	for _, id := range all {
		seen[id]++
	}
	for _, id := range sortedKeys(seen) {
		if seen[id] > 1 {
			result.add(Conflict{
				Type:        ConflictDuplicateID,
				Collection:  collection,
				Description: fmt.Sprintf("%s: id %s appears %d times", collection, id, seen[id]),
				IDs:         []string{id},
			})
		}
	}
}

func isValidDate(dateStr string) bool {
	_, err := time.Parse(constants.DateFormat, dateStr)
	return err == nil
}

// timesOverlap reports whether [start1, end1) and [start2, end2) intersect
func timesOverlap(start1, end1, start2, end2 time.Time) bool {
	return start1.Before(end2) && start2.Before(end1)
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
