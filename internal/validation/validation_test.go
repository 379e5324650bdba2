package validation

import (
	"strings"
	"testing"

	"github.com/julianstephens/tempo/internal/constants"
	"github.com/julianstephens/tempo/internal/models"
)

func countType(result ValidationResult, typ ConflictType) int {
	n := 0
	for _, c := range result.Conflicts {
		if c.Type == typ {
			n++
		}
	}
	return n
}

func ptr[T any](v T) *T { return &v }

func TestValidateSessions_Clean(t *testing.T) {
	sessions := []models.Session{
		{ID: "a", Date: "2026-03-10", StartTime: "2026-03-10T09:00:00Z", DurationMinutes: 25, Mode: constants.ModePomodoro},
		{ID: "b", Date: "2026-03-10", StartTime: "2026-03-10T09:25:00Z", DurationMinutes: 25, Mode: constants.ModePomodoro},
		{ID: "c", Date: "2026-03-10", DurationMinutes: 60, Mode: constants.ModeAmbient},
	}

	result := New().ValidateSessions(sessions)
	if result.HasConflicts() {
		t.Errorf("expected no conflicts, got:\n%s", result.FormatReport())
	}
}

func TestValidateSessions_Overlap(t *testing.T) {
	sessions := []models.Session{
		{ID: "late", Date: "2026-03-10", StartTime: "2026-03-10T09:20:00Z", DurationMinutes: 25, Mode: constants.ModePomodoro},
		{ID: "early", Date: "2026-03-10", StartTime: "2026-03-10T09:00:00Z", DurationMinutes: 25, Mode: constants.ModePomodoro},
	}

	result := New().ValidateSessions(sessions)
	if countType(result, ConflictOverlappingSessions) != 1 {
		t.Fatalf("expected one overlap, got:\n%s", result.FormatReport())
	}
	if ids := result.Conflicts[0].IDs; ids[0] != "early" || ids[1] != "late" {
		t.Errorf("IDs = %v, want [early late]", ids)
	}
}

func TestValidateSessions_InvalidAndDuplicate(t *testing.T) {
	sessions := []models.Session{
		{ID: "a", Date: "2026-03-10", DurationMinutes: 25, Mode: constants.ModePomodoro},
		{ID: "a", Date: "2026-03-11", DurationMinutes: 25, Mode: constants.ModePomodoro},
		{ID: "b", Date: "10/03/2026", DurationMinutes: 25, Mode: constants.ModePomodoro},
		{ID: "c", Date: "2026-03-10", DurationMinutes: 25, Mode: "sprint"},
		{ID: "d", Date: "2026-03-10", DurationMinutes: 25, Mode: constants.ModeFlow, Rating: ptr(9)},
	}

	result := New().ValidateSessions(sessions)
	if n := countType(result, ConflictDuplicateID); n != 1 {
		t.Errorf("duplicate id conflicts = %d, want 1", n)
	}
	if n := countType(result, ConflictInvalidRecord); n != 3 {
		t.Errorf("invalid record conflicts = %d, want 3\n%s", n, result.FormatReport())
	}
}

func TestValidateHabits(t *testing.T) {
	habits := []models.Habit{
		{ID: "1", Name: "Read", CompletedDates: []string{"2026-03-09", "2026-03-10"}},
		{ID: "2", Name: " read ", CompletedDates: []string{"2026-03-10", "2026-03-09"}},
		{ID: "3", Name: "Run", CompletedDates: []string{"yesterday"}},
		{ID: "4", Name: ""},
	}

	result := New().ValidateHabits(habits)
	if n := countType(result, ConflictDuplicateHabitName); n != 1 {
		t.Errorf("duplicate name conflicts = %d, want 1", n)
	}
	if n := countType(result, ConflictInvalidDateTime); n != 1 {
		t.Errorf("invalid date conflicts = %d, want 1", n)
	}
	if n := countType(result, ConflictInvalidRecord); n != 2 {
		t.Errorf("invalid record conflicts = %d, want 2 (unsorted dates, empty name)\n%s", n, result.FormatReport())
	}
}

func TestValidateTasks(t *testing.T) {
	start := int64(1_700_000_000_000)
	tasks := []models.Task{
		{ID: "1", Text: "write", LastActiveStart: &start},
		{ID: "2", Text: "edit", LastActiveStart: &start},
		{ID: "3", Text: "gone", LastActiveStart: &start, IsDeleted: true, DeletedAt: ptr("2026-03-10T10:00:00Z")},
		{ID: "4", Text: "done", Completed: true, CompletedAt: ptr("last tuesday")},
		{ID: "5", Text: " ", TimeSpent: -5},
	}

	result := New().ValidateTasks(tasks)
	if n := countType(result, ConflictMultipleActiveTasks); n != 1 {
		t.Fatalf("multiple active conflicts = %d, want 1", n)
	}
	for _, c := range result.Conflicts {
		if c.Type == ConflictMultipleActiveTasks && len(c.IDs) != 2 {
			t.Errorf("deleted task counted as active: %v", c.IDs)
		}
	}
	if n := countType(result, ConflictInvalidDateTime); n != 1 {
		t.Errorf("invalid timestamp conflicts = %d, want 1", n)
	}
	if n := countType(result, ConflictInvalidRecord); n != 2 {
		t.Errorf("invalid record conflicts = %d, want 2", n)
	}
}

func TestValidateEvents(t *testing.T) {
	events := []models.CalendarEvent{
		{ID: "1", Title: "Exam", Date: "2026-03-12"},
		{ID: "2", Title: "", Date: "2026-03-12"},
		{ID: "3", Title: "Trip", Date: "March"},
	}

	result := New().ValidateEvents(events)
	if n := countType(result, ConflictInvalidRecord); n != 2 {
		t.Errorf("invalid record conflicts = %d, want 2", n)
	}
}

func TestValidateCombinesCollections(t *testing.T) {
	data := Data{
		Sessions: []models.Session{{ID: "s", Date: "bad", Mode: constants.ModePomodoro}},
		Habits:   []models.Habit{{ID: "h", Name: "x"}, {ID: "h", Name: "y"}},
		Events:   []models.CalendarEvent{{ID: "e", Date: "2026-03-12"}},
	}

	result := New().Validate(data)
	if len(result.Conflicts) != 3 {
		t.Fatalf("expected 3 conflicts, got:\n%s", result.FormatReport())
	}
	collections := map[string]bool{}
	for _, c := range result.Conflicts {
		collections[c.Collection] = true
	}
	for _, want := range []string{constants.CollectionSessions, constants.CollectionHabits, constants.CollectionEvents} {
		if !collections[want] {
			t.Errorf("no conflict reported for %s", want)
		}
	}
}

func TestFormatReport(t *testing.T) {
	empty := ValidationResult{}
	if got := empty.FormatReport(); got != "No conflicts detected." {
		t.Errorf("empty report = %q", got)
	}

	result := ValidationResult{Conflicts: []Conflict{{Description: "one"}, {Description: "two"}}}
	got := result.FormatReport()
	if !strings.HasPrefix(got, "Conflicts detected:\n") || !strings.Contains(got, "- two\n") {
		t.Errorf("unexpected report:\n%s", got)
	}
}
