package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func TestHabitUnmarshalSortsDates(t *testing.T) {
	raw := `{"id":"h1","name":"read","completed_dates":["2026-03-10","2026-03-08","2026-03-09","2026-03-08"]}`
	var h Habit
	if err := json.Unmarshal([]byte(raw), &h); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}

	want := []string{"2026-03-08", "2026-03-09", "2026-03-10"}
	if diff := cmp.Diff(want, h.CompletedDates); diff != "" {
		t.Errorf("CompletedDates mismatch (-want +got):\n%s", diff)
	}
	if !h.IsDoneOn("2026-03-10") {
		t.Error("IsDoneOn(2026-03-10) = false")
	}
	if got := h.Streak(time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)); got != 3 {
		t.Errorf("Streak = %d, want 3", got)
	}

	if h.Toggle("2026-03-09") {
		t.Error("Toggle removed an existing date but reported done")
	}
	if diff := cmp.Diff([]string{"2026-03-08", "2026-03-10"}, h.CompletedDates); diff != "" {
		t.Errorf("after Toggle (-want +got):\n%s", diff)
	}
}

func TestHabitUnmarshalKeepsNilDates(t *testing.T) {
	var h Habit
	if err := json.Unmarshal([]byte(`{"id":"h1","name":"read"}`), &h); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if h.CompletedDates != nil {
		t.Errorf("CompletedDates = %v, want nil", h.CompletedDates)
	}
}
