package models

import (
	"encoding/json"
	"slices"
	"sort"
	"time"

	"github.com/julianstephens/tempo/internal/constants"
)

// Habit represents a recurring practice to track
type Habit struct {
	ID             string   `json:"id"`
	Name           string   `json:"name"`
	Color          string   `json:"color"`
	CompletedDates []string `json:"completed_dates"` // sorted set of YYYY-MM-DD
}

func (h Habit) EntityID() string { return h.ID }

// Habits are never swept by the retention policy.
func (h Habit) RetentionDate() string { return "" }

// UnmarshalJSON restores the sorted set invariant on CompletedDates, which
// another client may have written unsorted or with duplicates.
func (h *Habit) UnmarshalJSON(data []byte) error {
	type plain Habit
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*h = Habit(p)
	h.CompletedDates = normalizeDates(h.CompletedDates)
	return nil
}

func normalizeDates(dates []string) []string {
	if slices.IsSorted(dates) && len(slices.Compact(slices.Clone(dates))) == len(dates) {
		return dates
	}
	out := slices.Clone(dates)
	slices.Sort(out)
	return slices.Compact(out)
}

// IsDoneOn reports whether the habit was completed on day
func (h Habit) IsDoneOn(day string) bool {
	i := sort.SearchStrings(h.CompletedDates, day)
	return i < len(h.CompletedDates) && h.CompletedDates[i] == day
}

// Toggle flips day in or out of the completed set and returns the new state.
func (h *Habit) Toggle(day string) bool {
	i := sort.SearchStrings(h.CompletedDates, day)
	if i < len(h.CompletedDates) && h.CompletedDates[i] == day {
		h.CompletedDates = append(h.CompletedDates[:i:i], h.CompletedDates[i+1:]...)
		return false
	}
	dates := make([]string, 0, len(h.CompletedDates)+1)
	dates = append(dates, h.CompletedDates[:i]...)
	dates = append(dates, day)
	dates = append(dates, h.CompletedDates[i:]...)
	h.CompletedDates = dates
	return true
}

// Streak counts consecutive completed days ending today, or ending yesterday
// when today is not yet marked.
func (h Habit) Streak(today time.Time) int {
	day := today
	if !h.IsDoneOn(day.Format(constants.DateFormat)) {
		day = day.AddDate(0, 0, -1)
	}
	streak := 0
	for h.IsDoneOn(day.Format(constants.DateFormat)) {
		streak++
		day = day.AddDate(0, 0, -1)
	}
	return streak
}
