package app

import (
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/julianstephens/tempo/internal/models"
	"github.com/julianstephens/tempo/internal/utils"
)

// AddHabit creates a habit
func (s *Store) AddHabit(name, color string) (models.Habit, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return models.Habit{}, fmt.Errorf("habit name cannot be empty")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, h := range s.habits.Items() {
		if strings.EqualFold(h.Name, name) {
			return models.Habit{}, fmt.Errorf("habit %q already exists", h.Name)
		}
	}
	h := models.Habit{ID: uuid.New().String(), Name: name, Color: color, CompletedDates: []string{}}
	if err := s.habits.Upsert(h); err != nil {
		return models.Habit{}, err
	}
	return h, nil
}

// ToggleHabit flips the completion of habit ref on date (today when empty)
// and reports whether the habit is now done on that date.
func (s *Store) ToggleHabit(ref, date string) (models.Habit, bool, error) {
	if date == "" {
		date = s.today()
	}
	if !utils.ValidateDate(date) {
		return models.Habit{}, false, fmt.Errorf("invalid date %q (expected YYYY-MM-DD)", date)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	h, err := resolve(s.habits.Items(), ref, "habit")
	if err != nil {
		return models.Habit{}, false, err
	}
	h.CompletedDates = append([]string(nil), h.CompletedDates...)
	done := h.Toggle(date)
	if err := s.habits.Upsert(h); err != nil {
		return models.Habit{}, false, err
	}
	return h, done, nil
}

// RenameHabit changes the name of habit ref
func (s *Store) RenameHabit(ref, name string) (models.Habit, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return models.Habit{}, fmt.Errorf("habit name cannot be empty")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	h, err := resolve(s.habits.Items(), ref, "habit")
	if err != nil {
		return models.Habit{}, err
	}
	h.Name = name
	return h, s.habits.Upsert(h)
}

// DeleteHabit removes habit ref and its history
func (s *Store) DeleteHabit(ref string) (models.Habit, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	h, err := resolve(s.habits.Items(), ref, "habit")
	if err != nil {
		return models.Habit{}, err
	}
	return h, s.habits.Delete(h.ID)
}

// Habits returns every habit in creation order.
func (s *Store) Habits() []models.Habit {
	return s.habits.Items()
}

// HabitStreak returns the current streak of habit ref as of today.
func (s *Store) HabitStreak(ref string) (int, error) {
	h, err := resolve(s.habits.Items(), ref, "habit")
	if err != nil {
		return 0, err
	}
	today, err := utils.ParseDateInLocation(s.today(), s.location())
	if err != nil {
		return 0, err
	}
	return h.Streak(today), nil
}

// habitDates lists the last n days ending today, oldest first.
func (s *Store) habitDates(n int) []string {
	now, loc := s.now(), s.location()
	out := make([]string, n)
	for i := 0; i < n; i++ {
		out[n-1-i] = utils.DaysBefore(now, loc, i)
	}
	return out
}

// HabitWeek returns the last seven dates ending today, oldest first.
func (s *Store) HabitWeek() []string {
	return s.habitDates(7)
}
