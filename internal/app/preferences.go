package app

import (
	"fmt"

	"github.com/julianstephens/tempo/internal/gamification"
	"github.com/julianstephens/tempo/internal/models"
	"github.com/julianstephens/tempo/internal/utils"
)

// Preferences returns the current preferences.
func (s *Store) Preferences() models.Preferences {
	return s.prefs.Get()
}

// UpdatePreferences applies fn to a copy of the preferences and stores the
// result. A changed daily goal rescores today; a changed timezone re-runs the
// retention sweep under the new day boundaries.
func (s *Store) UpdatePreferences(fn func(*models.Preferences) error) (models.Preferences, error) {
	next, tzChanged, err := s.updatePreferences(fn)
	if err != nil {
		return models.Preferences{}, err
	}
	if tzChanged {
		s.log.Info("Timezone changed, re-applying retention", "timezone", next.Timezone)
		if _, err := s.Sweep(); err != nil {
			return next, err
		}
	}
	return next, nil
}

// SetPreference parses and stores a single preference by key.
func (s *Store) SetPreference(key, value string) (models.Preferences, error) {
	return s.UpdatePreferences(func(p *models.Preferences) error {
		return models.SetPreference(p, key, value)
	})
}

func (s *Store) updatePreferences(fn func(*models.Preferences) error) (models.Preferences, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev := s.prefs.Get()
	next := prev
	next.Features = cloneFlags(prev.Features)
	next.Quotes = append([]string(nil), prev.Quotes...)
	if err := fn(&next); err != nil {
		return models.Preferences{}, false, err
	}
	models.ApplyDefaultPreferences(&next)
	if !utils.ValidateTimezone(next.Timezone) {
		return models.Preferences{}, false, fmt.Errorf("invalid timezone %q", next.Timezone)
	}
	next.UpdatedAt = s.timestamp()

	b := s.replica.Begin()
	s.prefs.StageSet(b, next)
	if next.DailyGoalMinutes != prev.DailyGoalMinutes {
		stats := s.stats.Get()
		stats.DailyGoalMinutes = next.DailyGoalMinutes
		stats.TodayScore = gamification.Score(stats.TodayMinutes, stats.DailyGoalMinutes)
		s.stats.StageSet(b, stats)
	}
	if err := b.Commit(); err != nil {
		return models.Preferences{}, false, fmt.Errorf("failed to save preferences: %w", err)
	}
	return next, next.Timezone != prev.Timezone, nil
}

func cloneFlags(in map[string]bool) map[string]bool {
	if in == nil {
		return nil
	}
	out := make(map[string]bool, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
