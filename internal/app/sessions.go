package app

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/julianstephens/tempo/internal/constants"
	"github.com/julianstephens/tempo/internal/gamification"
	"github.com/julianstephens/tempo/internal/models"
	"github.com/julianstephens/tempo/internal/utils"
)

// Completion describes a finished timer run
type Completion struct {
	Mode      constants.SessionMode
	Minutes   int
	StartedAt time.Time // zero means now minus Minutes
	Rating    *int
	Tags      []string
}

// RecordResult is the outcome of recording a session
type RecordResult struct {
	Session models.Session
	Stats   models.FocusStats
	Awards  []models.Award
	// Skipped is set when the completion was dropped as a duplicate.
	Skipped bool
}

// CompleteSession records a timer completion, dated the day it completed.
// A second completion for the same mode within constants.CompletionDebounce
// is dropped.
func (s *Store) CompleteSession(c Completion) (RecordResult, error) {
	now := s.now()

	s.mu.Lock()
	if last, ok := s.lastCompletion[c.Mode]; ok && now.Sub(last) < constants.CompletionDebounce {
		s.mu.Unlock()
		s.log.Debug("Dropping duplicate completion", "mode", c.Mode)
		return RecordResult{Stats: s.stats.Get(), Skipped: true}, nil
	}
	s.lastCompletion[c.Mode] = now
	s.mu.Unlock()

	started := c.StartedAt
	if started.IsZero() {
		started = now.Add(-time.Duration(c.Minutes) * time.Minute)
	}
	return s.RecordSession(models.Session{
		Date:            utils.DateIn(now, s.location()),
		StartTime:       started.UTC().Format(time.RFC3339),
		DurationMinutes: c.Minutes,
		Mode:            c.Mode,
		Rating:          c.Rating,
		Tags:            normalizeTags(c.Tags),
	})
}

// RecordSession appends session to the history and updates the stats in one
// atomic write. An empty ID is assigned, an empty Date defaults to today.
func (s *Store) RecordSession(session models.Session) (RecordResult, error) {
	if session.ID == "" {
		session.ID = uuid.New().String()
	}
	if session.Date == "" {
		session.Date = s.today()
	}
	if err := session.Validate(); err != nil {
		return RecordResult{}, fmt.Errorf("invalid session: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.sessions.Get(session.ID); exists {
		return RecordResult{}, fmt.Errorf("session %s already recorded", session.ID)
	}

	prefs := s.prefs.Get()
	prev := gamification.State{Sessions: s.sessions.Items(), Stats: s.stats.Get()}
	next, awards := gamification.Record(prev, session, s.now(), s.location(), prefs.DailyGoalMinutes)

	b := s.replica.Begin()
	s.sessions.StageUpsert(b, session)
	s.stats.StageSet(b, next.Stats)
	if err := b.Commit(); err != nil {
		return RecordResult{}, fmt.Errorf("failed to record session: %w", err)
	}

	s.log.Info("Recorded session", "id", session.ID, "mode", session.Mode,
		"minutes", session.DurationMinutes, "xp", next.Stats.XP.Total)
	return RecordResult{Session: session, Stats: next.Stats, Awards: awards}, nil
}

// AwardXP grants a manual XP bonus.
func (s *Store) AwardXP(xp int, rule string) (models.Award, error) {
	if xp <= 0 {
		return models.Award{}, fmt.Errorf("xp must be positive")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	st, award := gamification.AwardXP(gamification.State{
		Sessions: s.sessions.Items(),
		Stats:    s.stats.Get(),
	}, xp, rule, s.now(), s.location())
	if err := s.stats.Set(st.Stats); err != nil {
		return models.Award{}, err
	}
	return award, nil
}

// Sessions returns the session history, newest first.
func (s *Store) Sessions() []models.Session {
	items := s.sessions.Items()
	sort.SliceStable(items, func(i, j int) bool {
		if items[i].Date != items[j].Date {
			return items[i].Date > items[j].Date
		}
		return items[i].StartTime > items[j].StartTime
	})
	return items
}

// SessionsOn returns the sessions recorded on date.
func (s *Store) SessionsOn(date string) []models.Session {
	var out []models.Session
	for _, session := range s.Sessions() {
		if session.Date == date {
			out = append(out, session)
		}
	}
	return out
}

// Stats returns the current gamification stats.
func (s *Store) Stats() models.FocusStats {
	return s.stats.Get()
}

// Today returns today's date in the preferred timezone.
func (s *Store) Today() string {
	return s.today()
}

func normalizeTags(tags []string) []string {
	var out []string
	seen := make(map[string]bool, len(tags))
	for _, tag := range tags {
		tag = strings.ToLower(strings.TrimSpace(tag))
		if tag == "" || seen[tag] {
			continue
		}
		seen[tag] = true
		out = append(out, tag)
	}
	return out
}
