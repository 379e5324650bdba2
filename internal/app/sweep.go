package app

import (
	"github.com/julianstephens/tempo/internal/constants"
	"github.com/julianstephens/tempo/internal/retention"
)

// SweepResult reports what a retention sweep removed locally
type SweepResult struct {
	Cutoff  string
	Removed map[string]int
	Backup  string // snapshot taken before removing anything, if any
}

// Total is the number of local items removed.
func (r SweepResult) Total() int {
	n := 0
	for _, c := range r.Removed {
		n += c
	}
	return n
}

// Sweep applies retention to sessions, tasks and events, locally and, when
// signed in, remotely through the outbox. A backup is taken first when the
// sweep would remove local data. Habits are never swept.
func (s *Store) Sweep() (SweepResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	p := s.policy()
	res := SweepResult{Cutoff: p.Cutoff(now), Removed: make(map[string]int)}

	_, expiredSessions := retention.Filter(p, s.sessions.Items(), now)
	_, expiredTasks := retention.Filter(p, s.tasks.Items(), now)
	_, expiredEvents := retention.Filter(p, s.events.Items(), now)
	if expiredSessions+expiredTasks+expiredEvents > 0 && s.backup != nil {
		path, err := s.backup.CreateBackup()
		if err != nil {
			s.log.Warn("Backup before sweep failed", "error", err)
		} else {
			res.Backup = path
		}
	}

	b := s.replica.Begin()
	res.Removed[constants.CollectionSessions] = s.sessions.StageSweep(b, now)
	res.Removed[constants.CollectionTasks] = s.tasks.StageSweep(b, now)
	res.Removed[constants.CollectionEvents] = s.events.StageSweep(b, now)
	if err := b.Commit(); err != nil {
		return SweepResult{}, err
	}

	if n := res.Total(); n > 0 {
		s.log.Info("Retention sweep removed items", "count", n, "cutoff", res.Cutoff)
	}
	return res, nil
}
