package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/julianstephens/tempo/internal/syncer"
)

// SyncStatus is the outbox status plus the identity it drains for
type SyncStatus struct {
	syncer.Status
	User   string
	Remote bool
}

// MergeReport summarises a sign-in or resync
type MergeReport struct {
	Collections []syncer.MergeResult
	Adopted     []string // documents replaced by their remote copy
	Drained     syncer.DrainResult
}

// SignIn remembers user as the signed-in identity, reconciles every
// collection and document with the remote copy and pushes the outbox.
// Errors are returned to the caller.
func (s *Store) SignIn(ctx context.Context, user string) (MergeReport, error) {
	user = strings.TrimSpace(user)
	if user == "" {
		return MergeReport{}, fmt.Errorf("user id cannot be empty")
	}
	if s.remote == nil {
		return MergeReport{}, ErrNoRemote
	}
	if err := s.remote.Ping(ctx); err != nil {
		return MergeReport{}, fmt.Errorf("remote unavailable: %w", err)
	}

	s.mu.Lock()
	prev := s.replica.User()
	if err := s.writeIdentity(Identity{UserID: user, SignedInAt: s.timestamp()}); err != nil {
		s.mu.Unlock()
		return MergeReport{}, fmt.Errorf("failed to save identity: %w", err)
	}
	s.replica.SetUser(user)
	s.mu.Unlock()

	if prev != "" && prev != user {
		s.log.Info("Switched user", "from", prev, "to", user)
	} else {
		s.log.Info("Signed in", "user", user)
	}
	return s.reconcile(ctx)
}

// SignOut forgets the identity. Local data and queued writes are kept; the
// queue drains again on the next sign-in.
func (s *Store) SignOut() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.writeIdentity(Identity{}); err != nil {
		return fmt.Errorf("failed to clear identity: %w", err)
	}
	s.replica.SetUser("")
	s.log.Info("Signed out")
	return nil
}

// Resync repeats the sign-in reconciliation for the current user.
func (s *Store) Resync(ctx context.Context) (MergeReport, error) {
	if s.remote == nil {
		return MergeReport{}, ErrNoRemote
	}
	if s.CurrentUser() == "" {
		return MergeReport{}, ErrNotSignedIn
	}
	return s.reconcile(ctx)
}

func (s *Store) reconcile(ctx context.Context) (MergeReport, error) {
	s.mu.Lock()
	report, err := s.mergeAll(ctx)
	if err == nil {
		err = s.checkDayBoundaryLocked()
	}
	s.mu.Unlock()
	if err != nil {
		return report, err
	}

	drained, err := s.drainer.Drain(ctx)
	report.Drained = drained
	if err != nil {
		return report, fmt.Errorf("failed to push local changes: %w", err)
	}
	return report, nil
}

// mergeAll fetches and merges every collection and document concurrently.
func (s *Store) mergeAll(ctx context.Context) (MergeReport, error) {
	results := make([]syncer.MergeResult, 4)
	adopted := make([]bool, 2)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) { results[0], err = s.sessions.Merge(gctx, s.remote); return })
	g.Go(func() (err error) { results[1], err = s.habits.Merge(gctx, s.remote); return })
	g.Go(func() (err error) { results[2], err = s.tasks.Merge(gctx, s.remote); return })
	g.Go(func() (err error) { results[3], err = s.events.Merge(gctx, s.remote); return })
	g.Go(func() (err error) { adopted[0], err = s.prefs.Merge(gctx, s.remote); return })
	g.Go(func() (err error) { adopted[1], err = s.stats.Merge(gctx, s.remote); return })
	if err := g.Wait(); err != nil {
		return MergeReport{}, fmt.Errorf("sync failed: %w", err)
	}

	report := MergeReport{Collections: results}
	if adopted[0] {
		report.Adopted = append(report.Adopted, s.prefs.Kind())
	}
	if adopted[1] {
		report.Adopted = append(report.Adopted, s.stats.Kind())
	}
	return report, nil
}

// SyncStatus reports the outbox state. Without a remote the queue is
// described as it sits on disk.
func (s *Store) SyncStatus() (SyncStatus, error) {
	var (
		st  syncer.Status
		err error
	)
	if s.drainer != nil {
		st, err = s.drainer.Status()
	} else {
		st, err = syncer.OfflineStatus(s.local)
	}
	if err != nil {
		return SyncStatus{}, fmt.Errorf("failed to read outbox: %w", err)
	}
	return SyncStatus{Status: st, User: s.CurrentUser(), Remote: s.remote != nil}, nil
}

// Drain pushes due outbox entries now.
func (s *Store) Drain(ctx context.Context) (syncer.DrainResult, error) {
	if s.drainer == nil {
		return syncer.DrainResult{}, ErrNoRemote
	}
	if s.CurrentUser() == "" {
		return syncer.DrainResult{}, ErrNotSignedIn
	}
	return s.drainer.Drain(ctx)
}

// RetryDead requeues dead outbox entries.
func (s *Store) RetryDead() (int, error) {
	if s.drainer != nil {
		return s.drainer.RequeueDead()
	}
	return s.local.RequeueDead(s.now())
}

// RunSync drains the outbox in the background until ctx is cancelled. It
// returns immediately when no remote is configured.
func (s *Store) RunSync(ctx context.Context, interval time.Duration) {
	if s.drainer == nil {
		return
	}
	s.drainer.Run(ctx, interval)
}
