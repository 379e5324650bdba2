// Package app is the typed application store: every collection and document
// the program keeps, the operations on them, and their synchronisation.
package app

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/julianstephens/tempo/internal/constants"
	"github.com/julianstephens/tempo/internal/gamification"
	"github.com/julianstephens/tempo/internal/logger"
	"github.com/julianstephens/tempo/internal/models"
	"github.com/julianstephens/tempo/internal/retention"
	"github.com/julianstephens/tempo/internal/storage"
	"github.com/julianstephens/tempo/internal/syncer"
	"github.com/julianstephens/tempo/internal/utils"
)

var (
	// ErrNotSignedIn is returned by remote operations while signed out
	ErrNotSignedIn = syncer.ErrSignedOut
	// ErrNoRemote is returned when no remote store is configured
	ErrNoRemote = errors.New("no remote store configured")
	// ErrAmbiguousID is returned when an id prefix matches several items
	ErrAmbiguousID = errors.New("ambiguous id")
)

// Backuper snapshots the local database
type Backuper interface {
	CreateBackup() (string, error)
}

// Options configures Open
type Options struct {
	Local  storage.LocalStore
	Remote storage.RemoteStore // nil when working offline
	Backup Backuper            // snapshot taken before a sweep deletes anything
	Now    func() time.Time

	// SkipSweep disables the retention sweep normally run at open.
	SkipSweep bool
}

// Identity is the locally remembered signed-in user
type Identity struct {
	UserID     string `json:"user_id"`
	SignedInAt string `json:"signed_in_at"` // RFC3339 timestamp
}

// Store owns every collection. Mutations are serialised; reads return copies.
type Store struct {
	mu  sync.Mutex
	log *log.Logger
	now func() time.Time

	local   storage.LocalStore
	remote  storage.RemoteStore
	backup  Backuper
	replica *syncer.Replica
	drainer *syncer.Drainer

	sessions *syncer.Collection[models.Session]
	habits   *syncer.Collection[models.Habit]
	tasks    *syncer.Collection[models.Task]
	events   *syncer.Collection[models.CalendarEvent]
	prefs    *syncer.Document[models.Preferences]
	stats    *syncer.Document[models.FocusStats]

	lastCompletion map[constants.SessionMode]time.Time
}

// Open loads every collection from opts.Local, restores the signed-in
// identity, rolls the day boundary and applies retention.
func Open(opts Options) (*Store, error) {
	if opts.Local == nil {
		return nil, fmt.Errorf("a local store is required")
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	s := &Store{
		log:            logger.Component("app"),
		now:            opts.Now,
		local:          opts.Local,
		remote:         opts.Remote,
		backup:         opts.Backup,
		lastCompletion: make(map[constants.SessionMode]time.Time),
	}
	s.replica = syncer.NewReplica(opts.Local, syncer.WithClock(opts.Now))
	s.sessions = syncer.NewCollection[models.Session](s.replica, constants.CollectionSessions, s.policy)
	s.habits = syncer.NewCollection[models.Habit](s.replica, constants.CollectionHabits, s.policy)
	s.tasks = syncer.NewCollection[models.Task](s.replica, constants.CollectionTasks, s.policy)
	s.events = syncer.NewCollection[models.CalendarEvent](s.replica, constants.CollectionEvents, s.policy)
	s.prefs = syncer.NewDocument(s.replica, constants.DocPreferences, models.DefaultPreferences)
	s.stats = syncer.NewDocument(s.replica, constants.DocGamification, func() models.FocusStats {
		return models.FocusStats{
			DailyGoalMinutes: constants.DefaultDailyGoalMinutes,
			XP:               models.Experience{Level: 1},
		}
	})
	if opts.Remote != nil {
		s.drainer = syncer.NewDrainer(opts.Local, opts.Remote,
			syncer.WithDrainClock(opts.Now),
			syncer.WithGate(func() bool { return s.replica.User() != "" }))
	}

	// preferences first: the retention policy depends on the timezone
	for _, load := range []func() error{
		s.prefs.Load, s.stats.Load,
		s.sessions.Load, s.habits.Load, s.tasks.Load, s.events.Load,
	} {
		if err := load(); err != nil {
			return nil, err
		}
	}

	id, err := s.readIdentity()
	if err != nil {
		s.log.Warn("Ignoring unreadable identity", "error", err)
	}
	s.replica.SetUser(id.UserID)

	if err := s.CheckDayBoundary(); err != nil {
		return nil, err
	}
	if !opts.SkipSweep {
		if _, err := s.Sweep(); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// Close releases the remote connection. The local store belongs to the caller.
func (s *Store) Close() error {
	if s.remote != nil {
		return s.remote.Close()
	}
	return nil
}

func (s *Store) location() *time.Location {
	return utils.LocationOrLocal(s.prefs.Get().Timezone)
}

func (s *Store) policy() retention.Policy {
	return retention.Default(s.location())
}

func (s *Store) today() string {
	return utils.DateIn(s.now(), s.location())
}

// timestamp carries the preference zone offset so dates derived from it
// match the retention window.
func (s *Store) timestamp() string {
	return s.now().In(s.location()).Format(time.RFC3339)
}

func (s *Store) readIdentity() (Identity, error) {
	data, err := s.local.Get(constants.KeyIdentity)
	if errors.Is(err, storage.ErrNotFound) {
		return Identity{}, nil
	}
	if err != nil {
		return Identity{}, err
	}
	var id Identity
	if err := json.Unmarshal(data, &id); err != nil {
		return Identity{}, err
	}
	return id, nil
}

func (s *Store) writeIdentity(id Identity) error {
	if id.UserID == "" {
		return s.local.Delete(constants.KeyIdentity)
	}
	data, err := json.Marshal(id)
	if err != nil {
		return err
	}
	return s.local.Put(constants.KeyIdentity, data)
}

// CurrentUser returns the signed-in user id, or "".
func (s *Store) CurrentUser() string {
	return s.replica.User()
}

// CheckDayBoundary breaks a stale streak and rolls today's totals, persisting
// the stats only when they changed.
func (s *Store) CheckDayBoundary() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.checkDayBoundaryLocked()
}

func (s *Store) checkDayBoundaryLocked() error {
	prev := s.stats.Get()
	next := gamification.CheckDayBoundary(gamification.State{
		Sessions: s.sessions.Items(),
		Stats:    prev,
	}, s.now(), s.location()).Stats

	if next.Streak == prev.Streak && next.TodayDate == prev.TodayDate &&
		next.TodayMinutes == prev.TodayMinutes && next.TodayScore == prev.TodayScore {
		return nil
	}
	return s.stats.Set(next)
}

// resolve finds the item whose id equals ref or, failing that, is the only id
// starting with ref.
func resolve[T syncer.Entity](items []T, ref, kind string) (T, error) {
	var (
		zero    T
		match   T
		matches int
	)
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return zero, fmt.Errorf("%s id cannot be empty", kind)
	}
	for _, item := range items {
		id := item.EntityID()
		if id == ref {
			return item, nil
		}
		if strings.HasPrefix(id, ref) {
			match = item
			matches++
		}
	}
	switch matches {
	case 0:
		return zero, fmt.Errorf("%s %s: %w", kind, ref, storage.ErrNotFound)
	case 1:
		return match, nil
	default:
		return zero, fmt.Errorf("%s %s: %w", kind, ref, ErrAmbiguousID)
	}
}
