// Package syncer keeps the local replica of every collection in step with the
// remote store: write-through local mutations, a durable outbox of remote
// writes, and a remote-wins merge on sign-in.
package syncer

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/julianstephens/tempo/internal/constants"
	"github.com/julianstephens/tempo/internal/logger"
	"github.com/julianstephens/tempo/internal/models"
	"github.com/julianstephens/tempo/internal/storage"
)

// Entity is a collection item with a stable id and an optional retention date
type Entity interface {
	EntityID() string
	RetentionDate() string
}

// Replica is the local side shared by every collection and document: the
// key/value store, the outbox and the signed-in identity.
type Replica struct {
	local storage.LocalStore
	log   *log.Logger
	now   func() time.Time

	mu   sync.RWMutex
	user string
}

// ReplicaOption configures a Replica
type ReplicaOption func(*Replica)

// WithClock overrides the time source.
func WithClock(now func() time.Time) ReplicaOption {
	return func(r *Replica) { r.now = now }
}

func NewReplica(local storage.LocalStore, opts ...ReplicaOption) *Replica {
	r := &Replica{
		local: local,
		log:   logger.Component("sync"),
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// User returns the signed-in user, or "" when signed out.
func (r *Replica) User() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.user
}

// SetUser switches the identity stamped on new outbox entries.
func (r *Replica) SetUser(user string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.user = user
}

// Now returns the replica clock.
func (r *Replica) Now() time.Time {
	return r.now()
}

// Local exposes the underlying store.
func (r *Replica) Local() storage.LocalStore {
	return r.local
}

// Begin starts a batch of local writes and queued remote writes.
func (r *Replica) Begin() *Batch {
	return &Batch{
		r:      r,
		user:   r.User(),
		writes: make(map[string][]byte),
		staged: make(map[string]any),
	}
}

// Batch collects writes to several collections and documents so they reach
// the local store in one transaction. In-memory state changes only after the
// write succeeds.
type Batch struct {
	r       *Replica
	user    string
	writes  map[string][]byte
	entries []models.OutboxEntry
	staged  map[string]any
	after   []func()
	err     error
}

// Err returns the first staging error.
func (b *Batch) Err() error {
	return b.err
}

func (b *Batch) fail(err error) {
	if b.err == nil {
		b.err = err
	}
}

func (b *Batch) write(key string, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		b.fail(fmt.Errorf("failed to encode %s: %w", key, err))
		return
	}
	b.writes[key] = data
}

// queue records a remote write when someone is signed in.
func (b *Batch) queue(collection string, op constants.OutboxOp, entityID, date string, payload any) {
	if b.user == "" {
		return
	}
	var raw json.RawMessage
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			b.fail(fmt.Errorf("failed to encode %s %s: %w", collection, entityID, err))
			return
		}
		raw = data
	}
	now := b.r.now()
	b.entries = append(b.entries, models.OutboxEntry{
		ID:            uuid.NewString(),
		UserID:        b.user,
		Collection:    collection,
		Op:            op,
		EntityID:      entityID,
		Date:          date,
		Payload:       raw,
		MaxAttempts:   constants.OutboxMaxAttempts,
		NextAttemptAt: now,
		Status:        constants.OutboxPending,
		CreatedAt:     now,
	})
}

// Commit writes the staged values, queues the remote writes and then
// publishes the new in-memory state.
func (b *Batch) Commit() error {
	if b.err != nil {
		return b.err
	}
	if len(b.writes) > 0 {
		if err := b.r.local.PutMany(b.writes); err != nil {
			return fmt.Errorf("failed to write local state: %w", err)
		}
	}
	for _, fn := range b.after {
		fn()
	}

	var firstErr error
	for _, e := range b.entries {
		if err := b.r.local.Enqueue(e); err != nil {
			// the local write stands; the next merge pushes what was missed
			b.r.log.Error("Failed to queue remote write", "collection", e.Collection, "op", e.Op, "id", e.EntityID, "error", err)
			if firstErr == nil {
				firstErr = fmt.Errorf("failed to queue remote write: %w", err)
			}
		}
	}
	return firstErr
}

// envelope is the local JSON layout of a collection
type envelope[T any] struct {
	Version int `json:"version"`
	Items   []T `json:"items"`
}

// docEnvelope is the local JSON layout of a singleton document
type docEnvelope[T any] struct {
	Version int `json:"version"`
	Value   T   `json:"value"`
}
