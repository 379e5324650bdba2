package storage

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/julianstephens/tempo/internal/models"
)

// ErrNotFound is returned when a key, item or document does not exist
var ErrNotFound = errors.New("not found")

// Outbox persists queued remote writes
type Outbox interface {
	// Enqueue records e. Pending and dead entries for the same user,
	// collection and entity are replaced so only the latest write is replayed.
	Enqueue(e models.OutboxEntry) error
	// DueEntries returns up to limit pending entries whose next attempt is at
	// or before now, oldest first.
	DueEntries(now time.Time, limit int) ([]models.OutboxEntry, error)
	CompleteEntry(id string) error
	// FailEntry records a failed attempt. dead moves the entry out of the
	// pending queue.
	FailEntry(id string, attempts int, next time.Time, dead bool, lastErr string) error
	CountEntries() (pending, dead int, err error)
	// RequeueDead returns dead entries to the pending queue with their
	// attempts reset.
	RequeueDead(now time.Time) (int, error)
	// ClearOutbox drops every entry belonging to userID.
	ClearOutbox(userID string) error
}

// LocalStore is the on-device key/value store holding one JSON envelope per
// collection or document, plus the outbox
type LocalStore interface {
	// Lifecycle
	Init() error
	Load() error
	Close() error
	GetConfigPath() string

	Get(key string) ([]byte, error)
	Put(key string, value []byte) error
	// PutMany writes every pair atomically.
	PutMany(values map[string][]byte) error
	Delete(key string) error
	Keys() ([]string, error)

	Outbox
}

// RemoteItem is one collection row as stored remotely
type RemoteItem struct {
	ID         string
	Date       string
	Body       json.RawMessage
	LastSynced time.Time
}

// RemoteStore is the per-user remote backend. Every write stamps last_synced.
type RemoteStore interface {
	Ping(ctx context.Context) error
	Close() error

	ListItems(ctx context.Context, userID, collection string) ([]RemoteItem, error)
	PutItem(ctx context.Context, userID, collection string, item RemoteItem) error
	DeleteItem(ctx context.Context, userID, collection, id string) error
	// SweepItems deletes items dated before cutoff and returns how many went.
	SweepItems(ctx context.Context, userID, collection, cutoff string) (int64, error)

	GetDoc(ctx context.Context, userID, kind string) (json.RawMessage, error)
	PutDoc(ctx context.Context, userID, kind string, body json.RawMessage) error
}
