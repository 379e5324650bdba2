package syncer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/julianstephens/tempo/internal/constants"
	"github.com/julianstephens/tempo/internal/storage"
)

// Document is the local replica of a per-user singleton such as preferences
type Document[T any] struct {
	r        *Replica
	kind     string
	defaults func() T

	mu    sync.RWMutex
	value T
}

// NewDocument creates a document whose value starts as defaults().
func NewDocument[T any](r *Replica, kind string, defaults func() T) *Document[T] {
	if defaults == nil {
		defaults = func() T {
			var zero T
			return zero
		}
	}
	return &Document[T]{r: r, kind: kind, defaults: defaults, value: defaults()}
}

// Kind is the document name used for the local key and the remote row.
func (d *Document[T]) Kind() string {
	return d.kind
}

// Load reads the local envelope. A missing or corrupt envelope yields the
// defaults.
func (d *Document[T]) Load() error {
	value := d.defaults()
	data, err := d.r.local.Get(d.kind)
	switch {
	case errors.Is(err, storage.ErrNotFound):
	case err != nil:
		return fmt.Errorf("failed to read %s: %w", d.kind, err)
	default:
		env := docEnvelope[T]{Value: value}
		if err := json.Unmarshal(data, &env); err != nil {
			d.r.log.Warn("Discarding unreadable local document", "kind", d.kind, "error", err)
		} else {
			value = env.Value
		}
	}

	d.mu.Lock()
	d.value = value
	d.mu.Unlock()
	return nil
}

// Get returns the current value.
func (d *Document[T]) Get() T {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.value
}

func (d *Document[T]) stage(b *Batch, v T) {
	b.staged[d.kind] = v
	b.write(d.kind, docEnvelope[T]{Version: constants.SchemaVersion, Value: v})
	b.after = append(b.after, func() {
		d.mu.Lock()
		d.value = v
		d.mu.Unlock()
	})
}

// Current returns the value as staged in b, or the committed value.
func (d *Document[T]) Current(b *Batch) T {
	if v, ok := b.staged[d.kind]; ok {
		return v.(T)
	}
	return d.Get()
}

// StageSet records v as the new value and queues it for push.
func (d *Document[T]) StageSet(b *Batch, v T) {
	d.stage(b, v)
	b.queue(d.kind, constants.OpPutDoc, d.kind, "", v)
}

// Set stores v and writes through.
func (d *Document[T]) Set(v T) error {
	b := d.r.Begin()
	d.StageSet(b, v)
	return b.Commit()
}

// Flush rewrites the local envelope without queueing anything.
func (d *Document[T]) Flush() error {
	b := d.r.Begin()
	b.user = ""
	d.stage(b, d.Get())
	return b.Commit()
}

// Merge adopts the remote value when one exists and otherwise queues the
// local value for push. It reports whether the remote value was adopted.
func (d *Document[T]) Merge(ctx context.Context, remote storage.RemoteStore) (bool, error) {
	user := d.r.User()
	if user == "" {
		return false, ErrSignedOut
	}

	body, err := remote.GetDoc(ctx, user, d.kind)
	if errors.Is(err, storage.ErrNotFound) {
		b := d.r.Begin()
		b.queue(d.kind, constants.OpPutDoc, d.kind, "", d.Get())
		return false, b.Commit()
	}
	if err != nil {
		return false, fmt.Errorf("failed to fetch remote %s: %w", d.kind, err)
	}

	value := d.defaults()
	if err := json.Unmarshal(body, &value); err != nil {
		d.r.log.Warn("Remote document unreadable, keeping local", "kind", d.kind, "error", err)
		b := d.r.Begin()
		b.queue(d.kind, constants.OpPutDoc, d.kind, "", d.Get())
		return false, b.Commit()
	}

	b := d.r.Begin()
	b.user = ""
	d.stage(b, value)
	if err := b.Commit(); err != nil {
		return false, err
	}
	d.r.log.Info("Adopted remote document", "kind", d.kind)
	return true, nil
}
