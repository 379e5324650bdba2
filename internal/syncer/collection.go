package syncer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/julianstephens/tempo/internal/constants"
	"github.com/julianstephens/tempo/internal/retention"
	"github.com/julianstephens/tempo/internal/storage"
)

// ErrSignedOut is returned by remote operations when no user is signed in
var ErrSignedOut = errors.New("not signed in")

// PolicyFunc yields the retention policy in force. It is evaluated on every
// use so a timezone change applies immediately.
type PolicyFunc func() retention.Policy

// Collection is the local replica of one remote collection of T
type Collection[T Entity] struct {
	r      *Replica
	name   string
	policy PolicyFunc

	mu    sync.RWMutex
	items []T
}

func NewCollection[T Entity](r *Replica, name string, policy PolicyFunc) *Collection[T] {
	if policy == nil {
		policy = func() retention.Policy { return retention.Default(time.Local) }
	}
	return &Collection[T]{r: r, name: name, policy: policy}
}

// Name is the collection name used for the local key and the remote rows.
func (c *Collection[T]) Name() string {
	return c.name
}

// Load reads the local envelope and applies retention. A missing or corrupt
// envelope yields an empty collection.
func (c *Collection[T]) Load() error {
	items, err := c.read()
	if err != nil {
		return err
	}
	kept, dropped := retention.Filter(c.policy(), items, c.r.now())
	if dropped > 0 {
		c.r.log.Debug("Dropped expired items on load", "collection", c.name, "count", dropped)
	}

	c.mu.Lock()
	c.items = kept
	c.mu.Unlock()
	return nil
}

func (c *Collection[T]) read() ([]T, error) {
	data, err := c.r.local.Get(c.name)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", c.name, err)
	}

	var env envelope[T]
	if err := json.Unmarshal(data, &env); err != nil {
		c.r.log.Warn("Discarding unreadable local collection", "collection", c.name, "error", err)
		return nil, nil
	}
	return env.Items, nil
}

// Items returns a copy of the current items in order.
func (c *Collection[T]) Items() []T {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]T(nil), c.items...)
}

// Get returns the item with id.
func (c *Collection[T]) Get(id string) (T, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, item := range c.items {
		if item.EntityID() == id {
			return item, true
		}
	}
	var zero T
	return zero, false
}

// current returns the items as staged in b, or the committed items.
func (c *Collection[T]) current(b *Batch) []T {
	if v, ok := b.staged[c.name]; ok {
		return append([]T(nil), v.([]T)...)
	}
	return c.Items()
}

// stage records next as the new contents of the collection in b.
func (c *Collection[T]) stage(b *Batch, next []T) {
	b.staged[c.name] = next
	b.write(c.name, envelope[T]{Version: constants.SchemaVersion, Items: next})
	b.after = append(b.after, func() {
		c.mu.Lock()
		c.items = next
		c.mu.Unlock()
	})
}

// StageUpsert adds items, replacing any with the same id in place.
func (c *Collection[T]) StageUpsert(b *Batch, items ...T) {
	next := c.current(b)
	for _, item := range items {
		replaced := false
		for i := range next {
			if next[i].EntityID() == item.EntityID() {
				next[i] = item
				replaced = true
				break
			}
		}
		if !replaced {
			next = append(next, item)
		}
		b.queue(c.name, constants.OpUpsert, item.EntityID(), item.RetentionDate(), item)
	}
	c.stage(b, next)
}

// StageDelete removes the items with the given ids.
func (c *Collection[T]) StageDelete(b *Batch, ids ...string) {
	drop := make(map[string]bool, len(ids))
	for _, id := range ids {
		drop[id] = true
		b.queue(c.name, constants.OpDelete, id, "", nil)
	}
	cur := c.current(b)
	next := cur[:0]
	for _, item := range cur {
		if !drop[item.EntityID()] {
			next = append(next, item)
		}
	}
	c.stage(b, next)
}

// StageReplace swaps the whole list, queueing upserts for every item and
// deletes for items that disappeared.
func (c *Collection[T]) StageReplace(b *Batch, items []T) {
	keep := make(map[string]bool, len(items))
	for _, item := range items {
		keep[item.EntityID()] = true
		b.queue(c.name, constants.OpUpsert, item.EntityID(), item.RetentionDate(), item)
	}
	for _, old := range c.current(b) {
		if !keep[old.EntityID()] {
			b.queue(c.name, constants.OpDelete, old.EntityID(), "", nil)
		}
	}
	c.stage(b, append([]T(nil), items...))
}

// StageSweep drops expired items locally and queues the same sweep remotely.
// It returns how many local items were dropped.
func (c *Collection[T]) StageSweep(b *Batch, now time.Time) int {
	p := c.policy()
	kept, dropped := retention.Filter(p, c.current(b), now)
	if dropped > 0 {
		c.stage(b, kept)
	}
	b.queue(c.name, constants.OpSweep, "", p.Cutoff(now), nil)
	return dropped
}

// Upsert adds or replaces items and writes through.
func (c *Collection[T]) Upsert(items ...T) error {
	b := c.r.Begin()
	c.StageUpsert(b, items...)
	return b.Commit()
}

// Update applies fn to a copy of the item with id and stores the result.
func (c *Collection[T]) Update(id string, fn func(*T) error) (T, error) {
	item, ok := c.Get(id)
	if !ok {
		var zero T
		return zero, fmt.Errorf("%s item %s: %w", c.name, id, storage.ErrNotFound)
	}
	if err := fn(&item); err != nil {
		var zero T
		return zero, err
	}
	return item, c.Upsert(item)
}

// Delete removes the item with id. Deleting a missing id is not an error.
func (c *Collection[T]) Delete(id string) error {
	b := c.r.Begin()
	c.StageDelete(b, id)
	return b.Commit()
}

// Replace swaps the whole list.
func (c *Collection[T]) Replace(items []T) error {
	b := c.r.Begin()
	c.StageReplace(b, items)
	return b.Commit()
}

// Sweep applies retention now.
func (c *Collection[T]) Sweep() (int, error) {
	b := c.r.Begin()
	n := c.StageSweep(b, c.r.now())
	return n, b.Commit()
}

// Flush rewrites the local envelope from memory without queueing anything.
func (c *Collection[T]) Flush() error {
	b := c.r.Begin()
	b.user = ""
	c.stage(b, c.Items())
	return b.Commit()
}

// Merge fetches the remote list and reconciles it with the local one: remote
// items win, local-only items are kept after them and queued for push. The
// merged list is written locally.
func (c *Collection[T]) Merge(ctx context.Context, remote storage.RemoteStore) (MergeResult, error) {
	user := c.r.User()
	if user == "" {
		return MergeResult{}, ErrSignedOut
	}

	rows, err := remote.ListItems(ctx, user, c.name)
	if err != nil {
		return MergeResult{}, fmt.Errorf("failed to fetch remote %s: %w", c.name, err)
	}

	remoteItems := make([]T, 0, len(rows))
	for _, row := range rows {
		var item T
		if err := json.Unmarshal(row.Body, &item); err != nil {
			c.r.log.Warn("Skipping unreadable remote item", "collection", c.name, "id", row.ID, "error", err)
			continue
		}
		remoteItems = append(remoteItems, item)
	}

	now := c.r.now()
	merged, push := Merge(c.Items(), remoteItems)
	merged, _ = retention.Filter(c.policy(), merged, now)
	push, _ = retention.Filter(c.policy(), push, now)

	b := c.r.Begin()
	if b.user != user {
		return MergeResult{}, fmt.Errorf("identity changed during merge of %s", c.name)
	}
	c.stage(b, merged)
	for _, item := range push {
		b.queue(c.name, constants.OpUpsert, item.EntityID(), item.RetentionDate(), item)
	}
	if err := b.Commit(); err != nil {
		return MergeResult{}, err
	}

	res := MergeResult{Collection: c.name, Remote: len(remoteItems), Pushed: len(push), Total: len(merged)}
	c.r.log.Info("Merged collection", "collection", c.name, "remote", res.Remote, "pushed", res.Pushed, "total", res.Total)
	return res, nil
}

// MergeResult summarises one collection merge
type MergeResult struct {
	Collection string
	Remote     int
	Pushed     int
	Total      int
}

// Merge combines local and remote lists by id. The result holds every remote
// item in remote order followed by the local items the remote lacks, in local
// order; push lists those local-only items. Remote wins on id collisions.
func Merge[T Entity](local, remote []T) (merged []T, push []T) {
	seen := make(map[string]bool, len(remote))
	merged = make([]T, 0, len(remote)+len(local))
	for _, item := range remote {
		if seen[item.EntityID()] {
			continue
		}
		seen[item.EntityID()] = true
		merged = append(merged, item)
	}
	for _, item := range local {
		if seen[item.EntityID()] {
			continue
		}
		seen[item.EntityID()] = true
		merged = append(merged, item)
		push = append(push, item)
	}
	return merged, push
}
