// Package memory provides an in-process RemoteStore for tests and offline use.
package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/julianstephens/tempo/internal/storage"
)

type itemKey struct {
	user, collection string
}

type docKey struct {
	user, kind string
}

// Remote is a RemoteStore kept in memory. FailNext makes the following
// calls fail, which lets tests exercise retry paths.
type Remote struct {
	mu    sync.Mutex
	items map[itemKey]map[string]storage.RemoteItem
	docs  map[docKey]json.RawMessage
	fail  int
	err   error
	calls int
	now   func() time.Time
}

func NewRemote() *Remote {
	return &Remote{
		items: make(map[itemKey]map[string]storage.RemoteItem),
		docs:  make(map[docKey]json.RawMessage),
		now:   time.Now,
	}
}

// FailNext makes the next n calls return err.
func (r *Remote) FailNext(n int, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.fail = n
	r.err = err
}

// Calls reports how many operations have been attempted.
func (r *Remote) Calls() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls
}

// check counts the call and consumes an injected failure. Caller holds mu.
func (r *Remote) check(ctx context.Context) error {
	r.calls++
	if err := ctx.Err(); err != nil {
		return err
	}
	if r.fail > 0 {
		r.fail--
		if r.err != nil {
			return r.err
		}
		return fmt.Errorf("remote unavailable")
	}
	return nil
}

func (r *Remote) Ping(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.check(ctx)
}

func (r *Remote) Close() error { return nil }

func (r *Remote) ListItems(ctx context.Context, userID, collection string) ([]storage.RemoteItem, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.check(ctx); err != nil {
		return nil, err
	}

	bucket := r.items[itemKey{userID, collection}]
	out := make([]storage.RemoteItem, 0, len(bucket))
	for _, item := range bucket {
		item.Body = append(json.RawMessage(nil), item.Body...)
		out = append(out, item)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Date != out[j].Date {
			return out[i].Date < out[j].Date
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (r *Remote) PutItem(ctx context.Context, userID, collection string, item storage.RemoteItem) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.check(ctx); err != nil {
		return err
	}
	if item.ID == "" {
		return fmt.Errorf("cannot store %s item without an id", collection)
	}

	k := itemKey{userID, collection}
	if r.items[k] == nil {
		r.items[k] = make(map[string]storage.RemoteItem)
	}
	item.Body = append(json.RawMessage(nil), item.Body...)
	item.LastSynced = r.now()
	r.items[k][item.ID] = item
	return nil
}

func (r *Remote) DeleteItem(ctx context.Context, userID, collection, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.check(ctx); err != nil {
		return err
	}
	delete(r.items[itemKey{userID, collection}], id)
	return nil
}

func (r *Remote) SweepItems(ctx context.Context, userID, collection, cutoff string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.check(ctx); err != nil {
		return 0, err
	}

	var n int64
	bucket := r.items[itemKey{userID, collection}]
	for id, item := range bucket {
		if item.Date != "" && item.Date < cutoff {
			delete(bucket, id)
			n++
		}
	}
	return n, nil
}

func (r *Remote) GetDoc(ctx context.Context, userID, kind string) (json.RawMessage, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.check(ctx); err != nil {
		return nil, err
	}
	body, ok := r.docs[docKey{userID, kind}]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return append(json.RawMessage(nil), body...), nil
}

func (r *Remote) PutDoc(ctx context.Context, userID, kind string, body json.RawMessage) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.check(ctx); err != nil {
		return err
	}
	r.docs[docKey{userID, kind}] = append(json.RawMessage(nil), body...)
	return nil
}
