package storage

import (
	"sort"
	"sync"
	"time"

	"github.com/julianstephens/tempo/internal/constants"
	"github.com/julianstephens/tempo/internal/models"
)

// MemoryOutbox is a process-local Outbox for stores without durable queue
// support. Entries are lost when the process exits.
type MemoryOutbox struct {
	mu      sync.Mutex
	seq     int64
	entries map[string]*memEntry
}

type memEntry struct {
	seq   int64
	entry models.OutboxEntry
}

func NewMemoryOutbox() *MemoryOutbox {
	return &MemoryOutbox{entries: make(map[string]*memEntry)}
}

func (o *MemoryOutbox) Enqueue(e models.OutboxEntry) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	for id, existing := range o.entries {
		if sameTarget(existing.entry, e) {
			delete(o.entries, id)
		}
	}
	if e.Status == "" {
		e.Status = constants.OutboxPending
	}
	o.seq++
	o.entries[e.ID] = &memEntry{seq: o.seq, entry: e}
	return nil
}

func (o *MemoryOutbox) DueEntries(now time.Time, limit int) ([]models.OutboxEntry, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	var due []*memEntry
	for _, m := range o.entries {
		if m.entry.Status == constants.OutboxPending && !m.entry.NextAttemptAt.After(now) {
			due = append(due, m)
		}
	}
	sort.Slice(due, func(i, j int) bool { return due[i].seq < due[j].seq })
	if limit > 0 && len(due) > limit {
		due = due[:limit]
	}

	out := make([]models.OutboxEntry, len(due))
	for i, m := range due {
		out[i] = m.entry
	}
	return out, nil
}

func (o *MemoryOutbox) CompleteEntry(id string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	delete(o.entries, id)
	return nil
}

func (o *MemoryOutbox) FailEntry(id string, attempts int, next time.Time, dead bool, lastErr string) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	m, ok := o.entries[id]
	if !ok {
		return ErrNotFound
	}
	m.entry.Attempts = attempts
	m.entry.NextAttemptAt = next
	m.entry.LastError = lastErr
	if dead {
		m.entry.Status = constants.OutboxDead
	}
	return nil
}

func (o *MemoryOutbox) CountEntries() (int, int, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	pending, dead := 0, 0
	for _, m := range o.entries {
		if m.entry.Status == constants.OutboxDead {
			dead++
		} else {
			pending++
		}
	}
	return pending, dead, nil
}

func (o *MemoryOutbox) RequeueDead(now time.Time) (int, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	n := 0
	for _, m := range o.entries {
		if m.entry.Status == constants.OutboxDead {
			m.entry.Status = constants.OutboxPending
			m.entry.Attempts = 0
			m.entry.NextAttemptAt = now
			n++
		}
	}
	return n, nil
}

func (o *MemoryOutbox) ClearOutbox(userID string) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	for id, m := range o.entries {
		if m.entry.UserID == userID {
			delete(o.entries, id)
		}
	}
	return nil
}

func sameTarget(a, b models.OutboxEntry) bool {
	return a.UserID == b.UserID && a.Collection == b.Collection && a.EntityID == b.EntityID
}
