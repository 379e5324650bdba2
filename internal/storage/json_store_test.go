package storage

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/julianstephens/tempo/internal/constants"
	"github.com/julianstephens/tempo/internal/models"
)

func setupTestJSONStore(t *testing.T) *JSONStore {
	t.Helper()
	store := NewJSONStore(filepath.Join(t.TempDir(), "tempo.json"))
	if err := store.Init(); err != nil {
		t.Fatalf("failed to initialize test store: %v", err)
	}
	return store
}

func TestJSONStoreRoundTrip(t *testing.T) {
	store := setupTestJSONStore(t)

	if err := store.Put("sessions", []byte(`{"items":[]}`)); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	if err := store.PutMany(map[string][]byte{
		"habits": []byte(`{"items":[{"id":"h1"}]}`),
		"tasks":  []byte(`{"items":[]}`),
	}); err != nil {
		t.Fatalf("PutMany failed: %v", err)
	}

	reopened := NewJSONStore(store.GetConfigPath())
	if err := reopened.Load(); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	got, err := reopened.Get("habits")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if string(got) != `{"items":[{"id":"h1"}]}` {
		t.Errorf("Get returned %s", got)
	}

	keys, err := reopened.Keys()
	if err != nil {
		t.Fatalf("Keys failed: %v", err)
	}
	if diff := cmp.Diff([]string{"habits", "sessions", "tasks"}, keys); diff != "" {
		t.Errorf("Keys mismatch (-want +got):\n%s", diff)
	}
}

func TestJSONStoreMissingKey(t *testing.T) {
	store := setupTestJSONStore(t)
	if _, err := store.Get("nope"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if err := store.Delete("nope"); err != nil {
		t.Errorf("Delete of missing key failed: %v", err)
	}
}

func TestJSONStoreRejectsInvalidJSON(t *testing.T) {
	store := setupTestJSONStore(t)
	err := store.PutMany(map[string][]byte{"good": []byte(`{}`), "bad": []byte(`{`)})
	if err == nil {
		t.Fatal("expected error for invalid JSON")
	}
	if _, err := store.Get("good"); !errors.Is(err, ErrNotFound) {
		t.Error("PutMany partially applied a failing batch")
	}
}

func TestJSONStoreLoadUninitialized(t *testing.T) {
	store := NewJSONStore(filepath.Join(t.TempDir(), "missing.json"))
	if err := store.Load(); err == nil {
		t.Error("expected error loading uninitialized store")
	}
}

func TestJSONStoreLoadCorrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tempo.json")
	if err := os.WriteFile(path, []byte("not json"), 0600); err != nil {
		t.Fatal(err)
	}
	if err := NewJSONStore(path).Load(); err == nil {
		t.Error("expected error loading corrupt store")
	}
}

func TestMemoryOutboxLifecycle(t *testing.T) {
	o := NewMemoryOutbox()
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	entry := func(id, entity string) models.OutboxEntry {
		return models.OutboxEntry{
			ID: id, UserID: "u1", Collection: constants.CollectionSessions,
			Op: constants.OpUpsert, EntityID: entity, MaxAttempts: 8, NextAttemptAt: now,
		}
	}
	for _, e := range []models.OutboxEntry{entry("1", "s1"), entry("2", "s2"), entry("3", "s1")} {
		if err := o.Enqueue(e); err != nil {
			t.Fatalf("Enqueue failed: %v", err)
		}
	}

	due, err := o.DueEntries(now, 10)
	if err != nil {
		t.Fatalf("DueEntries failed: %v", err)
	}
	var ids []string
	for _, e := range due {
		ids = append(ids, e.ID)
	}
	// the second write to s1 replaces the first and moves to the back
	if diff := cmp.Diff([]string{"2", "3"}, ids); diff != "" {
		t.Errorf("due ids mismatch (-want +got):\n%s", diff)
	}

	if err := o.FailEntry("2", 1, now.Add(time.Minute), false, "boom"); err != nil {
		t.Fatalf("FailEntry failed: %v", err)
	}
	due, _ = o.DueEntries(now, 10)
	if len(due) != 1 || due[0].ID != "3" {
		t.Errorf("backed-off entry still due: %+v", due)
	}

	if err := o.FailEntry("3", 8, now, true, "gone"); err != nil {
		t.Fatalf("FailEntry failed: %v", err)
	}
	pending, dead, _ := o.CountEntries()
	if pending != 1 || dead != 1 {
		t.Errorf("counts = %d pending / %d dead, want 1/1", pending, dead)
	}

	n, _ := o.RequeueDead(now)
	if n != 1 {
		t.Errorf("RequeueDead = %d, want 1", n)
	}
	if err := o.CompleteEntry("3"); err != nil {
		t.Fatalf("CompleteEntry failed: %v", err)
	}
	if err := o.ClearOutbox("u1"); err != nil {
		t.Fatalf("ClearOutbox failed: %v", err)
	}
	pending, dead, _ = o.CountEntries()
	if pending != 0 || dead != 0 {
		t.Errorf("outbox not cleared: %d/%d", pending, dead)
	}
	if err := o.FailEntry("missing", 1, now, false, ""); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestMemoryOutboxDeleteReplacesDeadUpsert(t *testing.T) {
	o := NewMemoryOutbox()
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	upsert := models.OutboxEntry{
		ID: "1", UserID: "u1", Collection: constants.CollectionHabits,
		Op: constants.OpUpsert, EntityID: "h1", MaxAttempts: 8, NextAttemptAt: now,
	}
	if err := o.Enqueue(upsert); err != nil {
		t.Fatalf("Enqueue failed: %v", err)
	}
	if err := o.FailEntry("1", 8, now, true, "rejected"); err != nil {
		t.Fatalf("FailEntry failed: %v", err)
	}

	del := upsert
	del.ID, del.Op = "2", constants.OpDelete
	if err := o.Enqueue(del); err != nil {
		t.Fatalf("Enqueue failed: %v", err)
	}
	if err := o.CompleteEntry("2"); err != nil {
		t.Fatalf("CompleteEntry failed: %v", err)
	}

	if n, _ := o.RequeueDead(now); n != 0 {
		t.Errorf("RequeueDead = %d, want 0", n)
	}
	if due, _ := o.DueEntries(now, 10); len(due) != 0 {
		t.Errorf("upsert replayed after delete: %+v", due)
	}
}
