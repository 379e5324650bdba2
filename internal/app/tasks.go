package app

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/julianstephens/tempo/internal/models"
)

// AddTask creates an open task
func (s *Store) AddTask(text string) (models.Task, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return models.Task{}, fmt.Errorf("task text cannot be empty")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	t := models.Task{ID: uuid.New().String(), Text: text}
	return t, s.tasks.Upsert(t)
}

// StartTask starts the timer of task ref. Any other running task is stopped
// in the same write.
func (s *Store) StartTask(ref string) (models.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, err := s.liveTask(ref)
	if err != nil {
		return models.Task{}, err
	}
	if t.Completed {
		return models.Task{}, fmt.Errorf("task %q is already completed", t.Text)
	}
	if t.IsActive() {
		return t, nil
	}

	now := s.now()
	b := s.replica.Begin()
	for _, other := range s.tasks.Items() {
		if other.ID != t.ID && other.IsActive() {
			s.tasks.StageUpsert(b, stopped(other, now))
		}
	}
	started := now.UnixMilli()
	t.LastActiveStart = &started
	s.tasks.StageUpsert(b, t)
	return t, b.Commit()
}

// StopTask stops the timer of task ref, folding the running interval into
// its time spent.
func (s *Store) StopTask(ref string) (models.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, err := s.liveTask(ref)
	if err != nil {
		return models.Task{}, err
	}
	if !t.IsActive() {
		return t, nil
	}
	t = stopped(t, s.now())
	return t, s.tasks.Upsert(t)
}

// CompleteTask marks task ref done, or reopens it when done is false.
// Completing a running task stops it.
func (s *Store) CompleteTask(ref string, done bool) (models.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, err := s.liveTask(ref)
	if err != nil {
		return models.Task{}, err
	}
	if done {
		t = stopped(t, s.now())
		ts := s.timestamp()
		t.Completed = true
		t.CompletedAt = &ts
	} else {
		t.Completed = false
		t.CompletedAt = nil
	}
	return t, s.tasks.Upsert(t)
}

// DeleteTask tombstones task ref. Tombstones are kept until retention
// removes them so the deletion reaches other devices.
func (s *Store) DeleteTask(ref string) (models.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, err := s.liveTask(ref)
	if err != nil {
		return models.Task{}, err
	}
	t = stopped(t, s.now())
	ts := s.timestamp()
	t.IsDeleted = true
	t.DeletedAt = &ts
	return t, s.tasks.Upsert(t)
}

// RestoreTask clears the tombstone of task ref
func (s *Store) RestoreTask(ref string) (models.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var deleted []models.Task
	for _, t := range s.tasks.Items() {
		if t.IsDeleted {
			deleted = append(deleted, t)
		}
	}
	t, err := resolve(deleted, ref, "deleted task")
	if err != nil {
		return models.Task{}, err
	}
	t.IsDeleted = false
	t.DeletedAt = nil
	return t, s.tasks.Upsert(t)
}

// Tasks returns open tasks first, then completed ones. Tombstones are
// included only when includeDeleted is set.
func (s *Store) Tasks(includeDeleted bool) []models.Task {
	var out []models.Task
	for _, t := range s.tasks.Items() {
		if t.IsDeleted && !includeDeleted {
			continue
		}
		out = append(out, t)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return !out[i].Completed && out[j].Completed
	})
	return out
}

// ActiveTask returns the task whose timer is running, if any.
func (s *Store) ActiveTask() (models.Task, bool) {
	for _, t := range s.tasks.Items() {
		if t.IsActive() && !t.IsDeleted {
			return t, true
		}
	}
	return models.Task{}, false
}

func (s *Store) liveTask(ref string) (models.Task, error) {
	return resolve(s.Tasks(false), ref, "task")
}

func stopped(t models.Task, now time.Time) models.Task {
	if t.LastActiveStart == nil {
		return t
	}
	t.TimeSpent = t.ElapsedAt(now).Milliseconds()
	t.LastActiveStart = nil
	return t
}
