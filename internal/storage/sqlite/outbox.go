package sqlite

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/julianstephens/tempo/internal/constants"
	"github.com/julianstephens/tempo/internal/models"
	"github.com/julianstephens/tempo/internal/storage"
)

// Enqueue stores e, replacing any pending or dead entry that targets the
// same entity.
func (s *Store) Enqueue(e models.OutboxEntry) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec(`
		DELETE FROM outbox
		WHERE user_id = ? AND collection = ? AND entity_id = ?`,
		e.UserID, e.Collection, e.EntityID); err != nil {
		return fmt.Errorf("failed to coalesce outbox entry: %w", err)
	}

	status := e.Status
	if status == "" {
		status = constants.OutboxPending
	}
	createdAt := e.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}
	if _, err := tx.Exec(`
		INSERT INTO outbox (id, user_id, collection, op, entity_id, date, payload,
			attempts, max_attempts, next_attempt_at, status, last_error, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.UserID, e.Collection, string(e.Op), e.EntityID, e.Date, []byte(e.Payload),
		e.Attempts, e.MaxAttempts, e.NextAttemptAt.UnixMilli(), string(status), e.LastError,
		createdAt.UnixMilli()); err != nil {
		return fmt.Errorf("failed to enqueue outbox entry: %w", err)
	}
	return tx.Commit()
}

func (s *Store) DueEntries(now time.Time, limit int) ([]models.OutboxEntry, error) {
	if limit <= 0 {
		limit = constants.OutboxBatchSize
	}
	rows, err := s.db.Query(`
		SELECT id, user_id, collection, op, entity_id, date, payload,
			attempts, max_attempts, next_attempt_at, status, last_error, created_at
		FROM outbox
		WHERE status = ? AND next_attempt_at <= ?
		ORDER BY rowid
		LIMIT ?`, constants.OutboxPending, now.UnixMilli(), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query outbox: %w", err)
	}
	defer rows.Close()

	var entries []models.OutboxEntry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func scanEntry(rows *sql.Rows) (models.OutboxEntry, error) {
	var (
		e                   models.OutboxEntry
		op, status          string
		payload             []byte
		nextAttempt, create int64
	)
	if err := rows.Scan(&e.ID, &e.UserID, &e.Collection, &op, &e.EntityID, &e.Date, &payload,
		&e.Attempts, &e.MaxAttempts, &nextAttempt, &status, &e.LastError, &create); err != nil {
		return e, fmt.Errorf("failed to scan outbox entry: %w", err)
	}
	e.Op = constants.OutboxOp(op)
	e.Status = constants.OutboxStatus(status)
	if len(payload) > 0 {
		e.Payload = payload
	}
	e.NextAttemptAt = time.UnixMilli(nextAttempt)
	e.CreatedAt = time.UnixMilli(create)
	return e, nil
}

func (s *Store) CompleteEntry(id string) error {
	if _, err := s.db.Exec("DELETE FROM outbox WHERE id = ?", id); err != nil {
		return fmt.Errorf("failed to complete outbox entry %s: %w", id, err)
	}
	return nil
}

func (s *Store) FailEntry(id string, attempts int, next time.Time, dead bool, lastErr string) error {
	status := constants.OutboxPending
	if dead {
		status = constants.OutboxDead
	}
	res, err := s.db.Exec(`
		UPDATE outbox SET attempts = ?, next_attempt_at = ?, status = ?, last_error = ?
		WHERE id = ?`, attempts, next.UnixMilli(), string(status), lastErr, id)
	if err != nil {
		return fmt.Errorf("failed to update outbox entry %s: %w", id, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func (s *Store) CountEntries() (int, int, error) {
	var pending, dead int
	err := s.db.QueryRow(`
		SELECT
			COALESCE(SUM(CASE WHEN status = ? THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN status = ? THEN 1 ELSE 0 END), 0)
		FROM outbox`, constants.OutboxPending, constants.OutboxDead).Scan(&pending, &dead)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to count outbox entries: %w", err)
	}
	return pending, dead, nil
}

func (s *Store) RequeueDead(now time.Time) (int, error) {
	res, err := s.db.Exec(`
		UPDATE outbox SET status = ?, attempts = 0, next_attempt_at = ?
		WHERE status = ?`, constants.OutboxPending, now.UnixMilli(), constants.OutboxDead)
	if err != nil {
		return 0, fmt.Errorf("failed to requeue dead entries: %w", err)
	}
	n, err := res.RowsAffected()
	return int(n), err
}

func (s *Store) ClearOutbox(userID string) error {
	if _, err := s.db.Exec("DELETE FROM outbox WHERE user_id = ?", userID); err != nil {
		return fmt.Errorf("failed to clear outbox: %w", err)
	}
	return nil
}
