package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/julianstephens/tempo/internal/storage"
)

func (s *Store) ListItems(ctx context.Context, userID, collection string) ([]storage.RemoteItem, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, date, body, last_synced
		FROM user_items
		WHERE user_id = $1 AND collection = $2
		ORDER BY date, id`, userID, collection)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", collection, err)
	}
	defer rows.Close()

	var items []storage.RemoteItem
	for rows.Next() {
		var (
			item storage.RemoteItem
			body []byte
		)
		if err := rows.Scan(&item.ID, &item.Date, &body, &item.LastSynced); err != nil {
			return nil, fmt.Errorf("failed to scan %s item: %w", collection, err)
		}
		item.Body = json.RawMessage(body)
		items = append(items, item)
	}
	return items, rows.Err()
}

func (s *Store) PutItem(ctx context.Context, userID, collection string, item storage.RemoteItem) error {
	if item.ID == "" {
		return fmt.Errorf("cannot store %s item without an id", collection)
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO user_items (user_id, collection, id, date, body, last_synced)
		VALUES ($1, $2, $3, $4, $5, now())
		ON CONFLICT (user_id, collection, id) DO UPDATE
		SET date = EXCLUDED.date, body = EXCLUDED.body, last_synced = now()`,
		userID, collection, item.ID, item.Date, []byte(item.Body))
	if err != nil {
		return fmt.Errorf("failed to store %s item %s: %w", collection, item.ID, err)
	}
	return nil
}

func (s *Store) DeleteItem(ctx context.Context, userID, collection, id string) error {
	_, err := s.db.ExecContext(ctx, `
		DELETE FROM user_items WHERE user_id = $1 AND collection = $2 AND id = $3`,
		userID, collection, id)
	if err != nil {
		return fmt.Errorf("failed to delete %s item %s: %w", collection, id, err)
	}
	return nil
}

// SweepItems deletes dated items older than cutoff. Undated items are kept.
func (s *Store) SweepItems(ctx context.Context, userID, collection, cutoff string) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
		DELETE FROM user_items
		WHERE user_id = $1 AND collection = $2 AND date <> '' AND date < $3`,
		userID, collection, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to sweep %s: %w", collection, err)
	}
	return res.RowsAffected()
}

func (s *Store) GetDoc(ctx context.Context, userID, kind string) (json.RawMessage, error) {
	var body []byte
	err := s.db.QueryRowContext(ctx, `
		SELECT body FROM user_docs WHERE user_id = $1 AND kind = $2`, userID, kind).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", kind, err)
	}
	return json.RawMessage(body), nil
}

func (s *Store) PutDoc(ctx context.Context, userID, kind string, body json.RawMessage) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO user_docs (user_id, kind, body, last_synced)
		VALUES ($1, $2, $3, now())
		ON CONFLICT (user_id, kind) DO UPDATE
		SET body = EXCLUDED.body, last_synced = now()`,
		userID, kind, []byte(body))
	if err != nil {
		return fmt.Errorf("failed to store %s: %w", kind, err)
	}
	return nil
}
