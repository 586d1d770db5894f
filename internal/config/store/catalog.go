package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// SaveCatalog persists the serialized catalog payload for one Automator.
func (s *Store) SaveCatalog(ctx context.Context, automatorID string, payload []byte, updated time.Time) error {
	if s.readOnly {
		return fmt.Errorf("config: save catalog: store opened read-only")
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO catalogs (automator_id, payload, last_updated)
		VALUES (?, ?, ?)
		ON CONFLICT(automator_id) DO UPDATE SET
			payload = excluded.payload,
			last_updated = excluded.last_updated
	`, automatorID, string(payload), updated.UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("config: save catalog %s: %w", automatorID, err)
	}
	return nil
}

// LoadCatalog returns the persisted catalog payload for one Automator.
func (s *Store) LoadCatalog(ctx context.Context, automatorID string) ([]byte, time.Time, error) {
	var payload string
	var updatedRaw string
	err := s.db.QueryRowContext(ctx, `
		SELECT payload, last_updated FROM catalogs WHERE automator_id = ?
	`, automatorID).Scan(&payload, &updatedRaw)
	if err == sql.ErrNoRows {
		return nil, time.Time{}, NotFoundError{Entity: "catalog", Key: automatorID}
	}
	if err != nil {
		return nil, time.Time{}, fmt.Errorf("config: load catalog %s: %w", automatorID, err)
	}

	updated, parseErr := time.Parse(time.RFC3339, updatedRaw)
	if parseErr != nil {
		updated = time.Time{}
	}
	return []byte(payload), updated, nil
}
