package database

import (
	"context"
	"fmt"

	"github.com/registryhq/registry/domain/content"
	"github.com/registryhq/registry/ports"
)

// ActionStore implements ports.ActionStore.
type ActionStore struct {
	db *DB
}

// NewActionStore creates an action history store on the given database.
func NewActionStore(db *DB) *ActionStore {
	return &ActionStore{db: db}
}

// Record appends an action to the history.
func (s *ActionStore) Record(ctx context.Context, a content.Action) error {
	_, err := s.db.ExecContext(ctx, s.db.rebind(`
		INSERT INTO history (file_id, client_name, action, action_params, timestamp)
		VALUES (?, ?, ?, ?, ?)
	`), a.FileID, a.ClientName, a.Action, a.ActionParams, a.Timestamp)
	return err
}

// ListByFile returns the history of one file, oldest first.
func (s *ActionStore) ListByFile(ctx context.Context, fileID string) ([]content.Action, error) {
	rows, err := s.db.QueryContext(ctx, s.db.rebind(`
		SELECT file_id, client_name, action, action_params, timestamp
		FROM history
		WHERE file_id = ?
		ORDER BY timestamp
	`), fileID)
	if err != nil {
		return nil, fmt.Errorf("list history: %w", err)
	}
	defer rows.Close()

	var out []content.Action
	for rows.Next() {
		var a content.Action
		if err := rows.Scan(&a.FileID, &a.ClientName, &a.Action, &a.ActionParams, &a.Timestamp); err != nil {
			return nil, fmt.Errorf("scan history: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// Clear removes the history of one file.
func (s *ActionStore) Clear(ctx context.Context, fileID string) error {
	_, err := s.db.ExecContext(ctx, s.db.rebind("DELETE FROM history WHERE file_id = ?"), fileID)
	return err
}

// Ensure interface compliance.
var _ ports.ActionStore = (*ActionStore)(nil)
