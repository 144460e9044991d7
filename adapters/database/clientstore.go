package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/registryhq/registry/domain/auth"
	"github.com/registryhq/registry/ports"
)

// ClientStore implements ports.ClientStore.
type ClientStore struct {
	db *DB
}

// NewClientStore creates a client store on the given database.
func NewClientStore(db *DB) *ClientStore {
	return &ClientStore{db: db}
}

// Create stores a new client.
func (s *ClientStore) Create(ctx context.Context, c auth.Client) error {
	_, err := s.db.ExecContext(ctx, s.db.rebind(`
		INSERT INTO clients (name, secret_hash, created_at)
		VALUES (?, ?, ?)
	`), c.Name, string(c.SecretHash), c.CreatedAt)
	return err
}

// Get retrieves a client by name.
func (s *ClientStore) Get(ctx context.Context, name string) (auth.Client, error) {
	row := s.db.QueryRowContext(ctx, s.db.rebind(`
		SELECT name, secret_hash, created_at FROM clients WHERE name = ?
	`), name)

	var (
		c    auth.Client
		hash string
	)
	err := row.Scan(&c.Name, &hash, &c.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return auth.Client{}, ErrNotFound
	}
	if err != nil {
		return auth.Client{}, fmt.Errorf("scan client: %w", err)
	}
	c.SecretHash = []byte(hash)
	return c, nil
}

// List returns all clients ordered by name.
func (s *ClientStore) List(ctx context.Context) ([]auth.Client, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT name, secret_hash, created_at FROM clients ORDER BY name")
	if err != nil {
		return nil, fmt.Errorf("list clients: %w", err)
	}
	defer rows.Close()

	var out []auth.Client
	for rows.Next() {
		var (
			c    auth.Client
			hash string
		)
		if err := rows.Scan(&c.Name, &hash, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan client: %w", err)
		}
		c.SecretHash = []byte(hash)
		out = append(out, c)
	}
	return out, rows.Err()
}

// Delete removes a client.
func (s *ClientStore) Delete(ctx context.Context, name string) error {
	result, err := s.db.ExecContext(ctx, s.db.rebind("DELETE FROM clients WHERE name = ?"), name)
	if err != nil {
		return err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}

// Ensure interface compliance.
var _ ports.ClientStore = (*ClientStore)(nil)
