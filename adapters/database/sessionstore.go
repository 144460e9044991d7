package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/registryhq/registry/domain/auth"
	"github.com/registryhq/registry/ports"
)

// SessionStore implements ports.SessionStore.
type SessionStore struct {
	db *DB
}

// NewSessionStore creates a session store on the given database.
func NewSessionStore(db *DB) *SessionStore {
	return &SessionStore{db: db}
}

// Create stores a new session.
func (s *SessionStore) Create(ctx context.Context, session auth.Session) error {
	_, err := s.db.ExecContext(ctx, s.db.rebind(`
		INSERT INTO sessions (token, client_name, created_at, expires_at)
		VALUES (?, ?, ?, ?)
	`), session.Token, session.ClientName, session.CreatedAt, session.ExpiresAt)
	return err
}

// Get retrieves a session by token.
func (s *SessionStore) Get(ctx context.Context, token string) (auth.Session, error) {
	row := s.db.QueryRowContext(ctx, s.db.rebind(`
		SELECT token, client_name, created_at, expires_at
		FROM sessions
		WHERE token = ?
	`), token)

	var session auth.Session
	err := row.Scan(&session.Token, &session.ClientName, &session.CreatedAt, &session.ExpiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return auth.Session{}, ErrNotFound
	}
	if err != nil {
		return auth.Session{}, fmt.Errorf("scan session: %w", err)
	}
	return session, nil
}

// Delete removes a session.
func (s *SessionStore) Delete(ctx context.Context, token string) error {
	result, err := s.db.ExecContext(ctx, s.db.rebind("DELETE FROM sessions WHERE token = ?"), token)
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

// DeleteExpired removes sessions that expired before the given instant.
func (s *SessionStore) DeleteExpired(ctx context.Context, before time.Time) (int64, error) {
	result, err := s.db.ExecContext(ctx, s.db.rebind("DELETE FROM sessions WHERE expires_at <= ?"), before)
	if err != nil {
		return 0, fmt.Errorf("delete expired sessions: %w", err)
	}
	return result.RowsAffected()
}

// Ensure interface compliance.
var _ ports.SessionStore = (*SessionStore)(nil)
