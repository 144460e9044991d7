package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/registryhq/registry/domain/auth"
	"github.com/registryhq/registry/ports"
	"github.com/rs/zerolog"
)

// DefaultSessionTTL is the session lifetime used when none is configured.
const DefaultSessionTTL = 24 * time.Hour

// ErrBadCredentials is returned on a failed login.
var ErrBadCredentials = errors.New("unknown client or wrong secret")

// SessionService authenticates clients and manages their sessions.
type SessionService struct {
	sessions ports.SessionStore
	clients  ports.ClientStore
	hasher   ports.Hasher
	clock    ports.Clock
	ids      ports.IDGenerator
	ttl      time.Duration
	logger   zerolog.Logger
}

// NewSessionService creates a session service. A non-positive ttl falls
// back to DefaultSessionTTL.
func NewSessionService(sessions ports.SessionStore, clients ports.ClientStore,
	hasher ports.Hasher, clock ports.Clock, ids ports.IDGenerator,
	ttl time.Duration, logger zerolog.Logger) *SessionService {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	return &SessionService{
		sessions: sessions,
		clients:  clients,
		hasher:   hasher,
		clock:    clock,
		ids:      ids,
		ttl:      ttl,
		logger:   logger,
	}
}

// CreateClient registers a new client with a hashed secret.
func (s *SessionService) CreateClient(ctx context.Context, name, secret string) error {
	if name == "" || secret == "" {
		return fmt.Errorf("client name and secret must be specified")
	}
	hash, err := s.hasher.Hash(secret)
	if err != nil {
		return fmt.Errorf("hash secret: %w", err)
	}
	c := auth.Client{Name: name, SecretHash: hash, CreatedAt: s.clock.Now()}
	if err := s.clients.Create(ctx, c); err != nil {
		return fmt.Errorf("create client: %w", err)
	}
	s.logger.Info().Str("client", name).Msg("client created")
	return nil
}

// ListClients returns all registered clients.
func (s *SessionService) ListClients(ctx context.Context) ([]auth.Client, error) {
	return s.clients.List(ctx)
}

// DeleteClient removes a client. Open sessions are left to expire.
func (s *SessionService) DeleteClient(ctx context.Context, name string) error {
	if err := s.clients.Delete(ctx, name); err != nil {
		return err
	}
	s.logger.Info().Str("client", name).Msg("client deleted")
	return nil
}

// Login verifies the client secret and opens a new session.
func (s *SessionService) Login(ctx context.Context, name, secret string) (auth.Session, error) {
	c, err := s.clients.Get(ctx, name)
	if errors.Is(err, ports.ErrNotFound) {
		return auth.Session{}, ErrBadCredentials
	}
	if err != nil {
		return auth.Session{}, err
	}
	if !s.hasher.Compare(c.SecretHash, secret) {
		return auth.Session{}, ErrBadCredentials
	}

	now := s.clock.Now()
	session := auth.Session{
		Token:      s.ids.New(),
		ClientName: c.Name,
		CreatedAt:  now,
		ExpiresAt:  now.Add(s.ttl),
	}
	if err := s.sessions.Create(ctx, session); err != nil {
		return auth.Session{}, fmt.Errorf("create session: %w", err)
	}
	s.logger.Info().Str("client", name).Msg("session opened")
	return session, nil
}

// Verify checks a session token.
func (s *SessionService) Verify(ctx context.Context, token string) (auth.VerifyResult, error) {
	if token == "" {
		return auth.VerifyResult{Reason: auth.ReasonNoToken}, nil
	}
	session, err := s.sessions.Get(ctx, token)
	if errors.Is(err, ports.ErrNotFound) {
		return auth.VerifyResult{Reason: auth.ReasonNotFound}, nil
	}
	if err != nil {
		return auth.VerifyResult{}, err
	}
	if session.Expired(s.clock.Now()) {
		return auth.VerifyResult{Reason: auth.ReasonExpired}, nil
	}
	return auth.VerifyResult{Verified: true, Session: session}, nil
}

// Logout closes a session.
func (s *SessionService) Logout(ctx context.Context, token string) error {
	return s.sessions.Delete(ctx, token)
}

// CleanupExpired removes sessions that have expired. It returns the number
// of sessions removed.
func (s *SessionService) CleanupExpired(ctx context.Context) (int64, error) {
	removed, err := s.sessions.DeleteExpired(ctx, s.clock.Now())
	if err != nil {
		return 0, fmt.Errorf("cleanup sessions: %w", err)
	}
	if removed > 0 {
		s.logger.Info().Int64("removed", removed).Msg("expired sessions cleaned up")
	}
	return removed, nil
}
