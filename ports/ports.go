// Package ports defines interfaces (contracts) between layers.
// These interfaces enable dependency injection and testability.
// Implementations live in adapters/.
package ports

import (
	"context"
	"errors"
	"time"

	"github.com/registryhq/registry/domain/auth"
	"github.com/registryhq/registry/domain/content"
)

// ErrNotFound is returned by stores when a row does not exist.
var ErrNotFound = errors.New("not found")

// -----------------------------------------------------------------------------
// Infrastructure Ports
// -----------------------------------------------------------------------------

// Clock abstracts time for testability.
type Clock interface {
	Now() time.Time
}

// Hasher hashes and verifies client secrets.
type Hasher interface {
	Hash(plaintext string) ([]byte, error)
	Compare(hash []byte, plaintext string) bool
}

// IDGenerator generates unique identifiers.
type IDGenerator interface {
	New() string
}

// -----------------------------------------------------------------------------
// Data Store Ports
// -----------------------------------------------------------------------------

// ContentStore persists file entries.
type ContentStore interface {
	// Insert stores a new file entry.
	Insert(ctx context.Context, f content.File) error

	// Get retrieves the first entry matching the filters, or ErrNotFound.
	Get(ctx context.Context, filters content.Filters) (content.File, error)

	// List returns entries matching the filters, newest first.
	List(ctx context.Context, filters content.Filters) ([]content.File, error)

	// Update applies the update to the entry with the given id.
	Update(ctx context.Context, id string, u content.Update, size *int64, modified time.Time) error
}

// ActionStore persists the mutation history of file entries.
type ActionStore interface {
	// Record appends an action to the history.
	Record(ctx context.Context, a content.Action) error

	// ListByFile returns the history of one file, oldest first.
	ListByFile(ctx context.Context, fileID string) ([]content.Action, error)

	// Clear removes the history of one file.
	Clear(ctx context.Context, fileID string) error
}

// SessionStore persists client sessions.
type SessionStore interface {
	Create(ctx context.Context, s auth.Session) error
	Get(ctx context.Context, token string) (auth.Session, error)
	Delete(ctx context.Context, token string) error

	// DeleteExpired removes sessions that expired before the given instant
	// and returns how many were removed.
	DeleteExpired(ctx context.Context, before time.Time) (int64, error)
}

// ClientStore persists API clients.
type ClientStore interface {
	Create(ctx context.Context, c auth.Client) error
	Get(ctx context.Context, name string) (auth.Client, error)
	List(ctx context.Context) ([]auth.Client, error)
	Delete(ctx context.Context, name string) error
}
