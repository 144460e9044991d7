// Package app contains the application services built on the store ports.
package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/registryhq/registry/domain/content"
	"github.com/registryhq/registry/ports"
	"github.com/rs/zerolog"
)

// Content service errors.
var (
	// ErrNotFound mirrors ports.ErrNotFound for callers of this package.
	ErrNotFound = ports.ErrNotFound

	// ErrDuplicateServePath is returned when a live entry already serves
	// the requested path.
	ErrDuplicateServePath = errors.New("serve_path already registered")
)

// AddParams are the fields of a new file entry.
type AddParams struct {
	Path       string
	ServePath  string
	Category   string
	Expiration *time.Time
}

// ContentService manages the content registry.
type ContentService struct {
	store    ports.ContentStore
	actions  ports.ActionStore
	clock    ports.Clock
	ids      ports.IDGenerator
	rootPath string
	logger   zerolog.Logger
}

// NewContentService creates a content service rooted at rootPath.
func NewContentService(store ports.ContentStore, actions ports.ActionStore,
	clock ports.Clock, ids ports.IDGenerator, rootPath string, logger zerolog.Logger) *ContentService {
	return &ContentService{
		store:    store,
		actions:  actions,
		clock:    clock,
		ids:      ids,
		rootPath: filepath.Clean(rootPath),
		logger:   logger,
	}
}

// RootPath returns the registry content root.
func (s *ContentService) RootPath() string {
	return s.rootPath
}

// Exists reports whether a live entry matches the filters.
func (s *ContentService) Exists(ctx context.Context, filters content.Filters) (bool, error) {
	alive := true
	filters.Alive = &alive
	_, err := s.store.Get(ctx, filters)
	if errors.Is(err, ports.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// Get returns the first entry matching the filters.
func (s *ContentService) Get(ctx context.Context, filters content.Filters) (content.File, error) {
	return s.store.Get(ctx, filters)
}

// List returns entries matching the filters, bounded by the listing limits.
func (s *ContentService) List(ctx context.Context, filters content.Filters) ([]content.File, error) {
	if err := filters.Validate(); err != nil {
		return nil, err
	}
	return s.store.List(ctx, filters.Normalize())
}

// Add registers a new file. The file must exist under the registry root and
// no live entry may already claim the serve path. The addition is recorded
// in the action history under the client's name.
func (s *ContentService) Add(ctx context.Context, clientName string, params AddParams) (content.File, error) {
	if params.ServePath == "" {
		return content.File{}, fmt.Errorf("serve_path must be specified")
	}
	dup, err := s.Exists(ctx, content.Filters{ServePath: exactMatch(params.ServePath)})
	if err != nil {
		return content.File{}, err
	}
	if dup {
		return content.File{}, fmt.Errorf("%w: %s", ErrDuplicateServePath, params.ServePath)
	}

	size, err := s.statPath(params.Path)
	if err != nil {
		return content.File{}, err
	}

	now := s.clock.Now()
	f := content.File{
		ID:         s.ids.New(),
		Path:       params.Path,
		ServePath:  params.ServePath,
		Size:       size,
		Category:   params.Category,
		Uploaded:   now,
		Modified:   now,
		Expiration: params.Expiration,
		Alive:      true,
	}
	if err := s.store.Insert(ctx, f); err != nil {
		return content.File{}, fmt.Errorf("add file: %w", err)
	}

	s.logger.Info().
		Str("id", f.ID).
		Str("path", f.Path).
		Str("serve_path", f.ServePath).
		Int64("size", f.Size).
		Msg("file added")
	s.recordAction(ctx, f.ID, clientName, content.ActionAdd, "")
	return f, nil
}

// Update modifies an existing live entry. A changed path is validated and
// its size refreshed; touched fields bump the modified timestamp. Deleted
// entries cannot be updated.
func (s *ContentService) Update(ctx context.Context, clientName, id string, u content.Update) (content.File, error) {
	alive := true
	if _, err := s.store.Get(ctx, content.Filters{ID: id, Alive: &alive}); err != nil {
		return content.File{}, err
	}

	var size *int64
	if u.Path != nil {
		n, err := s.statPath(*u.Path)
		if err != nil {
			return content.File{}, err
		}
		size = &n
	}

	fields := u.Fields()
	modified := s.clock.Now()
	if !content.TouchesModified(fields) {
		// Nothing to do.
		return s.store.Get(ctx, content.Filters{ID: id})
	}
	if err := s.store.Update(ctx, id, u, size, modified); err != nil {
		return content.File{}, fmt.Errorf("update file: %w", err)
	}

	s.logger.Info().Str("id", id).Strs("fields", fields).Msg("file updated")
	s.recordAction(ctx, id, clientName, content.ActionUpdate, strings.Join(fields, ", "))
	return s.store.Get(ctx, content.Filters{ID: id})
}

// Delete deactivates an entry (soft delete).
func (s *ContentService) Delete(ctx context.Context, clientName, id string) error {
	alive := true
	if _, err := s.store.Get(ctx, content.Filters{ID: id, Alive: &alive}); err != nil {
		return err
	}

	dead := false
	if err := s.store.Update(ctx, id, content.Update{Alive: &dead}, nil, s.clock.Now()); err != nil {
		return fmt.Errorf("delete file: %w", err)
	}

	s.logger.Info().Str("id", id).Msg("file deactivated")
	s.recordAction(ctx, id, clientName, content.ActionDelete, "")
	return nil
}

// History returns the action history of a file, oldest first.
func (s *ContentService) History(ctx context.Context, id string) ([]content.Action, error) {
	return s.actions.ListByFile(ctx, id)
}

func (s *ContentService) statPath(path string) (int64, error) {
	if err := content.ValidatePath(path, s.rootPath); err != nil {
		return 0, err
	}
	info, err := os.Stat(path)
	if err != nil {
		return 0, fmt.Errorf("no file at path %s: %w", path, err)
	}
	if info.IsDir() {
		return 0, fmt.Errorf("path %s is a directory", path)
	}
	return info.Size(), nil
}

func (s *ContentService) recordAction(ctx context.Context, fileID, clientName, action, params string) {
	a := content.Action{
		FileID:       fileID,
		ClientName:   clientName,
		Action:       action,
		ActionParams: params,
		Timestamp:    s.clock.Now(),
	}
	if err := s.actions.Record(ctx, a); err != nil {
		// History is best effort; the mutation itself succeeded.
		s.logger.Error().Err(err).Str("id", fileID).Str("action", action).Msg("failed to record action")
	}
}

func exactMatch(s string) string {
	return "^" + regexp.QuoteMeta(s) + "$"
}
