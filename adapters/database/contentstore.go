package database

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"
	"time"

	"github.com/registryhq/registry/domain/content"
	"github.com/registryhq/registry/ports"
)

// ContentStore implements ports.ContentStore.
type ContentStore struct {
	db *DB
}

// NewContentStore creates a content store on the given database.
func NewContentStore(db *DB) *ContentStore {
	return &ContentStore{db: db}
}

// Insert stores a new file entry.
func (s *ContentStore) Insert(ctx context.Context, f content.File) error {
	var expiration sql.NullTime
	if f.Expiration != nil {
		expiration = sql.NullTime{Time: *f.Expiration, Valid: true}
	}
	_, err := s.db.ExecContext(ctx, s.db.rebind(`
		INSERT INTO content (id, path, serve_path, size, category, uploaded, modified, expiration, alive)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`), f.ID, f.Path, f.ServePath, f.Size, f.Category, f.Uploaded, f.Modified, expiration, f.Alive)
	return err
}

// Get retrieves the first entry matching the filters.
func (s *ContentStore) Get(ctx context.Context, filters content.Filters) (content.File, error) {
	filters.Count = 1
	files, err := s.List(ctx, filters)
	if err != nil {
		return content.File{}, err
	}
	if len(files) == 0 {
		return content.File{}, ErrNotFound
	}
	return files[0], nil
}

// List returns entries matching the filters, newest first. The serve_path
// filter is a regular expression and is applied after the query; the rest
// translate to WHERE clauses.
func (s *ContentStore) List(ctx context.Context, filters content.Filters) ([]content.File, error) {
	if err := filters.Validate(); err != nil {
		return nil, err
	}

	query := "SELECT id, path, serve_path, size, category, uploaded, modified, expiration, alive FROM content"
	var (
		where []string
		args  []any
	)
	if filters.ID != "" {
		where = append(where, "id = ?")
		args = append(args, filters.ID)
	}
	if filters.Path != "" {
		where = append(where, "path = ?")
		args = append(args, filters.Path)
	}
	if filters.Category != "" {
		where = append(where, "category = ?")
		args = append(args, filters.Category)
	}
	if !filters.Since.IsZero() {
		where = append(where, "modified >= ?")
		args = append(args, filters.Since)
	}
	if filters.Alive != nil {
		where = append(where, "alive = ?")
		args = append(args, *filters.Alive)
	}
	if filters.Aired != nil {
		if *filters.Aired {
			where = append(where, "(expiration IS NULL OR expiration > CURRENT_TIMESTAMP)")
		} else {
			where = append(where, "(expiration IS NOT NULL AND expiration <= CURRENT_TIMESTAMP)")
		}
	}
	for i, clause := range where {
		if i == 0 {
			query += " WHERE " + clause
		} else {
			query += " AND " + clause
		}
	}
	query += " ORDER BY modified DESC, id"

	var servePathRe *regexp.Regexp
	if filters.ServePath != "" {
		servePathRe = regexp.MustCompile(filters.ServePath) // validated above
	}
	if filters.Count > 0 && servePathRe == nil {
		query += " LIMIT ?"
		args = append(args, filters.Count)
	}

	rows, err := s.db.QueryContext(ctx, s.db.rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("list content: %w", err)
	}
	defer rows.Close()

	var out []content.File
	for rows.Next() {
		f, err := scanFile(rows)
		if err != nil {
			return nil, err
		}
		if servePathRe != nil && !servePathRe.MatchString(f.ServePath) {
			continue
		}
		out = append(out, f)
		if filters.Count > 0 && len(out) >= filters.Count {
			break
		}
	}
	return out, rows.Err()
}

// Update applies the update to the entry with the given id, bumping the
// modified timestamp. Returns ErrNotFound when no such entry exists.
func (s *ContentStore) Update(ctx context.Context, id string, u content.Update, size *int64, modified time.Time) error {
	set := "modified = ?"
	args := []any{modified}
	if u.Path != nil {
		set += ", path = ?"
		args = append(args, *u.Path)
	}
	if u.ServePath != nil {
		set += ", serve_path = ?"
		args = append(args, *u.ServePath)
	}
	if u.Category != nil {
		set += ", category = ?"
		args = append(args, *u.Category)
	}
	if u.Expiration != nil {
		set += ", expiration = ?"
		args = append(args, *u.Expiration)
	}
	if u.Alive != nil {
		set += ", alive = ?"
		args = append(args, *u.Alive)
	}
	if size != nil {
		set += ", size = ?"
		args = append(args, *size)
	}
	args = append(args, id)

	result, err := s.db.ExecContext(ctx, s.db.rebind("UPDATE content SET "+set+" WHERE id = ?"), args...)
	if err != nil {
		return fmt.Errorf("update content: %w", err)
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

type rowScanner interface {
	Scan(dest ...any) error
}

func scanFile(row rowScanner) (content.File, error) {
	var (
		f          content.File
		expiration sql.NullTime
	)
	err := row.Scan(&f.ID, &f.Path, &f.ServePath, &f.Size, &f.Category,
		&f.Uploaded, &f.Modified, &expiration, &f.Alive)
	if err != nil {
		return content.File{}, fmt.Errorf("scan content: %w", err)
	}
	if expiration.Valid {
		t := expiration.Time
		f.Expiration = &t
	}
	return f, nil
}

// Ensure interface compliance.
var _ ports.ContentStore = (*ContentStore)(nil)
