// Package database opens and migrates the named databases selected by the
// [database] configuration section. The sqlite backend keeps one file per
// logical database under database.path; the postgres backend connects with
// the configured connection parameters, one database per logical name.
package database

import (
	"database/sql"
	"embed"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"

	"github.com/registryhq/registry/ports"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// ErrNotFound is returned when a row does not exist.
var ErrNotFound = ports.ErrNotFound

// Params selects and configures a backend.
type Params struct {
	Backend  string // "sqlite" or "postgres"
	Path     string // directory for file-backed databases
	Host     string
	Port     string
	User     string
	Password string
}

// DB wraps one logical database connection.
type DB struct {
	*sql.DB
	backend string
	name    string
}

// Backend returns the backend the connection uses.
func (db *DB) Backend() string { return db.backend }

// Name returns the logical database name.
func (db *DB) Name() string { return db.name }

// Open connects a single logical database and applies pending migrations.
func Open(p Params, name string) (*DB, error) {
	var (
		conn *sql.DB
		err  error
	)
	switch p.Backend {
	case "sqlite":
		if err := os.MkdirAll(p.Path, 0o755); err != nil {
			return nil, fmt.Errorf("create database dir: %w", err)
		}
		file := filepath.Join(p.Path, name+".db")
		conn, err = sql.Open("sqlite3", file+"?_journal_mode=WAL&_busy_timeout=5000")
		if err != nil {
			return nil, fmt.Errorf("open database %s: %w", name, err)
		}
		pragmas := []string{
			"PRAGMA synchronous = NORMAL",
			"PRAGMA temp_store = MEMORY",
		}
		for _, pragma := range pragmas {
			if _, err := conn.Exec(pragma); err != nil {
				conn.Close()
				return nil, fmt.Errorf("set pragma: %w", err)
			}
		}
	case "postgres":
		dsn := fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
			p.Host, p.Port, p.User, p.Password, name)
		conn, err = sql.Open("postgres", dsn)
		if err != nil {
			return nil, fmt.Errorf("open database %s: %w", name, err)
		}
		if err := conn.Ping(); err != nil {
			conn.Close()
			return nil, fmt.Errorf("connect database %s: %w", name, err)
		}
	default:
		return nil, fmt.Errorf("unknown database backend: %s", p.Backend)
	}

	db := &DB{DB: conn, backend: p.Backend, name: name}
	if err := db.Migrate(); err != nil {
		conn.Close()
		return nil, err
	}
	return db, nil
}

// Set holds one connection per logical database name.
type Set struct {
	order []string
	dbs   map[string]*DB
}

// OpenSet connects every named database.
func OpenSet(p Params, names []string) (*Set, error) {
	set := &Set{dbs: make(map[string]*DB)}
	for _, name := range names {
		db, err := Open(p, name)
		if err != nil {
			set.Close()
			return nil, err
		}
		set.order = append(set.order, name)
		set.dbs[name] = db
	}
	return set, nil
}

// Get returns the connection for a logical database name.
func (s *Set) Get(name string) (*DB, error) {
	db, ok := s.dbs[name]
	if !ok {
		return nil, fmt.Errorf("database %q not initialized", name)
	}
	return db, nil
}

// Names returns the logical database names in configured order.
func (s *Set) Names() []string {
	out := make([]string, len(s.order))
	copy(out, s.order)
	return out
}

// Close closes every connection.
func (s *Set) Close() error {
	var first error
	for _, name := range s.order {
		if err := s.dbs[name].Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// rebind converts ? placeholders to the backend's placeholder style.
func (db *DB) rebind(query string) string {
	if db.backend != "postgres" {
		return query
	}
	var b strings.Builder
	n := 0
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			n++
			fmt.Fprintf(&b, "$%d", n)
			continue
		}
		b.WriteByte(query[i])
	}
	return b.String()
}

// Migrate applies all pending migrations.
func (db *DB) Migrate() error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version TEXT PRIMARY KEY,
			applied_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("create migrations table: %w", err)
	}

	applied := make(map[string]bool)
	rows, err := db.Query("SELECT version FROM schema_migrations")
	if err != nil {
		return fmt.Errorf("query migrations: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var version string
		if err := rows.Scan(&version); err != nil {
			return fmt.Errorf("scan migration: %w", err)
		}
		applied[version] = true
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("read migrations: %w", err)
	}

	entries, err := migrationsFS.ReadDir("migrations")
	if err != nil {
		return fmt.Errorf("read migrations dir: %w", err)
	}

	var migrations []string
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasSuffix(entry.Name(), ".sql") {
			migrations = append(migrations, entry.Name())
		}
	}
	sort.Strings(migrations)

	for _, name := range migrations {
		version := strings.TrimSuffix(name, ".sql")
		if applied[version] {
			continue
		}

		content, err := migrationsFS.ReadFile("migrations/" + name)
		if err != nil {
			return fmt.Errorf("read migration %s: %w", name, err)
		}

		tx, err := db.Begin()
		if err != nil {
			return fmt.Errorf("begin transaction: %w", err)
		}

		if _, err := tx.Exec(string(content)); err != nil {
			tx.Rollback()
			return fmt.Errorf("execute migration %s: %w", name, err)
		}

		if _, err := tx.Exec(db.rebind("INSERT INTO schema_migrations (version) VALUES (?)"), version); err != nil {
			tx.Rollback()
			return fmt.Errorf("record migration %s: %w", name, err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit migration %s: %w", name, err)
		}
	}

	return nil
}
