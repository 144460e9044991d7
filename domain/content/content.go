// Package content provides content registry value types and pure validation
// functions. This package has NO dependencies on I/O or external packages.
package content

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

// File represents a registered file entry (immutable value type).
type File struct {
	ID         string
	Path       string // absolute path under the registry root
	ServePath  string // path the file is served as
	Size       int64
	Category   string
	Uploaded   time.Time
	Modified   time.Time
	Expiration *time.Time // nil = never expires
	Alive      bool       // false = soft-deleted
}

// Action records one mutation of a file entry for the audit history.
type Action struct {
	FileID       string
	ClientName   string
	Action       string
	ActionParams string
	Timestamp    time.Time
}

// Action names recorded in the history.
const (
	ActionAdd    = "add"
	ActionUpdate = "update"
	ActionDelete = "delete"
)

// List limits.
const (
	DefaultListCount = 100
	MaxListCount     = 1000
)

// modifyTriggers are the fields whose change bumps the Modified timestamp.
var modifyTriggers = map[string]bool{
	"path":       true,
	"size":       true,
	"category":   true,
	"expiration": true,
	"serve_path": true,
	"alive":      true,
}

// TouchesModified reports whether updating the named fields must bump the
// Modified timestamp.
func TouchesModified(fields []string) bool {
	for _, f := range fields {
		if modifyTriggers[f] {
			return true
		}
	}
	return false
}

// Filters narrows file listings. Zero values mean "not filtered"; Alive and
// Aired use pointers so false is expressible.
type Filters struct {
	ID        string
	Path      string
	ServePath string // regular expression matched against ServePath
	Category  string
	Since     time.Time // entries modified at or after this instant
	Count     int
	Alive     *bool
	Aired     *bool // true = not yet expired
}

// Normalize returns a copy of the filters clamped to listing limits: the
// count cap is dropped when filtering by serve path or since (the caller
// wants the complete matching set), and otherwise bounded by MaxListCount.
func (f Filters) Normalize() Filters {
	out := f
	if out.ServePath != "" || !out.Since.IsZero() {
		out.Count = 0
		return out
	}
	if out.Count <= 0 {
		out.Count = DefaultListCount
	}
	if out.Count > MaxListCount {
		out.Count = MaxListCount
	}
	return out
}

// Validate checks filter values that can be malformed.
func (f Filters) Validate() error {
	if f.ServePath != "" {
		if _, err := regexp.Compile(f.ServePath); err != nil {
			return fmt.Errorf("invalid serve_path expression %q: %v", f.ServePath, err)
		}
	}
	if f.Count < 0 {
		return fmt.Errorf("count must not be negative, got %d", f.Count)
	}
	return nil
}

// Update carries the mutable fields of a file entry. Nil means unchanged.
type Update struct {
	Path       *string
	ServePath  *string
	Category   *string
	Expiration *time.Time
	Alive      *bool
}

// Fields returns the names of the fields the update touches.
func (u Update) Fields() []string {
	var out []string
	if u.Path != nil {
		out = append(out, "path")
	}
	if u.ServePath != nil {
		out = append(out, "serve_path")
	}
	if u.Category != nil {
		out = append(out, "category")
	}
	if u.Expiration != nil {
		out = append(out, "expiration")
	}
	if u.Alive != nil {
		out = append(out, "alive")
	}
	return out
}

// ValidatePath checks that path is non-empty and falls under root.
func ValidatePath(path, root string) error {
	if path == "" {
		return fmt.Errorf("path must not be empty")
	}
	if !strings.HasPrefix(path, strings.TrimSuffix(root, "/")+"/") {
		return fmt.Errorf("path %q does not fall under %q", path, root)
	}
	return nil
}
