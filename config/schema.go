package config

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Kind is the value type a recognized option must satisfy.
type Kind int

const (
	KindString Kind = iota
	KindInt
	KindBool
	KindList
	KindPath
	KindSize
)

// Option describes one recognized configuration option.
type Option struct {
	Section  string
	Name     string
	Kind     Kind
	Required bool
	// Enum restricts a scalar to a fixed token set.
	Enum []string
	// DottedPaths requires every list entry to be a dotted component path.
	DottedPaths bool
}

// Database backends.
const (
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
)

// serverlessBackends are file-backed and need database.path instead of
// connection parameters.
var serverlessBackends = map[string]bool{BackendSQLite: true}

// IsServerless reports whether the backend stores databases as local files.
func IsServerless(backend string) bool {
	return serverlessBackends[backend]
}

// Schema enumerates every recognized option.
var Schema = []Option{
	{Section: "server", Name: "host", Kind: KindString, Required: true},
	{Section: "server", Name: "port", Kind: KindInt, Required: true},
	{Section: "server", Name: "debug", Kind: KindBool},

	{Section: "registry", Name: "root_path", Kind: KindPath, Required: true},

	{Section: "auth", Name: "cleanup_interval", Kind: KindInt, Required: true},

	{Section: "stack", Name: "pre_init", Kind: KindList, Required: true, DottedPaths: true},
	{Section: "stack", Name: "plugins", Kind: KindList, Required: true, DottedPaths: true},
	{Section: "stack", Name: "routes", Kind: KindList, Required: true, DottedPaths: true},
	{Section: "stack", Name: "background", Kind: KindList, Required: true, DottedPaths: true},
	{Section: "stack", Name: "pre_stop", Kind: KindList, Required: true, DottedPaths: true},

	{Section: "database", Name: "backend", Kind: KindString, Required: true, Enum: []string{BackendSQLite, BackendPostgres}},
	{Section: "database", Name: "names", Kind: KindList, Required: true},
	{Section: "database", Name: "path", Kind: KindPath},
	{Section: "database", Name: "host", Kind: KindString},
	{Section: "database", Name: "port", Kind: KindString},
	{Section: "database", Name: "user", Kind: KindString},
	{Section: "database", Name: "password", Kind: KindString},

	{Section: "logging", Name: "format", Kind: KindString, Required: true},
	{Section: "logging", Name: "date_format", Kind: KindString, Required: true},
	{Section: "logging", Name: "size", Kind: KindSize, Required: true},
	{Section: "logging", Name: "backups", Kind: KindInt, Required: true},
	{Section: "logging", Name: "output", Kind: KindPath, Required: true},
}

var (
	sizeRe       = regexp.MustCompile(`^([0-9]+)\s*([KMGkmg]?)[Bb]$`)
	dottedPathRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)+$`)
)

// Validate type-checks a parsed document against the recognized-option
// schema. Required options must be present, every present option must be
// recognized, and values must satisfy their declared kind. Validation stops
// at the first error; any failure is fatal to startup.
func Validate(doc *Document) error {
	bySection := make(map[string]map[string]Option)
	for _, opt := range Schema {
		m := bySection[opt.Section]
		if m == nil {
			m = make(map[string]Option)
			bySection[opt.Section] = m
		}
		m[opt.Name] = opt
	}

	for _, sec := range doc.Sections() {
		known, ok := bySection[sec]
		if !ok {
			return &ValidationError{Section: sec, Msg: "unrecognized section"}
		}
		for _, key := range doc.Options(sec) {
			opt, ok := known[key]
			if !ok {
				return &ValidationError{Section: sec, Option: key, Msg: "unrecognized option"}
			}
			if err := checkValue(doc, opt); err != nil {
				return err
			}
		}
	}

	for _, opt := range Schema {
		if opt.Required && !doc.Has(opt.Section, opt.Name) {
			return &MissingOptionError{Section: opt.Section, Option: opt.Name}
		}
	}

	// database.path is required for file-backed backends, connection
	// parameters may stay empty for them.
	if backend, err := doc.GetString("database", "backend"); err == nil && IsServerless(backend) {
		if path, _ := doc.GetString("database", "path"); path == "" {
			return &ValidationError{Section: "database", Option: "path",
				Msg: fmt.Sprintf("required for the %s backend", backend)}
		}
	}

	return nil
}

func checkValue(doc *Document, opt Option) error {
	switch opt.Kind {
	case KindInt:
		n, err := doc.GetInt(opt.Section, opt.Name)
		if err != nil {
			return err
		}
		if n < 0 {
			return &ValidationError{Section: opt.Section, Option: opt.Name, Msg: fmt.Sprintf("must not be negative, got %d", n)}
		}
		if opt.Section == "server" && opt.Name == "port" && (n < 1 || n > 65535) {
			return &ValidationError{Section: opt.Section, Option: opt.Name, Msg: fmt.Sprintf("port out of range: %d", n)}
		}
	case KindBool:
		if _, err := doc.GetBool(opt.Section, opt.Name); err != nil {
			return err
		}
	case KindList:
		items, err := doc.GetList(opt.Section, opt.Name)
		if err != nil {
			return err
		}
		if opt.DottedPaths {
			for _, item := range items {
				if !dottedPathRe.MatchString(item) {
					return &ValidationError{Section: opt.Section, Option: opt.Name,
						Msg: fmt.Sprintf("not a dotted path: %q", item)}
				}
			}
		}
	case KindSize:
		s, err := doc.GetString(opt.Section, opt.Name)
		if err != nil {
			return err
		}
		if _, err := ParseSize(s); err != nil {
			return &ValidationError{Section: opt.Section, Option: opt.Name, Msg: err.Error()}
		}
	case KindString, KindPath:
		s, err := doc.GetString(opt.Section, opt.Name)
		if err != nil {
			return err
		}
		if len(opt.Enum) > 0 {
			found := false
			for _, e := range opt.Enum {
				if s == e {
					found = true
					break
				}
			}
			if !found {
				return &ValidationError{Section: opt.Section, Option: opt.Name,
					Msg: fmt.Sprintf("must be one of %s, got %q", strings.Join(opt.Enum, ", "), s)}
			}
		}
		if opt.Kind == KindPath && opt.Required && s == "" {
			return &ValidationError{Section: opt.Section, Option: opt.Name, Msg: "path must not be empty"}
		}
	}
	return nil
}

// ParseSize parses a size string such as "10MB", "512KB" or "100B" into a
// byte count.
func ParseSize(s string) (int64, error) {
	m := sizeRe.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return 0, fmt.Errorf("malformed size %q (want e.g. 10MB)", s)
	}
	n, err := strconv.ParseInt(m[1], 10, 64)
	if err != nil {
		return 0, fmt.Errorf("malformed size %q: %v", s, err)
	}
	switch strings.ToUpper(m[2]) {
	case "K":
		n *= 1 << 10
	case "M":
		n *= 1 << 20
	case "G":
		n *= 1 << 30
	}
	return n, nil
}
