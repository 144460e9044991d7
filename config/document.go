// Package config implements the sectioned key-value configuration format
// consumed by the registry at startup.
//
// A document is a sequence of [section] blocks containing key = value lines.
// A key followed by an empty value and one or more indented continuation
// lines holds an ordered list. Comments start with # and run to the end of
// the line; blank lines are ignored.
//
// Documents are immutable once parsed and safe for unsynchronized
// concurrent reads.
package config

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// Value is a single option value: a scalar string or an ordered list of
// strings. IsList distinguishes an empty scalar from an empty list.
type Value struct {
	Scalar string
	List   []string
	IsList bool
}

// section is a named group of options, in declaration order.
type section struct {
	name  string
	order []string
	opts  map[string]Value
}

// Document is a parsed configuration document.
type Document struct {
	order []string
	index map[string]*section
}

// Parse reads a sectioned key-value document. It returns a *SyntaxError for
// malformed section headers, keys outside any section, duplicate sections or
// keys, and continuation lines that do not belong to a list value.
func Parse(data []byte) (*Document, error) {
	doc := &Document{index: make(map[string]*section)}

	var (
		cur *section
		// pending tracks a "key =" line that may become a list if
		// indented continuation lines follow.
		pendingKey  string
		pendingList []string
		havePending bool
	)

	flush := func() {
		if !havePending {
			return
		}
		if pendingList == nil {
			cur.set(pendingKey, Value{Scalar: ""})
		} else {
			cur.set(pendingKey, Value{List: pendingList, IsList: true})
		}
		havePending = false
		pendingKey = ""
		pendingList = nil
	}

	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	lineno := 0
	for scanner.Scan() {
		lineno++
		raw := scanner.Text()
		line := stripComment(raw)
		if strings.TrimSpace(line) == "" {
			continue
		}

		indented := line[0] == ' ' || line[0] == '\t'
		if indented {
			if !havePending {
				return nil, &SyntaxError{Line: lineno, Msg: "continuation line outside a list value"}
			}
			pendingList = append(pendingList, strings.TrimSpace(line))
			continue
		}

		flush()

		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "[") {
			if !strings.HasSuffix(trimmed, "]") || len(trimmed) < 3 {
				return nil, &SyntaxError{Line: lineno, Msg: fmt.Sprintf("malformed section header %q", trimmed)}
			}
			name := trimmed[1 : len(trimmed)-1]
			if !validName(name) {
				return nil, &SyntaxError{Line: lineno, Msg: fmt.Sprintf("invalid section name %q", name)}
			}
			if _, ok := doc.index[name]; ok {
				return nil, &SyntaxError{Line: lineno, Msg: fmt.Sprintf("duplicate section [%s]", name)}
			}
			cur = &section{name: name, opts: make(map[string]Value)}
			doc.order = append(doc.order, name)
			doc.index[name] = cur
			continue
		}

		eq := strings.Index(trimmed, "=")
		if eq < 0 {
			return nil, &SyntaxError{Line: lineno, Msg: fmt.Sprintf("expected key = value, got %q", trimmed)}
		}
		key := strings.TrimSpace(trimmed[:eq])
		val := strings.TrimSpace(trimmed[eq+1:])
		if key == "" {
			return nil, &SyntaxError{Line: lineno, Msg: "empty option name"}
		}
		if !validName(key) {
			return nil, &SyntaxError{Line: lineno, Msg: fmt.Sprintf("invalid option name %q", key)}
		}
		if cur == nil {
			return nil, &SyntaxError{Line: lineno, Msg: fmt.Sprintf("option %q outside any section", key)}
		}
		if _, ok := cur.opts[key]; ok {
			return nil, &SyntaxError{Line: lineno, Msg: fmt.Sprintf("duplicate option %q in section [%s]", key, cur.name)}
		}

		if val == "" {
			pendingKey = key
			havePending = true
			continue
		}
		cur.set(key, Value{Scalar: val})
	}
	if err := scanner.Err(); err != nil {
		return nil, &SyntaxError{Line: lineno, Msg: err.Error()}
	}
	flush()

	return doc, nil
}

// Load reads, parses and validates the configuration file at path.
func Load(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	doc, err := Parse(data)
	if err != nil {
		return nil, err
	}
	if err := Validate(doc); err != nil {
		return nil, err
	}
	return doc, nil
}

func (s *section) set(key string, v Value) {
	s.order = append(s.order, key)
	s.opts[key] = v
}

// stripComment removes a # comment. A comment either occupies the whole
// line or is preceded by whitespace, so values may still contain #.
func stripComment(line string) string {
	if i := strings.IndexByte(line, '#'); i >= 0 {
		if i == 0 || strings.TrimSpace(line[:i]) == "" {
			return ""
		}
		if line[i-1] == ' ' || line[i-1] == '\t' {
			return line[:i]
		}
	}
	return line
}

func validName(name string) bool {
	if name == "" {
		return false
	}
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		case r == '_', r == '-', r == '.':
		default:
			return false
		}
	}
	return true
}

// Sections returns section names in declaration order.
func (d *Document) Sections() []string {
	out := make([]string, len(d.order))
	copy(out, d.order)
	return out
}

// Options returns option names of a section in declaration order.
func (d *Document) Options(sec string) []string {
	s, ok := d.index[sec]
	if !ok {
		return nil
	}
	out := make([]string, len(s.order))
	copy(out, s.order)
	return out
}

// Has reports whether the option is present.
func (d *Document) Has(sec, key string) bool {
	s, ok := d.index[sec]
	if !ok {
		return false
	}
	_, ok = s.opts[key]
	return ok
}

// Get returns the raw value of an option. It fails with a
// *MissingOptionError when the section or option is absent; there is no
// implicit defaulting.
func (d *Document) Get(sec, key string) (Value, error) {
	s, ok := d.index[sec]
	if !ok {
		return Value{}, &MissingOptionError{Section: sec}
	}
	v, ok := s.opts[key]
	if !ok {
		return Value{}, &MissingOptionError{Section: sec, Option: key}
	}
	return v, nil
}

// GetString returns a scalar option.
func (d *Document) GetString(sec, key string) (string, error) {
	v, err := d.Get(sec, key)
	if err != nil {
		return "", err
	}
	if v.IsList {
		return "", &ValidationError{Section: sec, Option: key, Msg: "expected a scalar value, got a list"}
	}
	return v.Scalar, nil
}

// GetInt returns an integer option.
func (d *Document) GetInt(sec, key string) (int, error) {
	s, err := d.GetString(sec, key)
	if err != nil {
		return 0, err
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, &ValidationError{Section: sec, Option: key, Msg: fmt.Sprintf("not an integer: %q", s)}
	}
	return n, nil
}

// GetBool returns a boolean option. Recognized tokens are true/yes/on/1 and
// false/no/off/0, case-insensitive.
func (d *Document) GetBool(sec, key string) (bool, error) {
	s, err := d.GetString(sec, key)
	if err != nil {
		return false, err
	}
	b, ok := parseBool(s)
	if !ok {
		return false, &ValidationError{Section: sec, Option: key, Msg: fmt.Sprintf("not a boolean: %q", s)}
	}
	return b, nil
}

// GetList returns a list option in written order. A single scalar is
// treated as a one-element list, an empty scalar as an empty list.
func (d *Document) GetList(sec, key string) ([]string, error) {
	v, err := d.Get(sec, key)
	if err != nil {
		return nil, err
	}
	if v.IsList {
		out := make([]string, len(v.List))
		copy(out, v.List)
		return out, nil
	}
	if v.Scalar == "" {
		return nil, nil
	}
	return []string{v.Scalar}, nil
}

func parseBool(s string) (value, ok bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true", "yes", "on", "1":
		return true, true
	case "false", "no", "off", "0":
		return false, true
	}
	return false, false
}

// Encode writes the document back out as sectioned key-value text. The
// output parses back to a document equal to the receiver.
func (d *Document) Encode(w io.Writer) error {
	bw := bufio.NewWriter(w)
	for i, name := range d.order {
		if i > 0 {
			fmt.Fprintln(bw)
		}
		fmt.Fprintf(bw, "[%s]\n", name)
		s := d.index[name]
		for _, key := range s.order {
			v := s.opts[key]
			if v.IsList {
				fmt.Fprintf(bw, "%s =\n", key)
				for _, item := range v.List {
					fmt.Fprintf(bw, "\t%s\n", item)
				}
				continue
			}
			if v.Scalar == "" {
				fmt.Fprintf(bw, "%s =\n", key)
				continue
			}
			fmt.Fprintf(bw, "%s = %s\n", key, v.Scalar)
		}
	}
	return bw.Flush()
}

// Equal reports structural equality: same sections, options and values in
// the same order.
func (d *Document) Equal(other *Document) bool {
	if other == nil || len(d.order) != len(other.order) {
		return false
	}
	for i, name := range d.order {
		if other.order[i] != name {
			return false
		}
		a, b := d.index[name], other.index[name]
		if len(a.order) != len(b.order) {
			return false
		}
		for j, key := range a.order {
			if b.order[j] != key {
				return false
			}
			av, bv := a.opts[key], b.opts[key]
			if av.IsList != bv.IsList || av.Scalar != bv.Scalar || len(av.List) != len(bv.List) {
				return false
			}
			for k := range av.List {
				if av.List[k] != bv.List[k] {
					return false
				}
			}
		}
	}
	return true
}
