package config

import "fmt"

// SyntaxError reports malformed document structure: bad section headers,
// duplicate keys, or continuation lines outside a list value.
type SyntaxError struct {
	Line int
	Msg  string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("config: line %d: %s", e.Line, e.Msg)
}

// MissingOptionError reports a lookup of an option that is not present.
type MissingOptionError struct {
	Section string
	Option  string
}

func (e *MissingOptionError) Error() string {
	if e.Option == "" {
		return fmt.Sprintf("config: missing section [%s]", e.Section)
	}
	return fmt.Sprintf("config: missing option %s.%s", e.Section, e.Option)
}

// ValidationError reports a value that is present but fails its type or
// format check against the recognized-option schema.
type ValidationError struct {
	Section string
	Option  string
	Msg     string
}

func (e *ValidationError) Error() string {
	if e.Option == "" {
		return fmt.Sprintf("config: [%s]: %s", e.Section, e.Msg)
	}
	return fmt.Sprintf("config: %s.%s: %s", e.Section, e.Option, e.Msg)
}
