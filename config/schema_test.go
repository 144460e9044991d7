package config_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/registryhq/registry/config"
)

func validDoc(t *testing.T) *config.Document {
	t.Helper()
	return mustParse(t, sampleConfig)
}

func replaceLine(t *testing.T, old, new string) string {
	t.Helper()
	if !strings.Contains(sampleConfig, old) {
		t.Fatalf("sample config does not contain %q", old)
	}
	return strings.Replace(sampleConfig, old, new, 1)
}

func TestValidate_ValidDocument(t *testing.T) {
	if err := config.Validate(validDoc(t)); err != nil {
		t.Errorf("Validate() error = %v, want nil", err)
	}
}

func TestValidate_NonNumericIntegers(t *testing.T) {
	cases := []struct{ old, new string }{
		{"port = 80", "port = eighty"},
		{"cleanup_interval = 300", "cleanup_interval = often"},
		{"backups = 4", "backups = some"},
	}
	for _, tc := range cases {
		doc := mustParse(t, replaceLine(t, tc.old, tc.new))
		err := config.Validate(doc)
		var verr *config.ValidationError
		if !errors.As(err, &verr) {
			t.Errorf("Validate() with %q: error = %v, want *ValidationError", tc.new, err)
		}
	}
}

func TestValidate_BadBoolean(t *testing.T) {
	doc := mustParse(t, replaceLine(t, "debug = true", "debug = maybe"))
	var verr *config.ValidationError
	if err := config.Validate(doc); !errors.As(err, &verr) {
		t.Errorf("Validate() error = %v, want *ValidationError", err)
	}
}

func TestValidate_BadSize(t *testing.T) {
	for _, bad := range []string{"size = huge", "size = 10", "size = MB", "size = -5MB"} {
		doc := mustParse(t, replaceLine(t, "size = 10MB", bad))
		var verr *config.ValidationError
		if err := config.Validate(doc); !errors.As(err, &verr) {
			t.Errorf("Validate() with %q: error = %v, want *ValidationError", bad, err)
		}
	}
}

func TestValidate_BackendEnum(t *testing.T) {
	doc := mustParse(t, replaceLine(t, "backend = sqlite", "backend = mongodb"))
	var verr *config.ValidationError
	if err := config.Validate(doc); !errors.As(err, &verr) {
		t.Errorf("Validate() error = %v, want *ValidationError", err)
	}
}

func TestValidate_PortRange(t *testing.T) {
	doc := mustParse(t, replaceLine(t, "port = 80", "port = 70000"))
	var verr *config.ValidationError
	if err := config.Validate(doc); !errors.As(err, &verr) {
		t.Errorf("Validate() error = %v, want *ValidationError", err)
	}
}

func TestValidate_MissingRequiredOption(t *testing.T) {
	doc := mustParse(t, replaceLine(t, "root_path = /var/lib/registry", "# removed"))
	err := config.Validate(doc)
	var missing *config.MissingOptionError
	if !errors.As(err, &missing) {
		t.Fatalf("Validate() error = %v, want *MissingOptionError", err)
	}
	if missing.Section != "registry" || missing.Option != "root_path" {
		t.Errorf("missing = %s.%s, want registry.root_path", missing.Section, missing.Option)
	}
}

func TestValidate_UnrecognizedOption(t *testing.T) {
	doc := mustParse(t, replaceLine(t, "debug = true", "debug = true\nshiny = very"))
	var verr *config.ValidationError
	if err := config.Validate(doc); !errors.As(err, &verr) {
		t.Fatalf("Validate() error = %v, want *ValidationError", err)
	}
}

func TestValidate_UnrecognizedSection(t *testing.T) {
	doc := mustParse(t, sampleConfig+"\n[cache]\nsize = 10\n")
	var verr *config.ValidationError
	if err := config.Validate(doc); !errors.As(err, &verr) {
		t.Fatalf("Validate() error = %v, want *ValidationError", err)
	}
}

func TestValidate_BadDottedPath(t *testing.T) {
	doc := mustParse(t, replaceLine(t, "\tregistry.routes.content", "\tnot a path"))
	var verr *config.ValidationError
	if err := config.Validate(doc); !errors.As(err, &verr) {
		t.Fatalf("Validate() error = %v, want *ValidationError", err)
	}
}

func TestValidate_SQLitePathRequired(t *testing.T) {
	doc := mustParse(t, replaceLine(t, "path = /var/lib/registry/db", "path ="))
	var verr *config.ValidationError
	if err := config.Validate(doc); !errors.As(err, &verr) {
		t.Fatalf("Validate() error = %v, want *ValidationError", err)
	}
}

func TestParseSize(t *testing.T) {
	cases := []struct {
		in   string
		want int64
	}{
		{"100B", 100},
		{"512KB", 512 << 10},
		{"10MB", 10 << 20},
		{"2GB", 2 << 30},
		{"10 MB", 10 << 20},
		{"10mb", 10 << 20},
	}
	for _, tc := range cases {
		got, err := config.ParseSize(tc.in)
		if err != nil {
			t.Errorf("ParseSize(%q) error = %v", tc.in, err)
			continue
		}
		if got != tc.want {
			t.Errorf("ParseSize(%q) = %d, want %d", tc.in, got, tc.want)
		}
	}

	for _, bad := range []string{"", "MB", "ten", "10TB2"} {
		if _, err := config.ParseSize(bad); err == nil {
			t.Errorf("ParseSize(%q) error = nil, want error", bad)
		}
	}
}
