package config_test

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/registryhq/registry/config"
)

const sampleConfig = `
# Registry configuration.

[server]
host = 0.0.0.0
port = 80
debug = true

[registry]
root_path = /var/lib/registry

[auth]
cleanup_interval = 300

[stack]
pre_init =
	registry.hooks.ensure_dirs
plugins =
	registry.plugins.request_log
routes =
	registry.routes.content
	registry.routes.metrics
background =
	registry.tasks.auth_cleanup
pre_stop =
	registry.hooks.goodbye

[database]
backend = sqlite
names =
	registry
path = /var/lib/registry/db
host =
port =
user =
password =

[logging]
format = json
date_format = 2006-01-02 15:04:05
size = 10MB
backups = 4
output = /var/log/registry.log
`

func mustParse(t *testing.T, text string) *config.Document {
	t.Helper()
	doc, err := config.Parse([]byte(text))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	return doc
}

func TestParse_ScalarTypes(t *testing.T) {
	doc := mustParse(t, sampleConfig)

	port, err := doc.GetInt("server", "port")
	if err != nil {
		t.Fatalf("GetInt(server, port) error = %v", err)
	}
	if port != 80 {
		t.Errorf("port = %d, want 80", port)
	}

	debug, err := doc.GetBool("server", "debug")
	if err != nil {
		t.Fatalf("GetBool(server, debug) error = %v", err)
	}
	if !debug {
		t.Error("debug = false, want true")
	}

	host, err := doc.GetString("server", "host")
	if err != nil {
		t.Fatalf("GetString(server, host) error = %v", err)
	}
	if host != "0.0.0.0" {
		t.Errorf("host = %q, want 0.0.0.0", host)
	}
}

func TestParse_ListOrderPreserved(t *testing.T) {
	doc := mustParse(t, sampleConfig)

	routes, err := doc.GetList("stack", "routes")
	if err != nil {
		t.Fatalf("GetList(stack, routes) error = %v", err)
	}
	want := []string{"registry.routes.content", "registry.routes.metrics"}
	if len(routes) != len(want) {
		t.Fatalf("len(routes) = %d, want %d", len(routes), len(want))
	}
	for i := range want {
		if routes[i] != want[i] {
			t.Errorf("routes[%d] = %q, want %q", i, routes[i], want[i])
		}
	}
}

func TestParse_EmptyScalar(t *testing.T) {
	doc := mustParse(t, sampleConfig)

	host, err := doc.GetString("database", "host")
	if err != nil {
		t.Fatalf("GetString(database, host) error = %v", err)
	}
	if host != "" {
		t.Errorf("database.host = %q, want empty", host)
	}
}

func TestParse_Idempotent(t *testing.T) {
	a := mustParse(t, sampleConfig)
	b := mustParse(t, sampleConfig)
	if !a.Equal(b) {
		t.Error("parsing the same text twice yielded unequal documents")
	}
}

func TestEncode_RoundTrip(t *testing.T) {
	doc := mustParse(t, sampleConfig)

	var buf bytes.Buffer
	if err := doc.Encode(&buf); err != nil {
		t.Fatalf("Encode() error = %v", err)
	}

	again, err := config.Parse(buf.Bytes())
	if err != nil {
		t.Fatalf("re-Parse() error = %v\nencoded:\n%s", err, buf.String())
	}
	if !doc.Equal(again) {
		t.Errorf("round-trip document differs\nencoded:\n%s", buf.String())
	}
}

func TestParse_DuplicateKeyFails(t *testing.T) {
	text := "[server]\nport = 80\nport = 8080\n"
	_, err := config.Parse([]byte(text))
	var syntaxErr *config.SyntaxError
	if !errors.As(err, &syntaxErr) {
		t.Fatalf("Parse() error = %v, want *SyntaxError", err)
	}
	if syntaxErr.Line != 3 {
		t.Errorf("error line = %d, want 3", syntaxErr.Line)
	}
}

func TestParse_DuplicateSectionFails(t *testing.T) {
	text := "[server]\nport = 80\n[server]\nhost = x\n"
	var syntaxErr *config.SyntaxError
	if _, err := config.Parse([]byte(text)); !errors.As(err, &syntaxErr) {
		t.Fatalf("Parse() error = %v, want *SyntaxError", err)
	}
}

func TestParse_MalformedHeaderFails(t *testing.T) {
	for _, text := range []string{"[server\nport = 80\n", "[]\n", "[ser ver]\n"} {
		var syntaxErr *config.SyntaxError
		if _, err := config.Parse([]byte(text)); !errors.As(err, &syntaxErr) {
			t.Errorf("Parse(%q) error = %v, want *SyntaxError", text, err)
		}
	}
}

func TestParse_ContinuationOutsideListFails(t *testing.T) {
	text := "[stack]\nroutes = registry.routes.content\n\tregistry.routes.metrics\n"
	var syntaxErr *config.SyntaxError
	if _, err := config.Parse([]byte(text)); !errors.As(err, &syntaxErr) {
		t.Fatalf("Parse() error = %v, want *SyntaxError", err)
	}
}

func TestParse_KeyOutsideSectionFails(t *testing.T) {
	var syntaxErr *config.SyntaxError
	if _, err := config.Parse([]byte("port = 80\n")); !errors.As(err, &syntaxErr) {
		t.Fatalf("Parse() error = %v, want *SyntaxError", err)
	}
}

func TestGet_MissingOption(t *testing.T) {
	doc := mustParse(t, sampleConfig)

	_, err := doc.Get("server", "nonexistent")
	var missing *config.MissingOptionError
	if !errors.As(err, &missing) {
		t.Fatalf("Get() error = %v, want *MissingOptionError", err)
	}
	if missing.Section != "server" || missing.Option != "nonexistent" {
		t.Errorf("missing = %s.%s, want server.nonexistent", missing.Section, missing.Option)
	}

	if _, err := doc.Get("nosuch", "key"); !errors.As(err, &missing) {
		t.Fatalf("Get() error for absent section = %v, want *MissingOptionError", err)
	}
}

func TestGetBool_RecognizedTokens(t *testing.T) {
	cases := []struct {
		raw  string
		want bool
	}{
		{"true", true}, {"yes", true}, {"on", true}, {"1", true},
		{"false", false}, {"no", false}, {"off", false}, {"0", false},
		{"TRUE", true}, {"No", false},
	}
	for _, tc := range cases {
		doc := mustParse(t, "[server]\ndebug = "+tc.raw+"\n")
		got, err := doc.GetBool("server", "debug")
		if err != nil {
			t.Errorf("GetBool(%q) error = %v", tc.raw, err)
			continue
		}
		if got != tc.want {
			t.Errorf("GetBool(%q) = %v, want %v", tc.raw, got, tc.want)
		}
	}

	doc := mustParse(t, "[server]\ndebug = maybe\n")
	if _, err := doc.GetBool("server", "debug"); err == nil {
		t.Error("GetBool(maybe) error = nil, want error")
	}
}

func TestGetList_SingleScalar(t *testing.T) {
	doc := mustParse(t, "[database]\nnames = registry\n")
	names, err := doc.GetList("database", "names")
	if err != nil {
		t.Fatalf("GetList() error = %v", err)
	}
	if len(names) != 1 || names[0] != "registry" {
		t.Errorf("names = %v, want [registry]", names)
	}
}

func TestParse_CommentsAndBlankLines(t *testing.T) {
	text := strings.Join([]string{
		"# leading comment",
		"",
		"[server]",
		"  # indented comment",
		"host = 10.0.0.1 # trailing comment",
		"port = 80",
		"",
	}, "\n")
	doc := mustParse(t, text)

	host, err := doc.GetString("server", "host")
	if err != nil {
		t.Fatalf("GetString() error = %v", err)
	}
	if host != "10.0.0.1" {
		t.Errorf("host = %q, want 10.0.0.1", host)
	}
}

func TestSectionsAndOptions_Order(t *testing.T) {
	doc := mustParse(t, sampleConfig)

	secs := doc.Sections()
	want := []string{"server", "registry", "auth", "stack", "database", "logging"}
	if len(secs) != len(want) {
		t.Fatalf("Sections() = %v, want %v", secs, want)
	}
	for i := range want {
		if secs[i] != want[i] {
			t.Errorf("Sections()[%d] = %q, want %q", i, secs[i], want[i])
		}
	}

	opts := doc.Options("stack")
	wantOpts := []string{"pre_init", "plugins", "routes", "background", "pre_stop"}
	for i := range wantOpts {
		if opts[i] != wantOpts[i] {
			t.Errorf("Options(stack)[%d] = %q, want %q", i, opts[i], wantOpts[i])
		}
	}
}
