package bootstrap_test

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/registryhq/registry/bootstrap"
	"github.com/registryhq/registry/config"
)

// testConfig renders a complete configuration rooted in dir. The routes
// argument replaces the [stack] routes list.
func testConfig(dir string, routes []string) string {
	var b strings.Builder
	b.WriteString("[server]\nhost = 127.0.0.1\nport = 8080\ndebug = no\n\n")
	b.WriteString("[registry]\nroot_path = " + filepath.Join(dir, "content") + "\n\n")
	b.WriteString("[auth]\ncleanup_interval = 300\n\n")
	b.WriteString("[stack]\npre_init =\n\tregistry.hooks.ensure_dirs\n")
	b.WriteString("plugins =\n\tregistry.plugins.request_log\n")
	b.WriteString("routes =\n")
	for _, r := range routes {
		b.WriteString("\t" + r + "\n")
	}
	b.WriteString("background =\n\tregistry.tasks.auth_cleanup\n")
	b.WriteString("pre_stop =\n\tregistry.hooks.goodbye\n\n")
	b.WriteString("[database]\nbackend = sqlite\nnames =\n\tregistry\n")
	b.WriteString("path = " + filepath.Join(dir, "db") + "\n")
	b.WriteString("host =\nport =\nuser =\npassword =\n\n")
	b.WriteString("[logging]\nformat = json\ndate_format = 2006-01-02 15:04:05\n")
	b.WriteString("size = 1MB\nbackups = 2\noutput = " + filepath.Join(dir, "registry.log") + "\n")
	return b.String()
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "registry.ini")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestNewAssemblesApp(t *testing.T) {
	dir := t.TempDir()
	routes := []string{"registry.routes.content", "registry.routes.auth", "registry.routes.metrics"}
	path := writeConfig(t, testConfig(dir, routes))

	a, err := bootstrap.New(path)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer a.Shutdown()

	if a.Env.Content == nil || a.Env.Sessions == nil || a.Env.Databases == nil {
		t.Fatal("Env is missing services")
	}
	if got, want := a.HTTPServer.Addr, "127.0.0.1:8080"; got != want {
		t.Errorf("server addr = %q, want %q", got, want)
	}

	// The ensure_dirs hook ran at assembly.
	if _, err := os.Stat(filepath.Join(dir, "content")); err != nil {
		t.Errorf("content root not created: %v", err)
	}

	// Routes are mounted; metrics needs no session.
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	w := httptest.NewRecorder()
	a.HTTPServer.Handler.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("GET /metrics status = %d, want %d", w.Code, http.StatusOK)
	}

	// Content routes reject requests without a session.
	req = httptest.NewRequest(http.MethodGet, "/content", nil)
	w = httptest.NewRecorder()
	a.HTTPServer.Handler.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("GET /content status = %d, want %d", w.Code, http.StatusUnauthorized)
	}
}

func TestNewUnknownStackComponent(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, testConfig(dir, []string{"registry.routes.nope"}))

	if _, err := bootstrap.New(path); err == nil {
		t.Fatal("New() accepted unknown stack component")
	} else if !strings.Contains(err.Error(), "registry.routes.nope") {
		t.Errorf("error %q does not name the unknown component", err)
	}
}

func TestNewRequiresRegistryDatabase(t *testing.T) {
	dir := t.TempDir()
	content := strings.Replace(
		testConfig(dir, []string{"registry.routes.content"}),
		"names =\n\tregistry\n", "names =\n\tother\n", 1)
	path := writeConfig(t, content)

	if _, err := bootstrap.New(path); err == nil {
		t.Fatal("New() accepted configuration without a registry database")
	}
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	dir := t.TempDir()
	content := strings.Replace(
		testConfig(dir, []string{"registry.routes.content"}),
		"root_path = ", "# root_path = ", 1)
	path := writeConfig(t, content)

	_, err := bootstrap.New(path)
	var missing *config.MissingOptionError
	if !errors.As(err, &missing) {
		t.Fatalf("New() error = %v, want MissingOptionError", err)
	}
}

func TestDatabaseParams(t *testing.T) {
	doc, err := config.Parse([]byte(
		"[database]\n" +
			"backend = postgres\n" +
			"names =\n\tregistry\n" +
			"path =\n" +
			"host = db.internal\n" +
			"port = 5432\n" +
			"user = registry\n" +
			"password = s3cret\n"))
	if err != nil {
		t.Fatalf("parse config: %v", err)
	}

	got, err := bootstrap.DatabaseParams(doc)
	if err != nil {
		t.Fatalf("DatabaseParams() error = %v", err)
	}
	if got.Backend != "postgres" || got.Host != "db.internal" || got.User != "registry" || got.Password != "s3cret" {
		t.Errorf("DatabaseParams() = %+v", got)
	}
	// Port stays a string: empty means unused for file-backed backends.
	if got.Port != "5432" {
		t.Errorf("Port = %q, want %q", got.Port, "5432")
	}
}

func TestDatabaseParamsServerless(t *testing.T) {
	doc, err := config.Parse([]byte(
		"[database]\n" +
			"backend = sqlite\n" +
			"names =\n\tregistry\n" +
			"path = /var/lib/registry/db\n" +
			"host =\n" +
			"port =\n" +
			"user =\n" +
			"password =\n"))
	if err != nil {
		t.Fatalf("parse config: %v", err)
	}

	got, err := bootstrap.DatabaseParams(doc)
	if err != nil {
		t.Fatalf("DatabaseParams() error = %v", err)
	}
	if got.Path != "/var/lib/registry/db" {
		t.Errorf("Path = %q, want %q", got.Path, "/var/lib/registry/db")
	}
	if got.Host != "" || got.Port != "" || got.User != "" || got.Password != "" {
		t.Errorf("connection params = %+v, want empty for sqlite", got)
	}
}

func TestNewMissingFile(t *testing.T) {
	if _, err := bootstrap.New(filepath.Join(t.TempDir(), "absent.ini")); err == nil {
		t.Fatal("New() accepted a missing config file")
	}
}
