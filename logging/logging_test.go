package logging_test

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/registryhq/registry/config"
	"github.com/registryhq/registry/logging"
	"github.com/rs/zerolog"
)

func docFromLines(t *testing.T, lines ...string) *config.Document {
	t.Helper()
	doc, err := config.Parse([]byte(strings.Join(lines, "\n") + "\n"))
	if err != nil {
		t.Fatalf("parse config: %v", err)
	}
	return doc
}

func TestSetupJSONFile(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "registry.log")
	doc := docFromLines(t,
		"[server]",
		"debug = no",
		"[logging]",
		"output = "+logPath,
		"size = 1MB",
		"backups = 2",
		"format = json",
		"date_format = 15:04:05",
	)

	logger, closer, err := logging.Setup(doc)
	if err != nil {
		t.Fatalf("Setup() error = %v", err)
	}
	logger.Info().Str("component", "test").Msg("hello")
	if err := closer.Close(); err != nil {
		t.Fatalf("close log: %v", err)
	}

	data, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	var entry map[string]any
	if err := json.Unmarshal(data, &entry); err != nil {
		t.Fatalf("log line is not JSON: %v (line %q)", err, data)
	}
	if entry["message"] != "hello" {
		t.Errorf("message = %v, want hello", entry["message"])
	}
	if entry["component"] != "test" {
		t.Errorf("component = %v, want test", entry["component"])
	}
}

func TestSetupDebugLevel(t *testing.T) {
	doc := docFromLines(t,
		"[server]",
		"debug = yes",
		"[logging]",
		"output = -",
		"size = 1MB",
		"backups = 2",
		"format = json",
		"date_format = 15:04:05",
	)

	logger, closer, err := logging.Setup(doc)
	if err != nil {
		t.Fatalf("Setup() error = %v", err)
	}
	defer closer.Close()
	if got := logger.GetLevel(); got != zerolog.DebugLevel {
		t.Errorf("level = %v, want %v", got, zerolog.DebugLevel)
	}
}

func TestSetupConsoleFormat(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "registry.log")
	doc := docFromLines(t,
		"[logging]",
		"output = "+logPath,
		"size = 2MB",
		"backups = 1",
		"format = console",
		"date_format = 2006-01-02 15:04:05",
	)

	logger, closer, err := logging.Setup(doc)
	if err != nil {
		t.Fatalf("Setup() error = %v", err)
	}
	logger.Info().Msg("console line")
	closer.Close()

	data, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	if !strings.Contains(string(data), "console line") {
		t.Errorf("log output %q does not contain message", data)
	}
	if strings.Contains(string(data), `"message"`) {
		t.Errorf("console output %q looks like JSON", data)
	}
}

func TestSetupUnknownFormat(t *testing.T) {
	doc := docFromLines(t,
		"[logging]",
		"output = -",
		"size = 1MB",
		"backups = 1",
		"format = xml",
		"date_format = 15:04:05",
	)

	if _, _, err := logging.Setup(doc); err == nil {
		t.Fatal("Setup() accepted unknown format")
	}
}

func TestSetupMissingOption(t *testing.T) {
	doc := docFromLines(t, "[logging]", "output = -")

	if _, _, err := logging.Setup(doc); err == nil {
		t.Fatal("Setup() accepted config without format")
	}
}
