package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoggingConfig_PrepareFile(t *testing.T) {
	dest := filepath.Join(t.TempDir(), "run.log")
	conf := LoggingConfig{
		ConsoleLogger: LoggerConfig{Level: "none"},
		FileLogger:    LoggerConfig{Level: "normal", Destination: dest, Mode: "overwrite"},
	}

	log, err := conf.Prepare(false)
	if err != nil {
		t.Fatalf("Prepare() error = %v", err)
	}
	log.Debug("hidden")
	log.Info("visible")
	_ = log.Sync()

	data, err := os.ReadFile(dest)
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(string(data), "hidden") || !strings.Contains(string(data), "visible") {
		t.Errorf("unexpected log content: %s", data)
	}
	if !strings.Contains(string(data), AppName) {
		t.Error("logger is not named")
	}
}

func TestLoggingConfig_PrepareDebug(t *testing.T) {
	dest := filepath.Join(t.TempDir(), "run.log")
	conf := LoggingConfig{
		ConsoleLogger: LoggerConfig{Level: "none"},
		FileLogger:    LoggerConfig{Level: "normal", Destination: dest, Mode: "append"},
	}

	log, err := conf.Prepare(true)
	if err != nil {
		t.Fatalf("Prepare() error = %v", err)
	}
	log.Debug("details")
	_ = log.Sync()

	data, err := os.ReadFile(dest)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "details") {
		t.Errorf("debug message missing: %s", data)
	}
}

func TestLoggingConfig_PrepareRedirects(t *testing.T) {
	t.Setenv("TMPDIR", t.TempDir())
	conf := LoggingConfig{
		ConsoleLogger: LoggerConfig{Level: "none"},
		FileLogger:    LoggerConfig{Level: "debug", Destination: filepath.Join(t.TempDir(), "missing", "run.log")},
	}
	if _, err := conf.Prepare(false); err != nil {
		t.Fatalf("Prepare() should fall back to a temporary file: %v", err)
	}
}
