package logging

import (
	"os"
	"path/filepath"
	"testing"

	"ghostpace/pkg/config"
)

func TestInit(t *testing.T) {
	tempDir := t.TempDir()
	serverLog := filepath.Join(tempDir, "server.log")

	cfg := &config.LogConfig{
		Server: config.LogSettings{
			Path:  serverLog,
			Level: "DEBUG",
		},
	}

	cleanup, err := Init(cfg)
	if err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	defer cleanup()

	if _, err := os.Stat(serverLog); os.IsNotExist(err) {
		t.Error("Server log file not created")
	}
}

func TestInitConsoleOnly(t *testing.T) {
	cfg := &config.LogConfig{
		Server: config.LogSettings{Level: "INFO"},
	}

	cleanup, err := Init(cfg)
	if err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	defer cleanup()
}

func TestRotate(t *testing.T) {
	tempDir := t.TempDir()
	path := filepath.Join(tempDir, "server.log")

	if err := os.WriteFile(path, []byte("previous run"), 0o644); err != nil {
		t.Fatal(err)
	}

	rotate(path)

	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("expected original log to be moved away")
	}
	data, err := os.ReadFile(path + ".old")
	if err != nil {
		t.Fatalf("expected .old log: %v", err)
	}
	if string(data) != "previous run" {
		t.Errorf("rotated content = %q", data)
	}
}
