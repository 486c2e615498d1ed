package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"combatsim/broker/internal/catalog"
	"combatsim/broker/internal/logging"
)

func TestServiceStateUptime(t *testing.T) {
	started := time.Date(2024, time.May, 1, 12, 0, 0, 0, time.UTC)
	state := &serviceState{startedAt: started, now: func() time.Time { return started.Add(90 * time.Second) }}
	if state.Uptime() != 90*time.Second {
		t.Fatalf("unexpected uptime %s", state.Uptime())
	}
	if state.StartupError() != nil {
		t.Fatal("expected no startup error")
	}
}

func TestLoadCatalogDefaultsToBuiltin(t *testing.T) {
	cat, err := loadCatalog("", logging.NewTestLogger())
	if err != nil {
		t.Fatalf("loadCatalog: %v", err)
	}
	if cat != catalog.Default() {
		t.Fatal("expected the builtin catalog")
	}
}

func TestLoadCatalogFallsBackOnError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.yaml")
	if err := os.WriteFile(path, []byte("parts: [this is not a part"), 0o600); err != nil {
		t.Fatalf("write catalog: %v", err)
	}
	cat, err := loadCatalog(path, logging.NewTestLogger())
	if err == nil {
		t.Fatal("expected a load error")
	}
	if cat == nil {
		t.Fatal("expected the builtin catalog as fallback")
	}
}
