package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestWatcherLoadsDataSources(t *testing.T) {
	dir := t.TempDir()
	content := `{"a": {"type": "sql", "connectionString": "jdbc:mysql://h/db"}}`
	if err := os.WriteFile(filepath.Join(dir, "ds.json"), []byte(content), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	w := NewWatcher(dir, 0, nil)
	got := w.DataSources()
	if len(got) != 1 {
		t.Fatalf("got %d datasources, want 1", len(got))
	}
	if got["a"].ConnectionString != "jdbc:mysql://h/db" {
		t.Fatalf("unexpected entry: %+v", got["a"])
	}
}

func TestWatcherSkipsMalformedFile(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "bad.json"), []byte("not json"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "good.json"), []byte(`{"b": {"type": "sql"}}`), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	w := NewWatcher(dir, 0, nil)
	got := w.DataSources()
	if len(got) != 1 {
		t.Fatalf("got %d datasources, want 1 (malformed file should be skipped)", len(got))
	}
}

func TestLoadServerConfigDefaultsWhenMissing(t *testing.T) {
	dir := t.TempDir()
	cfg, err := LoadServerConfig(dir)
	if err != nil {
		t.Fatalf("LoadServerConfig: %v", err)
	}
	if cfg.ServerPort != 9019 {
		t.Fatalf("ServerPort = %d, want default 9019", cfg.ServerPort)
	}
}
