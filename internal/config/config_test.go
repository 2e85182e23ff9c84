package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoadCreatesDefault(t *testing.T) {
	path := filepath.Join(t.TempDir(), "multipane", "config.json")
	m := NewManagerAt(path)
	if err := m.Load(); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("config file not created: %v", err)
	}
	cfg := m.Get()
	if cfg.Listing.BatchSize != 400 || cfg.Search.ResultLimit != 50000 {
		t.Errorf("unexpected defaults: %+v", cfg)
	}
	if got := cfg.Resolver.StopWait(); got != 100*time.Millisecond {
		t.Errorf("StopWait = %v", got)
	}
	if got := m.JournalPath(); got != filepath.Join(filepath.Dir(path), "journal.db") {
		t.Errorf("JournalPath = %q", got)
	}
}

func TestLoadPartialKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(path, []byte(`{"search":{"resultLimit":10},"journal":{"enabled":false,"path":"/tmp/j.db"}}`), 0o644); err != nil {
		t.Fatal(err)
	}
	m := NewManagerAt(path)
	if err := m.Load(); err != nil {
		t.Fatalf("Load: %v", err)
	}
	cfg := m.Get()
	if cfg.Search.ResultLimit != 10 {
		t.Errorf("ResultLimit = %d, want 10", cfg.Search.ResultLimit)
	}
	if cfg.Search.BatchSize != 600 {
		t.Errorf("BatchSize = %d, want default 600", cfg.Search.BatchSize)
	}
	if cfg.Journal.Enabled {
		t.Error("journal should be disabled")
	}
	if m.JournalPath() != "/tmp/j.db" {
		t.Errorf("JournalPath = %q", m.JournalPath())
	}
}

func TestLoadParseErrorFallsBack(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(path, []byte(`{not json`), 0o644); err != nil {
		t.Fatal(err)
	}
	m := NewManagerAt(path)
	if err := m.Load(); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if m.ParseError() == nil {
		t.Fatal("expected parse error")
	}
	if m.Get().Transfer.CopyBufferSize != 1<<20 {
		t.Error("expected defaults after parse error")
	}
	// Broken file is left alone
	data, _ := os.ReadFile(path)
	if string(data) != `{not json` {
		t.Errorf("config was rewritten: %q", data)
	}
}

func TestUpdateSaves(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	m := NewManagerAt(path)
	if err := m.Load(); err != nil {
		t.Fatal(err)
	}
	if err := m.Update(func(c *Config) { c.Sort.Column = "size" }); err != nil {
		t.Fatalf("Update: %v", err)
	}

	var onDisk Config
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := json.Unmarshal(data, &onDisk); err != nil {
		t.Fatal(err)
	}
	if onDisk.Sort.Column != "size" {
		t.Errorf("saved column = %q", onDisk.Sort.Column)
	}

	matches, _ := filepath.Glob(filepath.Join(filepath.Dir(path), ".config-*.json"))
	if len(matches) != 0 {
		t.Errorf("temp files left behind: %v", matches)
	}
}

func TestGenerateConfigBacksUp(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")

	backup, err := GenerateConfig(path)
	if err != nil {
		t.Fatalf("GenerateConfig: %v", err)
	}
	if backup != "" {
		t.Errorf("unexpected backup %q for fresh config", backup)
	}

	if err := os.WriteFile(path, []byte(`{"sort":{"column":"type"}}`), 0o644); err != nil {
		t.Fatal(err)
	}
	backup, err = GenerateConfig(path)
	if err != nil {
		t.Fatalf("GenerateConfig: %v", err)
	}
	if !strings.HasPrefix(filepath.Base(backup), "config.backup.") {
		t.Fatalf("backup = %q", backup)
	}
	old, _ := os.ReadFile(backup)
	if !strings.Contains(string(old), `"type"`) {
		t.Errorf("backup content = %q", old)
	}
	m := NewManagerAt(path)
	if err := m.Load(); err != nil {
		t.Fatal(err)
	}
	if m.Get().Sort.Column != "name" {
		t.Errorf("config not regenerated: %+v", m.Get().Sort)
	}
}
