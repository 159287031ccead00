package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadFromPathDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("{}\n"), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("LoadFromPath failed: %v", err)
	}
	if cfg.Registry.StateDir != ".kestrel" {
		t.Errorf("state_dir = %q, want .kestrel", cfg.Registry.StateDir)
	}
	if cfg.Lock.Timeout != 5*time.Second {
		t.Errorf("lock.timeout = %v, want 5s", cfg.Lock.Timeout)
	}
	if cfg.Lock.Stale != 30*time.Second {
		t.Errorf("lock.stale = %v, want 30s", cfg.Lock.Stale)
	}
	if cfg.Cleanup.MaxAge != 7*24*time.Hour {
		t.Errorf("cleanup.max_age = %v, want 168h", cfg.Cleanup.MaxAge)
	}
	if cfg.Registry.Archive {
		t.Error("archive should default to off")
	}
}

func TestLoadFromPathOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
registry:
  state_dir: /var/lib/kestrel
  actor: ci-runner
  archive: true
lock:
  timeout: 10s
  stale: 1m
cleanup:
  max_age: 72h
watch:
  refresh_rate: 500ms
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("LoadFromPath failed: %v", err)
	}
	if cfg.Registry.StateDir != "/var/lib/kestrel" {
		t.Errorf("state_dir = %q", cfg.Registry.StateDir)
	}
	if cfg.Registry.Actor != "ci-runner" {
		t.Errorf("actor = %q", cfg.Registry.Actor)
	}
	if !cfg.Registry.Archive {
		t.Error("archive should be enabled")
	}
	if cfg.Lock.Timeout != 10*time.Second || cfg.Lock.Stale != time.Minute {
		t.Errorf("lock = %+v", cfg.Lock)
	}
	if cfg.Cleanup.MaxAge != 72*time.Hour {
		t.Errorf("max_age = %v", cfg.Cleanup.MaxAge)
	}
	if cfg.Watch.RefreshRate != 500*time.Millisecond {
		t.Errorf("refresh_rate = %v", cfg.Watch.RefreshRate)
	}
}

func TestLoadFromPathMissingFile(t *testing.T) {
	if _, err := LoadFromPath(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("KESTREL_STATE_DIR", "/tmp/kestrel-env")
	t.Setenv("KESTREL_ACTOR", "env-actor")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Registry.StateDir != "/tmp/kestrel-env" {
		t.Errorf("state_dir = %q, want env value", cfg.Registry.StateDir)
	}
	if cfg.Registry.Actor != "env-actor" {
		t.Errorf("actor = %q, want env value", cfg.Registry.Actor)
	}
}

func TestGetUserConfigPath(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)
	want := filepath.Join(dir, "kestrel", "config.yaml")
	if got := GetUserConfigPath(); got != want {
		t.Errorf("GetUserConfigPath() = %q, want %q", got, want)
	}
}
