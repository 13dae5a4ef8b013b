// ABOUTME: Tests for configuration loading
// ABOUTME: Defaults, TOML parsing, environment overrides, validation
package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// isolate points every lookup at fresh temp dirs
func isolate(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("XDG_CACHE_HOME", filepath.Join(home, "cache"))
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(home, "config"))
	t.Chdir(t.TempDir())
	return home
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	return path
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	home := isolate(t)

	cfg, err := Load(filepath.Join(home, "missing.toml"))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	wantCache := filepath.Join(home, "cache", "spotifyblob")
	if cfg.CacheDir != wantCache {
		t.Errorf("CacheDir = %q, want %q", cfg.CacheDir, wantCache)
	}
	if cfg.SettingsDir != filepath.Join(wantCache, "settings") {
		t.Errorf("SettingsDir = %q", cfg.SettingsDir)
	}
	if cfg.Media.Host != "127.0.0.1" || cfg.Media.MinPercent != 20 || cfg.Media.DialTimeout != 2*time.Second {
		t.Errorf("unexpected media defaults: %+v", cfg.Media)
	}
	if cfg.Log.Level != "info" {
		t.Errorf("Log.Level = %q, want info", cfg.Log.Level)
	}
}

func TestLoad_ParsesFile(t *testing.T) {
	home := isolate(t)
	path := writeConfig(t, `
cache_dir = "~/blob"
catalog = "  /srv/catalog.toml  "

[log]
level = "debug"
file = "~/blob/bridge.log"
max_backups = 0
compress = true

[media]
host = "localhost"
max_queue_bytes = 352800
min_percent = 50
dial_timeout = "500ms"
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if cfg.CacheDir != filepath.Join(home, "blob") {
		t.Errorf("CacheDir = %q", cfg.CacheDir)
	}
	if cfg.SettingsDir != filepath.Join(home, "blob", "settings") {
		t.Errorf("SettingsDir should follow cache_dir, got %q", cfg.SettingsDir)
	}
	if cfg.Catalog != "/srv/catalog.toml" {
		t.Errorf("Catalog = %q", cfg.Catalog)
	}
	if cfg.Log.Level != "debug" || !cfg.Log.Compress || cfg.Log.MaxBackups != 0 || cfg.Log.MaxSizeMB != 10 {
		t.Errorf("unexpected log config: %+v", cfg.Log)
	}
	if !strings.HasPrefix(cfg.Log.File, home) {
		t.Errorf("Log.File = %q, want it under %q", cfg.Log.File, home)
	}
	want := Media{Host: "localhost", MaxQueueBytes: 352800, MinPercent: 50, DialTimeout: 500 * time.Millisecond}
	if cfg.Media != want {
		t.Errorf("Media = %+v, want %+v", cfg.Media, want)
	}
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	isolate(t)
	path := writeConfig(t, `
[media]
min_percent = 50
`)
	t.Setenv("SPOTIFYBLOB_MEDIA_MIN_PERCENT", "10")
	t.Setenv("SPOTIFYBLOB_LOG_LEVEL", "warn")
	t.Setenv("SPOTIFYBLOB_MEDIA_DIAL_TIMEOUT", "3s")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Media.MinPercent != 10 || cfg.Log.Level != "warn" || cfg.Media.DialTimeout != 3*time.Second {
		t.Errorf("env overrides not applied: %+v %+v", cfg.Media, cfg.Log)
	}
}

func TestLoad_DotEnv(t *testing.T) {
	isolate(t)
	if err := os.WriteFile(".env", []byte("SPOTIFYBLOB_MEDIA_HOST=10.0.0.2\n"), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	t.Cleanup(func() { os.Unsetenv("SPOTIFYBLOB_MEDIA_HOST") })

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Media.Host != "10.0.0.2" {
		t.Errorf("Media.Host = %q, want value from .env", cfg.Media.Host)
	}
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name string
		body string
		env  map[string]string
	}{
		{name: "bad toml", body: "cache_dir = [1,"},
		{name: "bad duration", body: "[media]\ndial_timeout = \"soon\""},
		{name: "percent out of range", body: "[media]\nmin_percent = 150"},
		{name: "bad level", body: "[log]\nlevel = \"chatty\""},
		{name: "bad env int", env: map[string]string{"SPOTIFYBLOB_MEDIA_MAX_QUEUE_BYTES": "lots"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			isolate(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			if _, err := Load(writeConfig(t, tt.body)); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}
