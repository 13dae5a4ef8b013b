// ABOUTME: Bridge configuration loading
// ABOUTME: Defaults, then a TOML file, then .env and SPOTIFYBLOB_* environment overrides
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	toml "github.com/pelletier/go-toml/v2"

	"github.com/spotblob/spotblob/internal/logging"
)

const (
	appDir            = "spotifyblob"
	envPrefix         = "SPOTIFYBLOB_"
	defaultMediaHost  = "127.0.0.1"
	defaultMinPercent = 20
	defaultDial       = 2 * time.Second
)

// Config is the resolved bridge configuration
type Config struct {
	// CacheDir is the SDK cache and user data directory
	CacheDir    string
	SettingsDir string

	// Catalog is the local catalog file served by the built-in backend
	Catalog string

	Log   logging.Config
	Media Media
}

// Media tunes every track's relay pipeline
type Media struct {
	Host          string
	MaxQueueBytes int
	MinPercent    int
	DialTimeout   time.Duration
}

type fileConfig struct {
	CacheDir    string `toml:"cache_dir"`
	SettingsDir string `toml:"settings_dir"`
	Catalog     string `toml:"catalog"`
	Log         struct {
		Level      string `toml:"level"`
		File       string `toml:"file"`
		MaxSizeMB  *int   `toml:"max_size_mb"`
		MaxBackups *int   `toml:"max_backups"`
		MaxAgeDays *int   `toml:"max_age_days"`
		Compress   *bool  `toml:"compress"`
	} `toml:"log"`
	Media struct {
		Host          string `toml:"host"`
		MaxQueueBytes *int   `toml:"max_queue_bytes"`
		MinPercent    *int   `toml:"min_percent"`
		DialTimeout   string `toml:"dial_timeout"`
	} `toml:"media"`
}

// Default returns the configuration used when nothing overrides it
func Default() (Config, error) {
	base, err := os.UserCacheDir()
	if err != nil {
		return Config{}, fmt.Errorf("resolve cache dir: %w", err)
	}
	cache := filepath.Join(base, appDir)
	return Config{
		CacheDir:    cache,
		SettingsDir: filepath.Join(cache, "settings"),
		Catalog:     filepath.Join(cache, "catalog.toml"),
		Log: logging.Config{
			Level:      "info",
			MaxSizeMB:  10,
			MaxBackups: 3,
			MaxAgeDays: 28,
		},
		Media: Media{
			Host:        defaultMediaHost,
			MinPercent:  defaultMinPercent,
			DialTimeout: defaultDial,
		},
	}, nil
}

// DefaultPath is where Load looks when no path is given
func DefaultPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("resolve config dir: %w", err)
	}
	return filepath.Join(dir, appDir, "config.toml"), nil
}

// Load resolves configuration. A missing file yields defaults; a .env
// file in the working directory is loaded without overriding variables
// already set.
func Load(path string) (Config, error) {
	cfg, err := Default()
	if err != nil {
		return Config{}, err
	}

	if strings.TrimSpace(path) == "" {
		if path, err = DefaultPath(); err != nil {
			return Config{}, err
		}
	}
	path, err = expandPath(path)
	if err != nil {
		return Config{}, err
	}

	if err := cfg.loadFile(path); err != nil {
		return Config{}, err
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}
	if err := cfg.applyEnv(); err != nil {
		return Config{}, err
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}

	var raw fileConfig
	if err := toml.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("parse config: %w", err)
	}

	if v := strings.TrimSpace(raw.CacheDir); v != "" {
		c.CacheDir = mustExpand(v)
		c.SettingsDir = filepath.Join(c.CacheDir, "settings")
		c.Catalog = filepath.Join(c.CacheDir, "catalog.toml")
	}
	if v := strings.TrimSpace(raw.SettingsDir); v != "" {
		c.SettingsDir = mustExpand(v)
	}
	if v := strings.TrimSpace(raw.Catalog); v != "" {
		c.Catalog = mustExpand(v)
	}

	if v := strings.TrimSpace(raw.Log.Level); v != "" {
		c.Log.Level = v
	}
	if v := strings.TrimSpace(raw.Log.File); v != "" {
		c.Log.File = mustExpand(v)
	}
	setInt(&c.Log.MaxSizeMB, raw.Log.MaxSizeMB)
	setInt(&c.Log.MaxBackups, raw.Log.MaxBackups)
	setInt(&c.Log.MaxAgeDays, raw.Log.MaxAgeDays)
	if raw.Log.Compress != nil {
		c.Log.Compress = *raw.Log.Compress
	}

	if v := strings.TrimSpace(raw.Media.Host); v != "" {
		c.Media.Host = v
	}
	setInt(&c.Media.MaxQueueBytes, raw.Media.MaxQueueBytes)
	setInt(&c.Media.MinPercent, raw.Media.MinPercent)
	if v := strings.TrimSpace(raw.Media.DialTimeout); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("parse media.dial_timeout: %w", err)
		}
		c.Media.DialTimeout = d
	}
	return nil
}

func setInt(dst *int, v *int) {
	if v != nil {
		*dst = *v
	}
}

func (c *Config) applyEnv() error {
	if v, ok := lookup("CACHE_DIR"); ok {
		c.CacheDir = mustExpand(v)
	}
	if v, ok := lookup("SETTINGS_DIR"); ok {
		c.SettingsDir = mustExpand(v)
	}
	if v, ok := lookup("CATALOG"); ok {
		c.Catalog = mustExpand(v)
	}
	if v, ok := lookup("LOG_LEVEL"); ok {
		c.Log.Level = v
	}
	if v, ok := lookup("LOG_FILE"); ok {
		c.Log.File = mustExpand(v)
	}
	if v, ok := lookup("MEDIA_HOST"); ok {
		c.Media.Host = v
	}
	if err := envInt("MEDIA_MAX_QUEUE_BYTES", &c.Media.MaxQueueBytes); err != nil {
		return err
	}
	if err := envInt("MEDIA_MIN_PERCENT", &c.Media.MinPercent); err != nil {
		return err
	}
	if v, ok := lookup("MEDIA_DIAL_TIMEOUT"); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("parse %sMEDIA_DIAL_TIMEOUT: %w", envPrefix, err)
		}
		c.Media.DialTimeout = d
	}
	return nil
}

func lookup(key string) (string, bool) {
	v, ok := os.LookupEnv(envPrefix + key)
	v = strings.TrimSpace(v)
	return v, ok && v != ""
}

func envInt(key string, dst *int) error {
	v, ok := lookup(key)
	if !ok {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("parse %s%s: %w", envPrefix, key, err)
	}
	*dst = n
	return nil
}

// Validate rejects values the bridge cannot run with
func (c Config) Validate() error {
	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		return err
	}
	if c.Media.MinPercent < 0 || c.Media.MinPercent > 100 {
		return fmt.Errorf("media.min_percent must be within 0-100, got %d", c.Media.MinPercent)
	}
	if c.Media.MaxQueueBytes < 0 {
		return fmt.Errorf("media.max_queue_bytes must not be negative")
	}
	if c.Media.DialTimeout <= 0 {
		return fmt.Errorf("media.dial_timeout must be positive")
	}
	if c.CacheDir == "" {
		return fmt.Errorf("cache_dir is empty")
	}
	return nil
}

func mustExpand(path string) string {
	expanded, err := expandPath(path)
	if err != nil {
		return path
	}
	return expanded
}

func expandPath(path string) (string, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return "", fmt.Errorf("path is empty")
	}
	if strings.HasPrefix(trimmed, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		trimmed = filepath.Join(home, strings.TrimPrefix(trimmed, "~"))
	}
	return filepath.Abs(trimmed)
}
