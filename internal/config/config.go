package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// EnvConfigPath overrides the base directory (default ~/.thoughts).
const EnvConfigPath = "THOUGHTS_CONFIG_PATH"

// Store backends.
const (
	BackendSQLite = "sqlite"
	BackendBolt   = "bolt"
)

// Config holds application configuration.
type Config struct {
	// StoreBackend selects the operation log storage: "sqlite" (default) or "bolt".
	StoreBackend string `json:"store_backend,omitempty"`

	// PlaybackMaxDelayMs caps a single inter-frame pause before speed scaling.
	// 0 means use the default; a negative value disables the cap.
	PlaybackMaxDelayMs int `json:"playback_max_delay_ms,omitempty"`

	// DefaultSpeed is the initial playback multiplier.
	DefaultSpeed float64 `json:"default_speed,omitempty"`

	// AppendQueueSize bounds the number of edit operations waiting to be persisted.
	// When the queue is full new operations are dropped (and logged), typing never blocks.
	AppendQueueSize int `json:"append_queue_size,omitempty"`

	// DBMaxOpenConns limits the maximum number of open database connections.
	// 0 means use sql.DB default (unlimited).
	DBMaxOpenConns int `json:"db_max_open_conns,omitempty"`

	// DBMaxIdleConns limits the maximum number of idle database connections.
	DBMaxIdleConns int `json:"db_max_idle_conns,omitempty"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `json:"log_level,omitempty"`

	// LogFormat is "text" or "json" for the stderr handler.
	LogFormat string `json:"log_format,omitempty"`

	// LogFile enables an additional JSON log at <base>/thoughts.log.
	LogFile bool `json:"log_file,omitempty"`

	// AllowedPaths is an allowlist of directories for import/export operations.
	// Paths outside <base>/exports require either being in this list or AllowUnsafePaths=true.
	AllowedPaths []string `json:"allowed_paths,omitempty"`

	// AllowUnsafePaths disables directory restrictions for import/export.
	AllowUnsafePaths bool `json:"allow_unsafe_paths,omitempty"`

	// DisabledTools is a list of MCP tool names to exclude from registration.
	DisabledTools []string `json:"disabled_tools,omitempty"`

	// WebBind and WebPort configure the playback web UI listener.
	WebBind string `json:"web_bind,omitempty"`
	WebPort int    `json:"web_port,omitempty"`

	// BaseDir is the resolved base directory. Not read from JSON.
	BaseDir string `json:"-"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		StoreBackend:       BackendSQLite,
		PlaybackMaxDelayMs: 2000,
		DefaultSpeed:       1,
		AppendQueueSize:    256,
		LogLevel:           "info",
		LogFormat:          "text",
		WebBind:            "127.0.0.1",
		WebPort:            8417,
	}
}

// BaseDir returns $THOUGHTS_CONFIG_PATH if set, else ~/.thoughts.
func BaseDir() (string, error) {
	if p := strings.TrimSpace(os.Getenv(EnvConfigPath)); p != "" {
		return p, nil
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine home directory: %w", err)
	}
	return filepath.Join(homeDir, ".thoughts"), nil
}

// Load loads configuration from baseDir/config.json.
// Returns default config if the file doesn't exist.
// The baseDir parameter allows tests to use t.TempDir() instead of ~/.thoughts.
func Load(baseDir string) (*Config, error) {
	cfg, err := loadFile(filepath.Join(baseDir, "config.json"))
	if err != nil {
		return nil, err
	}
	cfg.BaseDir = baseDir
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects values that would make the store or player unusable.
func (c *Config) Validate() error {
	switch c.StoreBackend {
	case BackendSQLite, BackendBolt:
	default:
		return fmt.Errorf("store_backend must be one of: %s, %s (got %q)", BackendSQLite, BackendBolt, c.StoreBackend)
	}
	if c.DefaultSpeed < 0 {
		return fmt.Errorf("default_speed must be positive (got %v)", c.DefaultSpeed)
	}
	if c.AppendQueueSize < 0 {
		return fmt.Errorf("append_queue_size must not be negative (got %d)", c.AppendQueueSize)
	}
	switch c.LogFormat {
	case "", "text", "json":
	default:
		return fmt.Errorf("log_format must be text or json (got %q)", c.LogFormat)
	}
	return nil
}

// MaxDelay returns the playback pause cap; 0 means uncapped.
func (c *Config) MaxDelay() time.Duration {
	if c.PlaybackMaxDelayMs <= 0 {
		return 0
	}
	return time.Duration(c.PlaybackMaxDelayMs) * time.Millisecond
}

// ExportsDir returns the default directory for export files.
func (c *Config) ExportsDir() string {
	return filepath.Join(c.BaseDir, "exports")
}

// loadFileRaw loads configuration from a specific file path.
// Returns zero-valued config if the file doesn't exist (not defaults).
func loadFileRaw(configPath string) (*Config, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &Config{}, nil
		}
		return nil, err
	}

	cfg := &Config{}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// loadFile loads configuration from a specific file path.
// Returns default config if the file doesn't exist.
func loadFile(configPath string) (*Config, error) {
	cfg, err := loadFileRaw(configPath)
	if err != nil {
		return nil, err
	}
	return Merge(DefaultConfig(), cfg), nil
}

// Merge combines base and overlay configs.
// Overlay values take precedence for scalars; arrays are merged and deduplicated.
func Merge(base, overlay *Config) *Config {
	result := &Config{
		StoreBackend:       pickString(overlay.StoreBackend, base.StoreBackend),
		PlaybackMaxDelayMs: pickInt(overlay.PlaybackMaxDelayMs, base.PlaybackMaxDelayMs),
		AppendQueueSize:    pickInt(overlay.AppendQueueSize, base.AppendQueueSize),
		DBMaxOpenConns:     pickInt(overlay.DBMaxOpenConns, base.DBMaxOpenConns),
		DBMaxIdleConns:     pickInt(overlay.DBMaxIdleConns, base.DBMaxIdleConns),
		LogLevel:           pickString(overlay.LogLevel, base.LogLevel),
		LogFormat:          pickString(overlay.LogFormat, base.LogFormat),
		WebBind:            pickString(overlay.WebBind, base.WebBind),
		WebPort:            pickInt(overlay.WebPort, base.WebPort),
		BaseDir:            pickString(overlay.BaseDir, base.BaseDir),
	}

	result.DefaultSpeed = overlay.DefaultSpeed
	if result.DefaultSpeed == 0 {
		result.DefaultSpeed = base.DefaultSpeed
	}

	// Booleans: overlay wins if true, else base
	result.LogFile = base.LogFile || overlay.LogFile
	result.AllowUnsafePaths = base.AllowUnsafePaths || overlay.AllowUnsafePaths

	// Arrays: merge and deduplicate
	result.AllowedPaths = mergeStringSlice(base.AllowedPaths, overlay.AllowedPaths)
	result.DisabledTools = mergeStringSlice(base.DisabledTools, overlay.DisabledTools)

	return result
}

func pickString(overlay, base string) string {
	if s := strings.TrimSpace(overlay); s != "" {
		return s
	}
	return base
}

func pickInt(overlay, base int) int {
	if overlay != 0 {
		return overlay
	}
	return base
}

// mergeStringSlice combines two slices, trims whitespace, and removes duplicates.
func mergeStringSlice(a, b []string) []string {
	seen := make(map[string]bool)
	result := make([]string, 0, len(a)+len(b))

	for _, list := range [][]string{a, b} {
		for _, s := range list {
			s = strings.TrimSpace(s)
			if s != "" && !seen[s] {
				seen[s] = true
				result = append(result, s)
			}
		}
	}

	if len(result) == 0 {
		return nil
	}
	return result
}
