package config

import (
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Config holds the top-level ember configuration.
type Config struct {
	User      UserConfig      `toml:"user"`
	Streak    StreakConfig    `toml:"streak"`
	Analytics AnalyticsConfig `toml:"analytics"`
}

// StreakConfig carries the calculation rules applied to the default streak.
type StreakConfig struct {
	// EventsPerDay is the daily goal; values above 1 enable goal mode.
	EventsPerDay int `toml:"events_per_day"`
	// LeewayHours extends yesterday's deadline past midnight, 0-24.
	LeewayHours int `toml:"leeway_hours"`
	// FreezePolicy is auto, manual, or off.
	FreezePolicy string `toml:"freeze_policy"`
	// Timezone overrides the system zone for day boundaries (IANA name).
	Timezone string `toml:"timezone"`
	// RemoteAuthority bypasses the local engine; snapshots arrive from a
	// server-side recomputation instead.
	RemoteAuthority bool `toml:"remote_authority"`
}

// AnalyticsConfig controls anonymous usage analytics.
type AnalyticsConfig struct {
	// Enabled controls whether anonymous analytics are sent.
	// Defaults to true when not set in config (opt-out model).
	Enabled *bool `toml:"enabled,omitempty"`
}

// IsEnabled returns whether analytics are enabled.
// Treats nil (missing from config) as true — opt-out, not opt-in.
func (a AnalyticsConfig) IsEnabled() bool {
	if a.Enabled == nil {
		return true
	}
	return *a.Enabled
}

type UserConfig struct {
	Name string `toml:"name"`
}

// Paths returns standard XDG-compliant paths.
type Paths struct {
	ConfigDir  string
	DataDir    string
	CacheDir   string
	StateDir   string
	ConfigFile string
	DBFile     string
}

// GetPaths returns the resolved paths, respecting XDG env vars.
func GetPaths() Paths {
	home, _ := os.UserHomeDir()

	configDir := envOr("XDG_CONFIG_HOME", filepath.Join(home, ".config"))
	dataDir := envOr("XDG_DATA_HOME", filepath.Join(home, ".local", "share"))
	cacheDir := envOr("XDG_CACHE_HOME", filepath.Join(home, ".cache"))
	stateDir := envOr("XDG_STATE_HOME", filepath.Join(home, ".local", "state"))

	emberConfig := filepath.Join(configDir, "ember")
	emberData := filepath.Join(dataDir, "ember")

	return Paths{
		ConfigDir:  emberConfig,
		DataDir:    emberData,
		CacheDir:   filepath.Join(cacheDir, "ember"),
		StateDir:   filepath.Join(stateDir, "ember"),
		ConfigFile: filepath.Join(emberConfig, "config.toml"),
		DBFile:     filepath.Join(emberData, "ember.db"),
	}
}

// EnsureDirs creates all required directories.
func (p Paths) EnsureDirs() error {
	dirs := []string{p.ConfigDir, p.DataDir, p.CacheDir, p.StateDir}
	for _, d := range dirs {
		if err := os.MkdirAll(d, 0o755); err != nil {
			return err
		}
	}
	return nil
}

// Load reads config from disk, returning defaults if not found.
func Load() (*Config, error) {
	paths := GetPaths()
	cfg := &Config{}

	data, err := os.ReadFile(paths.ConfigFile)
	if err != nil {
		if os.IsNotExist(err) {
			return defaultConfig(), nil
		}
		return nil, err
	}

	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	applyDefaults(cfg)
	return cfg, nil
}

// Save writes config to disk.
func Save(cfg *Config) error {
	paths := GetPaths()
	if err := paths.EnsureDirs(); err != nil {
		return err
	}

	f, err := os.Create(paths.ConfigFile)
	if err != nil {
		return err
	}
	defer f.Close()

	return toml.NewEncoder(f).Encode(cfg)
}

// Initialized returns true if ember has been set up.
func Initialized() bool {
	paths := GetPaths()
	_, err := os.Stat(paths.ConfigFile)
	return err == nil
}

// BoolPtr returns a pointer to a bool value.
func BoolPtr(v bool) *bool {
	return &v
}

func defaultConfig() *Config {
	cfg := &Config{
		Analytics: AnalyticsConfig{
			Enabled: BoolPtr(true),
		},
	}
	applyDefaults(cfg)
	return cfg
}

// applyDefaults fills zero values left by a partial config file.
func applyDefaults(cfg *Config) {
	if cfg.Streak.EventsPerDay == 0 {
		cfg.Streak.EventsPerDay = 1
	}
	if cfg.Streak.FreezePolicy == "" {
		cfg.Streak.FreezePolicy = "auto"
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
