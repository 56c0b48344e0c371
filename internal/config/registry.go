package config

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/emberhq/ember/internal/engine"
)

// KeyType represents the data type of a config key.
type KeyType string

const (
	KeyTypeString KeyType = "string"
	KeyTypeInt    KeyType = "int"
	KeyTypeBool   KeyType = "bool"
)

// KeyEntry describes a known, settable config key.
type KeyEntry struct {
	// Type is the value's data type (string, int, bool).
	Type KeyType
	// Desc is a human-readable description shown in `ember config list`.
	Desc string
	// DefaultStr is the string representation of the default/zero value.
	DefaultStr string

	// get returns the current value as a string.
	get func(*Config) string
	// set validates and applies the value to cfg, returning an error on type mismatch.
	set func(cfg *Config, value string) error
	// unset resets the key to its schema default.
	unset func(cfg *Config)
}

// Get returns the current value of the key as a string.
func (e *KeyEntry) Get(cfg *Config) string { return e.get(cfg) }

// Set validates and sets the value, returning a descriptive error on type mismatch.
func (e *KeyEntry) Set(cfg *Config, value string) error { return e.set(cfg, value) }

// Unset resets the key to its schema default.
func (e *KeyEntry) Unset(cfg *Config) { e.unset(cfg) }

// SchemaKeys is the authoritative registry of all settable config keys.
// Keys use dot-notation matching the TOML section structure. Validation
// happens here, at data entry — never later inside the engine.
var SchemaKeys = map[string]*KeyEntry{
	"user.name": {
		Type:       KeyTypeString,
		Desc:       "Display name",
		DefaultStr: "",
		get:        func(cfg *Config) string { return cfg.User.Name },
		set:        func(cfg *Config, v string) error { cfg.User.Name = v; return nil },
		unset:      func(cfg *Config) { cfg.User.Name = "" },
	},
	"streak.events_per_day": {
		Type:       KeyTypeInt,
		Desc:       "Events required for a day to count (goal mode when > 1)",
		DefaultStr: "1",
		get:        func(cfg *Config) string { return strconv.Itoa(cfg.Streak.EventsPerDay) },
		set: func(cfg *Config, v string) error {
			n, err := strconv.Atoi(v)
			if err != nil {
				return fmt.Errorf("invalid value %q for streak.events_per_day: not a number", v)
			}
			if n < 1 {
				return fmt.Errorf("streak.events_per_day must be >= 1, got %d", n)
			}
			cfg.Streak.EventsPerDay = n
			return nil
		},
		unset: func(cfg *Config) { cfg.Streak.EventsPerDay = 1 },
	},
	"streak.leeway_hours": {
		Type:       KeyTypeInt,
		Desc:       "Grace hours past midnight before yesterday's deadline closes (0-24)",
		DefaultStr: "0",
		get:        func(cfg *Config) string { return strconv.Itoa(cfg.Streak.LeewayHours) },
		set: func(cfg *Config, v string) error {
			n, err := strconv.Atoi(v)
			if err != nil {
				return fmt.Errorf("invalid value %q for streak.leeway_hours: not a number", v)
			}
			if n < 0 || n > 24 {
				return fmt.Errorf("streak.leeway_hours must be within [0, 24], got %d", n)
			}
			cfg.Streak.LeewayHours = n
			return nil
		},
		unset: func(cfg *Config) { cfg.Streak.LeewayHours = 0 },
	},
	"streak.freeze_policy": {
		Type:       KeyTypeString,
		Desc:       "Freeze consumption: auto, manual, or off",
		DefaultStr: "auto",
		get:        func(cfg *Config) string { return cfg.Streak.FreezePolicy },
		set: func(cfg *Config, v string) error {
			if _, err := engine.ParseFreezePolicy(v); err != nil {
				return err
			}
			cfg.Streak.FreezePolicy = v
			return nil
		},
		unset: func(cfg *Config) { cfg.Streak.FreezePolicy = "auto" },
	},
	"streak.timezone": {
		Type:       KeyTypeString,
		Desc:       "IANA timezone for day boundaries (empty = system local)",
		DefaultStr: "",
		get:        func(cfg *Config) string { return cfg.Streak.Timezone },
		set: func(cfg *Config, v string) error {
			if v != "" {
				if _, err := time.LoadLocation(v); err != nil {
					return fmt.Errorf("unknown timezone %q: %w", v, err)
				}
			}
			cfg.Streak.Timezone = v
			return nil
		},
		unset: func(cfg *Config) { cfg.Streak.Timezone = "" },
	},
	"streak.remote_authority": {
		Type:       KeyTypeBool,
		Desc:       "Trust server-side snapshots instead of the local engine",
		DefaultStr: "false",
		get:        func(cfg *Config) string { return fmt.Sprintf("%t", cfg.Streak.RemoteAuthority) },
		set: func(cfg *Config, v string) error {
			b, err := ParseBoolValue(v)
			if err != nil {
				return fmt.Errorf("invalid value %q for streak.remote_authority: %w", v, err)
			}
			cfg.Streak.RemoteAuthority = b
			return nil
		},
		unset: func(cfg *Config) { cfg.Streak.RemoteAuthority = false },
	},
	"analytics": {
		Type:       KeyTypeBool,
		Desc:       "Enable anonymous usage analytics",
		DefaultStr: "true",
		get:        func(cfg *Config) string { return fmt.Sprintf("%t", cfg.Analytics.IsEnabled()) },
		set: func(cfg *Config, v string) error {
			b, err := ParseBoolValue(v)
			if err != nil {
				return fmt.Errorf("invalid value %q for analytics: %w", v, err)
			}
			cfg.Analytics.Enabled = BoolPtr(b)
			return nil
		},
		unset: func(cfg *Config) { cfg.Analytics.Enabled = BoolPtr(true) },
	},
}

// ValidKeyNames returns the sorted list of all known config key names.
func ValidKeyNames() []string {
	names := make([]string, 0, len(SchemaKeys))
	for k := range SchemaKeys {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// LookupKey returns the KeyEntry for a known config key.
func LookupKey(key string) (*KeyEntry, bool) {
	entry, ok := SchemaKeys[key]
	return entry, ok
}

// ParseBoolValue accepts common boolean string representations.
// Valid truthy values: true, 1, yes, on.
// Valid falsy values: false, 0, no, off.
func ParseBoolValue(s string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true", "1", "yes", "on":
		return true, nil
	case "false", "0", "no", "off":
		return false, nil
	default:
		return false, fmt.Errorf("not a boolean: %q (use one of: true/false, 1/0, yes/no, on/off)", s)
	}
}

// EngineConfig converts the file-level streak settings into a validated
// engine configuration for the named streak.
func (c *Config) EngineConfig(streakID string) (engine.Config, error) {
	policy, err := engine.ParseFreezePolicy(c.Streak.FreezePolicy)
	if err != nil {
		return engine.Config{}, err
	}
	authority := engine.AuthorityLocal
	if c.Streak.RemoteAuthority {
		authority = engine.AuthorityRemote
	}
	return engine.NewConfig(streakID, c.Streak.EventsPerDay, c.Streak.LeewayHours, policy, authority)
}

// Location resolves the calculation timezone: the configured override, or
// the system local zone.
func (c *Config) Location() (*time.Location, error) {
	if c.Streak.Timezone == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Streak.Timezone)
	if err != nil {
		return nil, fmt.Errorf("loading timezone %q: %w", c.Streak.Timezone, err)
	}
	return loc, nil
}
