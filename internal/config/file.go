package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

// fileConfig is the on-disk layout. Durations are written as text ("60s")
// so the file stays hand-editable.
type fileConfig struct {
	Graph           string        `toml:"graph"`
	LogseqPath      string        `toml:"logseq_path"`
	JetPath         string        `toml:"jet_path"`
	DisplayLimit    int           `toml:"display_limit"`
	ResolveWorkers  int           `toml:"resolve_workers"`
	RefreshInterval string        `toml:"refresh_interval"`
	StorePath       string        `toml:"store_path"`
	Log             fileLog       `toml:"log"`
	Dashboard       fileDashboard `toml:"dashboard"`
}

type fileLog struct {
	Level      string `toml:"level"`
	File       string `toml:"file,omitempty"`
	MaxSizeMB  int    `toml:"max_size_mb"`
	MaxBackups int    `toml:"max_backups"`
	MaxAgeDays int    `toml:"max_age_days"`
}

type fileDashboard struct {
	Host string `toml:"host"`
	Port int    `toml:"port"`
}

func toFile(c *Config) fileConfig {
	return fileConfig{
		Graph:           c.Graph,
		LogseqPath:      c.LogseqPath,
		JetPath:         c.JetPath,
		DisplayLimit:    c.DisplayLimit,
		ResolveWorkers:  c.ResolveWorkers,
		RefreshInterval: c.RefreshInterval.String(),
		StorePath:       c.StorePath,
		Log: fileLog{
			Level:      c.Log.Level,
			File:       c.Log.File,
			MaxSizeMB:  c.Log.MaxSizeMB,
			MaxBackups: c.Log.MaxBackups,
			MaxAgeDays: c.Log.MaxAgeDays,
		},
		Dashboard: fileDashboard{
			Host: c.Dashboard.Host,
			Port: c.Dashboard.Port,
		},
	}
}

// Encode renders c as TOML.
func Encode(c *Config) ([]byte, error) {
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(toFile(c)); err != nil {
		return nil, fmt.Errorf("encode config: %w", err)
	}
	return buf.Bytes(), nil
}

// Save writes c to path atomically, creating the directory if needed.
func Save(path string, c *Config) error {
	data, err := Encode(c)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("replace config: %w", err)
	}
	return nil
}

// setters maps each settable key to a function applying a textual value.
var setters = map[string]func(c *Config, value string) error{
	"graph":            func(c *Config, v string) error { c.Graph = v; return nil },
	"logseq_path":      func(c *Config, v string) error { c.LogseqPath = v; return nil },
	"jet_path":         func(c *Config, v string) error { c.JetPath = v; return nil },
	"display_limit":    intSetter(func(c *Config) *int { return &c.DisplayLimit }),
	"resolve_workers":  intSetter(func(c *Config) *int { return &c.ResolveWorkers }),
	"refresh_interval": durationSetter(func(c *Config) *time.Duration { return &c.RefreshInterval }),
	"store_path":       func(c *Config, v string) error { c.StorePath = v; return nil },
	"log.level":        func(c *Config, v string) error { c.Log.Level = v; return nil },
	"log.file":         func(c *Config, v string) error { c.Log.File = v; return nil },
	"log.max_size_mb":  intSetter(func(c *Config) *int { return &c.Log.MaxSizeMB }),
	"log.max_backups":  intSetter(func(c *Config) *int { return &c.Log.MaxBackups }),
	"log.max_age_days": intSetter(func(c *Config) *int { return &c.Log.MaxAgeDays }),
	"dashboard.host":   func(c *Config, v string) error { c.Dashboard.Host = v; return nil },
	"dashboard.port":   intSetter(func(c *Config) *int { return &c.Dashboard.Port }),
}

func intSetter(field func(*Config) *int) func(*Config, string) error {
	return func(c *Config, v string) error {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("not an integer: %q", v)
		}
		*field(c) = n
		return nil
	}
}

func durationSetter(field func(*Config) *time.Duration) func(*Config, string) error {
	return func(c *Config, v string) error {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("not a duration: %q", v)
		}
		*field(c) = d
		return nil
	}
}

// Keys returns every settable key in sorted order.
func Keys() []string {
	keys := make([]string, 0, len(setters))
	for k := range setters {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Set applies value to key in c.
func Set(c *Config, key, value string) error {
	set, ok := setters[strings.ToLower(key)]
	if !ok {
		return fmt.Errorf("unknown config key %q (valid keys: %s)", key, strings.Join(Keys(), ", "))
	}
	if err := set(c, value); err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	return nil
}
