// Package config loads and saves lqt's configuration.
//
// Values are layered, later sources winning: built-in defaults, the TOML
// config file, LQT_* environment variables, then command-line flags bound
// by the caller.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"

	"github.com/mschirtzinger/logseq-tasks/internal/logseq"
)

// EnvPrefix is the prefix of environment overrides, e.g. LQT_GRAPH.
const EnvPrefix = "LQT"

// Defaults.
const (
	DefaultLogseqPath      = "/opt/homebrew/bin/logseq"
	DefaultJetPath         = "/opt/homebrew/bin/jet"
	DefaultDisplayLimit    = 50
	DefaultResolveWorkers  = 4
	DefaultRefreshInterval = 60 * time.Second
	DefaultDashboardPort   = 8787
	DefaultLogLevel        = "info"
)

// Config is the full application configuration.
type Config struct {
	// Graph is the DB graph queried by default.
	Graph string `mapstructure:"graph" validate:"required"`

	LogseqPath string `mapstructure:"logseq_path" validate:"required,file"`
	JetPath    string `mapstructure:"jet_path" validate:"required,file"`

	// DisplayLimit caps how many records are shown. Zero shows everything.
	DisplayLimit int `mapstructure:"display_limit" validate:"gte=0"`

	// ResolveWorkers bounds concurrent [[uuid]] lookups.
	ResolveWorkers int `mapstructure:"resolve_workers" validate:"gte=1,lte=64"`

	// RefreshInterval is how often watch and serve re-run their query.
	RefreshInterval time.Duration `mapstructure:"refresh_interval" validate:"gte=0"`

	// StorePath is the preset database file.
	StorePath string `mapstructure:"store_path" validate:"required"`

	Log       LogConfig       `mapstructure:"log"`
	Dashboard DashboardConfig `mapstructure:"dashboard"`
}

// LogConfig configures the logger.
type LogConfig struct {
	Level string `mapstructure:"level" validate:"oneof=debug info warn error"`

	// File, when set, receives logs through a rotating writer.
	File       string `mapstructure:"file"`
	MaxSizeMB  int    `mapstructure:"max_size_mb" validate:"gte=0"`
	MaxBackups int    `mapstructure:"max_backups" validate:"gte=0"`
	MaxAgeDays int    `mapstructure:"max_age_days" validate:"gte=0"`
}

// DashboardConfig configures `lqt serve`.
type DashboardConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port" validate:"gte=1,lte=65535"`
}

// Engine returns the subset of the configuration the query client needs.
func (c *Config) Engine() logseq.Config {
	return logseq.Config{
		Graph:      c.Graph,
		LogseqPath: c.LogseqPath,
		JetPath:    c.JetPath,
	}
}

// Addr returns the dashboard listen address.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Dashboard.Host, c.Dashboard.Port)
}

var validate = validator.New()

// Validate checks the whole configuration. Failures wrap
// logseq.ErrInvalidConfig and name every offending field.
func (c *Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return &logseq.Error{Kind: logseq.ErrInvalidConfig, Op: "config", Detail: err.Error(), Err: err}
	}
	fields := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, describeFieldError(fe))
	}
	return &logseq.Error{
		Kind:   logseq.ErrInvalidConfig,
		Op:     "config",
		Detail: strings.Join(fields, "; "),
		Err:    err,
	}
}

func describeFieldError(fe validator.FieldError) string {
	name := fe.Namespace()
	if i := strings.Index(name, "."); i >= 0 {
		name = name[i+1:]
	}
	switch fe.Tag() {
	case "required":
		return name + " is required"
	case "file":
		return fmt.Sprintf("%s %q is not an existing file", name, fe.Value())
	case "oneof":
		return fmt.Sprintf("%s must be one of %s", name, fe.Param())
	default:
		return fmt.Sprintf("%s fails %s=%s", name, fe.Tag(), fe.Param())
	}
}

// NewViper returns a viper instance with defaults and environment binding
// in place. Callers bind flags to it before calling Load.
func NewViper() *viper.Viper {
	v := NewFileViper()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// NewFileViper returns a viper instance with only the defaults set, for
// reading the file as written without environment overrides.
func NewFileViper() *viper.Viper {
	v := viper.New()

	v.SetDefault("graph", "")
	v.SetDefault("logseq_path", DefaultLogseqPath)
	v.SetDefault("jet_path", DefaultJetPath)
	v.SetDefault("display_limit", DefaultDisplayLimit)
	v.SetDefault("resolve_workers", DefaultResolveWorkers)
	v.SetDefault("refresh_interval", DefaultRefreshInterval)
	v.SetDefault("store_path", DefaultStorePath())
	v.SetDefault("log.level", DefaultLogLevel)
	v.SetDefault("log.file", "")
	v.SetDefault("log.max_size_mb", 10)
	v.SetDefault("log.max_backups", 3)
	v.SetDefault("log.max_age_days", 28)
	v.SetDefault("dashboard.host", "127.0.0.1")
	v.SetDefault("dashboard.port", DefaultDashboardPort)
	return v
}

// Load reads path (if it exists) into v and decodes the result. A missing
// file is not an error; the defaults apply. Load does not validate.
func Load(v *viper.Viper, path string) (*Config, error) {
	if path == "" {
		path = DefaultPath()
	}
	if _, err := os.Stat(path); err == nil {
		v.SetConfigFile(path)
		v.SetConfigType("toml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("stat config %s: %w", path, err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	cfg.StorePath = expandHome(cfg.StorePath)
	cfg.Log.File = expandHome(cfg.Log.File)
	return &cfg, nil
}

// DefaultPath returns $XDG_CONFIG_HOME/lqt/config.toml.
func DefaultPath() string {
	dir := os.Getenv("XDG_CONFIG_HOME")
	if dir == "" {
		home, _ := os.UserHomeDir()
		dir = filepath.Join(home, ".config")
	}
	return filepath.Join(dir, "lqt", "config.toml")
}

// DefaultStorePath returns $XDG_DATA_HOME/lqt/presets.db.
func DefaultStorePath() string {
	dir := os.Getenv("XDG_DATA_HOME")
	if dir == "" {
		home, _ := os.UserHomeDir()
		dir = filepath.Join(home, ".local", "share")
	}
	return filepath.Join(dir, "lqt", "presets.db")
}

func expandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}
