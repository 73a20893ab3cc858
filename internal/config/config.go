// Package config loads the agenda configuration file.
package config

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"gopkg.in/yaml.v3"
)

// EnvPath overrides the config file location.
const EnvPath = "AGENDA_CONFIG"

// Store drivers.
const (
	DriverMemory    = "memory"
	DriverSQLite    = "sqlite"
	DriverDir       = "dir"
	DriverFirestore = "firestore"
)

//go:embed schema.cue
var schemaSource string

// StoreConfig selects the document store backend.
type StoreConfig struct {
	// Driver is one of memory, sqlite, dir, firestore.
	Driver string `yaml:"driver" json:"driver"`
	// Path is the database file (sqlite) or root directory (dir).
	Path string `yaml:"path,omitempty" json:"path,omitempty"`
	// ProjectID is the Google Cloud project (firestore).
	ProjectID string `yaml:"project_id,omitempty" json:"project_id,omitempty"`
}

// Config is the top-level configuration.
type Config struct {
	// Actor owns the data: documents live under users/<actor>/.
	Actor string `yaml:"actor" json:"actor"`

	// Timezone is the IANA zone calendar dates are computed in. "Local"
	// uses the system zone.
	Timezone string `yaml:"timezone" json:"timezone"`

	Store StoreConfig `yaml:"store" json:"store"`

	// PruneSchedule is a cron expression for sweeping expired special dates
	// while `agenda watch` runs. Empty disables the schedule.
	PruneSchedule string `yaml:"prune_schedule" json:"prune_schedule"`

	// Currency is the ISO 4217 code amounts are shown in.
	Currency string `yaml:"currency" json:"currency"`

	// Locale is the BCP 47 tag used for number formatting.
	Locale string `yaml:"locale" json:"locale"`

	LogLevel string `yaml:"log_level" json:"log_level"`
}

// Default returns the default configuration. The store path is filled in by
// Load relative to the config file.
func Default() *Config {
	return &Config{
		Actor:         "local",
		Timezone:      "Local",
		Store:         StoreConfig{Driver: DriverSQLite},
		PruneSchedule: "0 0 * * *",
		Currency:      "BRL",
		Locale:        "pt-BR",
		LogLevel:      "warn",
	}
}

// Normalize fills zero values with defaults.
func (c *Config) Normalize() {
	d := Default()
	if c.Actor == "" {
		c.Actor = d.Actor
	}
	if c.Timezone == "" {
		c.Timezone = d.Timezone
	}
	if c.Store.Driver == "" {
		c.Store.Driver = d.Store.Driver
	}
	if c.Currency == "" {
		c.Currency = d.Currency
	}
	if c.Locale == "" {
		c.Locale = d.Locale
	}
	if c.LogLevel == "" {
		c.LogLevel = d.LogLevel
	}
}

// Validate checks the config against the embedded CUE schema and resolves
// the timezone.
func (c *Config) Validate() error {
	ctx := cuecontext.New()
	schema := ctx.CompileString(schemaSource, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return fmt.Errorf("config schema: %w", err)
	}

	v := schema.LookupPath(cue.ParsePath("#Config")).Unify(ctx.Encode(c))
	if err := v.Validate(cue.Concrete(true)); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if _, err := c.Location(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// Location resolves Timezone.
func (c *Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}

// DefaultPath returns $AGENDA_CONFIG, or config.yaml under the user config
// directory.
func DefaultPath() (string, error) {
	if p := os.Getenv(EnvPath); p != "" {
		return p, nil
	}
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("locate config dir: %w", err)
	}
	return filepath.Join(dir, "agenda", "config.yaml"), nil
}

// Load reads the YAML config at path.
//
// If the file does not exist a default config is written there (0600) and
// returned. Unknown keys are rejected. The result is normalized and
// validated; a relative store path is resolved against the config
// directory.
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is empty")
	}

	data, err := os.ReadFile(path)
	var cfg *Config
	switch {
	case errors.Is(err, fs.ErrNotExist):
		cfg = Default()
		cfg.Store.Path = "agenda.db"
		if err := Save(path, cfg); err != nil {
			return nil, err
		}
	case err != nil:
		return nil, err
	default:
		cfg, err = Parse(data)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
	}

	if cfg.Store.Path != "" && !filepath.IsAbs(cfg.Store.Path) {
		cfg.Store.Path = filepath.Join(filepath.Dir(path), cfg.Store.Path)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes and normalizes YAML without validating it.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	cfg.Normalize()
	return &cfg, nil
}

// Save writes cfg to path atomically with 0600 permissions, creating the
// parent directory (0700) if needed.
func Save(path string, cfg *Config) error {
	if path == "" {
		return errors.New("config path is empty")
	}
	if cfg == nil {
		return errors.New("config is nil")
	}
	cfg.Normalize()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".agenda-config-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpName, 0o600); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}
