// Package config reads the vbridge configuration file.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"src.vbridge.sh/pkg/env"
	"src.vbridge.sh/pkg/retained"
)

// Config is the configuration of vbridge. The zero value of each field means
// the default.
type Config struct {
	// Log file. Empty means no logging.
	Log string `yaml:"log"`
	// Journal database. Empty means no journal.
	Journal string `yaml:"journal"`
	// Whether to reload the program when its file changes.
	Watch *bool `yaml:"watch"`
	// Debounce interval for reloads.
	Debounce time.Duration `yaml:"debounce"`
	// Whether to enable mouse reporting in the terminal.
	Mouse *bool `yaml:"mouse"`
	// Maps element tags to blueprint names, extending the default mapping.
	Tags map[string]string `yaml:"tags"`
	// Size for headless rendering.
	Width  int `yaml:"width"`
	Height int `yaml:"height"`
}

// Defaults.
const (
	DefaultWidth    = 60
	DefaultHeight   = 20
	DefaultDebounce = 200 * time.Millisecond
)

// Parse parses a configuration. Unknown keys are errors.
func Parse(data []byte) (*Config, error) {
	var c Config
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&c); err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}
	if c.Width < 0 || c.Height < 0 {
		return nil, fmt.Errorf("negative size %dx%d", c.Width, c.Height)
	}
	if _, err := c.Blueprints(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Load reads a configuration file. If path is empty, the default path is used,
// and a missing file yields the default configuration.
func Load(path string) (*Config, error) {
	explicit := path != ""
	if !explicit {
		path = DefaultPath()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if !explicit && errors.Is(err, os.ErrNotExist) {
			return &Config{}, nil
		}
		return nil, err
	}
	c, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return c, nil
}

// DefaultPath returns the path of the configuration file when none is given:
// $VBRIDGE_CONFIG, or vbridge/config.yaml in the user configuration directory.
func DefaultPath() string {
	if p := os.Getenv(env.VBRIDGE_CONFIG); p != "" {
		return p
	}
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "vbridge", "config.yaml")
}

// DefaultJournalPath returns the path of the journal database used by the
// journal commands when none is configured.
func DefaultJournalPath() string {
	if dir := os.Getenv(env.XDG_STATE_HOME); dir != "" {
		return filepath.Join(dir, "vbridge", "journal.db")
	}
	home := os.Getenv(env.HOME)
	if home == "" {
		return "vbridge-journal.db"
	}
	return filepath.Join(home, ".local", "state", "vbridge", "journal.db")
}

// JournalPath returns the configured journal path, or DefaultJournalPath.
func (c *Config) JournalPath() string {
	if c.Journal != "" {
		return c.Journal
	}
	return DefaultJournalPath()
}

// Blueprints resolves the tag mapping.
func (c *Config) Blueprints() (map[string]retained.Blueprint, error) {
	if len(c.Tags) == 0 {
		return nil, nil
	}
	tags := make(map[string]retained.Blueprint, len(c.Tags))
	for tag, name := range c.Tags {
		bp, ok := retained.ParseBlueprint(name)
		if !ok {
			return nil, fmt.Errorf("tag %s: unknown blueprint %q", tag, name)
		}
		tags[tag] = bp
	}
	return tags, nil
}

// Size returns the headless rendering size.
func (c *Config) Size() (width, height int) {
	width, height = c.Width, c.Height
	if width == 0 {
		width = DefaultWidth
	}
	if height == 0 {
		height = DefaultHeight
	}
	return width, height
}

// WatchEnabled returns whether to reload programs on change. It defaults to
// true.
func (c *Config) WatchEnabled() bool { return c.Watch == nil || *c.Watch }

// MouseEnabled returns whether to enable mouse reporting. It defaults to true.
func (c *Config) MouseEnabled() bool { return c.Mouse == nil || *c.Mouse }

// DebounceInterval returns the debounce interval for reloads.
func (c *Config) DebounceInterval() time.Duration {
	if c.Debounce <= 0 {
		return DefaultDebounce
	}
	return c.Debounce
}
