package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
)

// EnvAPI overrides the simulation service URL.
const EnvAPI = "FSMCANVAS_API"

// Config holds fsmcanvas configuration.
type Config struct {
	API    APIConfig    `toml:"api"`
	Serve  ServeConfig  `toml:"serve"`
	Editor EditorConfig `toml:"editor"`
	Export ExportConfig `toml:"export"`
	Log    LogConfig    `toml:"log"`
}

// APIConfig points at the simulation service.
type APIConfig struct {
	URL     string `toml:"url"`
	Timeout int    `toml:"timeout"` // seconds
}

// ServeConfig controls the local /simulate server.
type ServeConfig struct {
	Addr string `toml:"addr"`
}

// EditorConfig controls the terminal editor.
type EditorConfig struct {
	ScalingFactor float64 `toml:"scaling_factor"`
	GrabZone      float64 `toml:"grab_zone"`
	History       int     `toml:"history"`
	LastDir       string  `toml:"last_dir"`
}

// ExportConfig holds defaults for diagram export.
type ExportConfig struct {
	Format string `toml:"format"` // "png", "svg", "dot"
	Width  int    `toml:"width"`
	Height int    `toml:"height"`
}

// LogConfig controls diagnostics.
type LogConfig struct {
	Level string `toml:"level"` // "debug", "info", "warn", "error"
}

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		API:    APIConfig{URL: "http://localhost:8080", Timeout: 10},
		Serve:  ServeConfig{Addr: "localhost:8080"},
		Editor: EditorConfig{ScalingFactor: 0.9, GrabZone: 0.7, History: 50},
		Export: ExportConfig{Format: "png", Width: 800, Height: 600},
		Log:    LogConfig{Level: "warn"},
	}
}

// Dir returns the fsmcanvas config directory path.
func Dir() string {
	dir := os.Getenv("XDG_CONFIG_HOME")
	if dir == "" {
		home, _ := os.UserHomeDir()
		dir = filepath.Join(home, ".config")
	}
	return filepath.Join(dir, "fsmcanvas")
}

// Path returns the config file path.
func Path() string {
	return filepath.Join(Dir(), "config.toml")
}

// Load reads the config file. A missing or unreadable file yields the
// defaults.
func Load() *Config {
	cfg, err := LoadFrom(Path())
	if err != nil {
		cfg = Default()
		cfg.applyEnv()
	}
	return cfg
}

// LoadFrom reads the config at path over the defaults. A missing file is
// not an error.
func LoadFrom(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
	case err != nil:
		return nil, err
	default:
		if err := toml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	}

	cfg.applyEnv()
	cfg.normalize()
	return cfg, nil
}

// Save writes the config to the default path.
func Save(cfg *Config) error {
	return SaveTo(Path(), cfg)
}

// SaveTo writes the config to path.
func SaveTo(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	return toml.NewEncoder(f).Encode(cfg)
}

// Timeout returns the API timeout as a duration.
func (c *Config) Timeout() time.Duration {
	return time.Duration(c.API.Timeout) * time.Second
}

func (c *Config) applyEnv() {
	if v := os.Getenv(EnvAPI); v != "" {
		c.API.URL = v
	}
}

// normalize replaces out-of-range values with defaults.
func (c *Config) normalize() {
	def := Default()
	if c.API.Timeout <= 0 {
		c.API.Timeout = def.API.Timeout
	}
	if c.Editor.ScalingFactor <= 0 || c.Editor.ScalingFactor > 1 {
		c.Editor.ScalingFactor = def.Editor.ScalingFactor
	}
	if c.Editor.GrabZone <= 0 || c.Editor.GrabZone > 1 {
		c.Editor.GrabZone = def.Editor.GrabZone
	}
	if c.Editor.History < 0 {
		c.Editor.History = def.Editor.History
	}
	switch c.Export.Format {
	case "png", "svg", "dot":
	default:
		c.Export.Format = def.Export.Format
	}
	if c.Export.Width <= 0 {
		c.Export.Width = def.Export.Width
	}
	if c.Export.Height <= 0 {
		c.Export.Height = def.Export.Height
	}
}
