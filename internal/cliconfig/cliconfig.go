// Package cliconfig stores canvasctl settings in a TOML file.
package cliconfig

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

type Config struct {
	Server string       `toml:"server"`
	Email  string       `toml:"email"`
	Token  string       `toml:"token"`
	Export ExportConfig `toml:"export"`
	Viewer ViewerConfig `toml:"viewer"`
}

// ExportConfig sets the default SVG size.
type ExportConfig struct {
	Width  int `toml:"width"`
	Height int `toml:"height"`
}

type ViewerConfig struct {
	SnapToGrid bool `toml:"snap_to_grid"`
}

func Default() *Config {
	return &Config{
		Server: "http://localhost:8080",
		Export: ExportConfig{Width: 1600, Height: 1000},
		Viewer: ViewerConfig{SnapToGrid: true},
	}
}

// Dir returns the canvasctl config directory.
func Dir() string {
	dir := os.Getenv("XDG_CONFIG_HOME")
	if dir == "" {
		home, _ := os.UserHomeDir()
		dir = filepath.Join(home, ".config")
	}
	return filepath.Join(dir, "canvasctl")
}

func Path() string {
	return filepath.Join(Dir(), "config.toml")
}

// Load reads path over the defaults. A missing file yields the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return cfg, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// Save writes cfg to path. The file holds a token, so it is private.
func Save(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return err
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return err
	}
	defer f.Close()

	return toml.NewEncoder(f).Encode(cfg)
}
