package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// envConfigPath overrides the default config location when set.
const envConfigPath = "TAGWARDEN_CONFIG"

// FileLoader reads Config from a YAML file on disk.
type FileLoader struct {
	path string
}

// NewFileLoader builds a loader for path. An empty path selects, in order:
// the TAGWARDEN_CONFIG environment variable, then
// ~/.config/tagwarden/config.yaml.
func NewFileLoader(path string) *FileLoader {
	if path == "" {
		path = os.Getenv(envConfigPath)
	}
	if path == "" {
		home, err := os.UserHomeDir()
		if err == nil {
			path = filepath.Join(home, ".config", "tagwarden", "config.yaml")
		}
	}
	return &FileLoader{path: path}
}

// ConfigPath returns the resolved configuration file path.
func (l *FileLoader) ConfigPath() string { return l.path }

// Load reads and parses the configuration file. A missing file is not an
// error; the zero Config is returned so every setting falls back to flag and
// built-in defaults.
func (l *FileLoader) Load() (*Config, error) {
	data, err := os.ReadFile(l.path)
	if errors.Is(err, fs.ErrNotExist) {
		return &Config{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", l.path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", l.path, err)
	}
	return &cfg, nil
}
