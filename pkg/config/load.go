package config

import (
	"log/slog"
	"os"

	"github.com/goccy/go-yaml"
)

// Load reads a YAML config file at path, falling back to Default() when
// the file doesn't exist, and failing on any other read or parse error.
func Load(path string) (Config, error) {
	var cfg Config

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			slog.Info("config file not found, using default config", "path", path)
			return Default(), nil
		}
		return cfg, err
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, err
	}

	return cfg, nil
}
