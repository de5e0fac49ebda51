package cli

import (
	"fmt"
	"strings"

	"github.com/aretw0/espalier/pkg/config"
	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"
)

// LoadConfig overlays the files in order, then applies each PATH=VALUE
// assignment. Values are read as YAML scalars, so --set PORT=80 is an int.
func LoadConfig(fs afero.Fs, files, sets []string) (config.Config, error) {
	cfg := config.Empty()
	for _, path := range files {
		data, err := afero.ReadFile(fs, path)
		if err != nil {
			return config.Config{}, fmt.Errorf("failed to read config %s: %w", path, err)
		}
		layer, err := config.Parse(data)
		if err != nil {
			return config.Config{}, fmt.Errorf("%s: %w", path, err)
		}
		cfg = cfg.Overlay(layer)
	}

	for _, set := range sets {
		path, raw, ok := strings.Cut(set, "=")
		path = strings.TrimSpace(path)
		if !ok || path == "" {
			return config.Config{}, fmt.Errorf("invalid --set %q: expected PATH=VALUE", set)
		}
		var value any
		if err := yaml.Unmarshal([]byte(raw), &value); err != nil {
			value = raw
		}
		if value == nil && raw != "null" && raw != "~" {
			value = raw
		}
		cfg = cfg.Set(path, value)
	}
	return cfg, nil
}
