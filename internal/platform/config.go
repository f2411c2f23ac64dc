package platform

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// ConfigFileNames are looked up in the store root, in order.
var ConfigFileNames = []string{"setlist.yaml", "setlist.yml", "setlist.toml"}

// fileConfig is the on-disk configuration.
type fileConfig struct {
	Adapter          string `yaml:"adapter" toml:"adapter"`
	AutosaveInterval string `yaml:"autosave_interval" toml:"autosave_interval"`
	SystemDir        string `yaml:"system_dir" toml:"system_dir"`
}

// findConfigFile returns the first config file present in root, or "".
func findConfigFile(root string) string {
	for _, name := range ConfigFileNames {
		path := filepath.Join(root, name)
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			return path
		}
	}
	return ""
}

// readConfigFile decodes path by extension.
func readConfigFile(path string) (fileConfig, error) {
	var cfg fileConfig
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		if err := toml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse %s: %w", filepath.Base(path), err)
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse %s: %w", filepath.Base(path), err)
		}
	default:
		return cfg, fmt.Errorf("unsupported config format %q", filepath.Ext(path))
	}
	return cfg, nil
}

// applyConfigFile loads the explicit or discovered config file and fills in
// every key that no option has set.
func (o *options) applyConfigFile(root string) error {
	path := o.configFile
	if path == "" {
		path = findConfigFile(root)
	}
	if path == "" {
		return nil
	}

	cfg, err := readConfigFile(path)
	if err != nil {
		return err
	}

	setDefault := func(key string, v interface{}) {
		if _, ok := o.config[key]; !ok {
			o.config[key] = v
		}
	}
	if cfg.Adapter != "" {
		setDefault(keyAdapter, cfg.Adapter)
	}
	if cfg.SystemDir != "" {
		setDefault(keySystemDir, cfg.SystemDir)
	}
	if cfg.AutosaveInterval != "" {
		d, err := time.ParseDuration(cfg.AutosaveInterval)
		if err != nil {
			return fmt.Errorf("autosave_interval: %w", err)
		}
		setDefault(keyAutosaveInterval, d)
	}
	o.log().Debug("config file loaded", "path", path)
	return nil
}
