package config

import (
	"encoding/json"
	"os"
	"path/filepath"
)

// GetConfigDir returns the directory holding midimapper state (~/.midimapper).
func GetConfigDir() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".midimapper")
}

// GetConfigPath returns the default config file path (~/.midimapper/config.json).
func GetConfigPath() string {
	return filepath.Join(GetConfigDir(), "config.json")
}

// Load reads configuration from a JSON file.
// If path is empty, uses the default config path.
// If the file doesn't exist, returns DefaultConfig().
func Load(path string) (Config, error) {
	if path == "" {
		path = GetConfigPath()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultConfig(), nil
		}
		return Config{}, err
	}

	cfg := DefaultConfig() // start with defaults so zero-value fields get filled
	if err := json.Unmarshal(data, &cfg); err != nil {
		return DefaultConfig(), err
	}
	return cfg, cfg.Validate()
}
