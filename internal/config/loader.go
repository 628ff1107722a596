package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// Config holds runtime parameters for the daemon.
// Zero values mean "unspecified" and are replaced by Defaults in main.
type Config struct {
	Addr                 string   `json:"addr" yaml:"addr" toml:"addr"`
	ServerID             string   `json:"server_id" yaml:"server_id" toml:"server_id"`
	ModelRepositoryPaths []string `json:"model_repository_paths" yaml:"model_repository_paths" toml:"model_repository_paths"`
	ModelControlMode     string   `json:"model_control_mode" yaml:"model_control_mode" toml:"model_control_mode"`
	StartupModels        []string `json:"startup_models" yaml:"startup_models" toml:"startup_models"`
	StrictReadiness      bool     `json:"strict_readiness" yaml:"strict_readiness" toml:"strict_readiness"`
	ExitTimeoutSeconds   int      `json:"exit_timeout_seconds" yaml:"exit_timeout_seconds" toml:"exit_timeout_seconds"`
	PinnedPoolByteSize   uint64   `json:"pinned_memory_pool_byte_size" yaml:"pinned_memory_pool_byte_size" toml:"pinned_memory_pool_byte_size"`
	LogLevel             string   `json:"log_level" yaml:"log_level" toml:"log_level"`
}

// Defaults fills unspecified fields in place.
func (c *Config) Defaults() {
	if c.Addr == "" {
		c.Addr = ":8000"
	}
	if c.ServerID == "" {
		c.ServerID = "inferd"
	}
	if c.ExitTimeoutSeconds <= 0 {
		c.ExitTimeoutSeconds = 30
	}
	if c.PinnedPoolByteSize == 0 {
		c.PinnedPoolByteSize = 1 << 28
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
}

// Load reads a configuration file based on its extension.
// Supports: .yaml/.yml, .json, .toml
func Load(path string) (Config, error) {
	var cfg Config
	if path == "" {
		return cfg, fmt.Errorf("empty config path")
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return cfg, err
		}
	case ".json":
		if err := json.Unmarshal(b, &cfg); err != nil {
			return cfg, err
		}
	case ".toml":
		if err := toml.Unmarshal(b, &cfg); err != nil {
			return cfg, err
		}
	default:
		return cfg, fmt.Errorf("unsupported config extension: %s", ext)
	}
	return cfg, nil
}
