// Package config loads the tunable affinity.Config snapshot from a YAML
// file plus environment variable overrides, and the HostConfig that governs
// where affinityd listens and stores its database.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/duskward/affinity/internal/affinity"
)

// HostConfig holds the process-level settings that sit outside the tunable
// affinity snapshot: where to listen, where to persist, how often to save.
type HostConfig struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
}

type ServerConfig struct {
	Bind string `yaml:"bind"`
	Port int    `yaml:"port"`
}

type DatabaseConfig struct {
	Path              string  `yaml:"path"`
	AutosaveIntervalS float64 `yaml:"autosave_interval_seconds"`
}

// DefaultHostConfig returns sensible defaults; Database.Path is resolved at
// runtime via store.DefaultDBPath() when left empty.
func DefaultHostConfig() HostConfig {
	return HostConfig{
		Server:   ServerConfig{Bind: "127.0.0.1", Port: 8420},
		Database: DatabaseConfig{Path: "", AutosaveIntervalS: 300},
	}
}

// ListenAddr returns the bind:port address string.
func (c *HostConfig) ListenAddr() string {
	return fmt.Sprintf("%s:%d", c.Server.Bind, c.Server.Port)
}

// file is the on-disk document shape: host settings alongside the tunable
// affinity config, so a single YAML document governs a running affinityd.
type file struct {
	Host   HostConfig      `yaml:"host"`
	Tuning affinity.Config `yaml:"tuning"`
}

// Load reads host + tuning config from the default location
// (~/.affinityd/config.yaml), falling back to defaults if absent, then
// applies environment variable overrides and validates the tuning config.
func Load() (HostConfig, *affinity.Config, error) {
	host := DefaultHostConfig()
	tuning := affinity.DefaultConfig()

	home, err := os.UserHomeDir()
	if err == nil {
		path := filepath.Join(home, ".affinityd", "config.yaml")
		if _, statErr := os.Stat(path); statErr == nil {
			h, t, loadErr := LoadFromFile(path)
			if loadErr != nil {
				return HostConfig{}, nil, fmt.Errorf("loading config file: %w", loadErr)
			}
			host, tuning = h, t
		}
	}

	applyEnvOverrides(&host, tuning)

	if err := tuning.Validate(); err != nil {
		return HostConfig{}, nil, err
	}
	return host, tuning, nil
}

// LoadFromFile loads host + tuning config from a specific YAML file. Missing
// fields fall back to DefaultConfig/DefaultHostConfig values, since
// yaml.Unmarshal only overwrites fields present in the document.
func LoadFromFile(path string) (HostConfig, *affinity.Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return HostConfig{}, nil, fmt.Errorf("reading config file: %w", err)
	}

	f := file{Host: DefaultHostConfig(), Tuning: *affinity.DefaultConfig()}
	if err := yaml.Unmarshal(data, &f); err != nil {
		return HostConfig{}, nil, fmt.Errorf("parsing config file: %w", err)
	}
	return f.Host, &f.Tuning, nil
}

// applyEnvOverrides lets deployment environments override bind/port/db path
// without editing the YAML file, matching the default -> file -> environment
// override layering used elsewhere in the pack.
func applyEnvOverrides(host *HostConfig, tuning *affinity.Config) {
	if v := os.Getenv("AFFINITYD_BIND"); v != "" {
		host.Server.Bind = v
	}
	if v := os.Getenv("AFFINITYD_PORT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			host.Server.Port = n
		}
	}
	if v := os.Getenv("AFFINITYD_DB_PATH"); v != "" {
		host.Database.Path = v
	}
	if v := os.Getenv("AFFINITYD_AFFINITY_SCALE"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			tuning.AffinityScale = f
		}
	}
}
