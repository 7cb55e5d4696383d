package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all durablenotes configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	Lifecycle LifecycleConfig `yaml:"lifecycle"`
	Admin     AdminConfig     `yaml:"admin"`
}

type ServerConfig struct {
	Bind string `yaml:"bind"`
	Port int    `yaml:"port"`
}

type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// LifecycleConfig carries the decay thresholds as seconds. Warming ends
// at WarmingSeconds, alive ends at AliveSeconds; cooling runs from there
// until an explicit archive.
type LifecycleConfig struct {
	WarmingSeconds int `yaml:"warming_seconds"`
	AliveSeconds   int `yaml:"alive_seconds"`

	// IdleEvictSeconds controls how long an idle actor stays resident.
	IdleEvictSeconds int `yaml:"idle_evict_seconds"`
}

type AdminConfig struct {
	// IDs of users allowed to hit /api/admin and to impersonate.
	IDs []string `yaml:"ids"`
}

// Default returns a Config with sensible defaults.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Bind: "127.0.0.1",
			Port: 38080,
		},
		Database: DatabaseConfig{
			Path: "", // resolved at runtime via store.DefaultDBPath()
		},
		Lifecycle: LifecycleConfig{
			WarmingSeconds:   3600,      // 1h
			AliveSeconds:     24 * 3600, // 24h
			IdleEvictSeconds: 15 * 60,
		},
		Admin: AdminConfig{},
	}
}

// DefaultPath returns the config file location: ~/.durablenotes/config.yaml,
// overridable via DURABLENOTES_CONFIG.
func DefaultPath() (string, error) {
	if custom := os.Getenv("DURABLENOTES_CONFIG"); custom != "" {
		return custom, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("get home dir: %w", err)
	}
	return filepath.Join(home, ".durablenotes", "config.yaml"), nil
}

// Load reads the config file at path, merged over defaults. A missing
// file is not an error; the defaults stand.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		cfg.applyEnv()
		return cfg, nil
	}
	if err != nil {
		return cfg, fmt.Errorf("read config %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}

	if err := cfg.validate(); err != nil {
		return cfg, err
	}
	cfg.applyEnv()
	return cfg, nil
}

func (c *Config) validate() error {
	if c.Lifecycle.WarmingSeconds <= 0 || c.Lifecycle.AliveSeconds <= 0 {
		return fmt.Errorf("lifecycle thresholds must be positive")
	}
	if c.Lifecycle.AliveSeconds <= c.Lifecycle.WarmingSeconds {
		return fmt.Errorf("alive_seconds (%d) must exceed warming_seconds (%d)",
			c.Lifecycle.AliveSeconds, c.Lifecycle.WarmingSeconds)
	}
	return nil
}

// applyEnv layers environment overrides on top of the file values.
func (c *Config) applyEnv() {
	if bind := os.Getenv("DURABLENOTES_BIND"); bind != "" {
		c.Server.Bind = bind
	}
	if port := os.Getenv("DURABLENOTES_PORT"); port != "" {
		if n, err := strconv.Atoi(port); err == nil && n > 0 {
			c.Server.Port = n
		}
	}
	if path := os.Getenv("DURABLENOTES_DB"); path != "" {
		c.Database.Path = path
	}
}

// ListenAddr returns the bind:port address string.
func (c *Config) ListenAddr() string {
	return fmt.Sprintf("%s:%d", c.Server.Bind, c.Server.Port)
}

// WarmingFor returns T1 as a duration.
func (c *Config) WarmingFor() time.Duration {
	return time.Duration(c.Lifecycle.WarmingSeconds) * time.Second
}

// AliveFor returns T2 as a duration.
func (c *Config) AliveFor() time.Duration {
	return time.Duration(c.Lifecycle.AliveSeconds) * time.Second
}

// IdleEvict returns the actor idle-eviction window.
func (c *Config) IdleEvict() time.Duration {
	return time.Duration(c.Lifecycle.IdleEvictSeconds) * time.Second
}

// IsAdmin reports whether userID is in the configured admin list.
func (c *Config) IsAdmin(userID string) bool {
	for _, id := range c.Admin.IDs {
		if id == userID {
			return true
		}
	}
	return false
}
