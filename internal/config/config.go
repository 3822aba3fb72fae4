// Package config loads and validates connectix YAML configuration.
// It applies defaults so callers can rely on fully populated values,
// then overlays CONNECTIX_* environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// LogConfig holds logging settings.
type LogConfig struct {
	Level string `yaml:"level"`
	JSON  bool   `yaml:"json"`
}

// AuditConfig holds the optional persistent audit store settings.
// An empty path keeps activity events on the structured logger only.
type AuditConfig struct {
	Path string `yaml:"path"`
}

// SessionConfig holds session-manager behavior.
type SessionConfig struct {
	ConnectTimeoutSeconds int    `yaml:"connect_timeout_s"`
	IdleTimeoutMinutes    int    `yaml:"idle_timeout_m"`
	SweepEveryMinutes     int    `yaml:"sweep_every_m"`
	KnownHostsPath        string `yaml:"known_hosts_path"`
	StrictHostKey         bool   `yaml:"strict_host_key"`
}

// HostConfig describes one saved target.
type HostConfig struct {
	Name      string `yaml:"name"`
	Host      string `yaml:"host"`
	Port      int    `yaml:"port"`
	Username  string `yaml:"username"`
	Auth      string `yaml:"auth"`
	KeyPath   string `yaml:"key_path"`
	ProxyJump string `yaml:"proxy_jump"`
}

// Config mirrors the connectix.yaml schema.
type Config struct {
	Log     LogConfig     `yaml:"log"`
	Audit   AuditConfig   `yaml:"audit"`
	Session SessionConfig `yaml:"session"`
	Hosts   []HostConfig  `yaml:"hosts"`
}

// envOverrides is the CONNECTIX_* surface, applied after the file.
type envOverrides struct {
	LogLevel       string `envconfig:"LOG_LEVEL"`
	AuditPath      string `envconfig:"AUDIT_PATH"`
	KnownHostsPath string `envconfig:"KNOWN_HOSTS"`
}

// Load reads a YAML config file, applies defaults and environment
// overrides, and validates the result. An empty path yields pure
// defaults so the CLI works without a config file.
func Load(path string) (Config, error) {
	var c Config
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return c, err
		}
		if err := yaml.Unmarshal(b, &c); err != nil {
			return c, err
		}
	}
	applyDefaults(&c)
	if err := applyEnv(&c); err != nil {
		return Config{}, err
	}
	if err := validate(&c); err != nil {
		return Config{}, err
	}
	c.Audit.Path = strings.TrimSpace(c.Audit.Path)
	c.Session.KnownHostsPath = strings.TrimSpace(c.Session.KnownHostsPath)
	return c, nil
}

// FindHost resolves a saved target by name.
func (c Config) FindHost(name string) (HostConfig, bool) {
	for _, h := range c.Hosts {
		if h.Name == name {
			return h, true
		}
	}
	return HostConfig{}, false
}

// ConnectTimeout returns the SSH negotiation bound.
func (c Config) ConnectTimeout() time.Duration {
	return time.Duration(c.Session.ConnectTimeoutSeconds) * time.Second
}

// IdleTimeout returns the idle eviction threshold.
func (c Config) IdleTimeout() time.Duration {
	return time.Duration(c.Session.IdleTimeoutMinutes) * time.Minute
}

// SweepEvery returns the cleanup sweep period.
func (c Config) SweepEvery() time.Duration {
	return time.Duration(c.Session.SweepEveryMinutes) * time.Minute
}

// applyDefaults populates zero-values with sane defaults.
func applyDefaults(c *Config) {
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Session.ConnectTimeoutSeconds == 0 {
		c.Session.ConnectTimeoutSeconds = 30
	}
	if c.Session.IdleTimeoutMinutes == 0 {
		c.Session.IdleTimeoutMinutes = 30
	}
	if c.Session.SweepEveryMinutes == 0 {
		c.Session.SweepEveryMinutes = 5
	}
	for i := range c.Hosts {
		if c.Hosts[i].Port == 0 {
			c.Hosts[i].Port = 22
		}
		if c.Hosts[i].Auth == "" {
			c.Hosts[i].Auth = "password"
		}
	}
}

// applyEnv overlays CONNECTIX_* variables onto the loaded file.
func applyEnv(c *Config) error {
	var env envOverrides
	if err := envconfig.Process("connectix", &env); err != nil {
		return err
	}
	if env.LogLevel != "" {
		c.Log.Level = env.LogLevel
	}
	if env.AuditPath != "" {
		c.Audit.Path = env.AuditPath
	}
	if env.KnownHostsPath != "" {
		c.Session.KnownHostsPath = env.KnownHostsPath
	}
	return nil
}

// validate performs basic sanity checks for required fields and ranges.
// It does not mutate the config.
func validate(c *Config) error {
	if strings.TrimSpace(c.Log.Level) == "" {
		return errors.New("log.level is required")
	}
	if c.Session.ConnectTimeoutSeconds < 1 || c.Session.ConnectTimeoutSeconds > 600 {
		return errors.New("session.connect_timeout_s is invalid")
	}
	if c.Session.IdleTimeoutMinutes < 1 {
		return errors.New("session.idle_timeout_m is invalid")
	}
	if c.Session.SweepEveryMinutes < 1 {
		return errors.New("session.sweep_every_m is invalid")
	}
	if c.Session.StrictHostKey && strings.TrimSpace(c.Session.KnownHostsPath) == "" {
		return errors.New("session.known_hosts_path is required when strict_host_key is set")
	}
	seen := make(map[string]bool, len(c.Hosts))
	for _, h := range c.Hosts {
		if strings.TrimSpace(h.Name) == "" {
			return errors.New("hosts[].name is required")
		}
		if seen[h.Name] {
			return fmt.Errorf("duplicate host name %q", h.Name)
		}
		seen[h.Name] = true
		if strings.TrimSpace(h.Host) == "" {
			return fmt.Errorf("host %q: host is required", h.Name)
		}
		if h.Port <= 0 || h.Port > 65535 {
			return fmt.Errorf("host %q: port is invalid", h.Name)
		}
		switch h.Auth {
		case "password":
		case "private_key", "private_key_passphrase":
			if strings.TrimSpace(h.KeyPath) == "" {
				return fmt.Errorf("host %q: key_path is required for auth %s", h.Name, h.Auth)
			}
		default:
			return fmt.Errorf("host %q: unknown auth %q", h.Name, h.Auth)
		}
	}
	return nil
}
