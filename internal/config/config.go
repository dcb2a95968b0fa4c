package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server       ServerConfig       `yaml:"server"`
	Database     DatabaseConfig     `yaml:"database"`
	Events       EventsConfig       `yaml:"events"`
	Directory    DirectoryConfig    `yaml:"directory"`
	Availability AvailabilityConfig `yaml:"availability"`
	Routing      RoutingConfig      `yaml:"routing"`
	Lookups      LookupsConfig      `yaml:"lookups"`
	Logging      LoggingConfig      `yaml:"logging"`
}

type ServerConfig struct {
	Port        int    `yaml:"port"`
	MetricsPort int    `yaml:"metrics_port"`
	AdminToken  string `yaml:"admin_token"`
}

type DatabaseConfig struct {
	URL string `yaml:"url"`
}

type EventsConfig struct {
	URL string `yaml:"url"`
}

type DirectoryConfig struct {
	URL   string `yaml:"url"`
	Token string `yaml:"token"`
}

type AvailabilityConfig struct {
	URL            string `yaml:"url"`
	ProbeTimeoutMs int    `yaml:"probe_timeout_ms"`
	FilterEnabled  bool   `yaml:"filter_enabled"`
}

type RoutingConfig struct {
	WindowHours             int `yaml:"window_hours"`
	WaterfallExclusiveHours int `yaml:"waterfall_exclusive_hours"`
	AttributionWindowDays   int `yaml:"attribution_window_days"`
	SweepIntervalMinutes    int `yaml:"sweep_interval_minutes"`
	MaxSlots                int `yaml:"max_slots"`
}

type LookupsConfig struct {
	Path string `yaml:"path"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

func (c *Config) RoutingWindow() time.Duration {
	return time.Duration(c.Routing.WindowHours) * time.Hour
}

func (c *Config) WaterfallExclusive() time.Duration {
	return time.Duration(c.Routing.WaterfallExclusiveHours) * time.Hour
}

func (c *Config) AttributionWindow() time.Duration {
	return time.Duration(c.Routing.AttributionWindowDays) * 24 * time.Hour
}

func (c *Config) SweepInterval() time.Duration {
	return time.Duration(c.Routing.SweepIntervalMinutes) * time.Minute
}

func (c *Config) ProbeTimeout() time.Duration {
	return time.Duration(c.Availability.ProbeTimeoutMs) * time.Millisecond
}

func Load(path string) (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Port:        8700,
			MetricsPort: 8701,
		},
		Events: EventsConfig{
			URL: "nats://localhost:4222",
		},
		Directory: DirectoryConfig{
			URL: "http://localhost:8090",
		},
		Availability: AvailabilityConfig{
			URL:            "http://localhost:8091",
			ProbeTimeoutMs: 2000,
			FilterEnabled:  true,
		},
		Routing: RoutingConfig{
			WindowHours:             48,
			WaterfallExclusiveHours: 24,
			AttributionWindowDays:   14,
			SweepIntervalMinutes:    60,
			MaxSlots:                3,
		},
		Lookups: LookupsConfig{
			Path: "lookups.yaml",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	applyEnv(cfg)
	return cfg, nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("ROUTER_PORT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = n
		}
	}
	if v := os.Getenv("ROUTER_METRICS_PORT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Server.MetricsPort = n
		}
	}
	if v := os.Getenv("ROUTER_ADMIN_TOKEN"); v != "" {
		cfg.Server.AdminToken = v
	}
	if v := os.Getenv("ROUTER_DATABASE_URL"); v != "" {
		cfg.Database.URL = v
	}
	if v := os.Getenv("ROUTER_EVENTS_URL"); v != "" {
		cfg.Events.URL = v
	}
	if v := os.Getenv("ROUTER_DIRECTORY_URL"); v != "" {
		cfg.Directory.URL = v
	}
	if v := os.Getenv("ROUTER_DIRECTORY_TOKEN"); v != "" {
		cfg.Directory.Token = v
	}
	if v := os.Getenv("ROUTER_AVAILABILITY_URL"); v != "" {
		cfg.Availability.URL = v
	}
	if v := os.Getenv("ROUTER_AVAILABILITY_FILTER_ENABLED"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Availability.FilterEnabled = b
		}
	}
	if v := os.Getenv("ROUTER_PROBE_TIMEOUT_MS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Availability.ProbeTimeoutMs = n
		}
	}
	if v := os.Getenv("ROUTER_ROUTING_WINDOW_HOURS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Routing.WindowHours = n
		}
	}
	if v := os.Getenv("ROUTER_WATERFALL_EXCLUSIVE_HOURS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Routing.WaterfallExclusiveHours = n
		}
	}
	if v := os.Getenv("ROUTER_ATTRIBUTION_WINDOW_DAYS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Routing.AttributionWindowDays = n
		}
	}
	if v := os.Getenv("ROUTER_SWEEP_INTERVAL_MINUTES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Routing.SweepIntervalMinutes = n
		}
	}
	if v := os.Getenv("ROUTER_LOOKUPS_PATH"); v != "" {
		cfg.Lookups.Path = v
	}
	if v := os.Getenv("ROUTER_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
}
