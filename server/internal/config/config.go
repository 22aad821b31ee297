package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Default values for the server configuration.
const (
	DefaultHTTPPort       = 8080
	DefaultAlertCooldown  = 120 * time.Second
	DefaultAlertRetention = 24 * time.Hour
	DefaultMaxAlerts      = 50
	DefaultEvictInterval  = time.Hour
)

// Config holds the server configuration parsed from the `server:` section of
// config.yaml. The `simulator:` key in the same file is ignored.
type Config struct {
	Server ServerConfig `yaml:"server"`
}

// ServerConfig holds all server-side settings.
type ServerConfig struct {
	// HTTPPort is the port the REST API and both WebSocket endpoints listen
	// on (default 8080).
	HTTPPort int `yaml:"http_port"`

	// Alerts controls alert lifecycle timing and retention.
	Alerts AlertsConfig `yaml:"alerts"`

	// MQTT configures the optional MQTT telemetry ingest bridge.
	// The bridge is disabled when Broker is empty.
	MQTT MQTTConfig `yaml:"mqtt"`

	// Machines is the static machine directory. Entries here override the
	// built-in M001–M006 defaults; unknown IDs fall back to generated names.
	Machines []MachineInfo `yaml:"machines"`
}

// AlertsConfig controls alert lifecycle timing and retention.
type AlertsConfig struct {
	// Cooldown is the minimum time between successive alert creations for
	// the same (machine, rule) key. Default: 120s.
	Cooldown time.Duration `yaml:"cooldown"`

	// Retention is how long alerts are kept before age-based eviction.
	// Default: 24h.
	Retention time.Duration `yaml:"retention"`

	// MaxAlerts caps the alert store size; oldest entries are evicted first.
	// Default: 50.
	MaxAlerts int `yaml:"max_alerts"`

	// EvictInterval is the cadence of the age-based eviction sweep.
	// Default: 1h.
	EvictInterval time.Duration `yaml:"evict_interval"`
}

// MQTTConfig configures the optional MQTT telemetry ingest bridge.
type MQTTConfig struct {
	// Broker is the MQTT broker URL, e.g. "tcp://localhost:1883".
	// Empty disables the bridge.
	Broker string `yaml:"broker"`

	// Topic is the subscription filter for machine readings.
	// Defaults to "factory/+/telemetry".
	Topic string `yaml:"topic"`

	// UsernameEnv / PasswordEnv name environment variables holding broker
	// credentials. Empty means anonymous.
	UsernameEnv string `yaml:"username_env"`
	PasswordEnv string `yaml:"password_env"`
}

// Username returns the broker username resolved from the environment.
func (m MQTTConfig) Username() string {
	if m.UsernameEnv == "" {
		return ""
	}
	return os.Getenv(m.UsernameEnv)
}

// Password returns the broker password resolved from the environment.
func (m MQTTConfig) Password() string {
	if m.PasswordEnv == "" {
		return ""
	}
	return os.Getenv(m.PasswordEnv)
}

// EffectiveTopic returns the configured topic filter, or the default.
func (m MQTTConfig) EffectiveTopic() string {
	if m.Topic != "" {
		return m.Topic
	}
	return "factory/+/telemetry"
}

// Load reads and parses the config file at path, returning the server
// configuration. Missing fields are filled with defaults before validation.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("server config: read %q: %w", path, err)
	}

	cfg := defaults()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("server config: parse yaml: %w", err)
	}

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("server config: %w", err)
	}

	return cfg, nil
}

// defaults returns a Config pre-populated with default values.
func defaults() *Config {
	return &Config{
		Server: ServerConfig{
			HTTPPort: DefaultHTTPPort,
			Alerts: AlertsConfig{
				Cooldown:      DefaultAlertCooldown,
				Retention:     DefaultAlertRetention,
				MaxAlerts:     DefaultMaxAlerts,
				EvictInterval: DefaultEvictInterval,
			},
		},
	}
}

// validate checks structural constraints on the parsed configuration.
func validate(cfg *Config) error {
	if cfg.Server.HTTPPort <= 0 || cfg.Server.HTTPPort > 65535 {
		return fmt.Errorf("server.http_port %d is out of range [1, 65535]", cfg.Server.HTTPPort)
	}
	if cfg.Server.Alerts.Cooldown < 0 {
		return fmt.Errorf("server.alerts.cooldown must not be negative")
	}
	if cfg.Server.Alerts.Retention <= 0 {
		return fmt.Errorf("server.alerts.retention must be positive")
	}
	if cfg.Server.Alerts.MaxAlerts <= 0 {
		return fmt.Errorf("server.alerts.max_alerts must be positive")
	}
	if cfg.Server.Alerts.EvictInterval <= 0 {
		return fmt.Errorf("server.alerts.evict_interval must be positive")
	}
	for i, m := range cfg.Server.Machines {
		if m.ID == "" {
			return fmt.Errorf("server.machines[%d]: id is required", i)
		}
	}
	return nil
}
