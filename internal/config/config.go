package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config models homeworks.yml.
type Config struct {
	Server struct {
		Addr     string `yaml:"addr"`
		BasePath string `yaml:"base_path"`
	} `yaml:"server"`
	Database struct {
		BusyTimeoutMS int `yaml:"busy_timeout_ms"`
	} `yaml:"database"`
	Negotiation struct {
		// AutoRejectPending also rejects still-pending sibling requests
		// when a proposal is accepted.
		AutoRejectPending bool `yaml:"auto_reject_pending"`
	} `yaml:"negotiation"`
	Activity struct {
		DefaultLimit int `yaml:"default_limit"`
		MaxLimit     int `yaml:"max_limit"`
	} `yaml:"activity"`
	Notify  NotifyConfig `yaml:"notify"`
	Logging struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"logging"`
}

type NotifyConfig struct {
	// RedisAddr empty disables publishing.
	RedisAddr      string        `yaml:"redis_addr"`
	RedisPassword  string        `yaml:"redis_password"`
	RedisDB        int           `yaml:"redis_db"`
	Channel        string        `yaml:"channel"`
	Buffer         int           `yaml:"buffer"`
	PublishTimeout time.Duration `yaml:"publish_timeout"`
}

// Default returns the configuration used when no homeworks.yml exists.
func Default() *Config {
	var cfg Config
	cfg.Server.Addr = "127.0.0.1:8080"
	cfg.Server.BasePath = "/v0"
	cfg.Database.BusyTimeoutMS = 5000
	cfg.Activity.DefaultLimit = 50
	cfg.Activity.MaxLimit = 500
	cfg.Notify.Channel = "homeworks.events"
	cfg.Notify.Buffer = 256
	cfg.Notify.PublishTimeout = 2 * time.Second
	cfg.Logging.Level = "info"
	cfg.Logging.Format = "text"
	return &cfg
}

// Validate ensures the config meets required structure.
func (c *Config) Validate() error {
	if c.Database.BusyTimeoutMS < 0 {
		return fmt.Errorf("config.database.busy_timeout_ms must not be negative")
	}
	if c.Activity.DefaultLimit <= 0 {
		return fmt.Errorf("config.activity.default_limit must be positive")
	}
	if c.Activity.MaxLimit < c.Activity.DefaultLimit {
		return fmt.Errorf("config.activity.max_limit must be >= default_limit")
	}
	if c.Notify.Buffer <= 0 {
		return fmt.Errorf("config.notify.buffer must be positive")
	}
	if c.Notify.RedisAddr != "" && strings.TrimSpace(c.Notify.Channel) == "" {
		return fmt.Errorf("config.notify.channel is required when redis_addr is set")
	}
	if c.Notify.PublishTimeout <= 0 {
		return fmt.Errorf("config.notify.publish_timeout must be positive")
	}
	switch c.Logging.Format {
	case "text", "json":
	default:
		return fmt.Errorf("config.logging.format must be 'text' or 'json'")
	}
	if c.Server.BasePath != "" && !strings.HasPrefix(c.Server.BasePath, "/") {
		return fmt.Errorf("config.server.base_path must start with /")
	}
	return nil
}

// Path returns the config file path for a workspace.
func Path(workspace string) string {
	if workspace == "" {
		workspace = "."
	}
	return filepath.Join(workspace, "homeworks.yml")
}

// Load reads and validates config from workspace.
func Load(workspace string) (*Config, error) {
	path := Path(workspace)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("config %s not found; write one with hw config init", path)
		}
		return nil, err
	}
	return FromYAML(data)
}

// LoadOptional returns Default() if the config file does not exist.
func LoadOptional(workspace string) (*Config, error) {
	data, err := os.ReadFile(Path(workspace))
	if err != nil {
		if os.IsNotExist(err) {
			return Default(), nil
		}
		return nil, err
	}
	return FromYAML(data)
}

// FromYAML parses YAML over the defaults and validates the result.
func FromYAML(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("invalid config yaml: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// FromFile reads YAML config from the given path.
func FromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return FromYAML(data)
}

// Marshal renders the config as YAML.
func (c *Config) Marshal() ([]byte, error) {
	return yaml.Marshal(c)
}
