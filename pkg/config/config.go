package config

import (
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Environment string `yaml:"environment" default:"dev" validate:"required"`
	Logger      struct {
		Level  string `yaml:"level" default:"info" validate:"oneof=debug info warn error"`
		Format string `yaml:"format" default:"console" validate:"oneof=console json"`
		Output string `yaml:"output" default:"stdout"`
	} `yaml:"logger"`
	Server struct {
		Enabled         bool          `yaml:"enabled" default:"true"`
		Port            int           `yaml:"port" default:"8080" validate:"gt=0,lt=65536"`
		ReadTimeout     time.Duration `yaml:"read_timeout" default:"10s"`
		WriteTimeout    time.Duration `yaml:"write_timeout" default:"10s"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout" default:"5s"`
	} `yaml:"server"`
	Metrics struct {
		Enabled bool   `yaml:"enabled" default:"true"`
		Path    string `yaml:"path" default:"/metrics"`
	} `yaml:"metrics"`
	BART struct {
		APIKey  string        `yaml:"api_key"`
		BaseURL string        `yaml:"base_url" default:"https://api.bart.gov/api" validate:"required,url"`
		Timeout time.Duration `yaml:"timeout" default:"10s"`
	} `yaml:"bart"`
	Monitor struct {
		CyclePeriod      time.Duration `yaml:"cycle_period" default:"1s" validate:"gt=0"`
		FetchTimeout     time.Duration `yaml:"fetch_timeout" default:"10s" validate:"gt=0"`
		RecoveryDelay    time.Duration `yaml:"recovery_delay" default:"3s" validate:"gte=0"`
		SuspensionWindow time.Duration `yaml:"suspension_window" default:"120s" validate:"gt=0"`
		OutboxSize       int           `yaml:"outbox_size" default:"64" validate:"gt=0"`
	} `yaml:"monitor"`
	Display struct {
		Tick      time.Duration `yaml:"tick" default:"500ms" validate:"gt=0"`
		HoldTicks int           `yaml:"hold_ticks" default:"6" validate:"gte=0"`
		Sinks     []string      `yaml:"sinks" validate:"dive,oneof=websocket kafka redis"`
	} `yaml:"display"`
	Stations map[string]Station `yaml:"stations" validate:"required,min=1,dive"`
	Kafka    struct {
		Brokers      []string      `yaml:"brokers"`
		Topic        string        `yaml:"topic" default:"bart.notifications"`
		RequiredAcks int           `yaml:"required_acks" default:"-1"`
		Compression  string        `yaml:"compression" default:"gzip"`
		MaxAttempts  int           `yaml:"max_attempts" default:"3"`
		WriteTimeout time.Duration `yaml:"write_timeout" default:"5s"`
	} `yaml:"kafka"`
	Redis struct {
		Addr     string `yaml:"addr" default:"localhost:6379"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
		Channel  string `yaml:"channel" default:"bart:notifications"`
	} `yaml:"redis"`
}

// Station is one monitored station. The map key is the BART station abbreviation.
type Station struct {
	Name               string `yaml:"name" validate:"required"`
	Direction          string `yaml:"direction" validate:"required,oneof=North South East West"`
	NotifyDelaySeconds int    `yaml:"notify_delay_seconds" validate:"gte=0"`
}

// NotifyDelay returns the configured delay as a duration.
func (s Station) NotifyDelay() time.Duration {
	return time.Duration(s.NotifyDelaySeconds) * time.Second
}

var validate = validator.New()

// Load reads and parses a YAML configuration file.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(b)
}

// Parse applies defaults to the YAML document in b and validates the result.
func Parse(b []byte) (*Config, error) {
	c, err := decode(b)
	if err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

// LoadWithEnv loads config from YAML, overrides it with environment variables and
// validates the merged result once.
func LoadWithEnv(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	c, err := decode(b)
	if err != nil {
		return nil, err
	}

	if v := os.Getenv("BART_API_KEY"); v != "" {
		c.BART.APIKey = v
	}
	if v := os.Getenv("BART_BASE_URL"); v != "" {
		c.BART.BaseURL = v
	}
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = strings.Split(v, ",")
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		c.Redis.Addr = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.Logger.Level = v
	}

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

func decode(b []byte) (*Config, error) {
	var c Config
	if err := defaults.Set(&c); err != nil {
		return nil, fmt.Errorf("config defaults: %w", err)
	}
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return &c, nil
}

// Validate checks struct tags and the rules tags cannot express.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return err
	}
	if c.SinkEnabled("kafka") && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("kafka.brokers is required when the kafka sink is enabled")
	}
	if c.Monitor.FetchTimeout < c.Monitor.CyclePeriod {
		return fmt.Errorf("monitor.fetch_timeout (%s) must not be shorter than monitor.cycle_period (%s)",
			c.Monitor.FetchTimeout, c.Monitor.CyclePeriod)
	}
	return nil
}

// SinkEnabled reports whether name is listed in display.sinks.
func (c *Config) SinkEnabled(name string) bool {
	for _, s := range c.Display.Sinks {
		if s == name {
			return true
		}
	}
	return false
}

// StationIDs returns the configured station IDs sorted.
func (c *Config) StationIDs() []string {
	ids := make([]string, 0, len(c.Stations))
	for id := range c.Stations {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
