package config

import (
	"os"
	"regexp"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type (
	// Config is the root configuration for the USSD gateway.
	Config struct {
		Logger   LoggerConfig   `yaml:"logger"`
		Gateway  GatewayConfig  `yaml:"gateway"`
		Ussd     UssdConfig     `yaml:"ussd"`
		History  HistoryConfig  `yaml:"history"`
		Platform PlatformConfig `yaml:"platform"`
	}

	// GatewayConfig represents the HTTP server configuration
	GatewayConfig struct {
		Host string `yaml:"host"`
		Port int    `yaml:"port"`
		PID  string `yaml:"pid"`
	}

	// UssdConfig represents USSD dialing defaults
	UssdConfig struct {
		DefaultTimeout time.Duration `yaml:"default_timeout"` // per-request completion timeout
		SecureMode     bool          `yaml:"secure_mode"`     // mask response text in logs and history
		DefaultCountry string        `yaml:"default_country"` // ISO country code for carrier code lookups
		DefaultCarrier string        `yaml:"default_carrier"` // default carrier for code lookups
	}

	// HistoryConfig represents the request history storage configuration
	HistoryConfig struct {
		Type       string             `yaml:"type"`        // "memory" or "redis"
		MaxEntries int                `yaml:"max_entries"` // cap on retained entries
		Redis      HistoryRedisConfig `yaml:"redis"`
	}

	// HistoryRedisConfig represents the Redis configuration for history storage
	HistoryRedisConfig struct {
		Addr     string `yaml:"addr"`
		Username string `yaml:"username"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
		Prefix   string `yaml:"prefix"`
	}

	// PlatformConfig selects the telephony adapter
	PlatformConfig struct {
		Type string `yaml:"type"` // "simulated" or "dialer"
	}

	// LoggerConfig represents the logger configuration
	LoggerConfig struct {
		Level      string `yaml:"level"`       // debug, info, warn, error
		Format     string `yaml:"format"`      // json, console
		Output     string `yaml:"output"`      // stdout, file
		FilePath   string `yaml:"file_path"`   // path to log file when output is file
		MaxSize    int    `yaml:"max_size"`    // max size of log file in MB
		MaxBackups int    `yaml:"max_backups"` // max number of backup files
		MaxAge     int    `yaml:"max_age"`     // max age of backup files in days
		Compress   bool   `yaml:"compress"`    // whether to compress backup files
		Color      bool   `yaml:"color"`       // whether to use color in console output
		Stacktrace bool   `yaml:"stacktrace"`  // whether to include stacktrace in error logs
		TimeZone   string `yaml:"time_zone"`   // time zone for log timestamps, e.g., "UTC", default is local
		TimeFormat string `yaml:"time_format"` // time format for log timestamps, default is "2006-01-02 15:04:05"
	}
)

// LoadConfig loads configuration from a YAML file with environment variable support
func LoadConfig(path string) (*Config, error) {
	// Load .env file if exists
	_ = godotenv.Load()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	// Resolve environment variables
	data = resolveEnv(data)
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	cfg.applyDefaults()
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Gateway.Port == 0 {
		c.Gateway.Port = 5335
	}
	if c.Ussd.DefaultTimeout <= 0 {
		c.Ussd.DefaultTimeout = 30 * time.Second
	}
	if c.Ussd.DefaultCountry == "" {
		c.Ussd.DefaultCountry = "US"
	}
	if c.History.Type == "" {
		c.History.Type = "memory"
	}
	if c.History.MaxEntries <= 0 {
		c.History.MaxEntries = 100
	}
	if c.History.Redis.Prefix == "" {
		c.History.Redis.Prefix = "ussd:history"
	}
	if c.Platform.Type == "" {
		c.Platform.Type = "simulated"
	}
}

// resolveEnv replaces environment variable placeholders in YAML content
func resolveEnv(content []byte) []byte {
	regex := regexp.MustCompile(`\$\{(\w+)(?::([^}]*))?\}`)

	return regex.ReplaceAllFunc(content, func(match []byte) []byte {
		matches := regex.FindSubmatch(match)
		envKey := string(matches[1])
		var defaultValue string

		if len(matches) > 2 {
			defaultValue = string(matches[2])
		}

		if value, exists := os.LookupEnv(envKey); exists {
			return []byte(value)
		}
		return []byte(defaultValue)
	})
}
