package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config is the full process configuration. It is built once at startup
// and handed to each component's constructor; nothing reads the
// environment after that.
type Config struct {
	Environment string          `mapstructure:"environment"`
	Server      ServerConfig    `mapstructure:"server"`
	Logging     LoggingConfig   `mapstructure:"logging"`
	Database    DatabaseConfig  `mapstructure:"database"`
	RateLimit   RateLimitConfig `mapstructure:"rate_limit"`
	Provider    ProviderConfig  `mapstructure:"provider"`
	Redis       RedisConfig     `mapstructure:"redis"`
}

type ServerConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	Mode         string        `mapstructure:"mode"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

type LoggingConfig struct {
	Level         string `mapstructure:"level"`
	Output        string `mapstructure:"output"`
	ConsoleOutput bool   `mapstructure:"console_output"`
	MaxSize       int    `mapstructure:"max_size"`
	MaxBackups    int    `mapstructure:"max_backups"`
	MaxAge        int    `mapstructure:"max_age"`
	Compress      bool   `mapstructure:"compress"`
}

type DatabaseConfig struct {
	// URI is the postgres connection string. Empty means the in-memory
	// account store.
	URI string `mapstructure:"uri"`
}

type RateLimitConfig struct {
	MaxPerSecond int `mapstructure:"max_per_second"`
	MaxPerMinute int `mapstructure:"max_per_minute"`
}

type ProviderConfig struct {
	BaseURL           string        `mapstructure:"base_url"`
	APIKey            string        `mapstructure:"api_key"`
	Timeout           time.Duration `mapstructure:"timeout"`
	RequestsPerMinute int           `mapstructure:"requests_per_minute"`
}

type RedisConfig struct {
	// Addr is optional; when set the rate-limit counters live in Redis
	// instead of process memory.
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// envBindings maps the environment surface onto config keys. Values in
// an optional config file fill anything the environment leaves unset.
var envBindings = map[string]string{
	"environment":                  "ENVIRONMENT",
	"server.host":                  "HOST",
	"server.port":                  "PORT",
	"logging.level":                "LOG_LEVEL",
	"database.uri":                 "DB_URI",
	"rate_limit.max_per_second":    "MAX_PER_SECOND",
	"rate_limit.max_per_minute":    "MAX_PER_MINUTE",
	"provider.api_key":             "ALPHAVANTAGE_API_KEY",
	"provider.timeout":             "PROVIDER_TIMEOUT",
	"provider.requests_per_minute": "PROVIDER_REQUESTS_PER_MINUTE",
	"redis.addr":                   "REDIS_ADDR",
	"redis.password":               "REDIS_PASSWORD",
}

// Load builds the configuration from the environment plus whatever
// config file viper has already located.
func Load() (*Config, error) {
	for key, env := range envBindings {
		if err := viper.BindEnv(key, env); err != nil {
			return nil, fmt.Errorf("bind %s: %w", env, err)
		}
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	setDefaults(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

func setDefaults(cfg *Config) {
	if cfg.Environment == "" {
		cfg.Environment = "development"
	}

	if cfg.Server.Host == "" {
		cfg.Server.Host = "0.0.0.0"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.Mode == "" {
		cfg.Server.Mode = "release"
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = 30 * time.Second
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = 30 * time.Second
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Output == "" {
		cfg.Logging.Output = fmt.Sprintf("logs/%s.log", cfg.Environment)
	}
	cfg.Logging.ConsoleOutput = true
	if cfg.Logging.MaxSize == 0 {
		cfg.Logging.MaxSize = 100
	}
	if cfg.Logging.MaxBackups == 0 {
		cfg.Logging.MaxBackups = 10
	}
	if cfg.Logging.MaxAge == 0 {
		cfg.Logging.MaxAge = 30
	}

	if cfg.RateLimit.MaxPerSecond == 0 {
		cfg.RateLimit.MaxPerSecond = 1
	}
	if cfg.RateLimit.MaxPerMinute == 0 {
		cfg.RateLimit.MaxPerMinute = 10
	}

	if cfg.Provider.BaseURL == "" {
		cfg.Provider.BaseURL = "https://www.alphavantage.co/query"
	}
	if cfg.Provider.Timeout == 0 {
		cfg.Provider.Timeout = 10 * time.Second
	}
	if cfg.Provider.RequestsPerMinute == 0 {
		cfg.Provider.RequestsPerMinute = 5
	}
}

func validate(cfg *Config) error {
	if cfg.Server.Port < 1 || cfg.Server.Port > 65535 {
		return fmt.Errorf("invalid port: %d", cfg.Server.Port)
	}
	if cfg.RateLimit.MaxPerSecond < 1 {
		return fmt.Errorf("max_per_second must be positive, got %d", cfg.RateLimit.MaxPerSecond)
	}
	if cfg.RateLimit.MaxPerMinute < 1 {
		return fmt.Errorf("max_per_minute must be positive, got %d", cfg.RateLimit.MaxPerMinute)
	}
	if cfg.Provider.APIKey == "" {
		return fmt.Errorf("provider api key is required (ALPHAVANTAGE_API_KEY)")
	}
	return nil
}
