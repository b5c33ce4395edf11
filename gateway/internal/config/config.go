package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the gateway
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Upstream  UpstreamConfig  `mapstructure:"upstream"`
	Auth      AuthConfig      `mapstructure:"auth"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
	CORS      CORSConfig      `mapstructure:"cors"`
	Logging   LoggingConfig   `mapstructure:"logging"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout"`
}

// UpstreamConfig points at the chat service
type UpstreamConfig struct {
	ChatURL string `mapstructure:"chat_url"`
}

// AuthConfig holds token validation settings
type AuthConfig struct {
	AccessSecret string `mapstructure:"access_secret"`
}

// RateLimitConfig holds Redis-backed rate limiting settings. Each route
// class gets its own token bucket.
type RateLimitConfig struct {
	RedisURL string     `mapstructure:"redis_url"`
	Disabled bool       `mapstructure:"disabled"`
	Auth     RuleConfig `mapstructure:"auth"`
	Write    RuleConfig `mapstructure:"write"`
	Read     RuleConfig `mapstructure:"read"`
}

// RuleConfig is one route class's bucket shape
type RuleConfig struct {
	PerMinute int `mapstructure:"per_minute"`
	Burst     int `mapstructure:"burst"`
}

// CORSConfig holds cross-origin settings for browser clients
type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
	MaxAge         int      `mapstructure:"max_age"`
}

// LoggingConfig holds log output settings
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Load reads configuration from file and environment variables
func Load(configPath string) (*Config, error) {
	v := viper.New()

	// Set defaults
	v.SetDefault("server.port", 8000)
	v.SetDefault("server.read_timeout", "15s")
	v.SetDefault("server.write_timeout", "30s")
	v.SetDefault("server.idle_timeout", "60s")

	v.SetDefault("upstream.chat_url", "http://localhost:8080")

	v.SetDefault("auth.access_secret", "")

	v.SetDefault("rate_limit.redis_url", "redis://localhost:6379/1")
	v.SetDefault("rate_limit.disabled", false)
	v.SetDefault("rate_limit.auth.per_minute", 10)
	v.SetDefault("rate_limit.auth.burst", 5)
	v.SetDefault("rate_limit.write.per_minute", 60)
	v.SetDefault("rate_limit.write.burst", 20)
	v.SetDefault("rate_limit.read.per_minute", 240)
	v.SetDefault("rate_limit.read.burst", 60)

	v.SetDefault("cors.allowed_origins", []string{"*"})
	v.SetDefault("cors.max_age", 300)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	// Read from config file if provided
	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// Environment variables override file config
	v.SetEnvPrefix("RELAYROOM_GATEWAY")
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if cfg.Auth.AccessSecret == "" {
		return nil, fmt.Errorf("auth.access_secret is required")
	}

	return &cfg, nil
}
