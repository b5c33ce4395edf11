package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the chat service
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Redis     RedisConfig     `mapstructure:"redis"`
	NATS      NATSConfig      `mapstructure:"nats"`
	Auth      AuthConfig      `mapstructure:"auth"`
	Publisher PublisherConfig `mapstructure:"publisher"`
	Logging   LoggingConfig   `mapstructure:"logging"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout"`
}

// DatabaseConfig holds PostgreSQL connection settings
type DatabaseConfig struct {
	Host          string `mapstructure:"host"`
	Port          int    `mapstructure:"port"`
	User          string `mapstructure:"user"`
	Password      string `mapstructure:"password"`
	Database      string `mapstructure:"database"`
	SSLMode       string `mapstructure:"sslmode"`
	MigrationsDir string `mapstructure:"migrations_dir"`
}

// ConnString builds a pgx connection string.
func (d DatabaseConfig) ConnString() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.Database, d.SSLMode)
}

// RedisConfig holds Redis configuration for session storage
type RedisConfig struct {
	URL string `mapstructure:"url"`
}

// NATSConfig holds broker connection settings
type NATSConfig struct {
	URL       string `mapstructure:"url"`
	JetStream bool   `mapstructure:"jetstream"`
}

// AuthConfig holds token settings
type AuthConfig struct {
	AccessSecret string `mapstructure:"access_secret"`
}

// PublisherConfig tunes the adaptive event publisher. Zero values fall back
// to the events package defaults.
type PublisherConfig struct {
	QueueCapacity   int           `mapstructure:"queue_capacity"`
	Workers         int           `mapstructure:"workers"`
	MaxInflight     int           `mapstructure:"max_inflight"`
	EnqueueTimeout  time.Duration `mapstructure:"enqueue_timeout"`
	PublishTimeout  time.Duration `mapstructure:"publish_timeout"`
	DropLowPriority bool          `mapstructure:"drop_low_priority"`
	InitialBackend  string        `mapstructure:"initial_backend"`
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
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", "15s")
	v.SetDefault("server.write_timeout", "15s")
	v.SetDefault("server.idle_timeout", "60s")

	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "relayroom")
	v.SetDefault("database.password", "")
	v.SetDefault("database.database", "relayroom_chat")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.migrations_dir", "migrations")

	v.SetDefault("redis.url", "redis://localhost:6379/0")

	v.SetDefault("nats.url", "nats://localhost:4222")
	v.SetDefault("nats.jetstream", false)

	v.SetDefault("auth.access_secret", "")

	v.SetDefault("publisher.queue_capacity", 0)
	v.SetDefault("publisher.workers", 0)
	v.SetDefault("publisher.max_inflight", 0)
	v.SetDefault("publisher.drop_low_priority", true)
	v.SetDefault("publisher.initial_backend", "")

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
	v.SetEnvPrefix("RELAYROOM_CHAT")
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
