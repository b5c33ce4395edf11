package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the indexer
type Config struct {
	NATS        NATSConfig       `mapstructure:"nats"`
	OpenSearch  OpenSearchConfig `mapstructure:"opensearch"`
	Indexer     IndexerConfig    `mapstructure:"indexer"`
	Logging     LoggingConfig    `mapstructure:"logging"`
	MetricsPort int              `mapstructure:"metrics_port"`
}

// NATSConfig holds broker connection settings
type NATSConfig struct {
	URL string `mapstructure:"url"`
}

// OpenSearchConfig holds search cluster settings
type OpenSearchConfig struct {
	URL      string `mapstructure:"url"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	Insecure bool   `mapstructure:"insecure"`
}

// IndexerConfig tunes batching and dedup behavior
type IndexerConfig struct {
	Index         string        `mapstructure:"index"`
	BatchSize     int           `mapstructure:"batch_size"`
	FlushInterval time.Duration `mapstructure:"flush_interval"`
	DedupWindow   int           `mapstructure:"dedup_window"`
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
	v.SetDefault("nats.url", "nats://localhost:4222")

	v.SetDefault("opensearch.url", "https://localhost:9200")
	v.SetDefault("opensearch.username", "admin")
	v.SetDefault("opensearch.password", "")
	v.SetDefault("opensearch.insecure", true)

	v.SetDefault("indexer.index", "chat-messages")
	v.SetDefault("indexer.batch_size", 100)
	v.SetDefault("indexer.flush_interval", "2s")
	v.SetDefault("indexer.dedup_window", 10000)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	v.SetDefault("metrics_port", 9102)

	// Read from config file if provided
	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// Environment variables override file config
	v.SetEnvPrefix("RELAYROOM_INDEXER")
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}
