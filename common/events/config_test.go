package events

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDefaultConfigIsValid(t *testing.T) {
	assert.NoError(t, DefaultConfig().Validate())
}

func TestConfigValidate_Invalid(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero queue capacity", func(c *Config) { c.QueueCapacity = 0 }},
		{"negative queue capacity", func(c *Config) { c.QueueCapacity = -1 }},
		{"zero workers", func(c *Config) { c.Workers = 0 }},
		{"zero max inflight", func(c *Config) { c.MaxInflight = 0 }},
		{"zero enqueue timeout", func(c *Config) { c.EnqueueTimeout = 0 }},
		{"zero publish timeout", func(c *Config) { c.PublishTimeout = 0 }},
		{"negative legacy retries", func(c *Config) { c.LegacyRetries = -1 }},
		{"zero retry base delay", func(c *Config) { c.Retry.BaseDelay = 0 }},
		{"jitter above one", func(c *Config) { c.Retry.JitterFraction = 1.5 }},
		{"zero failure threshold", func(c *Config) { c.Breaker.FailureThreshold = 0 }},
		{"zero cooldown", func(c *Config) { c.Breaker.Cooldown = 0 }},
		{"backoff multiplier below one", func(c *Config) { c.Breaker.BackoffMultiplier = 0.5 }},
		{"zero half-open probes", func(c *Config) { c.Breaker.HalfOpenProbes = 0 }},
		{"zero health interval", func(c *Config) { c.Health.Interval = 0 }},
		{"window below a second", func(c *Config) { c.Health.Window = 100 * time.Millisecond }},
		{"sample size too small", func(c *Config) { c.Health.SampleSize = 4 }},
		{"error rate above one", func(c *Config) { c.Health.DegradedErrorRate = 2.0 }},
		{"saturation ratio above one", func(c *Config) { c.Health.QueueSaturationRatio = 1.5 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestNewAdaptivePublisher_RejectsInvalidConfig(t *testing.T) {
	cfg := testConfig()
	cfg.Workers = 0

	p, err := NewAdaptivePublisher(cfg, newFakeTransport(), testLogger())
	assert.Error(t, err)
	assert.Nil(t, p)
}
