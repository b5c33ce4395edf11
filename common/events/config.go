package events

import (
	"fmt"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// RetryConfig bounds the in-publisher retry loop around transport calls.
type RetryConfig struct {
	// MaxRetries is the number of additional attempts after the first.
	MaxRetries int `mapstructure:"max_retries"`

	// BaseDelay is the backoff before the first retry; subsequent retries
	// double it up to MaxDelay.
	BaseDelay time.Duration `mapstructure:"base_delay"`

	// MaxDelay caps the exponential backoff.
	MaxDelay time.Duration `mapstructure:"max_delay"`

	// JitterFraction randomizes each delay by up to this fraction of its
	// value, in [0, 1].
	JitterFraction float64 `mapstructure:"jitter_fraction"`
}

// BreakerConfig tunes the per-subject circuit breakers.
type BreakerConfig struct {
	// FailureThreshold is the number of consecutive failures that opens the
	// circuit for a subject.
	FailureThreshold int `mapstructure:"failure_threshold"`

	// Cooldown is the base open duration before a half-open probe window.
	Cooldown time.Duration `mapstructure:"cooldown"`

	// MaxCooldown caps the cooldown growth from repeated probe failures.
	MaxCooldown time.Duration `mapstructure:"max_cooldown"`

	// BackoffMultiplier scales the cooldown after a failed half-open probe.
	BackoffMultiplier float64 `mapstructure:"backoff_multiplier"`

	// HalfOpenProbes is the concurrent trial-call budget while half-open.
	HalfOpenProbes int `mapstructure:"half_open_probes"`
}

// HealthConfig tunes the health monitor's sampling and thresholds.
type HealthConfig struct {
	// Interval is how often the monitor re-evaluates backend health.
	Interval time.Duration `mapstructure:"interval"`

	// Window is the rolling time window metrics are derived over.
	Window time.Duration `mapstructure:"window"`

	// SampleSize is the capacity of the latency sample ring per backend.
	SampleSize int `mapstructure:"sample_size"`

	// DegradedErrorRate and UnhealthyErrorRate classify the error rate over
	// the window, in [0, 1].
	DegradedErrorRate  float64 `mapstructure:"degraded_error_rate"`
	UnhealthyErrorRate float64 `mapstructure:"unhealthy_error_rate"`

	// DegradedLatency is the p99 latency above which the backend is Degraded.
	DegradedLatency time.Duration `mapstructure:"degraded_latency"`

	// QueueSaturationRatio is the queue depth / capacity ratio above which
	// the backend is Degraded, in [0, 1].
	QueueSaturationRatio float64 `mapstructure:"queue_saturation_ratio"`

	// DwellTime is how long a new status must persist before an automatic
	// backend switch is triggered. Prevents flapping near a threshold.
	DwellTime time.Duration `mapstructure:"dwell_time"`
}

// Config is the full configuration surface of the adaptive publisher.
// Invalid configuration is fatal at construction; the publisher refuses to
// start rather than run with unsafe limits.
type Config struct {
	// QueueCapacity bounds the high-performance intake queue.
	QueueCapacity int `mapstructure:"queue_capacity"`

	// Workers is the fixed size of the dispatch pool.
	Workers int `mapstructure:"workers"`

	// MaxInflight caps concurrent transport calls independently of queue depth.
	MaxInflight int `mapstructure:"max_inflight"`

	// EnqueueTimeout is how long a publish call blocks on a full queue before
	// returning Backpressure.
	EnqueueTimeout time.Duration `mapstructure:"enqueue_timeout"`

	// PublishTimeout bounds the caller's wait for a terminal result. It does
	// not abort the underlying transport write.
	PublishTimeout time.Duration `mapstructure:"publish_timeout"`

	// DropLowPriority enables the drop policy: low-priority envelopes are
	// dropped immediately instead of blocking when the queue is full.
	DropLowPriority bool `mapstructure:"drop_low_priority"`

	// LegacyRetries is the small fixed attempt budget of the legacy path
	// (total attempts = LegacyRetries + 1).
	LegacyRetries int `mapstructure:"legacy_retries"`

	// LegacyRetryDelay is the fixed pause between legacy attempts.
	LegacyRetryDelay time.Duration `mapstructure:"legacy_retry_delay"`

	Retry   RetryConfig   `mapstructure:"retry"`
	Breaker BreakerConfig `mapstructure:"breaker"`
	Health  HealthConfig  `mapstructure:"health"`

	// InitialOverride pins the active backend at startup. The override is
	// authoritative until ClearOverride is called.
	InitialOverride *Backend `mapstructure:"-"`
}

// DefaultConfig returns production defaults for the adaptive publisher.
func DefaultConfig() Config {
	return Config{
		QueueCapacity:    4096,
		Workers:          8,
		MaxInflight:      32,
		EnqueueTimeout:   2 * time.Second,
		PublishTimeout:   10 * time.Second,
		DropLowPriority:  true,
		LegacyRetries:    2,
		LegacyRetryDelay: 100 * time.Millisecond,
		Retry: RetryConfig{
			MaxRetries:     3,
			BaseDelay:      50 * time.Millisecond,
			MaxDelay:       2 * time.Second,
			JitterFraction: 0.2,
		},
		Breaker: BreakerConfig{
			FailureThreshold:  5,
			Cooldown:          5 * time.Second,
			MaxCooldown:       2 * time.Minute,
			BackoffMultiplier: 2.0,
			HalfOpenProbes:    2,
		},
		Health: HealthConfig{
			Interval:             5 * time.Second,
			Window:               60 * time.Second,
			SampleSize:           1024,
			DegradedErrorRate:    0.10,
			UnhealthyErrorRate:   0.50,
			DegradedLatency:      500 * time.Millisecond,
			QueueSaturationRatio: 0.90,
			DwellTime:            15 * time.Second,
		},
	}
}

// Validate checks the configuration. A non-nil error means the publisher must
// not be constructed.
func (c Config) Validate() error {
	err := validation.ValidateStruct(&c,
		validation.Field(&c.QueueCapacity, validation.Required, validation.Min(1)),
		validation.Field(&c.Workers, validation.Required, validation.Min(1)),
		validation.Field(&c.MaxInflight, validation.Required, validation.Min(1)),
		validation.Field(&c.EnqueueTimeout, validation.Required, validation.Min(time.Millisecond)),
		validation.Field(&c.PublishTimeout, validation.Required, validation.Min(time.Millisecond)),
		validation.Field(&c.LegacyRetries, validation.Min(0)),
		validation.Field(&c.LegacyRetryDelay, validation.Min(time.Duration(0))),
	)
	if err != nil {
		return fmt.Errorf("publisher config: %w", err)
	}

	if err := c.Retry.validate(); err != nil {
		return fmt.Errorf("publisher config: retry: %w", err)
	}
	if err := c.Breaker.validate(); err != nil {
		return fmt.Errorf("publisher config: breaker: %w", err)
	}
	if err := c.Health.validate(); err != nil {
		return fmt.Errorf("publisher config: health: %w", err)
	}
	return nil
}

func (c RetryConfig) validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.MaxRetries, validation.Min(0)),
		validation.Field(&c.BaseDelay, validation.Required, validation.Min(time.Millisecond)),
		validation.Field(&c.MaxDelay, validation.Required, validation.Min(time.Millisecond)),
		validation.Field(&c.JitterFraction, validation.Min(0.0), validation.Max(1.0)),
	)
}

func (c BreakerConfig) validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.FailureThreshold, validation.Required, validation.Min(1)),
		validation.Field(&c.Cooldown, validation.Required, validation.Min(time.Millisecond)),
		validation.Field(&c.MaxCooldown, validation.Required, validation.Min(time.Millisecond)),
		validation.Field(&c.BackoffMultiplier, validation.Required, validation.Min(1.0)),
		validation.Field(&c.HalfOpenProbes, validation.Required, validation.Min(1)),
	)
}

func (c HealthConfig) validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.Interval, validation.Required, validation.Min(time.Millisecond)),
		validation.Field(&c.Window, validation.Required, validation.Min(time.Second)),
		validation.Field(&c.SampleSize, validation.Required, validation.Min(16)),
		validation.Field(&c.DegradedErrorRate, validation.Required, validation.Min(0.0), validation.Max(1.0)),
		validation.Field(&c.UnhealthyErrorRate, validation.Required, validation.Min(0.0), validation.Max(1.0)),
		validation.Field(&c.DegradedLatency, validation.Required, validation.Min(time.Millisecond)),
		validation.Field(&c.QueueSaturationRatio, validation.Required, validation.Min(0.0), validation.Max(1.0)),
		validation.Field(&c.DwellTime, validation.Min(time.Duration(0))),
	)
}
