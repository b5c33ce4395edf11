package events

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/relayroom/relayroom/common/logging"
)

// fakeTransport is a scriptable in-memory transport. The default behavior is
// to accept every publish; tests override publishFn to inject failures and
// latency.
type fakeTransport struct {
	mu        sync.Mutex
	calls     int
	subjects  []string
	payloads  [][]byte
	publishFn func(subject string, payload []byte) error
	connected bool
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{connected: true}
}

func (t *fakeTransport) Publish(ctx context.Context, subject string, payload []byte) error {
	t.mu.Lock()
	t.calls++
	t.subjects = append(t.subjects, subject)
	t.payloads = append(t.payloads, append([]byte(nil), payload...))
	fn := t.publishFn
	t.mu.Unlock()

	if fn != nil {
		return fn(subject, payload)
	}
	return nil
}

func (t *fakeTransport) IsConnected() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.connected
}

func (t *fakeTransport) setConnected(up bool) {
	t.mu.Lock()
	t.connected = up
	t.mu.Unlock()
}

func (t *fakeTransport) callCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.calls
}

func (t *fakeTransport) lastPayload() []byte {
	t.mu.Lock()
	defer t.mu.Unlock()
	if len(t.payloads) == 0 {
		return nil
	}
	return t.payloads[len(t.payloads)-1]
}

// failFirstN fails the first n calls per key and succeeds afterwards.
func (t *fakeTransport) failFirstN(n int, key func(subject string, payload []byte) string) {
	attempts := make(map[string]int)
	var mu sync.Mutex
	t.publishFn = func(subject string, payload []byte) error {
		mu.Lock()
		defer mu.Unlock()
		k := key(subject, payload)
		attempts[k]++
		if attempts[k] <= n {
			return fmt.Errorf("injected failure %d for %s", attempts[k], k)
		}
		return nil
	}
}

func testLogger() *logging.Logger {
	return logging.New(slog.LevelError, "text")
}

// testConfig returns a config tuned for fast deterministic tests.
func testConfig() Config {
	cfg := DefaultConfig()
	cfg.QueueCapacity = 64
	cfg.Workers = 2
	cfg.MaxInflight = 8
	cfg.EnqueueTimeout = 50 * time.Millisecond
	cfg.PublishTimeout = 2 * time.Second
	cfg.LegacyRetries = 1
	cfg.LegacyRetryDelay = time.Millisecond
	cfg.Retry = RetryConfig{
		MaxRetries:     3,
		BaseDelay:      time.Millisecond,
		MaxDelay:       5 * time.Millisecond,
		JitterFraction: 0,
	}
	cfg.Breaker = BreakerConfig{
		FailureThreshold:  5,
		Cooldown:          100 * time.Millisecond,
		MaxCooldown:       time.Second,
		BackoffMultiplier: 2.0,
		HalfOpenProbes:    1,
	}
	cfg.Health = HealthConfig{
		Interval:             10 * time.Millisecond,
		Window:               time.Second,
		SampleSize:           64,
		DegradedErrorRate:    0.10,
		UnhealthyErrorRate:   0.50,
		DegradedLatency:      500 * time.Millisecond,
		QueueSaturationRatio: 0.90,
		DwellTime:            0,
	}
	return cfg
}

func TestTransportError(t *testing.T) {
	inner := errors.New("connection refused")
	err := &TransportError{Subject: "chat.message.created", Err: inner}

	assert.Contains(t, err.Error(), "chat.message.created")
	assert.Contains(t, err.Error(), "connection refused")
	assert.ErrorIs(t, err, inner)
}
