package events

import (
	"context"
	"time"

	"github.com/relayroom/relayroom/common/logging"
)

// LegacyPublisher is the unconditional best-effort fallback: synchronous
// direct publish with a small fixed retry count, no circuit breaker and no
// queue. It always attempts, because it is the last line of defense when the
// high-performance path is degraded. Repeated failures here are operationally
// critical and logged as such.
type LegacyPublisher struct {
	transport  Transport
	retries    int
	retryDelay time.Duration
	monitor    *HealthMonitor
	logger     *logging.Logger
}

// NewLegacyPublisher constructs the fallback path.
func NewLegacyPublisher(cfg Config, transport Transport, monitor *HealthMonitor, logger *logging.Logger) *LegacyPublisher {
	return &LegacyPublisher{
		transport:  transport,
		retries:    cfg.LegacyRetries,
		retryDelay: cfg.LegacyRetryDelay,
		monitor:    monitor,
		logger:     logger,
	}
}

// Publish delivers the envelope synchronously. Failures are surfaced to the
// caller after the fixed attempt budget; there is no further fallback behind
// this path.
func (p *LegacyPublisher) Publish(ctx context.Context, env *Envelope) PublishResult {
	var lastErr error
	attempts := p.retries + 1
	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 && p.retryDelay > 0 {
			timer := time.NewTimer(p.retryDelay)
			select {
			case <-timer.C:
			case <-ctx.Done():
				timer.Stop()
				res := failedResult(ReasonCanceled, false, ctx.Err())
				recordOutcome(BackendLegacy, res)
				return res
			}
		}

		start := time.Now()
		err := p.transport.Publish(ctx, env.Subject, env.Payload)
		latency := time.Since(start)
		p.monitor.Record(BackendLegacy, err == nil, latency)
		publishDuration.WithLabelValues(BackendLegacy.String()).Observe(latency.Seconds())

		if err == nil {
			res := successResult(latency)
			recordOutcome(BackendLegacy, res)
			return res
		}
		lastErr = &TransportError{Subject: env.Subject, Err: err}
	}

	p.logger.Error("legacy publish failed, no further fallback",
		"subject", env.Subject,
		"event_id", env.ID.String(),
		"attempts", attempts,
		"error", lastErr,
	)
	res := failedResult(ReasonRetriesExhausted, true, lastErr)
	recordOutcome(BackendLegacy, res)
	return res
}
