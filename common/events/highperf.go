package events

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/relayroom/relayroom/common/logging"
)

// HighPerformancePublisher is the concurrent, channel-backed publishing path.
// Intake goes through a bounded multi-producer queue drained by a fixed
// worker pool; concurrent transport calls are capped by a semaphore
// independent of queue depth, and each subject is isolated behind its own
// circuit breaker.
type HighPerformancePublisher struct {
	cfg       Config
	transport Transport
	breakers  *breakerMap
	monitor   *HealthMonitor
	logger    *logging.Logger

	queue chan *queueItem
	sem   chan struct{}

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
}

type queueItem struct {
	ctx  context.Context
	env  *Envelope
	done chan PublishResult
}

// NewHighPerformancePublisher validates the configuration and starts the
// worker pool. The monitor receives every attempt outcome out-of-band.
func NewHighPerformancePublisher(cfg Config, transport Transport, monitor *HealthMonitor, logger *logging.Logger) (*HighPerformancePublisher, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	p := &HighPerformancePublisher{
		cfg:       cfg,
		transport: transport,
		breakers:  newBreakerMap(cfg.Breaker),
		monitor:   monitor,
		logger:    logger,
		queue:     make(chan *queueItem, cfg.QueueCapacity),
		sem:       make(chan struct{}, cfg.MaxInflight),
	}
	queueCapacity.Set(float64(cfg.QueueCapacity))
	p.wg.Add(cfg.Workers)
	for i := 0; i < cfg.Workers; i++ {
		go p.worker()
	}
	return p, nil
}

// Publish enqueues the envelope and waits for a terminal result. When the
// queue is at capacity the call blocks up to EnqueueTimeout and then returns
// Backpressure; under the drop policy, low-priority envelopes are dropped
// immediately instead. The caller's wait is additionally bounded by
// PublishTimeout; a timed-out call has an unknown outcome, since the
// underlying write is not retracted.
func (p *HighPerformancePublisher) Publish(ctx context.Context, env *Envelope) PublishResult {
	p.mu.RLock()
	if p.closed {
		p.mu.RUnlock()
		return droppedResult(ReasonShutdown)
	}
	item := &queueItem{ctx: ctx, env: env, done: make(chan PublishResult, 1)}
	refused, ok := p.enqueue(ctx, item)
	p.mu.RUnlock()
	if !ok {
		recordOutcome(BackendHighPerformance, refused)
		return refused
	}

	timer := time.NewTimer(p.cfg.PublishTimeout)
	defer timer.Stop()
	select {
	case res := <-item.done:
		recordOutcome(BackendHighPerformance, res)
		return res
	case <-timer.C:
		res := failedResult(ReasonTimeout, false, context.DeadlineExceeded)
		recordOutcome(BackendHighPerformance, res)
		return res
	case <-ctx.Done():
		res := failedResult(ReasonCanceled, false, ctx.Err())
		recordOutcome(BackendHighPerformance, res)
		return res
	}
}

// enqueue reports whether the item was accepted; when it was not, the first
// return value is the result to hand back to the caller.
func (p *HighPerformancePublisher) enqueue(ctx context.Context, item *queueItem) (PublishResult, bool) {
	if p.cfg.DropLowPriority && item.env.Priority == PriorityLow {
		select {
		case p.queue <- item:
			queueDepth.Set(float64(len(p.queue)))
			return PublishResult{}, true
		default:
			return droppedResult(ReasonQueueSaturation), false
		}
	}

	timer := time.NewTimer(p.cfg.EnqueueTimeout)
	defer timer.Stop()
	select {
	case p.queue <- item:
		queueDepth.Set(float64(len(p.queue)))
		return PublishResult{}, true
	case <-timer.C:
		return backpressureResult(), false
	case <-ctx.Done():
		return failedResult(ReasonCanceled, false, ctx.Err()), false
	}
}

func (p *HighPerformancePublisher) worker() {
	defer p.wg.Done()
	for item := range p.queue {
		queueDepth.Set(float64(len(p.queue)))
		res := p.deliver(item.ctx, item.env)
		item.done <- res
	}
}

// deliver runs the retry loop for one envelope. Retries only happen while
// the subject's circuit is closed or half-open; an open circuit fails fast
// without contacting the transport.
func (p *HighPerformancePublisher) deliver(ctx context.Context, env *Envelope) PublishResult {
	var lastErr error
	for attempt := 0; ; attempt++ {
		if !p.breakers.allow(env.Subject) {
			return failedResult(ReasonCircuitOpen, true, lastErr)
		}

		select {
		case p.sem <- struct{}{}:
		case <-ctx.Done():
			return failedResult(ReasonCanceled, false, ctx.Err())
		}
		start := time.Now()
		err := p.transport.Publish(ctx, env.Subject, env.Payload)
		latency := time.Since(start)
		<-p.sem

		p.monitor.Record(BackendHighPerformance, err == nil, latency)
		publishDuration.WithLabelValues(BackendHighPerformance.String()).Observe(latency.Seconds())

		if err == nil {
			p.breakers.onSuccess(env.Subject)
			return successResult(latency)
		}
		p.breakers.onFailure(env.Subject)
		lastErr = &TransportError{Subject: env.Subject, Err: err}

		if attempt >= p.cfg.Retry.MaxRetries {
			p.logger.Warn("publish retries exhausted",
				"subject", env.Subject,
				"event_id", env.ID.String(),
				"attempts", attempt+1,
				"error", err,
			)
			return failedResult(ReasonRetriesExhausted, true, lastErr)
		}

		backoff := p.backoff(attempt)
		timer := time.NewTimer(backoff)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return failedResult(ReasonCanceled, false, ctx.Err())
		}
	}
}

// backoff computes the delay before retry attempt+1: exponential growth from
// BaseDelay capped at MaxDelay, with up to JitterFraction of random spread to
// avoid synchronized retries across workers.
func (p *HighPerformancePublisher) backoff(attempt int) time.Duration {
	d := p.cfg.Retry.BaseDelay << uint(attempt)
	if d > p.cfg.Retry.MaxDelay || d <= 0 {
		d = p.cfg.Retry.MaxDelay
	}
	if f := p.cfg.Retry.JitterFraction; f > 0 {
		jitter := time.Duration(rand.Int63n(int64(float64(d) * f)))
		d += jitter
	}
	return d
}

// QueueStats reports the current intake depth and capacity.
func (p *HighPerformancePublisher) QueueStats() (depth, capacity int) {
	return len(p.queue), cap(p.queue)
}

// CircuitStatus snapshots every tracked subject's breaker.
func (p *HighPerformancePublisher) CircuitStatus() []CircuitStatus {
	return p.breakers.snapshot()
}

// Close stops intake, drains the queued envelopes through the workers, and
// waits for in-flight deliveries to finish.
func (p *HighPerformancePublisher) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	close(p.queue)
	p.mu.Unlock()
	p.wg.Wait()
}
