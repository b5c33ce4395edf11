package events

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/relayroom/relayroom/common/logging"
)

// switchLogSize bounds the audit trail of backend switches.
const switchLogSize = 64

// selection is the atomically-swapped backend choice. Concurrent publish
// calls observe either the old or the new selection, never a torn value.
type selection struct {
	backend    Backend
	overridden bool
	since      time.Time
}

// HealthStatus is the result of a health check call.
type HealthStatus struct {
	Backend    Backend   `json:"backend"`
	Status     Status    `json:"status"`
	Overridden bool      `json:"overridden"`
	Since      time.Time `json:"since"`
}

// BackendMetrics summarizes one backend's recent publish activity.
type BackendMetrics struct {
	Success    uint64        `json:"success"`
	Failure    uint64        `json:"failure"`
	ErrorRate  float64       `json:"error_rate"`
	P99Latency time.Duration `json:"p99_latency"`
}

// PublisherMetrics is the snapshot returned by Metrics.
type PublisherMetrics struct {
	HighPerformance BackendMetrics  `json:"high_performance"`
	Legacy          BackendMetrics  `json:"legacy"`
	QueueDepth      int             `json:"queue_depth"`
	QueueCapacity   int             `json:"queue_capacity"`
	Circuits        []CircuitStatus `json:"circuits"`
	ActiveBackend   Backend         `json:"active_backend"`
	Overridden      bool            `json:"overridden"`
}

// AdaptivePublisher composes the two publishing paths behind a single
// publish surface. It selects the active backend per call, fails a single
// call over to the other backend when the selected one fails (unless a
// manual override is in force), and re-evaluates the selection asynchronously
// as the health monitor emits decisions.
type AdaptivePublisher struct {
	cfg     Config
	hperf   *HighPerformancePublisher
	legacy  *LegacyPublisher
	monitor *HealthMonitor
	logger  *logging.Logger

	sel atomic.Pointer[selection]

	switchMu  sync.Mutex
	switchLog []SwitchDecision

	closeOnce sync.Once
}

// NewAdaptivePublisher validates the configuration, builds both backends and
// the health monitor, and starts the monitor's sampling loop. A configuration
// error is fatal: no publisher is returned.
func NewAdaptivePublisher(cfg Config, transport Transport, logger *logging.Logger) (*AdaptivePublisher, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	monitor := newHealthMonitor(cfg.Health, logger)
	monitor.connected = transport.IsConnected

	hperf, err := NewHighPerformancePublisher(cfg, transport, monitor, logger)
	if err != nil {
		return nil, err
	}
	monitor.queueStats = hperf.QueueStats

	p := &AdaptivePublisher{
		cfg:     cfg,
		hperf:   hperf,
		legacy:  NewLegacyPublisher(cfg, transport, monitor, logger),
		monitor: monitor,
		logger:  logger,
	}

	initial := &selection{backend: BackendHighPerformance, since: time.Now()}
	if cfg.InitialOverride != nil {
		initial = &selection{backend: *cfg.InitialOverride, overridden: true, since: time.Now()}
	}
	p.sel.Store(initial)
	setActiveBackend(initial.backend)

	monitor.onDecision = p.onHealthDecision
	monitor.start()
	return p, nil
}

// Publish routes the envelope to the active backend. If that backend returns
// Failed and no override is in force, the same envelope is retried once on
// the other backend before the result is returned; an override is honored
// as-is, failure included.
func (p *AdaptivePublisher) Publish(ctx context.Context, env *Envelope) PublishResult {
	sel := p.sel.Load()
	res := p.publishOn(ctx, sel.backend, env)
	if res.Outcome == OutcomeFailed && !sel.overridden {
		failovers.Inc()
		return p.publishOn(ctx, otherBackend(sel.backend), env)
	}
	return res
}

// PublishBatch publishes each envelope independently. There is no atomicity
// across the batch; the result slice is positional.
func (p *AdaptivePublisher) PublishBatch(ctx context.Context, envs []*Envelope) []PublishResult {
	results := make([]PublishResult, len(envs))
	for i, env := range envs {
		results[i] = p.Publish(ctx, env)
	}
	return results
}

func (p *AdaptivePublisher) publishOn(ctx context.Context, b Backend, env *Envelope) PublishResult {
	if b == BackendLegacy {
		return p.legacy.Publish(ctx, env)
	}
	return p.hperf.Publish(ctx, env)
}

func otherBackend(b Backend) Backend {
	if b == BackendHighPerformance {
		return BackendLegacy
	}
	return BackendHighPerformance
}

// SwitchBackend sets a manual override. The override is authoritative until
// ClearOverride is called; automatic health decisions never overwrite it.
func (p *AdaptivePublisher) SwitchBackend(b Backend) {
	for {
		cur := p.sel.Load()
		if cur.overridden && cur.backend == b {
			return
		}
		next := &selection{backend: b, overridden: true, since: time.Now()}
		if p.sel.CompareAndSwap(cur, next) {
			p.recordSwitch(cur.backend, b, DegradationManualOverride)
			return
		}
	}
}

// ClearOverride resumes automatic control. The selection is immediately
// re-evaluated against current health rather than reverting blindly.
func (p *AdaptivePublisher) ClearOverride() {
	for {
		cur := p.sel.Load()
		if !cur.overridden {
			return
		}
		target := BackendHighPerformance
		reason := DegradationRecovered
		if p.monitor.Status() != StatusHealthy {
			target = BackendLegacy
			reason = p.monitor.currentReasonSnapshot()
		}
		next := &selection{backend: target, since: time.Now()}
		if p.sel.CompareAndSwap(cur, next) {
			if cur.backend != target {
				p.recordSwitch(cur.backend, target, reason)
			}
			return
		}
	}
}

func (p *AdaptivePublisher) onHealthDecision(d healthDecision) {
	for {
		cur := p.sel.Load()
		if cur.overridden {
			return
		}
		target := BackendHighPerformance
		if d.status != StatusHealthy {
			target = BackendLegacy
		}
		if cur.backend == target {
			return
		}
		next := &selection{backend: target, since: d.at}
		if p.sel.CompareAndSwap(cur, next) {
			p.recordSwitch(cur.backend, target, d.reason)
			return
		}
	}
}

func (p *AdaptivePublisher) recordSwitch(from, to Backend, reason DegradationReason) {
	setActiveBackend(to)
	p.logger.Info("publisher backend switched",
		"from", from.String(),
		"to", to.String(),
		"reason", reason.String(),
	)
	p.switchMu.Lock()
	p.switchLog = append(p.switchLog, SwitchDecision{From: from, To: to, Reason: reason, Timestamp: time.Now()})
	if len(p.switchLog) > switchLogSize {
		p.switchLog = p.switchLog[len(p.switchLog)-switchLogSize:]
	}
	p.switchMu.Unlock()
}

// SwitchDecisions returns a copy of the bounded switch audit trail, oldest
// first.
func (p *AdaptivePublisher) SwitchDecisions() []SwitchDecision {
	p.switchMu.Lock()
	defer p.switchMu.Unlock()
	out := make([]SwitchDecision, len(p.switchLog))
	copy(out, p.switchLog)
	return out
}

// HealthCheck reports the active backend, its monitored status and when the
// current selection took effect.
func (p *AdaptivePublisher) HealthCheck() HealthStatus {
	sel := p.sel.Load()
	return HealthStatus{
		Backend:    sel.backend,
		Status:     p.monitor.Status(),
		Overridden: sel.overridden,
		Since:      sel.since,
	}
}

// Metrics snapshots both backends, the intake queue and every subject's
// circuit state.
func (p *AdaptivePublisher) Metrics() PublisherMetrics {
	sel := p.sel.Load()
	hp := p.monitor.Metrics(BackendHighPerformance)
	lg := p.monitor.Metrics(BackendLegacy)
	depth, capacity := p.hperf.QueueStats()
	return PublisherMetrics{
		HighPerformance: BackendMetrics{Success: hp.Success, Failure: hp.Failure, ErrorRate: hp.ErrorRate, P99Latency: hp.P99Latency},
		Legacy:          BackendMetrics{Success: lg.Success, Failure: lg.Failure, ErrorRate: lg.ErrorRate, P99Latency: lg.P99Latency},
		QueueDepth:      depth,
		QueueCapacity:   capacity,
		Circuits:        p.hperf.CircuitStatus(),
		ActiveBackend:   sel.backend,
		Overridden:      sel.overridden,
	}
}

// Close stops the health monitor, drains the high-performance queue and
// waits for in-flight deliveries. New intake is refused during the drain.
func (p *AdaptivePublisher) Close() {
	p.closeOnce.Do(func() {
		p.monitor.Stop()
		p.hperf.Close()
	})
}
