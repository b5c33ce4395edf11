package events

import (
	"encoding/json"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/relayroom/relayroom/common/logging"
)

// Status classifies a backend's health over the rolling window.
type Status int

const (
	StatusHealthy Status = iota
	StatusDegraded
	StatusUnhealthy
)

// String returns a human-readable representation of the status.
func (s Status) String() string {
	switch s {
	case StatusHealthy:
		return "healthy"
	case StatusDegraded:
		return "degraded"
	case StatusUnhealthy:
		return "unhealthy"
	default:
		return "unknown"
	}
}

// MarshalJSON renders the status as its string form.
func (s Status) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

// HealthMetrics is the derived view over one backend's rolling window.
// Counters are read-consistent but not linearizable across each other;
// staleness up to one bucket is acceptable.
type HealthMetrics struct {
	Success    uint64        `json:"success"`
	Failure    uint64        `json:"failure"`
	ErrorRate  float64       `json:"error_rate"`
	P99Latency time.Duration `json:"p99_latency"`
	QueueDepth int           `json:"queue_depth"`
}

// healthDecision is emitted to the adaptive publisher when the monitored
// status crosses a threshold and persists past the dwell time.
type healthDecision struct {
	status Status
	reason DegradationReason
	at     time.Time
}

// bucket accumulates outcomes for one wall-clock second. The epoch second is
// stored alongside the counters so stale buckets are detected and recycled
// without locking the hot path.
type bucket struct {
	sec     atomic.Int64
	success atomic.Uint64
	failure atomic.Uint64
}

// window is a per-backend rolling metrics window. Writes are lock-free; the
// monitor's sampling loop only performs atomic reads.
type window struct {
	buckets []*bucket
	samples []atomic.Int64 // latency samples, nanoseconds
	nextIdx atomic.Uint64
}

func newWindow(span time.Duration, sampleSize int) *window {
	n := int(span/time.Second) + 1
	w := &window{
		buckets: make([]*bucket, n),
		samples: make([]atomic.Int64, sampleSize),
	}
	for i := range w.buckets {
		w.buckets[i] = &bucket{}
	}
	return w
}

func (w *window) record(now time.Time, ok bool, latency time.Duration) {
	sec := now.Unix()
	b := w.buckets[int(sec)%len(w.buckets)]
	if old := b.sec.Load(); old != sec {
		// Recycle the bucket for the new second. Concurrent writers may both
		// reset; a lost increment near the boundary is acceptable staleness.
		if b.sec.CompareAndSwap(old, sec) {
			b.success.Store(0)
			b.failure.Store(0)
		}
	}
	if ok {
		b.success.Add(1)
	} else {
		b.failure.Add(1)
	}
	if ok && latency > 0 {
		i := w.nextIdx.Add(1) - 1
		w.samples[int(i)%len(w.samples)].Store(int64(latency))
	}
}

func (w *window) snapshot(now time.Time, span time.Duration) HealthMetrics {
	var m HealthMetrics
	oldest := now.Add(-span).Unix()
	for _, b := range w.buckets {
		if b.sec.Load() < oldest {
			continue
		}
		m.Success += b.success.Load()
		m.Failure += b.failure.Load()
	}
	if total := m.Success + m.Failure; total > 0 {
		m.ErrorRate = float64(m.Failure) / float64(total)
	}
	m.P99Latency = w.p99()
	return m
}

func (w *window) p99() time.Duration {
	recorded := w.nextIdx.Load()
	if recorded == 0 {
		return 0
	}
	n := len(w.samples)
	if recorded < uint64(n) {
		n = int(recorded)
	}
	vals := make([]int64, 0, n)
	for i := 0; i < n; i++ {
		if v := w.samples[i].Load(); v > 0 {
			vals = append(vals, v)
		}
	}
	if len(vals) == 0 {
		return 0
	}
	sort.Slice(vals, func(i, j int) bool { return vals[i] < vals[j] })
	idx := (len(vals) * 99) / 100
	if idx >= len(vals) {
		idx = len(vals) - 1
	}
	return time.Duration(vals[idx])
}

// HealthMonitor continuously decides which backend should be active. It
// samples the high-performance backend's rolling metrics at a fixed interval,
// classifies them against the configured thresholds, and emits a decision
// only after the new status has persisted for the dwell time. The legacy
// backend has no breaker to evaluate and is always a valid fallback, but its
// failure rate is tracked for alerting.
type HealthMonitor struct {
	cfg    HealthConfig
	logger *logging.Logger

	hperf  *window
	legacy *window

	queueStats func() (depth, capacity int)
	connected  func() bool
	onDecision func(healthDecision)
	now        func() time.Time

	mu             sync.Mutex
	current        Status
	currentReason  DegradationReason
	candidate      Status
	candidateSince time.Time
	legacyAlerted  bool

	stop chan struct{}
	done chan struct{}
}

func newHealthMonitor(cfg HealthConfig, logger *logging.Logger) *HealthMonitor {
	return &HealthMonitor{
		cfg:     cfg,
		logger:  logger,
		hperf:   newWindow(cfg.Window, cfg.SampleSize),
		legacy:  newWindow(cfg.Window, cfg.SampleSize),
		now:     time.Now,
		current: StatusHealthy,
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}
}

// Record feeds one publish outcome into the backend's rolling window.
// Called from the hot publish path; lock-free.
func (h *HealthMonitor) Record(backend Backend, ok bool, latency time.Duration) {
	w := h.hperf
	if backend == BackendLegacy {
		w = h.legacy
	}
	w.record(h.now(), ok, latency)
}

// Metrics returns the derived metrics for one backend.
func (h *HealthMonitor) Metrics(backend Backend) HealthMetrics {
	w := h.hperf
	if backend == BackendLegacy {
		w = h.legacy
	}
	m := w.snapshot(h.now(), h.cfg.Window)
	if backend == BackendHighPerformance && h.queueStats != nil {
		m.QueueDepth, _ = h.queueStats()
	}
	return m
}

// Status returns the monitor's current classification of the
// high-performance backend.
func (h *HealthMonitor) Status() Status {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.current
}

// currentReasonSnapshot returns the reason behind the current status.
func (h *HealthMonitor) currentReasonSnapshot() DegradationReason {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.currentReason
}

func (h *HealthMonitor) start() {
	go func() {
		defer close(h.done)
		ticker := time.NewTicker(h.cfg.Interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				h.evaluate(h.now())
			case <-h.stop:
				return
			}
		}
	}()
}

func (h *HealthMonitor) Stop() {
	close(h.stop)
	<-h.done
}

// classify derives the status (and the dominant reason) from the current
// window. Transport disconnect always wins; the remaining rules run from the
// most to the least severe signal.
func (h *HealthMonitor) classify(m HealthMetrics) (Status, DegradationReason) {
	if h.connected != nil && !h.connected() {
		return StatusUnhealthy, DegradationTransportDown
	}
	if m.Success+m.Failure > 0 {
		if m.ErrorRate >= h.cfg.UnhealthyErrorRate {
			return StatusUnhealthy, DegradationHighErrorRate
		}
		if m.ErrorRate >= h.cfg.DegradedErrorRate {
			return StatusDegraded, DegradationHighErrorRate
		}
	}
	if m.P99Latency >= h.cfg.DegradedLatency {
		return StatusDegraded, DegradationHighLatency
	}
	if h.queueStats != nil {
		depth, capacity := h.queueStats()
		if capacity > 0 && float64(depth)/float64(capacity) >= h.cfg.QueueSaturationRatio {
			return StatusDegraded, DegradationQueueSaturation
		}
	}
	return StatusHealthy, DegradationNone
}

func (h *HealthMonitor) evaluate(now time.Time) {
	m := h.hperf.snapshot(now, h.cfg.Window)
	status, reason := h.classify(m)
	h.checkLegacy(now)

	h.mu.Lock()
	if status != h.candidate {
		h.candidate = status
		h.candidateSince = now
	}
	if h.candidate == h.current || now.Sub(h.candidateSince) < h.cfg.DwellTime {
		h.mu.Unlock()
		return
	}
	prev := h.current
	h.current = h.candidate
	if h.current == StatusHealthy {
		reason = DegradationRecovered
	}
	h.currentReason = reason
	cb := h.onDecision
	h.mu.Unlock()

	h.logger.Info("publisher health status changed",
		"from", prev.String(),
		"to", status.String(),
		"reason", reason.String(),
		"error_rate", m.ErrorRate,
		"p99_ms", m.P99Latency.Milliseconds(),
	)
	if cb != nil {
		cb(healthDecision{status: status, reason: reason, at: now})
	}
}

// checkLegacy alerts when the last-line-of-defense path is itself failing.
// There is no automated remedy beyond logging loudly.
func (h *HealthMonitor) checkLegacy(now time.Time) {
	m := h.legacy.snapshot(now, h.cfg.Window)
	failing := m.Success+m.Failure > 0 && m.ErrorRate >= h.cfg.UnhealthyErrorRate
	h.mu.Lock()
	alerted := h.legacyAlerted
	h.legacyAlerted = failing
	h.mu.Unlock()
	if failing && !alerted {
		h.logger.Error("legacy publisher failure rate critical",
			"error_rate", m.ErrorRate,
			"failures", m.Failure,
		)
	}
}
