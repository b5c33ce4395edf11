package events

import (
	"hash/fnv"
	"sync"
	"time"
)

// breakerShardCount bounds lock contention on the per-subject circuit map.
// Subjects hash to a shard; each shard serializes state transitions for the
// subjects it owns, giving a total order of transitions per subject.
const breakerShardCount = 16

type circuitState int

const (
	circuitClosed circuitState = iota
	circuitOpen
	circuitHalfOpen
)

func (s circuitState) String() string {
	switch s {
	case circuitClosed:
		return "closed"
	case circuitOpen:
		return "open"
	case circuitHalfOpen:
		return "half_open"
	default:
		return "unknown"
	}
}

// CircuitStatus is a read-only snapshot of one subject's breaker, exposed
// through publisher metrics.
type CircuitStatus struct {
	Subject             string    `json:"subject"`
	State               string    `json:"state"`
	ConsecutiveFailures int       `json:"consecutive_failures"`
	ReopenAt            time.Time `json:"reopen_at,omitempty"`
}

// breaker holds the circuit state for a single subject. All fields are
// guarded by the owning shard's mutex.
type breaker struct {
	state    circuitState
	failures int           // consecutive failures while closed
	cooldown time.Duration // current open duration, grows on probe failure
	reopenAt time.Time
	probes   int // in-flight trial calls while half-open
}

type breakerShard struct {
	mu       sync.Mutex
	breakers map[string]*breaker
}

// breakerMap is the sharded per-subject circuit breaker used by the
// high-performance publisher. A misbehaving subject is isolated without
// penalizing others.
type breakerMap struct {
	cfg    BreakerConfig
	shards [breakerShardCount]*breakerShard
	now    func() time.Time
}

func newBreakerMap(cfg BreakerConfig) *breakerMap {
	m := &breakerMap{cfg: cfg, now: time.Now}
	for i := range m.shards {
		m.shards[i] = &breakerShard{breakers: make(map[string]*breaker)}
	}
	return m
}

func (m *breakerMap) shard(subject string) *breakerShard {
	h := fnv.New32a()
	h.Write([]byte(subject))
	return m.shards[h.Sum32()%breakerShardCount]
}

func (m *breakerMap) get(s *breakerShard, subject string) *breaker {
	b, ok := s.breakers[subject]
	if !ok {
		b = &breaker{state: circuitClosed, cooldown: m.cfg.Cooldown}
		s.breakers[subject] = b
	}
	return b
}

// allow reports whether a transport attempt may proceed for the subject.
// While open, calls fail fast until the cooldown elapses; then the circuit
// goes half-open and admits up to HalfOpenProbes concurrent trial calls.
func (m *breakerMap) allow(subject string) bool {
	s := m.shard(subject)
	s.mu.Lock()
	defer s.mu.Unlock()

	b := m.get(s, subject)
	switch b.state {
	case circuitClosed:
		return true
	case circuitOpen:
		if m.now().Before(b.reopenAt) {
			return false
		}
		b.state = circuitHalfOpen
		b.probes = 1
		return true
	case circuitHalfOpen:
		if b.probes >= m.cfg.HalfOpenProbes {
			return false
		}
		b.probes++
		return true
	}
	return false
}

// onSuccess records a successful transport call. A half-open probe success
// closes the circuit and resets the cooldown to its base value.
func (m *breakerMap) onSuccess(subject string) {
	s := m.shard(subject)
	s.mu.Lock()
	defer s.mu.Unlock()

	b := m.get(s, subject)
	switch b.state {
	case circuitClosed:
		b.failures = 0
	case circuitHalfOpen:
		b.state = circuitClosed
		b.failures = 0
		b.probes = 0
		b.cooldown = m.cfg.Cooldown
		circuitTransitions.WithLabelValues(subject, "closed").Inc()
	}
}

// onFailure records a failed transport call. The threshold applies to
// consecutive failures while closed; any half-open probe failure reopens the
// circuit with a multiplied cooldown, capped at MaxCooldown.
func (m *breakerMap) onFailure(subject string) {
	s := m.shard(subject)
	s.mu.Lock()
	defer s.mu.Unlock()

	b := m.get(s, subject)
	switch b.state {
	case circuitClosed:
		b.failures++
		if b.failures >= m.cfg.FailureThreshold {
			b.state = circuitOpen
			b.reopenAt = m.now().Add(b.cooldown)
			circuitTransitions.WithLabelValues(subject, "open").Inc()
		}
	case circuitHalfOpen:
		next := time.Duration(float64(b.cooldown) * m.cfg.BackoffMultiplier)
		if next > m.cfg.MaxCooldown {
			next = m.cfg.MaxCooldown
		}
		b.cooldown = next
		b.state = circuitOpen
		b.reopenAt = m.now().Add(b.cooldown)
		b.probes = 0
		b.failures = 0
		circuitTransitions.WithLabelValues(subject, "open").Inc()
	case circuitOpen:
		// A call admitted before the transition raced the open; nothing to do.
	}
}

// snapshot returns the current state of every tracked subject.
func (m *breakerMap) snapshot() []CircuitStatus {
	var out []CircuitStatus
	for _, s := range m.shards {
		s.mu.Lock()
		for subject, b := range s.breakers {
			cs := CircuitStatus{
				Subject:             subject,
				State:               b.state.String(),
				ConsecutiveFailures: b.failures,
			}
			if b.state == circuitOpen {
				cs.ReopenAt = b.reopenAt
			}
			out = append(out, cs)
		}
		s.mu.Unlock()
	}
	return out
}

// stateOf returns the current state for one subject without creating it.
func (m *breakerMap) stateOf(subject string) circuitState {
	s := m.shard(subject)
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.breakers[subject]
	if !ok {
		return circuitClosed
	}
	return b.state
}
