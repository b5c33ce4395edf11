// Package events implements the adaptive event-publishing subsystem used by
// RelayRoom services to fan domain events out to the message broker.
//
// Application code builds an Envelope and hands it to an AdaptivePublisher,
// which routes it to either the high-performance channel-backed publisher or
// the conservative legacy publisher based on live health signals. Delivery to
// the broker is at-least-once; consumers deduplicate using the envelope ID or
// a caller-supplied idempotency key in the metadata.
package events

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Priority controls how an envelope is treated under load.
// Low-priority envelopes may be dropped when the intake queue is saturated
// and the drop policy is enabled; Normal and High never are.
type Priority int

const (
	PriorityLow Priority = iota
	PriorityNormal
	PriorityHigh
)

// String returns a human-readable representation of the priority.
func (p Priority) String() string {
	switch p {
	case PriorityLow:
		return "low"
	case PriorityNormal:
		return "normal"
	case PriorityHigh:
		return "high"
	default:
		return "unknown"
	}
}

// Envelope is the unit of data submitted for publishing. It is immutable once
// constructed; NewEnvelope copies the metadata it is given.
type Envelope struct {
	// ID uniquely identifies the event. Consumers use it to deduplicate
	// at-least-once deliveries.
	ID uuid.UUID

	// Subject is the hierarchical routing key, e.g. "chat.message.created".
	Subject string

	// Payload is the opaque serialized event body.
	Payload []byte

	// Priority determines drop behavior under queue saturation.
	Priority Priority

	// CreatedAt is when the envelope was constructed.
	CreatedAt time.Time

	// Metadata carries optional key-value pairs (trace IDs, tenant, idempotency key).
	Metadata map[string]string
}

// EnvelopeOption configures envelope construction.
type EnvelopeOption func(*Envelope)

// WithPriority sets the envelope priority (default is PriorityNormal).
func WithPriority(p Priority) EnvelopeOption {
	return func(e *Envelope) {
		e.Priority = p
	}
}

// WithMetadata adds a metadata key-value pair to the envelope.
func WithMetadata(key, value string) EnvelopeOption {
	return func(e *Envelope) {
		if e.Metadata == nil {
			e.Metadata = make(map[string]string)
		}
		e.Metadata[key] = value
	}
}

// WithEventID overrides the generated event ID. Callers that already have a
// stable idempotency key for the event should set it here so retries across
// process restarts stay deduplicatable.
func WithEventID(id uuid.UUID) EnvelopeOption {
	return func(e *Envelope) {
		e.ID = id
	}
}

// NewEnvelope constructs an envelope for the given subject and payload.
// A V7 UUID is generated unless WithEventID is supplied.
func NewEnvelope(subject string, payload []byte, opts ...EnvelopeOption) *Envelope {
	id, _ := uuid.NewV7()
	e := &Envelope{
		ID:        id,
		Subject:   subject,
		Payload:   payload,
		Priority:  PriorityNormal,
		CreatedAt: time.Now(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Outcome is the terminal classification of a publish call.
type Outcome int

const (
	// OutcomeSuccess means the transport accepted the payload.
	OutcomeSuccess Outcome = iota

	// OutcomeFailed means delivery was attempted (or fast-failed by an open
	// circuit) and did not succeed.
	OutcomeFailed

	// OutcomeDropped means the envelope was discarded without a delivery
	// attempt, always with a reason.
	OutcomeDropped

	// OutcomeBackpressure means the intake queue stayed full past the
	// configured enqueue timeout and the caller should retry later.
	OutcomeBackpressure
)

// String returns a human-readable representation of the outcome.
func (o Outcome) String() string {
	switch o {
	case OutcomeSuccess:
		return "success"
	case OutcomeFailed:
		return "failed"
	case OutcomeDropped:
		return "dropped"
	case OutcomeBackpressure:
		return "backpressure"
	default:
		return "unknown"
	}
}

// Reason qualifies failed and dropped outcomes.
type Reason int

const (
	ReasonNone Reason = iota

	// ReasonCircuitOpen: the per-subject circuit breaker is open; no
	// transport call was made. Retryable after the cooldown elapses.
	ReasonCircuitOpen

	// ReasonRetriesExhausted: every attempt within the retry budget failed.
	ReasonRetriesExhausted

	// ReasonQueueSaturation: the intake queue was at capacity.
	ReasonQueueSaturation

	// ReasonTimeout: the caller's wait expired. The outcome of the underlying
	// write is unknown; it may still land after the caller gives up.
	ReasonTimeout

	// ReasonCanceled: the caller's context was canceled before a terminal
	// outcome was observed. Like ReasonTimeout, the outcome is unknown.
	ReasonCanceled

	// ReasonShutdown: the publisher is draining and accepts no new intake.
	ReasonShutdown
)

// String returns a human-readable representation of the reason.
func (r Reason) String() string {
	switch r {
	case ReasonNone:
		return "none"
	case ReasonCircuitOpen:
		return "circuit_open"
	case ReasonRetriesExhausted:
		return "retries_exhausted"
	case ReasonQueueSaturation:
		return "queue_saturation"
	case ReasonTimeout:
		return "timeout"
	case ReasonCanceled:
		return "canceled"
	case ReasonShutdown:
		return "shutdown"
	default:
		return "unknown"
	}
}

// PublishResult is returned for every publish call. It is never silently
// discarded by the publisher; callers decide what to do with non-success
// outcomes (business-level retry, user-visible degradation).
type PublishResult struct {
	Outcome   Outcome
	Reason    Reason
	Retryable bool
	Latency   time.Duration
	Err       error
}

func successResult(latency time.Duration) PublishResult {
	return PublishResult{Outcome: OutcomeSuccess, Latency: latency}
}

func failedResult(reason Reason, retryable bool, err error) PublishResult {
	return PublishResult{Outcome: OutcomeFailed, Reason: reason, Retryable: retryable, Err: err}
}

func droppedResult(reason Reason) PublishResult {
	return PublishResult{Outcome: OutcomeDropped, Reason: reason}
}

func backpressureResult() PublishResult {
	return PublishResult{Outcome: OutcomeBackpressure, Reason: ReasonQueueSaturation, Retryable: true}
}

// Backend identifies one of the two publishing paths.
type Backend int

const (
	BackendHighPerformance Backend = iota
	BackendLegacy
)

// String returns a human-readable representation of the backend.
func (b Backend) String() string {
	switch b {
	case BackendHighPerformance:
		return "high_performance"
	case BackendLegacy:
		return "legacy"
	default:
		return "unknown"
	}
}

// MarshalJSON renders the backend as its string form.
func (b Backend) MarshalJSON() ([]byte, error) {
	return json.Marshal(b.String())
}

// DegradationReason explains why the active backend changed.
type DegradationReason int

const (
	DegradationNone DegradationReason = iota
	DegradationHighLatency
	DegradationHighErrorRate
	DegradationQueueSaturation
	DegradationTransportDown
	DegradationManualOverride
	DegradationRecovered
)

// String returns a human-readable representation of the degradation reason.
func (d DegradationReason) String() string {
	switch d {
	case DegradationNone:
		return "none"
	case DegradationHighLatency:
		return "high_latency"
	case DegradationHighErrorRate:
		return "high_error_rate"
	case DegradationQueueSaturation:
		return "queue_saturation"
	case DegradationTransportDown:
		return "transport_down"
	case DegradationManualOverride:
		return "manual_override"
	case DegradationRecovered:
		return "recovered"
	default:
		return "unknown"
	}
}

// SwitchDecision is one entry in the bounded audit trail of backend switches.
type SwitchDecision struct {
	From      Backend           `json:"from"`
	To        Backend           `json:"to"`
	Reason    DegradationReason `json:"reason"`
	Timestamp time.Time         `json:"timestamp"`
}
