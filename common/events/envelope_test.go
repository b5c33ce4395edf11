package events

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewEnvelope_Defaults(t *testing.T) {
	payload := []byte(`{"body":"hello"}`)
	env := NewEnvelope("chat.message.created", payload)

	assert.NotEqual(t, uuid.Nil, env.ID)
	assert.Equal(t, "chat.message.created", env.Subject)
	assert.Equal(t, payload, env.Payload)
	assert.Equal(t, PriorityNormal, env.Priority)
	assert.WithinDuration(t, time.Now(), env.CreatedAt, time.Second)
	assert.Nil(t, env.Metadata)
}

func TestNewEnvelope_Options(t *testing.T) {
	id := uuid.New()
	env := NewEnvelope("chat.room.created", nil,
		WithEventID(id),
		WithPriority(PriorityHigh),
		WithMetadata("tenant", "acme"),
		WithMetadata("trace_id", "abc123"),
	)

	assert.Equal(t, id, env.ID)
	assert.Equal(t, PriorityHigh, env.Priority)
	assert.Equal(t, "acme", env.Metadata["tenant"])
	assert.Equal(t, "abc123", env.Metadata["trace_id"])
}

func TestNewEnvelope_UniqueIDs(t *testing.T) {
	seen := make(map[uuid.UUID]bool)
	for i := 0; i < 100; i++ {
		env := NewEnvelope("chat.message.created", nil)
		require.False(t, seen[env.ID])
		seen[env.ID] = true
	}
}

func TestPriorityString(t *testing.T) {
	tests := []struct {
		priority Priority
		expected string
	}{
		{PriorityLow, "low"},
		{PriorityNormal, "normal"},
		{PriorityHigh, "high"},
		{Priority(99), "unknown"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.expected, tt.priority.String())
	}
}

func TestOutcomeString(t *testing.T) {
	tests := []struct {
		outcome  Outcome
		expected string
	}{
		{OutcomeSuccess, "success"},
		{OutcomeFailed, "failed"},
		{OutcomeDropped, "dropped"},
		{OutcomeBackpressure, "backpressure"},
		{Outcome(99), "unknown"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.expected, tt.outcome.String())
	}
}

func TestReasonString(t *testing.T) {
	tests := []struct {
		reason   Reason
		expected string
	}{
		{ReasonNone, "none"},
		{ReasonCircuitOpen, "circuit_open"},
		{ReasonRetriesExhausted, "retries_exhausted"},
		{ReasonQueueSaturation, "queue_saturation"},
		{ReasonTimeout, "timeout"},
		{ReasonCanceled, "canceled"},
		{ReasonShutdown, "shutdown"},
		{Reason(99), "unknown"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.expected, tt.reason.String())
	}
}

func TestBackendJSON(t *testing.T) {
	data, err := json.Marshal(BackendHighPerformance)
	require.NoError(t, err)
	assert.Equal(t, `"high_performance"`, string(data))

	data, err = json.Marshal(BackendLegacy)
	require.NoError(t, err)
	assert.Equal(t, `"legacy"`, string(data))
}

func TestStatusJSON(t *testing.T) {
	data, err := json.Marshal(StatusDegraded)
	require.NoError(t, err)
	assert.Equal(t, `"degraded"`, string(data))
}

func TestDegradationReasonString(t *testing.T) {
	tests := []struct {
		reason   DegradationReason
		expected string
	}{
		{DegradationNone, "none"},
		{DegradationHighLatency, "high_latency"},
		{DegradationHighErrorRate, "high_error_rate"},
		{DegradationQueueSaturation, "queue_saturation"},
		{DegradationTransportDown, "transport_down"},
		{DegradationManualOverride, "manual_override"},
		{DegradationRecovered, "recovered"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.expected, tt.reason.String())
	}
}
