package messaging

import (
	"context"
	"time"
)

// HealthStatus reports the state of a broker connection.
type HealthStatus struct {
	// Connected reports whether the client holds a live connection.
	Connected bool `json:"connected"`

	// Latency is the round-trip time of the health probe.
	Latency time.Duration `json:"latency_ms"`

	// Error holds the failure description when unhealthy.
	Error string `json:"error,omitempty"`
}

// CheckClientHealth probes a Client connection. A no-responders error on
// the probe subject is not a failure; it still proves the server answered.
func CheckClientHealth(ctx context.Context, client Client) HealthStatus {
	var status HealthStatus

	if client == nil {
		status.Error = "client is nil"
		return status
	}

	status.Connected = client.IsConnected()
	if !status.Connected {
		status.Error = "not connected to message broker"
		return status
	}

	start := time.Now()
	_, _ = client.Request(ctx, "_HEALTH.ping", []byte("ping"), 2*time.Second)
	status.Latency = time.Since(start)

	return status
}
