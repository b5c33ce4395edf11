package client

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPublisherClient(t *testing.T) {
	c := NewPublisherClient("http://localhost:8080")

	assert.NotNil(t, c)
	assert.Equal(t, "http://localhost:8080", c.baseURL)
	assert.Equal(t, 10*time.Second, c.client.Timeout)
}

func TestStatus_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/admin/publisher", r.URL.Path)
		assert.Equal(t, "GET", r.Method)
		assert.Equal(t, "Bearer admin-token", r.Header.Get("Authorization"))

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(PublisherStatus{
			Health: PublisherHealth{Backend: "high_performance", Status: "healthy"},
			Metrics: PublisherMetrics{
				HighPerformance: BackendStats{Success: 100, Failure: 2, ErrorRate: 0.02},
				QueueDepth:      4,
				QueueCapacity:   1024,
				ActiveBackend:   "high_performance",
			},
			Decisions: []SwitchDecision{
				{From: "high_performance", To: "legacy", Reason: "error_rate", At: time.Now()},
			},
		})
	}))
	defer server.Close()

	c := NewPublisherClient(server.URL)
	status, err := c.Status("admin-token")

	require.NoError(t, err)
	assert.Equal(t, "high_performance", status.Health.Backend)
	assert.Equal(t, "healthy", status.Health.Status)
	assert.Equal(t, uint64(100), status.Metrics.HighPerformance.Success)
	assert.Equal(t, 1024, status.Metrics.QueueCapacity)
	require.Len(t, status.Decisions, 1)
	assert.Equal(t, "error_rate", status.Decisions[0].Reason)
}

func TestStatus_Unauthorized(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		json.NewEncoder(w).Encode(map[string]string{"error": "Insufficient permissions"})
	}))
	defer server.Close()

	c := NewPublisherClient(server.URL)
	_, err := c.Status("member-token")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "403")
}

func TestSwitch_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/admin/publisher/switch", r.URL.Path)
		assert.Equal(t, "POST", r.Method)

		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "legacy", body["backend"])

		json.NewEncoder(w).Encode(SwitchResponse{ActiveBackend: "legacy"})
	}))
	defer server.Close()

	c := NewPublisherClient(server.URL)
	resp, err := c.Switch("admin-token", "legacy")

	require.NoError(t, err)
	assert.Equal(t, "legacy", resp.ActiveBackend)
}

func TestClearOverride_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/admin/publisher/clear", r.URL.Path)
		assert.Equal(t, "POST", r.Method)

		json.NewEncoder(w).Encode(SwitchResponse{ActiveBackend: "high_performance"})
	}))
	defer server.Close()

	c := NewPublisherClient(server.URL)
	resp, err := c.ClearOverride("admin-token")

	require.NoError(t, err)
	assert.Equal(t, "high_performance", resp.ActiveBackend)
}

func TestHealth(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/healthz" {
			w.WriteHeader(http.StatusOK)
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	assert.NoError(t, NewPublisherClient(server.URL).Health())

	down := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer down.Close()

	assert.Error(t, NewPublisherClient(down.URL).Health())
}
