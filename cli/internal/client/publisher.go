package client

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// PublisherClient talks to the chat service's publisher admin endpoints.
type PublisherClient struct {
	baseURL string
	client  *http.Client
}

type PublisherHealth struct {
	Backend    string    `json:"backend"`
	Status     string    `json:"status"`
	Overridden bool      `json:"overridden"`
	Since      time.Time `json:"since"`
}

type BackendStats struct {
	Success    uint64  `json:"success"`
	Failure    uint64  `json:"failure"`
	ErrorRate  float64 `json:"error_rate"`
	P99Latency int64   `json:"p99_latency"`
}

type CircuitStatus struct {
	Subject             string    `json:"subject"`
	State               string    `json:"state"`
	ConsecutiveFailures int       `json:"consecutive_failures"`
	ReopenAt            time.Time `json:"reopen_at,omitempty"`
}

type PublisherMetrics struct {
	HighPerformance BackendStats    `json:"high_performance"`
	Legacy          BackendStats    `json:"legacy"`
	QueueDepth      int             `json:"queue_depth"`
	QueueCapacity   int             `json:"queue_capacity"`
	Circuits        []CircuitStatus `json:"circuits"`
	ActiveBackend   string          `json:"active_backend"`
	Overridden      bool            `json:"overridden"`
}

type SwitchDecision struct {
	From       string    `json:"from"`
	To         string    `json:"to"`
	Reason     string    `json:"reason"`
	Overridden bool      `json:"overridden"`
	At         time.Time `json:"at"`
}

type PublisherStatus struct {
	Health    PublisherHealth  `json:"health"`
	Metrics   PublisherMetrics `json:"metrics"`
	Decisions []SwitchDecision `json:"recent_decisions"`
}

type SwitchResponse struct {
	ActiveBackend string `json:"active_backend"`
}

func NewPublisherClient(baseURL string) *PublisherClient {
	return &PublisherClient{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 10 * time.Second},
	}
}

func (c *PublisherClient) doRequest(method, path, token string, body interface{}) (*http.Response, error) {
	var bodyReader io.Reader
	if body != nil {
		bodyBytes, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
		bodyReader = bytes.NewBuffer(bodyBytes)
	}

	req, err := http.NewRequest(method, c.baseURL+path, bodyReader)
	if err != nil {
		return nil, err
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	return c.client.Do(req)
}

func (c *PublisherClient) Status(token string) (*PublisherStatus, error) {
	resp, err := c.doRequest("GET", "/api/v1/admin/publisher", token, nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("status request failed (%d): %s", resp.StatusCode, string(bodyBytes))
	}

	var status PublisherStatus
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		return nil, err
	}

	return &status, nil
}

func (c *PublisherClient) Switch(token, backend string) (*SwitchResponse, error) {
	resp, err := c.doRequest("POST", "/api/v1/admin/publisher/switch", token, map[string]string{"backend": backend})
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("switch request failed (%d): %s", resp.StatusCode, string(bodyBytes))
	}

	var out SwitchResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, err
	}

	return &out, nil
}

func (c *PublisherClient) ClearOverride(token string) (*SwitchResponse, error) {
	resp, err := c.doRequest("POST", "/api/v1/admin/publisher/clear", token, nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("clear request failed (%d): %s", resp.StatusCode, string(bodyBytes))
	}

	var out SwitchResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, err
	}

	return &out, nil
}

// Health checks the service liveness endpoint.
func (c *PublisherClient) Health() error {
	resp, err := c.doRequest("GET", "/healthz", "", nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unhealthy: status %d", resp.StatusCode)
	}
	return nil
}
