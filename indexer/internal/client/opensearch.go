package client

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/opensearch-project/opensearch-go/v2"

	"github.com/relayroom/relayroom/indexer/internal/config"
)

type OpenSearchClient struct {
	client *opensearch.Client
}

func NewOpenSearchClient(cfg config.OpenSearchConfig) (*OpenSearchClient, error) {
	httpClient := &http.Client{
		Transport: &http.Transport{
			TLSClientConfig: &tls.Config{
				InsecureSkipVerify: cfg.Insecure,
			},
		},
	}

	osCfg := opensearch.Config{
		Addresses: []string{cfg.URL},
		Username:  cfg.Username,
		Password:  cfg.Password,
		Transport: httpClient.Transport,
	}

	client, err := opensearch.NewClient(osCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create opensearch client: %w", err)
	}

	info, err := client.Info()
	if err != nil {
		return nil, fmt.Errorf("failed to ping opensearch: %w", err)
	}
	defer info.Body.Close()

	if info.IsError() {
		return nil, fmt.Errorf("opensearch returned error: %s", info.Status())
	}

	return &OpenSearchClient{client: client}, nil
}

func (c *OpenSearchClient) Client() *opensearch.Client {
	return c.client
}

// EnsureIndex creates the message index with its mapping if it does not exist.
func (c *OpenSearchClient) EnsureIndex(ctx context.Context, index string) error {
	exists, err := c.client.Indices.Exists([]string{index}, c.client.Indices.Exists.WithContext(ctx))
	if err != nil {
		return err
	}
	defer exists.Body.Close()

	if exists.StatusCode == 200 {
		return nil
	}

	settings := map[string]interface{}{
		"mappings": map[string]interface{}{
			"properties": map[string]interface{}{
				"message_id": map[string]interface{}{"type": "keyword"},
				"room_id":    map[string]interface{}{"type": "keyword"},
				"author_id":  map[string]interface{}{"type": "keyword"},
				"body":       map[string]interface{}{"type": "text"},
				"subject":    map[string]interface{}{"type": "keyword"},
				"created_at": map[string]interface{}{"type": "date"},
				"edited_at":  map[string]interface{}{"type": "date"},
				"indexed_at": map[string]interface{}{"type": "date"},
			},
		},
	}

	body, err := json.Marshal(settings)
	if err != nil {
		return err
	}

	res, err := c.client.Indices.Create(
		index,
		c.client.Indices.Create.WithContext(ctx),
		c.client.Indices.Create.WithBody(bytes.NewReader(body)),
	)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	if res.IsError() {
		bodyBytes, _ := io.ReadAll(res.Body)
		return fmt.Errorf("failed to create index %s: %s - %s", index, res.Status(), string(bodyBytes))
	}

	return nil
}
