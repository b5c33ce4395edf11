package indexer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/opensearch-project/opensearch-go/v2"
	"github.com/opensearch-project/opensearch-go/v2/opensearchutil"

	"github.com/relayroom/relayroom/common/database"
)

// OpenSearchWriter writes batches to OpenSearch with the bulk API.
type OpenSearchWriter struct {
	client *opensearch.Client
}

func NewOpenSearchWriter(client *opensearch.Client) *OpenSearchWriter {
	return &OpenSearchWriter{client: client}
}

func (w *OpenSearchWriter) Write(ctx context.Context, index string, ops []Operation) error {
	ctx, cancel := database.BulkContext(ctx)
	defer cancel()

	bi, err := opensearchutil.NewBulkIndexer(opensearchutil.BulkIndexerConfig{
		Client: w.client,
		Index:  index,
	})
	if err != nil {
		return fmt.Errorf("failed to create bulk indexer: %w", err)
	}

	var mu sync.Mutex
	var failures []string

	for _, op := range ops {
		item := opensearchutil.BulkIndexerItem{
			Action:     op.Action,
			DocumentID: op.DocumentID,
			OnFailure: func(ctx context.Context, item opensearchutil.BulkIndexerItem, res opensearchutil.BulkIndexerResponseItem, err error) {
				mu.Lock()
				defer mu.Unlock()
				if err != nil {
					failures = append(failures, err.Error())
				} else {
					failures = append(failures, fmt.Sprintf("%s: %s", res.Error.Type, res.Error.Reason))
				}
			},
		}

		if op.Document != nil {
			data, err := json.Marshal(op.Document)
			if err != nil {
				return fmt.Errorf("failed to marshal document %s: %w", op.DocumentID, err)
			}
			item.Body = bytes.NewReader(data)
		}

		if err := bi.Add(ctx, item); err != nil {
			return fmt.Errorf("failed to add to bulk indexer: %w", err)
		}
	}

	if err := bi.Close(ctx); err != nil {
		return fmt.Errorf("bulk indexer close error: %w", err)
	}

	if len(failures) > 0 {
		return fmt.Errorf("%d of %d operations failed: %s", len(failures), len(ops), failures[0])
	}
	return nil
}
