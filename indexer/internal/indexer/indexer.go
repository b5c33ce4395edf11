// Package indexer consumes chat message events from the broker and indexes
// them into OpenSearch for search. Delivery is at-least-once, so events are
// deduplicated by event_id before indexing, and documents are keyed by
// message_id so replays overwrite rather than duplicate.
package indexer

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/relayroom/relayroom/common/logging"
	"github.com/relayroom/relayroom/common/messaging"
	"github.com/relayroom/relayroom/indexer/internal/config"
)

// Operation is a single pending change to the search index.
type Operation struct {
	// Action is "index" or "delete".
	Action string

	// DocumentID keys the document, the message ID.
	DocumentID string

	// Document is the body for index actions, nil for deletes.
	Document map[string]any
}

// BulkWriter applies a batch of operations to the search backend.
type BulkWriter interface {
	Write(ctx context.Context, index string, ops []Operation) error
}

// Indexer subscribes to chat message subjects and batches events into bulk
// index writes.
type Indexer struct {
	cfg    config.IndexerConfig
	writer BulkWriter
	logger *logging.Logger

	mu       sync.Mutex
	batch    []Operation
	seen     map[string]struct{}
	seenFIFO []string

	sub    messaging.Subscription
	stopCh chan struct{}
	doneCh chan struct{}
}

func New(cfg config.IndexerConfig, writer BulkWriter, logger *logging.Logger) *Indexer {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 100
	}
	if cfg.FlushInterval <= 0 {
		cfg.FlushInterval = 2 * time.Second
	}
	if cfg.DedupWindow <= 0 {
		cfg.DedupWindow = 10000
	}
	return &Indexer{
		cfg:    cfg,
		writer: writer,
		logger: logger,
		seen:   make(map[string]struct{}),
		stopCh: make(chan struct{}),
		doneCh: make(chan struct{}),
	}
}

// Start subscribes to message events in a worker queue group and launches
// the background flusher.
func (ix *Indexer) Start(client messaging.Subscriber) error {
	sub, err := client.QueueSubscribe(messaging.ChatMessageSubjects, messaging.QueueIndexerWorkers, ix.Handle)
	if err != nil {
		return fmt.Errorf("failed to subscribe: %w", err)
	}
	ix.sub = sub

	go ix.flushLoop()

	ix.logger.Info("indexer subscribed", "subject", messaging.ChatMessageSubjects, "queue", messaging.QueueIndexerWorkers)
	return nil
}

// Stop unsubscribes, stops the flusher and flushes any pending batch.
func (ix *Indexer) Stop() error {
	if ix.sub != nil {
		ix.sub.Unsubscribe()
	}
	close(ix.stopCh)
	<-ix.doneCh
	return ix.Flush(context.Background())
}

// Handle processes one broker message. Unparseable events are dropped with a
// log line rather than redelivered forever.
func (ix *Indexer) Handle(ctx context.Context, msg *messaging.Message) error {
	var event map[string]any
	if err := json.Unmarshal(msg.Data, &event); err != nil {
		ix.logger.WarnContext(ctx, "discarding malformed event", "subject", msg.Subject, "error", err)
		return nil
	}

	eventID, _ := event["event_id"].(string)
	messageID, _ := event["message_id"].(string)
	if messageID == "" {
		ix.logger.WarnContext(ctx, "discarding event without message_id", "subject", msg.Subject)
		return nil
	}

	op := Operation{Action: "index", DocumentID: messageID}
	if messageAction(msg.Subject) == "deleted" {
		op.Action = "delete"
	} else {
		op.Document = document(msg.Subject, event)
	}

	ix.mu.Lock()
	if eventID != "" {
		if _, dup := ix.seen[eventID]; dup {
			ix.mu.Unlock()
			eventsDeduped.Inc()
			return nil
		}
		ix.remember(eventID)
	}
	ix.batch = append(ix.batch, op)
	full := len(ix.batch) >= ix.cfg.BatchSize
	ix.mu.Unlock()

	eventsConsumed.WithLabelValues(msg.Subject).Inc()

	if full {
		return ix.Flush(ctx)
	}
	return nil
}

// Flush writes the pending batch.
func (ix *Indexer) Flush(ctx context.Context) error {
	ix.mu.Lock()
	batch := ix.batch
	ix.batch = nil
	ix.mu.Unlock()

	if len(batch) == 0 {
		return nil
	}

	start := time.Now()
	if err := ix.writer.Write(ctx, ix.cfg.Index, batch); err != nil {
		indexErrors.Inc()
		ix.requeue(batch)
		ix.logger.ErrorContext(ctx, "bulk write failed, batch retained for retry", "ops", len(batch), "error", err)
		return err
	}

	documentsIndexed.Add(float64(len(batch)))
	flushDuration.Observe(time.Since(start).Seconds())
	return nil
}

func (ix *Indexer) flushLoop() {
	defer close(ix.doneCh)

	ticker := time.NewTicker(ix.cfg.FlushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := ix.Flush(context.Background()); err != nil {
				ix.logger.Error("periodic flush failed", "error", err)
			}
		case <-ix.stopCh:
			return
		}
	}
}

// requeue puts a failed batch back at the front of the pending operations so
// the next flush retries it in order. The events were already recorded in the
// dedup window, so dropping them here would lose them for good. Retained work
// is capped at ten batches; beyond that the oldest operations are shed.
func (ix *Indexer) requeue(batch []Operation) {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	ix.batch = append(batch, ix.batch...)

	limit := 10 * ix.cfg.BatchSize
	if len(ix.batch) > limit {
		shed := len(ix.batch) - limit
		ix.batch = ix.batch[shed:]
		operationsShed.Add(float64(shed))
		ix.logger.Error("retry backlog full, shedding oldest operations", "shed", shed)
	}
}

// remember records an event ID, evicting the oldest once the window fills.
// Caller holds ix.mu.
func (ix *Indexer) remember(eventID string) {
	ix.seen[eventID] = struct{}{}
	ix.seenFIFO = append(ix.seenFIFO, eventID)
	if len(ix.seenFIFO) > ix.cfg.DedupWindow {
		oldest := ix.seenFIFO[0]
		ix.seenFIFO = ix.seenFIFO[1:]
		delete(ix.seen, oldest)
	}
}

// messageAction extracts the lifecycle action from a message subject. Both
// the flat form chat.message.deleted and the room-scoped form
// chat.message.deleted.<roomID> resolve to "deleted".
func messageAction(subject string) string {
	parts := strings.Split(subject, ".")
	if len(parts) < 3 {
		return ""
	}
	return parts[2]
}

// document shapes the event into the indexed form.
func document(subject string, event map[string]any) map[string]any {
	doc := map[string]any{
		"message_id": event["message_id"],
		"room_id":    event["room_id"],
		"author_id":  event["author_id"],
		"body":       event["body"],
		"created_at": event["created_at"],
		"subject":    subject,
		"indexed_at": time.Now().UTC().Format(time.RFC3339Nano),
	}
	if editedAt, ok := event["edited_at"]; ok {
		doc["edited_at"] = editedAt
	}
	return doc
}
