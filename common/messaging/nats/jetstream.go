package nats

import (
	"context"
	"fmt"
	"time"

	"github.com/nats-io/nats.go/jetstream"
)

// JetStreamClient extends Client with durable stream publishing.
type JetStreamClient struct {
	*Client
	js jetstream.JetStream
}

// StreamConfig defines a JetStream stream.
type StreamConfig struct {
	// Name is the stream name.
	Name string

	// Subjects are the subjects this stream captures.
	Subjects []string

	// MaxAge bounds message age in the stream.
	MaxAge time.Duration

	// MaxBytes bounds the total stream size.
	MaxBytes int64

	// MaxMsgs bounds the message count.
	MaxMsgs int64

	// Retention selects the JetStream retention policy.
	Retention jetstream.RetentionPolicy

	// Storage selects file or memory backing.
	Storage jetstream.StorageType
}

// NewJetStreamClient connects to NATS and opens a JetStream context.
func NewJetStreamClient(cfg Config) (*JetStreamClient, error) {
	client, err := NewClient(cfg)
	if err != nil {
		return nil, err
	}

	js, err := jetstream.New(client.conn)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to create JetStream context: %w", err)
	}

	return &JetStreamClient{
		Client: client,
		js:     js,
	}, nil
}

// CreateOrUpdateStream ensures the stream exists with the given shape.
func (c *JetStreamClient) CreateOrUpdateStream(ctx context.Context, cfg StreamConfig) (jetstream.Stream, error) {
	stream, err := c.js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:      cfg.Name,
		Subjects:  cfg.Subjects,
		MaxAge:    cfg.MaxAge,
		MaxBytes:  cfg.MaxBytes,
		MaxMsgs:   cfg.MaxMsgs,
		Retention: cfg.Retention,
		Storage:   cfg.Storage,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create/update stream %s: %w", cfg.Name, err)
	}

	return stream, nil
}

// PublishSync publishes a message and waits for the stream acknowledgment.
func (c *JetStreamClient) PublishSync(ctx context.Context, subject string, data []byte) (*jetstream.PubAck, error) {
	return c.js.Publish(ctx, subject, data)
}

// DurableTransport adapts JetStream's acked publish to the plain publish
// contract consumed by the event-publishing layer. It is the durable member
// of the closed set of transport variants chosen at construction time.
type DurableTransport struct {
	client *JetStreamClient
}

// NewDurableTransport wraps a JetStream client as a publish transport.
func NewDurableTransport(client *JetStreamClient) *DurableTransport {
	return &DurableTransport{client: client}
}

// Publish sends the payload and waits for the stream acknowledgment.
func (t *DurableTransport) Publish(ctx context.Context, subject string, data []byte) error {
	_, err := t.client.PublishSync(ctx, subject, data)
	return err
}

// IsConnected reports whether the underlying NATS connection is up.
func (t *DurableTransport) IsConnected() bool {
	return t.client.IsConnected()
}

// Stream shapes provisioned by the chat service on startup.
var (
	// ChatEventsStream captures every chat domain event (messages, rooms,
	// memberships) for durable downstream consumers.
	ChatEventsStream = StreamConfig{
		Name:      "CHAT_EVENTS",
		Subjects:  []string{"chat.>"},
		MaxAge:    24 * time.Hour,
		MaxBytes:  1024 * 1024 * 1024, // 1GB
		MaxMsgs:   1000000,
		Retention: jetstream.InterestPolicy, // delete once all consumers ack
		Storage:   jetstream.FileStorage,
	}

	// AccountEventsStream captures account lifecycle events.
	AccountEventsStream = StreamConfig{
		Name:      "ACCOUNT_EVENTS",
		Subjects:  []string{"user.account.>"},
		MaxAge:    24 * time.Hour,
		MaxBytes:  100 * 1024 * 1024, // 100MB
		MaxMsgs:   100000,
		Retention: jetstream.InterestPolicy,
		Storage:   jetstream.FileStorage,
	}
)
