// Package messaging defines the broker-neutral contract services use to
// exchange events. The nats subpackage provides the production
// implementation.
package messaging

import (
	"context"
	"time"
)

// Message is a single unit received from or sent to the broker.
type Message struct {
	// Subject is the channel the message was published to.
	Subject string

	// Data is the raw payload.
	Data []byte

	// Reply, when set, names the subject a response should be sent to.
	Reply string

	// Metadata carries optional header key-value pairs.
	Metadata map[string]string

	// Timestamp records when the message was published.
	Timestamp time.Time
}

// MessageHandler processes one received message. A non-nil error marks
// the message as failed; redelivery depends on the implementation.
type MessageHandler func(ctx context.Context, msg *Message) error

// Subscription is an active listener on a subject.
type Subscription interface {
	// Unsubscribe stops delivery to this subscription.
	Unsubscribe() error

	// Subject returns the subject being listened to.
	Subject() string

	// IsValid reports whether the subscription still receives messages.
	IsValid() bool
}

// Publisher sends messages to subjects.
type Publisher interface {
	// Publish sends a fire-and-forget message.
	Publish(ctx context.Context, subject string, data []byte) error

	// PublishMsg sends a Message including its metadata headers.
	PublishMsg(ctx context.Context, msg *Message) error

	// Request sends a message and waits up to timeout for a reply.
	Request(ctx context.Context, subject string, data []byte, timeout time.Duration) (*Message, error)

	// Close releases publisher resources.
	Close() error
}

// Subscriber receives messages from subjects.
type Subscriber interface {
	// Subscribe delivers every message on subject to handler (fan-out).
	Subscribe(subject string, handler MessageHandler) (Subscription, error)

	// QueueSubscribe load-balances messages across members of the same
	// queue group, so each message is handled once per group.
	QueueSubscribe(subject, queue string, handler MessageHandler) (Subscription, error)

	// Close unsubscribes everything and releases resources.
	Close() error
}

// Client is a full broker connection.
type Client interface {
	Publisher
	Subscriber

	// Drain flushes in-flight messages before closing the connection.
	Drain() error

	// IsConnected reports whether the broker connection is up.
	IsConnected() bool
}
