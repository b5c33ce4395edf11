// Package nats implements the messaging interfaces on NATS, with
// optional JetStream persistence.
package nats

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/relayroom/relayroom/common/messaging"
)

// Client implements messaging.Client on a core NATS connection.
type Client struct {
	conn *nats.Conn
	mu   sync.RWMutex
	subs []*subscription
}

// Config holds NATS connection settings.
type Config struct {
	// URL is the NATS server URL, e.g. "nats://localhost:4222".
	URL string

	// Name identifies this connection on the server.
	Name string

	// MaxReconnects caps reconnection attempts. -1 retries forever.
	MaxReconnects int

	// ReconnectWait is the delay between reconnection attempts.
	ReconnectWait time.Duration

	// Timeout bounds the initial connect.
	Timeout time.Duration

	// Username and Password enable basic authentication when set.
	Username string
	Password string

	// Token enables token authentication when set.
	Token string
}

// DefaultConfig returns the settings used by services unless overridden.
func DefaultConfig() Config {
	return Config{
		URL:           nats.DefaultURL,
		Name:          "relayroom-client",
		MaxReconnects: -1,
		ReconnectWait: 2 * time.Second,
		Timeout:       5 * time.Second,
	}
}

// NewClient connects to NATS with the given configuration.
func NewClient(cfg Config) (*Client, error) {
	opts := []nats.Option{
		nats.Name(cfg.Name),
		nats.MaxReconnects(cfg.MaxReconnects),
		nats.ReconnectWait(cfg.ReconnectWait),
		nats.Timeout(cfg.Timeout),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				slog.Warn("nats disconnected", "error", err)
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			slog.Info("nats reconnected", "url", nc.ConnectedUrl())
		}),
	}

	if cfg.Username != "" && cfg.Password != "" {
		opts = append(opts, nats.UserInfo(cfg.Username, cfg.Password))
	}
	if cfg.Token != "" {
		opts = append(opts, nats.Token(cfg.Token))
	}

	conn, err := nats.Connect(cfg.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	return &Client{conn: conn}, nil
}

// Publish sends a fire-and-forget message.
func (c *Client) Publish(ctx context.Context, subject string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return c.conn.Publish(subject, data)
}

// PublishMsg sends a Message including its metadata headers.
func (c *Client) PublishMsg(ctx context.Context, msg *messaging.Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	natsMsg := &nats.Msg{
		Subject: msg.Subject,
		Data:    msg.Data,
		Reply:   msg.Reply,
	}
	if len(msg.Metadata) > 0 {
		natsMsg.Header = make(nats.Header)
		for k, v := range msg.Metadata {
			natsMsg.Header.Set(k, v)
		}
	}

	return c.conn.PublishMsg(natsMsg)
}

// Request sends a message and waits up to timeout for a reply.
func (c *Client) Request(ctx context.Context, subject string, data []byte, timeout time.Duration) (*messaging.Message, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	resp, err := c.conn.Request(subject, data, timeout)
	if err != nil {
		return nil, err
	}

	return natsToMessage(resp), nil
}

// Subscribe delivers every message on subject to handler.
func (c *Client) Subscribe(subject string, handler messaging.MessageHandler) (messaging.Subscription, error) {
	sub, err := c.conn.Subscribe(subject, func(msg *nats.Msg) {
		if err := handler(context.Background(), natsToMessage(msg)); err != nil {
			slog.Warn("message handler failed", "subject", subject, "error", err)
		}
	})
	if err != nil {
		return nil, err
	}

	return c.track(sub), nil
}

// QueueSubscribe load-balances messages across members of queue.
func (c *Client) QueueSubscribe(subject, queue string, handler messaging.MessageHandler) (messaging.Subscription, error) {
	sub, err := c.conn.QueueSubscribe(subject, queue, func(msg *nats.Msg) {
		if err := handler(context.Background(), natsToMessage(msg)); err != nil {
			slog.Warn("message handler failed", "subject", subject, "queue", queue, "error", err)
		}
	})
	if err != nil {
		return nil, err
	}

	return c.track(sub), nil
}

func (c *Client) track(sub *nats.Subscription) *subscription {
	s := &subscription{natsSub: sub}
	c.mu.Lock()
	c.subs = append(c.subs, s)
	c.mu.Unlock()
	return s
}

// Close unsubscribes everything and closes the connection.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, sub := range c.subs {
		_ = sub.Unsubscribe()
	}
	c.subs = nil

	c.conn.Close()
	return nil
}

// Drain flushes in-flight messages before closing.
func (c *Client) Drain() error {
	return c.conn.Drain()
}

// IsConnected reports whether the connection is up.
func (c *Client) IsConnected() bool {
	return c.conn.IsConnected()
}

type subscription struct {
	natsSub *nats.Subscription
}

func (s *subscription) Unsubscribe() error {
	return s.natsSub.Unsubscribe()
}

func (s *subscription) Subject() string {
	return s.natsSub.Subject
}

func (s *subscription) IsValid() bool {
	return s.natsSub.IsValid()
}

// Core NATS does not carry a publish timestamp, so receipt time stands in.
func natsToMessage(msg *nats.Msg) *messaging.Message {
	m := &messaging.Message{
		Subject:   msg.Subject,
		Data:      msg.Data,
		Reply:     msg.Reply,
		Timestamp: time.Now(),
	}

	if msg.Header != nil {
		m.Metadata = make(map[string]string)
		for k := range msg.Header {
			m.Metadata[k] = msg.Header.Get(k)
		}
	}

	return m
}
