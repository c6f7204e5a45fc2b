// Package eventbus publishes domain events to NATS.
package eventbus

import (
	"context"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/openctemio/scanledger/pkg/logger"
)

// Publisher publishes raw event payloads on NATS subjects.
type Publisher struct {
	conn   *nats.Conn
	logger *logger.Logger
}

// NewPublisher connects to NATS. The connection keeps retrying in the
// background if the server is not reachable yet.
func NewPublisher(natsURL string, log *logger.Logger) (*Publisher, error) {
	log = log.With("component", "eventbus")

	conn, err := nats.Connect(natsURL,
		nats.Name("scanledger"),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(10),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				log.Warn("disconnected from NATS", "error", err)
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			log.Info("reconnected to NATS", "url", c.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}

	log.Info("connected to NATS", "url", natsURL)
	return &Publisher{conn: conn, logger: log}, nil
}

// Publish sends data on subject. Messages published while reconnecting
// are buffered by the client.
func (p *Publisher) Publish(ctx context.Context, subject string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := p.conn.Publish(subject, data); err != nil {
		return fmt.Errorf("publish %s: %w", subject, err)
	}
	p.logger.Debug("event published", "subject", subject, "bytes", len(data))
	return nil
}

// Close drains pending messages and closes the connection.
func (p *Publisher) Close() {
	if p.conn == nil {
		return
	}
	if err := p.conn.Drain(); err != nil {
		p.conn.Close()
	}
	p.logger.Info("disconnected from NATS")
}

// IsConnected reports whether the connection is currently up.
func (p *Publisher) IsConnected() bool {
	return p.conn != nil && p.conn.IsConnected()
}

// Ping flushes the connection. Used by the readiness probe.
func (p *Publisher) Ping(ctx context.Context) error {
	if !p.IsConnected() {
		return fmt.Errorf("nats: not connected")
	}
	return p.conn.FlushWithContext(ctx)
}
