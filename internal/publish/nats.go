package publish

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Harshitk-cp/thoughtgraph/internal/domain"
	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
)

// DefaultSubject is where bundles are published when none is configured.
const DefaultSubject = "thoughts.bundle"

// Conn is the subset of *nats.Conn the publisher needs.
type Conn interface {
	PublishMsg(m *nats.Msg) error
	Drain() error
}

// NATSPublisher ships every bundle as JSON to one subject. Publishing is
// fire-and-forget; delivery failures only surface through the logger.
type NATSPublisher struct {
	conn    Conn
	subject string
	logger  *zap.Logger
}

func NewNATSPublisher(conn Conn, subject string, logger *zap.Logger) *NATSPublisher {
	if subject == "" {
		subject = DefaultSubject
	}
	return &NATSPublisher{conn: conn, subject: subject, logger: logger}
}

// Connect dials url and returns a publisher on subject.
func Connect(url, subject string, logger *zap.Logger) (*NATSPublisher, error) {
	conn, err := nats.Connect(url,
		nats.Name("thoughtgraph"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn("nats disconnected", zap.Error(err))
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			logger.Info("nats reconnected", zap.String("url", c.ConnectedUrl()))
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect to nats: %w", err)
	}
	return NewNATSPublisher(conn, subject, logger), nil
}

func (p *NATSPublisher) Subject() string {
	return p.subject
}

func (p *NATSPublisher) Publish(ctx context.Context, b *domain.Bundle) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := json.Marshal(b)
	if err != nil {
		return fmt.Errorf("marshal bundle: %w", err)
	}

	msg := nats.NewMsg(p.subject)
	msg.Data = data
	msg.Header.Set("Candidate-Id", b.Candidate.ID.String())
	msg.Header.Set("Content-Type", "application/json")
	if err := p.conn.PublishMsg(msg); err != nil {
		return fmt.Errorf("publish bundle: %w", err)
	}
	return nil
}

// Close flushes pending messages and closes the connection.
func (p *NATSPublisher) Close() {
	if err := p.conn.Drain(); err != nil {
		p.logger.Warn("failed to drain nats connection", zap.Error(err))
	}
}
