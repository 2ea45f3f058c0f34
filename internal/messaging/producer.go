package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"membership-service/internal/notification"

	"github.com/nats-io/nats.go"
)

// Producer publishes notices to a NATS subject.
type Producer struct {
	conn    *nats.Conn
	subject string
	logger  *slog.Logger
}

func NewProducer(url string, subject string, logger *slog.Logger) (*Producer, error) {
	nc, err := nats.Connect(url,
		nats.Name("membership-service"),
		nats.Timeout(5*time.Second),
		nats.MaxReconnects(-1),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	logger.Info("NATS producer initialized", "url", url, "subject", subject)

	return &Producer{
		conn:    nc,
		subject: subject,
		logger:  logger,
	}, nil
}

// Publish sends the notice on "<subject>.<type>".
func (p *Producer) Publish(ctx context.Context, notice notification.Notice) error {
	valueBytes, err := json.Marshal(notice)
	if err != nil {
		return fmt.Errorf("failed to marshal notice: %w", err)
	}

	subject := p.subject + "." + string(notice.Type)
	if err := p.conn.Publish(subject, valueBytes); err != nil {
		return fmt.Errorf("failed to publish to NATS: %w", err)
	}
	if err := p.conn.FlushWithContext(ctx); err != nil {
		return fmt.Errorf("failed to flush NATS connection: %w", err)
	}

	p.logger.DebugContext(ctx, "notice sent to NATS", "subject", subject)
	return nil
}

func (p *Producer) Close() error {
	if err := p.conn.Drain(); err != nil {
		p.conn.Close()
		return err
	}
	return nil
}
