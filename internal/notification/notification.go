// Package notification publishes domain notices to the configured broker.
package notification

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"membership-service/common/metrics"
)

type Type string

const (
	MemberRegistered       Type = "member.registered"
	MemberApproved         Type = "member.approved"
	MemberDeleted          Type = "member.deleted"
	UpcomingEventPublished Type = "upcoming_event.published"
	AssetOrphaned          Type = "asset.orphaned"
)

type Notice struct {
	Type       Type              `json:"type"`
	Email      string            `json:"email,omitempty"`
	Subject    string            `json:"subject"`
	OccurredAt time.Time         `json:"occurredAt"`
	Data       map[string]string `json:"data,omitempty"`
}

// Key groups notices about the same subject on partitioned brokers.
func (n Notice) Key() string {
	if n.Email != "" {
		return n.Email
	}
	return n.Subject
}

type Publisher interface {
	Publish(ctx context.Context, notice Notice) error
	Close() error
}

// Noop drops every notice.
type Noop struct{}

func (Noop) Publish(context.Context, Notice) error { return nil }
func (Noop) Close() error                          { return nil }

const publishTimeout = 5 * time.Second

// Notifier publishes in the background. Failures are logged and metered,
// never returned to the caller.
type Notifier struct {
	publisher   Publisher
	destination string
	metrics     *metrics.Metrics
	logger      *slog.Logger
	wg          sync.WaitGroup
}

func NewNotifier(publisher Publisher, destination string, m *metrics.Metrics, logger *slog.Logger) *Notifier {
	if publisher == nil {
		publisher = Noop{}
	}
	return &Notifier{
		publisher:   publisher,
		destination: destination,
		metrics:     m,
		logger:      logger,
	}
}

func (n *Notifier) Notify(ctx context.Context, notice Notice) {
	if n == nil {
		return
	}
	if notice.OccurredAt.IsZero() {
		notice.OccurredAt = time.Now().UTC()
	}

	ctx = context.WithoutCancel(ctx)

	n.wg.Add(1)
	go func() {
		defer n.wg.Done()

		pubCtx, cancel := context.WithTimeout(ctx, publishTimeout)
		defer cancel()

		start := time.Now()
		err := n.publisher.Publish(pubCtx, notice)
		if n.metrics != nil {
			n.metrics.Messaging.RecordPublish(pubCtx, n.destination, time.Since(start), err)
		}
		if err != nil {
			n.logger.WarnContext(ctx, "failed to publish notice", "type", notice.Type, "subject", notice.Subject, "error", err)
		}
	}()
}

// Close waits for pending notices, then closes the publisher.
func (n *Notifier) Close() error {
	if n == nil {
		return nil
	}
	n.wg.Wait()
	return n.publisher.Close()
}
