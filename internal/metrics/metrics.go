package metrics

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

type Metrics struct {
	submissionOutcomes metric.Int64Counter
	rollbacks          metric.Int64Counter
	cleanupFailures    metric.Int64Counter
	membersRegistered  metric.Int64Counter
	membersApproved    metric.Int64Counter
	listsViewed        metric.Int64Counter
	rostersExported    metric.Int64Counter
}

func New(meter metric.Meter) (*Metrics, error) {
	m := &Metrics{}

	var err error

	m.submissionOutcomes, err = meter.Int64Counter(
		"membership.submission.outcomes",
		metric.WithDescription("Submissions by kind and terminal outcome"),
		metric.WithUnit("{submission}"),
	)
	if err != nil {
		return nil, err
	}

	m.rollbacks, err = meter.Int64Counter(
		"membership.submission.rollbacks",
		metric.WithDescription("Uploaded assets rolled back after a failed persist"),
		metric.WithUnit("{asset}"),
	)
	if err != nil {
		return nil, err
	}

	m.cleanupFailures, err = meter.Int64Counter(
		"membership.submission.cleanup_failures",
		metric.WithDescription("Assets that could not be deleted during cleanup"),
		metric.WithUnit("{asset}"),
	)
	if err != nil {
		return nil, err
	}

	m.membersRegistered, err = meter.Int64Counter(
		"membership.members.registered",
		metric.WithDescription("Total number of member self-registrations"),
		metric.WithUnit("{member}"),
	)
	if err != nil {
		return nil, err
	}

	m.membersApproved, err = meter.Int64Counter(
		"membership.members.approved",
		metric.WithDescription("Total number of members approved"),
		metric.WithUnit("{member}"),
	)
	if err != nil {
		return nil, err
	}

	m.listsViewed, err = meter.Int64Counter(
		"membership.lists.viewed",
		metric.WithDescription("Total number of list reads by collection"),
		metric.WithUnit("{view}"),
	)
	if err != nil {
		return nil, err
	}

	m.rostersExported, err = meter.Int64Counter(
		"membership.members.roster_exported",
		metric.WithDescription("Total number of member roster exports"),
		metric.WithUnit("{export}"),
	)
	if err != nil {
		return nil, err
	}

	return m, nil
}

func (m *Metrics) RecordSubmission(ctx context.Context, kind, outcome string) {
	if m != nil && m.submissionOutcomes != nil {
		m.submissionOutcomes.Add(ctx, 1, metric.WithAttributes(
			attribute.String("kind", kind),
			attribute.String("outcome", outcome),
		))
	}
}

func (m *Metrics) RecordRollback(ctx context.Context, kind string, assets int) {
	if m != nil && m.rollbacks != nil && assets > 0 {
		m.rollbacks.Add(ctx, int64(assets), metric.WithAttributes(attribute.String("kind", kind)))
	}
}

func (m *Metrics) RecordCleanupFailures(ctx context.Context, kind string, assets int) {
	if m != nil && m.cleanupFailures != nil && assets > 0 {
		m.cleanupFailures.Add(ctx, int64(assets), metric.WithAttributes(attribute.String("kind", kind)))
	}
}

func (m *Metrics) RecordMemberRegistration(ctx context.Context) {
	if m != nil && m.membersRegistered != nil {
		m.membersRegistered.Add(ctx, 1)
	}
}

func (m *Metrics) RecordMemberApproval(ctx context.Context) {
	if m != nil && m.membersApproved != nil {
		m.membersApproved.Add(ctx, 1)
	}
}

func (m *Metrics) RecordListViewed(ctx context.Context, collection string) {
	if m != nil && m.listsViewed != nil {
		m.listsViewed.Add(ctx, 1, metric.WithAttributes(attribute.String("collection", collection)))
	}
}

func (m *Metrics) RecordRosterExport(ctx context.Context) {
	if m != nil && m.rostersExported != nil {
		m.rostersExported.Add(ctx, 1)
	}
}

// NewMock creates a no-op Metrics instance for testing
// The returned Metrics will safely ignore all Record* calls
func NewMock() *Metrics {
	return &Metrics{}
}
