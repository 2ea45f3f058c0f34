// Package submission runs the upload-then-persist workflow shared by every
// create form. Assets are uploaded first; the record is written only when
// every upload succeeded, and uploaded assets are deleted again when the
// write fails.
package submission

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"membership-service/internal/asset"
	"membership-service/internal/metrics"
	"membership-service/internal/notification"
	"membership-service/internal/validation"

	"golang.org/x/sync/errgroup"
)

type Phase string

const (
	PhaseValidating Phase = "validating"
	PhaseUploading  Phase = "asset_uploading"
	PhasePersisting Phase = "persisting"
	PhaseCommitted  Phase = "committed"
)

const (
	OutcomeCommitted        = "committed"
	OutcomeValidationFailed = "validation_failed"
	OutcomeUploadFailed     = "upload_failed"
	OutcomeRolledBack       = "rolled_back"
)

// Error is returned by Run. Phase is where the submission stopped; Err is
// the cause and stays reachable through errors.Is and errors.As.
type Error struct {
	Phase Phase
	Err   error
}

func (e *Error) Error() string {
	return fmt.Sprintf("submission %s: %v", e.Phase, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Outcome is the terminal state reached by the failed submission.
func (e *Error) Outcome() string {
	switch e.Phase {
	case PhaseValidating:
		return OutcomeValidationFailed
	case PhaseUploading:
		return OutcomeUploadFailed
	default:
		return OutcomeRolledBack
	}
}

// PhaseOf reports the phase err failed in, if it came from Run.
func PhaseOf(err error) (Phase, bool) {
	var se *Error
	if errors.As(err, &se) {
		return se.Phase, true
	}
	return "", false
}

// Plan describes one submission.
type Plan[T any] struct {
	// Kind names the entity in logs and metrics.
	Kind string

	Validate func(ctx context.Context) error

	// Files are uploaded by the coordinator. Uploaded are assets the client
	// stored itself; both are rolled back when the record cannot be written.
	Files    []asset.File
	Uploaded []asset.Ref

	RequireAsset bool
	AssetField   string

	// Build receives Uploaded followed by the refs of Files, in input order.
	Build         func(refs []asset.Ref) (*T, error)
	BeforePersist func(ctx context.Context) error
	Persist       func(ctx context.Context, doc *T) (*T, error)
}

type Options struct {
	UploadTimeout     time.Duration
	PersistTimeout    time.Duration
	UploadConcurrency int
}

type Coordinator struct {
	assets   asset.Store
	cleaner  *asset.Cleaner
	notifier *notification.Notifier
	metrics  *metrics.Metrics
	logger   *slog.Logger
	opts     Options
}

func NewCoordinator(
	assets asset.Store,
	cleaner *asset.Cleaner,
	notifier *notification.Notifier,
	m *metrics.Metrics,
	logger *slog.Logger,
	opts Options,
) *Coordinator {
	if opts.UploadTimeout <= 0 {
		opts.UploadTimeout = 30 * time.Second
	}
	if opts.PersistTimeout <= 0 {
		opts.PersistTimeout = 10 * time.Second
	}
	if opts.UploadConcurrency <= 0 {
		opts.UploadConcurrency = 4
	}

	return &Coordinator{
		assets:   assets,
		cleaner:  cleaner,
		notifier: notifier,
		metrics:  m,
		logger:   logger,
		opts:     opts,
	}
}

// Run validates, uploads, builds and persists one submission.
func Run[T any](ctx context.Context, c *Coordinator, plan Plan[T]) (*T, error) {
	if plan.Validate != nil {
		if err := plan.Validate(ctx); err != nil {
			return nil, c.fail(ctx, plan.Kind, &Error{Phase: PhaseValidating, Err: err})
		}
	}

	if plan.RequireAsset && len(plan.Files) == 0 && len(plan.Uploaded) == 0 {
		field := plan.AssetField
		if field == "" {
			field = "asset"
		}
		err := validation.Field(field, field+" is required")
		return nil, c.fail(ctx, plan.Kind, &Error{Phase: PhaseValidating, Err: err})
	}

	uploaded, err := c.uploadAll(ctx, plan.Kind, plan.Files)
	if err != nil {
		return nil, c.fail(ctx, plan.Kind, &Error{Phase: PhaseUploading, Err: err})
	}

	refs := make([]asset.Ref, 0, len(plan.Uploaded)+len(uploaded))
	refs = append(refs, plan.Uploaded...)
	refs = append(refs, uploaded...)

	doc, err := persist(ctx, c, plan, refs)
	if err != nil {
		c.rollback(ctx, plan.Kind, refs)
		return nil, c.fail(ctx, plan.Kind, &Error{Phase: PhasePersisting, Err: err})
	}

	c.metrics.RecordSubmission(ctx, plan.Kind, OutcomeCommitted)
	c.logger.InfoContext(ctx, "submission committed", "kind", plan.Kind, "assets", len(refs))
	return doc, nil
}

func persist[T any](ctx context.Context, c *Coordinator, plan Plan[T], refs []asset.Ref) (*T, error) {
	ctx, cancel := context.WithTimeout(ctx, c.opts.PersistTimeout)
	defer cancel()

	doc, err := plan.Build(refs)
	if err != nil {
		return nil, err
	}

	if plan.BeforePersist != nil {
		if err := plan.BeforePersist(ctx); err != nil {
			return nil, err
		}
	}

	return plan.Persist(ctx, doc)
}

// uploadAll uploads files concurrently and returns their refs in input
// order. Uploads are detached from ctx so a departed caller does not leave
// half a batch behind; once one upload fails, queued ones are skipped and the
// ones that succeeded are deleted.
func (c *Coordinator) uploadAll(ctx context.Context, kind string, files []asset.File) ([]asset.Ref, error) {
	if len(files) == 0 {
		return nil, nil
	}

	detached := context.WithoutCancel(ctx)
	refs := make([]asset.Ref, len(files))
	done := make([]bool, len(files))

	var (
		g      errgroup.Group
		failed atomic.Bool
	)
	g.SetLimit(c.opts.UploadConcurrency)

	for i, file := range files {
		g.Go(func() error {
			if failed.Load() {
				return nil
			}

			uploadCtx, cancel := context.WithTimeout(detached, c.opts.UploadTimeout)
			defer cancel()

			ref, err := c.assets.Upload(uploadCtx, file)
			if err != nil {
				failed.Store(true)
				if !errors.Is(err, asset.ErrUploadFailed) {
					err = fmt.Errorf("%w: %w", asset.ErrUploadFailed, err)
				}
				return fmt.Errorf("upload %s: %w", file.Name, err)
			}

			refs[i] = ref
			done[i] = true
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		var succeeded []asset.Ref
		for i, ok := range done {
			if ok {
				succeeded = append(succeeded, refs[i])
			}
		}
		c.logger.WarnContext(ctx, "upload failed, removing sibling uploads", "kind", kind, "siblings", len(succeeded), "error", err)
		c.cleanup(ctx, kind, succeeded)
		return nil, err
	}

	return refs, nil
}

func (c *Coordinator) rollback(ctx context.Context, kind string, refs []asset.Ref) {
	if len(refs) == 0 {
		return
	}
	c.metrics.RecordRollback(ctx, kind, len(refs))
	c.logger.WarnContext(ctx, "persist failed, rolling back assets", "kind", kind, "assets", len(refs))
	c.cleanup(ctx, kind, refs)
}

// cleanup deletes refs best-effort. Failures are metered and announced as
// orphaned assets, never returned.
func (c *Coordinator) cleanup(ctx context.Context, kind string, refs []asset.Ref) {
	if len(refs) == 0 {
		return
	}

	report := c.cleaner.DeleteAll(ctx, refs)
	c.metrics.RecordCleanupFailures(ctx, kind, len(report.Failed))

	for _, ref := range report.Failed {
		subject := ref.ID
		if subject == "" {
			subject = ref.URL
		}
		c.notifier.Notify(ctx, notification.Notice{
			Type:    notification.AssetOrphaned,
			Subject: subject,
			Data: map[string]string{
				"kind": kind,
				"url":  ref.URL,
			},
		})
	}

	c.logger.InfoContext(ctx, "asset cleanup finished",
		"kind", kind,
		"deleted", report.Deleted,
		"absent", report.Absent,
		"failed", len(report.Failed),
	)
}

func (c *Coordinator) fail(ctx context.Context, kind string, err *Error) error {
	c.metrics.RecordSubmission(ctx, kind, err.Outcome())
	c.logger.InfoContext(ctx, "submission failed", "kind", kind, "phase", err.Phase, "outcome", err.Outcome(), "error", err.Err)
	return err
}
