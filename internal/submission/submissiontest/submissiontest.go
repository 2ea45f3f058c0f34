// Package submissiontest wires a Coordinator to an in-memory asset store.
package submissiontest

import (
	"io"
	"log/slog"
	"testing"
	"time"

	"membership-service/internal/asset"
	"membership-service/internal/asset/assettest"
	"membership-service/internal/metrics"
	"membership-service/internal/notification"
	"membership-service/internal/submission"
)

type Harness struct {
	Assets      *assettest.Store
	Cleaner     *asset.Cleaner
	Notifier    *notification.Notifier
	Coordinator *submission.Coordinator
	Logger      *slog.Logger
}

func New(t *testing.T) *Harness {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	assets := assettest.New()
	cleaner := asset.NewCleaner(assets, time.Second, logger)
	notifier := notification.NewNotifier(notification.Noop{}, "none", nil, logger)
	t.Cleanup(func() { _ = notifier.Close() })

	return &Harness{
		Assets:   assets,
		Cleaner:  cleaner,
		Notifier: notifier,
		Coordinator: submission.NewCoordinator(assets, cleaner, notifier, metrics.NewMock(), logger, submission.Options{
			UploadTimeout:     time.Second,
			PersistTimeout:    5 * time.Second,
			UploadConcurrency: 4,
		}),
		Logger: logger,
	}
}
