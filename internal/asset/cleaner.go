package asset

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// Cleaner deletes assets on a best-effort basis. Calls run detached from the
// caller's cancellation, each bounded by its own timeout.
type Cleaner struct {
	store   Store
	timeout time.Duration
	logger  *slog.Logger
}

// CleanupReport counts the outcome of a batch delete.
type CleanupReport struct {
	Deleted int
	Absent  int
	Failed  []Ref
}

func NewCleaner(store Store, timeout time.Duration, logger *slog.Logger) *Cleaner {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Cleaner{store: store, timeout: timeout, logger: logger}
}

// Delete removes one asset by id and reports the host's answer.
func (c *Cleaner) Delete(ctx context.Context, id string) (Outcome, error) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.timeout)
	defer cancel()
	return c.store.Delete(ctx, id)
}

// Resolve returns the asset id of ref, deriving it from the URL when needed.
func Resolve(ref Ref) (string, error) {
	if ref.ID != "" {
		return ref.ID, nil
	}
	if ref.URL == "" {
		return "", ErrMissingAssetID
	}
	return PublicIDFromURL(ref.URL)
}

// DeleteByURL deletes the asset behind url. Failures are logged and reported
// as false; they never propagate.
func (c *Cleaner) DeleteByURL(ctx context.Context, url string) bool {
	report := c.DeleteAll(ctx, []Ref{{URL: url}})
	return len(report.Failed) == 0
}

// DeleteAll deletes every ref concurrently. Refs without a usable id are
// skipped and reported as failed.
func (c *Cleaner) DeleteAll(ctx context.Context, refs []Ref) CleanupReport {
	var (
		mu     sync.Mutex
		wg     sync.WaitGroup
		report CleanupReport
	)

	for _, ref := range refs {
		wg.Add(1)
		go func(ref Ref) {
			defer wg.Done()

			outcome, err := c.deleteRef(ctx, ref)

			mu.Lock()
			defer mu.Unlock()
			switch {
			case err != nil:
				report.Failed = append(report.Failed, ref)
			case outcome == AlreadyAbsent:
				report.Absent++
			default:
				report.Deleted++
			}
		}(ref)
	}
	wg.Wait()

	return report
}

func (c *Cleaner) deleteRef(ctx context.Context, ref Ref) (Outcome, error) {
	id, err := Resolve(ref)
	if err != nil {
		c.logger.WarnContext(ctx, "skipping asset cleanup", "url", ref.URL, "error", err)
		return 0, err
	}

	outcome, err := c.Delete(ctx, id)
	if err != nil {
		c.logger.ErrorContext(ctx, "asset cleanup failed", "asset_id", id, "error", err)
		return 0, fmt.Errorf("delete %s: %w", id, err)
	}

	c.logger.InfoContext(ctx, "asset cleaned up", "asset_id", id, "outcome", outcome.String())
	return outcome, nil
}
