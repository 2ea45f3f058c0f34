package submission_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"membership-service/internal/asset"
	"membership-service/internal/asset/assettest"
	"membership-service/internal/metrics"
	"membership-service/internal/notification"
	"membership-service/internal/store"
	"membership-service/internal/submission"
	"membership-service/internal/validation"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type record struct {
	Name   string
	Images []string
}

type recordingPublisher struct {
	mu      sync.Mutex
	notices []notification.Notice
}

func (p *recordingPublisher) Publish(_ context.Context, notice notification.Notice) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.notices = append(p.notices, notice)
	return nil
}

func (p *recordingPublisher) Close() error { return nil }

func (p *recordingPublisher) Notices() []notification.Notice {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]notification.Notice(nil), p.notices...)
}

type fixture struct {
	assets      *assettest.Store
	publisher   *recordingPublisher
	notifier    *notification.Notifier
	coordinator *submission.Coordinator
}

func newFixture(t *testing.T, opts submission.Options) *fixture {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	assets := assettest.New()
	publisher := &recordingPublisher{}
	notifier := notification.NewNotifier(publisher, "test", nil, logger)
	cleaner := asset.NewCleaner(assets, time.Second, logger)

	return &fixture{
		assets:      assets,
		publisher:   publisher,
		notifier:    notifier,
		coordinator: submission.NewCoordinator(assets, cleaner, notifier, metrics.NewMock(), logger, opts),
	}
}

func buildRecord(name string) func(refs []asset.Ref) (*record, error) {
	return func(refs []asset.Ref) (*record, error) {
		rec := &record{Name: name}
		for _, ref := range refs {
			rec.Images = append(rec.Images, ref.URL)
		}
		return rec, nil
	}
}

func persistOK(_ context.Context, rec *record) (*record, error) {
	return rec, nil
}

func persistDuplicate(_ context.Context, _ *record) (*record, error) {
	return nil, store.ErrDuplicateKey
}

func TestRun_Committed(t *testing.T) {
	f := newFixture(t, submission.Options{})

	rec, err := submission.Run(context.Background(), f.coordinator, submission.Plan[record]{
		Kind:         "alumni",
		Files:        []asset.File{assettest.File("portrait")},
		RequireAsset: true,
		AssetField:   "profilePicture",
		Build:        buildRecord("Asha"),
		Persist:      persistOK,
	})
	require.NoError(t, err)
	require.Len(t, rec.Images, 1)

	live := f.assets.Live()
	require.Len(t, live, 1)
	assert.Equal(t, assettest.URL(live[0]), rec.Images[0])
	assert.Empty(t, f.assets.Deleted())
}

func TestRun_DuplicateRollsBackUpload(t *testing.T) {
	f := newFixture(t, submission.Options{})

	rec, err := submission.Run(context.Background(), f.coordinator, submission.Plan[record]{
		Kind:    "member",
		Files:   []asset.File{assettest.File("portrait")},
		Build:   buildRecord("Asha"),
		Persist: persistDuplicate,
	})
	require.Error(t, err)
	assert.Nil(t, rec)
	assert.ErrorIs(t, err, store.ErrDuplicateKey)

	var se *submission.Error
	require.ErrorAs(t, err, &se)
	assert.Equal(t, submission.PhasePersisting, se.Phase)
	assert.Equal(t, submission.OutcomeRolledBack, se.Outcome())

	assert.Empty(t, f.assets.Live())
	assert.Len(t, f.assets.Deleted(), 1)
}

func TestRun_ClientUploadedAssetsRolledBack(t *testing.T) {
	f := newFixture(t, submission.Options{})
	ref := f.assets.Put("alumni/abc123")

	_, err := submission.Run(context.Background(), f.coordinator, submission.Plan[record]{
		Kind:     "alumni",
		Uploaded: []asset.Ref{{URL: ref.URL}},
		Build:    buildRecord("Asha"),
		Persist:  persistDuplicate,
	})
	require.Error(t, err)
	assert.False(t, f.assets.Has("alumni/abc123"))
	assert.Equal(t, []string{"alumni/abc123"}, f.assets.Deleted())
}

func TestRun_PreservesInputOrder(t *testing.T) {
	f := newFixture(t, submission.Options{UploadConcurrency: 3})

	delays := map[string]time.Duration{
		"A": 60 * time.Millisecond,
		"B": 10 * time.Millisecond,
		"C": 30 * time.Millisecond,
	}
	f.assets.UploadFn = func(ctx context.Context, file asset.File) error {
		time.Sleep(delays[file.Name])
		return nil
	}

	rec, err := submission.Run(context.Background(), f.coordinator, submission.Plan[record]{
		Kind:    "event",
		Files:   []asset.File{assettest.File("A"), assettest.File("B"), assettest.File("C")},
		Build:   buildRecord("Fest"),
		Persist: persistOK,
	})
	require.NoError(t, err)
	require.Len(t, rec.Images, 3)

	for i, name := range []string{"A", "B", "C"} {
		assert.Contains(t, rec.Images[i], "/test/"+name+"-", "image %d", i)
	}
}

func TestRun_UploadFailureRemovesSiblings(t *testing.T) {
	f := newFixture(t, submission.Options{UploadConcurrency: 3})

	f.assets.UploadFn = func(ctx context.Context, file asset.File) error {
		if file.Name == "B" {
			return errors.New("host refused")
		}
		time.Sleep(20 * time.Millisecond)
		return nil
	}

	persisted := false
	_, err := submission.Run(context.Background(), f.coordinator, submission.Plan[record]{
		Kind:  "event",
		Files: []asset.File{assettest.File("A"), assettest.File("B"), assettest.File("C")},
		Build: buildRecord("Fest"),
		Persist: func(ctx context.Context, rec *record) (*record, error) {
			persisted = true
			return rec, nil
		},
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, asset.ErrUploadFailed)

	phase, ok := submission.PhaseOf(err)
	require.True(t, ok)
	assert.Equal(t, submission.PhaseUploading, phase)

	assert.False(t, persisted)
	assert.Empty(t, f.assets.Live())
}

func TestRun_UploadFailureSkipsQueuedFiles(t *testing.T) {
	f := newFixture(t, submission.Options{UploadConcurrency: 1})

	var calls atomic.Int32
	f.assets.UploadFn = func(ctx context.Context, file asset.File) error {
		calls.Add(1)
		return errors.New("host unreachable")
	}

	_, err := submission.Run(context.Background(), f.coordinator, submission.Plan[record]{
		Kind:    "event",
		Files:   []asset.File{assettest.File("A"), assettest.File("B"), assettest.File("C")},
		Build:   buildRecord("Fest"),
		Persist: persistOK,
	})
	require.Error(t, err)
	assert.Equal(t, int32(1), calls.Load())
}

func TestRun_CleanupFailureIsSwallowed(t *testing.T) {
	f := newFixture(t, submission.Options{})
	f.assets.DeleteFn = func(ctx context.Context, id string) error {
		return errors.New("host unreachable")
	}

	_, err := submission.Run(context.Background(), f.coordinator, submission.Plan[record]{
		Kind:    "member",
		Files:   []asset.File{assettest.File("portrait")},
		Build:   buildRecord("Asha"),
		Persist: persistDuplicate,
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, store.ErrDuplicateKey)
	assert.NotErrorIs(t, err, asset.ErrDeleteFailed)

	require.NoError(t, f.notifier.Close())
	notices := f.publisher.Notices()
	require.Len(t, notices, 1)
	assert.Equal(t, notification.AssetOrphaned, notices[0].Type)
	assert.Equal(t, "member", notices[0].Data["kind"])
	assert.True(t, strings.HasPrefix(notices[0].Subject, "test/portrait-"))
}

func TestRun_ValidationHasNoSideEffects(t *testing.T) {
	f := newFixture(t, submission.Options{})

	var uploads atomic.Int32
	f.assets.UploadFn = func(ctx context.Context, file asset.File) error {
		uploads.Add(1)
		return nil
	}

	_, err := submission.Run(context.Background(), f.coordinator, submission.Plan[record]{
		Kind: "alumni",
		Validate: func(ctx context.Context) error {
			return validation.Field("email", "please provide a valid email address")
		},
		Files: []asset.File{assettest.File("portrait")},
		Build: buildRecord("Asha"),
		Persist: func(ctx context.Context, rec *record) (*record, error) {
			t.Fatal("persist must not run")
			return nil, nil
		},
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, validation.ErrInvalid)
	assert.Equal(t, map[string]string{"email": "please provide a valid email address"}, validation.Fields(err))

	phase, _ := submission.PhaseOf(err)
	assert.Equal(t, submission.PhaseValidating, phase)
	assert.Zero(t, uploads.Load())
	assert.Empty(t, f.assets.Live())
}

func TestRun_MissingRequiredAsset(t *testing.T) {
	f := newFixture(t, submission.Options{})

	_, err := submission.Run(context.Background(), f.coordinator, submission.Plan[record]{
		Kind:         "alumni",
		RequireAsset: true,
		AssetField:   "profilePictureUrl",
		Build:        buildRecord("Asha"),
		Persist:      persistOK,
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, validation.ErrInvalid)
	assert.Contains(t, validation.Fields(err), "profilePictureUrl")

	var se *submission.Error
	require.ErrorAs(t, err, &se)
	assert.Equal(t, submission.OutcomeValidationFailed, se.Outcome())
}

func TestRun_CancelledCallerStillRollsBack(t *testing.T) {
	f := newFixture(t, submission.Options{})

	ctx, cancel := context.WithCancel(context.Background())
	f.assets.UploadFn = func(uploadCtx context.Context, file asset.File) error {
		cancel()
		return uploadCtx.Err()
	}

	_, err := submission.Run(ctx, f.coordinator, submission.Plan[record]{
		Kind:  "member",
		Files: []asset.File{assettest.File("portrait")},
		Build: buildRecord("Asha"),
		Persist: func(ctx context.Context, rec *record) (*record, error) {
			return nil, ctx.Err()
		},
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, f.assets.Live())
	assert.Len(t, f.assets.Deleted(), 1)
}

func TestRun_PersistTimeoutRollsBack(t *testing.T) {
	f := newFixture(t, submission.Options{PersistTimeout: 20 * time.Millisecond})

	_, err := submission.Run(context.Background(), f.coordinator, submission.Plan[record]{
		Kind:  "event",
		Files: []asset.File{assettest.File("A"), assettest.File("B")},
		Build: buildRecord("Fest"),
		Persist: func(ctx context.Context, rec *record) (*record, error) {
			<-ctx.Done()
			return nil, ctx.Err()
		},
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Empty(t, f.assets.Live())
}

func TestRun_BeforePersistFailureRollsBack(t *testing.T) {
	f := newFixture(t, submission.Options{})
	boom := errors.New("clear failed")

	_, err := submission.Run(context.Background(), f.coordinator, submission.Plan[record]{
		Kind:  "upcoming_event",
		Files: []asset.File{assettest.File("poster")},
		Build: buildRecord("Gala"),
		BeforePersist: func(ctx context.Context) error {
			return boom
		},
		Persist: persistOK,
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Empty(t, f.assets.Live())
}
