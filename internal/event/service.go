package event

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"membership-service/internal/asset"
	"membership-service/internal/config"
	"membership-service/internal/notification"
	"membership-service/internal/store"
	"membership-service/internal/submission"
	"membership-service/internal/validation"
)

const ImagesField = "images"

var ErrNoUpcomingEvent = errors.New("no upcoming event")

type Service interface {
	ListEvents(ctx context.Context) ([]Event, error)
	CreateEvent(ctx context.Context, req CreateEventRequest, images []asset.File) (*Event, error)
	GetUpcomingEvent(ctx context.Context) (*UpcomingEvent, error)
	ReplaceUpcomingEvent(ctx context.Context, req ReplaceUpcomingEventRequest, images []asset.File) (*UpcomingEvent, error)
}

type service struct {
	events      store.Collection[Event]
	upcoming    store.Collection[UpcomingEvent]
	coordinator *submission.Coordinator
	cleaner     *asset.Cleaner
	notifier    *notification.Notifier
	strategy    string
	logger      *slog.Logger
}

func NewService(
	events store.Collection[Event],
	upcoming store.Collection[UpcomingEvent],
	coordinator *submission.Coordinator,
	cleaner *asset.Cleaner,
	notifier *notification.Notifier,
	strategy string,
	logger *slog.Logger,
) Service {
	if strategy == "" {
		strategy = config.ReplaceDeleteFirst
	}
	return &service{
		events:      events,
		upcoming:    upcoming,
		coordinator: coordinator,
		cleaner:     cleaner,
		notifier:    notifier,
		strategy:    strategy,
		logger:      logger,
	}
}

func (s *service) ListEvents(ctx context.Context) ([]Event, error) {
	return s.events.FindMany(ctx, nil, store.Desc("date"))
}

func (s *service) CreateEvent(ctx context.Context, req CreateEventRequest, images []asset.File) (*Event, error) {
	req.normalize()

	var date time.Time
	plan := submission.Plan[Event]{
		Kind: Collection,
		Validate: func(ctx context.Context) error {
			if err := validation.Struct(&req); err != nil {
				return err
			}
			var err error
			date, err = validation.ParseDate("date", req.Date)
			return err
		},
		Files:        images,
		Uploaded:     refsOf(req.ImageURLs),
		RequireAsset: true,
		AssetField:   "imageUrls",
		Build: func(refs []asset.Ref) (*Event, error) {
			return &Event{
				Title:       req.Title,
				Description: req.Description,
				Date:        date,
				Time:        req.Time,
				Venue:       req.Venue,
				ImageURLs:   urlsOf(refs),
				Category:    req.Category,
			}, nil
		},
		Persist: s.events.Create,
	}

	return submission.Run(ctx, s.coordinator, plan)
}

func (s *service) GetUpcomingEvent(ctx context.Context) (*UpcomingEvent, error) {
	list, err := s.upcoming.FindMany(ctx, nil, store.Desc("created_at"))
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, ErrNoUpcomingEvent
	}
	return &list[0], nil
}

// ReplaceUpcomingEvent publishes a new upcoming event in place of every
// existing one.
//
// With delete_first the old events are removed before the insert, so a
// failed insert leaves no upcoming event at all. insert_first writes the new
// event first and only then removes the events it saw before the insert, so
// overlapping replaces never delete each other's event.
func (s *service) ReplaceUpcomingEvent(ctx context.Context, req ReplaceUpcomingEventRequest, images []asset.File) (*UpcomingEvent, error) {
	req.normalize()

	var (
		date     time.Time
		replaced []UpcomingEvent
		removed  []UpcomingEvent
	)

	plan := submission.Plan[UpcomingEvent]{
		Kind: UpcomingCollection,
		Validate: func(ctx context.Context) error {
			if n := len(images) + len(req.ImageURLs); n > MaxUpcomingImages {
				return validation.Field("imageUrls", fmt.Sprintf("at most %d images allowed", MaxUpcomingImages))
			}
			if err := validation.Struct(&req); err != nil {
				return err
			}
			var err error
			date, err = validation.ParseDate("date", req.Date)
			return err
		},
		Files:        images,
		Uploaded:     refsOf(req.ImageURLs),
		RequireAsset: true,
		AssetField:   "imageUrls",
		Build: func(refs []asset.Ref) (*UpcomingEvent, error) {
			return &UpcomingEvent{
				Title:         req.Title,
				Description:   req.Description,
				Date:          date,
				Time:          req.Time,
				Venue:         req.Venue,
				ImageURLs:     urlsOf(refs),
				ContactPerson: req.ContactPerson,
			}, nil
		},
		BeforePersist: func(ctx context.Context) error {
			var err error
			replaced, err = s.upcoming.FindMany(ctx, nil)
			if err != nil {
				return err
			}
			if s.strategy != config.ReplaceDeleteFirst {
				return nil
			}
			if _, err := s.upcoming.DeleteMany(ctx, nil); err != nil {
				return err
			}
			removed = replaced
			return nil
		},
		Persist: func(ctx context.Context, doc *UpcomingEvent) (*UpcomingEvent, error) {
			created, err := s.upcoming.Create(ctx, doc)
			if err != nil {
				return nil, err
			}
			if s.strategy == config.ReplaceInsertFirst {
				removed = s.removeReplaced(ctx, replaced)
			}
			return created, nil
		},
	}

	created, err := submission.Run(ctx, s.coordinator, plan)
	if err != nil {
		// delete_first already removed the old events; their images go too.
		s.cleanupReplaced(ctx, removed, req.ImageURLs)
		return nil, err
	}

	s.cleanupReplaced(ctx, removed, created.ImageURLs)
	s.notifier.Notify(ctx, notification.Notice{
		Type:    notification.UpcomingEventPublished,
		Subject: created.ID,
		Data: map[string]string{
			"title": created.Title,
			"date":  created.Date.Format(time.DateOnly),
		},
	})

	return created, nil
}

// removeReplaced deletes the events seen before the insert and returns the
// ones it removed. Events inserted by an overlapping replace are left alone.
// The new event is already stored, so failures are logged and the next
// replace retries them.
func (s *service) removeReplaced(ctx context.Context, replaced []UpcomingEvent) []UpcomingEvent {
	removed := make([]UpcomingEvent, 0, len(replaced))
	for _, old := range replaced {
		err := s.upcoming.DeleteOne(ctx, store.Filter{"id": old.ID})
		switch {
		case err == nil:
			removed = append(removed, old)
		case errors.Is(err, store.ErrNotFound):
			// an overlapping replace got there first and cleans its images
		default:
			s.logger.ErrorContext(ctx, "failed to remove previous upcoming event", "id", old.ID, "error", err)
		}
	}
	s.logger.InfoContext(ctx, "previous upcoming events removed", "count", len(removed))
	return removed
}

// cleanupReplaced deletes the images of replaced events that the new event
// does not reuse.
func (s *service) cleanupReplaced(ctx context.Context, replaced []UpcomingEvent, kept []string) {
	var refs []asset.Ref
	for _, old := range replaced {
		for _, url := range old.ImageURLs {
			if !slices.Contains(kept, url) {
				refs = append(refs, asset.Ref{URL: url})
			}
		}
	}
	if len(refs) == 0 {
		return
	}

	report := s.cleaner.DeleteAll(ctx, refs)
	if len(report.Failed) > 0 {
		s.logger.WarnContext(ctx, "images of replaced upcoming event left behind", "failed", len(report.Failed))
	}
}

func refsOf(urls []string) []asset.Ref {
	if len(urls) == 0 {
		return nil
	}
	refs := make([]asset.Ref, len(urls))
	for i, url := range urls {
		refs[i] = asset.Ref{URL: url}
	}
	return refs
}

func urlsOf(refs []asset.Ref) []string {
	out := make([]string, len(refs))
	for i, ref := range refs {
		out[i] = ref.URL
	}
	return out
}
