package event

import (
	"errors"
	"log/slog"
	"net/http"

	"membership-service/common/httputil"
	"membership-service/internal/form"
	"membership-service/internal/metrics"
	"membership-service/internal/submission"

	"github.com/go-chi/chi/v5"
)

var messages = submission.Messages{
	Duplicate: "event already exists",
	NotFound:  "event not found",
}

type Handler struct {
	service  Service
	maxBytes int64
	logger   *slog.Logger
	metrics  *metrics.Metrics
}

func NewHandler(service Service, maxBytes int64, logger *slog.Logger, metrics *metrics.Metrics) *Handler {
	return &Handler{
		service:  service,
		maxBytes: maxBytes,
		logger:   logger,
		metrics:  metrics,
	}
}

func (h *Handler) RegisterRoutes(router chi.Router) {
	router.Get("/events", h.ListEvents)
	router.Post("/events", h.CreateEvent)
	router.Get("/upcoming-event", h.GetUpcomingEvent)
	router.Put("/upcoming-event", h.ReplaceUpcomingEvent)
}

func (h *Handler) ListEvents(w http.ResponseWriter, r *http.Request) {
	h.logger.InfoContext(r.Context(), "fetching all events")

	events, err := h.service.ListEvents(r.Context())
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	h.metrics.RecordListViewed(r.Context(), Collection)
	httputil.RespondWithJSON(w, http.StatusOK, events)
}

func (h *Handler) CreateEvent(w http.ResponseWriter, r *http.Request) {
	var req CreateEventRequest
	files, err := form.Decode(w, r, &req, h.maxBytes)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	h.logger.InfoContext(r.Context(), "creating event", "title", req.Title, "images", files.Count(ImagesField)+len(req.ImageURLs))
	created, err := h.service.CreateEvent(r.Context(), req, files[ImagesField])
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	httputil.RespondWithJSON(w, http.StatusCreated, created)
}

func (h *Handler) GetUpcomingEvent(w http.ResponseWriter, r *http.Request) {
	upcoming, err := h.service.GetUpcomingEvent(r.Context())
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	h.metrics.RecordListViewed(r.Context(), UpcomingCollection)
	httputil.RespondWithJSON(w, http.StatusOK, upcoming)
}

func (h *Handler) ReplaceUpcomingEvent(w http.ResponseWriter, r *http.Request) {
	var req ReplaceUpcomingEventRequest
	files, err := form.Decode(w, r, &req, h.maxBytes)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	h.logger.InfoContext(r.Context(), "replacing upcoming event", "title", req.Title)
	created, err := h.service.ReplaceUpcomingEvent(r.Context(), req, files[ImagesField])
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	httputil.RespondWithJSON(w, http.StatusCreated, created)
}

func (h *Handler) handleServiceError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, ErrNoUpcomingEvent) {
		h.logger.InfoContext(r.Context(), "no upcoming event")
		httputil.RespondWithError(w, http.StatusNotFound, "no upcoming event found")
		return
	}
	submission.RespondWithError(w, r, h.logger, err, messages)
}
