package position

import (
	"log/slog"
	"net/http"

	"membership-service/common/httputil"
	"membership-service/internal/form"
	"membership-service/internal/metrics"
	"membership-service/internal/submission"

	"github.com/go-chi/chi/v5"
)

var messages = submission.Messages{
	Duplicate: "a position is already assigned for this email",
	NotFound:  "position holder not found",
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
	router.Get("/positions", h.ListHolders)
	router.Post("/positions", h.CreateHolder)
}

func (h *Handler) ListHolders(w http.ResponseWriter, r *http.Request) {
	h.logger.InfoContext(r.Context(), "fetching all position holders")

	holders, err := h.service.ListHolders(r.Context())
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	h.metrics.RecordListViewed(r.Context(), Collection)
	httputil.RespondWithJSON(w, http.StatusOK, holders)
}

func (h *Handler) CreateHolder(w http.ResponseWriter, r *http.Request) {
	var req CreateHolderRequest
	files, err := form.Decode(w, r, &req, h.maxBytes)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	h.logger.InfoContext(r.Context(), "assigning position", "email", req.Email, "position", req.Position)
	created, err := h.service.CreateHolder(r.Context(), req, files[PictureField])
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	httputil.RespondWithJSON(w, http.StatusCreated, created)
}

func (h *Handler) handleServiceError(w http.ResponseWriter, r *http.Request, err error) {
	submission.RespondWithError(w, r, h.logger, err, messages)
}
