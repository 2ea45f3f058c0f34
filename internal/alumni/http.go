package alumni

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
	Duplicate: "alumni already registered with this email",
	NotFound:  "alumni not found",
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
	router.Get("/alumni", h.ListAlumni)
	router.Post("/alumni", h.CreateAlumni)
}

func (h *Handler) ListAlumni(w http.ResponseWriter, r *http.Request) {
	h.logger.InfoContext(r.Context(), "fetching all alumni")

	list, err := h.service.ListAlumni(r.Context())
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	h.metrics.RecordListViewed(r.Context(), Collection)
	httputil.RespondWithJSON(w, http.StatusOK, list)
}

func (h *Handler) CreateAlumni(w http.ResponseWriter, r *http.Request) {
	var req CreateAlumniRequest
	files, err := form.Decode(w, r, &req, h.maxBytes)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	h.logger.InfoContext(r.Context(), "creating alumni", "email", req.Email, "multipart", files != nil)
	created, err := h.service.CreateAlumni(r.Context(), req, files[PictureField])
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	httputil.RespondWithJSON(w, http.StatusCreated, created)
}

func (h *Handler) handleServiceError(w http.ResponseWriter, r *http.Request, err error) {
	submission.RespondWithError(w, r, h.logger, err, messages)
}
