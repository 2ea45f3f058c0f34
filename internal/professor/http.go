package professor

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
	Duplicate: "professor already registered with this email",
	NotFound:  "professor not found",
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
	router.Get("/professors", h.ListProfessors)
	router.Post("/professors", h.CreateProfessor)
}

func (h *Handler) ListProfessors(w http.ResponseWriter, r *http.Request) {
	h.logger.InfoContext(r.Context(), "fetching all professors")

	list, err := h.service.ListProfessors(r.Context())
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	h.metrics.RecordListViewed(r.Context(), Collection)
	httputil.RespondWithJSON(w, http.StatusOK, list)
}

func (h *Handler) CreateProfessor(w http.ResponseWriter, r *http.Request) {
	var req CreateProfessorRequest
	files, err := form.Decode(w, r, &req, h.maxBytes)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	h.logger.InfoContext(r.Context(), "creating professor", "email", req.Email)
	created, err := h.service.CreateProfessor(r.Context(), req, files[PictureField])
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	httputil.RespondWithJSON(w, http.StatusCreated, created)
}

func (h *Handler) handleServiceError(w http.ResponseWriter, r *http.Request, err error) {
	submission.RespondWithError(w, r, h.logger, err, messages)
}
