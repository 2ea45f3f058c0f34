package health

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"membership-service/common/httputil"
	"membership-service/common/metrics"

	"github.com/go-chi/chi/v5"
)

const readyTimeout = 2 * time.Second

// Pinger is a dependency the service cannot serve without.
type Pinger interface {
	Ping(ctx context.Context) error
}

type Handler struct {
	db         Pinger
	dependency string
	metrics    *metrics.HealthMetrics
	logger     *slog.Logger
}

func NewHandler(db Pinger, dependency string, hm *metrics.HealthMetrics, logger *slog.Logger) *Handler {
	return &Handler{
		db:         db,
		dependency: dependency,
		metrics:    hm,
		logger:     logger,
	}
}

func (h *Handler) RegisterRoutes(router chi.Router) {
	router.Get("/health", h.Health)
	router.Get("/ready", h.Ready)
}

type HealthResponse struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	httputil.RespondWithJSON(w, http.StatusOK, HealthResponse{Status: "ok"})
}

// Ready reports whether the record store answers.
func (h *Handler) Ready(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
	defer cancel()

	start := time.Now()
	err := h.db.Ping(ctx)
	h.metrics.RecordDependencyCheck(ctx, h.dependency, time.Since(start), err)

	if err != nil {
		h.logger.WarnContext(r.Context(), "readiness check failed", "dependency", h.dependency, "error", err)
		httputil.RespondWithJSON(w, http.StatusServiceUnavailable, HealthResponse{
			Status: "unavailable",
			Error:  h.dependency + " unreachable",
		})
		return
	}

	httputil.RespondWithJSON(w, http.StatusOK, HealthResponse{Status: "ready"})
}
