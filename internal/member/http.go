package member

import (
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"

	"membership-service/common/httputil"
	"membership-service/internal/form"
	"membership-service/internal/metrics"
	"membership-service/internal/submission"

	"github.com/go-chi/chi/v5"
)

var messages = submission.Messages{
	Duplicate: "member already registered with this email or BITS ID",
	NotFound:  "member not found",
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
	router.Get("/members", h.ListMembers)
	router.Post("/members", h.Register)
	router.Get("/members/pending", h.ListPending)
	router.Get("/members/export", h.ExportRoster)
	router.Patch("/members/{email}", h.Approve)
	router.Delete("/members/{email}", h.DeleteMember)
}

func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	files, err := form.Decode(w, r, &req, h.maxBytes)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	h.logger.InfoContext(r.Context(), "registering member", "email", req.Email)
	created, err := h.service.Register(r.Context(), req, files[PictureField])
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	h.metrics.RecordMemberRegistration(r.Context())

	httputil.RespondWithJSON(w, http.StatusCreated, created)
}

func (h *Handler) ListMembers(w http.ResponseWriter, r *http.Request) {
	var approved *bool
	if raw := r.URL.Query().Get("approved"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			httputil.RespondWithError(w, http.StatusBadRequest, "approved must be true or false")
			return
		}
		approved = &v
	}

	h.logger.InfoContext(r.Context(), "fetching members")
	members, err := h.service.ListMembers(r.Context(), approved)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	h.metrics.RecordListViewed(r.Context(), Collection)
	httputil.RespondWithJSON(w, http.StatusOK, members)
}

func (h *Handler) ListPending(w http.ResponseWriter, r *http.Request) {
	h.logger.InfoContext(r.Context(), "fetching pending members")
	members, err := h.service.ListPending(r.Context())
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	h.metrics.RecordListViewed(r.Context(), Collection)
	httputil.RespondWithJSON(w, http.StatusOK, members)
}

func (h *Handler) Approve(w http.ResponseWriter, r *http.Request) {
	email, ok := h.emailParam(w, r)
	if !ok {
		return
	}

	h.logger.InfoContext(r.Context(), "approving member", "email", email)
	updated, err := h.service.Approve(r.Context(), email)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	h.metrics.RecordMemberApproval(r.Context())

	httputil.RespondWithJSON(w, http.StatusOK, map[string]interface{}{
		"message": "member approved successfully",
		"member":  updated,
	})
}

func (h *Handler) DeleteMember(w http.ResponseWriter, r *http.Request) {
	email, ok := h.emailParam(w, r)
	if !ok {
		return
	}

	h.logger.InfoContext(r.Context(), "deleting member", "email", email)
	if err := h.service.DeleteMember(r.Context(), email); err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	httputil.RespondWithJSON(w, http.StatusOK, map[string]string{
		"message": "member deleted successfully",
	})
}

func (h *Handler) ExportRoster(w http.ResponseWriter, r *http.Request) {
	h.logger.InfoContext(r.Context(), "exporting member roster")
	data, err := h.service.ExportRoster(r.Context())
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	h.metrics.RecordRosterExport(r.Context())

	w.Header().Set("Content-Type", RosterContentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+RosterFilename+`"`)
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

func (h *Handler) emailParam(w http.ResponseWriter, r *http.Request) (string, bool) {
	email, err := url.PathUnescape(chi.URLParam(r, "email"))
	if err != nil || email == "" {
		httputil.RespondWithError(w, http.StatusBadRequest, "email is required")
		return "", false
	}
	return email, true
}

func (h *Handler) handleServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, ErrEmailRegistered):
		h.logger.InfoContext(r.Context(), "email already registered")
		httputil.RespondWithError(w, http.StatusBadRequest, "user already registered with this email")
	case errors.Is(err, ErrInstitutionIDRegistered):
		h.logger.InfoContext(r.Context(), "bits id already registered")
		httputil.RespondWithError(w, http.StatusBadRequest, "user already registered with this BITS ID")
	default:
		submission.RespondWithError(w, r, h.logger, err, messages)
	}
}
