package asset

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"membership-service/common/httputil"

	"github.com/go-chi/chi/v5"
)

type DeleteRequest struct {
	AssetID string `json:"assetId"`
	// PublicID is accepted for clients that still send the image host's field name.
	PublicID string `json:"public_id"`
	URL      string `json:"url"`
}

type DeleteResponse struct {
	Message string `json:"message"`
	AssetID string `json:"assetId"`
	Result  string `json:"result"`
}

type Handler struct {
	cleaner *Cleaner
	logger  *slog.Logger
}

func NewHandler(cleaner *Cleaner, logger *slog.Logger) *Handler {
	return &Handler{
		cleaner: cleaner,
		logger:  logger,
	}
}

func (h *Handler) RegisterRoutes(router chi.Router) {
	router.Post("/assets/delete", h.DeleteAsset)
}

func (h *Handler) DeleteAsset(w http.ResponseWriter, r *http.Request) {
	var req DeleteRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.RespondWithError(w, http.StatusBadRequest, "invalid request")
		return
	}

	id := req.AssetID
	if id == "" {
		id = req.PublicID
	}
	id, err := Resolve(Ref{ID: id, URL: req.URL})
	if err != nil {
		if errors.Is(err, ErrMissingAssetID) {
			httputil.RespondWithError(w, http.StatusBadRequest, "assetId or url is required")
			return
		}
		httputil.RespondWithError(w, http.StatusBadRequest, "could not derive asset id from url")
		return
	}

	outcome, err := h.cleaner.Delete(r.Context(), id)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "asset delete failed", "asset_id", id, "error", err)
		httputil.RespondWithError(w, http.StatusInternalServerError, fmt.Sprintf("failed to delete asset %s", id))
		return
	}

	message := fmt.Sprintf("asset %s deleted", id)
	if outcome == AlreadyAbsent {
		message = fmt.Sprintf("asset %s not found (may have already been deleted)", id)
	}

	h.logger.InfoContext(r.Context(), "asset delete requested", "asset_id", id, "outcome", outcome.String())
	httputil.RespondWithJSON(w, http.StatusOK, DeleteResponse{
		Message: message,
		AssetID: id,
		Result:  outcome.String(),
	})
}
