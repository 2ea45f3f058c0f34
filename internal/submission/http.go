package submission

import (
	"errors"
	"log/slog"
	"net/http"

	"membership-service/common/httputil"
	"membership-service/internal/asset"
	"membership-service/internal/form"
	"membership-service/internal/store"
	"membership-service/internal/validation"
)

// Messages are the user-facing texts for one entity's store failures.
type Messages struct {
	Duplicate string
	NotFound  string
}

// RespondWithError writes the status and message for err. Only the first
// failing phase reaches the client; cleanup failures never do.
func RespondWithError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error, msgs Messages) {
	ctx := r.Context()

	switch {
	case errors.Is(err, form.ErrMalformed):
		logger.InfoContext(ctx, "malformed request", "error", err)
		httputil.RespondWithError(w, http.StatusBadRequest, "invalid request")
	case errors.Is(err, form.ErrTooLarge):
		logger.InfoContext(ctx, "request body too large", "error", err)
		httputil.RespondWithError(w, http.StatusRequestEntityTooLarge, "request body too large")
	case errors.Is(err, validation.ErrInvalid):
		logger.InfoContext(ctx, "invalid input", "error", err)
		httputil.RespondWithFieldErrors(w, "invalid input", validation.Fields(err))
	case errors.Is(err, store.ErrInvalidRecord):
		logger.InfoContext(ctx, "invalid record", "error", err)
		httputil.RespondWithFieldErrors(w, "invalid input", validation.Fields(err))
	case errors.Is(err, store.ErrDuplicateKey):
		logger.InfoContext(ctx, "duplicate record", "error", err)
		httputil.RespondWithError(w, http.StatusBadRequest, msgs.Duplicate)
	case errors.Is(err, store.ErrNotFound):
		logger.InfoContext(ctx, "record not found", "error", err)
		httputil.RespondWithError(w, http.StatusNotFound, msgs.NotFound)
	case errors.Is(err, asset.ErrUploadFailed):
		logger.ErrorContext(ctx, "image upload failed", "error", err)
		httputil.RespondWithError(w, http.StatusBadGateway, uploadMessage(err))
	default:
		logger.ErrorContext(ctx, "internal error", "error", err)
		httputil.RespondWithError(w, http.StatusInternalServerError, "internal server error")
	}
}

// uploadMessage reports an upload failure with its cause.
func uploadMessage(err error) string {
	if errors.Is(err, asset.ErrNotConfigured) {
		return "image upload service is not configured"
	}
	var se *Error
	if errors.As(err, &se) {
		return se.Err.Error()
	}
	return err.Error()
}
