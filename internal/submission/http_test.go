package submission_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"membership-service/common/httputil"
	"membership-service/internal/asset"
	"membership-service/internal/config"
	"membership-service/internal/form"
	"membership-service/internal/store"
	"membership-service/internal/submission"
	"membership-service/internal/validation"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRespondWithError(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	msgs := submission.Messages{Duplicate: "already registered", NotFound: "not found"}

	unconfigured, err := asset.NewCloudinary(config.AssetsConfig{}, logger)
	require.NoError(t, err)
	_, notConfiguredErr := unconfigured.Upload(context.Background(), asset.File{Name: "a.jpg"})
	require.Error(t, notConfiguredErr)

	uploadErr := func(cause error) error {
		return &submission.Error{Phase: submission.PhaseUploading, Err: fmt.Errorf("upload a.jpg: %w", cause)}
	}

	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantError  string
	}{
		{
			name:       "upload service not configured",
			err:        uploadErr(notConfiguredErr),
			wantStatus: http.StatusBadGateway,
			wantError:  "image upload service is not configured",
		},
		{
			name:       "upload rejected by host",
			err:        uploadErr(fmt.Errorf("%w: Invalid image file", asset.ErrUploadFailed)),
			wantStatus: http.StatusBadGateway,
			wantError:  "upload a.jpg: asset upload failed: Invalid image file",
		},
		{
			name:       "malformed body",
			err:        fmt.Errorf("%w: unexpected EOF", form.ErrMalformed),
			wantStatus: http.StatusBadRequest,
			wantError:  "invalid request",
		},
		{
			name:       "body too large",
			err:        fmt.Errorf("%w: limit is 1024 bytes", form.ErrTooLarge),
			wantStatus: http.StatusRequestEntityTooLarge,
			wantError:  "request body too large",
		},
		{
			name:       "invalid field",
			err:        &submission.Error{Phase: submission.PhaseValidating, Err: validation.Field("email", "email is required")},
			wantStatus: http.StatusBadRequest,
			wantError:  "invalid input",
		},
		{
			name:       "duplicate",
			err:        &submission.Error{Phase: submission.PhasePersisting, Err: store.ErrDuplicateKey},
			wantStatus: http.StatusBadRequest,
			wantError:  "already registered",
		},
		{
			name:       "not found",
			err:        store.ErrNotFound,
			wantStatus: http.StatusNotFound,
			wantError:  "not found",
		},
		{
			name:       "other persistence error",
			err:        &submission.Error{Phase: submission.PhasePersisting, Err: errors.New("connection reset")},
			wantStatus: http.StatusInternalServerError,
			wantError:  "internal server error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			r := httptest.NewRequest(http.MethodPost, "/alumni", nil)

			submission.RespondWithError(w, r, logger, tt.err, msgs)

			assert.Equal(t, tt.wantStatus, w.Code)

			var response httputil.ErrorResponse
			require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
			assert.Equal(t, tt.wantError, response.Error)
		})
	}
}
