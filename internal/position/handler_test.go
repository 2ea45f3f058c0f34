package position_test

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"membership-service/common/httputil"
	commonmetrics "membership-service/common/metrics"
	"membership-service/internal/asset/assettest"
	"membership-service/internal/form"
	"membership-service/internal/metrics"
	"membership-service/internal/position"
	"membership-service/internal/store"
	"membership-service/internal/submission/submissiontest"
	"membership-service/testing/testdb"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func holderPayload(email string) map[string]interface{} {
	return map[string]interface{}{
		"name":        "Kiran",
		"bitsId":      "  2021a7ps0001p ",
		"email":       email,
		"mobile":      "9876543210",
		"position":    "Cultural Secretary",
		"description": "Coordinates the annual fest",
	}
}

func TestPositionService_Shared(t *testing.T) {
	pgContainer := testdb.SetupSharedPostgres(t)
	defer pgContainer.Cleanup(t)

	ctx := context.Background()
	h := submissiontest.New(t)

	backend := store.NewBunBackend(pgContainer.DB, commonmetrics.NewMock(), h.Logger)
	collection, err := store.Open[position.Holder](ctx, backend, position.Collection, "email")
	require.NoError(t, err)

	service := position.NewService(collection, h.Coordinator)
	handler := position.NewHandler(service, 0, h.Logger, metrics.NewMock())
	router := chi.NewRouter()
	handler.RegisterRoutes(router)

	post := func(t *testing.T, payload map[string]interface{}) *httptest.ResponseRecorder {
		body, _ := json.Marshal(payload)
		req := httptest.NewRequest(http.MethodPost, "/positions", bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		return w
	}

	t.Run("CreateHolder_WithoutPicture", func(t *testing.T) {
		testdb.CleanupTables(t, pgContainer.DB, position.Collection)

		w := post(t, holderPayload("kiran@example.com"))
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

		var response position.Holder
		require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
		assert.Equal(t, "2021A7PS0001P", response.InstitutionID)
		assert.Empty(t, response.ProfilePicture)
	})

	t.Run("CreateHolder_MissingDescription", func(t *testing.T) {
		testdb.CleanupTables(t, pgContainer.DB, position.Collection)

		payload := holderPayload("nodesc@example.com")
		delete(payload, "description")
		w := post(t, payload)

		assert.Equal(t, http.StatusBadRequest, w.Code)

		var response httputil.ErrorResponse
		require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
		assert.Contains(t, response.Fields, "description")
	})

	t.Run("CreateHolder_AlreadyAssignedRollsBackUpload", func(t *testing.T) {
		testdb.CleanupTables(t, pgContainer.DB, position.Collection)

		require.Equal(t, http.StatusCreated, post(t, holderPayload("taken@example.com")).Code)

		data, _ := json.Marshal(holderPayload("taken@example.com"))
		var body bytes.Buffer
		mw := multipart.NewWriter(&body)
		require.NoError(t, mw.WriteField(form.DataField, string(data)))
		fw, err := mw.CreateFormFile(position.PictureField, "kiran.png")
		require.NoError(t, err)
		_, err = fw.Write(assettest.PNG(512))
		require.NoError(t, err)
		require.NoError(t, mw.Close())

		before := h.Assets.Live()
		req := httptest.NewRequest(http.MethodPost, "/positions", &body)
		req.Header.Set("Content-Type", mw.FormDataContentType())
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), "already assigned")
		assert.Equal(t, before, h.Assets.Live())
	})

	t.Run("ListHolders_NewestFirst", func(t *testing.T) {
		testdb.CleanupTables(t, pgContainer.DB, position.Collection)

		for _, email := range []string{"first@example.com", "second@example.com", "third@example.com"} {
			require.Equal(t, http.StatusCreated, post(t, holderPayload(email)).Code)
			time.Sleep(5 * time.Millisecond)
		}

		req := httptest.NewRequest(http.MethodGet, "/positions", nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		require.Equal(t, http.StatusOK, w.Code)

		var response []position.Holder
		require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
		require.Len(t, response, 3)
		assert.Equal(t, "third@example.com", response[0].Email)
		assert.Equal(t, "first@example.com", response[2].Email)
	})
}
