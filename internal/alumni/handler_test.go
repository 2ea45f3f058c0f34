package alumni_test

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"membership-service/common/httputil"
	commonmetrics "membership-service/common/metrics"
	"membership-service/internal/alumni"
	"membership-service/internal/asset/assettest"
	"membership-service/internal/form"
	"membership-service/internal/metrics"
	"membership-service/internal/store"
	"membership-service/internal/submission/submissiontest"
	"membership-service/testing/testmongo"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func alumniPayload(email string, year int) map[string]interface{} {
	return map[string]interface{}{
		"name":           "Asha Rao",
		"graduationYear": year,
		"degree":         "B.E. Hons. EEE",
		"currentCompany": "Acme",
		"email":          email,
		"phone":          "9876543210",
	}
}

func multipartBody(t *testing.T, payload map[string]interface{}, picture []byte) (*bytes.Buffer, string) {
	t.Helper()

	data, err := json.Marshal(payload)
	require.NoError(t, err)

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	require.NoError(t, mw.WriteField(form.DataField, string(data)))
	if picture != nil {
		fw, err := mw.CreateFormFile(alumni.PictureField, "portrait.jpg")
		require.NoError(t, err)
		_, err = fw.Write(picture)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())
	return &body, mw.FormDataContentType()
}

func TestAlumniService_Shared(t *testing.T) {
	mongoContainer := testmongo.SetupSharedMongo(t)
	defer mongoContainer.Cleanup(t)

	ctx := context.Background()
	database := mongoContainer.Database("alumni_test")
	h := submissiontest.New(t)

	backend := store.NewMongoBackend(database, commonmetrics.NewMock(), h.Logger)
	collection, err := store.Open[alumni.Alumni](ctx, backend, alumni.Collection, "email")
	require.NoError(t, err)

	service := alumni.NewService(collection, h.Coordinator)
	handler := alumni.NewHandler(service, 0, h.Logger, metrics.NewMock())
	router := chi.NewRouter()
	handler.RegisterRoutes(router)

	t.Run("CreateAlumni_Multipart", func(t *testing.T) {
		testmongo.CleanupCollections(t, database, alumni.Collection)

		body, contentType := multipartBody(t, alumniPayload("asha@example.com", 2019), assettest.JPEG(2<<20))
		req := httptest.NewRequest(http.MethodPost, "/alumni", body)
		req.Header.Set("Content-Type", contentType)
		w := httptest.NewRecorder()

		router.ServeHTTP(w, req)

		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

		var response alumni.Alumni
		require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
		assert.NotEmpty(t, response.ID)
		assert.NotZero(t, response.CreatedAt)
		assert.Equal(t, "asha@example.com", response.Email)

		live := h.Assets.Live()
		require.Len(t, live, 1)
		assert.Equal(t, assettest.URL(live[0]), response.ProfilePictureURL)
	})

	t.Run("CreateAlumni_JSONWithUploadedPicture", func(t *testing.T) {
		testmongo.CleanupCollections(t, database, alumni.Collection)

		ref := h.Assets.Put("alumni/abc123")
		payload := alumniPayload("ravi@example.com", 2010)
		payload["profilePictureUrl"] = ref.URL
		body, _ := json.Marshal(payload)

		req := httptest.NewRequest(http.MethodPost, "/alumni", bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()

		router.ServeHTTP(w, req)

		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

		var response alumni.Alumni
		require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
		assert.Equal(t, ref.URL, response.ProfilePictureURL)
		assert.True(t, h.Assets.Has("alumni/abc123"))
	})

	t.Run("CreateAlumni_DuplicateRollsBackPicture", func(t *testing.T) {
		testmongo.CleanupCollections(t, database, alumni.Collection)

		_, err := collection.Create(ctx, &alumni.Alumni{
			Name:              "Existing",
			GraduationYear:    2001,
			Degree:            "B.E.",
			Email:             "dup@example.com",
			ProfilePictureURL: assettest.URL("alumni/existing"),
		})
		require.NoError(t, err)

		ref := h.Assets.Put("alumni/dup-picture")
		payload := alumniPayload("dup@example.com", 2015)
		payload["profilePictureUrl"] = ref.URL
		body, _ := json.Marshal(payload)

		req := httptest.NewRequest(http.MethodPost, "/alumni", bytes.NewReader(body))
		w := httptest.NewRecorder()

		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)

		var response httputil.ErrorResponse
		require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
		assert.Contains(t, response.Error, "already registered")
		assert.False(t, h.Assets.Has("alumni/dup-picture"))

		count, err := collection.Count(ctx, store.Filter{"email": "dup@example.com"})
		require.NoError(t, err)
		assert.Equal(t, int64(1), count)
	})

	t.Run("CreateAlumni_MissingPicture", func(t *testing.T) {
		testmongo.CleanupCollections(t, database, alumni.Collection)

		body, _ := json.Marshal(alumniPayload("nopic@example.com", 2015))
		req := httptest.NewRequest(http.MethodPost, "/alumni", bytes.NewReader(body))
		w := httptest.NewRecorder()

		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)

		var response httputil.ErrorResponse
		require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
		assert.Contains(t, response.Fields, "profilePictureUrl")
	})

	t.Run("CreateAlumni_InvalidYear", func(t *testing.T) {
		testmongo.CleanupCollections(t, database, alumni.Collection)

		before := len(h.Assets.Live())
		body, contentType := multipartBody(t, alumniPayload("old@example.com", 1950), assettest.JPEG(256))
		req := httptest.NewRequest(http.MethodPost, "/alumni", body)
		req.Header.Set("Content-Type", contentType)
		w := httptest.NewRecorder()

		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)

		var response httputil.ErrorResponse
		require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
		assert.Contains(t, response.Fields, "graduationYear")
		assert.Len(t, h.Assets.Live(), before)
	})

	t.Run("ListAlumni", func(t *testing.T) {
		testmongo.CleanupCollections(t, database, alumni.Collection)

		for i, year := range []int{2005, 2020, 2012} {
			_, err := collection.Create(ctx, &alumni.Alumni{
				Name:              "Alumni",
				GraduationYear:    year,
				Degree:            "B.E.",
				Email:             string(rune('a'+i)) + "@example.com",
				Phone:             "9876543210",
				ProfilePictureURL: assettest.URL("alumni/list"),
			})
			require.NoError(t, err)
		}

		fetch := func() []byte {
			req := httptest.NewRequest(http.MethodGet, "/alumni", nil)
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)
			require.Equal(t, http.StatusOK, w.Code)
			return w.Body.Bytes()
		}

		first := fetch()
		var response []alumni.Alumni
		require.NoError(t, json.Unmarshal(first, &response))
		require.Len(t, response, 3)
		assert.Equal(t, 2020, response[0].GraduationYear)
		assert.Equal(t, 2012, response[1].GraduationYear)
		assert.Equal(t, 2005, response[2].GraduationYear)
		for _, a := range response {
			assert.Empty(t, a.Phone)
		}

		assert.Equal(t, first, fetch())
	})
}
