package form_test

import (
	"bytes"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"membership-service/internal/asset/assettest"
	"membership-service/internal/form"
	"membership-service/internal/validation"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type payload struct {
	Name string `json:"name"`
	Year int    `json:"year"`
}

func multipartRequest(t *testing.T, data string, files map[string][][]byte) *http.Request {
	t.Helper()

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	if data != "" {
		require.NoError(t, mw.WriteField(form.DataField, data))
	}
	for field, contents := range files {
		for i, content := range contents {
			fw, err := mw.CreateFormFile(field, field+string(rune('a'+i))+".jpg")
			require.NoError(t, err)
			_, err = fw.Write(content)
			require.NoError(t, err)
		}
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestDecode_JSON(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"Asha","year":2020}`))
	req.Header.Set("Content-Type", "application/json")

	var got payload
	files, err := form.Decode(httptest.NewRecorder(), req, &got, 0)
	require.NoError(t, err)
	assert.Nil(t, files)
	assert.Equal(t, payload{Name: "Asha", Year: 2020}, got)
}

func TestDecode_MalformedJSON(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":`))

	var got payload
	_, err := form.Decode(httptest.NewRecorder(), req, &got, 0)
	assert.ErrorIs(t, err, form.ErrMalformed)
}

func TestDecode_Multipart(t *testing.T) {
	req := multipartRequest(t, `{"name":"Asha","year":2020}`, map[string][][]byte{
		"images": {assettest.JPEG(128), assettest.PNG(128)},
	})
	assert.True(t, form.IsMultipart(req))

	var got payload
	files, err := form.Decode(httptest.NewRecorder(), req, &got, 0)
	require.NoError(t, err)
	assert.Equal(t, "Asha", got.Name)
	require.Equal(t, 2, files.Count("images"))
	assert.Equal(t, "image/jpeg", files["images"][0].ContentType)
	assert.Equal(t, "image/png", files["images"][1].ContentType)
}

func TestDecode_MultipartRejectsNonImage(t *testing.T) {
	req := multipartRequest(t, `{"name":"Asha"}`, map[string][][]byte{
		"profilePicture": {[]byte("plain text, not an image")},
	})

	var got payload
	_, err := form.Decode(httptest.NewRecorder(), req, &got, 0)
	require.Error(t, err)
	assert.ErrorIs(t, err, validation.ErrInvalid)
	assert.Contains(t, validation.Fields(err), "profilePicture")
}

func TestDecode_MultipartTooLarge(t *testing.T) {
	req := multipartRequest(t, `{"name":"Asha"}`, map[string][][]byte{
		"profilePicture": {assettest.JPEG(4096)},
	})

	var got payload
	_, err := form.Decode(httptest.NewRecorder(), req, &got, 1024)
	require.Error(t, err)
	assert.Contains(t, validation.Fields(err)["profilePicture"], "exceeds")
}

func TestDecode_BodyOverLimit(t *testing.T) {
	files := make([][]byte, form.MaxFiles+1)
	for i := range files {
		files[i] = assettest.JPEG(1024)
	}
	req := multipartRequest(t, `{"name":"Asha"}`, map[string][][]byte{"images": files})

	var got payload
	_, err := form.Decode(httptest.NewRecorder(), req, &got, 1024)
	require.Error(t, err)
	assert.ErrorIs(t, err, form.ErrTooLarge)
}

func TestDecode_JSONOverLimit(t *testing.T) {
	name := strings.Repeat("a", int(form.BodyLimit(1024)))
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"`+name+`"}`))
	req.Header.Set("Content-Type", "application/json")

	var got payload
	_, err := form.Decode(httptest.NewRecorder(), req, &got, 1024)
	assert.ErrorIs(t, err, form.ErrTooLarge)
}
