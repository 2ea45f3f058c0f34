// Package form decodes create requests that arrive either as JSON, with
// asset URLs the client already uploaded, or as multipart/form-data carrying
// the JSON payload in a "data" field next to the image files.
package form

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"membership-service/internal/asset"
	"membership-service/internal/validation"
)

// DataField holds the JSON payload of a multipart request.
const DataField = "data"

const maxMemory = 32 << 20

// MaxFiles is the most images one request may carry.
const MaxFiles = 10

// dataAllowance covers the JSON payload and multipart framing.
const dataAllowance = 1 << 20

var (
	ErrMalformed = errors.New("malformed request body")
	ErrTooLarge  = errors.New("request body too large")
)

// BodyLimit is the largest request body accepted when each image may be up
// to maxBytes.
func BodyLimit(maxBytes int64) int64 {
	if maxBytes <= 0 {
		maxBytes = asset.DefaultMaxBytes
	}
	return maxBytes*MaxFiles + dataAllowance
}

// Files are the uploaded images per form field, in the order they were sent.
type Files map[string][]asset.File

// Count returns how many files were sent under field.
func (f Files) Count(field string) int {
	return len(f[field])
}

// IsMultipart reports whether r carries multipart/form-data.
func IsMultipart(r *http.Request) bool {
	ct := strings.ToLower(strings.TrimSpace(r.Header.Get("Content-Type")))
	return strings.HasPrefix(ct, "multipart/form-data")
}

// Decode reads r into dst and returns the files of a multipart request.
// The body is cut off at BodyLimit(maxBytes). Files that are not acceptable
// images come back as validation errors keyed by their form field.
func Decode(w http.ResponseWriter, r *http.Request, dst any, maxBytes int64) (Files, error) {
	r.Body = http.MaxBytesReader(w, r.Body, BodyLimit(maxBytes))

	if !IsMultipart(r) {
		if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
			return nil, bodyError(err)
		}
		return nil, nil
	}

	if err := r.ParseMultipartForm(maxMemory); err != nil {
		return nil, bodyError(err)
	}

	if data := r.FormValue(DataField); data != "" {
		if err := json.Unmarshal([]byte(data), dst); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
		}
	}

	files := Files{}
	fieldErrs := validation.Errors{}
	for field, headers := range r.MultipartForm.File {
		for _, fh := range headers {
			file, err := asset.FromMultipart(fh, maxBytes)
			if err != nil {
				fieldErrs[field] = strings.TrimPrefix(err.Error(), asset.ErrInvalidFile.Error()+": ")
				break
			}
			files[field] = append(files[field], file)
		}
	}
	if len(fieldErrs) > 0 {
		return nil, fieldErrs
	}

	return files, nil
}

func bodyError(err error) error {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return fmt.Errorf("%w: limit is %d bytes", ErrTooLarge, tooLarge.Limit)
	}
	return fmt.Errorf("%w: %v", ErrMalformed, err)
}
