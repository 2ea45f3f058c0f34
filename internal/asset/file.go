package asset

import (
	"fmt"
	"io"
	"mime/multipart"

	"github.com/gabriel-vasile/mimetype"
)

const DefaultMaxBytes int64 = 5 << 20

var allowedTypes = []string{"image/jpeg", "image/png", "image/webp"}

// File is an image ready for upload.
type File struct {
	Name        string
	ContentType string
	Data        []byte
}

// NewFile sniffs data and accepts JPEG, PNG and WebP images up to maxBytes.
func NewFile(name string, data []byte, maxBytes int64) (File, error) {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	if len(data) == 0 {
		return File{}, fmt.Errorf("%w: %s is empty", ErrInvalidFile, name)
	}
	if int64(len(data)) > maxBytes {
		return File{}, fmt.Errorf("%w: %s exceeds %s", ErrInvalidFile, name, limit(maxBytes))
	}

	mt := mimetype.Detect(data)
	if !mimetype.EqualsAny(mt.String(), allowedTypes...) {
		return File{}, fmt.Errorf("%w: %s is %s, only JPEG, PNG or WebP images are accepted", ErrInvalidFile, name, mt.String())
	}

	return File{Name: name, ContentType: mt.String(), Data: data}, nil
}

// FromMultipart reads an uploaded form file.
func FromMultipart(fh *multipart.FileHeader, maxBytes int64) (File, error) {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	if fh.Size > maxBytes {
		return File{}, fmt.Errorf("%w: %s exceeds %s", ErrInvalidFile, fh.Filename, limit(maxBytes))
	}

	f, err := fh.Open()
	if err != nil {
		return File{}, fmt.Errorf("%w: %s: %v", ErrInvalidFile, fh.Filename, err)
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, maxBytes+1))
	if err != nil {
		return File{}, fmt.Errorf("%w: %s: %v", ErrInvalidFile, fh.Filename, err)
	}
	return NewFile(fh.Filename, data, maxBytes)
}

func limit(maxBytes int64) string {
	if maxBytes >= 1<<20 && maxBytes%(1<<20) == 0 {
		return fmt.Sprintf("%d MB", maxBytes>>20)
	}
	return fmt.Sprintf("%d bytes", maxBytes)
}
