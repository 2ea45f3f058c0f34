package asset

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"path"

	"membership-service/internal/config"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
	"github.com/google/uuid"
)

const (
	destroyOK       = "ok"
	destroyNotFound = "not found"
)

// Cloudinary stores assets on Cloudinary with signed API calls.
type Cloudinary struct {
	cld    *cloudinary.Cloudinary
	folder string
	preset string
	logger *slog.Logger
}

// NewCloudinary builds the client. Missing credentials are not an error here:
// the returned client fails every call with ErrNotConfigured.
func NewCloudinary(cfg config.AssetsConfig, logger *slog.Logger) (*Cloudinary, error) {
	c := &Cloudinary{
		folder: cfg.Folder,
		preset: cfg.UploadPreset,
		logger: logger,
	}

	if cfg.CloudName == "" || cfg.APIKey == "" || cfg.APISecret == "" {
		logger.Warn("cloudinary credentials missing, uploads will fail")
		return c, nil
	}

	cld, err := cloudinary.NewFromParams(cfg.CloudName, cfg.APIKey, cfg.APISecret)
	if err != nil {
		return nil, fmt.Errorf("failed to create cloudinary client: %w", err)
	}
	c.cld = cld

	return c, nil
}

func (c *Cloudinary) Upload(ctx context.Context, file File) (Ref, error) {
	if c.cld == nil {
		return Ref{}, fmt.Errorf("%w: %w", ErrUploadFailed, ErrNotConfigured)
	}

	res, err := c.cld.Upload.Upload(ctx, bytes.NewReader(file.Data), uploader.UploadParams{
		PublicID:     uuid.NewString(),
		Folder:       c.folder,
		UploadPreset: c.preset,
	})
	if err != nil {
		return Ref{}, fmt.Errorf("%w: %v", ErrUploadFailed, err)
	}
	if res.Error.Message != "" {
		return Ref{}, fmt.Errorf("%w: %s", ErrUploadFailed, res.Error.Message)
	}
	if res.SecureURL == "" || res.PublicID == "" {
		return Ref{}, fmt.Errorf("%w: empty response for %s", ErrUploadFailed, file.Name)
	}

	c.logger.DebugContext(ctx, "asset uploaded",
		"public_id", res.PublicID,
		"name", path.Base(file.Name),
		"bytes", len(file.Data),
	)

	return Ref{URL: res.SecureURL, ID: res.PublicID}, nil
}

func (c *Cloudinary) Delete(ctx context.Context, id string) (Outcome, error) {
	if c.cld == nil {
		return 0, fmt.Errorf("%w: %w", ErrDeleteFailed, ErrNotConfigured)
	}

	res, err := c.cld.Upload.Destroy(ctx, uploader.DestroyParams{PublicID: id})
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrDeleteFailed, err)
	}
	if res.Error.Message != "" {
		return 0, fmt.Errorf("%w: %s", ErrDeleteFailed, res.Error.Message)
	}

	switch res.Result {
	case destroyOK:
		return Deleted, nil
	case destroyNotFound:
		return AlreadyAbsent, nil
	default:
		return 0, fmt.Errorf("%w: %s returned %q", ErrDeleteFailed, id, res.Result)
	}
}
