// Package asset talks to the external image host that stores profile
// pictures and event images.
package asset

import (
	"context"
	"errors"
)

var (
	ErrUploadFailed   = errors.New("asset upload failed")
	ErrDeleteFailed   = errors.New("asset delete failed")
	ErrNotConfigured  = errors.New("asset store is not configured")
	ErrInvalidFile    = errors.New("invalid file")
	ErrUnparsableURL  = errors.New("cannot derive asset id from url")
	ErrMissingAssetID = errors.New("asset id or url is required")
)

// Ref is a durable reference to an uploaded asset.
type Ref struct {
	URL string `json:"url"`
	ID  string `json:"id"`
}

type Outcome int

const (
	Deleted Outcome = iota + 1
	AlreadyAbsent
)

func (o Outcome) String() string {
	switch o {
	case Deleted:
		return "deleted"
	case AlreadyAbsent:
		return "already_absent"
	default:
		return "unknown"
	}
}

// Store uploads and deletes assets on the image host.
// Upload errors wrap ErrUploadFailed; Delete errors wrap ErrDeleteFailed.
type Store interface {
	Upload(ctx context.Context, file File) (Ref, error)
	Delete(ctx context.Context, id string) (Outcome, error)
}
