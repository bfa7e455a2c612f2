// Package platform describes the video platform collaborator used for
// publishing. Concrete clients live in subpackages.
package platform

import (
	"context"
	"errors"
)

// ErrUpload is wrapped by every upload failure
var ErrUpload = errors.New("upload failed")

// UploadRequest is everything needed to publish one video
type UploadRequest struct {
	VideoPath   string
	Title       string
	Description string
	Tags        []string
	CategoryID  string
	Privacy     string
}

// Uploader publishes videos and attaches thumbnails
type Uploader interface {
	Upload(ctx context.Context, req UploadRequest) (videoID string, err error)
	SetThumbnail(ctx context.Context, videoID, path string) error
}
