package model

import "errors"

// Allowed media content types for presigned uploads.
var allowedImageTypes = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/gif":  ".gif",
	"image/webp": ".webp",
}

// IsAllowedImageType reports whether contentType may be uploaded.
func IsAllowedImageType(contentType string) bool {
	_, ok := allowedImageTypes[contentType]
	return ok
}

// ExtensionFor returns the file extension for an allowed content type.
func ExtensionFor(contentType string) string {
	return allowedImageTypes[contentType]
}

const (
	// MaxMediaSizeBytes is the per-object upload ceiling (10MB).
	MaxMediaSizeBytes = 10 * 1024 * 1024

	// MediaFolder is the object-key prefix for uploaded media.
	MediaFolder = "media"
)

// PresignUploadRequest is the request body for POST /media/presign.
type PresignUploadRequest struct {
	ContentType string `json:"content_type"`
	FileSize    int64  `json:"file_size"`
}

// PresignUploadResponse carries the upload URL and the public URL the
// client should store on the created entity.
type PresignUploadResponse struct {
	UploadURL string `json:"upload_url"`
	PublicURL string `json:"public_url"`
	Key       string `json:"key"`
	ExpiresIn int64  `json:"expires_in"`
}

var (
	ErrFileTooLarge     = errors.New("file too large")
	ErrInvalidImageType = errors.New("invalid image type")
)
