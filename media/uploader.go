package media

import (
	"context"
	"errors"
	"io"
	"path"
	"strings"

	"github.com/google/uuid"
)

// ErrUploadFailed is returned when the media store rejects or loses a blob.
var ErrUploadFailed = errors.New("media upload failed")

// Result identifies a stored blob: a durable URL and the store's own key.
type Result struct {
	URL     string
	MediaID string
}

type Uploader interface {
	Upload(ctx context.Context, blob io.Reader, size int64, contentType, folder string) (Result, error)
}

// ObjectKey builds a collision-free key such as focus_gallery/<uuid>.jpg.
func ObjectKey(folder, contentType string) string {
	return path.Join(folder, uuid.NewString()+extension(contentType))
}

func extension(contentType string) string {
	if contentType == "image/png" {
		return ".png"
	}
	return ".jpg"
}

// joinURL appends key to a CDN or endpoint base without doubling slashes.
func joinURL(base, key string) string {
	return strings.TrimRight(base, "/") + "/" + strings.TrimLeft(key, "/")
}
