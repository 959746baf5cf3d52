// Package media classifies media reference strings as image or video.
package media

import (
	"strings"

	"github.com/holmsten/stepwise/internal/models"
)

var videoExtensions = []string{".mp4", ".webm", ".ogg"}

// Infer classifies a media reference by its shape. It is total: any
// string yields a result, and unrecognized references default to image.
//
// A bare blob: reference carries no format hint; recorded screen
// captures arrive as blobs, so those are treated as video. Callers that
// know better should set the media type explicitly.
func Infer(ref string) models.MediaType {
	if IsVideo(ref) {
		return models.MediaVideo
	}
	return models.MediaImage
}

// IsVideo reports whether ref looks like a video reference.
func IsVideo(ref string) bool {
	if ref == "" {
		return false
	}
	lower := strings.ToLower(ref)
	for _, ext := range videoExtensions {
		if strings.HasSuffix(lower, ext) {
			return true
		}
	}
	return strings.HasPrefix(ref, "data:video/") || strings.HasPrefix(ref, "blob:")
}

// ValidRef reports whether ref has an acceptable shape for mediaRef or
// thumbnailRef fields: http(s) URL, data: URI, blob: URI, or empty
// ("no media"). The store does not fetch or verify reachability.
func ValidRef(ref string) bool {
	if ref == "" {
		return true
	}
	return strings.HasPrefix(ref, "http://") ||
		strings.HasPrefix(ref, "https://") ||
		strings.HasPrefix(ref, "data:") ||
		strings.HasPrefix(ref, "blob:")
}
