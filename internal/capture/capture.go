package capture

import (
	"errors"
	"fmt"
	"io"

	"github.com/your-org/marketvid/internal/media"
)

var (
	// ErrNotAVideo is returned when a selected file does not declare a video
	// content type.
	ErrNotAVideo = errors.New("not a video")

	// ErrPermissionDenied is returned when the capture device refuses access.
	ErrPermissionDenied = errors.New("capture device permission denied")

	// ErrDeviceUnavailable is returned when the capture device cannot be
	// opened for any reason other than permissions.
	ErrDeviceUnavailable = errors.New("capture device unavailable")
)

// FromFile builds an asset from a user-selected file. Only the declared
// content type is checked; the payload is read only once the check passes.
func FromFile(filename, contentType string, r io.Reader) (*media.Asset, error) {
	if !media.IsVideo(contentType) {
		return nil, fmt.Errorf("%w: %q has content type %q", ErrNotAVideo, filename, contentType)
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read %q: %w", filename, err)
	}

	return media.NewAsset(data, contentType), nil
}
