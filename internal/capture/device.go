package capture

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
)

// Device is a source of raw audio+video bytes. Opening a device corresponds
// to requesting combined capture permission; the returned stream delivers
// container bytes until it is closed.
type Device interface {
	Open(ctx context.Context) (io.ReadCloser, error)
}

// NodeDevice reads from a capture device node or named pipe on the host.
type NodeDevice struct {
	Path string
}

func (d NodeDevice) Open(ctx context.Context) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f, err := os.Open(d.Path)
	if err != nil {
		return nil, err
	}
	return f, nil
}

// classifyOpenError maps a device open failure onto the capture error
// taxonomy. Permission problems are distinguished so callers can tell the
// user to grant access rather than retry.
func classifyOpenError(err error) error {
	if errors.Is(err, fs.ErrPermission) {
		return fmt.Errorf("%w: %v", ErrPermissionDenied, err)
	}
	return fmt.Errorf("%w: %v", ErrDeviceUnavailable, err)
}
