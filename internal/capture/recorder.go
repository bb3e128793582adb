package capture

import (
	"bytes"
	"context"
	"errors"
	"io"
	"io/fs"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/your-org/marketvid/internal/media"
)

// State is the recorder lifecycle state.
type State int32

const (
	StateIdle State = iota
	StateRequesting
	StateRecording
	StateStopping
	StateStopped
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRequesting:
		return "requesting"
	case StateRecording:
		return "recording"
	case StateStopping:
		return "stopping"
	case StateStopped:
		return "stopped"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Recorder captures one clip from a device. The auto-stop timer and a manual
// Stop call drive the same transition, so the configured max duration is a
// hard bound rather than advisory. A Recorder is single use.
type Recorder struct {
	logger   *zap.Logger
	mimeType string

	state    atomic.Int32
	stopOnce sync.Once
	stopCh   chan struct{}
}

// NewRecorder constructs a one-shot recorder producing assets of the given
// container type.
func NewRecorder(logger *zap.Logger, mimeType string) *Recorder {
	if mimeType == "" {
		mimeType = "video/webm"
	}
	return &Recorder{
		logger:   logger,
		mimeType: mimeType,
		stopCh:   make(chan struct{}),
	}
}

// State reports the current lifecycle state.
func (r *Recorder) State() State {
	return State(r.state.Load())
}

// Stop requests an early end to the recording. Safe to call multiple times
// and before recording has started.
func (r *Recorder) Stop() {
	r.stopOnce.Do(func() {
		close(r.stopCh)
	})
}

// Record opens the device, buffers its stream, and stops when Stop is called
// or maxDuration elapses, whichever comes first. The device stream is closed
// exactly once on every exit path.
func (r *Recorder) Record(ctx context.Context, dev Device, maxDuration time.Duration) (*media.Asset, error) {
	r.state.Store(int32(StateRequesting))

	stream, err := dev.Open(ctx)
	if err != nil {
		r.state.Store(int32(StateFailed))
		return nil, classifyOpenError(err)
	}

	var releaseOnce sync.Once
	release := func() {
		releaseOnce.Do(func() {
			if cerr := stream.Close(); cerr != nil {
				r.logger.Warn("closing capture stream", zap.Error(cerr))
			}
		})
	}
	defer release()

	r.state.Store(int32(StateRecording))
	started := time.Now()

	var buf bytes.Buffer
	copied := make(chan error, 1)
	go func() {
		_, cerr := io.Copy(&buf, stream)
		copied <- cerr
	}()

	timer := time.NewTimer(maxDuration)
	defer timer.Stop()

	var copyErr error
	drained := false

	select {
	case <-ctx.Done():
		r.state.Store(int32(StateFailed))
		release()
		<-copied
		return nil, ctx.Err()
	case <-timer.C:
		r.logger.Debug("recording auto-stop", zap.Duration("max_duration", maxDuration))
		r.Stop()
	case <-r.stopCh:
	case copyErr = <-copied:
		// Stream ended on its own before any stop was requested.
		drained = true
	}

	r.state.Store(int32(StateStopping))
	release()

	if !drained {
		copyErr = <-copied
	}
	// Closing the stream makes the pending read fail; that is the normal way
	// a recording ends.
	if copyErr != nil && !isClosedStream(copyErr) {
		r.state.Store(int32(StateFailed))
		return nil, copyErr
	}

	elapsed := time.Since(started)
	if elapsed > maxDuration {
		elapsed = maxDuration
	}

	asset := media.NewAsset(buf.Bytes(), r.mimeType)
	asset.SetDuration(elapsed.Seconds())
	r.state.Store(int32(StateStopped))

	r.logger.Info("recording complete",
		zap.Int64("size_bytes", asset.SizeBytes()),
		zap.Float64("duration_seconds", asset.DurationSeconds),
	)
	return asset, nil
}

func isClosedStream(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, io.ErrClosedPipe) ||
		errors.Is(err, io.EOF) ||
		errors.Is(err, fs.ErrClosed) ||
		strings.Contains(err.Error(), "closed")
}
