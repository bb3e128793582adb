package mediacheck

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/your-org/marketvid/internal/media"
)

// TooLargeError reports an asset exceeding the size limit. The size check is
// made before any probe so oversized uploads cost nothing downstream.
type TooLargeError struct {
	SizeBytes    int64
	MaxSizeBytes int64
}

func (e *TooLargeError) Error() string {
	return fmt.Sprintf("video is %d bytes, the limit is %d bytes", e.SizeBytes, e.MaxSizeBytes)
}

// TooLongError reports an asset exceeding the duration limit, carrying the
// measured value for user-facing messages.
type TooLongError struct {
	DurationSeconds float64
	MaxSeconds      float64
}

func (e *TooLongError) Error() string {
	return fmt.Sprintf("video is %.1fs long, the limit is %.0fs", e.DurationSeconds, e.MaxSeconds)
}

// Validator rejects assets that exceed configured limits before any
// transcoding is attempted.
type Validator struct {
	prober Prober
	logger *zap.Logger
}

func NewValidator(prober Prober, logger *zap.Logger) *Validator {
	return &Validator{
		prober: prober,
		logger: logger.With(zap.String("component", "validator")),
	}
}

// Validate checks size first, then measures and checks duration. A nil error
// means the asset is acceptable for compression.
func (v *Validator) Validate(ctx context.Context, asset *media.Asset, maxDuration time.Duration, maxSizeBytes int64) error {
	if size := asset.SizeBytes(); size > maxSizeBytes {
		v.logger.Info("rejecting oversized asset",
			zap.Int64("size_bytes", size),
			zap.Int64("max_size_bytes", maxSizeBytes),
		)
		return &TooLargeError{SizeBytes: size, MaxSizeBytes: maxSizeBytes}
	}

	seconds, err := v.prober.Measure(ctx, asset)
	if err != nil {
		return err
	}

	if maxSeconds := maxDuration.Seconds(); seconds > maxSeconds {
		v.logger.Info("rejecting overlong asset",
			zap.Float64("duration_seconds", seconds),
			zap.Float64("max_seconds", maxSeconds),
		)
		return &TooLongError{DurationSeconds: seconds, MaxSeconds: maxSeconds}
	}

	return nil
}
