package mediacheck

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/your-org/marketvid/internal/media"
)

type fakeProber struct {
	calls   int
	seconds float64
	err     error
}

func (p *fakeProber) Measure(ctx context.Context, asset *media.Asset) (float64, error) {
	p.calls++
	if p.err != nil {
		return 0, p.err
	}
	asset.SetDuration(p.seconds)
	return p.seconds, nil
}

func TestValidateChecksSizeBeforeProbing(t *testing.T) {
	prober := &fakeProber{seconds: 20}
	v := NewValidator(prober, zap.NewNop())

	// 80MB and 20s: both limits are broken, the size error must win and the
	// probe must never run.
	asset := media.NewAsset(make([]byte, 80<<20), "video/webm")
	err := v.Validate(context.Background(), asset, 15*time.Second, 50<<20)

	var tooLarge *TooLargeError
	require.ErrorAs(t, err, &tooLarge)
	assert.Equal(t, int64(80<<20), tooLarge.SizeBytes)
	assert.Equal(t, int64(50<<20), tooLarge.MaxSizeBytes)
	assert.Zero(t, prober.calls, "oversized assets must not be probed")
}

func TestValidateRejectsOverlong(t *testing.T) {
	prober := &fakeProber{seconds: 17.3}
	v := NewValidator(prober, zap.NewNop())

	asset := media.NewAsset(make([]byte, 1024), "video/webm")
	err := v.Validate(context.Background(), asset, 15*time.Second, 50<<20)

	var tooLong *TooLongError
	require.ErrorAs(t, err, &tooLong)
	assert.Equal(t, 17.3, tooLong.DurationSeconds)
	assert.Equal(t, 15.0, tooLong.MaxSeconds)
	assert.Equal(t, 1, prober.calls)
}

func TestValidateAcceptsWithinLimits(t *testing.T) {
	prober := &fakeProber{seconds: 10}
	v := NewValidator(prober, zap.NewNop())

	// 30MB at 10s fits under a 50MB / 15s policy.
	asset := media.NewAsset(make([]byte, 30<<20), "video/webm")
	err := v.Validate(context.Background(), asset, 15*time.Second, 50<<20)

	require.NoError(t, err)
	assert.True(t, asset.DurationKnown)
	assert.Equal(t, 10.0, asset.DurationSeconds)
}

func TestValidatePropagatesProbeFailure(t *testing.T) {
	prober := &fakeProber{err: ErrUnreadableMedia}
	v := NewValidator(prober, zap.NewNop())

	asset := media.NewAsset(make([]byte, 1024), "video/webm")
	err := v.Validate(context.Background(), asset, 15*time.Second, 50<<20)
	assert.ErrorIs(t, err, ErrUnreadableMedia)
}

func TestErrorMessagesCarryMeasuredValues(t *testing.T) {
	large := &TooLargeError{SizeBytes: 60000000, MaxSizeBytes: 52428800}
	assert.Contains(t, large.Error(), "60000000")
	assert.Contains(t, large.Error(), "52428800")

	long := &TooLongError{DurationSeconds: 16.4, MaxSeconds: 15}
	assert.Contains(t, long.Error(), "16.4")
	assert.Contains(t, long.Error(), "15")
}
