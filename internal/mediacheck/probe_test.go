package mediacheck

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/your-org/marketvid/internal/media"
)

func TestMeasureAnswersKnownDurationWithoutProbing(t *testing.T) {
	// A nonexistent binary would fail any real probe, so a successful call
	// proves the cached duration short-circuits.
	p := NewFFprobe("/nonexistent/ffprobe", t.TempDir(), zap.NewNop())

	asset := media.NewAsset([]byte("payload"), "video/webm")
	asset.SetDuration(7.5)

	seconds, err := p.Measure(context.Background(), asset)
	require.NoError(t, err)
	assert.Equal(t, 7.5, seconds)
}

func TestExtensionFor(t *testing.T) {
	assert.Equal(t, ".webm", extensionFor("video/webm"))
	assert.Equal(t, ".mov", extensionFor("video/quicktime"))
	assert.Equal(t, ".mp4", extensionFor("video/mp4"))
	assert.Equal(t, ".mp4", extensionFor("application/octet-stream"))
}
