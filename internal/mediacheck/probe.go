package mediacheck

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/your-org/marketvid/internal/media"
)

// ErrUnreadableMedia is returned when the probe cannot extract metadata from
// an asset.
var ErrUnreadableMedia = errors.New("unreadable media")

// Prober measures the duration of a media asset.
type Prober interface {
	Measure(ctx context.Context, asset *media.Asset) (float64, error)
}

// FFprobe measures duration with a metadata-only ffprobe pass. It never
// decodes the full stream.
type FFprobe struct {
	path    string
	workDir string
	logger  *zap.Logger
}

// NewFFprobe constructs a prober invoking the given ffprobe binary, staging
// probe inputs under workDir.
func NewFFprobe(path, workDir string, logger *zap.Logger) *FFprobe {
	if path == "" {
		path = "ffprobe"
	}
	return &FFprobe{
		path:    path,
		workDir: workDir,
		logger:  logger.With(zap.String("component", "ffprobe")),
	}
}

// Measure returns the asset duration in seconds. Measuring is idempotent: a
// previously measured asset is answered without another probe.
func (p *FFprobe) Measure(ctx context.Context, asset *media.Asset) (float64, error) {
	if asset.DurationKnown {
		return asset.DurationSeconds, nil
	}

	tmp, err := os.CreateTemp(p.workDir, "probe-*"+extensionFor(asset.MimeType))
	if err != nil {
		return 0, fmt.Errorf("stage probe input: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(asset.Data); err != nil {
		tmp.Close()
		return 0, fmt.Errorf("stage probe input: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return 0, fmt.Errorf("stage probe input: %w", err)
	}

	args := []string{
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		tmp.Name(),
	}
	p.logger.Debug("probing media", zap.String("file", filepath.Base(tmp.Name())))

	cmd := exec.CommandContext(ctx, p.path, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		p.logger.Warn("ffprobe failed", zap.Error(err), zap.String("stderr", stderr.String()))
		return 0, fmt.Errorf("%w: %v", ErrUnreadableMedia, err)
	}

	seconds, err := strconv.ParseFloat(strings.TrimSpace(stdout.String()), 64)
	if err != nil {
		return 0, fmt.Errorf("%w: unparseable duration %q", ErrUnreadableMedia, stdout.String())
	}

	asset.SetDuration(seconds)
	return seconds, nil
}

func extensionFor(mimeType string) string {
	switch strings.ToLower(mimeType) {
	case "video/webm":
		return ".webm"
	case "video/quicktime":
		return ".mov"
	default:
		return ".mp4"
	}
}
