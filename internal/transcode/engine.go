package transcode

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/your-org/marketvid/internal/media"
)

var (
	// ErrEngineInit is returned when the underlying encoder cannot be set up.
	ErrEngineInit = errors.New("transcode engine initialization failed")

	// ErrTranscodeFailed is returned when an encode run does not produce a
	// usable output.
	ErrTranscodeFailed = errors.New("transcode failed")
)

// runner executes the encoder binary. Factored out so tests can substitute a
// fake process.
type runner interface {
	Run(ctx context.Context, name string, args ...string) (stderr []byte, err error)
}

type execRunner struct {
	logger *zap.Logger
}

func (r execRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	err := cmd.Run()
	if err != nil {
		r.logger.Warn("encoder run failed",
			zap.Error(err),
			zap.String("stderr", tail(stderr.Bytes(), 400)),
		)
	}
	return stderr.Bytes(), err
}

// Options configures the encoder invocation.
type Options struct {
	FFmpegPath   string
	WorkDir      string
	Preset       string
	CRF          int
	AudioBitrate string
	Timeout      time.Duration
}

// Engine wraps the ffmpeg binary as a single-input single-output batch
// encoder. Initialization is lazy and memoized; every caller shares the one
// outcome. The working directory uses fixed input/output filenames, so job
// submission is serialized internally.
type Engine struct {
	opts   Options
	logger *zap.Logger
	run    runner

	initOnce sync.Once
	initErr  error

	mu sync.Mutex
}

// NewEngine constructs an engine around the configured ffmpeg binary.
func NewEngine(opts Options, logger *zap.Logger) *Engine {
	if opts.FFmpegPath == "" {
		opts.FFmpegPath = "ffmpeg"
	}
	if opts.Preset == "" {
		opts.Preset = "fast"
	}
	if opts.CRF == 0 {
		opts.CRF = 23
	}
	if opts.AudioBitrate == "" {
		opts.AudioBitrate = "128k"
	}
	if opts.Timeout == 0 {
		opts.Timeout = 2 * time.Minute
	}
	return &Engine{
		opts:   opts,
		logger: logger.With(zap.String("component", "transcode-engine")),
		run:    execRunner{logger: logger},
	}
}

// Initialize prepares the working directory and verifies the encoder binary.
// Idempotent: concurrent callers observe a single initialization in flight
// and all receive its outcome.
func (e *Engine) Initialize(ctx context.Context) error {
	e.initOnce.Do(func() {
		if err := os.MkdirAll(e.opts.WorkDir, 0o755); err != nil {
			e.initErr = fmt.Errorf("create work dir: %w", err)
			return
		}
		if _, err := e.run.Run(ctx, e.opts.FFmpegPath, "-version"); err != nil {
			e.initErr = fmt.Errorf("probe encoder binary: %w", err)
			return
		}
		e.logger.Info("transcode engine ready", zap.String("work_dir", e.opts.WorkDir))
	})
	if e.initErr != nil {
		return fmt.Errorf("%w: %v", ErrEngineInit, e.initErr)
	}
	return nil
}

// Submit runs one trim+scale+re-encode job to completion. The returned error
// is non-nil exactly when the job finished Failed; the job always reaches a
// terminal state. Working files are removed on every path.
func (e *Engine) Submit(ctx context.Context, job *Job) error {
	if err := e.Initialize(ctx); err != nil {
		job.fail(err.Error())
		return err
	}

	// The engine operates on fixed filenames, so only one job may touch the
	// working directory at a time.
	e.mu.Lock()
	defer e.mu.Unlock()

	job.Status = JobRunning

	inputPath := filepath.Join(e.opts.WorkDir, "input.mp4")
	outputPath := filepath.Join(e.opts.WorkDir, "output.mp4")
	defer func() {
		if err := os.Remove(inputPath); err != nil && !os.IsNotExist(err) {
			e.logger.Warn("remove input", zap.Error(err))
		}
		if err := os.Remove(outputPath); err != nil && !os.IsNotExist(err) {
			e.logger.Warn("remove output", zap.Error(err))
		}
	}()

	if err := os.WriteFile(inputPath, job.Input.Data, 0o644); err != nil {
		job.fail(fmt.Sprintf("write input: %v", err))
		return fmt.Errorf("%w: write input: %v", ErrTranscodeFailed, err)
	}

	runCtx, cancel := context.WithTimeout(ctx, e.opts.Timeout)
	defer cancel()

	args := e.encodeArgs(inputPath, outputPath, job)
	e.logger.Info("encoding",
		zap.String("job_id", job.ID),
		zap.Duration("target_duration", job.TargetDuration),
		zap.Int("target_width", job.TargetWidth),
		zap.Int("target_height", job.TargetHeight),
	)

	stderr, err := e.run.Run(runCtx, e.opts.FFmpegPath, args...)
	if err != nil {
		msg := fmt.Sprintf("encoder exited abnormally: %v: %s", err, tail(stderr, 400))
		job.fail(msg)
		return fmt.Errorf("%w: %s", ErrTranscodeFailed, msg)
	}

	output, err := os.ReadFile(outputPath)
	if err != nil {
		job.fail(fmt.Sprintf("read output: %v", err))
		return fmt.Errorf("%w: read output: %v", ErrTranscodeFailed, err)
	}
	if len(output) == 0 {
		job.fail("encoder produced an empty output file")
		return fmt.Errorf("%w: empty output", ErrTranscodeFailed)
	}

	job.succeed(media.NewAsset(output, "video/mp4"))
	e.logger.Info("encoding complete",
		zap.String("job_id", job.ID),
		zap.Int("output_bytes", len(output)),
	)
	return nil
}

// encodeArgs builds the trim + aspect-preserving scale + pad + re-encode
// argument list.
func (e *Engine) encodeArgs(inputPath, outputPath string, job *Job) []string {
	vf := fmt.Sprintf(
		"scale=%d:%d:force_original_aspect_ratio=decrease,pad=%d:%d:(ow-iw)/2:(oh-ih)/2",
		job.TargetWidth, job.TargetHeight, job.TargetWidth, job.TargetHeight,
	)
	return []string{
		"-i", inputPath,
		"-t", strconv.FormatFloat(job.TargetDuration.Seconds(), 'f', -1, 64),
		"-vf", vf,
		"-c:v", "libx264",
		"-preset", e.opts.Preset,
		"-crf", strconv.Itoa(e.opts.CRF),
		"-c:a", "aac",
		"-b:a", e.opts.AudioBitrate,
		"-y",
		outputPath,
	}
}

func tail(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[len(b)-n:])
}
