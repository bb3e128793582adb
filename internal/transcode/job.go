package transcode

import (
	"time"

	"github.com/google/uuid"

	"github.com/your-org/marketvid/internal/media"
)

// JobStatus is the compression job lifecycle state.
type JobStatus string

const (
	JobPending   JobStatus = "pending"
	JobRunning   JobStatus = "running"
	JobSucceeded JobStatus = "succeeded"
	JobFailed    JobStatus = "failed"
)

// Job is one transcoding attempt. The input asset is borrowed read-only; the
// output asset is present only after success. A terminal state is entered at
// most once and never left.
type Job struct {
	ID             string
	Input          *media.Asset
	TargetDuration time.Duration
	TargetWidth    int
	TargetHeight   int

	Status       JobStatus
	Output       *media.Asset
	ErrorMessage string
}

// NewJob creates a pending job for the given input and targets.
func NewJob(input *media.Asset, targetDuration time.Duration, width, height int) *Job {
	return &Job{
		ID:             uuid.NewString(),
		Input:          input,
		TargetDuration: targetDuration,
		TargetWidth:    width,
		TargetHeight:   height,
		Status:         JobPending,
	}
}

// Terminal reports whether the job has reached a final state.
func (j *Job) Terminal() bool {
	return j.Status == JobSucceeded || j.Status == JobFailed
}

func (j *Job) succeed(output *media.Asset) {
	if j.Terminal() {
		return
	}
	j.Status = JobSucceeded
	j.Output = output
}

func (j *Job) fail(msg string) {
	if j.Terminal() {
		return
	}
	j.Status = JobFailed
	j.ErrorMessage = msg
}
