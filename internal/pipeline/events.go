package pipeline

import "time"

// Stage names carried in pipeline events.
const (
	StageProductCreated  = "product.created"
	StageVideoValidated  = "video.validated"
	StageVideoTranscoded = "video.transcoded"
	StageVideoUploaded   = "video.uploaded"
	StageVideoAttached   = "product.video_attached"
	StageVideoFailed     = "video.failed"
)

// StageEvent is emitted as a product submission moves through the pipeline.
type StageEvent struct {
	ProductID       string    `json:"product_id"`
	Stage           string    `json:"stage"`
	ObjectKey       string    `json:"object_key,omitempty"`
	PublicURL       string    `json:"public_url,omitempty"`
	SizeBytes       int64     `json:"size_bytes,omitempty"`
	DurationSeconds float64   `json:"duration_seconds,omitempty"`
	Error           string    `json:"error,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
}
