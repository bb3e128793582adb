package media

import "strings"

// Asset is a raw or compressed video held in memory while it moves through
// the pipeline. Each stage takes ownership of the asset it receives and hands
// a new one to the next stage; assets are never shared across stages.
type Asset struct {
	Data     []byte
	MimeType string

	// DurationSeconds is unknown until a probe has measured it.
	DurationSeconds float64
	DurationKnown   bool
}

// NewAsset wraps raw bytes with their declared content type.
func NewAsset(data []byte, mimeType string) *Asset {
	return &Asset{
		Data:     data,
		MimeType: mimeType,
	}
}

// SizeBytes reports the payload size.
func (a *Asset) SizeBytes() int64 {
	return int64(len(a.Data))
}

// SetDuration records a measured duration.
func (a *Asset) SetDuration(seconds float64) {
	a.DurationSeconds = seconds
	a.DurationKnown = true
}

// IsVideo reports whether the declared content type marks the asset as video.
// Only the declared type is consulted; the payload is not sniffed.
func IsVideo(contentType string) bool {
	return strings.HasPrefix(strings.ToLower(strings.TrimSpace(contentType)), "video/")
}
