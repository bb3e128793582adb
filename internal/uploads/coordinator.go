package uploads

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/your-org/marketvid/internal/media"
	"github.com/your-org/marketvid/pkg/storage/objectstore"
)

var (
	// ErrUploadRejected is returned when the store refused the object.
	ErrUploadRejected = errors.New("upload rejected by storage")

	// ErrStorageUnavailable is returned when the store cannot be reached,
	// including while offline.
	ErrStorageUnavailable = errors.New("storage unavailable")
)

// RecordStatus is the upload lifecycle state.
type RecordStatus string

const (
	RecordPending  RecordStatus = "pending"
	RecordUploaded RecordStatus = "uploaded"
	RecordFailed   RecordStatus = "failed"
)

// Record describes one placement of an asset into object storage. PublicURL
// is set only once the record is Uploaded; a Record is immutable after that.
type Record struct {
	StorageKey  string
	PublicURL   string
	Status      RecordStatus
	OwnerKey    string
	SizeBytes   int64
	ContentType string
	UploadedAt  time.Time
}

// Options adjust a single upload.
type Options struct {
	// Upsert reuses the owner's stable key, replacing any prior video.
	// Default behavior never overwrites a previous successful upload.
	Upsert bool
}

// Coordinator persists compressed assets under deterministic keys and
// resolves their public references. It never touches the owning catalog row,
// so a failed upload cannot corrupt an already-created product.
type Coordinator struct {
	store  objectstore.Client
	logger *zap.Logger
	now    func() time.Time

	mu        sync.Mutex
	lastStamp int64
}

func NewCoordinator(store objectstore.Client, logger *zap.Logger) *Coordinator {
	return &Coordinator{
		store:  store,
		logger: logger.With(zap.String("component", "upload-coordinator")),
		now:    time.Now,
	}
}

// Upload stores the asset for the given owner and returns an Uploaded record
// with its public URL. The key embeds a monotonic timestamp so repeated
// uploads for one owner land under distinct keys unless Upsert is requested.
func (c *Coordinator) Upload(ctx context.Context, asset *media.Asset, ownerKey string, opts Options) (*Record, error) {
	rec := &Record{
		StorageKey:  c.keyFor(ownerKey, opts),
		Status:      RecordPending,
		OwnerKey:    ownerKey,
		SizeBytes:   asset.SizeBytes(),
		ContentType: asset.MimeType,
	}

	err := c.store.Put(ctx, rec.StorageKey, bytes.NewReader(asset.Data), asset.SizeBytes(), asset.MimeType, map[string]string{
		"owner_key": ownerKey,
	})
	if err != nil {
		rec.Status = RecordFailed
		c.logger.Error("upload failed",
			zap.String("storage_key", rec.StorageKey),
			zap.Error(err),
		)
		if objectstore.IsRejected(err) {
			return rec, fmt.Errorf("%w: %v", ErrUploadRejected, err)
		}
		return rec, fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}

	rec.Status = RecordUploaded
	rec.PublicURL = c.store.PublicURL(rec.StorageKey)
	rec.UploadedAt = c.now().UTC()

	c.logger.Info("upload complete",
		zap.String("storage_key", rec.StorageKey),
		zap.Int64("size_bytes", rec.SizeBytes),
	)
	return rec, nil
}

func (c *Coordinator) keyFor(ownerKey string, opts Options) string {
	if opts.Upsert {
		return fmt.Sprintf("products/%s/video.mp4", ownerKey)
	}
	return fmt.Sprintf("products/%s/video-%d.mp4", ownerKey, c.nextStamp())
}

// nextStamp returns a strictly increasing millisecond stamp. Two uploads
// inside the same millisecond would otherwise share a key and the second
// would overwrite the first.
func (c *Coordinator) nextStamp() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	stamp := c.now().UnixMilli()
	if stamp <= c.lastStamp {
		stamp = c.lastStamp + 1
	}
	c.lastStamp = stamp
	return stamp
}
