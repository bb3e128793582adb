package uploads

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/your-org/marketvid/internal/media"
)

type putCall struct {
	key         string
	size        int64
	contentType string
	metadata    map[string]string
}

type fakeStore struct {
	puts []putCall
	err  error
}

func (s *fakeStore) Put(ctx context.Context, key string, reader io.Reader, size int64, contentType string, metadata map[string]string) error {
	s.puts = append(s.puts, putCall{key: key, size: size, contentType: contentType, metadata: metadata})
	return s.err
}

func (s *fakeStore) PublicURL(key string) string {
	return "http://store.local/product-videos/" + key
}

func (s *fakeStore) Health(ctx context.Context) error { return nil }
func (s *fakeStore) Close() error                     { return nil }

func newTestCoordinator(store *fakeStore) *Coordinator {
	c := NewCoordinator(store, zap.NewNop())
	t := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	c.now = func() time.Time {
		t = t.Add(time.Millisecond)
		return t
	}
	return c
}

func TestUploadSuccess(t *testing.T) {
	store := &fakeStore{}
	c := newTestCoordinator(store)

	asset := media.NewAsset([]byte("encoded"), "video/mp4")
	rec, err := c.Upload(context.Background(), asset, "owner-1", Options{})

	require.NoError(t, err)
	assert.Equal(t, RecordUploaded, rec.Status)
	assert.Equal(t, "owner-1", rec.OwnerKey)
	assert.Equal(t, int64(len("encoded")), rec.SizeBytes)
	assert.Equal(t, "video/mp4", rec.ContentType)
	assert.Equal(t, "http://store.local/product-videos/"+rec.StorageKey, rec.PublicURL)
	assert.False(t, rec.UploadedAt.IsZero())

	require.Len(t, store.puts, 1)
	assert.Regexp(t, `^products/owner-1/video-\d+\.mp4$`, store.puts[0].key)
	assert.Equal(t, "video/mp4", store.puts[0].contentType)
	assert.Equal(t, "owner-1", store.puts[0].metadata["owner_key"])
}

func TestUploadKeysAreDistinctPerUpload(t *testing.T) {
	store := &fakeStore{}
	c := newTestCoordinator(store)

	asset := media.NewAsset([]byte("encoded"), "video/mp4")
	first, err := c.Upload(context.Background(), asset, "owner-1", Options{})
	require.NoError(t, err)
	second, err := c.Upload(context.Background(), asset, "owner-1", Options{})
	require.NoError(t, err)

	assert.NotEqual(t, first.StorageKey, second.StorageKey)
}

func TestUploadKeysDistinctWithinOneMillisecond(t *testing.T) {
	store := &fakeStore{}
	c := NewCoordinator(store, zap.NewNop())
	frozen := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return frozen }

	asset := media.NewAsset([]byte("encoded"), "video/mp4")
	first, err := c.Upload(context.Background(), asset, "owner-1", Options{})
	require.NoError(t, err)
	second, err := c.Upload(context.Background(), asset, "owner-1", Options{})
	require.NoError(t, err)

	assert.NotEqual(t, first.StorageKey, second.StorageKey,
		"two uploads in the same millisecond must not share a key")
}

func TestUploadKeysDistinctWithRealClock(t *testing.T) {
	store := &fakeStore{}
	c := NewCoordinator(store, zap.NewNop())

	asset := media.NewAsset([]byte("encoded"), "video/mp4")
	seen := map[string]bool{}
	for i := 0; i < 10; i++ {
		rec, err := c.Upload(context.Background(), asset, "owner-1", Options{})
		require.NoError(t, err)
		assert.False(t, seen[rec.StorageKey], "key %q issued twice", rec.StorageKey)
		seen[rec.StorageKey] = true
	}
}

func TestUploadUpsertReusesStableKey(t *testing.T) {
	store := &fakeStore{}
	c := newTestCoordinator(store)

	asset := media.NewAsset([]byte("encoded"), "video/mp4")
	first, err := c.Upload(context.Background(), asset, "owner-1", Options{Upsert: true})
	require.NoError(t, err)
	second, err := c.Upload(context.Background(), asset, "owner-1", Options{Upsert: true})
	require.NoError(t, err)

	assert.Equal(t, "products/owner-1/video.mp4", first.StorageKey)
	assert.Equal(t, first.StorageKey, second.StorageKey)
}

func TestUploadRejectedByStore(t *testing.T) {
	store := &fakeStore{err: minio.ErrorResponse{StatusCode: 400, Code: "EntityTooLarge"}}
	c := newTestCoordinator(store)

	asset := media.NewAsset([]byte("encoded"), "video/mp4")
	rec, err := c.Upload(context.Background(), asset, "owner-1", Options{})

	require.ErrorIs(t, err, ErrUploadRejected)
	assert.Equal(t, RecordFailed, rec.Status)
	assert.Empty(t, rec.PublicURL, "a failed record must not carry a public URL")
}

func TestUploadStorageUnavailable(t *testing.T) {
	store := &fakeStore{err: errors.New("dial tcp: connection refused")}
	c := newTestCoordinator(store)

	asset := media.NewAsset([]byte("encoded"), "video/mp4")
	rec, err := c.Upload(context.Background(), asset, "owner-1", Options{})

	require.ErrorIs(t, err, ErrStorageUnavailable)
	assert.NotErrorIs(t, err, ErrUploadRejected)
	assert.Equal(t, RecordFailed, rec.Status)
}
