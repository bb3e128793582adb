package objectstore

import (
	"errors"
	"testing"

	"github.com/minio/minio-go/v7"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRejectsUnknownProvider(t *testing.T) {
	_, err := New(Config{Provider: "carrier-pigeon"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "carrier-pigeon")
}

func TestPublicURL(t *testing.T) {
	cl, err := New(Config{
		Provider:  "minio",
		Endpoint:  "localhost:9000",
		Bucket:    "product-videos",
		AccessKey: "minio",
		SecretKey: "minio123",
	})
	require.NoError(t, err)

	assert.Equal(t,
		"http://localhost:9000/product-videos/products/owner-1/video.mp4",
		cl.PublicURL("products/owner-1/video.mp4"),
	)
}

func TestPublicURLUsesPublicEndpoint(t *testing.T) {
	cl, err := New(Config{
		Provider:       "minio",
		Endpoint:       "minio:9000",
		PublicEndpoint: "https://cdn.example.com/",
		Bucket:         "product-videos",
		AccessKey:      "minio",
		SecretKey:      "minio123",
	})
	require.NoError(t, err)

	assert.Equal(t,
		"https://cdn.example.com/product-videos/products/o/video.mp4",
		cl.PublicURL("products/o/video.mp4"),
	)
}

func TestPublicURLEscapesKeySegments(t *testing.T) {
	cl, err := New(Config{
		Provider:  "minio",
		Endpoint:  "localhost:9000",
		Bucket:    "product-videos",
		AccessKey: "minio",
		SecretKey: "minio123",
	})
	require.NoError(t, err)

	url := cl.PublicURL("products/owner 1/video.mp4")
	assert.Contains(t, url, "owner%201")
	assert.NotContains(t, url, "products%2F", "path separators must survive escaping")
}

func TestIsRejected(t *testing.T) {
	assert.True(t, IsRejected(minio.ErrorResponse{StatusCode: 400}))
	assert.True(t, IsRejected(minio.ErrorResponse{StatusCode: 413}))
	assert.False(t, IsRejected(minio.ErrorResponse{StatusCode: 503}))
	assert.False(t, IsRejected(errors.New("connection refused")))
	assert.False(t, IsRejected(nil))
}
