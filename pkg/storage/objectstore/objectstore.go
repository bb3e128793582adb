package objectstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// Config contains the information required to talk to an object store.
type Config struct {
	Provider       string
	Endpoint       string
	PublicEndpoint string
	Region         string
	Bucket         string
	AccessKey      string
	SecretKey      string
	UseSSL         bool
}

// Client represents the capabilities the upload coordinator expects. The
// bucket is provisioned with public read, so retrievable references are plain
// URLs rather than presigned ones.
type Client interface {
	Put(ctx context.Context, key string, reader io.Reader, size int64, contentType string, metadata map[string]string) error
	PublicURL(key string) string
	Health(ctx context.Context) error
	Close() error
}

// New creates an object store client based on the given configuration.
func New(cfg Config) (Client, error) {
	switch cfg.Provider {
	case "minio", "s3":
		return newMinioClient(cfg)
	default:
		return nil, fmt.Errorf("unsupported object store provider: %s", cfg.Provider)
	}
}

type minioClient struct {
	client    *minio.Client
	bucket    string
	publicURL string
}

func newMinioClient(cfg Config) (Client, error) {
	cl, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("init minio client: %w", err)
	}

	return &minioClient{
		client:    cl,
		bucket:    cfg.Bucket,
		publicURL: publicBase(cfg),
	}, nil
}

func publicBase(cfg Config) string {
	if cfg.PublicEndpoint != "" {
		return strings.TrimSuffix(cfg.PublicEndpoint, "/")
	}
	scheme := "http"
	if cfg.UseSSL {
		scheme = "https"
	}
	return fmt.Sprintf("%s://%s", scheme, cfg.Endpoint)
}

func (m *minioClient) Put(ctx context.Context, key string, reader io.Reader, size int64, contentType string, metadata map[string]string) error {
	opts := minio.PutObjectOptions{
		ContentType:  contentType,
		UserMetadata: metadata,
	}
	_, err := m.client.PutObject(ctx, m.bucket, key, reader, size, opts)
	return err
}

// PublicURL resolves the retrievable reference for a stored object.
func (m *minioClient) PublicURL(key string) string {
	return fmt.Sprintf("%s/%s/%s", m.publicURL, m.bucket, escapeKey(key))
}

func escapeKey(key string) string {
	parts := strings.Split(key, "/")
	for i, p := range parts {
		parts[i] = url.PathEscape(p)
	}
	return strings.Join(parts, "/")
}

// Health verifies the bucket is reachable.
func (m *minioClient) Health(ctx context.Context) error {
	ok, err := m.client.BucketExists(ctx, m.bucket)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("bucket %q does not exist", m.bucket)
	}
	return nil
}

func (m *minioClient) Close() error {
	return nil
}

// IsRejected reports whether the store itself refused the object (policy,
// size, MIME allow-list) as opposed to being unreachable.
func IsRejected(err error) bool {
	var resp minio.ErrorResponse
	if errors.As(err, &resp) {
		return resp.StatusCode >= 400 && resp.StatusCode < 500
	}
	return false
}
