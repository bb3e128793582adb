package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "marketvid-pipeline", cfg.App.Name)
	assert.Equal(t, ":8080", cfg.HTTP.Addr)
	assert.Equal(t, []string{"localhost:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, "product-videos", cfg.Storage.Bucket)
	assert.Equal(t, 15*time.Second, cfg.Media.MaxDuration)
	assert.Equal(t, int64(52428800), cfg.Media.MaxSizeBytes)
	assert.Equal(t, 640, cfg.Transcode.TargetWidth)
	assert.Equal(t, 360, cfg.Transcode.TargetHeight)
	assert.Equal(t, 23, cfg.Transcode.CRF)
	assert.Equal(t, "fast", cfg.Transcode.Preset)
	assert.Equal(t, uint(3), cfg.Gate.MaxRetries)
	assert.Equal(t, time.Second, cfg.Gate.BaseDelay)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("KAFKA_BROKERS", "k1:9092,k2:9092")
	t.Setenv("MEDIA_MAX_DURATION", "30s")
	t.Setenv("SCHEMA_GATE_MAX_RETRIES", "5")
	t.Setenv("STORAGE_PUBLIC_ENDPOINT", "https://cdn.example.com")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, 30*time.Second, cfg.Media.MaxDuration)
	assert.Equal(t, uint(5), cfg.Gate.MaxRetries)
	assert.Equal(t, "https://cdn.example.com", cfg.Storage.PublicEndpoint)
}
