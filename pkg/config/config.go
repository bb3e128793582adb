package config

import (
	"time"

	"github.com/caarlos0/env/v11"
)

// Config captures the full runtime configuration for the marketvid service.
type Config struct {
	App       AppConfig
	HTTP      HTTPConfig
	Kafka     KafkaConfig
	Storage   StorageConfig
	Database  DatabaseConfig
	Tracing   TracingConfig
	Media     MediaConfig
	Transcode TranscodeConfig
	Gate      SchemaGateConfig
	Cache     CacheConfig
}

type AppConfig struct {
	Name        string `env:"APP_NAME" envDefault:"marketvid-pipeline"`
	Environment string `env:"APP_ENV" envDefault:"development"`
	Version     string `env:"APP_VERSION" envDefault:"0.1.0"`
	LogLevel    string `env:"APP_LOG_LEVEL" envDefault:"info"`
}

type HTTPConfig struct {
	Addr         string        `env:"HTTP_ADDR" envDefault:":8080"`
	ReadTimeout  time.Duration `env:"HTTP_READ_TIMEOUT" envDefault:"15s"`
	WriteTimeout time.Duration `env:"HTTP_WRITE_TIMEOUT" envDefault:"120s"`
	IdleTimeout  time.Duration `env:"HTTP_IDLE_TIMEOUT" envDefault:"120s"`
}

type KafkaConfig struct {
	Brokers          []string      `env:"KAFKA_BROKERS" envSeparator:"," envDefault:"localhost:9092"`
	PipelineTopic    string        `env:"KAFKA_PIPELINE_TOPIC" envDefault:"marketvid.pipeline"`
	Retries          int           `env:"KAFKA_RETRIES" envDefault:"3"`
	RetryBackoff     time.Duration `env:"KAFKA_RETRY_BACKOFF" envDefault:"500ms"`
	CompressionCodec string        `env:"KAFKA_COMPRESSION_CODEC" envDefault:"snappy"`
	BatchSize        int           `env:"KAFKA_BATCH_SIZE" envDefault:"100"`
	BatchTimeout     time.Duration `env:"KAFKA_BATCH_TIMEOUT" envDefault:"1s"`
	Async            bool          `env:"KAFKA_ASYNC" envDefault:"true"`
}

type StorageConfig struct {
	Provider       string `env:"STORAGE_PROVIDER" envDefault:"minio"`
	Endpoint       string `env:"STORAGE_ENDPOINT" envDefault:"localhost:9000"`
	PublicEndpoint string `env:"STORAGE_PUBLIC_ENDPOINT" envDefault:""`
	Region         string `env:"STORAGE_REGION" envDefault:"us-east-1"`
	Bucket         string `env:"STORAGE_BUCKET" envDefault:"product-videos"`
	AccessKey      string `env:"STORAGE_ACCESS_KEY" envDefault:"minioadmin"`
	SecretKey      string `env:"STORAGE_SECRET_KEY" envDefault:"minioadmin"`
	UseSSL         bool   `env:"STORAGE_USE_SSL" envDefault:"false"`
}

type DatabaseConfig struct {
	DSN             string        `env:"DATABASE_DSN" envDefault:"host=localhost user=postgres dbname=marketvid port=5432 sslmode=disable"`
	MaxIdleConns    int           `env:"DATABASE_MAX_IDLE_CONNS" envDefault:"5"`
	MaxOpenConns    int           `env:"DATABASE_MAX_OPEN_CONNS" envDefault:"15"`
	ConnMaxLifetime time.Duration `env:"DATABASE_CONN_MAX_LIFETIME" envDefault:"30m"`
}

type TracingConfig struct {
	Endpoint     string  `env:"OTEL_EXPORTER_OTLP_ENDPOINT" envDefault:""`
	Insecure     bool    `env:"OTEL_EXPORTER_OTLP_INSECURE" envDefault:"true"`
	SampleRatio  float64 `env:"OTEL_TRACES_SAMPLER_RATIO" envDefault:"1.0"`
	ResourceAttr string  `env:"OTEL_RESOURCE_ATTRIBUTES" envDefault:"service.namespace=marketvid"`
}

// MediaConfig bounds what the pipeline accepts before any transcoding work.
type MediaConfig struct {
	MaxDuration  time.Duration `env:"MEDIA_MAX_DURATION" envDefault:"15s"`
	MaxSizeBytes int64         `env:"MEDIA_MAX_SIZE_BYTES" envDefault:"52428800"`
	MultipartMem int64         `env:"MEDIA_MULTIPART_MEM_BYTES" envDefault:"33554432"`
}

type TranscodeConfig struct {
	FFmpegPath   string        `env:"TRANSCODE_FFMPEG_PATH" envDefault:"ffmpeg"`
	FFprobePath  string        `env:"TRANSCODE_FFPROBE_PATH" envDefault:"ffprobe"`
	TargetWidth  int           `env:"TRANSCODE_TARGET_WIDTH" envDefault:"640"`
	TargetHeight int           `env:"TRANSCODE_TARGET_HEIGHT" envDefault:"360"`
	CRF          int           `env:"TRANSCODE_CRF" envDefault:"23"`
	Preset       string        `env:"TRANSCODE_PRESET" envDefault:"fast"`
	AudioBitrate string        `env:"TRANSCODE_AUDIO_BITRATE" envDefault:"128k"`
	Timeout      time.Duration `env:"TRANSCODE_TIMEOUT" envDefault:"2m"`
}

// SchemaGateConfig controls retries against an eventually-consistent schema cache.
type SchemaGateConfig struct {
	MaxRetries uint          `env:"SCHEMA_GATE_MAX_RETRIES" envDefault:"3"`
	BaseDelay  time.Duration `env:"SCHEMA_GATE_BASE_DELAY" envDefault:"1s"`
}

type CacheConfig struct {
	BaseDir string `env:"CACHE_BASE_DIR" envDefault:"/var/lib/marketvid/caches"`
}

// Load parses environment variables into Config.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
