package main

import (
	"context"
	"log"
	"net/http"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/your-org/marketvid/internal/catalog"
	"github.com/your-org/marketvid/internal/mediacheck"
	"github.com/your-org/marketvid/internal/pipeline"
	"github.com/your-org/marketvid/internal/stagecache"
	"github.com/your-org/marketvid/internal/transcode"
	"github.com/your-org/marketvid/internal/uploads"
	"github.com/your-org/marketvid/pkg/config"
	"github.com/your-org/marketvid/pkg/database"
	"github.com/your-org/marketvid/pkg/kafka"
	"github.com/your-org/marketvid/pkg/logger"
	"github.com/your-org/marketvid/pkg/storage/objectstore"
	"github.com/your-org/marketvid/pkg/tracing"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logr, err := logger.New(cfg.App.LogLevel)
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	traceShutdown, err := tracing.Init(ctx, tracing.Config{
		Endpoint:    cfg.Tracing.Endpoint,
		Insecure:    cfg.Tracing.Insecure,
		SampleRatio: cfg.Tracing.SampleRatio,
		Attributes:  parseResourceAttributes(cfg.Tracing.ResourceAttr),
		ServiceName: cfg.App.Name,
	})
	if err != nil {
		logr.Fatal("init tracing", zap.Error(err))
	}
	defer traceShutdown(context.Background()) //nolint:errcheck

	producer := kafka.NewProducer(kafka.ProducerConfig{
		Brokers:      cfg.Kafka.Brokers,
		Topic:        cfg.Kafka.PipelineTopic,
		BatchSize:    cfg.Kafka.BatchSize,
		BatchTimeout: cfg.Kafka.BatchTimeout,
		Compression:  kafka.CompressionFromString(cfg.Kafka.CompressionCodec),
		RequiredAcks: kafkago.RequireAll,
		MaxAttempts:  cfg.Kafka.Retries,
		Async:        cfg.Kafka.Async,
	})

	store, err := objectstore.New(objectstore.Config{
		Provider:       cfg.Storage.Provider,
		Endpoint:       cfg.Storage.Endpoint,
		PublicEndpoint: cfg.Storage.PublicEndpoint,
		Region:         cfg.Storage.Region,
		Bucket:         cfg.Storage.Bucket,
		AccessKey:      cfg.Storage.AccessKey,
		SecretKey:      cfg.Storage.SecretKey,
		UseSSL:         cfg.Storage.UseSSL,
	})
	if err != nil {
		logr.Fatal("init object store", zap.Error(err))
	}

	db, err := database.Connect(database.Config{
		DSN:             cfg.Database.DSN,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
	})
	if err != nil {
		logr.Fatal("connect database", zap.Error(err))
	}
	if err := catalog.AutoMigrate(ctx, db); err != nil {
		logr.Fatal("migrate catalog", zap.Error(err))
	}

	caches, err := stagecache.NewManager(cfg.Cache.BaseDir, logr)
	if err != nil {
		logr.Fatal("init stage caches", zap.Error(err))
	}
	probeDir, err := caches.Dir("probe-staging")
	if err != nil {
		logr.Fatal("init probe cache", zap.Error(err))
	}
	workDir, err := caches.Dir("transcode-work")
	if err != nil {
		logr.Fatal("init transcode cache", zap.Error(err))
	}

	prober := mediacheck.NewFFprobe(cfg.Transcode.FFprobePath, probeDir, logr)
	validator := mediacheck.NewValidator(prober, logr)

	engine := transcode.NewEngine(transcode.Options{
		FFmpegPath:   cfg.Transcode.FFmpegPath,
		WorkDir:      workDir,
		Preset:       cfg.Transcode.Preset,
		CRF:          cfg.Transcode.CRF,
		AudioBitrate: cfg.Transcode.AudioBitrate,
		Timeout:      cfg.Transcode.Timeout,
	}, logr)

	repo := catalog.NewRepository(db)
	gate := catalog.NewGate(db, cfg.Gate.MaxRetries, cfg.Gate.BaseDelay, logr)
	coordinator := uploads.NewCoordinator(store, logr)

	service := pipeline.NewService(pipeline.Params{
		Repo:      repo,
		Validator: validator,
		Engine:    engine,
		Uploader:  coordinator,
		Gate:      gate,
		Producer:  producer,
		Limits: pipeline.Limits{
			MaxDuration:  cfg.Media.MaxDuration,
			MaxSizeBytes: cfg.Media.MaxSizeBytes,
			TargetWidth:  cfg.Transcode.TargetWidth,
			TargetHeight: cfg.Transcode.TargetHeight,
		},
		Logger: logr,
	})

	handler := pipeline.NewHTTPHandler(service, caches, logr, cfg.Media.MaxSizeBytes, cfg.Media.MultipartMem)

	server := &http.Server{
		Addr:         cfg.HTTP.Addr,
		Handler:      handler.Router(),
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logr.Error("http server shutdown failed", zap.Error(err))
		}
		if err := producer.Close(shutdownCtx); err != nil {
			logr.Error("producer shutdown failed", zap.Error(err))
		}
		if err := store.Close(); err != nil {
			logr.Error("object store shutdown failed", zap.Error(err))
		}
	}()

	logr.Info("pipeline service starting", zap.String("addr", cfg.HTTP.Addr))
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logr.Fatal("http server failed", zap.Error(err))
	}
}

func parseResourceAttributes(raw string) map[string]string {
	if raw == "" {
		return map[string]string{}
	}
	attrs := map[string]string{}
	for _, pair := range strings.Split(raw, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" || !strings.Contains(pair, "=") {
			continue
		}
		parts := strings.SplitN(pair, "=", 2)
		attrs[strings.TrimSpace(parts[0])] = strings.TrimSpace(parts[1])
	}
	return attrs
}
