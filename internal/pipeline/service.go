package pipeline

import (
	"context"
	"encoding/json"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/your-org/marketvid/internal/catalog"
	"github.com/your-org/marketvid/internal/media"
	"github.com/your-org/marketvid/internal/transcode"
	"github.com/your-org/marketvid/internal/uploads"
)

// videoURLColumn is the products column every gated video write depends on.
const videoURLColumn = "video_url"

// Validator rejects assets that exceed the configured limits.
type Validator interface {
	Validate(ctx context.Context, asset *media.Asset, maxDuration time.Duration, maxSizeBytes int64) error
}

// Engine runs one compression job to a terminal state.
type Engine interface {
	Submit(ctx context.Context, job *transcode.Job) error
}

// Uploader persists a compressed asset and resolves its public reference.
type Uploader interface {
	Upload(ctx context.Context, asset *media.Asset, ownerKey string, opts uploads.Options) (*uploads.Record, error)
}

// SchemaGate confirms a column is queryable before a write referencing it.
type SchemaGate interface {
	EnsureReady(ctx context.Context, column string) error
}

// EventPublisher emits stage events. The Kafka producer satisfies this.
type EventPublisher interface {
	Publish(ctx context.Context, key []byte, value []byte, headers map[string]string) error
}

// Limits bound what the pipeline accepts and produces.
type Limits struct {
	MaxDuration  time.Duration
	MaxSizeBytes int64
	TargetWidth  int
	TargetHeight int
}

// Service drives one product submission through the sequential pipeline:
// validate, compress, upload, gated attach. Each flow owns its own assets and
// job; only the transcode engine is shared, and it serializes internally.
type Service struct {
	repo      *catalog.Repository
	validator Validator
	engine    Engine
	uploader  Uploader
	gate      SchemaGate
	producer  EventPublisher
	limits    Limits
	logger    *zap.Logger
	tracer    trace.Tracer
}

type Params struct {
	Repo      *catalog.Repository
	Validator Validator
	Engine    Engine
	Uploader  Uploader
	Gate      SchemaGate
	Producer  EventPublisher
	Limits    Limits
	Logger    *zap.Logger
}

// NewService constructs the pipeline Service.
func NewService(p Params) *Service {
	return &Service{
		repo:      p.Repo,
		validator: p.Validator,
		engine:    p.Engine,
		uploader:  p.Uploader,
		gate:      p.Gate,
		producer:  p.Producer,
		limits:    p.Limits,
		logger:    p.Logger.With(zap.String("component", "pipeline")),
		tracer:    otel.Tracer("marketvid/pipeline"),
	}
}

// VideoOutcome reports what happened to the optional video of a submission.
// A failed video never fails the submission itself.
type VideoOutcome struct {
	Attached bool
	VideoURL string
	Err      error
}

// CreateProduct creates the listing and, when a video is supplied, runs it
// through the pipeline and attaches the resulting URL. The row is created
// first so a slow or failed upload never blocks the product's visibility;
// validation, however, runs up front so the user can fix bad input before
// anything is persisted.
func (s *Service) CreateProduct(ctx context.Context, draft catalog.Product, video *media.Asset) (*catalog.Product, *VideoOutcome, error) {
	ctx, span := s.tracer.Start(ctx, "pipeline.create_product")
	defer span.End()

	if video != nil {
		if err := s.validator.Validate(ctx, video, s.limits.MaxDuration, s.limits.MaxSizeBytes); err != nil {
			return nil, nil, err
		}
	}

	if err := s.repo.Create(ctx, &draft); err != nil {
		return nil, nil, err
	}
	span.SetAttributes(attribute.String("product.id", draft.ID))
	s.publish(ctx, draft.ID, StageEvent{Stage: StageProductCreated})
	s.logger.Info("product created", zap.String("product_id", draft.ID))

	if video == nil {
		return &draft, &VideoOutcome{}, nil
	}
	s.publish(ctx, draft.ID, StageEvent{
		Stage:           StageVideoValidated,
		SizeBytes:       video.SizeBytes(),
		DurationSeconds: video.DurationSeconds,
	})

	outcome := s.runVideo(ctx, draft.ID, video, false)
	if outcome.Attached {
		draft.VideoURL = &outcome.VideoURL
	}
	return &draft, outcome, nil
}

// AttachVideo runs the pipeline for an already-created product. Failure at
// any stage leaves the product row untouched.
func (s *Service) AttachVideo(ctx context.Context, productID string, video *media.Asset) (*VideoOutcome, error) {
	ctx, span := s.tracer.Start(ctx, "pipeline.attach_video",
		trace.WithAttributes(attribute.String("product.id", productID)))
	defer span.End()

	if _, err := s.repo.Get(ctx, productID); err != nil {
		return nil, err
	}

	if err := s.validator.Validate(ctx, video, s.limits.MaxDuration, s.limits.MaxSizeBytes); err != nil {
		return nil, err
	}
	s.publish(ctx, productID, StageEvent{
		Stage:           StageVideoValidated,
		SizeBytes:       video.SizeBytes(),
		DurationSeconds: video.DurationSeconds,
	})

	outcome := s.runVideo(ctx, productID, video, true)
	return outcome, nil
}

// runVideo compresses, uploads, and attaches one validated asset. The
// compression job reaches a terminal state before any upload begins.
func (s *Service) runVideo(ctx context.Context, productID string, video *media.Asset, upsert bool) *VideoOutcome {
	job := transcode.NewJob(video, s.limits.MaxDuration, s.limits.TargetWidth, s.limits.TargetHeight)
	if err := s.engine.Submit(ctx, job); err != nil {
		s.logger.Warn("transcode failed, product stays videoless",
			zap.String("product_id", productID),
			zap.String("job_id", job.ID),
			zap.String("reason", job.ErrorMessage),
		)
		s.publish(ctx, productID, StageEvent{Stage: StageVideoFailed, Error: job.ErrorMessage})
		return &VideoOutcome{Err: err}
	}
	s.publish(ctx, productID, StageEvent{
		Stage:     StageVideoTranscoded,
		SizeBytes: job.Output.SizeBytes(),
	})

	rec, err := s.uploader.Upload(ctx, job.Output, productID, uploads.Options{Upsert: upsert})
	if err != nil {
		s.publish(ctx, productID, StageEvent{Stage: StageVideoFailed, Error: err.Error()})
		return &VideoOutcome{Err: err}
	}
	s.publish(ctx, productID, StageEvent{
		Stage:     StageVideoUploaded,
		ObjectKey: rec.StorageKey,
		PublicURL: rec.PublicURL,
		SizeBytes: rec.SizeBytes,
	})

	if err := s.gate.EnsureReady(ctx, videoURLColumn); err != nil {
		s.publish(ctx, productID, StageEvent{Stage: StageVideoFailed, Error: err.Error()})
		return &VideoOutcome{Err: err}
	}

	if err := s.repo.AttachVideoURL(ctx, productID, rec.PublicURL); err != nil {
		s.publish(ctx, productID, StageEvent{Stage: StageVideoFailed, Error: err.Error()})
		return &VideoOutcome{Err: err}
	}

	s.publish(ctx, productID, StageEvent{Stage: StageVideoAttached, PublicURL: rec.PublicURL})
	s.logger.Info("video attached",
		zap.String("product_id", productID),
		zap.String("url", rec.PublicURL),
	)
	return &VideoOutcome{Attached: true, VideoURL: rec.PublicURL}
}

// Products returns the catalog newest first.
func (s *Service) Products(ctx context.Context) ([]catalog.Product, error) {
	return s.repo.List(ctx)
}

// Product returns one listing.
func (s *Service) Product(ctx context.Context, id string) (*catalog.Product, error) {
	return s.repo.Get(ctx, id)
}

// Categories returns all categories.
func (s *Service) Categories(ctx context.Context) ([]catalog.Category, error) {
	return s.repo.ListCategories(ctx)
}

// publish emits a stage event. Event delivery is best effort; a broker outage
// must not fail the user's submission.
func (s *Service) publish(ctx context.Context, productID string, event StageEvent) {
	if s.producer == nil {
		return
	}
	event.ProductID = productID
	event.CreatedAt = time.Now().UTC()

	payload, err := json.Marshal(event)
	if err != nil {
		s.logger.Error("marshal stage event", zap.Error(err))
		return
	}
	headers := map[string]string{
		"product_id": productID,
		"event_type": event.Stage,
	}
	if err := s.producer.Publish(ctx, []byte(productID), payload, headers); err != nil {
		s.logger.Warn("publish stage event",
			zap.String("stage", event.Stage),
			zap.Error(err),
		)
	}
}
