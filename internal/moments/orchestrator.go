package moments

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/your-org/moments/pkg/poapapi"
)

const tracerName = "github.com/your-org/moments/internal/moments"

// MomentCreator performs the final remote creation call.
type MomentCreator interface {
	CreateMoment(ctx context.Context, input poapapi.CreateMomentInput) (poapapi.Moment, error)
}

// Orchestrator drives media uploads and moment creation, reporting phases
// to the request's StepReporter.
type Orchestrator struct {
	uploader MediaUploader
	creator  MomentCreator
	logger   *zap.Logger
	tracer   trace.Tracer
}

type Params struct {
	Uploader MediaUploader
	Creator  MomentCreator
	Logger   *zap.Logger
	// Tracer defaults to the global provider.
	Tracer trace.Tracer
}

// NewOrchestrator constructs an Orchestrator.
func NewOrchestrator(p Params) *Orchestrator {
	logger := p.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	tracer := p.Tracer
	if tracer == nil {
		tracer = otel.Tracer(tracerName)
	}
	return &Orchestrator{
		uploader: p.Uploader,
		creator:  p.Creator,
		logger:   logger,
		tracer:   tracer,
	}
}

// CreateMoment uploads every media item concurrently, then creates the moment
// with the resulting keys in input order. The first failing upload aborts the
// run; uploads that already succeeded are not removed.
func (o *Orchestrator) CreateMoment(ctx context.Context, req CreateMomentRequest) (*Moment, error) {
	ctx, span := o.tracer.Start(ctx, "moments.CreateMoment", trace.WithAttributes(
		attribute.Int64("moment.drop_id", req.DropID),
		attribute.Int("moment.media_count", len(req.Media)),
	))
	defer span.End()

	run := newProgress(req.OnStep)
	log := o.logger.With(zap.Int64("drop_id", req.DropID), zap.Int("media_count", len(req.Media)))

	moment, err := o.create(ctx, req, run, log)
	if err != nil {
		log.Error("create moment failed", zap.Stringer("state", run.current), zap.Error(err))
		run.fail()
		recordError(span, err)
		return nil, err
	}

	span.SetAttributes(attribute.String("moment.id", moment.ID))
	return moment, nil
}

func (o *Orchestrator) create(ctx context.Context, req CreateMomentRequest, run *progress, log *zap.Logger) (*Moment, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	o.advance(run, StepUploadingMedia, log)
	keys, err := o.uploadAll(ctx, req)
	if err != nil {
		return nil, err
	}
	o.advance(run, StepProcessingMedia, log)

	o.advance(run, StepUploadingMoment, log)
	record, err := o.creator.CreateMoment(ctx, poapapi.CreateMomentInput{
		DropID:      req.DropID,
		TokenID:     req.TokenID,
		Author:      req.Author,
		Description: req.Description,
		MediaKeys:   keys,
	})
	if err != nil {
		return nil, &RemoteCreationError{MediaKeys: keys, Err: err}
	}

	moment := fromRecord(record, keys)
	o.advance(run, StepFinished, log)
	log.Info("moment created", zap.String("moment_id", moment.ID))
	return moment, nil
}

func (o *Orchestrator) advance(run *progress, step Step, log *zap.Logger) {
	log.Debug("moment step", zap.Stringer("step", step))
	run.advance(step)
}

type uploadResult struct {
	index int
	key   string
	err   error
}

// uploadAll fans out one goroutine per media item and joins on the first
// failure. The channel holds every result so late goroutines never block.
func (o *Orchestrator) uploadAll(ctx context.Context, req CreateMomentRequest) ([]string, error) {
	keys := make([]string, len(req.Media))
	if len(req.Media) == 0 {
		return keys, nil
	}

	results := make(chan uploadResult, len(req.Media))
	for i, m := range req.Media {
		i, m := i, m
		go func() {
			key, err := o.uploadOne(ctx, i, m, req.OnUploadProgress)
			results <- uploadResult{index: i, key: key, err: err}
		}()
	}

	for range req.Media {
		res := <-results
		if res.err != nil {
			return nil, res.err
		}
		keys[res.index] = res.key
	}
	return keys, nil
}

func (o *Orchestrator) uploadOne(ctx context.Context, index int, m Media, onProgress func(int, float64)) (string, error) {
	ctx, span := o.tracer.Start(ctx, "moments.UploadMedia", trace.WithAttributes(
		attribute.Int("media.index", index),
		attribute.String("media.mime_type", m.MimeType),
		attribute.Int("media.size_bytes", len(m.Payload)),
	))
	defer span.End()

	ticket, err := o.uploader.RequestTicket(ctx, m.MimeType)
	if err != nil {
		err = &TicketError{Index: index, MimeType: m.MimeType, Err: err}
		recordError(span, err)
		return "", err
	}
	span.SetAttributes(attribute.String("media.key", ticket.Key))

	report := func(fraction float64) {
		if onProgress != nil {
			onProgress(index, fraction)
		}
	}
	if err := o.uploader.Upload(ctx, m.Payload, ticket.URL, m.MimeType, report); err != nil {
		err = &UploadError{Index: index, MimeType: m.MimeType, Err: err}
		recordError(span, err)
		return "", err
	}

	o.logger.Debug("media uploaded", zap.Int("index", index), zap.String("key", ticket.Key))
	return ticket.Key, nil
}

func fromRecord(record poapapi.Moment, sent []string) *Moment {
	keys := record.MediaKeys
	if len(keys) == 0 {
		keys = sent
	}
	return &Moment{
		ID:        record.ID,
		Author:    record.Author,
		CreatedOn: record.CreatedOn,
		DropID:    record.DropID,
		TokenID:   record.TokenID,
		MediaKeys: keys,
	}
}

func recordError(span trace.Span, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}
