package gateway

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/your-org/moments/internal/moments"
	"github.com/your-org/moments/internal/poaps"
)

// Creator runs the moment creation workflow.
type Creator interface {
	CreateMoment(ctx context.Context, req moments.CreateMomentRequest) (*moments.Moment, error)
}

// PoapFetcher lists POAPs.
type PoapFetcher interface {
	Fetch(ctx context.Context, input poaps.FetchInput) (poaps.Page[poaps.POAP], error)
}

// Publisher delivers events to the moments topic.
type Publisher interface {
	PublishJSON(ctx context.Context, key, eventType string, event any) error
	Close() error
}

// Service wires the orchestrator, POAP lookups and event publishing.
type Service struct {
	creator        Creator
	poaps          PoapFetcher
	publisher      Publisher
	logger         *zap.Logger
	publishTimeout time.Duration
	inflight       sync.WaitGroup
}

// eventQueueSize covers every step plus the outcome of one run.
const eventQueueSize = 8

type Params struct {
	Creator Creator
	Poaps   PoapFetcher
	// Publisher is optional.
	Publisher      Publisher
	Logger         *zap.Logger
	PublishTimeout time.Duration
}

// NewService constructs a gateway Service.
func NewService(p Params) *Service {
	timeout := p.PublishTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	logger := p.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		creator:        p.Creator,
		poaps:          p.Poaps,
		publisher:      p.Publisher,
		logger:         logger,
		publishTimeout: timeout,
	}
}

// CreateMoment runs one creation and publishes its steps and outcome. Events
// are delivered in order by a background writer so a slow broker never holds
// up the run, and delivery failures are only logged.
func (s *Service) CreateMoment(ctx context.Context, req moments.CreateMomentRequest) (*moments.Moment, error) {
	runID := uuid.NewString()
	log := s.logger.With(zap.String("run_id", runID), zap.Int64("drop_id", req.DropID))

	events := s.startEvents(ctx, log, runID)
	defer events.close()

	req.OnStep = moments.MultiReporter{
		req.OnStep,
		moments.StepFunc(func(step moments.Step) {
			log.Info("moment step", zap.Stringer("step", step))
			events.send(EventMomentStep, StepEvent{
				RunID:  runID,
				DropID: req.DropID,
				Step:   step.String(),
				At:     time.Now().UTC(),
			})
		}),
	}
	if req.OnUploadProgress == nil {
		req.OnUploadProgress = func(index int, fraction float64) {
			log.Debug("media upload progress", zap.Int("index", index), zap.Float64("fraction", fraction))
		}
	}

	moment, err := s.creator.CreateMoment(ctx, req)
	if err != nil {
		events.send(EventMomentFailed, failedEvent(runID, req.DropID, err))
		return nil, err
	}

	events.send(EventMomentCreated, MomentCreatedEvent{
		RunID:     runID,
		MomentID:  moment.ID,
		Author:    moment.Author,
		DropID:    moment.DropID,
		TokenID:   moment.TokenID,
		MediaKeys: moment.MediaKeys,
		CreatedOn: moment.CreatedOn,
	})
	return moment, nil
}

// ListPoaps returns a page of POAPs.
func (s *Service) ListPoaps(ctx context.Context, input poaps.FetchInput) (poaps.Page[poaps.POAP], error) {
	return s.poaps.Fetch(ctx, input)
}

type queuedEvent struct {
	eventType string
	event     any
}

// runEvents is the ordered event stream of one run.
type runEvents struct {
	log   *zap.Logger
	queue chan queuedEvent
}

func (s *Service) startEvents(ctx context.Context, log *zap.Logger, runID string) *runEvents {
	ev := &runEvents{log: log}
	if s.publisher == nil {
		return ev
	}
	ev.queue = make(chan queuedEvent, eventQueueSize)

	// Publish even if the request context is cancelled mid-run.
	pctx := context.WithoutCancel(ctx)
	s.inflight.Add(1)
	go func() {
		defer s.inflight.Done()
		for e := range ev.queue {
			s.publish(pctx, log, runID, e.eventType, e.event)
		}
	}()
	return ev
}

func (e *runEvents) send(eventType string, event any) {
	if e.queue == nil {
		return
	}
	select {
	case e.queue <- queuedEvent{eventType: eventType, event: event}:
	default:
		e.log.Warn("event queue full, dropping event", zap.String("event_type", eventType))
	}
}

func (e *runEvents) close() {
	if e.queue != nil {
		close(e.queue)
	}
}

func (s *Service) publish(ctx context.Context, log *zap.Logger, key, eventType string, event any) {
	pctx, cancel := context.WithTimeout(ctx, s.publishTimeout)
	defer cancel()
	if err := s.publisher.PublishJSON(pctx, key, eventType, event); err != nil {
		log.Warn("publish event failed", zap.String("event_type", eventType), zap.Error(err))
	}
}

// flush waits for every queued event to be handed to the publisher.
func (s *Service) flush() {
	s.inflight.Wait()
}

// Close drains pending events and releases underlying resources.
func (s *Service) Close() error {
	s.flush()
	if s.publisher == nil {
		return nil
	}
	return s.publisher.Close()
}

func failedEvent(runID string, dropID int64, err error) MomentFailedEvent {
	ev := MomentFailedEvent{
		RunID:  runID,
		DropID: dropID,
		Reason: failureReason(err),
		Error:  err.Error(),
		At:     time.Now().UTC(),
	}
	var creationErr *moments.RemoteCreationError
	if errors.As(err, &creationErr) {
		ev.OrphanedKeys = creationErr.MediaKeys
	}
	return ev
}

func failureReason(err error) string {
	var (
		validationErr *moments.ValidationError
		ticketErr     *moments.TicketError
		uploadErr     *moments.UploadError
		creationErr   *moments.RemoteCreationError
	)
	switch {
	case errors.As(err, &validationErr):
		return "validation"
	case errors.As(err, &ticketErr):
		return "ticket"
	case errors.As(err, &uploadErr):
		return "upload"
	case errors.As(err, &creationErr):
		return "remote_creation"
	default:
		return "unknown"
	}
}
