// Package events publishes domain events after a write has been stored.
// Publishing is fire-and-forget: a broker failure is logged and counted,
// never returned to the request that caused it.
package events

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/isekhard17/academia-sekhard/common/metrics"
	"github.com/isekhard17/academia-sekhard/internal/config"

	"github.com/google/uuid"
)

const (
	GradeRecorded      = "nota.registrada"
	GradeUpdated       = "nota.actualizada"
	AttendanceRecorded = "asistencia.registrada"
	AttendanceUpdated  = "asistencia.actualizada"
	UserDeactivated    = "usuario.desactivado"
)

type Event struct {
	Type       string    `json:"type"`
	EntityID   uuid.UUID `json:"entity_id"`
	ActorID    uuid.UUID `json:"actor_id"`
	OccurredAt time.Time `json:"occurred_at"`
	Data       any       `json:"data,omitempty"`
}

func New(eventType string, entityID, actorID uuid.UUID, data any) Event {
	return Event{
		Type:       eventType,
		EntityID:   entityID,
		ActorID:    actorID,
		OccurredAt: time.Now().UTC(),
		Data:       data,
	}
}

type Publisher interface {
	Publish(ctx context.Context, e Event) error
	// Name identifies the broker in logs and metrics.
	Name() string
	Close() error
}

const DefaultPublishTimeout = 2 * time.Second

var ErrPublishTimeout = errors.New("event publish timed out")

// Emitter wraps a Publisher for services.
type Emitter struct {
	publisher Publisher
	metrics   *metrics.Metrics
	logger    *slog.Logger
	timeout   time.Duration
	inflight  sync.WaitGroup
}

type EmitterOption func(*Emitter)

// WithPublishTimeout caps how long Emit blocks the caller. Non-positive
// values keep DefaultPublishTimeout.
func WithPublishTimeout(d time.Duration) EmitterOption {
	return func(em *Emitter) {
		if d > 0 {
			em.timeout = d
		}
	}
}

func NewEmitter(p Publisher, m *metrics.Metrics, logger *slog.Logger, opts ...EmitterOption) *Emitter {
	if p == nil {
		p = Noop{}
	}
	em := &Emitter{publisher: p, metrics: m, logger: logger, timeout: DefaultPublishTimeout}
	for _, opt := range opts {
		opt(em)
	}
	return em
}

// Emit publishes e and swallows the error after logging it. It returns
// once the broker answers or the publish timeout passes, whichever is
// first; a publish that outlives the timeout finishes in the background.
// Cancelling ctx does not abort the publish.
func (em *Emitter) Emit(ctx context.Context, e Event) {
	if em == nil {
		return
	}
	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), em.timeout)
	done := make(chan error, 1)
	start := time.Now()

	em.inflight.Add(1)
	go func() {
		defer em.inflight.Done()
		defer cancel()
		done <- em.publisher.Publish(pubCtx, e)
	}()

	var err error
	select {
	case err = <-done:
	case <-pubCtx.Done():
		err = ErrPublishTimeout
	}
	em.metrics.Events.RecordPublish(ctx, em.publisher.Name(), e.Type, time.Since(start), err)
	if err != nil {
		em.logger.WarnContext(ctx, "failed to publish event",
			"type", e.Type,
			"entity_id", e.EntityID,
			"broker", em.publisher.Name(),
			"timeout", em.timeout,
			"error", err,
		)
	}
}

// Close waits for publishes still in flight, then closes the publisher.
func (em *Emitter) Close() error {
	if em == nil {
		return nil
	}
	em.inflight.Wait()
	return em.publisher.Close()
}

// Noop drops every event.
type Noop struct{}

func (Noop) Publish(context.Context, Event) error { return nil }
func (Noop) Name() string                         { return "none" }
func (Noop) Close() error                         { return nil }

// NewPublisher builds the publisher selected by cfg.Driver.
func NewPublisher(cfg config.EventsConfig, logger *slog.Logger) (Publisher, error) {
	switch cfg.Driver {
	case config.EventsNATS:
		return NewNATSPublisher(cfg.NATS.URL, cfg.NATS.SubjectPrefix, logger)
	case config.EventsKafka:
		return NewKafkaPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic, cfg.PublishTimeout(), logger)
	case config.EventsNone, "":
		return Noop{}, nil
	default:
		return nil, fmt.Errorf("unknown events driver %q", cfg.Driver)
	}
}
