// Package events carries workflow events and navigation requests out of the
// ward service. Both are fire-and-forget: callers never wait on, or fail
// because of, a subscriber.
package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/ehr/ward/internal/platform/auth"
	"github.com/ehr/ward/internal/platform/telemetry"
)

const (
	PatientDischarged     = "patient.discharged"
	ConsultationCompleted = "consultation.completed"
	PatientAdmitted       = "patient.admitted"
	ReportExported        = "report.exported"
)

type Event struct {
	ID         string          `json:"id"`
	Type       string          `json:"type"`
	Subject    string          `json:"subject"`
	ActorID    int64           `json:"actor_id,omitempty"`
	OccurredAt time.Time       `json:"occurred_at"`
	Data       json.RawMessage `json:"data,omitempty"`
}

// Publisher delivers events to a downstream system.
type Publisher interface {
	Publish(ctx context.Context, evt Event) error
}

// Emitter stamps, publishes and counts events. Publish failures are logged
// and swallowed.
type Emitter struct {
	pubs    []Publisher
	logger  zerolog.Logger
	metrics *telemetry.Metrics
	now     func() time.Time
}

func NewEmitter(logger zerolog.Logger, metrics *telemetry.Metrics, pubs ...Publisher) *Emitter {
	return &Emitter{pubs: pubs, logger: logger, metrics: metrics, now: time.Now}
}

// Emit publishes an event of the given type about subject, attributed to the
// actor in ctx. data is marshalled to JSON; a value that cannot be marshalled
// is dropped from the event.
func (e *Emitter) Emit(ctx context.Context, eventType, subject string, data interface{}) {
	if e == nil {
		return
	}
	evt := Event{
		ID:         uuid.NewString(),
		Type:       eventType,
		Subject:    subject,
		OccurredAt: e.now().UTC(),
	}
	if actor, ok := auth.ActorFromContext(ctx); ok {
		evt.ActorID = actor.ID
	}
	if data != nil {
		if raw, err := json.Marshal(data); err == nil {
			evt.Data = raw
		} else {
			e.logger.Warn().Err(err).Str("type", eventType).Msg("event payload not serializable")
		}
	}

	for _, p := range e.pubs {
		err := p.Publish(ctx, evt)
		e.metrics.ObserveEvent(eventType, err)
		if err != nil {
			e.logger.Warn().Err(err).Str("event_id", evt.ID).Str("type", eventType).Str("subject", subject).Msg("publish event")
		}
	}
}

// LogPublisher writes events to the log. It is the publisher used when no
// broker is configured.
type LogPublisher struct {
	logger zerolog.Logger
}

func NewLogPublisher(logger zerolog.Logger) *LogPublisher {
	return &LogPublisher{logger: logger}
}

func (p *LogPublisher) Publish(_ context.Context, evt Event) error {
	p.logger.Info().
		Str("event_id", evt.ID).
		Str("type", evt.Type).
		Str("subject", evt.Subject).
		Int64("actor_id", evt.ActorID).
		RawJSON("data", orNull(evt.Data)).
		Msg("event")
	return nil
}

func orNull(raw json.RawMessage) []byte {
	if len(raw) == 0 {
		return []byte("null")
	}
	return raw
}
