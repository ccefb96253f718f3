package service

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/traitors/server/internal/domain"
)

const publishTimeout = 2 * time.Second

// EventPublisher is satisfied by infra.KafkaProducer.
type EventPublisher interface {
	Publish(ctx context.Context, topic string, key, value []byte) error
}

// Events publishes game events on a best-effort basis. Failures are logged and
// never returned to the caller. A nil *Events discards everything.
type Events struct {
	pub    EventPublisher
	logger *slog.Logger
}

// NewEvents creates an Events emitter.
func NewEvents(pub EventPublisher, logger *slog.Logger) *Events {
	return &Events{pub: pub, logger: logger}
}

// Emit publishes evt keyed by its aggregate id. It runs detached from the
// request's cancellation but bounded by publishTimeout.
func (e *Events) Emit(ctx context.Context, evt domain.GameEvent) {
	if e == nil || e.pub == nil {
		return
	}

	value, err := json.Marshal(evt)
	if err != nil {
		e.logger.Error("marshal game event", "event_type", evt.EventType, "error", err)
		return
	}

	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()

	if err := e.pub.Publish(pubCtx, evt.Topic(), []byte(evt.AggregateID), value); err != nil {
		e.logger.Warn("publish game event failed",
			"topic", evt.Topic(),
			"event_id", evt.EventID,
			"error", err,
		)
	}
}
