package infra

import (
	"context"
	"log/slog"
	"time"

	"github.com/traitors/server/internal/domain"
)

const defaultOutboxBatch = 100

// OutboxSource is the pending side of the event outbox.
type OutboxSource interface {
	FetchUnpublished(ctx context.Context, limit int) ([]domain.OutboxRecord, error)
	MarkPublished(ctx context.Context, id int64) error
}

// StreamPublisher is satisfied by *KafkaProducer.
type StreamPublisher interface {
	Publish(ctx context.Context, topic string, key, value []byte) error
}

// OutboxRelay polls the event outbox and forwards pending events to Kafka.
type OutboxRelay struct {
	source    OutboxSource
	producer  StreamPublisher
	logger    *slog.Logger
	interval  time.Duration
	batchSize int
}

// NewOutboxRelay creates a relay polling every interval.
func NewOutboxRelay(source OutboxSource, producer StreamPublisher, interval time.Duration, logger *slog.Logger) *OutboxRelay {
	if interval <= 0 {
		interval = 500 * time.Millisecond
	}
	return &OutboxRelay{
		source:    source,
		producer:  producer,
		logger:    logger,
		interval:  interval,
		batchSize: defaultOutboxBatch,
	}
}

// Start begins polling in a goroutine. Stops when ctx is cancelled; the
// returned channel is closed once the loop has exited.
func (r *OutboxRelay) Start(ctx context.Context) <-chan struct{} {
	r.logger.Info("outbox relay started", "interval", r.interval, "batch_size", r.batchSize)
	done := make(chan struct{})

	go func() {
		defer close(done)
		ticker := time.NewTicker(r.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				r.logger.Info("outbox relay stopped")
				return
			case <-ticker.C:
				if _, err := r.RelayOnce(ctx); err != nil {
					r.logger.Error("outbox relay error", "error", err)
				}
			}
		}
	}()
	return done
}

// RelayOnce forwards one batch and returns how many events were published.
// It stops at the first failed publish so events keep their order.
func (r *OutboxRelay) RelayOnce(ctx context.Context) (int, error) {
	records, err := r.source.FetchUnpublished(ctx, r.batchSize)
	if err != nil {
		return 0, err
	}

	published := 0
	for _, rec := range records {
		if err := r.producer.Publish(ctx, rec.Topic, rec.Key, rec.Payload); err != nil {
			r.logger.Warn("kafka publish failed", "outbox_id", rec.ID, "topic", rec.Topic, "error", err)
			break
		}
		if err := r.source.MarkPublished(ctx, rec.ID); err != nil {
			return published, err
		}
		published++
	}

	if published > 0 {
		r.logger.Debug("outbox relay batch complete", "published", published)
	}
	return published, nil
}
