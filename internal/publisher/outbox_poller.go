package publisher

import (
	"context"
	"time"

	"github.com/fjod/go_cart/shop-api/internal/domain"
	"github.com/fjod/go_cart/shop-api/internal/store"
	"go.uber.org/zap"
)

const (
	defaultBatchSize = 100
	// DefaultRetention is how long processed events are kept before pruning.
	DefaultRetention = time.Hour
)

// OutboxPoller publishes events recorded by the services and prunes the
// ones already delivered.
type OutboxPoller struct {
	store     *store.Store
	publisher Publisher
	log       *zap.Logger

	eventTick time.Duration
	pruneTick time.Duration
	retention time.Duration
	batchSize int
	now       func() time.Time
}

func NewOutboxPoller(s *store.Store, pub Publisher, eventTick time.Duration, log *zap.Logger) *OutboxPoller {
	if eventTick <= 0 {
		eventTick = time.Second
	}
	return &OutboxPoller{
		store:     s,
		publisher: pub,
		log:       log,
		eventTick: eventTick,
		pruneTick: time.Minute,
		retention: DefaultRetention,
		batchSize: defaultBatchSize,
		now:       time.Now,
	}
}

// Run polls until ctx is cancelled, then flushes what is left once.
func (p *OutboxPoller) Run(ctx context.Context) {
	eventTicker := time.NewTicker(p.eventTick)
	pruneTicker := time.NewTicker(p.pruneTick)
	defer eventTicker.Stop()
	defer pruneTicker.Stop()
	for {
		select {
		case <-eventTicker.C:
			p.processUnpublishedEvents(ctx)
		case <-pruneTicker.C:
			p.pruneProcessed()
		case <-ctx.Done():
			flushCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			p.processUnpublishedEvents(flushCtx)
			cancel()
			return
		}
	}
}

func (p *OutboxPoller) processUnpublishedEvents(ctx context.Context) int {
	events := p.store.Events.Find(func(e domain.OutboxEvent) bool { return !e.Processed })
	if len(events) > p.batchSize {
		events = events[:p.batchSize]
	}

	published := 0
	for _, event := range events {
		if err := p.publisher.Publish(ctx, event); err != nil {
			p.log.Warn("failed to publish event",
				zap.String("event_id", event.ID),
				zap.String("event_type", event.EventType),
				zap.Error(err))
			// later events of the same aggregate must not overtake this one
			return published
		}

		_, err := p.store.Events.Update(event.ID, func(e *domain.OutboxEvent) error {
			now := p.now()
			e.Processed = true
			e.ProcessedAt = &now
			return nil
		})
		if err != nil {
			p.log.Error("failed to mark event as processed", zap.String("event_id", event.ID), zap.Error(err))
			continue
		}
		published++
	}
	return published
}

func (p *OutboxPoller) pruneProcessed() int {
	cutoff := p.now().Add(-p.retention)
	removed := p.store.Events.DeleteWhere(func(e domain.OutboxEvent) bool {
		return e.Processed && e.ProcessedAt != nil && e.ProcessedAt.Before(cutoff)
	})
	if removed > 0 {
		p.log.Debug("pruned processed events", zap.Int("count", removed))
	}
	return removed
}
