package publisher

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/fjod/go_cart/shop-api/internal/circuitbreaker"
	"github.com/fjod/go_cart/shop-api/internal/domain"
	"github.com/fjod/go_cart/shop-api/internal/store"
	"github.com/segmentio/kafka-go"
	"github.com/sony/gobreaker/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type MockPublisher struct {
	mu        sync.Mutex
	published []domain.OutboxEvent
	failOn    string
	err       error
}

func (m *MockPublisher) Publish(_ context.Context, event domain.OutboxEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil && (m.failOn == "" || m.failOn == event.ID) {
		return m.err
	}
	m.published = append(m.published, event)
	return nil
}

func (m *MockPublisher) Close() error { return nil }

func (m *MockPublisher) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.published)
}

type MockWriter struct {
	messages []kafka.Message
	err      error
	calls    int
}

func (m *MockWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	m.calls++
	if m.err != nil {
		return m.err
	}
	m.messages = append(m.messages, msgs...)
	return nil
}

func (m *MockWriter) Close() error { return nil }

func addEvent(t *testing.T, s *store.Store, id, eventType string) {
	t.Helper()
	payload, err := json.Marshal(map[string]string{"orderId": "o1"})
	require.NoError(t, err)
	_, err = s.Events.Insert(domain.OutboxEvent{
		Base:        domain.Base{ID: id},
		AggregateID: "o1",
		EventType:   eventType,
		Payload:     payload,
	})
	require.NoError(t, err)
}

func TestProcessUnpublishedEvents_MarksProcessed(t *testing.T) {
	s := store.New()
	addEvent(t, s, "e1", domain.EventOrderCreated)
	addEvent(t, s, "e2", domain.EventPaymentCompleted)
	pub := &MockPublisher{}

	poller := NewOutboxPoller(s, pub, time.Second, zap.NewNop())
	assert.Equal(t, 2, poller.processUnpublishedEvents(context.Background()))

	assert.Equal(t, 2, pub.count())
	assert.Equal(t, "e1", pub.published[0].ID)
	assert.Equal(t, 0, s.Events.Count(func(e domain.OutboxEvent) bool { return !e.Processed }))

	// second run has nothing to do
	assert.Equal(t, 0, poller.processUnpublishedEvents(context.Background()))
	assert.Equal(t, 2, pub.count())
}

func TestProcessUnpublishedEvents_StopsAtFirstFailure(t *testing.T) {
	s := store.New()
	addEvent(t, s, "e1", domain.EventOrderCreated)
	addEvent(t, s, "e2", domain.EventOrderStatusChanged)
	addEvent(t, s, "e3", domain.EventOrderCancelled)
	pub := &MockPublisher{err: errors.New("broker down"), failOn: "e2"}

	poller := NewOutboxPoller(s, pub, time.Second, zap.NewNop())
	assert.Equal(t, 1, poller.processUnpublishedEvents(context.Background()))

	e2, err := s.Events.FindByID("e2")
	require.NoError(t, err)
	assert.False(t, e2.Processed)
	e3, err := s.Events.FindByID("e3")
	require.NoError(t, err)
	assert.False(t, e3.Processed)

	pub.err = nil
	assert.Equal(t, 2, poller.processUnpublishedEvents(context.Background()))
}

func TestProcessUnpublishedEvents_BatchSize(t *testing.T) {
	s := store.New()
	for _, id := range []string{"e1", "e2", "e3"} {
		addEvent(t, s, id, domain.EventOrderCreated)
	}
	poller := NewOutboxPoller(s, &MockPublisher{}, time.Second, zap.NewNop())
	poller.batchSize = 2

	assert.Equal(t, 2, poller.processUnpublishedEvents(context.Background()))
	assert.Equal(t, 1, poller.processUnpublishedEvents(context.Background()))
}

func TestPruneProcessed(t *testing.T) {
	s := store.New()
	addEvent(t, s, "old", domain.EventOrderCreated)
	addEvent(t, s, "recent", domain.EventOrderCreated)
	addEvent(t, s, "pending", domain.EventOrderCreated)

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	for id, at := range map[string]time.Time{"old": now.Add(-2 * time.Hour), "recent": now.Add(-time.Minute)} {
		_, err := s.Events.Update(id, func(e *domain.OutboxEvent) error {
			e.Processed = true
			e.ProcessedAt = &at
			return nil
		})
		require.NoError(t, err)
	}

	poller := NewOutboxPoller(s, &MockPublisher{}, time.Second, zap.NewNop())
	poller.now = func() time.Time { return now }

	assert.Equal(t, 1, poller.pruneProcessed())
	_, err := s.Events.FindByID("old")
	assert.ErrorIs(t, err, store.ErrNotFound)
	assert.Equal(t, 2, s.Events.Count(nil))
}

func TestRun_PublishesUntilCancelled(t *testing.T) {
	s := store.New()
	addEvent(t, s, "e1", domain.EventShipmentCreated)
	pub := &MockPublisher{}
	poller := NewOutboxPoller(s, pub, 10*time.Millisecond, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		poller.Run(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool { return pub.count() == 1 }, time.Second, 5*time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("poller did not stop")
	}
}

func TestRun_FlushesOnShutdown(t *testing.T) {
	s := store.New()
	pub := &MockPublisher{}
	poller := NewOutboxPoller(s, pub, time.Hour, zap.NewNop())
	addEvent(t, s, "e1", domain.EventOrderCreated)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	poller.Run(ctx)

	assert.Equal(t, 1, pub.count())
}

func TestKafkaPublisher_Message(t *testing.T) {
	w := &MockWriter{}
	pub := newKafkaPublisher(w, circuitbreaker.New(circuitbreaker.DefaultSettings("test"), zap.NewNop()))

	err := pub.Publish(context.Background(), domain.OutboxEvent{
		Base:        domain.Base{ID: "e1"},
		AggregateID: "order-7",
		EventType:   domain.EventOrderCreated,
		Payload:     json.RawMessage(`{"orderId":"order-7"}`),
	})
	require.NoError(t, err)

	require.Len(t, w.messages, 1)
	msg := w.messages[0]
	assert.Equal(t, "order-7", string(msg.Key))
	assert.JSONEq(t, `{"orderId":"order-7"}`, string(msg.Value))
	assert.Equal(t, kafka.Header{Key: "event_type", Value: []byte("order.created")}, msg.Headers[0])
}

func TestKafkaPublisher_BreakerOpens(t *testing.T) {
	w := &MockWriter{err: errors.New("dial tcp: connection refused")}
	settings := circuitbreaker.Settings{Name: "test", ConsecutiveFailures: 2, OpenTimeout: time.Minute}
	pub := newKafkaPublisher(w, circuitbreaker.New(settings, zap.NewNop()))
	event := domain.OutboxEvent{Base: domain.Base{ID: "e1"}, EventType: domain.EventOrderCreated}

	for i := 0; i < 2; i++ {
		assert.Error(t, pub.Publish(context.Background(), event))
	}
	err := pub.Publish(context.Background(), event)

	assert.ErrorIs(t, err, gobreaker.ErrOpenState)
	assert.Equal(t, 2, w.calls)
}

func TestLogPublisher(t *testing.T) {
	pub := NewLogPublisher(zap.NewNop())
	assert.NoError(t, pub.Publish(context.Background(), domain.OutboxEvent{EventType: domain.EventOrderCreated}))
	assert.NoError(t, pub.Close())
}
