package outbox

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeProducer struct {
	written []kafka.Message
	err     error
	failFor map[string]error
}

func (p *fakeProducer) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if p.err != nil {
		return p.err
	}
	for _, m := range msgs {
		if err, ok := p.failFor[string(m.Key)]; ok {
			return err
		}
	}
	p.written = append(p.written, msgs...)
	return nil
}

type fakeStore struct {
	batch   []Event
	lockErr error
	sent    []int64
	failed  map[int64]string
}

func (s *fakeStore) LockBatch(_ context.Context, _ string, _ int, _ time.Duration) ([]Event, error) {
	if s.lockErr != nil {
		return nil, s.lockErr
	}
	out := s.batch
	s.batch = nil
	return out, nil
}

func (s *fakeStore) MarkSent(_ context.Context, ids []int64) error {
	s.sent = append(s.sent, ids...)
	return nil
}

func (s *fakeStore) MarkFailed(_ context.Context, id int64, errMsg string) error {
	if s.failed == nil {
		s.failed = make(map[int64]string)
	}
	s.failed[id] = errMsg
	return nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func header(m kafka.Message, key string) string {
	for _, h := range m.Headers {
		if h.Key == key {
			return string(h.Value)
		}
	}
	return ""
}

func TestDispatchBuildsMessage(t *testing.T) {
	producer := &fakeProducer{}
	d := NewDispatcher(discardLogger(), producer, "orders.events")

	ev := Event{
		ID:          7,
		AggregateID: "o1",
		Type:        "OrderCreated",
		Payload:     []byte(`{"order_id":"o1"}`),
		Traceparent: "00-abc-def-01",
	}
	require.NoError(t, d.Dispatch(context.Background(), ev))

	require.Len(t, producer.written, 1)
	m := producer.written[0]
	assert.Equal(t, "orders.events", m.Topic)
	assert.Equal(t, []byte("o1"), m.Key)
	assert.Equal(t, ev.Payload, m.Value)
	assert.Equal(t, "OrderCreated", header(m, "event_type"))
	assert.Equal(t, "00-abc-def-01", header(m, "traceparent"))
}

func TestDispatchOmitsEmptyTraceparent(t *testing.T) {
	producer := &fakeProducer{}
	d := NewDispatcher(discardLogger(), producer, "orders.events")

	require.NoError(t, d.Dispatch(context.Background(), Event{ID: 1, AggregateID: "o1", Type: "OrderCreated"}))
	require.Len(t, producer.written, 1)
	assert.Len(t, producer.written[0].Headers, 1)
}

func TestDrainMarksSentAndFailedIndependently(t *testing.T) {
	producer := &fakeProducer{failFor: map[string]error{"o2": errors.New("broker unavailable")}}
	store := &fakeStore{batch: []Event{
		{ID: 1, AggregateID: "o1", Type: "OrderCreated"},
		{ID: 2, AggregateID: "o2", Type: "OrderCreated"},
		{ID: 3, AggregateID: "o3", Type: "OrderCancelled"},
	}}
	r := NewRelay(discardLogger(), store, NewDispatcher(discardLogger(), producer, "orders.events"), "relay-1")

	r.drain(context.Background())

	assert.Equal(t, []int64{1, 3}, store.sent)
	require.Contains(t, store.failed, int64(2))
	assert.Contains(t, store.failed[2], "broker unavailable")
	assert.Len(t, producer.written, 2)
}

func TestDrainNoopsOnEmptyBatch(t *testing.T) {
	store := &fakeStore{}
	r := NewRelay(discardLogger(), store, NewDispatcher(discardLogger(), &fakeProducer{}, "t"), "relay-1")

	r.drain(context.Background())
	assert.Empty(t, store.sent)
	assert.Empty(t, store.failed)
}

func TestDrainSwallowsLockError(t *testing.T) {
	store := &fakeStore{lockErr: errors.New("connection reset")}
	r := NewRelay(discardLogger(), store, NewDispatcher(discardLogger(), &fakeProducer{}, "t"), "relay-1")

	// Next tick retries; drain itself must not panic or mark anything.
	r.drain(context.Background())
	assert.Empty(t, store.sent)
}

func TestRunStopsOnContextCancel(t *testing.T) {
	store := &fakeStore{}
	r := NewRelay(discardLogger(), store, NewDispatcher(discardLogger(), &fakeProducer{}, "t"), "relay-1")
	r.interval = time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- r.Run(ctx) }()

	time.Sleep(10 * time.Millisecond)
	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("relay did not stop after cancel")
	}
}
