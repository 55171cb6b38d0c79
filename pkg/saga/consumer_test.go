package saga

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"testing"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
)

type fakeDedup struct {
	seen    map[string]bool
	markErr error
	calls   []string
}

func newFakeDedup() *fakeDedup {
	return &fakeDedup{seen: make(map[string]bool)}
}

func (d *fakeDedup) Key(group, topic string, partition int, offset int64) string {
	return fmt.Sprintf("%s:%s:%d:%d", group, topic, partition, offset)
}

func (d *fakeDedup) Seen(_ context.Context, key string) (bool, error) {
	d.calls = append(d.calls, "seen")
	return d.seen[key], nil
}

func (d *fakeDedup) Mark(_ context.Context, key string) error {
	d.calls = append(d.calls, "mark")
	if d.markErr != nil {
		return d.markErr
	}
	d.seen[key] = true
	return nil
}

func testConsumer(registry *Registry, idem Dedup) *Consumer {
	return &Consumer{
		log:      slog.New(slog.NewTextHandler(io.Discard, nil)),
		registry: registry,
		idem:     idem,
		group:    "g",
		tracer:   otel.Tracer("g"),
	}
}

func orderCreatedMsg(offset int64) kafka.Message {
	return kafka.Message{
		Topic:     "orders.events",
		Partition: 0,
		Offset:    offset,
		Headers:   []kafka.Header{{Key: "event_type", Value: []byte("order.created")}},
		Value:     []byte(`{"order_id":"o1"}`),
	}
}

func TestProcessMarksOnlyAfterHandlerSucceeds(t *testing.T) {
	r := NewRegistry()
	var handled []string
	r.Register("order.created", Typed(func(_ context.Context, ev orderEvent) error {
		handled = append(handled, ev.OrderID)
		return nil
	}))
	idem := newFakeDedup()
	c := testConsumer(r, idem)

	require.NoError(t, c.process(context.Background(), orderCreatedMsg(1)))
	assert.Equal(t, []string{"o1"}, handled)
	assert.Equal(t, []string{"seen", "mark"}, idem.calls, "marker set after handling, not before")
}

func TestProcessHandlerErrorLeavesNoMarker(t *testing.T) {
	r := NewRegistry()
	attempts := 0
	r.Register("order.created", Typed(func(_ context.Context, _ orderEvent) error {
		attempts++
		if attempts == 1 {
			return errors.New("db down")
		}
		return nil
	}))
	idem := newFakeDedup()
	c := testConsumer(r, idem)

	msg := orderCreatedMsg(1)
	require.Error(t, c.process(context.Background(), msg))
	assert.Empty(t, idem.seen, "failed handling must not mark the delivery")

	// The broker redelivers because the offset was never committed; the
	// handler runs again instead of being skipped.
	require.NoError(t, c.process(context.Background(), msg))
	assert.Equal(t, 2, attempts)
	assert.True(t, idem.seen[idem.Key("g", msg.Topic, msg.Partition, msg.Offset)])
}

func TestProcessSkipsSeenDelivery(t *testing.T) {
	r := NewRegistry()
	attempts := 0
	r.Register("order.created", Typed(func(_ context.Context, _ orderEvent) error {
		attempts++
		return nil
	}))
	idem := newFakeDedup()
	c := testConsumer(r, idem)

	msg := orderCreatedMsg(1)
	require.NoError(t, c.process(context.Background(), msg))
	require.NoError(t, c.process(context.Background(), msg))
	assert.Equal(t, 1, attempts)
}

func TestProcessMarkFailureIsNotFatal(t *testing.T) {
	r := NewRegistry()
	r.Register("order.created", Typed(func(_ context.Context, _ orderEvent) error {
		return nil
	}))
	idem := newFakeDedup()
	idem.markErr = errors.New("redis down")
	c := testConsumer(r, idem)

	// Handling succeeded; a lost marker only risks a duplicate, which
	// handlers tolerate, so the offset still gets committed.
	require.NoError(t, c.process(context.Background(), orderCreatedMsg(1)))
}

func TestProcessDropsUndecodableAndUnknownEvents(t *testing.T) {
	r := NewRegistry()
	r.Register("order.created", Typed(func(_ context.Context, _ orderEvent) error {
		return nil
	}))
	idem := newFakeDedup()
	c := testConsumer(r, idem)

	bad := orderCreatedMsg(1)
	bad.Value = []byte(`not json`)
	require.NoError(t, c.process(context.Background(), bad), "poison messages are dropped, not retried")

	unknown := orderCreatedMsg(2)
	unknown.Headers = []kafka.Header{{Key: "event_type", Value: []byte("something.else")}}
	require.NoError(t, c.process(context.Background(), unknown))
}
