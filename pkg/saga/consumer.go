package saga

import (
	"context"
	"errors"
	"log/slog"

	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/acmeshop/orderflow/pkg/tracing"
)

// Dedup filters duplicate deliveries. Seen is checked before handling
// and Mark is called only after the handler succeeds, so a crash mid
// handling never loses the message.
type Dedup interface {
	Key(group, topic string, partition int, offset int64) string
	Seen(ctx context.Context, key string) (bool, error)
	Mark(ctx context.Context, key string) error
}

// Consumer reads one topic for one consumer group and dispatches each
// message through the registry. Offsets are committed only after the
// handler succeeds, so handler errors surface as redeliveries.
type Consumer struct {
	log      *slog.Logger
	reader   *kafka.Reader
	registry *Registry
	idem     Dedup
	group    string
	tracer   trace.Tracer
}

func NewConsumer(log *slog.Logger, brokers []string, topic, group string, registry *Registry, idem Dedup) *Consumer {
	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers: brokers,
		Topic:   topic,
		GroupID: group,
	})
	return &Consumer{
		log:      log.With("topic", topic, "group", group),
		reader:   r,
		registry: registry,
		idem:     idem,
		group:    group,
		tracer:   otel.Tracer(group),
	}
}

func (c *Consumer) Run(ctx context.Context) error {
	defer c.reader.Close()

	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		if err := c.process(ctx, msg); err != nil {
			// Leave the offset uncommitted; the broker redelivers.
			c.log.Error("message handling failed", "offset", msg.Offset, "err", err)
			continue
		}
		if err := c.reader.CommitMessages(ctx, msg); err != nil {
			c.log.Error("offset commit failed", "offset", msg.Offset, "err", err)
		}
	}
}

func (c *Consumer) process(ctx context.Context, msg kafka.Message) error {
	key := c.idem.Key(c.group, msg.Topic, msg.Partition, msg.Offset)
	seen, err := c.idem.Seen(ctx, key)
	if err != nil {
		return err
	}
	if seen {
		c.log.Info("duplicate delivery skipped", "offset", msg.Offset)
		return nil
	}

	eventType := tracing.HeaderValue(msg.Headers, "event_type")
	msgCtx := tracing.ExtractKafkaHeaders(ctx, msg.Headers)
	msgCtx, span := c.tracer.Start(msgCtx, "Consume"+eventType)
	defer span.End()

	known, err := c.registry.Dispatch(msgCtx, eventType, msg.Value)
	if !known {
		c.log.Debug("no handler for event type", "event_type", eventType)
		return nil
	}
	if err != nil {
		if errors.Is(err, ErrBadPayload) {
			c.log.Error("dropping undecodable event", "event_type", eventType, "err", err)
			return nil
		}
		return err
	}
	// Mark only once the handler's effects are durable. If the mark
	// fails the redelivery runs the handler again, which is safe because
	// handlers tolerate duplicates.
	if err := c.idem.Mark(ctx, key); err != nil {
		c.log.Warn("dedup mark failed", "offset", msg.Offset, "err", err)
	}
	return nil
}
