package kafka

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/felixzhu97/orderflow/internal/notification"
	"github.com/felixzhu97/orderflow/pkg/idempotency"
	"github.com/felixzhu97/orderflow/pkg/tracing"
)

// Deliverer performs the actual channel delivery for consumed notification
// messages.
type Deliverer interface {
	DeliverEmail(ctx context.Context, msg notification.Email) error
	DeliverSMS(ctx context.Context, msg notification.SMS) error
	DeliverPush(ctx context.Context, msg notification.Push) error
}

// Consumer drains the notification topic and hands each message to the
// deliverer for its channel. Messages are deduped by topic/partition/offset;
// a duplicate is committed and skipped.
type Consumer struct {
	log    *slog.Logger
	reader *kafka.Reader
	idem   *idempotency.Store
	sink   Deliverer
	tracer trace.Tracer
}

func NewConsumer(log *slog.Logger, brokers []string, topic, group string, idem *idempotency.Store, sink Deliverer) *Consumer {
	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers: brokers,
		Topic:   topic,
		GroupID: group,
	})
	return &Consumer{
		log:    log,
		reader: r,
		idem:   idem,
		sink:   sink,
		tracer: otel.Tracer("notification-consumer"),
	}
}

func (c *Consumer) Run(ctx context.Context) error {
	defer c.reader.Close()

	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			return err
		}

		key := c.idem.Key(msg.Topic, msg.Partition, msg.Offset)
		seen, err := c.idem.Seen(ctx, key)
		if err != nil {
			c.log.Error("idempotency check failed", "err", err)
			continue
		}
		if seen {
			c.log.Info("duplicate notification skipped", "key", key)
			_ = c.reader.CommitMessages(ctx, msg)
			continue
		}

		msgCtx := tracing.ExtractKafkaHeaders(ctx, msg.Headers)
		msgCtx, span := c.tracer.Start(msgCtx, "DeliverNotification")

		if err := c.deliver(msgCtx, headerValue(msg.Headers, "channel"), msg.Value); err != nil {
			c.log.Error("notification delivery failed", "key", string(msg.Key), "err", err)
		}

		span.End()
		_ = c.reader.CommitMessages(ctx, msg)
	}
}

func (c *Consumer) deliver(ctx context.Context, channel string, payload []byte) error {
	switch channel {
	case "email":
		var msg notification.Email
		if err := json.Unmarshal(payload, &msg); err != nil {
			return err
		}
		return c.sink.DeliverEmail(ctx, msg)
	case "sms":
		var msg notification.SMS
		if err := json.Unmarshal(payload, &msg); err != nil {
			return err
		}
		return c.sink.DeliverSMS(ctx, msg)
	case "push":
		var msg notification.Push
		if err := json.Unmarshal(payload, &msg); err != nil {
			return err
		}
		return c.sink.DeliverPush(ctx, msg)
	default:
		c.log.Warn("unknown notification channel dropped", "channel", channel)
		return nil
	}
}

func headerValue(h []kafka.Header, key string) string {
	for _, hh := range h {
		if hh.Key == key {
			return string(hh.Value)
		}
	}
	return ""
}
