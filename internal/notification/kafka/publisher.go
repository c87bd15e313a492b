// Package kafka publishes notifications to the delivery topic. Downstream
// workers own actual email/SMS/push delivery; from the saga's point of view
// a successful publish is a successful send.
package kafka

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/segmentio/kafka-go"

	"github.com/felixzhu97/orderflow/internal/notification"
	"github.com/felixzhu97/orderflow/pkg/tracing"
)

type Publisher struct {
	log    *slog.Logger
	writer *kafka.Writer
	topic  string
}

func NewPublisher(log *slog.Logger, brokers []string, topic string) *Publisher {
	return &Publisher{
		log: log,
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Balancer:     &kafka.LeastBytes{},
			RequiredAcks: kafka.RequireAll,
		},
		topic: topic,
	}
}

func (p *Publisher) Close() error { return p.writer.Close() }

func (p *Publisher) SendEmail(ctx context.Context, msg notification.Email) error {
	return p.publish(ctx, "email", msg.To, msg)
}

func (p *Publisher) SendSMS(ctx context.Context, msg notification.SMS) error {
	return p.publish(ctx, "sms", msg.To, msg)
}

func (p *Publisher) SendPush(ctx context.Context, msg notification.Push) error {
	return p.publish(ctx, "push", msg.UserID, msg)
}

func (p *Publisher) publish(ctx context.Context, channel, key string, payload any) error {
	value, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	headers := []kafka.Header{{Key: "channel", Value: []byte(channel)}}
	headers = tracing.InjectKafkaHeaders(ctx, headers)

	msg := kafka.Message{
		Topic:   p.topic,
		Key:     []byte(key),
		Value:   value,
		Headers: headers,
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		p.log.Error("notification publish failed", "channel", channel, "err", err)
		return err
	}
	p.log.Info("notification published", "channel", channel, "key", key)
	return nil
}
