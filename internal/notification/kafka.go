package notification

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/fjod/go_shop/internal/domain"
	"github.com/segmentio/kafka-go"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaNotifier publishes order events for the mailer worker.
type KafkaNotifier struct {
	writer messageWriter
}

func NewKafkaNotifier(brokers ...string) *KafkaNotifier {
	w := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  Topic,
		Balancer:               &kafka.Hash{},
		AllowAutoTopicCreation: true,
	}
	return &KafkaNotifier{writer: w}
}

func (k *KafkaNotifier) SendOrderConfirmation(ctx context.Context, order *domain.Order) error {
	return k.publish(ctx, confirmationEvent(order))
}

func (k *KafkaNotifier) SendOrderStatusUpdate(ctx context.Context, order *domain.Order, previous domain.OrderStatus) error {
	return k.publish(ctx, statusUpdateEvent(order, previous))
}

func (k *KafkaNotifier) publish(ctx context.Context, ev Event) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal %s event: %w", ev.Type, err)
	}

	msg := kafka.Message{
		Key:   []byte(ev.OrderID), // order id keeps events of one order in sequence
		Value: payload,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(ev.Type)},
		},
	}
	if err := k.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("publish %s event: %w", ev.Type, err)
	}
	return nil
}

func (k *KafkaNotifier) Close() error {
	return k.writer.Close()
}
