package notification

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"

	"github.com/segmentio/kafka-go"
)

type messageReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
	Close() error
}

// Consumer turns order events into mail.
type Consumer struct {
	reader messageReader
	mailer Mailer
}

func NewConsumer(mailer Mailer, brokers ...string) *Consumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  brokers,
		Topic:    Topic,
		GroupID:  "shop-mailer",
		MaxBytes: 10e6, // 10MB
	})
	return &Consumer{reader: reader, mailer: mailer}
}

func (c *Consumer) Run(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}
		c.processMessage(ctx)
	}
}

func (c *Consumer) Close() {
	if err := c.reader.Close(); err != nil {
		log.Printf("error closing kafka reader: %v", err)
	}
}

func (c *Consumer) processMessage(ctx context.Context) {
	m, err := c.reader.ReadMessage(ctx)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return
		}
		log.Printf("error reading message: %v", err)
		return
	}

	var ev Event
	if err := json.Unmarshal(m.Value, &ev); err != nil {
		log.Printf("error parsing message: %v", err)
		return
	}
	if ev.Email == "" {
		log.Printf("event %s for order %s has no recipient, skipping", ev.Type, ev.OrderID)
		return
	}

	subject, body, err := render(ev)
	if err != nil {
		log.Printf("skipping order %s: %v", ev.OrderID, err)
		return
	}

	if err := c.mailer.Send(ctx, ev.Email, subject, body); err != nil {
		log.Printf("failed to mail %s for order %s: %v", ev.Type, ev.OrderID, err)
		return
	}
	log.Printf("%s mailed for order %s", ev.Type, ev.OrderID)
}

func render(ev Event) (subject, body string, err error) {
	switch ev.Type {
	case EventOrderConfirmation:
		subject = fmt.Sprintf("Order %s received", ev.OrderID)
		body = fmt.Sprintf("Thank you for your order %s.\n\nItems: %d\nTotal: %s\n\nWe will let you know when it ships.\n",
			ev.OrderID, ev.TotalItems, ev.TotalAmount.StringFixed(2))
	case EventOrderStatusUpdate:
		subject = fmt.Sprintf("Order %s is now %s", ev.OrderID, ev.Status)
		body = fmt.Sprintf("Your order %s changed from %s to %s.\n", ev.OrderID, ev.PreviousStatus, ev.Status)
	default:
		return "", "", fmt.Errorf("unknown event type %q", ev.Type)
	}
	return subject, body, nil
}
