// Package notification carries order events to buyers. Producers publish to
// Kafka through a circuit breaker; the mailer worker consumes the topic and
// sends mail.
package notification

import (
	"time"

	"github.com/fjod/go_shop/internal/domain"
	"github.com/shopspring/decimal"
)

const Topic = "order-notifications"

type EventType string

const (
	EventOrderConfirmation EventType = "order_confirmation"
	EventOrderStatusUpdate EventType = "order_status_update"
)

type Event struct {
	Type           EventType          `json:"type"`
	OrderID        string             `json:"orderId"`
	Email          string             `json:"email"`
	Status         domain.OrderStatus `json:"status"`
	PreviousStatus domain.OrderStatus `json:"previousStatus,omitempty"`
	TotalAmount    decimal.Decimal    `json:"totalAmount"`
	TotalItems     int                `json:"totalItems"`
	OccurredAt     time.Time          `json:"occurredAt"`
}

func confirmationEvent(order *domain.Order) Event {
	return Event{
		Type:        EventOrderConfirmation,
		OrderID:     order.OrderID,
		Email:       order.ContactEmail,
		Status:      order.Status,
		TotalAmount: order.TotalAmount,
		TotalItems:  order.TotalItems,
		OccurredAt:  time.Now().UTC(),
	}
}

func statusUpdateEvent(order *domain.Order, previous domain.OrderStatus) Event {
	return Event{
		Type:           EventOrderStatusUpdate,
		OrderID:        order.OrderID,
		Email:          order.ContactEmail,
		Status:         order.Status,
		PreviousStatus: previous,
		TotalAmount:    order.TotalAmount,
		TotalItems:     order.TotalItems,
		OccurredAt:     time.Now().UTC(),
	}
}
