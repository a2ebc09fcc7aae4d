package notification

import (
	"context"

	"github.com/fjod/go_shop/internal/domain"
)

type Notifier interface {
	SendOrderConfirmation(ctx context.Context, order *domain.Order) error
	SendOrderStatusUpdate(ctx context.Context, order *domain.Order, previous domain.OrderStatus) error
}

// NoopNotifier accepts every notification and sends nothing.
type NoopNotifier struct{}

func (NoopNotifier) SendOrderConfirmation(context.Context, *domain.Order) error {
	return nil
}

func (NoopNotifier) SendOrderStatusUpdate(context.Context, *domain.Order, domain.OrderStatus) error {
	return nil
}
