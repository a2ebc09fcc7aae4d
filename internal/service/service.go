// Package service holds the cart, order, offer and product use cases.
// Every error it returns is a status error built by apperr.
package service

import (
	"context"
	"log"

	"github.com/fjod/go_shop/internal/apperr"
	"github.com/fjod/go_shop/internal/domain"
)

// ProductReader is the read side of the catalog.
type ProductReader interface {
	GetProduct(ctx context.Context, id int64) (*domain.Product, error)
	GetProducts(ctx context.Context, ids []int64) (map[int64]*domain.Product, error)
}

// StockLedger applies signed stock deltas that never drive stock negative.
type StockLedger interface {
	AdjustStock(ctx context.Context, id int64, delta int) (*domain.Product, error)
}

type OfferSource interface {
	ListActiveOffers(ctx context.Context) ([]domain.Offer, error)
}

// OrderNotifier is told about order events. Implementations must not block.
type OrderNotifier interface {
	OrderPlaced(order *domain.Order)
	StatusChanged(order *domain.Order, previous domain.OrderStatus)
}

type noopNotifier struct{}

func (noopNotifier) OrderPlaced(*domain.Order) {}

func (noopNotifier) StatusChanged(*domain.Order, domain.OrderStatus) {}

// NoopNotifier drops every event.
var NoopNotifier OrderNotifier = noopNotifier{}

func internalError(op string, err error) error {
	log.Printf("%s: %v", op, err)
	return apperr.Internal("%s failed", op)
}
