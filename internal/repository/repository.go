package repository

import (
	"context"
	"errors"

	"github.com/fjod/go_shop/internal/domain"
)

var (
	ErrItemNotFound      = errors.New("item not found in cart")
	ErrDuplicateItem     = errors.New("cart already holds this product")
	ErrProductNotFound   = errors.New("product not found")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrSKUTaken          = errors.New("sku already exists")
	ErrOfferNotFound     = errors.New("offer not found")
	ErrOfferExhausted    = errors.New("offer usage limit reached")
	ErrOrderNotFound     = errors.New("order not found")
	ErrDuplicateOrderID  = errors.New("order id already exists")
	ErrStatusConflict    = errors.New("order status changed concurrently")
)

// CartRepository defines the interface for cart data operations.
// Consumers define this interface, not the MongoDB implementation.
type CartRepository interface {
	ListItems(ctx context.Context, userID string) ([]domain.CartItem, error)
	GetItem(ctx context.Context, userID, itemID string) (*domain.CartItem, error)
	FindByProduct(ctx context.Context, userID string, productID int64) (*domain.CartItem, error)
	InsertItem(ctx context.Context, item *domain.CartItem) error
	UpdateItemQuantity(ctx context.Context, userID, itemID string, quantity int) error
	// IncrementItemQuantity adds delta only while the row still holds
	// expected units. A changed or missing row returns ErrItemNotFound.
	IncrementItemQuantity(ctx context.Context, userID, itemID string, expected, delta int) error
	RemoveItem(ctx context.Context, userID, itemID string) error
	DeleteCart(ctx context.Context, userID string) error
}

// ProductRepository is the catalog boundary plus the stock ledger.
type ProductRepository interface {
	GetProduct(ctx context.Context, id int64) (*domain.Product, error)
	// GetProducts joins many ids in one round trip. Missing ids are absent
	// from the result.
	GetProducts(ctx context.Context, ids []int64) (map[int64]*domain.Product, error)
	CreateProduct(ctx context.Context, p *domain.Product) error
	SKUExists(ctx context.Context, sku string) (bool, error)
	// AdjustStock applies a signed delta. It fails with ErrInsufficientStock
	// instead of letting stock drop below zero.
	AdjustStock(ctx context.Context, id int64, delta int) (*domain.Product, error)
}

type OfferRepository interface {
	ListOffers(ctx context.Context) ([]domain.Offer, error)
	ListActiveOffers(ctx context.Context) ([]domain.Offer, error)
	GetOffer(ctx context.Context, id int64) (*domain.Offer, error)
	CreateOffer(ctx context.Context, o *domain.Offer) error
	UpdateOffer(ctx context.Context, o *domain.Offer) error
	DeleteOffer(ctx context.Context, id int64) error
	IncrementUsage(ctx context.Context, id int64) error
}

type OrderRepository interface {
	CreateOrder(ctx context.Context, order *domain.Order) error
	DeleteOrder(ctx context.Context, id string) error
	GetOrderByID(ctx context.Context, id string) (*domain.Order, error)
	GetOrderByOrderID(ctx context.Context, orderID string) (*domain.Order, error)
	// ListOrders returns every order, or only those in status when it is set.
	ListOrders(ctx context.Context, status domain.OrderStatus) ([]*domain.Order, error)
	ListOrdersByUserID(ctx context.Context, userID string) ([]*domain.Order, error)
	// UpdateOrderStatus moves an order from one status to another and records
	// the change. It returns ErrStatusConflict when the order is no longer in from.
	UpdateOrderStatus(ctx context.Context, id string, from, to domain.OrderStatus) error
	StatusHistory(ctx context.Context, id string) ([]domain.StatusChange, error)
	Stats(ctx context.Context) (*domain.OrderStats, error)
}
