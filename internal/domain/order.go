package domain

import (
	"database/sql/driver"
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusConfirmed OrderStatus = "confirmed"
	OrderStatusShipped   OrderStatus = "shipped"
	OrderStatusDelivered OrderStatus = "delivered"
	OrderStatusCancelled OrderStatus = "cancelled"
)

var orderTransitions = map[OrderStatus][]OrderStatus{
	OrderStatusPending:   {OrderStatusConfirmed, OrderStatusCancelled},
	OrderStatusConfirmed: {OrderStatusShipped, OrderStatusCancelled},
	OrderStatusShipped:   {OrderStatusDelivered, OrderStatusCancelled},
}

func (s OrderStatus) Valid() bool {
	switch s {
	case OrderStatusPending, OrderStatusConfirmed, OrderStatusShipped, OrderStatusDelivered, OrderStatusCancelled:
		return true
	}
	return false
}

func (s OrderStatus) IsTerminal() bool {
	return s == OrderStatusDelivered || s == OrderStatusCancelled
}

// String representation (for logging)
func (s OrderStatus) String() string {
	return string(s)
}

// CanTransitionTo reports whether an order in status from may move to to.
func CanTransitionTo(from, to OrderStatus) bool {
	for _, next := range orderTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// OrderItem is a frozen copy of the product at order time. It must not follow
// later catalog edits.
type OrderItem struct {
	ProductID      int64               `json:"productId"`
	Name           string              `json:"name"`
	SKU            string              `json:"sku"`
	Quantity       int                 `json:"quantity"`
	Price          decimal.Decimal     `json:"price"`
	DiscountPrice  decimal.NullDecimal `json:"discountPrice"`
	UnitPrice      decimal.Decimal     `json:"unitPrice"`
	OfferDiscount  decimal.Decimal     `json:"offerDiscount"`
	AppliedOfferID *int64              `json:"appliedOfferId,omitempty"`
	Images         []string            `json:"images"`
	Subtotal       decimal.Decimal     `json:"subtotal"`
}

type OrderItems []OrderItem

func (items OrderItems) Value() (driver.Value, error) {
	b, err := json.Marshal([]OrderItem(items))
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (items *OrderItems) Scan(src any) error {
	return scanJSON(src, (*[]OrderItem)(items))
}

type Address struct {
	FullName   string `json:"fullName"`
	Line1      string `json:"line1"`
	Line2      string `json:"line2,omitempty"`
	City       string `json:"city"`
	State      string `json:"state,omitempty"`
	PostalCode string `json:"postalCode"`
	Country    string `json:"country"`
	Phone      string `json:"phone,omitempty"`
}

func (a Address) Value() (driver.Value, error) {
	b, err := json.Marshal(a)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (a *Address) Scan(src any) error {
	return scanJSON(src, a)
}

type Order struct {
	ID              string          `db:"id" json:"id"`
	OrderID         string          `db:"order_id" json:"orderId"`
	UserID          string          `db:"user_id" json:"userId"`
	Items           OrderItems      `db:"items" json:"items"`
	Subtotal        decimal.Decimal `db:"subtotal" json:"subtotal"`
	Discount        decimal.Decimal `db:"discount" json:"discount"`
	TotalAmount     decimal.Decimal `db:"total_amount" json:"totalAmount"`
	TotalItems      int             `db:"total_items" json:"totalItems"`
	Status          OrderStatus     `db:"status" json:"status"`
	ShippingAddress *Address        `db:"shipping_address" json:"shippingAddress,omitempty"`
	ContactEmail    string          `db:"contact_email" json:"contactEmail,omitempty"`
	Notes           string          `db:"notes" json:"notes,omitempty"`
	CreatedAt       time.Time       `db:"created_at" json:"createdAt"`
	UpdatedAt       time.Time       `db:"updated_at" json:"updatedAt"`
}

// OrderMetadata is what the buyer supplies at checkout on top of the cart.
type OrderMetadata struct {
	ShippingAddress *Address `json:"shippingAddress,omitempty"`
	ContactEmail    string   `json:"contactEmail,omitempty"`
	Notes           string   `json:"notes,omitempty"`
}

type StatusChange struct {
	OrderID   string      `db:"order_id" json:"orderId"`
	Status    OrderStatus `db:"status" json:"status"`
	ChangedAt time.Time   `db:"changed_at" json:"changedAt"`
}

type OrderStats struct {
	TotalOrders int                 `json:"totalOrders"`
	ByStatus    map[OrderStatus]int `json:"byStatus"`
	Revenue     decimal.Decimal     `json:"revenue"`
}
