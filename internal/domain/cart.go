package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// CartItem is one (user, product) row. At most one row exists per pair.
type CartItem struct {
	ID        string    `bson:"_id" json:"id"`
	UserID    string    `bson:"user_id" json:"userId"`
	ProductID int64     `bson:"product_id" json:"productId"`
	Quantity  int       `bson:"quantity" json:"quantity"`
	AddedAt   time.Time `bson:"added_at" json:"addedAt"`
	UpdatedAt time.Time `bson:"updated_at" json:"updatedAt"`
}

type AppliedOffer struct {
	ID       int64    `json:"id"`
	Name     string   `json:"name"`
	RuleType RuleType `json:"ruleType"`
}

// PricedCartItem is a cart row joined with live product data and priced.
// It is never persisted.
type PricedCartItem struct {
	ID              string          `json:"id"`
	ProductID       int64           `json:"productId"`
	Quantity        int             `json:"quantity"`
	AddedAt         time.Time       `json:"addedAt"`
	Product         Product         `json:"product"`
	UnitPrice       decimal.Decimal `json:"unitPrice"`
	ProductDiscount decimal.Decimal `json:"productDiscount"`
	OfferDiscount   decimal.Decimal `json:"offerDiscount"`
	AppliedOffer    *AppliedOffer   `json:"appliedOffer,omitempty"`
	Subtotal        decimal.Decimal `json:"subtotal"`
}

type CartSummary struct {
	Subtotal      decimal.Decimal `json:"subtotal"`
	TotalDiscount decimal.Decimal `json:"totalDiscount"`
	Total         decimal.Decimal `json:"total"`
	TotalItems    int             `json:"totalItems"`
}

type PricedCart struct {
	UserID       string           `json:"userId"`
	Items        []PricedCartItem `json:"items"`
	Summary      CartSummary      `json:"summary"`
	CalculatedAt time.Time        `json:"calculatedAt"`

	// MissingProductIDs lists cart rows left out because their product is
	// gone from the catalog, in cart order.
	MissingProductIDs []int64 `json:"-"`
}

func (c *PricedCart) IsEmpty() bool {
	return len(c.Items) == 0
}
