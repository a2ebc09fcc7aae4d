package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product is the catalog record as far as fulfillment cares about it. Stock is
// the authoritative ledger value and never goes below zero.
type Product struct {
	ID            int64               `db:"id" json:"id"`
	Name          string              `db:"name" json:"name"`
	SKU           string              `db:"sku" json:"sku"`
	Price         decimal.Decimal     `db:"price" json:"price"`
	DiscountPrice decimal.NullDecimal `db:"discount_price" json:"discountPrice"`
	Stock         int                 `db:"stock" json:"stock"`
	IsActive      bool                `db:"is_active" json:"isActive"`
	Images        StringList          `db:"images" json:"images"`
	Gender        string              `db:"gender" json:"gender"`
	Category      string              `db:"category" json:"category"`
	CreatedAt     time.Time           `db:"created_at" json:"createdAt"`
	UpdatedAt     time.Time           `db:"updated_at" json:"updatedAt"`
}

// UnitPrice returns the discount price when it is set and lower than the list
// price, the list price otherwise.
func (p *Product) UnitPrice() decimal.Decimal {
	if p.DiscountPrice.Valid && p.DiscountPrice.Decimal.IsPositive() && p.DiscountPrice.Decimal.LessThan(p.Price) {
		return p.DiscountPrice.Decimal
	}
	return p.Price
}

// CanFulfil reports whether quantity units can be sold right now.
func (p *Product) CanFulfil(quantity int) bool {
	return p.IsActive && p.Stock >= quantity
}
