package domain

import (
	"database/sql/driver"
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

type RuleType string

const (
	RuleBuyXGetY       RuleType = "buy_x_get_y"
	RuleBundleDiscount RuleType = "bundle_discount"
	RulePercentageOff  RuleType = "percentage_off"
	RuleFixedAmountOff RuleType = "fixed_amount_off"
)

func (r RuleType) Valid() bool {
	switch r {
	case RuleBuyXGetY, RuleBundleDiscount, RulePercentageOff, RuleFixedAmountOff:
		return true
	}
	return false
}

// OfferRule holds the parameters of every rule variant. Which fields matter
// depends on the offer's RuleType.
type OfferRule struct {
	BuyQuantity        int             `json:"buyQuantity,omitempty"`
	GetQuantity        int             `json:"getQuantity,omitempty"`
	MinQuantity        int             `json:"minQuantity,omitempty"`
	BundlePrice        decimal.Decimal `json:"bundlePrice"`
	DiscountPercentage decimal.Decimal `json:"discountPercentage"`
	DiscountAmount     decimal.Decimal `json:"discountAmount"`
}

func (r OfferRule) Value() (driver.Value, error) {
	b, err := json.Marshal(r)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (r *OfferRule) Scan(src any) error {
	return scanJSON(src, r)
}

// Offer is promotional configuration. UsageCount is the only field mutated
// while orders are placed.
type Offer struct {
	ID                 int64     `db:"id" json:"id"`
	Name               string    `db:"name" json:"name"`
	Description        string    `db:"description" json:"description"`
	RuleType           RuleType  `db:"rule_type" json:"ruleType"`
	Rule               OfferRule `db:"rule" json:"rule"`
	ApplicableProducts Int64List `db:"applicable_products" json:"applicableProducts,omitempty"`
	StartDate          time.Time `db:"start_date" json:"startDate"`
	EndDate            time.Time `db:"end_date" json:"endDate"`
	IsActive           bool      `db:"is_active" json:"isActive"`
	UsageLimit         *int      `db:"usage_limit" json:"usageLimit,omitempty"`
	UsageCount         int       `db:"usage_count" json:"usageCount"`
	Priority           int       `db:"priority" json:"priority"`
	CreatedAt          time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt          time.Time `db:"updated_at" json:"updatedAt"`
}

// IsApplicable reports whether the offer may be evaluated at now: it is
// active, inside its validity window and below its usage limit.
func (o *Offer) IsApplicable(now time.Time) bool {
	if !o.IsActive {
		return false
	}
	if now.Before(o.StartDate) || now.After(o.EndDate) {
		return false
	}
	if o.UsageLimit != nil && o.UsageCount >= *o.UsageLimit {
		return false
	}
	return true
}

// CoversProduct is true when the offer has no product restriction or lists
// productID explicitly.
func (o *Offer) CoversProduct(productID int64) bool {
	return len(o.ApplicableProducts) == 0 || o.ApplicableProducts.Contains(productID)
}
