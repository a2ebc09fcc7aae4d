// Package offer evaluates promotional rules against a single cart line.
package offer

import (
	"errors"
	"fmt"
	"time"

	"github.com/fjod/go_shop/internal/domain"
	"github.com/shopspring/decimal"
)

var ErrInvalidRule = errors.New("invalid offer rule")

var hundred = decimal.NewFromInt(100)

// Line is the input of one evaluation. UnitPrice already includes the
// product's own discount price.
type Line struct {
	ProductID int64
	Quantity  int
	UnitPrice decimal.Decimal
}

// Result is the winning offer for a line. Offer is nil when nothing applies.
type Result struct {
	Discount decimal.Decimal
	Offer    *domain.Offer
}

// Applicable keeps the offers that may be evaluated at now.
func Applicable(offers []domain.Offer, now time.Time) []domain.Offer {
	out := make([]domain.Offer, 0, len(offers))
	for _, o := range offers {
		if o.IsApplicable(now) {
			out = append(out, o)
		}
	}
	return out
}

// Evaluate picks the single best offer for line. The largest discount wins;
// ties go to the higher priority, then to the lower id. Offers never stack.
func Evaluate(line Line, offers []domain.Offer) Result {
	best := Result{Discount: decimal.Zero}
	for i := range offers {
		o := &offers[i]
		if !o.CoversProduct(line.ProductID) {
			continue
		}
		if o.Rule.MinQuantity > 0 && line.Quantity < o.Rule.MinQuantity {
			continue
		}

		d := Discount(o, line.Quantity, line.UnitPrice)
		if !d.IsPositive() {
			continue
		}
		if best.Offer == nil || beats(d, o, best) {
			best = Result{Discount: d, Offer: o}
		}
	}
	return best
}

func beats(d decimal.Decimal, o *domain.Offer, cur Result) bool {
	if c := d.Cmp(cur.Discount); c != 0 {
		return c > 0
	}
	if o.Priority != cur.Offer.Priority {
		return o.Priority > cur.Offer.Priority
	}
	return o.ID < cur.Offer.ID
}

// Discount computes what o takes off quantity units at unitPrice. The result
// is never negative and never exceeds the line value.
func Discount(o *domain.Offer, quantity int, unitPrice decimal.Decimal) decimal.Decimal {
	if quantity <= 0 {
		return decimal.Zero
	}
	q := decimal.NewFromInt(int64(quantity))
	lineValue := unitPrice.Mul(q)
	r := o.Rule

	var d decimal.Decimal
	switch o.RuleType {
	case domain.RuleBuyXGetY:
		group := r.BuyQuantity + r.GetQuantity
		if r.GetQuantity <= 0 || group <= 0 {
			return decimal.Zero
		}
		free := (quantity / group) * r.GetQuantity
		d = unitPrice.Mul(decimal.NewFromInt(int64(free)))
	case domain.RuleBundleDiscount:
		if r.MinQuantity <= 0 {
			return decimal.Zero
		}
		bundles := decimal.NewFromInt(int64(quantity / r.MinQuantity))
		regular := bundles.Mul(decimal.NewFromInt(int64(r.MinQuantity))).Mul(unitPrice)
		d = regular.Sub(bundles.Mul(r.BundlePrice))
	case domain.RulePercentageOff:
		d = lineValue.Mul(r.DiscountPercentage).Div(hundred)
	case domain.RuleFixedAmountOff:
		per := r.MinQuantity
		if per < 1 {
			per = 1
		}
		d = r.DiscountAmount.Mul(decimal.NewFromInt(int64(quantity / per)))
	default:
		return decimal.Zero
	}

	if d.IsNegative() {
		return decimal.Zero
	}
	if d.GreaterThan(lineValue) {
		d = lineValue
	}
	return d.Round(2)
}

// Validate checks that o carries the parameters its rule variant needs.
func Validate(o *domain.Offer) error {
	if !o.RuleType.Valid() {
		return fmt.Errorf("%w: unknown rule type %q", ErrInvalidRule, o.RuleType)
	}
	if o.EndDate.Before(o.StartDate) {
		return fmt.Errorf("%w: endDate is before startDate", ErrInvalidRule)
	}
	if o.UsageLimit != nil && *o.UsageLimit < 1 {
		return fmt.Errorf("%w: usageLimit must be at least 1", ErrInvalidRule)
	}
	if o.Rule.MinQuantity < 0 {
		return fmt.Errorf("%w: minQuantity must not be negative", ErrInvalidRule)
	}

	r := o.Rule
	switch o.RuleType {
	case domain.RuleBuyXGetY:
		if r.BuyQuantity < 1 || r.GetQuantity < 1 {
			return fmt.Errorf("%w: buyQuantity and getQuantity must be at least 1", ErrInvalidRule)
		}
	case domain.RuleBundleDiscount:
		if r.MinQuantity < 1 {
			return fmt.Errorf("%w: minQuantity must be at least 1", ErrInvalidRule)
		}
		if !r.BundlePrice.IsPositive() {
			return fmt.Errorf("%w: bundlePrice must be positive", ErrInvalidRule)
		}
	case domain.RulePercentageOff:
		if r.DiscountPercentage.LessThan(decimal.NewFromInt(1)) || r.DiscountPercentage.GreaterThan(hundred) {
			return fmt.Errorf("%w: discountPercentage must be between 1 and 100", ErrInvalidRule)
		}
	case domain.RuleFixedAmountOff:
		if !r.DiscountAmount.IsPositive() {
			return fmt.Errorf("%w: discountAmount must be positive", ErrInvalidRule)
		}
	}
	return nil
}
