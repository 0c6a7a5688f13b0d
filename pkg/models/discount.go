package models

import (
	"fmt"

	"github.com/shopspring/decimal"
)

type DiscountType string

const (
	DiscountTypeFixed      DiscountType = "fixed"
	DiscountTypePercentage DiscountType = "percentage"
)

// Discount is the tagged variant over the two discount interpretations. A fixed
// discount has a known monetary amount up front; a percentage discount only
// resolves to an amount once a booking price is known.
type Discount interface {
	Type() DiscountType
	Value() decimal.Decimal
	// AmountFor resolves the discount against a booking price.
	AmountFor(price decimal.Decimal) decimal.Decimal
	// Formatted renders the customer-facing description, e.g. "£10.00 off".
	Formatted() string
}

type FixedDiscount struct {
	Amount decimal.Decimal
}

func (d FixedDiscount) Type() DiscountType     { return DiscountTypeFixed }
func (d FixedDiscount) Value() decimal.Decimal { return d.Amount }

func (d FixedDiscount) AmountFor(price decimal.Decimal) decimal.Decimal {
	if d.Amount.GreaterThan(price) {
		return price
	}
	return d.Amount
}

func (d FixedDiscount) Formatted() string {
	return fmt.Sprintf("£%s off", d.Amount.StringFixed(2))
}

type PercentageDiscount struct {
	Percent decimal.Decimal
}

func (d PercentageDiscount) Type() DiscountType     { return DiscountTypePercentage }
func (d PercentageDiscount) Value() decimal.Decimal { return d.Percent }

func (d PercentageDiscount) AmountFor(price decimal.Decimal) decimal.Decimal {
	return price.Mul(d.Percent).Div(decimal.NewFromInt(100)).Round(2)
}

func (d PercentageDiscount) Formatted() string {
	return fmt.Sprintf("%s%% off", d.Percent.String())
}
