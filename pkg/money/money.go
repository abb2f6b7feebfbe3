// Package money implements integer minor-unit currency arithmetic.
//
// All monetary values move through the system as cents (int64). Fractional
// intermediate results from percentage math are resolved with decimal
// arithmetic and rounded half up before re-entering the cents domain.
package money

import "github.com/shopspring/decimal"

var oneHundred = decimal.NewFromInt(100)

// FromCents returns the decimal major-unit representation of a cents amount.
func FromCents(cents int64) decimal.Decimal {
	return decimal.NewFromInt(cents).Shift(-2)
}

// RoundHalfUp collapses a decimal onto whole cents, rounding .5 upwards.
// Amounts in this system are never negative, so half away from zero and
// half up coincide.
func RoundHalfUp(d decimal.Decimal) int64 {
	return d.Round(0).IntPart()
}

// PercentOf returns rate% of the cents amount, rounded half up.
func PercentOf(amountCents int64, rate decimal.Decimal) int64 {
	if amountCents <= 0 || rate.Sign() <= 0 {
		return 0
	}
	portion := decimal.NewFromInt(amountCents).Mul(rate).Div(oneHundred)
	return RoundHalfUp(portion)
}

// SplitCommission divides an order amount into the platform commission and
// the store's net share. The two parts always sum to the input amount.
func SplitCommission(amountCents int64, rate decimal.Decimal) (commissionCents, storeNetCents int64) {
	commissionCents = PercentOf(amountCents, rate)
	if commissionCents > amountCents {
		commissionCents = amountCents
	}
	return commissionCents, amountCents - commissionCents
}

// PercentDiscount returns a percentage discount on the amount, capped by
// maxDiscountCents when that cap is positive, and never above the amount.
func PercentDiscount(amountCents int64, percent decimal.Decimal, maxDiscountCents int64) int64 {
	discount := PercentOf(amountCents, percent)
	if maxDiscountCents > 0 && discount > maxDiscountCents {
		discount = maxDiscountCents
	}
	if discount > amountCents {
		discount = amountCents
	}
	return discount
}

// FixedDiscount caps a flat discount at the amount it applies to.
func FixedDiscount(amountCents, discountCents int64) int64 {
	if discountCents <= 0 {
		return 0
	}
	if discountCents > amountCents {
		return amountCents
	}
	return discountCents
}
