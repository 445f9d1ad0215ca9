// Package pricing computes order totals from a unit price, a cup size tier,
// a quantity and a tip. All functions are pure.
package pricing

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Size is a cup size tier.
type Size string

const (
	Small  Size = "Small"
	Medium Size = "Medium"
	Large  Size = "Large"
)

// Sizes lists the valid tiers from smallest to largest.
var Sizes = []Size{Small, Medium, Large}

// Quantity and tip bounds accepted by ComputeTotal.
const (
	MinQuantity = 1
	MaxQuantity = 10
)

var (
	// MaxTip is the largest tip accepted by ComputeTotal.
	MaxTip = decimal.NewFromInt(20)

	factors = map[Size]decimal.Decimal{
		Small:  decimal.NewFromInt(1),
		Medium: decimal.RequireFromString("1.25"),
		Large:  decimal.RequireFromString("1.5"),
	}
)

// InvalidSizeError is returned for a size outside Small, Medium and Large.
type InvalidSizeError struct {
	Size string
}

func (e *InvalidSizeError) Error() string {
	return fmt.Sprintf("invalid size %q: must be one of Small, Medium, Large", e.Size)
}

// InvalidInputError is returned when a pricing input is outside its domain.
type InvalidInputError struct {
	Field  string
	Value  string
	Reason string
}

func (e *InvalidInputError) Error() string {
	return fmt.Sprintf("invalid %s %s: %s", e.Field, e.Value, e.Reason)
}

// ParseSize converts a size name to a Size.
func ParseSize(s string) (Size, error) {
	size := Size(s)
	if _, ok := factors[size]; !ok {
		return "", &InvalidSizeError{Size: s}
	}
	return size, nil
}

// Factor returns the price multiplier for the size tier.
func Factor(size Size) (decimal.Decimal, error) {
	f, ok := factors[size]
	if !ok {
		return decimal.Zero, &InvalidSizeError{Size: string(size)}
	}
	return f, nil
}

// ComputeTotal returns unitPrice * Factor(size) * quantity + tip.
// Quantity must be in [MinQuantity, MaxQuantity], tip in [0, MaxTip] and the
// unit price non-negative. The result is not rounded.
func ComputeTotal(unitPrice decimal.Decimal, size Size, quantity int, tip decimal.Decimal) (decimal.Decimal, error) {
	factor, err := Factor(size)
	if err != nil {
		return decimal.Zero, err
	}
	if unitPrice.IsNegative() {
		return decimal.Zero, &InvalidInputError{Field: "price", Value: unitPrice.String(), Reason: "must not be negative"}
	}
	if quantity < MinQuantity || quantity > MaxQuantity {
		return decimal.Zero, &InvalidInputError{
			Field:  "quantity",
			Value:  fmt.Sprint(quantity),
			Reason: fmt.Sprintf("must be between %d and %d", MinQuantity, MaxQuantity),
		}
	}
	if tip.IsNegative() || tip.GreaterThan(MaxTip) {
		return decimal.Zero, &InvalidInputError{
			Field:  "tip",
			Value:  tip.String(),
			Reason: fmt.Sprintf("must be between 0 and %s", MaxTip),
		}
	}

	qty := decimal.NewFromInt(int64(quantity))
	return unitPrice.Mul(factor).Mul(qty).Add(tip), nil
}
