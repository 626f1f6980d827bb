package services

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/shopspring/decimal"
)

var (
	// ErrPricingInvalidInput signals bad request data such as missing lines or negative prices.
	ErrPricingInvalidInput = errors.New("pricing: invalid input")
)

// PricingLine is one variant entry fed into the calculator.
type PricingLine struct {
	VariantID   string
	Quantity    int
	UnitPrice   int64
	WeightGrams int
}

// CalculatePricing computes the money snapshot frozen onto an order at
// creation time. Tax is computed on the subtotal and rounded to the nearest
// currency unit exactly once, after summation.
func CalculatePricing(lines []PricingLine, taxPercent string, shippingCost int64) (PricingBreakdown, error) {
	if len(lines) == 0 {
		return PricingBreakdown{}, fmt.Errorf("%w: at least one line is required", ErrPricingInvalidInput)
	}
	if shippingCost < 0 {
		return PricingBreakdown{}, fmt.Errorf("%w: shipping cost cannot be negative", ErrPricingInvalidInput)
	}
	rate, err := parseTaxPercent(taxPercent)
	if err != nil {
		return PricingBreakdown{}, err
	}

	items := make([]ItemPricingBreakdown, 0, len(lines))
	var subtotal int64
	var totalWeight int
	for _, line := range lines {
		variantID := strings.TrimSpace(line.VariantID)
		if variantID == "" {
			return PricingBreakdown{}, fmt.Errorf("%w: line variant id is required", ErrPricingInvalidInput)
		}
		if line.Quantity <= 0 {
			return PricingBreakdown{}, fmt.Errorf("%w: quantity for %s must be positive", ErrPricingInvalidInput, variantID)
		}
		if line.UnitPrice < 0 {
			return PricingBreakdown{}, fmt.Errorf("%w: unit price for %s cannot be negative", ErrPricingInvalidInput, variantID)
		}
		if line.WeightGrams < 0 {
			return PricingBreakdown{}, fmt.Errorf("%w: weight for %s cannot be negative", ErrPricingInvalidInput, variantID)
		}
		quantity := int64(line.Quantity)
		if line.UnitPrice > 0 && line.UnitPrice > math.MaxInt64/quantity {
			return PricingBreakdown{}, fmt.Errorf("%w: line subtotal overflow for %s", ErrPricingInvalidInput, variantID)
		}

		lineSubtotal := line.UnitPrice * quantity
		if subtotal > math.MaxInt64-lineSubtotal {
			return PricingBreakdown{}, fmt.Errorf("%w: cart subtotal overflow", ErrPricingInvalidInput)
		}
		subtotal += lineSubtotal
		totalWeight += line.WeightGrams * line.Quantity

		items = append(items, ItemPricingBreakdown{
			VariantID:   variantID,
			Quantity:    line.Quantity,
			UnitPrice:   line.UnitPrice,
			Subtotal:    lineSubtotal,
			WeightGrams: line.WeightGrams * line.Quantity,
		})
	}

	tax := decimal.NewFromInt(subtotal).
		Mul(rate).
		Div(decimal.NewFromInt(100)).
		Round(0).
		IntPart()

	return PricingBreakdown{
		Subtotal:         subtotal,
		Tax:              tax,
		TaxRate:          rate.String(),
		Shipping:         shippingCost,
		Total:            subtotal + tax + shippingCost,
		TotalWeightGrams: totalWeight,
		Items:            items,
	}, nil
}

func parseTaxPercent(percent string) (decimal.Decimal, error) {
	trimmed := strings.TrimSpace(percent)
	if trimmed == "" {
		return decimal.Zero, fmt.Errorf("%w: tax percent is required", ErrPricingInvalidInput)
	}
	rate, err := decimal.NewFromString(trimmed)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: tax percent %q is not numeric", ErrPricingInvalidInput, trimmed)
	}
	if rate.IsNegative() {
		return decimal.Zero, fmt.Errorf("%w: tax percent cannot be negative", ErrPricingInvalidInput)
	}
	return rate, nil
}
