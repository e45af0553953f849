// Package quantity holds the fixed-point rounding policy for stock amounts
// and prices. All rounding is half-up on the absolute value.
package quantity

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/gemvault-backend/pkg/enums"
)

const (
	IntegerPlaces int32 = 0
	DecimalPlaces int32 = 3
	PricePlaces   int32 = 2
)

// Places returns the number of decimal places kept for a unit value type.
func Places(valueType enums.UnitValueType) int32 {
	if valueType == enums.UnitValueTypeInteger {
		return IntegerPlaces
	}
	return DecimalPlaces
}

// Round rounds a quantity to its unit's policy. Round(Round(x)) == Round(x).
func Round(value decimal.Decimal, valueType enums.UnitValueType) decimal.Decimal {
	return value.Round(Places(valueType))
}

// RoundPrice rounds a unit price to cents.
func RoundPrice(value decimal.Decimal) decimal.Decimal {
	return value.Round(PricePlaces)
}

// Normalize validates a user supplied movement amount and returns it rounded.
// Amounts must be positive, integer units reject fractions, and values that
// round to zero are rejected.
func Normalize(value decimal.Decimal, valueType enums.UnitValueType) (decimal.Decimal, error) {
	if !value.IsPositive() {
		return decimal.Zero, fmt.Errorf("amount must be greater than zero")
	}
	if valueType == enums.UnitValueTypeInteger && !value.Equal(value.Truncate(0)) {
		return decimal.Zero, fmt.Errorf("amount must be a whole number for this unit")
	}
	rounded := Round(value, valueType)
	if !rounded.IsPositive() {
		return decimal.Zero, fmt.Errorf("amount rounds to zero")
	}
	return rounded, nil
}

// NormalizeStock is like Normalize but also accepts zero, for opening stock.
func NormalizeStock(value decimal.Decimal, valueType enums.UnitValueType) (decimal.Decimal, error) {
	if value.IsZero() {
		return decimal.Zero, nil
	}
	return Normalize(value, valueType)
}

// NormalizePrice validates a non-negative price and rounds it.
func NormalizePrice(value decimal.Decimal) (decimal.Decimal, error) {
	if value.IsNegative() {
		return decimal.Zero, fmt.Errorf("price cannot be negative")
	}
	return RoundPrice(value), nil
}
