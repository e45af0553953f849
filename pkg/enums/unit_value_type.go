package enums

import (
	"fmt"
	"strings"
)

// UnitValueType controls whether a unit accepts fractional quantities.
type UnitValueType string

const (
	UnitValueTypeInteger UnitValueType = "integer"
	UnitValueTypeDecimal UnitValueType = "decimal"
)

var validUnitValueTypes = []UnitValueType{
	UnitValueTypeInteger,
	UnitValueTypeDecimal,
}

// String implements fmt.Stringer.
func (v UnitValueType) String() string {
	return string(v)
}

// IsValid reports whether the value is a known UnitValueType.
func (v UnitValueType) IsValid() bool {
	for _, candidate := range validUnitValueTypes {
		if candidate == v {
			return true
		}
	}
	return false
}

// ParseUnitValueType accepts the canonical values case-insensitively.
func ParseUnitValueType(value string) (UnitValueType, error) {
	normalized := strings.ToLower(strings.TrimSpace(value))
	for _, candidate := range validUnitValueTypes {
		if string(candidate) == normalized {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid unit value type %q", value)
}
