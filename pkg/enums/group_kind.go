package enums

import "fmt"

// GroupKind distinguishes bulk loads from grouped sales.
type GroupKind string

const (
	GroupKindLoad GroupKind = "load"
	GroupKindSale GroupKind = "sale"
)

// String implements fmt.Stringer.
func (k GroupKind) String() string {
	return string(k)
}

// IsValid reports whether the value is a known GroupKind.
func (k GroupKind) IsValid() bool {
	return k == GroupKindLoad || k == GroupKindSale
}

// TransactionType returns the ledger type used for lines of the group.
func (k GroupKind) TransactionType() TransactionType {
	if k == GroupKindSale {
		return TransactionTypeGroupSale
	}
	return TransactionTypeGroupLoad
}

// ParseGroupKind converts raw input into a GroupKind.
func ParseGroupKind(value string) (GroupKind, error) {
	kind := GroupKind(value)
	if !kind.IsValid() {
		return "", fmt.Errorf("invalid group kind %q", value)
	}
	return kind, nil
}
