package enums

import "fmt"

// TransactionType maps to the transaction_type_enum enum in Postgres.
type TransactionType string

const (
	TransactionTypeIndividualLoad     TransactionType = "individual_load"
	TransactionTypeGroupLoad          TransactionType = "group_load"
	TransactionTypeIndividualSale     TransactionType = "individual_sale"
	TransactionTypeGroupSale          TransactionType = "group_sale"
	TransactionTypeProductEdit        TransactionType = "product_edit"
	TransactionTypeNegativeAdjustment TransactionType = "negative_adjustment"
)

var validTransactionTypes = []TransactionType{
	TransactionTypeIndividualLoad,
	TransactionTypeGroupLoad,
	TransactionTypeIndividualSale,
	TransactionTypeGroupSale,
	TransactionTypeProductEdit,
	TransactionTypeNegativeAdjustment,
}

var transactionTypeLabels = map[TransactionType]string{
	TransactionTypeIndividualLoad:     "Carga individual",
	TransactionTypeGroupLoad:          "Carga grupal",
	TransactionTypeIndividualSale:     "Venta individual",
	TransactionTypeGroupSale:          "Venta grupal",
	TransactionTypeProductEdit:        "Edición de producto",
	TransactionTypeNegativeAdjustment: "Ajuste negativo",
}

// SaleTransactionTypes lists the types counted as revenue.
var SaleTransactionTypes = []TransactionType{
	TransactionTypeIndividualSale,
	TransactionTypeGroupSale,
}

// LoadTransactionTypes lists the types that add stock.
var LoadTransactionTypes = []TransactionType{
	TransactionTypeIndividualLoad,
	TransactionTypeGroupLoad,
}

// String implements fmt.Stringer.
func (t TransactionType) String() string {
	return string(t)
}

// Label returns the display name used in reports and exports.
func (t TransactionType) Label() string {
	if label, ok := transactionTypeLabels[t]; ok {
		return label
	}
	return string(t)
}

// IsLoad reports whether the type increments stock.
func (t TransactionType) IsLoad() bool {
	return t == TransactionTypeIndividualLoad || t == TransactionTypeGroupLoad
}

// IsSale reports whether the type is a sale.
func (t TransactionType) IsSale() bool {
	return t == TransactionTypeIndividualSale || t == TransactionTypeGroupSale
}

// IsValid reports whether the value matches the canonical transaction type enum.
func (t TransactionType) IsValid() bool {
	for _, candidate := range validTransactionTypes {
		if candidate == t {
			return true
		}
	}
	return false
}

// ParseTransactionType converts raw input into TransactionType.
func ParseTransactionType(value string) (TransactionType, error) {
	for _, candidate := range validTransactionTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid transaction type %q", value)
}
