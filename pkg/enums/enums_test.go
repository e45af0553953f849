package enums

import "testing"

func TestParseTransactionType(t *testing.T) {
	for _, candidate := range validTransactionTypes {
		got, err := ParseTransactionType(string(candidate))
		if err != nil || got != candidate {
			t.Fatalf("ParseTransactionType(%q) = %q, %v", candidate, got, err)
		}
		if got.Label() == string(got) {
			t.Fatalf("expected a display label for %q", got)
		}
	}
	if _, err := ParseTransactionType("ENTRADA"); err == nil {
		t.Fatal("expected unknown type to fail")
	}
}

func TestTransactionTypeClassification(t *testing.T) {
	if !TransactionTypeGroupLoad.IsLoad() || TransactionTypeGroupLoad.IsSale() {
		t.Fatal("group load must classify as load")
	}
	if !TransactionTypeIndividualSale.IsSale() || TransactionTypeIndividualSale.IsLoad() {
		t.Fatal("individual sale must classify as sale")
	}
	if TransactionTypeNegativeAdjustment.IsSale() || TransactionTypeProductEdit.IsLoad() {
		t.Fatal("adjustments and edits are neither loads nor sales")
	}
}

func TestParseCaseInsensitiveEnums(t *testing.T) {
	if v, err := ParseUnitValueType(" DECIMAL "); err != nil || v != UnitValueTypeDecimal {
		t.Fatalf("unexpected value type %q, %v", v, err)
	}
	if r, err := ParseUserRole("Admin"); err != nil || r != UserRoleAdmin {
		t.Fatalf("unexpected role %q, %v", r, err)
	}
	if _, err := ParseUserRole("root"); err == nil {
		t.Fatal("expected unknown role to fail")
	}
	if UserRoleAuditor.CanWrite() || !UserRoleAdmin.CanWrite() {
		t.Fatal("only admins can write")
	}
}

func TestGroupKindTransactionType(t *testing.T) {
	if GroupKindSale.TransactionType() != TransactionTypeGroupSale {
		t.Fatal("sale groups hold group_sale rows")
	}
	if GroupKindLoad.TransactionType() != TransactionTypeGroupLoad {
		t.Fatal("load groups hold group_load rows")
	}
	if _, err := ParseGroupKind("refund"); err == nil {
		t.Fatal("expected unknown group kind to fail")
	}
	if _, err := ParsePaymentMethod("nequi"); err != nil {
		t.Fatalf("nequi should be valid: %v", err)
	}
}
