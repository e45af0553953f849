package migrate_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/angelmondragon/gemvault-backend/pkg/migrate"
)

func readMigration(t *testing.T, suffix string) string {
	t.Helper()
	matches, err := filepath.Glob(filepath.Join("migrations", "*_"+suffix+".sql"))
	if err != nil {
		t.Fatalf("glob migrations: %v", err)
	}
	if len(matches) == 0 {
		t.Fatalf("no %s migration file found", suffix)
	}
	data, err := os.ReadFile(matches[0])
	if err != nil {
		t.Fatalf("read migration file: %v", err)
	}
	return string(data)
}

func assertContains(t *testing.T, content string, checks []string) {
	t.Helper()
	for _, sub := range checks {
		if !strings.Contains(content, sub) {
			t.Errorf("missing expected statement %q", sub)
		}
	}
}

func TestInventoryMigrationContainsConstraints(t *testing.T) {
	assertContains(t, readMigration(t, "create_inventory_items"), []string{
		"CREATE TABLE IF NOT EXISTS inventory_items",
		"quantity numeric(20,3) NOT NULL DEFAULT 0",
		"price numeric(14,2) NOT NULL DEFAULT 0",
		"FOREIGN KEY (unit_id) REFERENCES units(id) ON DELETE RESTRICT",
		"CHECK (quantity >= 0)",
		"DROP TABLE IF EXISTS inventory_items",
	})
}

func TestTransactionMigrationEncodesAmountSigns(t *testing.T) {
	assertContains(t, readMigration(t, "create_inventory_transactions"), []string{
		"CREATE TABLE IF NOT EXISTS inventory_transaction_groups",
		"CREATE TABLE IF NOT EXISTS inventory_transactions",
		"CHECK (type NOT IN ('individual_load', 'group_load') OR amount > 0)",
		"CHECK (type NOT IN ('individual_sale', 'group_sale', 'negative_adjustment') OR amount < 0)",
		"CHECK (type <> 'product_edit' OR amount = 0)",
		"FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE SET NULL",
		"DROP TABLE IF EXISTS inventory_transactions",
	})
}

func TestTransactionsAreImmutable(t *testing.T) {
	assertContains(t, readMigration(t, "inventory_transactions_immutable"), []string{
		"-- +goose StatementBegin",
		"BEFORE UPDATE OR DELETE ON inventory_transactions",
		"NEW.payment_method, NEW.client_name, NEW.notes",
		"OLD.payment_method, OLD.client_name, OLD.notes",
		"DROP TRIGGER IF EXISTS inventory_transactions_immutable",
	})
}

func TestCatalogMigrationHasUniqueCodes(t *testing.T) {
	assertContains(t, readMigration(t, "create_catalog"), []string{
		"CONSTRAINT subcategory_codes_category_code_key UNIQUE (category_id, code)",
		"CONSTRAINT units_name_key UNIQUE (name)",
		"value_type unit_value_type_enum NOT NULL",
	})
}

func TestMigrationsOnDiskMatchEmbedded(t *testing.T) {
	if err := migrate.Validate(os.DirFS("migrations")); err != nil {
		t.Fatalf("migrations on disk failed validation: %v", err)
	}
}

func TestValidateRejectsFilenameWithoutVersion(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "add_things.sql"), []byte("-- +goose Up\n-- +goose Down\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := migrate.Validate(os.DirFS(dir)); err == nil {
		t.Fatal("expected invalid filename to fail")
	}
}

func TestCreateWritesValidTemplate(t *testing.T) {
	dir := t.TempDir()
	path, err := migrate.Create(dir, "Add Item Notes", time.Date(2026, 6, 1, 8, 30, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("create migration: %v", err)
	}
	if filepath.Base(path) != "20260601083000_add_item_notes.sql" {
		t.Fatalf("unexpected path %q", path)
	}
	if err := migrate.Validate(os.DirFS(dir)); err != nil {
		t.Fatalf("generated migration failed validation: %v", err)
	}
}
