package migrate_test

import (
	"io/fs"
	"strings"
	"testing"

	"github.com/mdsalahuddin2001/storefront-backend/pkg/migrate"
)

func readMigration(t *testing.T, suffix string) string {
	t.Helper()
	matches, err := fs.Glob(migrate.Embedded(), "migrations/*_"+suffix+".sql")
	if err != nil {
		t.Fatalf("glob migrations: %v", err)
	}
	if len(matches) == 0 {
		t.Fatalf("no %s migration found", suffix)
	}
	data, err := fs.ReadFile(migrate.Embedded(), matches[0])
	if err != nil {
		t.Fatalf("read migration: %v", err)
	}
	return string(data)
}

func assertContains(t *testing.T, content string, checks ...string) {
	t.Helper()
	for _, check := range checks {
		if !strings.Contains(content, check) {
			t.Errorf("migration missing %q", check)
		}
	}
}

func TestEmbeddedMigrationsValidate(t *testing.T) {
	if err := migrate.ValidateFS(migrate.Embedded(), "migrations"); err != nil {
		t.Fatalf("validate embedded migrations: %v", err)
	}
}

func TestProductsMigrationGuardsStock(t *testing.T) {
	assertContains(t, readMigration(t, "create_products_table"),
		"CREATE TABLE IF NOT EXISTS products",
		"CHECK (stock_quantity >= 0)",
		"CREATE UNIQUE INDEX IF NOT EXISTS idx_products_slug",
		"CREATE UNIQUE INDEX IF NOT EXISTS idx_products_sku",
		"idx_products_search",
		"DROP TABLE IF EXISTS products",
	)
}

func TestCartsMigrationEnforcesSingleOwner(t *testing.T) {
	assertContains(t, readMigration(t, "create_carts_table"),
		"CHECK ((user_id IS NULL) <> (session_id IS NULL))",
		"idx_carts_active_user ON carts (user_id) WHERE status = 'active'",
		"idx_carts_active_session ON carts (session_id) WHERE status = 'active'",
		"CHECK (quantity >= 1)",
		"DROP TABLE IF EXISTS cart_items",
	)
}

func TestOrdersMigrationSnapshotsTotals(t *testing.T) {
	assertContains(t, readMigration(t, "create_orders_table"),
		"CHECK (total_cents = subtotal_cents + shipping_cost_cents)",
		"CHECK (total_cents = price_cents * quantity)",
		"CREATE UNIQUE INDEX IF NOT EXISTS idx_orders_cart_id",
		"DROP TABLE IF EXISTS orders",
	)
}
