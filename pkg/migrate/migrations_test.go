package migrate_test

import (
	"io/fs"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/kitchenledger-backend/pkg/migrate"
)

func readMigration(t *testing.T, suffix string) string {
	t.Helper()

	matches, err := fs.Glob(migrate.Embedded(), "*_"+suffix+".sql")
	require.NoError(t, err)
	require.Len(t, matches, 1, "expected one %s migration", suffix)

	data, err := fs.ReadFile(migrate.Embedded(), matches[0])
	require.NoError(t, err)
	return string(data)
}

func assertContainsAll(t *testing.T, content string, statements []string) {
	t.Helper()
	for _, sub := range statements {
		assert.Contains(t, content, sub)
	}
}

func TestEmbeddedMigrationsAreValid(t *testing.T) {
	require.NoError(t, migrate.ValidateDir(migrate.EmbeddedDir))
}

func TestEnumMigrationDeclaresDomainTypes(t *testing.T) {
	content := readMigration(t, "create_enums")
	assertContainsAll(t, content, []string{
		"CREATE TYPE outlet_type_enum AS ENUM ('CENTRAL', 'OUTLET')",
		"CREATE TYPE ledger_source_type_enum",
		"'TRANSFER_OUT'",
		"CREATE TYPE purchase_order_status_enum AS ENUM ('DRAFT', 'ORDERED', 'RECEIVED', 'CANCELLED')",
		"CREATE TYPE stock_request_status_enum AS ENUM ('PENDING', 'APPROVED', 'REJECTED', 'FULFILLED', 'CANCELLED')",
		"CREATE TYPE stock_transfer_status_enum AS ENUM ('DRAFT', 'SHIPPED', 'RECEIVED', 'CANCELLED')",
		"'low_stock_digest'",
		"DROP TYPE IF EXISTS outlet_type_enum",
	})
}

func TestRecipeMigrationKeepsOneActiveVersion(t *testing.T) {
	content := readMigration(t, "create_recipes")
	assertContainsAll(t, content, []string{
		"CREATE TABLE IF NOT EXISTS recipes",
		"CREATE UNIQUE INDEX IF NOT EXISTS ux_recipes_menu_version ON recipes (menu_id, version)",
		"CREATE UNIQUE INDEX IF NOT EXISTS ux_recipes_one_active ON recipes (menu_id) WHERE is_active",
		"CHECK (qty > 0)",
		"DROP TABLE IF EXISTS recipe_items",
	})
}

func TestInventoryMigrationContainsConstraints(t *testing.T) {
	content := readMigration(t, "create_inventory")
	assertContainsAll(t, content, []string{
		"CREATE TABLE IF NOT EXISTS stock_levels",
		"CREATE UNIQUE INDEX IF NOT EXISTS ux_stock_levels_key ON stock_levels (organization_id, outlet_id, ingredient_id)",
		"qty_on_hand numeric(14,4) NOT NULL DEFAULT 0",
		"CREATE TABLE IF NOT EXISTS inventory_ledger",
		"source_type ledger_source_type_enum NOT NULL",
		"CHECK (change_qty <> 0)",
		"DROP TABLE IF EXISTS inventory_ledger",
	})
	assert.NotContains(t, content, "CHECK (qty_on_hand >= 0)", "negative stock is reachable through adjustments")
}

func TestDocumentMigrationNumbersPerOrganization(t *testing.T) {
	content := readMigration(t, "create_documents")
	assertContainsAll(t, content, []string{
		"PRIMARY KEY (organization_id, document_type, scope, seq_date)",
		"CREATE UNIQUE INDEX IF NOT EXISTS ux_sales_orders_no ON sales_orders (organization_id, order_no)",
		"CREATE UNIQUE INDEX IF NOT EXISTS ux_purchase_orders_no ON purchase_orders (organization_id, po_no)",
		"CREATE UNIQUE INDEX IF NOT EXISTS ux_stock_requests_no ON stock_requests (organization_id, request_no)",
		"CREATE UNIQUE INDEX IF NOT EXISTS ux_stock_transfers_no ON stock_transfers (organization_id, transfer_no)",
		"ingredient_usage_json jsonb",
		"CHECK (approved_qty >= 0 AND approved_qty <= requested_qty)",
	})
}

func TestOutboxMigrationIndexesUnpublished(t *testing.T) {
	content := readMigration(t, "create_outbox")
	assertContainsAll(t, content, []string{
		"CREATE TABLE IF NOT EXISTS outbox_events",
		"WHERE published_at IS NULL",
		"CREATE TABLE IF NOT EXISTS outbox_dlq",
		"error_reason outbox_dlq_error_reason_enum NOT NULL",
	})
}

func TestDownMigrationsDropWhatUpCreates(t *testing.T) {
	entries, err := fs.ReadDir(migrate.Embedded(), ".")
	require.NoError(t, err)
	require.NotEmpty(t, entries)

	for _, e := range entries {
		data, err := fs.ReadFile(migrate.Embedded(), e.Name())
		require.NoError(t, err)
		parts := strings.SplitN(string(data), "-- +goose Down", 2)
		require.Len(t, parts, 2, e.Name())

		up, down := parts[0], parts[1]
		for _, line := range strings.Split(up, "\n") {
			line = strings.TrimSpace(line)
			if !strings.HasPrefix(line, "CREATE TABLE IF NOT EXISTS ") {
				continue
			}
			table := strings.Fields(strings.TrimPrefix(line, "CREATE TABLE IF NOT EXISTS "))[0]
			assert.Contains(t, down, "DROP TABLE IF EXISTS "+table+";", "%s does not drop %s", e.Name(), table)
		}
	}
}
