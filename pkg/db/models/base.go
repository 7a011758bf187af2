package models

import "github.com/google/uuid"

// assignID fills a missing primary key so inserts behave the same on
// Postgres and on the sqlite test database.
func assignID(id *uuid.UUID) {
	if *id == uuid.Nil {
		*id = uuid.New()
	}
}

// All lists every persisted model in dependency order.
func All() []any {
	return []any{
		&Organization{},
		&Unit{},
		&Outlet{},
		&Supplier{},
		&Ingredient{},
		&UnitConversion{},
		&Menu{},
		&Recipe{},
		&RecipeItem{},
		&StockLevel{},
		&LedgerEntry{},
		&SalesOrder{},
		&SalesOrderItem{},
		&PurchaseOrder{},
		&PurchaseOrderItem{},
		&StockRequest{},
		&StockRequestItem{},
		&StockTransfer{},
		&StockTransferItem{},
		&DocumentSequence{},
		&OutboxEvent{},
		&OutboxDLQ{},
	}
}
