package inventory

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/kitchenledger-backend/pkg/db/models"
	"github.com/angelmondragon/kitchenledger-backend/pkg/enums"
)

// Guard selects the stock check applied while posting.
type Guard int

const (
	// GuardNone posts unconditionally.
	GuardNone Guard = iota
	// GuardAvailable rejects outflows larger than the quantity on hand.
	GuardAvailable
	// GuardAdjust applies the manual adjustment rules: a negative change
	// needs an existing row and may not drive it below zero.
	GuardAdjust
)

// StockKey addresses one stock row.
type StockKey struct {
	OrganizationID uuid.UUID
	OutletID       uuid.UUID
	IngredientID   uuid.UUID
}

// PostInput describes a single ledger movement. ChangeQty is signed and
// expressed in UnitID, which defaults to the stock row's unit.
type PostInput struct {
	OrganizationID uuid.UUID
	OutletID       uuid.UUID
	IngredientID   uuid.UUID
	ChangeQty      decimal.Decimal
	SourceType     enums.LedgerSourceType
	SourceID       *uuid.UUID
	UnitID         *uuid.UUID
	UnitCost       *decimal.Decimal
	TotalCost      *decimal.Decimal
	Remarks        string
	ActorUserID    *uuid.UUID
	Guard          Guard
}

// PostResult is the persisted entry together with the row it moved.
type PostResult struct {
	Entry      models.LedgerEntry `json:"entry"`
	Stock      models.StockLevel  `json:"stock"`
	QtyBefore  decimal.Decimal    `json:"qty_before"`
	WentLow    bool               `json:"went_low"`
	Multiplier decimal.Decimal    `json:"multiplier"`
}

// PostRequest is the body of the raw ledger post endpoint.
type PostRequest struct {
	OutletID     uuid.UUID        `json:"outlet_id" validate:"required"`
	IngredientID uuid.UUID        `json:"ingredient_id" validate:"required"`
	ChangeQty    decimal.Decimal  `json:"change_qty"`
	SourceType   string           `json:"source_type" validate:"required"`
	SourceID     *uuid.UUID       `json:"source_id,omitempty"`
	UnitID       *uuid.UUID       `json:"unit_id,omitempty"`
	UnitCost     *decimal.Decimal `json:"unit_cost,omitempty"`
	TotalCost    *decimal.Decimal `json:"total_cost,omitempty"`
	Remarks      string           `json:"remarks" validate:"max=500"`
}

// AdjustInput is a manual stock correction.
type AdjustInput struct {
	OrganizationID uuid.UUID
	OutletID       uuid.UUID
	IngredientID   uuid.UUID
	AdjustmentQty  decimal.Decimal
	UnitID         *uuid.UUID
	UnitCost       *decimal.Decimal
	Remarks        string
	ActorUserID    uuid.UUID
}

// AdjustRequest is the body of the adjustment endpoint.
type AdjustRequest struct {
	OutletID      uuid.UUID        `json:"outlet_id" validate:"required"`
	IngredientID  uuid.UUID        `json:"ingredient_id" validate:"required"`
	AdjustmentQty decimal.Decimal  `json:"adjustment_qty"`
	UnitID        *uuid.UUID       `json:"unit_id,omitempty"`
	UnitCost      *decimal.Decimal `json:"unit_cost,omitempty"`
	Remarks       string           `json:"remarks" validate:"max=500"`
}

// ReorderLevelInput sets min_qty on a stock row.
type ReorderLevelInput struct {
	StockKey
	MinQty decimal.Decimal
}

// ReorderLevelRequest is the body of the reorder-level endpoint.
type ReorderLevelRequest struct {
	MinQty decimal.Decimal `json:"min_qty"`
}

// StockFilter narrows ListStock.
type StockFilter struct {
	OutletID     *uuid.UUID
	LowStockOnly bool
}

// StockView is a stock row joined with display names.
type StockView struct {
	ID             uuid.UUID       `json:"id"`
	OutletID       uuid.UUID       `json:"outlet_id"`
	OutletName     string          `json:"outlet_name"`
	IngredientID   uuid.UUID       `json:"ingredient_id"`
	IngredientName string          `json:"ingredient_name"`
	QtyOnHand      decimal.Decimal `json:"qty_on_hand"`
	MinQty         decimal.Decimal `json:"min_qty"`
	UnitID         uuid.UUID       `json:"unit_id"`
	UnitSymbol     string          `json:"unit_symbol"`
	LastCost       decimal.Decimal `json:"last_cost"`
	IsLowStock     bool            `json:"is_low_stock" gorm:"-"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

// LedgerFilter narrows ListLedger.
type LedgerFilter struct {
	OutletID     *uuid.UUID
	IngredientID *uuid.UUID
	SourceType   *enums.LedgerSourceType
	Limit        int
	Cursor       string
}

// LedgerView is a ledger entry joined with display names.
type LedgerView struct {
	ID             uuid.UUID              `json:"id"`
	OutletID       uuid.UUID              `json:"outlet_id"`
	OutletName     string                 `json:"outlet_name"`
	IngredientID   uuid.UUID              `json:"ingredient_id"`
	IngredientName string                 `json:"ingredient_name"`
	ChangeQty      decimal.Decimal        `json:"change_qty"`
	SourceType     enums.LedgerSourceType `json:"source_type"`
	SourceID       *uuid.UUID             `json:"source_id,omitempty"`
	UnitID         uuid.UUID              `json:"unit_id"`
	UnitSymbol     string                 `json:"unit_symbol"`
	UnitCost       decimal.NullDecimal    `json:"unit_cost"`
	TotalCost      decimal.NullDecimal    `json:"total_cost"`
	Remarks        *string                `json:"remarks,omitempty"`
	CreatedBy      *uuid.UUID             `json:"created_by,omitempty"`
	CreatedAt      time.Time              `json:"created_at"`
}

// LedgerPage is one cursor page of ledger rows, newest first.
type LedgerPage struct {
	Items      []LedgerView `json:"items"`
	NextCursor string       `json:"next_cursor,omitempty"`
}

// LowStockItem is one row at or below its reorder level.
type LowStockItem struct {
	OutletID       uuid.UUID        `json:"outlet_id"`
	OutletName     string           `json:"outlet_name"`
	OutletType     enums.OutletType `json:"outlet_type"`
	IngredientID   uuid.UUID        `json:"ingredient_id"`
	IngredientName string           `json:"ingredient_name"`
	QtyOnHand      decimal.Decimal  `json:"qty_on_hand"`
	MinQty         decimal.Decimal  `json:"min_qty"`
	UnitSymbol     string           `json:"unit_symbol"`
	Shortage       decimal.Decimal  `json:"shortage" gorm:"-"`
}

// LowStockReport lists every low row for an organization.
type LowStockReport struct {
	TotalAlerts int            `json:"total_alerts"`
	Items       []LowStockItem `json:"items"`
}
