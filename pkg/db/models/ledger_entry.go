package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/kitchenledger-backend/pkg/enums"
)

// LedgerEntry records one immutable inventory movement. Rows are only ever
// inserted.
type LedgerEntry struct {
	ID             uuid.UUID              `gorm:"column:id;type:uuid;primaryKey"`
	OrganizationID uuid.UUID              `gorm:"column:organization_id;type:uuid;not null;index:ix_inventory_ledger_key,priority:1"`
	OutletID       uuid.UUID              `gorm:"column:outlet_id;type:uuid;not null;index:ix_inventory_ledger_key,priority:2"`
	IngredientID   uuid.UUID              `gorm:"column:ingredient_id;type:uuid;not null;index:ix_inventory_ledger_key,priority:3"`
	ChangeQty      decimal.Decimal        `gorm:"column:change_qty;type:numeric(14,4);not null"`
	SourceType     enums.LedgerSourceType `gorm:"column:source_type;type:ledger_source_type_enum;not null"`
	SourceID       *uuid.UUID             `gorm:"column:source_id;type:uuid;index"`
	UnitID         uuid.UUID              `gorm:"column:unit_id;type:uuid;not null"`
	UnitCost       decimal.NullDecimal    `gorm:"column:unit_cost;type:numeric(14,4)"`
	TotalCost      decimal.NullDecimal    `gorm:"column:total_cost;type:numeric(14,4)"`
	Remarks        *string                `gorm:"column:remarks"`
	CreatedBy      *uuid.UUID             `gorm:"column:created_by;type:uuid"`
	CreatedAt      time.Time              `gorm:"column:created_at;autoCreateTime"`
}

func (LedgerEntry) TableName() string {
	return "inventory_ledger"
}

func (e *LedgerEntry) BeforeCreate(*gorm.DB) error {
	assignID(&e.ID)
	return nil
}
