package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// StockLevel is the materialized on-hand quantity for one outlet and
// ingredient. It always equals the sum of its ledger entries.
type StockLevel struct {
	ID             uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	OrganizationID uuid.UUID       `gorm:"column:organization_id;type:uuid;not null;uniqueIndex:ux_stock_levels_key,priority:1"`
	OutletID       uuid.UUID       `gorm:"column:outlet_id;type:uuid;not null;uniqueIndex:ux_stock_levels_key,priority:2"`
	IngredientID   uuid.UUID       `gorm:"column:ingredient_id;type:uuid;not null;uniqueIndex:ux_stock_levels_key,priority:3"`
	QtyOnHand      decimal.Decimal `gorm:"column:qty_on_hand;type:numeric(14,4);not null"`
	MinQty         decimal.Decimal `gorm:"column:min_qty;type:numeric(14,4);not null"`
	UnitID         uuid.UUID       `gorm:"column:unit_id;type:uuid;not null"`
	LastCost       decimal.Decimal `gorm:"column:last_cost;type:numeric(14,4);not null"`
	UpdatedAt      time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

func (s *StockLevel) BeforeCreate(*gorm.DB) error {
	assignID(&s.ID)
	return nil
}
