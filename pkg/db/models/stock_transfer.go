package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/kitchenledger-backend/pkg/enums"
)

type StockTransfer struct {
	ID             uuid.UUID                 `gorm:"column:id;type:uuid;primaryKey"`
	OrganizationID uuid.UUID                 `gorm:"column:organization_id;type:uuid;not null;uniqueIndex:ux_stock_transfers_no,priority:1"`
	TransferNo     string                    `gorm:"column:transfer_no;not null;uniqueIndex:ux_stock_transfers_no,priority:2"`
	FromOutletID   uuid.UUID                 `gorm:"column:from_outlet_id;type:uuid;not null;index"`
	ToOutletID     uuid.UUID                 `gorm:"column:to_outlet_id;type:uuid;not null;index"`
	StockRequestID *uuid.UUID                `gorm:"column:stock_request_id;type:uuid"`
	Status         enums.StockTransferStatus `gorm:"column:status;type:stock_transfer_status_enum;not null"`
	ShippedAt      *time.Time                `gorm:"column:shipped_at"`
	ReceivedAt     *time.Time                `gorm:"column:received_at"`
	CreatedBy      uuid.UUID                 `gorm:"column:created_by;type:uuid;not null"`
	ShippedBy      *uuid.UUID                `gorm:"column:shipped_by;type:uuid"`
	ReceivedBy     *uuid.UUID                `gorm:"column:received_by;type:uuid"`
	Notes          *string                   `gorm:"column:notes"`
	CreatedAt      time.Time                 `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time                 `gorm:"column:updated_at;autoUpdateTime"`
	Items          []StockTransferItem       `gorm:"foreignKey:StockTransferID"`
}

func (t *StockTransfer) BeforeCreate(*gorm.DB) error {
	assignID(&t.ID)
	return nil
}

// StockTransferItem carries the unit cost captured when the transfer was
// drafted; it is not re-resolved on ship or receive.
type StockTransferItem struct {
	ID              uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	StockTransferID uuid.UUID       `gorm:"column:stock_transfer_id;type:uuid;not null;index"`
	IngredientID    uuid.UUID       `gorm:"column:ingredient_id;type:uuid;not null"`
	Qty             decimal.Decimal `gorm:"column:qty;type:numeric(14,4);not null"`
	UnitID          uuid.UUID       `gorm:"column:unit_id;type:uuid;not null"`
	UnitCost        decimal.Decimal `gorm:"column:unit_cost;type:numeric(14,4);not null"`
	TotalCost       decimal.Decimal `gorm:"column:total_cost;type:numeric(14,4);not null"`
}

func (i *StockTransferItem) BeforeCreate(*gorm.DB) error {
	assignID(&i.ID)
	return nil
}
