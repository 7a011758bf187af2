package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/kitchenledger-backend/pkg/enums"
)

// StockRequest is an outlet asking the central kitchen for stock. Approval
// records intent only; goods move through a linked StockTransfer.
type StockRequest struct {
	ID             uuid.UUID                `gorm:"column:id;type:uuid;primaryKey"`
	OrganizationID uuid.UUID                `gorm:"column:organization_id;type:uuid;not null;uniqueIndex:ux_stock_requests_no,priority:1"`
	RequestNo      string                   `gorm:"column:request_no;not null;uniqueIndex:ux_stock_requests_no,priority:2"`
	FromOutletID   uuid.UUID                `gorm:"column:from_outlet_id;type:uuid;not null;index"`
	ToOutletID     uuid.UUID                `gorm:"column:to_outlet_id;type:uuid;not null"`
	Status         enums.StockRequestStatus `gorm:"column:status;type:stock_request_status_enum;not null"`
	RequestedBy    uuid.UUID                `gorm:"column:requested_by;type:uuid;not null"`
	ApprovedBy     *uuid.UUID               `gorm:"column:approved_by;type:uuid"`
	ApprovedAt     *time.Time               `gorm:"column:approved_at"`
	Notes          *string                  `gorm:"column:notes"`
	CreatedAt      time.Time                `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time                `gorm:"column:updated_at;autoUpdateTime"`
	Items          []StockRequestItem       `gorm:"foreignKey:StockRequestID"`
}

func (r *StockRequest) BeforeCreate(*gorm.DB) error {
	assignID(&r.ID)
	return nil
}

type StockRequestItem struct {
	ID              uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	StockRequestID  uuid.UUID       `gorm:"column:stock_request_id;type:uuid;not null;index"`
	IngredientID    uuid.UUID       `gorm:"column:ingredient_id;type:uuid;not null"`
	RequestedQty    decimal.Decimal `gorm:"column:requested_qty;type:numeric(14,4);not null"`
	RequestedUnitID uuid.UUID       `gorm:"column:requested_unit_id;type:uuid;not null"`
	ApprovedQty     decimal.Decimal `gorm:"column:approved_qty;type:numeric(14,4);not null"`
	Notes           *string         `gorm:"column:notes"`
}

func (i *StockRequestItem) BeforeCreate(*gorm.DB) error {
	assignID(&i.ID)
	return nil
}
