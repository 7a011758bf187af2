package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/kitchenledger-backend/pkg/enums"
)

type PurchaseOrder struct {
	ID             uuid.UUID                 `gorm:"column:id;type:uuid;primaryKey"`
	OrganizationID uuid.UUID                 `gorm:"column:organization_id;type:uuid;not null;uniqueIndex:ux_purchase_orders_no,priority:1"`
	PONo           string                    `gorm:"column:po_no;not null;uniqueIndex:ux_purchase_orders_no,priority:2"`
	SupplierID     uuid.UUID                 `gorm:"column:supplier_id;type:uuid;not null"`
	OutletID       uuid.UUID                 `gorm:"column:outlet_id;type:uuid;not null;index"`
	Status         enums.PurchaseOrderStatus `gorm:"column:status;type:purchase_order_status_enum;not null"`
	OrderDate      time.Time                 `gorm:"column:order_date;type:date;not null"`
	ExpectedDate   *time.Time                `gorm:"column:expected_date;type:date"`
	ReceivedDate   *time.Time                `gorm:"column:received_date;type:date"`
	TotalAmount    decimal.Decimal           `gorm:"column:total_amount;type:numeric(14,2);not null"`
	Notes          *string                   `gorm:"column:notes"`
	CreatedBy      *uuid.UUID                `gorm:"column:created_by;type:uuid"`
	ReceivedBy     *uuid.UUID                `gorm:"column:received_by;type:uuid"`
	CreatedAt      time.Time                 `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time                 `gorm:"column:updated_at;autoUpdateTime"`
	Items          []PurchaseOrderItem       `gorm:"foreignKey:PurchaseOrderID"`
}

func (p *PurchaseOrder) BeforeCreate(*gorm.DB) error {
	assignID(&p.ID)
	return nil
}

type PurchaseOrderItem struct {
	ID              uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	PurchaseOrderID uuid.UUID       `gorm:"column:purchase_order_id;type:uuid;not null;index"`
	IngredientID    uuid.UUID       `gorm:"column:ingredient_id;type:uuid;not null"`
	QtyOrdered      decimal.Decimal `gorm:"column:qty_ordered;type:numeric(14,4);not null"`
	QtyReceived     decimal.Decimal `gorm:"column:qty_received;type:numeric(14,4);not null"`
	UnitID          uuid.UUID       `gorm:"column:unit_id;type:uuid;not null"`
	UnitCost        decimal.Decimal `gorm:"column:unit_cost;type:numeric(14,4);not null"`
	TotalCost       decimal.Decimal `gorm:"column:total_cost;type:numeric(14,4);not null"`
	Notes           *string         `gorm:"column:notes"`
}

func (i *PurchaseOrderItem) BeforeCreate(*gorm.DB) error {
	assignID(&i.ID)
	return nil
}
