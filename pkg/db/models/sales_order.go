package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// SalesOrder is a completed point-of-sale transaction. It is written once
// and never updated.
type SalesOrder struct {
	ID             uuid.UUID        `gorm:"column:id;type:uuid;primaryKey"`
	OrganizationID uuid.UUID        `gorm:"column:organization_id;type:uuid;not null;uniqueIndex:ux_sales_orders_no,priority:1"`
	OrderNo        string           `gorm:"column:order_no;not null;uniqueIndex:ux_sales_orders_no,priority:2"`
	OutletID       uuid.UUID        `gorm:"column:outlet_id;type:uuid;not null;index"`
	UserID         uuid.UUID        `gorm:"column:user_id;type:uuid;not null"`
	OrderDatetime  time.Time        `gorm:"column:order_datetime;not null"`
	TotalAmount    decimal.Decimal  `gorm:"column:total_amount;type:numeric(14,2);not null"`
	PaymentMethod  *string          `gorm:"column:payment_method"`
	CustomerName   *string          `gorm:"column:customer_name"`
	Notes          *string          `gorm:"column:notes"`
	CreatedAt      time.Time        `gorm:"column:created_at;autoCreateTime"`
	Items          []SalesOrderItem `gorm:"foreignKey:SalesOrderID"`
}

func (o *SalesOrder) BeforeCreate(*gorm.DB) error {
	assignID(&o.ID)
	return nil
}

// SalesOrderItem freezes the price, unit cost and ingredient usage in effect
// at the moment of sale.
type SalesOrderItem struct {
	ID              uuid.UUID         `gorm:"column:id;type:uuid;primaryKey"`
	SalesOrderID    uuid.UUID         `gorm:"column:sales_order_id;type:uuid;not null;index"`
	MenuID          uuid.UUID         `gorm:"column:menu_id;type:uuid;not null"`
	Qty             int               `gorm:"column:qty;not null"`
	PriceAtThatTime decimal.Decimal   `gorm:"column:price_at_that_time;type:numeric(14,2);not null"`
	HPPAtThatTime   decimal.Decimal   `gorm:"column:hpp_at_that_time;type:numeric(14,4);not null"`
	TotalItemAmount decimal.Decimal   `gorm:"column:total_item_amount;type:numeric(14,2);not null"`
	IngredientUsage []IngredientUsage `gorm:"column:ingredient_usage_json;type:jsonb;serializer:json"`
	Notes           *string           `gorm:"column:notes"`
}

func (i *SalesOrderItem) BeforeCreate(*gorm.DB) error {
	assignID(&i.ID)
	return nil
}

// IngredientUsage is one frozen line of a sales item's cost snapshot.
type IngredientUsage struct {
	IngredientID   uuid.UUID       `json:"ingredient_id"`
	IngredientName string          `json:"ingredient_name"`
	Qty            decimal.Decimal `json:"qty"`
	UnitID         uuid.UUID       `json:"unit_id"`
	UnitSymbol     string          `json:"unit_symbol,omitempty"`
	UnitCost       decimal.Decimal `json:"unit_cost"`
	TotalCost      decimal.Decimal `json:"total_cost"`
}
