package purchasing

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/kitchenledger-backend/pkg/db/models"
	"github.com/angelmondragon/kitchenledger-backend/pkg/enums"
)

type CreateItemInput struct {
	IngredientID uuid.UUID       `json:"ingredient_id" validate:"required"`
	QtyOrdered   decimal.Decimal `json:"qty_ordered" validate:"gt=0"`
	UnitID       uuid.UUID       `json:"unit_id" validate:"required"`
	UnitCost     decimal.Decimal `json:"unit_cost" validate:"gte=0"`
	Notes        *string         `json:"notes,omitempty" validate:"omitempty,max=500"`
}

// CreateInput drafts a purchase order to one supplier for one outlet.
type CreateInput struct {
	SupplierID   uuid.UUID         `json:"supplier_id" validate:"required"`
	OutletID     uuid.UUID         `json:"outlet_id" validate:"required"`
	OrderDate    *time.Time        `json:"order_date,omitempty"`
	ExpectedDate *time.Time        `json:"expected_date,omitempty"`
	Notes        *string           `json:"notes,omitempty" validate:"omitempty,max=1000"`
	Items        []CreateItemInput `json:"items" validate:"required,min=1,dive"`
}

type ReceiveItemInput struct {
	ItemID      uuid.UUID       `json:"item_id" validate:"required"`
	QtyReceived decimal.Decimal `json:"qty_received" validate:"gte=0"`
}

// ReceiveInput finalizes a purchase order. Lines not listed are received
// as zero.
type ReceiveInput struct {
	ReceivedDate *time.Time         `json:"received_date,omitempty"`
	Items        []ReceiveItemInput `json:"items" validate:"dive"`
}

type ListFilter struct {
	Status     *enums.PurchaseOrderStatus
	OutletID   *uuid.UUID
	SupplierID *uuid.UUID
	Limit      int
	Cursor     string
}

type OrderPage struct {
	Items      []models.PurchaseOrder `json:"items"`
	NextCursor string                 `json:"next_cursor,omitempty"`
}
