package stockrequests

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/kitchenledger-backend/pkg/db/models"
	"github.com/angelmondragon/kitchenledger-backend/pkg/enums"
)

type CreateItemInput struct {
	IngredientID    uuid.UUID       `json:"ingredient_id" validate:"required"`
	RequestedQty    decimal.Decimal `json:"requested_qty" validate:"gt=0"`
	RequestedUnitID uuid.UUID       `json:"requested_unit_id" validate:"required"`
	Notes           *string         `json:"notes,omitempty" validate:"omitempty,max=500"`
}

// CreateInput asks the central outlet (ToOutletID) to supply FromOutletID.
type CreateInput struct {
	FromOutletID uuid.UUID         `json:"from_outlet_id" validate:"required"`
	ToOutletID   uuid.UUID         `json:"to_outlet_id" validate:"required"`
	Notes        *string           `json:"notes,omitempty" validate:"omitempty,max=1000"`
	Items        []CreateItemInput `json:"items" validate:"required,min=1,dive"`
}

type ApproveItemInput struct {
	ItemID      uuid.UUID       `json:"item_id" validate:"required"`
	ApprovedQty decimal.Decimal `json:"approved_qty" validate:"gte=0"`
}

// ApproveInput carries the approver's quantities. Lines not listed stay at
// zero.
type ApproveInput struct {
	Items []ApproveItemInput `json:"items" validate:"required,min=1,dive"`
}

type ListFilter struct {
	Status       *enums.StockRequestStatus
	FromOutletID *uuid.UUID
	Limit        int
	Cursor       string
}

type RequestPage struct {
	Items      []models.StockRequest `json:"items"`
	NextCursor string                `json:"next_cursor,omitempty"`
}
