package transfers

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/kitchenledger-backend/pkg/db/models"
	"github.com/angelmondragon/kitchenledger-backend/pkg/enums"
)

// CreateItemInput is one line of a transfer. A nil UnitCost falls back to
// the source outlet's last cost at creation.
type CreateItemInput struct {
	IngredientID uuid.UUID        `json:"ingredient_id" validate:"required"`
	Qty          decimal.Decimal  `json:"qty" validate:"gt=0"`
	UnitID       uuid.UUID        `json:"unit_id" validate:"required"`
	UnitCost     *decimal.Decimal `json:"unit_cost,omitempty" validate:"omitempty,gte=0"`
}

type CreateInput struct {
	FromOutletID   uuid.UUID         `json:"from_outlet_id" validate:"required"`
	ToOutletID     uuid.UUID         `json:"to_outlet_id" validate:"required"`
	StockRequestID *uuid.UUID        `json:"stock_request_id,omitempty"`
	Notes          *string           `json:"notes,omitempty" validate:"omitempty,max=1000"`
	Items          []CreateItemInput `json:"items" validate:"required,min=1,dive"`
}

type ListFilter struct {
	Status       *enums.StockTransferStatus
	FromOutletID *uuid.UUID
	ToOutletID   *uuid.UUID
	Limit        int
	Cursor       string
}

type TransferPage struct {
	Items      []models.StockTransfer `json:"items"`
	NextCursor string                 `json:"next_cursor,omitempty"`
}
