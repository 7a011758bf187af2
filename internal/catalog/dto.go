package catalog

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CreateIngredientInput creates an ingredient measured in BaseUnitID.
type CreateIngredientInput struct {
	Name       string    `json:"name" validate:"required,min=1,max=200"`
	Category   *string   `json:"category,omitempty" validate:"omitempty,max=100"`
	SKU        *string   `json:"sku,omitempty" validate:"omitempty,max=100"`
	BaseUnitID uuid.UUID `json:"base_unit_id" validate:"required"`
}

// CreateMenuInput creates a sellable menu item.
type CreateMenuInput struct {
	Name        string          `json:"name" validate:"required,min=1,max=200"`
	Category    *string         `json:"category,omitempty" validate:"omitempty,max=100"`
	Price       decimal.Decimal `json:"price" validate:"gte=0"`
	Description *string         `json:"description,omitempty" validate:"omitempty,max=1000"`
}
