package units

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ConversionView is a conversion row joined with its unit symbols.
type ConversionView struct {
	ID             uuid.UUID       `json:"id"`
	IngredientID   *uuid.UUID      `json:"ingredient_id,omitempty"`
	IngredientName *string         `json:"ingredient_name,omitempty"`
	FromUnitID     uuid.UUID       `json:"from_unit_id"`
	FromUnitSymbol string          `json:"from_unit_symbol"`
	ToUnitID       uuid.UUID       `json:"to_unit_id"`
	ToUnitSymbol   string          `json:"to_unit_symbol"`
	Multiplier     decimal.Decimal `json:"multiplier"`
}

// ConvertRequest is the body accepted by the convert endpoint.
type ConvertRequest struct {
	FromUnitID   uuid.UUID       `json:"from_unit_id" validate:"required"`
	ToUnitID     uuid.UUID       `json:"to_unit_id" validate:"required"`
	Qty          decimal.Decimal `json:"qty"`
	IngredientID *uuid.UUID      `json:"ingredient_id,omitempty"`
}

// Conversion is the outcome of a single conversion.
type Conversion struct {
	FromUnitID   uuid.UUID       `json:"from_unit_id"`
	ToUnitID     uuid.UUID       `json:"to_unit_id"`
	IngredientID *uuid.UUID      `json:"ingredient_id,omitempty"`
	Qty          decimal.Decimal `json:"qty"`
	Converted    decimal.Decimal `json:"converted_qty"`
	Multiplier   decimal.Decimal `json:"multiplier"`
	Inverse      bool            `json:"inverse"`
}
