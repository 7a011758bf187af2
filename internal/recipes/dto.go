package recipes

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/kitchenledger-backend/pkg/db/models"
)

// RecipeLine is a recipe item joined with display names.
type RecipeLine struct {
	IngredientID   uuid.UUID
	IngredientName string
	Qty            decimal.Decimal
	UnitID         uuid.UUID
	UnitSymbol     string
}

// CostInput asks for the cost of Quantity units of a menu at one outlet.
type CostInput struct {
	OrganizationID uuid.UUID
	MenuID         uuid.UUID
	OutletID       uuid.UUID
	Quantity       decimal.Decimal
}

// RecipeCost is the derived cost of a menu. UnitCost is per single menu
// unit; Lines carry the usage for the requested quantity.
type RecipeCost struct {
	RecipeID  *uuid.UUID               `json:"recipe_id,omitempty"`
	Version   int                      `json:"version,omitempty"`
	Quantity  decimal.Decimal          `json:"quantity"`
	UnitCost  decimal.Decimal          `json:"unit_cost"`
	TotalCost decimal.Decimal          `json:"total_cost"`
	Lines     []models.IngredientUsage `json:"line_items"`
}

// RecipeItemInput is one ingredient of a new recipe version.
type RecipeItemInput struct {
	IngredientID uuid.UUID       `json:"ingredient_id" validate:"required"`
	Qty          decimal.Decimal `json:"qty" validate:"gt=0"`
	UnitID       uuid.UUID       `json:"unit_id" validate:"required"`
}

// CreateRecipeInput adds a recipe version to a menu. IsActive defaults to
// true.
type CreateRecipeInput struct {
	IsActive *bool             `json:"is_active,omitempty"`
	Notes    *string           `json:"notes,omitempty" validate:"omitempty,max=1000"`
	Items    []RecipeItemInput `json:"items" validate:"required,min=1,dive"`
}

// MenuCostView is a menu's price next to its derived cost.
type MenuCostView struct {
	MenuID       uuid.UUID       `json:"menu_id"`
	Name         string          `json:"name"`
	Price        decimal.Decimal `json:"price"`
	OutletID     uuid.UUID       `json:"outlet_id"`
	HPP          decimal.Decimal `json:"hpp"`
	ProfitMargin decimal.Decimal `json:"profit_margin"`
	Cost         RecipeCost      `json:"cost"`
}
