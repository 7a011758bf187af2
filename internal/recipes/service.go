package recipes

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/kitchenledger-backend/internal/catalog"
	"github.com/angelmondragon/kitchenledger-backend/internal/inventory"
	"github.com/angelmondragon/kitchenledger-backend/internal/units"
	"github.com/angelmondragon/kitchenledger-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/kitchenledger-backend/pkg/errors"
	"github.com/angelmondragon/kitchenledger-backend/pkg/logger"
)

const hppScale = 4

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Coster derives menu cost from the active recipe. It never writes.
type Coster interface {
	CostRecipe(ctx context.Context, tx *gorm.DB, in CostInput) (*RecipeCost, error)
}

// Service manages recipe versions and menu costing.
type Service interface {
	Coster
	CreateRecipe(ctx context.Context, organizationID, menuID, actorUserID uuid.UUID, input CreateRecipeInput) (*models.Recipe, error)
	ListRecipes(ctx context.Context, organizationID, menuID uuid.UUID) ([]models.Recipe, error)
	MenuCost(ctx context.Context, organizationID, menuID uuid.UUID, outletID *uuid.UUID, qty decimal.Decimal) (*MenuCostView, error)
}

type service struct {
	repo      Repository
	tx        txRunner
	catalog   catalog.Lookup
	stock     inventory.Poster
	converter units.Converter
	logg      *logger.Logger
}

// NewService wires recipe costing with stock and unit lookups.
func NewService(repo Repository, tx txRunner, lookup catalog.Lookup, stock inventory.Poster, converter units.Converter, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("recipes repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if lookup == nil {
		return nil, fmt.Errorf("catalog lookup required")
	}
	if stock == nil {
		return nil, fmt.Errorf("stock reader required")
	}
	if converter == nil {
		return nil, fmt.Errorf("unit converter required")
	}
	return &service{
		repo:      repo,
		tx:        tx,
		catalog:   lookup,
		stock:     stock,
		converter: converter,
		logg:      logg,
	}, nil
}

// CostRecipe prices the active recipe at the outlet's last cost. A menu
// without an active recipe costs zero. Ingredients never stocked at the
// outlet contribute zero but still appear in the lines.
func (s *service) CostRecipe(ctx context.Context, tx *gorm.DB, in CostInput) (*RecipeCost, error) {
	if !in.Quantity.IsPositive() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be greater than zero")
	}
	repo := s.repo.WithTx(tx)

	result := &RecipeCost{
		Quantity:  in.Quantity,
		UnitCost:  decimal.Zero,
		TotalCost: decimal.Zero,
		Lines:     []models.IngredientUsage{},
	}
	recipe, err := repo.FindActiveRecipe(ctx, in.MenuID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load active recipe")
	}
	if recipe == nil {
		return result, nil
	}
	recipeID := recipe.ID
	result.RecipeID = &recipeID
	result.Version = recipe.Version

	lines, err := repo.RecipeLines(ctx, recipe.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load recipe items")
	}

	converter := s.converter.WithTx(tx)
	for _, line := range lines {
		stock, err := s.stock.CurrentStock(ctx, tx, inventory.StockKey{
			OrganizationID: in.OrganizationID,
			OutletID:       in.OutletID,
			IngredientID:   line.IngredientID,
		})
		if err != nil {
			return nil, err
		}

		// last_cost is per stock unit; price it per recipe unit.
		unitCost := stock.LastCost
		if line.UnitID != stock.UnitID && !unitCost.IsZero() {
			ingredientID := line.IngredientID
			m, _, err := converter.Multiplier(ctx, line.UnitID, stock.UnitID, &ingredientID)
			if err != nil {
				return nil, err
			}
			unitCost = unitCost.Mul(m)
		}

		usage := line.Qty.Mul(in.Quantity)
		total := usage.Mul(unitCost)
		result.TotalCost = result.TotalCost.Add(total)
		result.Lines = append(result.Lines, models.IngredientUsage{
			IngredientID:   line.IngredientID,
			IngredientName: line.IngredientName,
			Qty:            usage,
			UnitID:         line.UnitID,
			UnitSymbol:     line.UnitSymbol,
			UnitCost:       unitCost,
			TotalCost:      total,
		})
	}
	result.UnitCost = result.TotalCost.Div(in.Quantity).Round(hppScale)
	return result, nil
}

// CreateRecipe appends version max+1. An active version deactivates every
// other version of the menu in the same transaction.
func (s *service) CreateRecipe(ctx context.Context, organizationID, menuID, actorUserID uuid.UUID, input CreateRecipeInput) (*models.Recipe, error) {
	if len(input.Items) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "recipe requires at least one item")
	}
	active := true
	if input.IsActive != nil {
		active = *input.IsActive
	}

	var created *models.Recipe
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if _, err := repo.LockMenu(ctx, organizationID, menuID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "menu not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lock menu")
		}

		items := make([]models.RecipeItem, 0, len(input.Items))
		seen := make(map[uuid.UUID]struct{}, len(input.Items))
		for i, item := range input.Items {
			if !item.Qty.IsPositive() {
				return pkgerrors.New(pkgerrors.CodeValidation, "item qty must be greater than zero").
					WithDetails(map[string]any{"index": i})
			}
			if _, dup := seen[item.IngredientID]; dup {
				return pkgerrors.New(pkgerrors.CodeValidation, "ingredient listed more than once").
					WithDetails(map[string]any{"ingredient_id": item.IngredientID})
			}
			seen[item.IngredientID] = struct{}{}
			if _, err := s.catalog.Ingredient(ctx, tx, organizationID, item.IngredientID); err != nil {
				return err
			}
			if _, err := s.catalog.Unit(ctx, tx, item.UnitID); err != nil {
				return err
			}
			items = append(items, models.RecipeItem{
				IngredientID: item.IngredientID,
				Qty:          item.Qty,
				UnitID:       item.UnitID,
			})
		}

		version, err := repo.MaxVersion(ctx, menuID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load recipe version")
		}
		if active {
			if err := repo.DeactivateRecipes(ctx, menuID); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "deactivate recipes")
			}
		}

		actor := actorUserID
		recipe := &models.Recipe{
			MenuID:    menuID,
			Version:   version + 1,
			IsActive:  active,
			Notes:     input.Notes,
			CreatedBy: &actor,
			Items:     items,
		}
		if err := repo.CreateRecipe(ctx, recipe); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create recipe")
		}
		created = recipe
		return nil
	})
	if err != nil {
		return nil, err
	}

	if s.logg != nil {
		logCtx := s.logg.WithFields(ctx, map[string]any{
			"menu_id":   menuID.String(),
			"recipe_id": created.ID.String(),
			"version":   created.Version,
			"is_active": created.IsActive,
		})
		s.logg.Info(logCtx, "recipe version created")
	}
	return created, nil
}

func (s *service) ListRecipes(ctx context.Context, organizationID, menuID uuid.UUID) ([]models.Recipe, error) {
	if _, err := s.catalog.Menu(ctx, nil, organizationID, menuID); err != nil {
		return nil, err
	}
	recipes, err := s.repo.ListRecipes(ctx, menuID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list recipes")
	}
	return recipes, nil
}

// MenuCost prices a menu at outletID, or at the organization's central
// outlet when none is given.
func (s *service) MenuCost(ctx context.Context, organizationID, menuID uuid.UUID, outletID *uuid.UUID, qty decimal.Decimal) (*MenuCostView, error) {
	menu, err := s.catalog.Menu(ctx, nil, organizationID, menuID)
	if err != nil {
		return nil, err
	}
	if qty.IsZero() {
		qty = decimal.NewFromInt(1)
	}

	var outlet uuid.UUID
	if outletID != nil {
		found, err := s.catalog.Outlet(ctx, nil, organizationID, *outletID)
		if err != nil {
			return nil, err
		}
		outlet = found.ID
	} else {
		central, err := s.repo.FindCentralOutlet(ctx, organizationID)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load central outlet")
		}
		if central == nil {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "outlet_id required when no central outlet exists")
		}
		outlet = central.ID
	}

	cost, err := s.CostRecipe(ctx, nil, CostInput{
		OrganizationID: organizationID,
		MenuID:         menu.ID,
		OutletID:       outlet,
		Quantity:       qty,
	})
	if err != nil {
		return nil, err
	}
	return &MenuCostView{
		MenuID:       menu.ID,
		Name:         menu.Name,
		Price:        menu.Price,
		OutletID:     outlet,
		HPP:          cost.UnitCost,
		ProfitMargin: ProfitMargin(menu.Price, cost.UnitCost),
		Cost:         *cost,
	}, nil
}

// ProfitMargin returns (price-cost)/price*100 rounded to two places. It is
// zero when the cost is unknown or the price is not positive.
func ProfitMargin(price, unitCost decimal.Decimal) decimal.Decimal {
	if unitCost.IsZero() || !price.IsPositive() {
		return decimal.Zero
	}
	return price.Sub(unitCost).Div(price).Mul(decimal.NewFromInt(100)).Round(2)
}
