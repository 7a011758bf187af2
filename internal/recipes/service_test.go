package recipes

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/kitchenledger-backend/internal/catalog"
	"github.com/angelmondragon/kitchenledger-backend/internal/inventory"
	"github.com/angelmondragon/kitchenledger-backend/internal/units"
	"github.com/angelmondragon/kitchenledger-backend/pkg/db/dbtest"
	"github.com/angelmondragon/kitchenledger-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/kitchenledger-backend/pkg/errors"
	"github.com/angelmondragon/kitchenledger-backend/pkg/outbox"
)

type costingFixture struct {
	conn  *gorm.DB
	svc   Service
	stock inventory.Service
	tn    dbtest.Tenant
}

func newCosting(t *testing.T) *costingFixture {
	t.Helper()
	client := dbtest.Open(t)
	conn := client.DB()
	tn := dbtest.SeedTenant(t, conn)

	converter, err := units.NewService(units.NewRepository(conn))
	require.NoError(t, err)
	stock, err := inventory.NewService(inventory.NewRepository(conn), client, outbox.NewService(outbox.NewRepository(conn), nil), converter, nil, nil)
	require.NoError(t, err)
	lookup, err := catalog.NewService(catalog.NewRepository(conn))
	require.NoError(t, err)
	svc, err := NewService(NewRepository(conn), client, lookup, stock, converter, nil)
	require.NoError(t, err)

	return &costingFixture{conn: conn, svc: svc, stock: stock, tn: tn}
}

func (f *costingFixture) cost(t *testing.T, menuID, outletID uuid.UUID, qty int64) *RecipeCost {
	t.Helper()
	cost, err := f.svc.CostRecipe(context.Background(), nil, CostInput{
		OrganizationID: f.tn.Org.ID,
		MenuID:         menuID,
		OutletID:       outletID,
		Quantity:       decimal.NewFromInt(qty),
	})
	require.NoError(t, err)
	return cost
}

func (f *costingFixture) activeCount(t *testing.T, menuID uuid.UUID) int64 {
	t.Helper()
	var n int64
	require.NoError(t, f.conn.Model(&models.Recipe{}).Where("menu_id = ? AND is_active = ?", menuID, true).Count(&n).Error)
	return n
}

func TestNewServiceRequiresDependencies(t *testing.T) {
	_, err := NewService(nil, nil, nil, nil, nil, nil)
	require.Error(t, err)
}

func TestCostRecipeUsesLastCostPerMenuUnit(t *testing.T) {
	f := newCosting(t)
	telur := f.tn.Ingredient(t, f.conn, "Telur", f.tn.Gram.ID)
	f.tn.Stock(t, f.conn, f.tn.Outlet.ID, telur, "5", "2.00")
	menu := f.tn.Menu(t, f.conn, "Telur Dadar", "20.00")
	recipe := f.tn.Recipe(t, f.conn, menu, 1, true, dbtest.Line(telur.ID, "2", f.tn.Gram.ID))

	cost := f.cost(t, menu.ID, f.tn.Outlet.ID, 2)

	require.NotNil(t, cost.RecipeID)
	assert.Equal(t, recipe.ID, *cost.RecipeID)
	assert.True(t, cost.UnitCost.Equal(decimal.NewFromInt(4)), "unit cost %s", cost.UnitCost)
	assert.True(t, cost.TotalCost.Equal(decimal.NewFromInt(8)), "total cost %s", cost.TotalCost)
	require.Len(t, cost.Lines, 1)
	line := cost.Lines[0]
	assert.Equal(t, "Telur", line.IngredientName)
	assert.Equal(t, "g", line.UnitSymbol)
	assert.True(t, line.Qty.Equal(decimal.NewFromInt(4)))
	assert.True(t, line.UnitCost.Equal(decimal.NewFromInt(2)))
	assert.True(t, line.TotalCost.Equal(decimal.NewFromInt(8)))
}

func TestCostRecipeWithoutActiveRecipeIsZero(t *testing.T) {
	f := newCosting(t)
	telur := f.tn.Ingredient(t, f.conn, "Telur", f.tn.Gram.ID)
	menu := f.tn.Menu(t, f.conn, "Es Teh", "8.00")
	f.tn.Recipe(t, f.conn, menu, 1, false, dbtest.Line(telur.ID, "1", f.tn.Gram.ID))

	cost := f.cost(t, menu.ID, f.tn.Outlet.ID, 3)

	assert.Nil(t, cost.RecipeID)
	assert.True(t, cost.UnitCost.IsZero())
	assert.NotNil(t, cost.Lines)
	assert.Empty(t, cost.Lines)
}

func TestCostRecipeRecordsZeroCostForUnstockedIngredient(t *testing.T) {
	f := newCosting(t)
	telur := f.tn.Ingredient(t, f.conn, "Telur", f.tn.Gram.ID)
	garam := f.tn.Ingredient(t, f.conn, "Garam", f.tn.Gram.ID)
	f.tn.Stock(t, f.conn, f.tn.Outlet.ID, telur, "10", "1.50")
	menu := f.tn.Menu(t, f.conn, "Telur Rebus", "10.00")
	f.tn.Recipe(t, f.conn, menu, 1, true,
		dbtest.Line(telur.ID, "1", f.tn.Gram.ID),
		dbtest.Line(garam.ID, "0.5", f.tn.Gram.ID),
	)

	cost := f.cost(t, menu.ID, f.tn.Outlet.ID, 1)

	require.Len(t, cost.Lines, 2)
	var salt models.IngredientUsage
	for _, line := range cost.Lines {
		if line.IngredientID == garam.ID {
			salt = line
		}
	}
	assert.True(t, salt.Qty.Equal(decimal.RequireFromString("0.5")))
	assert.True(t, salt.UnitCost.IsZero())
	assert.True(t, cost.UnitCost.Equal(decimal.RequireFromString("1.5")), "unit cost %s", cost.UnitCost)
}

func TestCostRecipeConvertsRecipeUnitToStockUnit(t *testing.T) {
	f := newCosting(t)
	beras := f.tn.Ingredient(t, f.conn, "Beras", f.tn.Gram.ID)
	f.tn.Stock(t, f.conn, f.tn.Outlet.ID, beras, "5000", "0.002")
	f.tn.Conversion(t, f.conn, f.tn.Kilogram.ID, f.tn.Gram.ID, "1000")
	menu := f.tn.Menu(t, f.conn, "Nasi Putih", "5.00")
	f.tn.Recipe(t, f.conn, menu, 1, true, dbtest.Line(beras.ID, "0.5", f.tn.Kilogram.ID))

	cost := f.cost(t, menu.ID, f.tn.Outlet.ID, 1)

	require.Len(t, cost.Lines, 1)
	assert.True(t, cost.Lines[0].UnitCost.Equal(decimal.NewFromInt(2)), "per kg %s", cost.Lines[0].UnitCost)
	assert.True(t, cost.UnitCost.Equal(decimal.NewFromInt(1)), "unit cost %s", cost.UnitCost)
}

func TestCostRecipeRejectsNonPositiveQuantity(t *testing.T) {
	f := newCosting(t)
	menu := f.tn.Menu(t, f.conn, "Es Teh", "8.00")

	_, err := f.svc.CostRecipe(context.Background(), nil, CostInput{
		OrganizationID: f.tn.Org.ID,
		MenuID:         menu.ID,
		OutletID:       f.tn.Outlet.ID,
	})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestCreateRecipeKeepsOneActiveVersion(t *testing.T) {
	f := newCosting(t)
	ctx := context.Background()
	telur := f.tn.Ingredient(t, f.conn, "Telur", f.tn.Gram.ID)
	menu := f.tn.Menu(t, f.conn, "Telur Dadar", "20.00")
	input := CreateRecipeInput{Items: []RecipeItemInput{{IngredientID: telur.ID, Qty: decimal.NewFromInt(2), UnitID: f.tn.Gram.ID}}}

	first, err := f.svc.CreateRecipe(ctx, f.tn.Org.ID, menu.ID, f.tn.UserID, input)
	require.NoError(t, err)
	assert.Equal(t, 1, first.Version)
	assert.True(t, first.IsActive)

	second, err := f.svc.CreateRecipe(ctx, f.tn.Org.ID, menu.ID, f.tn.UserID, input)
	require.NoError(t, err)
	assert.Equal(t, 2, second.Version)
	assert.Equal(t, int64(1), f.activeCount(t, menu.ID))

	inactive := false
	draft, err := f.svc.CreateRecipe(ctx, f.tn.Org.ID, menu.ID, f.tn.UserID, CreateRecipeInput{IsActive: &inactive, Items: input.Items})
	require.NoError(t, err)
	assert.Equal(t, 3, draft.Version)
	assert.False(t, draft.IsActive)

	cost := f.cost(t, menu.ID, f.tn.Outlet.ID, 1)
	require.NotNil(t, cost.RecipeID)
	assert.Equal(t, second.ID, *cost.RecipeID)

	recipes, err := f.svc.ListRecipes(ctx, f.tn.Org.ID, menu.ID)
	require.NoError(t, err)
	require.Len(t, recipes, 3)
	assert.Equal(t, 3, recipes[0].Version)
	assert.Len(t, recipes[0].Items, 1)
}

func TestCreateRecipeValidatesItems(t *testing.T) {
	f := newCosting(t)
	ctx := context.Background()
	other := dbtest.SeedTenant(t, f.conn)
	telur := f.tn.Ingredient(t, f.conn, "Telur", f.tn.Gram.ID)
	foreign := other.Ingredient(t, f.conn, "Telur", other.Gram.ID)
	menu := f.tn.Menu(t, f.conn, "Telur Dadar", "20.00")

	cases := []struct {
		name  string
		menu  uuid.UUID
		items []RecipeItemInput
		code  pkgerrors.Code
	}{
		{"zero qty", menu.ID, []RecipeItemInput{{IngredientID: telur.ID, Qty: decimal.Zero, UnitID: f.tn.Gram.ID}}, pkgerrors.CodeValidation},
		{"duplicate ingredient", menu.ID, []RecipeItemInput{
			{IngredientID: telur.ID, Qty: decimal.NewFromInt(1), UnitID: f.tn.Gram.ID},
			{IngredientID: telur.ID, Qty: decimal.NewFromInt(2), UnitID: f.tn.Gram.ID},
		}, pkgerrors.CodeValidation},
		{"foreign ingredient", menu.ID, []RecipeItemInput{{IngredientID: foreign.ID, Qty: decimal.NewFromInt(1), UnitID: f.tn.Gram.ID}}, pkgerrors.CodeNotFound},
		{"unknown unit", menu.ID, []RecipeItemInput{{IngredientID: telur.ID, Qty: decimal.NewFromInt(1), UnitID: uuid.New()}}, pkgerrors.CodeNotFound},
		{"unknown menu", uuid.New(), []RecipeItemInput{{IngredientID: telur.ID, Qty: decimal.NewFromInt(1), UnitID: f.tn.Gram.ID}}, pkgerrors.CodeNotFound},
		{"no items", menu.ID, nil, pkgerrors.CodeValidation},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.svc.CreateRecipe(ctx, f.tn.Org.ID, tc.menu, f.tn.UserID, CreateRecipeInput{Items: tc.items})
			require.Error(t, err)
			assert.True(t, pkgerrors.IsCode(err, tc.code), "got %v", err)
		})
	}

	var n int64
	require.NoError(t, f.conn.Model(&models.Recipe{}).Count(&n).Error)
	assert.Zero(t, n)
}

func TestMenuCostDefaultsToCentralOutlet(t *testing.T) {
	f := newCosting(t)
	ctx := context.Background()
	telur := f.tn.Ingredient(t, f.conn, "Telur", f.tn.Gram.ID)
	f.tn.Stock(t, f.conn, f.tn.Central.ID, telur, "100", "2.00")
	f.tn.Stock(t, f.conn, f.tn.Outlet.ID, telur, "100", "3.00")
	menu := f.tn.Menu(t, f.conn, "Telur Dadar", "20.00")
	f.tn.Recipe(t, f.conn, menu, 1, true, dbtest.Line(telur.ID, "2", f.tn.Gram.ID))

	view, err := f.svc.MenuCost(ctx, f.tn.Org.ID, menu.ID, nil, decimal.Zero)
	require.NoError(t, err)
	assert.Equal(t, f.tn.Central.ID, view.OutletID)
	assert.True(t, view.HPP.Equal(decimal.NewFromInt(4)), "hpp %s", view.HPP)
	assert.True(t, view.ProfitMargin.Equal(decimal.NewFromInt(80)), "margin %s", view.ProfitMargin)

	outletID := f.tn.Outlet.ID
	view, err = f.svc.MenuCost(ctx, f.tn.Org.ID, menu.ID, &outletID, decimal.NewFromInt(1))
	require.NoError(t, err)
	assert.True(t, view.HPP.Equal(decimal.NewFromInt(6)), "hpp %s", view.HPP)
	assert.True(t, view.ProfitMargin.Equal(decimal.NewFromInt(70)), "margin %s", view.ProfitMargin)
}

func TestMenuCostUnknownMenu(t *testing.T) {
	f := newCosting(t)
	_, err := f.svc.MenuCost(context.Background(), f.tn.Org.ID, uuid.New(), nil, decimal.NewFromInt(1))
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestProfitMargin(t *testing.T) {
	cases := []struct {
		price, cost, want string
	}{
		{"20", "4", "80"},
		{"15000", "4500", "70"},
		{"3", "1", "66.67"},
		{"20", "0", "0"},
		{"0", "4", "0"},
		{"10", "12", "-20"},
	}
	for _, tc := range cases {
		got := ProfitMargin(decimal.RequireFromString(tc.price), decimal.RequireFromString(tc.cost))
		assert.True(t, got.Equal(decimal.RequireFromString(tc.want)), "price %s cost %s: got %s", tc.price, tc.cost, got)
	}
}
