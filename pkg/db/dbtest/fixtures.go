package dbtest

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/kitchenledger-backend/pkg/db/models"
	"github.com/angelmondragon/kitchenledger-backend/pkg/enums"
)

// Tenant is a seeded organization with a central kitchen, one outlet, a
// supplier and the gram/kilogram units.
type Tenant struct {
	Org      models.Organization
	Central  models.Outlet
	Outlet   models.Outlet
	Supplier models.Supplier
	Gram     models.Unit
	Kilogram models.Unit
	UserID   uuid.UUID
}

// SeedTenant inserts a fresh tenant.
func SeedTenant(t *testing.T, conn *gorm.DB) Tenant {
	t.Helper()

	tn := Tenant{
		Org:      models.Organization{Name: "Warung Nusantara"},
		Gram:     models.Unit{Name: "Gram", Symbol: "g", IsBaseUnit: true},
		Kilogram: models.Unit{Name: "Kilogram", Symbol: "kg"},
		UserID:   uuid.New(),
	}
	mustCreate(t, conn, &tn.Org)
	mustCreate(t, conn, &tn.Gram)
	mustCreate(t, conn, &tn.Kilogram)

	tn.Central = models.Outlet{OrganizationID: tn.Org.ID, Name: "Central Kitchen", Code: "CK", Type: enums.OutletTypeCentral, IsActive: true}
	tn.Outlet = models.Outlet{OrganizationID: tn.Org.ID, Name: "Kemang", Code: "KMG", Type: enums.OutletTypeOutlet, IsActive: true}
	tn.Supplier = models.Supplier{OrganizationID: tn.Org.ID, Name: "Pasar Induk", IsActive: true}
	mustCreate(t, conn, &tn.Central)
	mustCreate(t, conn, &tn.Outlet)
	mustCreate(t, conn, &tn.Supplier)
	return tn
}

// Ingredient inserts an active ingredient measured in unitID.
func (tn Tenant) Ingredient(t *testing.T, conn *gorm.DB, name string, unitID uuid.UUID) models.Ingredient {
	t.Helper()
	ing := models.Ingredient{OrganizationID: tn.Org.ID, Name: name, BaseUnitID: unitID, IsActive: true}
	mustCreate(t, conn, &ing)
	return ing
}

// Menu inserts an active menu at the given price.
func (tn Tenant) Menu(t *testing.T, conn *gorm.DB, name, price string) models.Menu {
	t.Helper()
	menu := models.Menu{OrganizationID: tn.Org.ID, Name: name, Price: decimal.RequireFromString(price), IsActive: true}
	mustCreate(t, conn, &menu)
	return menu
}

// Stock writes a stock row and its matching opening ledger entry so the
// ledger keeps reconciling with on-hand quantity.
func (tn Tenant) Stock(t *testing.T, conn *gorm.DB, outletID uuid.UUID, ing models.Ingredient, qty, lastCost string) models.StockLevel {
	t.Helper()
	q := decimal.RequireFromString(qty)
	cost := decimal.RequireFromString(lastCost)
	level := models.StockLevel{
		OrganizationID: tn.Org.ID,
		OutletID:       outletID,
		IngredientID:   ing.ID,
		QtyOnHand:      q,
		MinQty:         decimal.Zero,
		UnitID:         ing.BaseUnitID,
		LastCost:       cost,
	}
	mustCreate(t, conn, &level)
	entry := models.LedgerEntry{
		OrganizationID: tn.Org.ID,
		OutletID:       outletID,
		IngredientID:   ing.ID,
		ChangeQty:      q,
		SourceType:     enums.LedgerSourceAdjustment,
		UnitID:         ing.BaseUnitID,
		UnitCost:       decimal.NewNullDecimal(cost),
		TotalCost:      decimal.NewNullDecimal(cost.Mul(q)),
		CreatedAt:      time.Now().UTC(),
	}
	mustCreate(t, conn, &entry)
	return level
}

// Recipe inserts a recipe version for menu. Items only need ingredient,
// qty and unit.
func (tn Tenant) Recipe(t *testing.T, conn *gorm.DB, menu models.Menu, version int, active bool, items ...models.RecipeItem) models.Recipe {
	t.Helper()
	recipe := models.Recipe{MenuID: menu.ID, Version: version, IsActive: active, Items: items}
	mustCreate(t, conn, &recipe)
	return recipe
}

// Line is shorthand for a recipe item.
func Line(ingredientID uuid.UUID, qty string, unitID uuid.UUID) models.RecipeItem {
	return models.RecipeItem{IngredientID: ingredientID, Qty: decimal.RequireFromString(qty), UnitID: unitID}
}

// Conversion inserts a global unit conversion.
func (tn Tenant) Conversion(t *testing.T, conn *gorm.DB, fromUnitID, toUnitID uuid.UUID, multiplier string) {
	t.Helper()
	mustCreate(t, conn, &models.UnitConversion{FromUnitID: fromUnitID, ToUnitID: toUnitID, Multiplier: decimal.RequireFromString(multiplier)})
}

// LedgerSum returns the sum of change_qty for one outlet and ingredient.
func LedgerSum(t *testing.T, conn *gorm.DB, outletID, ingredientID uuid.UUID) decimal.Decimal {
	t.Helper()
	var entries []models.LedgerEntry
	if err := conn.Where("outlet_id = ? AND ingredient_id = ?", outletID, ingredientID).Find(&entries).Error; err != nil {
		t.Fatalf("load ledger: %v", err)
	}
	sum := decimal.Zero
	for _, e := range entries {
		sum = sum.Add(e.ChangeQty)
	}
	return sum
}

// QtyOnHand reads the stored quantity, or zero when no row exists.
func QtyOnHand(t *testing.T, conn *gorm.DB, outletID, ingredientID uuid.UUID) decimal.Decimal {
	t.Helper()
	var rows []models.StockLevel
	if err := conn.Where("outlet_id = ? AND ingredient_id = ?", outletID, ingredientID).Limit(1).Find(&rows).Error; err != nil {
		t.Fatalf("load stock: %v", err)
	}
	if len(rows) == 0 {
		return decimal.Zero
	}
	return rows[0].QtyOnHand
}

func mustCreate(t *testing.T, conn *gorm.DB, value any) {
	t.Helper()
	if err := conn.Create(value).Error; err != nil {
		t.Fatalf("seed %T: %v", value, err)
	}
}
