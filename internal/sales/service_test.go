package sales

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/kitchenledger-backend/internal/catalog"
	"github.com/angelmondragon/kitchenledger-backend/internal/inventory"
	"github.com/angelmondragon/kitchenledger-backend/internal/numbering"
	"github.com/angelmondragon/kitchenledger-backend/internal/recipes"
	"github.com/angelmondragon/kitchenledger-backend/internal/units"
	"github.com/angelmondragon/kitchenledger-backend/pkg/db/dbtest"
	"github.com/angelmondragon/kitchenledger-backend/pkg/db/models"
	"github.com/angelmondragon/kitchenledger-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/kitchenledger-backend/pkg/errors"
	"github.com/angelmondragon/kitchenledger-backend/pkg/outbox"
)

type salesFixture struct {
	conn    *gorm.DB
	svc     Service
	stock   inventory.Service
	recipes recipes.Service
	tn      dbtest.Tenant
	telur   models.Ingredient
	dadar   models.Menu
}

// newSales seeds the reference scenario: 5 units of Telur at 2.00 and a
// 20.00 menu that uses 2 per portion.
func newSales(t *testing.T) *salesFixture {
	t.Helper()
	client := dbtest.Open(t)
	conn := client.DB()
	tn := dbtest.SeedTenant(t, conn)

	publisher := outbox.NewService(outbox.NewRepository(conn), nil)
	converter, err := units.NewService(units.NewRepository(conn))
	require.NoError(t, err)
	stock, err := inventory.NewService(inventory.NewRepository(conn), client, publisher, converter, nil, nil)
	require.NoError(t, err)
	lookup, err := catalog.NewService(catalog.NewRepository(conn))
	require.NoError(t, err)
	costing, err := recipes.NewService(recipes.NewRepository(conn), client, lookup, stock, converter, nil)
	require.NoError(t, err)
	numbers, err := numbering.NewService(numbering.NewRepository(conn), nil)
	require.NoError(t, err)
	svc, err := NewService(NewRepository(conn), client, lookup, costing, stock, numbers, publisher, nil)
	require.NoError(t, err)

	telur := tn.Ingredient(t, conn, "Telur", tn.Gram.ID)
	tn.Stock(t, conn, tn.Outlet.ID, telur, "5", "2.00")
	dadar := tn.Menu(t, conn, "Telur Dadar", "20.00")
	tn.Recipe(t, conn, dadar, 1, true, dbtest.Line(telur.ID, "2", tn.Gram.ID))

	return &salesFixture{conn: conn, svc: svc, stock: stock, recipes: costing, tn: tn, telur: telur, dadar: dadar}
}

func (f *salesFixture) sell(menuID uuid.UUID, qty int) (*models.SalesOrder, error) {
	return f.svc.CreateSalesOrder(context.Background(), f.tn.Org.ID, f.tn.UserID, CreateOrderInput{
		OutletID: f.tn.Outlet.ID,
		Items:    []CreateItemInput{{MenuID: menuID, Qty: qty}},
	})
}

func (f *salesFixture) count(t *testing.T, model any, where string, args ...any) int64 {
	t.Helper()
	var n int64
	q := f.conn.Model(model)
	if where != "" {
		q = q.Where(where, args...)
	}
	require.NoError(t, q.Count(&n).Error)
	return n
}

func TestNewServiceRequiresDependencies(t *testing.T) {
	_, err := NewService(nil, nil, nil, nil, nil, nil, nil, nil)
	require.Error(t, err)
}

func TestCreateSalesOrderDeductsAndFreezesCost(t *testing.T) {
	f := newSales(t)

	order, err := f.sell(f.dadar.ID, 2)
	require.NoError(t, err)

	assert.Regexp(t, `^KMG-\d{8}-0001$`, order.OrderNo)
	assert.True(t, order.TotalAmount.Equal(decimal.NewFromInt(40)), "total %s", order.TotalAmount)
	require.Len(t, order.Items, 1)
	item := order.Items[0]
	assert.True(t, item.HPPAtThatTime.Equal(decimal.NewFromInt(4)), "hpp %s", item.HPPAtThatTime)
	assert.True(t, item.TotalItemAmount.Equal(decimal.NewFromInt(40)))
	require.Len(t, item.IngredientUsage, 1)
	assert.True(t, item.IngredientUsage[0].Qty.Equal(decimal.NewFromInt(4)))

	onHand := dbtest.QtyOnHand(t, f.conn, f.tn.Outlet.ID, f.telur.ID)
	assert.True(t, onHand.Equal(decimal.NewFromInt(1)), "on hand %s", onHand)
	assert.True(t, onHand.Equal(dbtest.LedgerSum(t, f.conn, f.tn.Outlet.ID, f.telur.ID)))

	var entry models.LedgerEntry
	require.NoError(t, f.conn.Where("source_type = ?", enums.LedgerSourceSale).First(&entry).Error)
	assert.True(t, entry.ChangeQty.Equal(decimal.NewFromInt(-4)))
	require.NotNil(t, entry.SourceID)
	assert.Equal(t, order.ID, *entry.SourceID)
	require.NotNil(t, entry.Remarks)
	assert.Equal(t, "Sold via order "+order.OrderNo, *entry.Remarks)

	assert.Equal(t, int64(1), f.count(t, &models.OutboxEvent{}, "event_type = ?", enums.EventSalesOrderCompleted))

	loaded, err := f.svc.GetSalesOrder(context.Background(), f.tn.Org.ID, order.ID)
	require.NoError(t, err)
	require.Len(t, loaded.Items, 1)
	require.Len(t, loaded.Items[0].IngredientUsage, 1)
	assert.Equal(t, "Telur", loaded.Items[0].IngredientUsage[0].IngredientName)
}

func TestCreateSalesOrderInsufficientStockPersistsNothing(t *testing.T) {
	f := newSales(t)

	_, err := f.sell(f.dadar.ID, 3)
	require.Error(t, err)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeInsufficientStock), "got %v", err)
	details, ok := pkgerrors.As(err).Details().(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "Telur", details["ingredient_name"])

	assert.Zero(t, f.count(t, &models.SalesOrder{}, ""))
	assert.Zero(t, f.count(t, &models.SalesOrderItem{}, ""))
	assert.Zero(t, f.count(t, &models.LedgerEntry{}, "source_type = ?", enums.LedgerSourceSale))
	assert.Zero(t, f.count(t, &models.DocumentSequence{}, ""))
	assert.True(t, dbtest.QtyOnHand(t, f.conn, f.tn.Outlet.ID, f.telur.ID).Equal(decimal.NewFromInt(5)))

	order, err := f.sell(f.dadar.ID, 1)
	require.NoError(t, err)
	assert.Regexp(t, `-0001$`, order.OrderNo)
}

func TestCreateSalesOrderRollsBackEarlierLines(t *testing.T) {
	f := newSales(t)
	gula := f.tn.Ingredient(t, f.conn, "Gula", f.tn.Gram.ID)
	f.tn.Stock(t, f.conn, f.tn.Outlet.ID, gula, "1", "1.00")
	esTeh := f.tn.Menu(t, f.conn, "Es Teh Manis", "8.00")
	f.tn.Recipe(t, f.conn, esTeh, 1, true, dbtest.Line(gula.ID, "2", f.tn.Gram.ID))

	_, err := f.svc.CreateSalesOrder(context.Background(), f.tn.Org.ID, f.tn.UserID, CreateOrderInput{
		OutletID: f.tn.Outlet.ID,
		Items: []CreateItemInput{
			{MenuID: f.dadar.ID, Qty: 1},
			{MenuID: esTeh.ID, Qty: 1},
		},
	})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeInsufficientStock), "got %v", err)

	assert.True(t, dbtest.QtyOnHand(t, f.conn, f.tn.Outlet.ID, f.telur.ID).Equal(decimal.NewFromInt(5)))
	assert.Zero(t, f.count(t, &models.LedgerEntry{}, "source_type = ?", enums.LedgerSourceSale))
	assert.Zero(t, f.count(t, &models.OutboxEvent{}, ""))
}

func TestCreateSalesOrderSumsSameIngredientAcrossLines(t *testing.T) {
	f := newSales(t)

	_, err := f.svc.CreateSalesOrder(context.Background(), f.tn.Org.ID, f.tn.UserID, CreateOrderInput{
		OutletID: f.tn.Outlet.ID,
		Items: []CreateItemInput{
			{MenuID: f.dadar.ID, Qty: 2},
			{MenuID: f.dadar.ID, Qty: 1},
		},
	})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeInsufficientStock), "got %v", err)
	assert.True(t, dbtest.QtyOnHand(t, f.conn, f.tn.Outlet.ID, f.telur.ID).Equal(decimal.NewFromInt(5)))
}

func TestSalesSnapshotSurvivesRecipeAndCostChanges(t *testing.T) {
	f := newSales(t)
	ctx := context.Background()

	order, err := f.sell(f.dadar.ID, 1)
	require.NoError(t, err)

	_, err = f.recipes.CreateRecipe(ctx, f.tn.Org.ID, f.dadar.ID, f.tn.UserID, recipes.CreateRecipeInput{
		Items: []recipes.RecipeItemInput{{IngredientID: f.telur.ID, Qty: decimal.NewFromInt(3), UnitID: f.tn.Gram.ID}},
	})
	require.NoError(t, err)
	cost := decimal.RequireFromString("9.50")
	_, err = f.stock.Post(ctx, inventory.PostInput{
		OrganizationID: f.tn.Org.ID,
		OutletID:       f.tn.Outlet.ID,
		IngredientID:   f.telur.ID,
		ChangeQty:      decimal.NewFromInt(10),
		SourceType:     enums.LedgerSourcePurchase,
		UnitCost:       &cost,
	})
	require.NoError(t, err)

	loaded, err := f.svc.GetSalesOrder(ctx, f.tn.Org.ID, order.ID)
	require.NoError(t, err)
	item := loaded.Items[0]
	assert.True(t, item.HPPAtThatTime.Equal(decimal.NewFromInt(4)), "hpp %s", item.HPPAtThatTime)
	require.Len(t, item.IngredientUsage, 1)
	assert.True(t, item.IngredientUsage[0].Qty.Equal(decimal.NewFromInt(2)))
	assert.True(t, item.IngredientUsage[0].UnitCost.Equal(decimal.NewFromInt(2)))

	next, err := f.sell(f.dadar.ID, 1)
	require.NoError(t, err)
	assert.True(t, next.Items[0].HPPAtThatTime.Equal(decimal.RequireFromString("28.5")), "hpp %s", next.Items[0].HPPAtThatTime)
}

func TestCreateSalesOrderRejectsInactiveMenu(t *testing.T) {
	f := newSales(t)
	require.NoError(t, f.conn.Model(&models.Menu{}).Where("id = ?", f.dadar.ID).Update("is_active", false).Error)

	_, err := f.sell(f.dadar.ID, 1)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation), "got %v", err)
	assert.Equal(t, "Menu 'Telur Dadar' is not active", pkgerrors.As(err).Message())
}

func TestCreateSalesOrderScopesOutletAndMenu(t *testing.T) {
	f := newSales(t)
	other := dbtest.SeedTenant(t, f.conn)
	ctx := context.Background()

	_, err := f.svc.CreateSalesOrder(ctx, f.tn.Org.ID, f.tn.UserID, CreateOrderInput{
		OutletID: other.Outlet.ID,
		Items:    []CreateItemInput{{MenuID: f.dadar.ID, Qty: 1}},
	})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))

	foreign := other.Menu(t, f.conn, "Soto", "15.00")
	_, err = f.sell(foreign.ID, 1)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))

	_, err = f.sell(f.dadar.ID, 0)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestCreateSalesOrderWithoutRecipe(t *testing.T) {
	f := newSales(t)
	air := f.tn.Menu(t, f.conn, "Air Mineral", "5.00")

	order, err := f.sell(air.ID, 3)
	require.NoError(t, err)
	assert.True(t, order.Items[0].HPPAtThatTime.IsZero())
	assert.Empty(t, order.Items[0].IngredientUsage)
	assert.True(t, order.TotalAmount.Equal(decimal.NewFromInt(15)))
}

func TestConcurrentSalesGetDistinctNumbers(t *testing.T) {
	f := newSales(t)
	air := f.tn.Menu(t, f.conn, "Air Mineral", "5.00")

	const workers = 6
	numbers := make([]string, workers)
	errs := make([]error, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			order, err := f.sell(air.ID, 1)
			errs[i] = err
			if err == nil {
				numbers[i] = order.OrderNo
			}
		}(i)
	}
	wg.Wait()

	seen := map[string]struct{}{}
	for i := 0; i < workers; i++ {
		require.NoError(t, errs[i])
		seen[numbers[i]] = struct{}{}
	}
	assert.Len(t, seen, workers)
}

func TestListSalesOrdersPaginates(t *testing.T) {
	f := newSales(t)
	ctx := context.Background()
	air := f.tn.Menu(t, f.conn, "Air Mineral", "5.00")
	for i := 0; i < 3; i++ {
		_, err := f.sell(air.ID, 1)
		require.NoError(t, err)
	}

	page, err := f.svc.ListSalesOrders(ctx, f.tn.Org.ID, ListFilter{Limit: 2})
	require.NoError(t, err)
	require.Len(t, page.Items, 2)
	require.NotEmpty(t, page.NextCursor)

	rest, err := f.svc.ListSalesOrders(ctx, f.tn.Org.ID, ListFilter{Limit: 2, Cursor: page.NextCursor})
	require.NoError(t, err)
	require.Len(t, rest.Items, 1)
	assert.Empty(t, rest.NextCursor)

	_, err = f.svc.GetSalesOrder(ctx, f.tn.Org.ID, uuid.New())
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))

	_, err = f.svc.ListSalesOrders(ctx, f.tn.Org.ID, ListFilter{Cursor: "%%%"})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestPostingOrderSortsByIngredient(t *testing.T) {
	low := uuid.MustParse("00000000-0000-0000-0000-000000000001")
	mid := uuid.MustParse("00000000-0000-0000-0000-000000000002")
	high := uuid.MustParse("00000000-0000-0000-0000-000000000003")

	items := []models.SalesOrderItem{
		{IngredientUsage: []models.IngredientUsage{{IngredientID: high, Qty: decimal.NewFromInt(1)}, {IngredientID: low}}},
		{IngredientUsage: []models.IngredientUsage{{IngredientID: mid}, {IngredientID: high, Qty: decimal.NewFromInt(2)}}},
	}

	lines := postingOrder(items)
	require.Len(t, lines, 4)
	got := make([]uuid.UUID, 0, len(lines))
	for _, line := range lines {
		got = append(got, line.IngredientID)
	}
	assert.Equal(t, []uuid.UUID{low, mid, high, high}, got)
	assert.True(t, lines[2].Qty.Equal(decimal.NewFromInt(1)), "equal ids keep line order")
}
