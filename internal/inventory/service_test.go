package inventory

import (
	"bytes"
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"gorm.io/gorm"

	"github.com/angelmondragon/kitchenledger-backend/internal/units"
	"github.com/angelmondragon/kitchenledger-backend/pkg/db/dbtest"
	"github.com/angelmondragon/kitchenledger-backend/pkg/db/models"
	"github.com/angelmondragon/kitchenledger-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/kitchenledger-backend/pkg/errors"
	"github.com/angelmondragon/kitchenledger-backend/pkg/metrics"
	"github.com/angelmondragon/kitchenledger-backend/pkg/outbox"
)

type ledgerFixture struct {
	conn  *gorm.DB
	svc   Service
	tn    dbtest.Tenant
	beras models.Ingredient
}

func newLedger(t *testing.T) *ledgerFixture {
	t.Helper()
	client := dbtest.Open(t)
	conn := client.DB()
	tn := dbtest.SeedTenant(t, conn)

	converter, err := units.NewService(units.NewRepository(conn))
	require.NoError(t, err)
	publisher := outbox.NewService(outbox.NewRepository(conn), nil)
	svc, err := NewService(NewRepository(conn), client, publisher, converter, metrics.NewInventoryMetrics(prometheus.NewRegistry()), nil)
	require.NoError(t, err)

	return &ledgerFixture{
		conn:  conn,
		svc:   svc,
		tn:    tn,
		beras: tn.Ingredient(t, conn, "Beras", tn.Gram.ID),
	}
}

func (f *ledgerFixture) post(outletID uuid.UUID, qty string, source enums.LedgerSourceType, guard Guard) (*PostResult, error) {
	return f.svc.Post(context.Background(), PostInput{
		OrganizationID: f.tn.Org.ID,
		OutletID:       outletID,
		IngredientID:   f.beras.ID,
		ChangeQty:      decimal.RequireFromString(qty),
		SourceType:     source,
		Guard:          guard,
	})
}

func (f *ledgerFixture) assertReconciles(t *testing.T, outletID uuid.UUID) {
	t.Helper()
	onHand := dbtest.QtyOnHand(t, f.conn, outletID, f.beras.ID)
	sum := dbtest.LedgerSum(t, f.conn, outletID, f.beras.ID)
	assert.True(t, onHand.Equal(sum), "qty_on_hand %s != ledger sum %s", onHand, sum)
}

func (f *ledgerFixture) countOutbox(t *testing.T, eventType enums.OutboxEventType) int64 {
	t.Helper()
	var n int64
	require.NoError(t, f.conn.Model(&models.OutboxEvent{}).Where("event_type = ?", eventType).Count(&n).Error)
	return n
}

func TestNewServiceRequiresDependencies(t *testing.T) {
	_, err := NewService(nil, nil, nil, nil, nil, nil)
	require.Error(t, err)
}

func TestPostKeepsLedgerAndStockReconciled(t *testing.T) {
	f := newLedger(t)
	ctx := context.Background()
	cost := decimal.RequireFromString("3")

	_, err := f.svc.Post(ctx, PostInput{
		OrganizationID: f.tn.Org.ID,
		OutletID:       f.tn.Outlet.ID,
		IngredientID:   f.beras.ID,
		ChangeQty:      decimal.NewFromInt(10),
		SourceType:     enums.LedgerSourcePurchase,
		UnitCost:       &cost,
	})
	require.NoError(t, err)
	f.assertReconciles(t, f.tn.Outlet.ID)

	res, err := f.post(f.tn.Outlet.ID, "-4", enums.LedgerSourceSale, GuardAvailable)
	require.NoError(t, err)
	assert.True(t, res.QtyBefore.Equal(decimal.NewFromInt(10)))
	assert.True(t, res.Stock.QtyOnHand.Equal(decimal.NewFromInt(6)))
	f.assertReconciles(t, f.tn.Outlet.ID)

	_, err = f.svc.Adjust(ctx, AdjustInput{
		OrganizationID: f.tn.Org.ID,
		OutletID:       f.tn.Outlet.ID,
		IngredientID:   f.beras.ID,
		AdjustmentQty:  decimal.RequireFromString("-1.5"),
		Remarks:        "spilled",
		ActorUserID:    f.tn.UserID,
	})
	require.NoError(t, err)
	f.assertReconciles(t, f.tn.Outlet.ID)

	stock, err := f.svc.CurrentStock(ctx, nil, StockKey{OrganizationID: f.tn.Org.ID, OutletID: f.tn.Outlet.ID, IngredientID: f.beras.ID})
	require.NoError(t, err)
	assert.True(t, stock.QtyOnHand.Equal(decimal.RequireFromString("4.5")), "got %s", stock.QtyOnHand)
	assert.True(t, stock.LastCost.Equal(cost), "last cost %s", stock.LastCost)
}

func TestPostRecordsTotalCostFromUnitCost(t *testing.T) {
	f := newLedger(t)
	cost := decimal.RequireFromString("2.5")

	res, err := f.svc.Post(context.Background(), PostInput{
		OrganizationID: f.tn.Org.ID,
		OutletID:       f.tn.Central.ID,
		IngredientID:   f.beras.ID,
		ChangeQty:      decimal.NewFromInt(4),
		SourceType:     enums.LedgerSourcePurchase,
		UnitCost:       &cost,
		Remarks:        "Received from PO",
	})
	require.NoError(t, err)
	require.True(t, res.Entry.TotalCost.Valid)
	assert.True(t, res.Entry.TotalCost.Decimal.Equal(decimal.NewFromInt(10)))
	require.NotNil(t, res.Entry.Remarks)
	assert.Equal(t, "Received from PO", *res.Entry.Remarks)
}

func TestPostAvailableGuardRejectsOverdraw(t *testing.T) {
	f := newLedger(t)
	f.tn.Stock(t, f.conn, f.tn.Central.ID, f.beras, "3", "2")

	_, err := f.post(f.tn.Central.ID, "-5", enums.LedgerSourceTransferOut, GuardAvailable)
	require.Error(t, err)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeInsufficientStock), "got %v", err)

	details, ok := pkgerrors.As(err).Details().(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "Beras", details["ingredient_name"])
	assert.Equal(t, "5", details["required"])
	assert.Equal(t, "3", details["available"])

	assert.True(t, dbtest.QtyOnHand(t, f.conn, f.tn.Central.ID, f.beras.ID).Equal(decimal.NewFromInt(3)))
	f.assertReconciles(t, f.tn.Central.ID)
}

func TestPostAvailableGuardWithoutStockRow(t *testing.T) {
	f := newLedger(t)

	_, err := f.post(f.tn.Outlet.ID, "-1", enums.LedgerSourceSale, GuardAvailable)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeInsufficientStock), "got %v", err)

	var n int64
	require.NoError(t, f.conn.Model(&models.StockLevel{}).Count(&n).Error)
	assert.Zero(t, n)
}

func TestPostUnguardedAllowsNegative(t *testing.T) {
	f := newLedger(t)
	f.tn.Stock(t, f.conn, f.tn.Outlet.ID, f.beras, "1", "2")

	res, err := f.post(f.tn.Outlet.ID, "-3", enums.LedgerSourceSale, GuardNone)
	require.NoError(t, err)
	assert.True(t, res.Stock.QtyOnHand.Equal(decimal.NewFromInt(-2)))
	f.assertReconciles(t, f.tn.Outlet.ID)
}

func TestPostConvertsIntoStockUnit(t *testing.T) {
	f := newLedger(t)
	require.NoError(t, f.conn.Create(&models.UnitConversion{
		FromUnitID: f.tn.Kilogram.ID,
		ToUnitID:   f.tn.Gram.ID,
		Multiplier: decimal.NewFromInt(1000),
	}).Error)

	kg := f.tn.Kilogram.ID
	perKg := decimal.NewFromInt(12000)
	res, err := f.svc.Post(context.Background(), PostInput{
		OrganizationID: f.tn.Org.ID,
		OutletID:       f.tn.Central.ID,
		IngredientID:   f.beras.ID,
		ChangeQty:      decimal.NewFromInt(2),
		UnitID:         &kg,
		UnitCost:       &perKg,
		SourceType:     enums.LedgerSourcePurchase,
	})
	require.NoError(t, err)

	assert.Equal(t, f.tn.Gram.ID, res.Entry.UnitID)
	assert.True(t, res.Entry.ChangeQty.Equal(decimal.NewFromInt(2000)), "change %s", res.Entry.ChangeQty)
	assert.True(t, res.Stock.LastCost.Equal(decimal.NewFromInt(12)), "last cost %s", res.Stock.LastCost)
	assert.True(t, res.Entry.TotalCost.Decimal.Equal(decimal.NewFromInt(24000)))
	f.assertReconciles(t, f.tn.Central.ID)
}

func TestPostFailsWithoutConversionPath(t *testing.T) {
	f := newLedger(t)
	kg := f.tn.Kilogram.ID

	_, err := f.svc.Post(context.Background(), PostInput{
		OrganizationID: f.tn.Org.ID,
		OutletID:       f.tn.Central.ID,
		IngredientID:   f.beras.ID,
		ChangeQty:      decimal.NewFromInt(1),
		UnitID:         &kg,
		SourceType:     enums.LedgerSourcePurchase,
	})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeConversionNotFound), "got %v", err)

	var n int64
	require.NoError(t, f.conn.Model(&models.StockLevel{}).Count(&n).Error)
	assert.Zero(t, n, "lazily created row must roll back")
}

func TestPostRejectsForeignIngredient(t *testing.T) {
	f := newLedger(t)
	other := dbtest.SeedTenant(t, f.conn)
	foreign := other.Ingredient(t, f.conn, "Gula", other.Gram.ID)

	_, err := f.svc.Post(context.Background(), PostInput{
		OrganizationID: f.tn.Org.ID,
		OutletID:       f.tn.Outlet.ID,
		IngredientID:   foreign.ID,
		ChangeQty:      decimal.NewFromInt(1),
		SourceType:     enums.LedgerSourcePurchase,
	})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound), "got %v", err)
}

func TestPostRejectsForeignOutlet(t *testing.T) {
	f := newLedger(t)
	other := dbtest.SeedTenant(t, f.conn)

	_, err := f.svc.Post(context.Background(), PostInput{
		OrganizationID: f.tn.Org.ID,
		OutletID:       other.Outlet.ID,
		IngredientID:   f.beras.ID,
		ChangeQty:      decimal.NewFromInt(5),
		SourceType:     enums.LedgerSourceAdjustment,
		Guard:          GuardNone,
	})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound), "got %v", err)

	var rows int64
	require.NoError(t, f.conn.Model(&models.StockLevel{}).Where("outlet_id = ?", other.Outlet.ID).Count(&rows).Error)
	assert.Zero(t, rows)
	var entries int64
	require.NoError(t, f.conn.Model(&models.LedgerEntry{}).Where("outlet_id = ?", other.Outlet.ID).Count(&entries).Error)
	assert.Zero(t, entries)
}

func TestPostValidatesInput(t *testing.T) {
	f := newLedger(t)

	_, err := f.post(f.tn.Outlet.ID, "0", enums.LedgerSourcePurchase, GuardNone)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	_, err = f.post(f.tn.Outlet.ID, "1", enums.LedgerSourceType("GIFT"), GuardNone)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestAdjustRejectsNegativeWithoutRow(t *testing.T) {
	f := newLedger(t)

	_, err := f.svc.Adjust(context.Background(), AdjustInput{
		OrganizationID: f.tn.Org.ID,
		OutletID:       f.tn.Outlet.ID,
		IngredientID:   f.beras.ID,
		AdjustmentQty:  decimal.NewFromInt(-2),
		ActorUserID:    f.tn.UserID,
	})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation), "got %v", err)
	assert.Equal(t, "Cannot create new stock with negative quantity", pkgerrors.As(err).Message())
}

func TestAdjustRejectsNegativeResult(t *testing.T) {
	f := newLedger(t)
	f.tn.Stock(t, f.conn, f.tn.Outlet.ID, f.beras, "2", "1")

	_, err := f.svc.Adjust(context.Background(), AdjustInput{
		OrganizationID: f.tn.Org.ID,
		OutletID:       f.tn.Outlet.ID,
		IngredientID:   f.beras.ID,
		AdjustmentQty:  decimal.NewFromInt(-3),
		ActorUserID:    f.tn.UserID,
	})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeInsufficientStock), "got %v", err)
	assert.Equal(t, "Adjustment would result in negative stock", pkgerrors.As(err).Message())
	f.assertReconciles(t, f.tn.Outlet.ID)
}

func TestAdjustCreatesRowForPositiveQuantity(t *testing.T) {
	f := newLedger(t)

	res, err := f.svc.Adjust(context.Background(), AdjustInput{
		OrganizationID: f.tn.Org.ID,
		OutletID:       f.tn.Outlet.ID,
		IngredientID:   f.beras.ID,
		AdjustmentQty:  decimal.NewFromInt(7),
		Remarks:        "opening count",
		ActorUserID:    f.tn.UserID,
	})
	require.NoError(t, err)
	assert.Equal(t, enums.LedgerSourceAdjustment, res.Entry.SourceType)
	require.NotNil(t, res.Entry.CreatedBy)
	assert.Equal(t, f.tn.UserID, *res.Entry.CreatedBy)
	assert.Equal(t, f.tn.Gram.ID, res.Stock.UnitID)
	f.assertReconciles(t, f.tn.Outlet.ID)
}

func TestAdjustUnknownOutlet(t *testing.T) {
	f := newLedger(t)

	_, err := f.svc.Adjust(context.Background(), AdjustInput{
		OrganizationID: f.tn.Org.ID,
		OutletID:       uuid.New(),
		IngredientID:   f.beras.ID,
		AdjustmentQty:  decimal.NewFromInt(1),
		ActorUserID:    f.tn.UserID,
	})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound), "got %v", err)
}

func TestCurrentStockReturnsZeroRowWhenMissing(t *testing.T) {
	f := newLedger(t)

	stock, err := f.svc.CurrentStock(context.Background(), nil, StockKey{
		OrganizationID: f.tn.Org.ID,
		OutletID:       f.tn.Outlet.ID,
		IngredientID:   f.beras.ID,
	})
	require.NoError(t, err)
	assert.Equal(t, uuid.Nil, stock.ID)
	assert.True(t, stock.QtyOnHand.IsZero())
	assert.True(t, stock.LastCost.IsZero())
	assert.Equal(t, f.tn.Gram.ID, stock.UnitID)
}

func TestPostEmitsLowStockOnlyOnCrossing(t *testing.T) {
	f := newLedger(t)
	ctx := context.Background()
	f.tn.Stock(t, f.conn, f.tn.Outlet.ID, f.beras, "8", "2")

	_, err := f.svc.SetReorderLevel(ctx, ReorderLevelInput{
		StockKey: StockKey{OrganizationID: f.tn.Org.ID, OutletID: f.tn.Outlet.ID, IngredientID: f.beras.ID},
		MinQty:   decimal.NewFromInt(5),
	})
	require.NoError(t, err)

	res, err := f.post(f.tn.Outlet.ID, "-2", enums.LedgerSourceSale, GuardAvailable)
	require.NoError(t, err)
	assert.False(t, res.WentLow)
	assert.Zero(t, f.countOutbox(t, enums.EventLowStockDetected))

	res, err = f.post(f.tn.Outlet.ID, "-1", enums.LedgerSourceSale, GuardAvailable)
	require.NoError(t, err)
	assert.True(t, res.WentLow)
	assert.EqualValues(t, 1, f.countOutbox(t, enums.EventLowStockDetected))

	_, err = f.post(f.tn.Outlet.ID, "-1", enums.LedgerSourceSale, GuardAvailable)
	require.NoError(t, err)
	assert.EqualValues(t, 1, f.countOutbox(t, enums.EventLowStockDetected))
}

func TestSetReorderLevelCreatesMissingRow(t *testing.T) {
	f := newLedger(t)

	level, err := f.svc.SetReorderLevel(context.Background(), ReorderLevelInput{
		StockKey: StockKey{OrganizationID: f.tn.Org.ID, OutletID: f.tn.Central.ID, IngredientID: f.beras.ID},
		MinQty:   decimal.NewFromInt(500),
	})
	require.NoError(t, err)
	assert.True(t, level.MinQty.Equal(decimal.NewFromInt(500)))
	assert.True(t, level.QtyOnHand.IsZero())
	f.assertReconciles(t, f.tn.Central.ID)

	_, err = f.svc.SetReorderLevel(context.Background(), ReorderLevelInput{
		StockKey: StockKey{OrganizationID: f.tn.Org.ID, OutletID: f.tn.Central.ID, IngredientID: f.beras.ID},
		MinQty:   decimal.NewFromInt(-1),
	})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestLowStockListsCentralFirst(t *testing.T) {
	f := newLedger(t)
	ctx := context.Background()
	gula := f.tn.Ingredient(t, f.conn, "Gula", f.tn.Gram.ID)

	outletLow := f.tn.Stock(t, f.conn, f.tn.Outlet.ID, gula, "1", "1")
	centralLow := f.tn.Stock(t, f.conn, f.tn.Central.ID, f.beras, "4", "1")
	f.tn.Stock(t, f.conn, f.tn.Outlet.ID, f.beras, "50", "1")
	require.NoError(t, f.conn.Model(&models.StockLevel{}).Where("id IN ?", []uuid.UUID{outletLow.ID, centralLow.ID}).
		Update("min_qty", decimal.NewFromInt(10)).Error)

	report, err := f.svc.LowStock(ctx, f.tn.Org.ID)
	require.NoError(t, err)
	require.Equal(t, 2, report.TotalAlerts)
	assert.Equal(t, enums.OutletTypeCentral, report.Items[0].OutletType)
	assert.Equal(t, "Beras", report.Items[0].IngredientName)
	assert.True(t, report.Items[0].Shortage.Equal(decimal.NewFromInt(6)))
	assert.Equal(t, "Gula", report.Items[1].IngredientName)
	assert.True(t, report.Items[1].Shortage.Equal(decimal.NewFromInt(9)))

	rows, err := f.svc.ListStock(ctx, f.tn.Org.ID, StockFilter{OutletID: &f.tn.Outlet.ID})
	require.NoError(t, err)
	require.Len(t, rows, 2)
	for _, row := range rows {
		assert.Equal(t, row.IngredientName == "Gula", row.IsLowStock, row.IngredientName)
	}

	orgs, err := f.svc.OrganizationsWithLowStock(ctx)
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{f.tn.Org.ID}, orgs)
}

func TestListLedgerPaginatesNewestFirst(t *testing.T) {
	f := newLedger(t)
	ctx := context.Background()
	for _, qty := range []string{"1", "2", "3"} {
		_, err := f.post(f.tn.Central.ID, qty, enums.LedgerSourcePurchase, GuardNone)
		require.NoError(t, err)
	}

	first, err := f.svc.ListLedger(ctx, f.tn.Org.ID, LedgerFilter{Limit: 2})
	require.NoError(t, err)
	require.Len(t, first.Items, 2)
	require.NotEmpty(t, first.NextCursor)
	assert.True(t, first.Items[0].ChangeQty.Equal(decimal.NewFromInt(3)))
	assert.Equal(t, "Central Kitchen", first.Items[0].OutletName)
	assert.Equal(t, "g", first.Items[0].UnitSymbol)

	second, err := f.svc.ListLedger(ctx, f.tn.Org.ID, LedgerFilter{Limit: 2, Cursor: first.NextCursor})
	require.NoError(t, err)
	require.Len(t, second.Items, 1)
	assert.Empty(t, second.NextCursor)
	assert.True(t, second.Items[0].ChangeQty.Equal(decimal.NewFromInt(1)))

	sale := enums.LedgerSourceSale
	filtered, err := f.svc.ListLedger(ctx, f.tn.Org.ID, LedgerFilter{SourceType: &sale})
	require.NoError(t, err)
	assert.Empty(t, filtered.Items)

	_, err = f.svc.ListLedger(ctx, f.tn.Org.ID, LedgerFilter{Cursor: "%%%"})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestExportLedgerXLSX(t *testing.T) {
	f := newLedger(t)
	f.tn.Stock(t, f.conn, f.tn.Central.ID, f.beras, "12", "3")
	_, err := f.post(f.tn.Central.ID, "-2", enums.LedgerSourceTransferOut, GuardAvailable)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, f.svc.ExportLedgerXLSX(context.Background(), f.tn.Org.ID, LedgerFilter{}, &buf))

	book, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	rows, err := book.GetRows(ledgerSheet)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, ledgerHeadings, rows[0])
	assert.Equal(t, "Beras", rows[1][2])
	assert.Equal(t, "TRANSFER_OUT", rows[1][3])
	assert.Equal(t, "-2", rows[1][5])
}
