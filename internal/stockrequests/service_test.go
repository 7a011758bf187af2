package stockrequests

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/kitchenledger-backend/internal/catalog"
	"github.com/angelmondragon/kitchenledger-backend/internal/inventory"
	"github.com/angelmondragon/kitchenledger-backend/internal/numbering"
	"github.com/angelmondragon/kitchenledger-backend/internal/units"
	"github.com/angelmondragon/kitchenledger-backend/pkg/db/dbtest"
	"github.com/angelmondragon/kitchenledger-backend/pkg/db/models"
	"github.com/angelmondragon/kitchenledger-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/kitchenledger-backend/pkg/errors"
	"github.com/angelmondragon/kitchenledger-backend/pkg/outbox"
)

type srFixture struct {
	conn *gorm.DB
	svc  Service
	tn   dbtest.Tenant
}

func newRequests(t *testing.T) *srFixture {
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
	numbers, err := numbering.NewService(numbering.NewRepository(conn), nil)
	require.NoError(t, err)
	svc, err := NewService(NewRepository(conn), client, lookup, stock, converter, numbers, publisher, nil)
	require.NoError(t, err)

	return &srFixture{conn: conn, svc: svc, tn: tn}
}

func (f *srFixture) request(t *testing.T, ing models.Ingredient, qty string, unitID uuid.UUID) *models.StockRequest {
	t.Helper()
	request, err := f.svc.Create(context.Background(), f.tn.Org.ID, f.tn.UserID, CreateInput{
		FromOutletID: f.tn.Outlet.ID,
		ToOutletID:   f.tn.Central.ID,
		Items:        []CreateItemInput{{IngredientID: ing.ID, RequestedQty: decimal.RequireFromString(qty), RequestedUnitID: unitID}},
	})
	require.NoError(t, err)
	return request
}

func (f *srFixture) approve(requestID, itemID uuid.UUID, qty string) (*models.StockRequest, error) {
	return f.svc.Approve(context.Background(), f.tn.Org.ID, requestID, f.tn.UserID, ApproveInput{
		Items: []ApproveItemInput{{ItemID: itemID, ApprovedQty: decimal.RequireFromString(qty)}},
	})
}

func TestNewServiceRequiresDependencies(t *testing.T) {
	_, err := NewService(nil, nil, nil, nil, nil, nil, nil, nil)
	require.Error(t, err)
}

func TestCreateRequiresCentralDestination(t *testing.T) {
	f := newRequests(t)
	ctx := context.Background()
	gula := f.tn.Ingredient(t, f.conn, "Gula", f.tn.Gram.ID)
	items := []CreateItemInput{{IngredientID: gula.ID, RequestedQty: decimal.NewFromInt(1), RequestedUnitID: f.tn.Gram.ID}}

	_, err := f.svc.Create(ctx, f.tn.Org.ID, f.tn.UserID, CreateInput{FromOutletID: f.tn.Central.ID, ToOutletID: f.tn.Outlet.ID, Items: items})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation), "got %v", err)

	_, err = f.svc.Create(ctx, f.tn.Org.ID, f.tn.UserID, CreateInput{FromOutletID: f.tn.Central.ID, ToOutletID: f.tn.Central.ID, Items: items})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	request := f.request(t, gula, "1", f.tn.Gram.ID)
	assert.Regexp(t, `^SR-\d{8}-0001$`, request.RequestNo)
	assert.Equal(t, enums.StockRequestStatusPending, request.Status)
	assert.True(t, request.Items[0].ApprovedQty.IsZero())
}

func TestApprovalIsBoundedByRequestAndCentralStock(t *testing.T) {
	cases := []struct {
		requested, available, approve, want string
	}{
		{"5", "3", "10", "3"},
		{"5", "30", "10", "5"},
		{"5", "30", "2", "2"},
		{"5", "0", "5", "0"},
		{"2.5", "2.4", "2.5", "2.4"},
	}
	for i, tc := range cases {
		t.Run(fmt.Sprintf("case_%d", i), func(t *testing.T) {
			f := newRequests(t)
			ing := f.tn.Ingredient(t, f.conn, "Gula", f.tn.Gram.ID)
			if tc.available != "0" {
				f.tn.Stock(t, f.conn, f.tn.Central.ID, ing, tc.available, "1")
			}
			request := f.request(t, ing, tc.requested, f.tn.Gram.ID)

			approved, err := f.approve(request.ID, request.Items[0].ID, tc.approve)
			require.NoError(t, err)
			assert.Equal(t, enums.StockRequestStatusApproved, approved.Status)

			got := approved.Items[0].ApprovedQty
			bound := decimal.Min(decimal.RequireFromString(tc.requested), decimal.RequireFromString(tc.available))
			assert.True(t, got.LessThanOrEqual(bound), "approved %s exceeds %s", got, bound)
			assert.True(t, got.Equal(decimal.RequireFromString(tc.want)), "approved %s want %s", got, tc.want)

			stored, err := f.svc.Get(context.Background(), f.tn.Org.ID, request.ID)
			require.NoError(t, err)
			assert.True(t, stored.Items[0].ApprovedQty.Equal(got))
			require.NotNil(t, stored.ApprovedBy)
		})
	}
}

func TestApproveHasNoLedgerEffect(t *testing.T) {
	f := newRequests(t)
	gula := f.tn.Ingredient(t, f.conn, "Gula", f.tn.Gram.ID)
	f.tn.Stock(t, f.conn, f.tn.Central.ID, gula, "10", "1")
	request := f.request(t, gula, "4", f.tn.Gram.ID)

	_, err := f.approve(request.ID, request.Items[0].ID, "4")
	require.NoError(t, err)

	var entries, events int64
	require.NoError(t, f.conn.Model(&models.LedgerEntry{}).Count(&entries).Error)
	assert.Equal(t, int64(1), entries)
	assert.True(t, dbtest.QtyOnHand(t, f.conn, f.tn.Central.ID, gula.ID).Equal(decimal.NewFromInt(10)))
	require.NoError(t, f.conn.Model(&models.OutboxEvent{}).Where("event_type = ?", enums.EventStockRequestApproved).Count(&events).Error)
	assert.Equal(t, int64(1), events)
}

func TestApproveReadsCentralStockInRequestedUnit(t *testing.T) {
	f := newRequests(t)
	f.tn.Conversion(t, f.conn, f.tn.Kilogram.ID, f.tn.Gram.ID, "1000")
	tepung := f.tn.Ingredient(t, f.conn, "Tepung", f.tn.Gram.ID)
	f.tn.Stock(t, f.conn, f.tn.Central.ID, tepung, "2500", "0.01")
	request := f.request(t, tepung, "4", f.tn.Kilogram.ID)

	approved, err := f.approve(request.ID, request.Items[0].ID, "4")
	require.NoError(t, err)
	assert.True(t, approved.Items[0].ApprovedQty.Equal(decimal.RequireFromString("2.5")), "approved %s", approved.Items[0].ApprovedQty)
}

func TestApproveRejectsForeignItemAndNegativeQty(t *testing.T) {
	f := newRequests(t)
	gula := f.tn.Ingredient(t, f.conn, "Gula", f.tn.Gram.ID)
	request := f.request(t, gula, "4", f.tn.Gram.ID)

	_, err := f.approve(request.ID, uuid.New(), "1")
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
	_, err = f.approve(request.ID, request.Items[0].ID, "-1")
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	stored, err := f.svc.Get(context.Background(), f.tn.Org.ID, request.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.StockRequestStatusPending, stored.Status)
}

func TestRequestStateMachine(t *testing.T) {
	f := newRequests(t)
	ctx := context.Background()
	gula := f.tn.Ingredient(t, f.conn, "Gula", f.tn.Gram.ID)
	org := f.tn.Org.ID
	user := f.tn.UserID

	rejected := f.request(t, gula, "1", f.tn.Gram.ID)
	out, err := f.svc.Reject(ctx, org, rejected.ID, user)
	require.NoError(t, err)
	assert.Equal(t, enums.StockRequestStatusRejected, out.Status)
	_, err = f.svc.Cancel(ctx, org, rejected.ID, user)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeInvalidTransition))
	_, err = f.approve(rejected.ID, rejected.Items[0].ID, "1")
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeInvalidTransition))
	assert.Equal(t, "Cannot approve request with status: REJECTED", pkgerrors.As(err).Message())

	approved := f.request(t, gula, "1", f.tn.Gram.ID)
	_, err = f.approve(approved.ID, approved.Items[0].ID, "0")
	require.NoError(t, err)
	_, err = f.svc.Reject(ctx, org, approved.ID, user)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeInvalidTransition))
	out, err = f.svc.Cancel(ctx, org, approved.ID, user)
	require.NoError(t, err)
	assert.Equal(t, enums.StockRequestStatusCancelled, out.Status)

	_, err = f.svc.Reject(ctx, org, uuid.New(), user)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestLinkerFulfillsApprovedRequestOnly(t *testing.T) {
	f := newRequests(t)
	ctx := context.Background()
	gula := f.tn.Ingredient(t, f.conn, "Gula", f.tn.Gram.ID)
	request := f.request(t, gula, "1", f.tn.Gram.ID)

	err := f.conn.Transaction(func(tx *gorm.DB) error {
		_, err := f.svc.ForTransfer(ctx, tx, f.tn.Org.ID, request.ID)
		return err
	})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	_, err = f.approve(request.ID, request.Items[0].ID, "0")
	require.NoError(t, err)
	require.NoError(t, f.conn.Transaction(func(tx *gorm.DB) error {
		if _, err := f.svc.ForTransfer(ctx, tx, f.tn.Org.ID, request.ID); err != nil {
			return err
		}
		return f.svc.MarkFulfilled(ctx, tx, f.tn.Org.ID, request.ID)
	}))

	stored, err := f.svc.Get(ctx, f.tn.Org.ID, request.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.StockRequestStatusFulfilled, stored.Status)

	_, err = f.svc.Cancel(ctx, f.tn.Org.ID, request.ID, f.tn.UserID)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeInvalidTransition))
}

func TestListFiltersByStatus(t *testing.T) {
	f := newRequests(t)
	ctx := context.Background()
	gula := f.tn.Ingredient(t, f.conn, "Gula", f.tn.Gram.ID)
	first := f.request(t, gula, "1", f.tn.Gram.ID)
	f.request(t, gula, "2", f.tn.Gram.ID)
	_, err := f.svc.Reject(ctx, f.tn.Org.ID, first.ID, f.tn.UserID)
	require.NoError(t, err)

	pending := enums.StockRequestStatusPending
	page, err := f.svc.List(ctx, f.tn.Org.ID, ListFilter{Status: &pending})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.NotEqual(t, first.ID, page.Items[0].ID)
}
