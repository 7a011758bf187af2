package units

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/kitchenledger-backend/pkg/db/dbtest"
	"github.com/angelmondragon/kitchenledger-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/kitchenledger-backend/pkg/errors"
)

type converterFixture struct {
	conn *gorm.DB
	svc  Converter
	tn   dbtest.Tenant
	ml   models.Unit
}

func newConverter(t *testing.T) *converterFixture {
	t.Helper()
	conn := dbtest.Open(t).DB()
	tn := dbtest.SeedTenant(t, conn)

	ml := models.Unit{Name: "Millilitre", Symbol: "ml"}
	require.NoError(t, conn.Create(&ml).Error)

	svc, err := NewService(NewRepository(conn))
	require.NoError(t, err)
	return &converterFixture{conn: conn, svc: svc, tn: tn, ml: ml}
}

func (f *converterFixture) add(t *testing.T, conv models.UnitConversion) {
	t.Helper()
	require.NoError(t, f.conn.Create(&conv).Error)
}

func TestConvertSameUnitIsIdentity(t *testing.T) {
	f := newConverter(t)

	got, err := f.svc.Convert(context.Background(), f.tn.Gram.ID, f.tn.Gram.ID, decimal.RequireFromString("12.5"), nil)
	require.NoError(t, err)
	assert.True(t, got.Converted.Equal(decimal.RequireFromString("12.5")))
	assert.True(t, got.Multiplier.Equal(decimal.NewFromInt(1)))
}

func TestConvertUsesGlobalDirectMultiplier(t *testing.T) {
	f := newConverter(t)
	f.add(t, models.UnitConversion{FromUnitID: f.tn.Kilogram.ID, ToUnitID: f.tn.Gram.ID, Multiplier: decimal.NewFromInt(1000)})

	got, err := f.svc.Convert(context.Background(), f.tn.Kilogram.ID, f.tn.Gram.ID, decimal.RequireFromString("2.5"), nil)
	require.NoError(t, err)
	assert.True(t, got.Converted.Equal(decimal.NewFromInt(2500)), "got %s", got.Converted)
	assert.False(t, got.Inverse)
}

func TestConvertPrefersIngredientSpecificMultiplier(t *testing.T) {
	f := newConverter(t)
	santan := f.tn.Ingredient(t, f.conn, "Santan", f.ml.ID)

	f.add(t, models.UnitConversion{FromUnitID: f.ml.ID, ToUnitID: f.tn.Gram.ID, Multiplier: decimal.NewFromInt(1)})
	f.add(t, models.UnitConversion{IngredientID: &santan.ID, FromUnitID: f.ml.ID, ToUnitID: f.tn.Gram.ID, Multiplier: decimal.RequireFromString("1.03")})

	got, err := f.svc.Convert(context.Background(), f.ml.ID, f.tn.Gram.ID, decimal.NewFromInt(100), &santan.ID)
	require.NoError(t, err)
	assert.True(t, got.Converted.Equal(decimal.NewFromInt(103)), "got %s", got.Converted)

	other := uuid.New()
	got, err = f.svc.Convert(context.Background(), f.ml.ID, f.tn.Gram.ID, decimal.NewFromInt(100), &other)
	require.NoError(t, err)
	assert.True(t, got.Converted.Equal(decimal.NewFromInt(100)), "falls back to global, got %s", got.Converted)
}

func TestConvertFallsBackToInversePair(t *testing.T) {
	f := newConverter(t)
	f.add(t, models.UnitConversion{FromUnitID: f.tn.Kilogram.ID, ToUnitID: f.tn.Gram.ID, Multiplier: decimal.NewFromInt(1000)})

	got, err := f.svc.Convert(context.Background(), f.tn.Gram.ID, f.tn.Kilogram.ID, decimal.NewFromInt(750), nil)
	require.NoError(t, err)
	assert.True(t, got.Inverse)
	assert.True(t, got.Converted.Equal(decimal.RequireFromString("0.75")), "got %s", got.Converted)
}

func TestConvertRoundTrip(t *testing.T) {
	f := newConverter(t)
	f.add(t, models.UnitConversion{FromUnitID: f.tn.Kilogram.ID, ToUnitID: f.tn.Gram.ID, Multiplier: decimal.NewFromInt(1000)})
	f.add(t, models.UnitConversion{FromUnitID: f.ml.ID, ToUnitID: f.tn.Gram.ID, Multiplier: decimal.RequireFromString("0.96")})

	ctx := context.Background()
	pairs := [][2]uuid.UUID{{f.tn.Kilogram.ID, f.tn.Gram.ID}, {f.ml.ID, f.tn.Gram.ID}, {f.tn.Gram.ID, f.ml.ID}}
	for _, pair := range pairs {
		x := decimal.RequireFromString("3.3333")
		there, err := f.svc.Convert(ctx, pair[1], pair[0], x, nil)
		require.NoError(t, err)
		back, err := f.svc.Convert(ctx, pair[0], pair[1], there.Converted, nil)
		require.NoError(t, err)
		diff := back.Converted.Sub(x).Abs()
		assert.True(t, diff.LessThan(decimal.RequireFromString("0.000001")), "round trip drift %s", diff)
	}
}

func TestConvertReportsConversionNotFound(t *testing.T) {
	f := newConverter(t)

	_, err := f.svc.Convert(context.Background(), f.ml.ID, f.tn.Kilogram.ID, decimal.NewFromInt(1), nil)
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeConversionNotFound))
}

func TestListConversionsScopesIngredientRowsToOrganization(t *testing.T) {
	client := dbtest.Open(t)
	conn := client.DB()
	tn := dbtest.SeedTenant(t, conn)
	other := dbtest.SeedTenant(t, conn)

	mine := tn.Ingredient(t, conn, "Gula", tn.Gram.ID)
	theirs := other.Ingredient(t, conn, "Garam", other.Gram.ID)
	require.NoError(t, conn.Create(&models.UnitConversion{FromUnitID: tn.Kilogram.ID, ToUnitID: tn.Gram.ID, Multiplier: decimal.NewFromInt(1000)}).Error)
	require.NoError(t, conn.Create(&models.UnitConversion{IngredientID: &mine.ID, FromUnitID: tn.Kilogram.ID, ToUnitID: tn.Gram.ID, Multiplier: decimal.NewFromInt(1000)}).Error)
	require.NoError(t, conn.Create(&models.UnitConversion{IngredientID: &theirs.ID, FromUnitID: other.Kilogram.ID, ToUnitID: other.Gram.ID, Multiplier: decimal.NewFromInt(1000)}).Error)

	svc, err := NewService(NewRepository(conn))
	require.NoError(t, err)

	rows, err := svc.ListConversions(context.Background(), tn.Org.ID, nil)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	for _, row := range rows {
		if row.IngredientID != nil {
			assert.Equal(t, mine.ID, *row.IngredientID)
		}
		assert.Equal(t, "kg", row.FromUnitSymbol)
	}
}
