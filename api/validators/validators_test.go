package validators

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgerrors "github.com/angelmondragon/kitchenledger-backend/pkg/errors"
)

type lineBody struct {
	MenuID uuid.UUID `json:"menu_id" validate:"required"`
	Qty    int       `json:"qty" validate:"required,gt=0"`
}

type orderBody struct {
	OutletID uuid.UUID  `json:"outlet_id" validate:"required"`
	Items    []lineBody `json:"items" validate:"required,min=1,dive"`
}

func TestDecodeJSONBodyReportsNestedFields(t *testing.T) {
	body := `{"outlet_id":"` + uuid.NewString() + `","items":[{"menu_id":"` + uuid.NewString() + `","qty":0}]}`
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))

	var dest orderBody
	err := DecodeJSONBody(req, &dest)
	require.Error(t, err)

	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeValidation, typed.Code())
	details, ok := typed.Details().(map[string]string)
	require.True(t, ok)
	assert.Contains(t, details, "items[0].qty")
}

func TestDecodeJSONBodyRejectsUnknownFields(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"outlet":"x"}`))
	var dest orderBody
	assert.True(t, pkgerrors.IsCode(DecodeJSONBody(req, &dest), pkgerrors.CodeValidation))
}

func TestDecodeJSONBodyRejectsNilUUID(t *testing.T) {
	body := `{"outlet_id":"00000000-0000-0000-0000-000000000000","items":[{"menu_id":"` + uuid.NewString() + `","qty":1}]}`
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	var dest orderBody
	assert.Error(t, DecodeJSONBody(req, &dest))
}

func TestQueryParsers(t *testing.T) {
	id := uuid.New()
	req := httptest.NewRequest(http.MethodGet, "/?outlet_id="+id.String()+"&qty=2.5&low=true&limit=500", nil)

	got, err := ParseQueryUUID(req, "outlet_id")
	require.NoError(t, err)
	assert.Equal(t, id, *got)

	missing, err := ParseQueryUUID(req, "ingredient_id")
	require.NoError(t, err)
	assert.Nil(t, missing)

	qty, err := ParseQueryDecimal(req, "qty", decimal.NewFromInt(1))
	require.NoError(t, err)
	assert.True(t, qty.Equal(decimal.RequireFromString("2.5")))

	low, err := ParseQueryBool(req, "low")
	require.NoError(t, err)
	assert.True(t, low)

	_, err = ParseQueryInt(req, "limit", 25, 1, 100)
	assert.Error(t, err)
}

func TestParseQueryDate(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/?date=2026-03-09&bad=09-03-2026", nil)

	day, err := ParseQueryDate(req, "date")
	require.NoError(t, err)
	assert.Equal(t, "2026-03-09", day.Format("2006-01-02"))

	missing, err := ParseQueryDate(req, "start_date")
	require.NoError(t, err)
	assert.Nil(t, missing)

	_, err = ParseQueryDate(req, "bad")
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestParseURLUUID(t *testing.T) {
	id := uuid.New()
	rc := chi.NewRouteContext()
	rc.URLParams.Add("menuId", id.String())
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rc))

	got, err := ParseURLUUID(req, "menuId")
	require.NoError(t, err)
	assert.Equal(t, id, got)

	_, err = ParseURLUUID(req, "orderId")
	assert.Error(t, err)
}

type priceBody struct {
	Qty  decimal.Decimal  `json:"qty" validate:"gt=0"`
	Cost *decimal.Decimal `json:"cost,omitempty" validate:"omitempty,gte=0"`
}

func TestDecodeJSONBodyDecimalRules(t *testing.T) {
	cases := map[string]struct {
		body  string
		field string
	}{
		"zero qty":      {`{"qty":"0"}`, "qty"},
		"negative cost": {`{"qty":"1.5","cost":"-2"}`, "cost"},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tc.body))
			var dest priceBody
			err := DecodeJSONBody(req, &dest)
			require.Error(t, err)
			details, ok := pkgerrors.As(err).Details().(map[string]string)
			require.True(t, ok)
			assert.Contains(t, details, tc.field)
		})
	}

	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"qty":"0.25"}`))
	var dest priceBody
	require.NoError(t, DecodeJSONBody(req, &dest))
	assert.True(t, dest.Qty.Equal(decimal.RequireFromString("0.25")))
}

func TestDecodeJSONBodyRejectsTrailingData(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"qty":"1"}{"qty":"2"}`))
	var dest priceBody
	assert.True(t, pkgerrors.IsCode(DecodeJSONBody(req, &dest), pkgerrors.CodeValidation))
}
