package controllers

import (
	"net/http"

	"github.com/angelmondragon/kitchenledger-backend/api/responses"
	"github.com/angelmondragon/kitchenledger-backend/api/validators"
	"github.com/angelmondragon/kitchenledger-backend/internal/units"
	"github.com/angelmondragon/kitchenledger-backend/pkg/logger"
)

// ListUnitConversions returns global conversions plus the organization's
// ingredient-specific ones, optionally narrowed to one ingredient.
func ListUnitConversions(conv units.Converter, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if conv == nil {
			responses.WriteError(r.Context(), logg, w, serviceUnavailable("units"))
			return
		}
		p, err := principalFrom(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		ingredientID, err := validators.ParseQueryUUID(r, "ingredient_id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		rows, err := conv.ListConversions(r.Context(), p.OrganizationID, ingredientID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, rows)
	}
}

func ConvertUnits(conv units.Converter, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if conv == nil {
			responses.WriteError(r.Context(), logg, w, serviceUnavailable("units"))
			return
		}
		var req units.ConvertRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		out, err := conv.Convert(r.Context(), req.FromUnitID, req.ToUnitID, req.Qty, req.IngredientID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, out)
	}
}
