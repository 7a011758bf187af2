package controllers

import (
	"net/http"

	"github.com/angelmondragon/kitchenledger-backend/api/responses"
	"github.com/angelmondragon/kitchenledger-backend/api/validators"
	"github.com/angelmondragon/kitchenledger-backend/internal/catalog"
	"github.com/angelmondragon/kitchenledger-backend/pkg/logger"
)

func ListOutlets(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, err := principalFrom(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		outlets, err := svc.ListOutlets(r.Context(), p.OrganizationID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, outlets)
	}
}

// ListIngredients returns the organization's ingredients; active=true hides
// retired ones.
func ListIngredients(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, err := principalFrom(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		activeOnly, err := validators.ParseQueryBool(r, "active")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		ingredients, err := svc.ListIngredients(r.Context(), p.OrganizationID, activeOnly)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, ingredients)
	}
}

func ListMenus(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, err := principalFrom(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		activeOnly, err := validators.ParseQueryBool(r, "active")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		menus, err := svc.ListMenus(r.Context(), p.OrganizationID, activeOnly)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, menus)
	}
}
