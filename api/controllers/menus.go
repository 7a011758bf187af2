package controllers

import (
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/kitchenledger-backend/api/responses"
	"github.com/angelmondragon/kitchenledger-backend/api/validators"
	"github.com/angelmondragon/kitchenledger-backend/internal/catalog"
	"github.com/angelmondragon/kitchenledger-backend/internal/recipes"
	"github.com/angelmondragon/kitchenledger-backend/pkg/db/models"
	"github.com/angelmondragon/kitchenledger-backend/pkg/logger"
)

type menuDetail struct {
	Menu    *models.Menu    `json:"menu"`
	Recipes []models.Recipe `json:"recipes"`
}

func CreateIngredient(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, serviceUnavailable("catalog"))
			return
		}
		p, err := principalFrom(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req catalog.CreateIngredientInput
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		ingredient, err := svc.CreateIngredient(r.Context(), p.OrganizationID, req)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteCreated(w, ingredient)
	}
}

func CreateMenu(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, serviceUnavailable("catalog"))
			return
		}
		p, err := principalFrom(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req catalog.CreateMenuInput
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		menu, err := svc.CreateMenu(r.Context(), p.OrganizationID, req)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteCreated(w, menu)
	}
}

// GetMenu returns the menu with every recipe version, newest first.
func GetMenu(svc catalog.Service, recipeSvc recipes.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil || recipeSvc == nil {
			responses.WriteError(r.Context(), logg, w, serviceUnavailable("menu"))
			return
		}
		p, err := principalFrom(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		menuID, err := validators.ParseURLUUID(r, "menuId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		menu, err := svc.Menu(r.Context(), nil, p.OrganizationID, menuID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		versions, err := recipeSvc.ListRecipes(r.Context(), p.OrganizationID, menuID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, menuDetail{Menu: menu, Recipes: versions})
	}
}

func CreateRecipe(svc recipes.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, serviceUnavailable("recipes"))
			return
		}
		p, err := principalFrom(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		menuID, err := validators.ParseURLUUID(r, "menuId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req recipes.CreateRecipeInput
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		recipe, err := svc.CreateRecipe(r.Context(), p.OrganizationID, menuID, p.UserID, req)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteCreated(w, recipe)
	}
}

// MenuCost prices qty units of a menu at an outlet. Without outlet_id the
// central outlet's costs are used.
func MenuCost(svc recipes.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, serviceUnavailable("recipes"))
			return
		}
		p, err := principalFrom(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		menuID, err := validators.ParseURLUUID(r, "menuId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		outletID, err := validators.ParseQueryUUID(r, "outlet_id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		qty, err := validators.ParseQueryDecimal(r, "qty", decimal.NewFromInt(1))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		view, err := svc.MenuCost(r.Context(), p.OrganizationID, menuID, outletID, qty)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, view)
	}
}
