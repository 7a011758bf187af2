package controllers

import (
	"bytes"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/angelmondragon/kitchenledger-backend/api/responses"
	"github.com/angelmondragon/kitchenledger-backend/api/validators"
	"github.com/angelmondragon/kitchenledger-backend/internal/inventory"
	"github.com/angelmondragon/kitchenledger-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/kitchenledger-backend/pkg/errors"
	"github.com/angelmondragon/kitchenledger-backend/pkg/logger"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// ListStock returns stock rows for the organization, optionally for one
// outlet or only those at or below their reorder level.
func ListStock(svc inventory.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, serviceUnavailable("inventory"))
			return
		}
		p, err := principalFrom(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var filter inventory.StockFilter
		if filter.OutletID, err = validators.ParseQueryUUID(r, "outlet_id"); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if filter.LowStockOnly, err = validators.ParseQueryBool(r, "low_stock"); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		rows, err := svc.ListStock(r.Context(), p.OrganizationID, filter)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, rows)
	}
}

// GetStockLevel returns one stock row, or a zero row when the ingredient has
// never moved at the outlet.
func GetStockLevel(svc inventory.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, serviceUnavailable("inventory"))
			return
		}
		key, err := stockKeyFrom(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		level, err := svc.CurrentStock(r.Context(), nil, key)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, level)
	}
}

func SetReorderLevel(svc inventory.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, serviceUnavailable("inventory"))
			return
		}
		key, err := stockKeyFrom(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		p, _ := principalFrom(r)
		if err := ensureOutletAccess(p, key.OutletID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req inventory.ReorderLevelRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		level, err := svc.SetReorderLevel(r.Context(), inventory.ReorderLevelInput{StockKey: key, MinQty: req.MinQty})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, level)
	}
}

// PostLedgerEntry records a raw movement. The ledger itself does not guard
// against negative stock.
func PostLedgerEntry(svc inventory.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, serviceUnavailable("inventory"))
			return
		}
		p, err := principalFrom(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req inventory.PostRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		sourceType, err := enums.ParseLedgerSourceType(strings.ToUpper(strings.TrimSpace(req.SourceType)))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid source_type"))
			return
		}

		actor := p.UserID
		result, err := svc.Post(r.Context(), inventory.PostInput{
			OrganizationID: p.OrganizationID,
			OutletID:       req.OutletID,
			IngredientID:   req.IngredientID,
			ChangeQty:      req.ChangeQty,
			SourceType:     sourceType,
			SourceID:       req.SourceID,
			UnitID:         req.UnitID,
			UnitCost:       req.UnitCost,
			TotalCost:      req.TotalCost,
			Remarks:        req.Remarks,
			ActorUserID:    &actor,
			Guard:          inventory.GuardNone,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteCreated(w, result)
	}
}

func AdjustStock(svc inventory.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, serviceUnavailable("inventory"))
			return
		}
		p, err := principalFrom(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req inventory.AdjustRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := ensureOutletAccess(p, req.OutletID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.Adjust(r.Context(), inventory.AdjustInput{
			OrganizationID: p.OrganizationID,
			OutletID:       req.OutletID,
			IngredientID:   req.IngredientID,
			AdjustmentQty:  req.AdjustmentQty,
			UnitID:         req.UnitID,
			UnitCost:       req.UnitCost,
			Remarks:        req.Remarks,
			ActorUserID:    p.UserID,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteCreated(w, result)
	}
}

func ListLedger(svc inventory.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, serviceUnavailable("inventory"))
			return
		}
		p, err := principalFrom(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		filter, err := ledgerFilterFrom(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		page, err := svc.ListLedger(r.Context(), p.OrganizationID, filter)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, page)
	}
}

// ExportLedger streams the filtered ledger as an XLSX workbook. The workbook
// is built in memory first so failures still produce a JSON error.
func ExportLedger(svc inventory.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, serviceUnavailable("inventory"))
			return
		}
		p, err := principalFrom(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		filter, err := ledgerFilterFrom(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var buf bytes.Buffer
		if err := svc.ExportLedgerXLSX(r.Context(), p.OrganizationID, filter, &buf); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		filename := fmt.Sprintf("inventory-ledger-%s.xlsx", time.Now().UTC().Format("20060102"))
		w.Header().Set("Content-Type", xlsxContentType)
		w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
		w.WriteHeader(http.StatusOK)
		if _, err := buf.WriteTo(w); err != nil && logg != nil {
			logg.Error(r.Context(), "write ledger export", err)
		}
	}
}

func LowStock(svc inventory.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, serviceUnavailable("inventory"))
			return
		}
		p, err := principalFrom(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		report, err := svc.LowStock(r.Context(), p.OrganizationID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, report)
	}
}

func stockKeyFrom(r *http.Request) (inventory.StockKey, error) {
	p, err := principalFrom(r)
	if err != nil {
		return inventory.StockKey{}, err
	}
	outletID, err := validators.ParseURLUUID(r, "outletId")
	if err != nil {
		return inventory.StockKey{}, err
	}
	ingredientID, err := validators.ParseURLUUID(r, "ingredientId")
	if err != nil {
		return inventory.StockKey{}, err
	}
	return inventory.StockKey{OrganizationID: p.OrganizationID, OutletID: outletID, IngredientID: ingredientID}, nil
}

func ledgerFilterFrom(r *http.Request) (inventory.LedgerFilter, error) {
	var filter inventory.LedgerFilter
	var err error
	if filter.OutletID, err = validators.ParseQueryUUID(r, "outlet_id"); err != nil {
		return filter, err
	}
	if filter.IngredientID, err = validators.ParseQueryUUID(r, "ingredient_id"); err != nil {
		return filter, err
	}
	if raw := strings.TrimSpace(r.URL.Query().Get("source_type")); raw != "" {
		st, err := enums.ParseLedgerSourceType(strings.ToUpper(raw))
		if err != nil {
			return filter, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid source_type")
		}
		filter.SourceType = &st
	}
	if filter.Limit, filter.Cursor, err = pageParams(r); err != nil {
		return filter, err
	}
	return filter, nil
}
