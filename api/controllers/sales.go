package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/angelmondragon/kitchenledger-backend/api/middleware"
	"github.com/angelmondragon/kitchenledger-backend/api/responses"
	"github.com/angelmondragon/kitchenledger-backend/api/validators"
	"github.com/angelmondragon/kitchenledger-backend/internal/sales"
	"github.com/angelmondragon/kitchenledger-backend/pkg/logger"
)

// CreateSalesOrder records a completed sale and consumes recipe stock.
func CreateSalesOrder(svc sales.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, serviceUnavailable("sales"))
			return
		}
		p, err := principalFrom(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req sales.CreateOrderInput
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := ensureOutletAccess(p, req.OutletID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.CreateSalesOrder(r.Context(), p.OrganizationID, p.UserID, req)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteCreated(w, order)
	}
}

func ListSalesOrders(svc sales.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, serviceUnavailable("sales"))
			return
		}
		p, err := principalFrom(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var filter sales.ListFilter
		if filter.OutletID, err = validators.ParseQueryUUID(r, "outlet_id"); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if filter.Limit, filter.Cursor, err = pageParams(r); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		page, err := svc.ListSalesOrders(r.Context(), p.OrganizationID, filter)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, page)
	}
}

func GetSalesOrder(svc sales.Service, logg *logger.Logger) http.HandlerFunc {
	return documentGet(logg, "orderId", svc.GetSalesOrder)
}

// salesReportScope pins outlet-bound callers to their own outlet.
func salesReportScope(r *http.Request) (middleware.Principal, *uuid.UUID, error) {
	p, err := principalFrom(r)
	if err != nil {
		return p, nil, err
	}
	outletID, err := validators.ParseQueryUUID(r, "outlet_id")
	if err != nil {
		return p, nil, err
	}
	if outletBound(p) {
		if outletID == nil {
			return p, p.OutletID, nil
		}
		if err := ensureOutletAccess(p, *outletID); err != nil {
			return p, nil, err
		}
	}
	return p, outletID, nil
}

// MenuEngineeringReport classifies menus sold between start_date and
// end_date by popularity and profitability.
func MenuEngineeringReport(svc sales.Reports, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, serviceUnavailable("sales reports"))
			return
		}
		p, outletID, err := salesReportScope(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		filter := sales.ReportFilter{OutletID: outletID}
		if filter.From, err = validators.ParseQueryDate(r, "start_date"); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if filter.To, err = validators.ParseQueryDate(r, "end_date"); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		report, err := svc.MenuEngineering(r.Context(), p.OrganizationID, filter)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, report)
	}
}

func DailySalesSummary(svc sales.Reports, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, serviceUnavailable("sales reports"))
			return
		}
		p, outletID, err := salesReportScope(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		day, err := validators.ParseQueryDate(r, "date")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		summary, err := svc.DailySummary(r.Context(), p.OrganizationID, outletID, day)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, summary)
	}
}
