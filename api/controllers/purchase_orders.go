package controllers

import (
	"net/http"

	"github.com/angelmondragon/kitchenledger-backend/api/responses"
	"github.com/angelmondragon/kitchenledger-backend/api/validators"
	"github.com/angelmondragon/kitchenledger-backend/internal/purchasing"
	"github.com/angelmondragon/kitchenledger-backend/pkg/enums"
	"github.com/angelmondragon/kitchenledger-backend/pkg/logger"
)

func CreatePurchaseOrder(svc purchasing.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, err := principalFrom(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req purchasing.CreateInput
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.Create(r.Context(), p.OrganizationID, p.UserID, req)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteCreated(w, order)
	}
}

func ListPurchaseOrders(svc purchasing.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, err := principalFrom(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var filter purchasing.ListFilter
		if filter.Status, err = parseStatusQuery(r, enums.ParsePurchaseOrderStatus); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if filter.OutletID, err = validators.ParseQueryUUID(r, "outlet_id"); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if filter.SupplierID, err = validators.ParseQueryUUID(r, "supplier_id"); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if filter.Limit, filter.Cursor, err = pageParams(r); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		page, err := svc.List(r.Context(), p.OrganizationID, filter)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, page)
	}
}

func GetPurchaseOrder(svc purchasing.Service, logg *logger.Logger) http.HandlerFunc {
	return documentGet(logg, "poId", svc.Get)
}

func ApprovePurchaseOrder(svc purchasing.Service, logg *logger.Logger) http.HandlerFunc {
	return documentAction(logg, "poId", svc.Approve)
}

func CancelPurchaseOrder(svc purchasing.Service, logg *logger.Logger) http.HandlerFunc {
	return documentAction(logg, "poId", svc.Cancel)
}

// ReceivePurchaseOrder books the delivered quantities into stock and closes
// the order.
func ReceivePurchaseOrder(svc purchasing.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, err := principalFrom(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		orderID, err := validators.ParseURLUUID(r, "poId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req purchasing.ReceiveInput
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.Receive(r.Context(), p.OrganizationID, orderID, p.UserID, req)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, order)
	}
}
