package controllers

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/angelmondragon/kitchenledger-backend/api/responses"
	"github.com/angelmondragon/kitchenledger-backend/api/validators"
	"github.com/angelmondragon/kitchenledger-backend/internal/stockrequests"
	"github.com/angelmondragon/kitchenledger-backend/pkg/enums"
	"github.com/angelmondragon/kitchenledger-backend/pkg/logger"
)

func CreateStockRequest(svc stockrequests.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, err := principalFrom(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req stockrequests.CreateInput
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := ensureOutletAccess(p, req.FromOutletID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		request, err := svc.Create(r.Context(), p.OrganizationID, p.UserID, req)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteCreated(w, request)
	}
}

func ListStockRequests(svc stockrequests.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, err := principalFrom(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var filter stockrequests.ListFilter
		if filter.Status, err = parseStatusQuery(r, enums.ParseStockRequestStatus); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if filter.FromOutletID, err = validators.ParseQueryUUID(r, "from_outlet_id"); err != nil {
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

func GetStockRequest(svc stockrequests.Service, logg *logger.Logger) http.HandlerFunc {
	return documentGet(logg, "requestId", svc.Get)
}

// ApproveStockRequest records approved quantities; no stock moves until a
// linked transfer ships.
func ApproveStockRequest(svc stockrequests.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, err := principalFrom(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		requestID, err := validators.ParseURLUUID(r, "requestId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req stockrequests.ApproveInput
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		request, err := svc.Approve(r.Context(), p.OrganizationID, requestID, p.UserID, req)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, request)
	}
}

func RejectStockRequest(svc stockrequests.Service, logg *logger.Logger) http.HandlerFunc {
	return documentAction(logg, "requestId", svc.Reject)
}

// CancelStockRequest lets outlet managers cancel only their own outlet's
// requests.
func CancelStockRequest(svc stockrequests.Service, logg *logger.Logger) http.HandlerFunc {
	requester := func(ctx context.Context, organizationID, requestID uuid.UUID) (uuid.UUID, error) {
		request, err := svc.Get(ctx, organizationID, requestID)
		if err != nil {
			return uuid.Nil, err
		}
		return request.FromOutletID, nil
	}
	return scopedDocumentAction(logg, "requestId", requester, svc.Cancel)
}
