package controllers

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/angelmondragon/kitchenledger-backend/api/responses"
	"github.com/angelmondragon/kitchenledger-backend/api/validators"
	"github.com/angelmondragon/kitchenledger-backend/internal/transfers"
	"github.com/angelmondragon/kitchenledger-backend/pkg/enums"
	"github.com/angelmondragon/kitchenledger-backend/pkg/logger"
)

func CreateStockTransfer(svc transfers.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, err := principalFrom(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req transfers.CreateInput
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		transfer, err := svc.Create(r.Context(), p.OrganizationID, p.UserID, req)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteCreated(w, transfer)
	}
}

func ListStockTransfers(svc transfers.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, err := principalFrom(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var filter transfers.ListFilter
		if filter.Status, err = parseStatusQuery(r, enums.ParseStockTransferStatus); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if filter.FromOutletID, err = validators.ParseQueryUUID(r, "from_outlet_id"); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if filter.ToOutletID, err = validators.ParseQueryUUID(r, "to_outlet_id"); err != nil {
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

func GetStockTransfer(svc transfers.Service, logg *logger.Logger) http.HandlerFunc {
	return documentGet(logg, "transferId", svc.Get)
}

func ShipStockTransfer(svc transfers.Service, logg *logger.Logger) http.HandlerFunc {
	return documentAction(logg, "transferId", svc.Ship)
}

// ReceiveStockTransfer lets outlet managers receive only transfers bound
// for their outlet.
func ReceiveStockTransfer(svc transfers.Service, logg *logger.Logger) http.HandlerFunc {
	destination := func(ctx context.Context, organizationID, transferID uuid.UUID) (uuid.UUID, error) {
		transfer, err := svc.Get(ctx, organizationID, transferID)
		if err != nil {
			return uuid.Nil, err
		}
		return transfer.ToOutletID, nil
	}
	return scopedDocumentAction(logg, "transferId", destination, svc.Receive)
}

func CancelStockTransfer(svc transfers.Service, logg *logger.Logger) http.HandlerFunc {
	return documentAction(logg, "transferId", svc.Cancel)
}
