package controllers

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/angelmondragon/kitchenledger-backend/api/middleware"
	"github.com/angelmondragon/kitchenledger-backend/api/responses"
	"github.com/angelmondragon/kitchenledger-backend/api/validators"
	"github.com/angelmondragon/kitchenledger-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/kitchenledger-backend/pkg/errors"
	"github.com/angelmondragon/kitchenledger-backend/pkg/logger"
	"github.com/angelmondragon/kitchenledger-backend/pkg/pagination"
)

func principalFrom(r *http.Request) (middleware.Principal, error) {
	p, ok := middleware.PrincipalFromContext(r.Context())
	if !ok || p.OrganizationID == uuid.Nil {
		return middleware.Principal{}, pkgerrors.New(pkgerrors.CodeUnauthorized, "organization context missing")
	}
	return p, nil
}

// ensureOutletAccess keeps outlet-bound staff on their own outlet.
func ensureOutletAccess(p middleware.Principal, outletID uuid.UUID) error {
	if p.OutletID == nil {
		return nil
	}
	switch p.Role {
	case enums.RoleOutletManager, enums.RoleCashier:
		if *p.OutletID != outletID {
			return pkgerrors.New(pkgerrors.CodeForbidden, "outlet outside caller scope").
				WithDetails(map[string]any{"outlet_id": outletID})
		}
	}
	return nil
}

func pageParams(r *http.Request) (int, string, error) {
	limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
	if err != nil {
		return 0, "", err
	}
	return limit, r.URL.Query().Get("cursor"), nil
}

func serviceUnavailable(name string) error {
	return pkgerrors.New(pkgerrors.CodeInternal, name+" service unavailable")
}

func parseStatusQuery[T any](r *http.Request, parse func(string) (T, error)) (*T, error) {
	raw := strings.ToUpper(strings.TrimSpace(r.URL.Query().Get("status")))
	if raw == "" {
		return nil, nil
	}
	status, err := parse(raw)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status").WithDetails(map[string]any{"field": "status"})
	}
	return &status, nil
}

// outletBound reports whether the caller is confined to the outlet in its
// token.
func outletBound(p middleware.Principal) bool {
	return p.OutletID != nil && (p.Role == enums.RoleOutletManager || p.Role == enums.RoleCashier)
}

// outletOfFunc returns the outlet an outlet-bound caller must own to act on
// a document.
type outletOfFunc func(ctx context.Context, organizationID, documentID uuid.UUID) (uuid.UUID, error)

// documentAction adapts a state transition (approve, ship, cancel...) on the
// document named by idParam.
func documentAction[T any](logg *logger.Logger, idParam string, transition func(ctx context.Context, organizationID, documentID, userID uuid.UUID) (T, error)) http.HandlerFunc {
	return scopedDocumentAction(logg, idParam, nil, transition)
}

// scopedDocumentAction is documentAction for transitions outlet staff may
// run, but only on documents that belong to their outlet.
func scopedDocumentAction[T any](logg *logger.Logger, idParam string, outletOf outletOfFunc, transition func(ctx context.Context, organizationID, documentID, userID uuid.UUID) (T, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, err := principalFrom(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		id, err := validators.ParseURLUUID(r, idParam)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if outletOf != nil && outletBound(p) {
			outletID, err := outletOf(r.Context(), p.OrganizationID, id)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
			if err := ensureOutletAccess(p, outletID); err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
		}

		doc, err := transition(r.Context(), p.OrganizationID, id, p.UserID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, doc)
	}
}

// documentGet adapts a detail read on the document named by idParam.
func documentGet[T any](logg *logger.Logger, idParam string, get func(ctx context.Context, organizationID, documentID uuid.UUID) (T, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, err := principalFrom(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		id, err := validators.ParseURLUUID(r, idParam)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		doc, err := get(r.Context(), p.OrganizationID, id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, doc)
	}
}
