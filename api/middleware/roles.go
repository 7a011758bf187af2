package middleware

import (
	"net/http"

	"github.com/angelmondragon/kitchenledger-backend/api/responses"
	"github.com/angelmondragon/kitchenledger-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/kitchenledger-backend/pkg/errors"
	"github.com/angelmondragon/kitchenledger-backend/pkg/logger"
)

// Role groups used by the route table.
var (
	AllRoles = []enums.UserRole{
		enums.RoleOwner, enums.RoleAdmin, enums.RoleCentralManager,
		enums.RoleCentralStaff, enums.RoleOutletManager, enums.RoleCashier,
	}
	Administrators  = []enums.UserRole{enums.RoleOwner, enums.RoleAdmin}
	CentralManagers = []enums.UserRole{enums.RoleOwner, enums.RoleAdmin, enums.RoleCentralManager}
	CentralStaff    = []enums.UserRole{enums.RoleOwner, enums.RoleAdmin, enums.RoleCentralManager, enums.RoleCentralStaff}
	StockManagers   = []enums.UserRole{enums.RoleOwner, enums.RoleAdmin, enums.RoleCentralManager, enums.RoleOutletManager}
)

// RequireRoles rejects callers whose role is not in allowed.
func RequireRoles(logg *logger.Logger, allowed ...enums.UserRole) func(http.Handler) http.Handler {
	set := make(map[enums.UserRole]struct{}, len(allowed))
	for _, role := range allowed {
		set[role] = struct{}{}
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p, ok := PrincipalFromContext(r.Context())
			if !ok {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
				return
			}
			if _, ok := set[p.Role]; !ok {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeForbidden, "role not permitted"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
