package middleware

import (
	"net/http"
	"strings"

	"github.com/angelmondragon/kitchenledger-backend/api/responses"
	pkgAuth "github.com/angelmondragon/kitchenledger-backend/pkg/auth"
	"github.com/angelmondragon/kitchenledger-backend/pkg/config"
	pkgerrors "github.com/angelmondragon/kitchenledger-backend/pkg/errors"
	"github.com/angelmondragon/kitchenledger-backend/pkg/logger"
)

// Auth validates a bearer token and seeds the request context with the
// caller's organization, outlet and role.
func Auth(cfg config.JWTConfig, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r.Header.Get("Authorization"))
			if token == "" {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
				return
			}

			claims, err := pkgAuth.ParseAccessToken(cfg, token)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid token"))
				return
			}

			ctx := WithPrincipal(r.Context(), Principal{
				UserID:         claims.UserID,
				OrganizationID: claims.OrganizationID,
				OutletID:       claims.OutletID,
				Role:           claims.Role,
			})
			if logg != nil {
				ctx = logg.WithUserID(ctx, claims.UserID.String())
				ctx = logg.WithOrganizationID(ctx, claims.OrganizationID.String())
				ctx = logg.WithActorRole(ctx, string(claims.Role))
				if claims.OutletID != nil {
					ctx = logg.WithOutletID(ctx, claims.OutletID.String())
				}
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearerToken(header string) string {
	token := strings.TrimSpace(header)
	if len(token) >= 7 && strings.EqualFold(token[:7], "bearer ") {
		token = strings.TrimSpace(token[7:])
	}
	return token
}
