package middleware

import (
	"context"

	"github.com/google/uuid"

	"github.com/angelmondragon/kitchenledger-backend/pkg/enums"
)

type contextKey string

const ctxPrincipal contextKey = "principal"

// Principal is the authenticated caller. Every request is scoped to one
// organization; OutletID is set for outlet-bound staff.
type Principal struct {
	UserID         uuid.UUID
	OrganizationID uuid.UUID
	OutletID       *uuid.UUID
	Role           enums.UserRole
}

// WithPrincipal injects the caller into the context.
func WithPrincipal(ctx context.Context, p Principal) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxPrincipal, p)
}

// PrincipalFromContext returns the caller seeded by Auth.
func PrincipalFromContext(ctx context.Context) (Principal, bool) {
	if ctx == nil {
		return Principal{}, false
	}
	p, ok := ctx.Value(ctxPrincipal).(Principal)
	return p, ok
}

func UserIDFromContext(ctx context.Context) string {
	if p, ok := PrincipalFromContext(ctx); ok {
		return p.UserID.String()
	}
	return ""
}

func OrganizationIDFromContext(ctx context.Context) string {
	if p, ok := PrincipalFromContext(ctx); ok {
		return p.OrganizationID.String()
	}
	return ""
}
