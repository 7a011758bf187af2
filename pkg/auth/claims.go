package auth

import (
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/angelmondragon/kitchenledger-backend/pkg/enums"
)

// AccessTokenPayload captures the data available when minting a JWT.
type AccessTokenPayload struct {
	UserID         uuid.UUID
	OrganizationID uuid.UUID
	OutletID       *uuid.UUID
	Role           enums.UserRole
	JTI            string
}

// AccessTokenClaims is the typed JWT presented by clients. Every request is
// scoped to OrganizationID; OutletID pins outlet-bound staff to one outlet.
type AccessTokenClaims struct {
	UserID         uuid.UUID      `json:"user_id"`
	OrganizationID uuid.UUID      `json:"organization_id"`
	OutletID       *uuid.UUID     `json:"outlet_id,omitempty"`
	Role           enums.UserRole `json:"role"`
	jwt.RegisteredClaims
}
