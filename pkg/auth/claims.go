package auth

import (
	"github.com/aquafindr/aquafindr-backend/pkg/enums"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// AccessTokenPayload captures the data available when minting a JWT.
type AccessTokenPayload struct {
	UserID   uuid.UUID
	VendorID *uuid.UUID
	Role     enums.ActorRole
}

// AccessTokenClaims represents the typed JWT issued to clients. Vendors
// carry their vendor profile id so endpoints can authorize booking actions
// without an extra lookup.
type AccessTokenClaims struct {
	UserID   uuid.UUID       `json:"user_id"`
	VendorID *uuid.UUID      `json:"vendor_id,omitempty"`
	Role     enums.ActorRole `json:"role"`
	jwt.RegisteredClaims
}
