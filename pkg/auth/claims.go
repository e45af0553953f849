package auth

import (
	"github.com/angelmondragon/gemvault-backend/pkg/enums"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// AccessTokenPayload captures the data available when minting a JWT.
type AccessTokenPayload struct {
	UserID       uuid.UUID
	Email        string
	Role         enums.UserRole
	IsAuthorized bool
	JTI          string
}

// AccessTokenClaims represents the typed JWT issued to clients.
type AccessTokenClaims struct {
	UserID       uuid.UUID      `json:"user_id"`
	Email        string         `json:"email,omitempty"`
	Role         enums.UserRole `json:"role"`
	IsAuthorized bool           `json:"is_authorized"`
	jwt.RegisteredClaims
}
