package users

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/gemvault-backend/pkg/db/models"
	"github.com/angelmondragon/gemvault-backend/pkg/enums"
)

// UserDTO is the transport shape that omits sensitive credentials.
type UserDTO struct {
	ID           uuid.UUID      `json:"id"`
	Name         string         `json:"name"`
	Email        string         `json:"email"`
	Role         enums.UserRole `json:"role"`
	IsAuthorized bool           `json:"is_authorized"`
	LastLoginAt  *time.Time     `json:"last_login_at,omitempty"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
}

// CreateUserDTO holds the data required by the repo to persist a new user.
type CreateUserDTO struct {
	Name         string
	Email        string
	PasswordHash *string
	Role         enums.UserRole
	IsAuthorized bool
}

// CreateInput is an admin request to add an operator.
type CreateInput struct {
	Name         string         `json:"name" validate:"required,max=120"`
	Email        string         `json:"email" validate:"required,email"`
	Password     string         `json:"password" validate:"required,min=8"`
	Role         enums.UserRole `json:"role" validate:"required"`
	IsAuthorized *bool          `json:"is_authorized,omitempty"`
}

// UpdateInput changes only the fields that are present.
type UpdateInput struct {
	Name         *string         `json:"name,omitempty" validate:"omitempty,max=120"`
	Password     *string         `json:"password,omitempty" validate:"omitempty,min=8"`
	Role         *enums.UserRole `json:"role,omitempty"`
	IsAuthorized *bool           `json:"is_authorized,omitempty"`
}

func FromModel(u *models.User) *UserDTO {
	if u == nil {
		return nil
	}

	return &UserDTO{
		ID:           u.ID,
		Name:         u.Name,
		Email:        u.Email,
		Role:         u.Role,
		IsAuthorized: u.IsAuthorized,
		LastLoginAt:  u.LastLoginAt,
		CreatedAt:    u.CreatedAt,
		UpdatedAt:    u.UpdatedAt,
	}
}

func (c CreateUserDTO) ToModel() *models.User {
	role := c.Role
	if role == "" {
		role = enums.UserRoleUser
	}
	return &models.User{
		Name:         strings.TrimSpace(c.Name),
		Email:        NormalizeEmail(c.Email),
		PasswordHash: c.PasswordHash,
		Role:         role,
		IsAuthorized: c.IsAuthorized,
	}
}

// NormalizeEmail lowercases and trims an address before it is stored or
// looked up.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
