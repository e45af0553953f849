package users

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/angelmondragon/gemvault-backend/pkg/config"
	"github.com/angelmondragon/gemvault-backend/pkg/db"
	pkgerrors "github.com/angelmondragon/gemvault-backend/pkg/errors"
	"github.com/angelmondragon/gemvault-backend/pkg/logger"
	"github.com/angelmondragon/gemvault-backend/pkg/security"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Service administers the operators allowed into the inventory.
type Service interface {
	List(ctx context.Context) ([]UserDTO, error)
	Get(ctx context.Context, id uuid.UUID) (*UserDTO, error)
	Create(ctx context.Context, input CreateInput) (*UserDTO, error)
	Update(ctx context.Context, id uuid.UUID, input UpdateInput) (*UserDTO, error)
	Delete(ctx context.Context, actorID, id uuid.UUID) error
}

type ServiceParams struct {
	Repo     *Repository
	Password config.PasswordConfig
	Logger   *logger.Logger
}

type service struct {
	repo     *Repository
	password config.PasswordConfig
	logg     *logger.Logger
}

func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("users repository required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{repo: params.Repo, password: params.Password, logg: params.Logger}, nil
}

func (s *service) List(ctx context.Context) ([]UserDTO, error) {
	rows, err := s.repo.List(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list users")
	}
	out := make([]UserDTO, 0, len(rows))
	for i := range rows {
		out = append(out, *FromModel(&rows[i]))
	}
	return out, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*UserDTO, error) {
	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, lookupError(err)
	}
	return FromModel(user), nil
}

func (s *service) Create(ctx context.Context, input CreateInput) (*UserDTO, error) {
	name := strings.TrimSpace(input.Name)
	email := NormalizeEmail(input.Email)
	if name == "" || email == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "name and email are required")
	}
	if !input.Role.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid role %q", input.Role))
	}
	hash, err := security.HashPassword(input.Password, s.password)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid password")
	}
	authorized := true
	if input.IsAuthorized != nil {
		authorized = *input.IsAuthorized
	}

	user, err := s.repo.Create(ctx, CreateUserDTO{
		Name:         name,
		Email:        email,
		PasswordHash: &hash,
		Role:         input.Role,
		IsAuthorized: authorized,
	})
	if err != nil {
		if db.IsUniqueViolation(err, "") {
			return nil, pkgerrors.Wrap(pkgerrors.CodeConflict, err, "a user with that email already exists")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "insert user")
	}
	s.logg.Info(s.logg.WithField(ctx, "target_user_id", user.ID.String()), "users.created")
	return FromModel(user), nil
}

func (s *service) Update(ctx context.Context, id uuid.UUID, input UpdateInput) (*UserDTO, error) {
	if _, err := s.repo.FindByID(ctx, id); err != nil {
		return nil, lookupError(err)
	}

	columns := map[string]any{}
	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "name cannot be empty")
		}
		columns["name"] = name
	}
	if input.Role != nil {
		if !input.Role.IsValid() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid role %q", *input.Role))
		}
		columns["role"] = *input.Role
	}
	if input.IsAuthorized != nil {
		columns["is_authorized"] = *input.IsAuthorized
	}
	if input.Password != nil && *input.Password != "" {
		hash, err := security.HashPassword(*input.Password, s.password)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid password")
		}
		columns["password_hash"] = hash
	}

	if len(columns) > 0 {
		if err := s.repo.Update(ctx, id, columns); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update user")
		}
	}
	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, lookupError(err)
	}
	return FromModel(user), nil
}

// Delete removes a user. Admins cannot remove their own account.
func (s *service) Delete(ctx context.Context, actorID, id uuid.UUID) error {
	if actorID == id {
		return pkgerrors.New(pkgerrors.CodeValidation, "you cannot delete your own account")
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return lookupError(err)
	}
	s.logg.Info(s.logg.WithField(ctx, "target_user_id", id.String()), "users.deleted")
	return nil
}

func lookupError(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load user")
}
