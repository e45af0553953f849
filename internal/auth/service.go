package auth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/angelmondragon/gemvault-backend/internal/users"
	pkgAuth "github.com/angelmondragon/gemvault-backend/pkg/auth"
	"github.com/angelmondragon/gemvault-backend/pkg/auth/session"
	"github.com/angelmondragon/gemvault-backend/pkg/config"
	"github.com/angelmondragon/gemvault-backend/pkg/db"
	"github.com/angelmondragon/gemvault-backend/pkg/db/models"
	"github.com/angelmondragon/gemvault-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/gemvault-backend/pkg/errors"
	"github.com/angelmondragon/gemvault-backend/pkg/logger"
	"github.com/angelmondragon/gemvault-backend/pkg/security"
	"github.com/google/uuid"
	redislib "github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

const (
	invalidCredentialsMessage = "invalid credentials"
	pendingAuthorization      = "account is pending authorization by an administrator"
	oauthStateBytes           = 24
)

// Service defines the behavior needed by the auth controllers.
type Service interface {
	Login(ctx context.Context, req LoginRequest) (*LoginResponse, error)
	Refresh(ctx context.Context, accessToken, refreshToken string) (*TokenPair, error)
	Logout(ctx context.Context, accessToken string) error
	GoogleStart(ctx context.Context) (string, error)
	GoogleCallback(ctx context.Context, state, code string) (*LoginResponse, error)
}

type service struct {
	users    userRepository
	session  sessionManager
	states   stateStore
	google   OAuthProvider
	jwtCfg   config.JWTConfig
	password config.PasswordConfig
	stateTTL time.Duration
	logg     *logger.Logger
	now      func() time.Time
}

type userRepository interface {
	Create(ctx context.Context, dto users.CreateUserDTO) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	UpdateLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error
	UpdatePasswordHash(ctx context.Context, id uuid.UUID, hash string) error
}

type sessionManager interface {
	Generate(ctx context.Context, userID uuid.UUID, accessID string) (string, error)
	Rotate(ctx context.Context, oldAccessID, provided string) (*session.Rotation, error)
	Revoke(ctx context.Context, accessID string) error
}

type stateStore interface {
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	GetDel(ctx context.Context, key string) (string, error)
	OAuthStateKey(state string) string
}

// ServiceParams bundles the dependencies required to build an auth service.
// Google and StateStore are optional; without them the OAuth endpoints
// report that the provider is unavailable.
type ServiceParams struct {
	UserRepo       userRepository
	SessionManager sessionManager
	StateStore     stateStore
	Google         OAuthProvider
	JWTConfig      config.JWTConfig
	Password       config.PasswordConfig
	OAuth          config.OAuthConfig
	Logger         *logger.Logger
	Now            func() time.Time
}

// NewService constructs a login service with the provided dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.UserRepo == nil {
		return nil, fmt.Errorf("user repository is required")
	}
	if params.SessionManager == nil {
		return nil, fmt.Errorf("session manager is required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	now := params.Now
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	ttl := params.OAuth.StateTTL
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &service{
		users:    params.UserRepo,
		session:  params.SessionManager,
		states:   params.StateStore,
		google:   params.Google,
		jwtCfg:   params.JWTConfig,
		password: params.Password,
		stateTTL: ttl,
		logg:     params.Logger,
		now:      now,
	}, nil
}

func (s *service) Login(ctx context.Context, req LoginRequest) (*LoginResponse, error) {
	user, err := s.authenticate(ctx, req.Email, req.Password)
	if err != nil {
		return nil, err
	}
	if !user.IsAuthorized {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, pendingAuthorization)
	}
	return s.issue(ctx, user)
}

func (s *service) Refresh(ctx context.Context, accessToken, refreshToken string) (*TokenPair, error) {
	claims, err := pkgAuth.ParseAccessTokenAllowExpired(s.jwtCfg, accessToken)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid token")
	}
	if claims.ID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing session id")
	}

	rotation, err := s.session.Rotate(ctx, claims.ID, refreshToken)
	if err != nil {
		if errors.Is(err, session.ErrInvalidRefreshToken) {
			return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid refresh token")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "rotate session")
	}

	// Role and authorization are re-read so admin changes apply on refresh.
	user, err := s.users.FindByID(ctx, rotation.UserID)
	if err != nil {
		_ = s.session.Revoke(ctx, rotation.AccessID)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, invalidCredentialsMessage)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup user")
	}
	if !user.IsAuthorized {
		_ = s.session.Revoke(ctx, rotation.AccessID)
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, pendingAuthorization)
	}

	accessToken, err = s.mint(user, rotation.AccessID)
	if err != nil {
		return nil, err
	}
	return &TokenPair{AccessToken: accessToken, RefreshToken: rotation.RefreshToken}, nil
}

func (s *service) Logout(ctx context.Context, accessToken string) error {
	claims, err := pkgAuth.ParseAccessTokenAllowExpired(s.jwtCfg, accessToken)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid token")
	}
	if claims.ID == "" {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "missing session id")
	}
	if err := s.session.Revoke(ctx, claims.ID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "revoke session")
	}
	return nil
}

// GoogleStart stores a single-use state nonce and returns the consent URL.
func (s *service) GoogleStart(ctx context.Context) (string, error) {
	if s.google == nil || s.states == nil {
		return "", pkgerrors.New(pkgerrors.CodeDependency, "google login is not configured")
	}
	state, err := newState()
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeInternal, err, "generate oauth state")
	}
	if err := s.states.Set(ctx, s.states.OAuthStateKey(state), "1", s.stateTTL); err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "store oauth state")
	}
	return s.google.AuthCodeURL(state), nil
}

// GoogleCallback finishes the OAuth flow. Unknown accounts are registered as
// unauthorized users and must be approved before they can sign in.
func (s *service) GoogleCallback(ctx context.Context, state, code string) (*LoginResponse, error) {
	if s.google == nil || s.states == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "google login is not configured")
	}
	if strings.TrimSpace(state) == "" || strings.TrimSpace(code) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "state and code are required")
	}
	if _, err := s.states.GetDel(ctx, s.states.OAuthStateKey(state)); err != nil {
		if errors.Is(err, redislib.Nil) {
			return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid or expired oauth state")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load oauth state")
	}

	identity, err := s.google.Exchange(ctx, code)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "google sign-in failed")
	}

	email := users.NormalizeEmail(identity.Email)
	user, err := s.users.FindByEmail(ctx, email)
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		user, err = s.registerOAuthUser(ctx, email, identity.Name)
		if err != nil {
			return nil, err
		}
	case err != nil:
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup user")
	}

	if !user.IsAuthorized {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, pendingAuthorization).
			WithDetails(map[string]any{"email": user.Email})
	}
	return s.issue(ctx, user)
}

func (s *service) registerOAuthUser(ctx context.Context, email, name string) (*models.User, error) {
	if strings.TrimSpace(name) == "" {
		name = email
	}
	user, err := s.users.Create(ctx, users.CreateUserDTO{
		Name:         name,
		Email:        email,
		Role:         enums.UserRoleUser,
		IsAuthorized: false,
	})
	if err != nil {
		if db.IsUniqueViolation(err, "") {
			return s.users.FindByEmail(ctx, email)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "register oauth user")
	}
	s.logg.Info(s.logg.WithUserID(ctx, user.ID.String()), "auth.oauth_user_registered")
	return user, nil
}

func (s *service) authenticate(ctx context.Context, email, password string) (*models.User, error) {
	input := users.NormalizeEmail(email)
	if input == "" {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, invalidCredentialsMessage)
	}
	user, err := s.users.FindByEmail(ctx, input)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, invalidCredentialsMessage)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup user")
	}
	if user.PasswordHash == nil || *user.PasswordHash == "" {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, invalidCredentialsMessage)
	}

	valid, err := security.VerifyPassword(password, *user.PasswordHash)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "verify password")
	}
	if !valid {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, invalidCredentialsMessage)
	}
	if security.NeedsRehash(*user.PasswordHash, s.password) {
		s.rehash(ctx, user, password)
	}
	return user, nil
}

// rehash upgrades an imported bcrypt hash. Failure keeps the old hash.
func (s *service) rehash(ctx context.Context, user *models.User, password string) {
	hash, err := security.HashPassword(password, s.password)
	if err == nil {
		err = s.users.UpdatePasswordHash(ctx, user.ID, hash)
	}
	if err != nil {
		logCtx := s.logg.WithFields(ctx, map[string]any{"user_id": user.ID.String(), "error": err.Error()})
		s.logg.Warn(logCtx, "auth.rehash_failed")
		return
	}
	user.PasswordHash = &hash
}

func (s *service) issue(ctx context.Context, user *models.User) (*LoginResponse, error) {
	now := s.now()
	if err := s.users.UpdateLastLogin(ctx, user.ID, now); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update last login")
	}
	user.LastLoginAt = &now

	accessID := session.NewAccessID()
	accessToken, err := s.mint(user, accessID)
	if err != nil {
		return nil, err
	}
	refreshToken, err := s.session.Generate(ctx, user.ID, accessID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "store refresh token")
	}

	s.logg.Info(s.logg.WithUserID(ctx, user.ID.String()), "auth.login")
	return &LoginResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		User:         users.FromModel(user),
	}, nil
}

func (s *service) mint(user *models.User, accessID string) (string, error) {
	token, err := pkgAuth.MintAccessToken(s.jwtCfg, s.now(), pkgAuth.AccessTokenPayload{
		UserID:       user.ID,
		Email:        user.Email,
		Role:         user.Role,
		IsAuthorized: user.IsAuthorized,
		JTI:          accessID,
	})
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mint jwt")
	}
	return token, nil
}

func newState() (string, error) {
	buf := make([]byte, oauthStateBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
