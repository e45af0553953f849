package session

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/angelmondragon/gemvault-backend/pkg/config"
	redisclient "github.com/angelmondragon/gemvault-backend/pkg/redis"
	"github.com/google/uuid"
	redislib "github.com/redis/go-redis/v9"
)

const refreshTokenBytes = 32

var (
	ErrInvalidRefreshToken = errors.New("invalid refresh token")
	errMissingAccessID     = errors.New("access id is required")
)

type sessionStore interface {
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Get(ctx context.Context, key string) (string, error)
	GetDel(ctx context.Context, key string) (string, error)
	Del(ctx context.Context, keys ...string) error
}

type sessionKeyer interface {
	AccessSessionKey(accessID string) string
}

// AccessSessionChecker is the read-only view the auth middleware uses.
type AccessSessionChecker interface {
	HasSession(ctx context.Context, accessID string) (bool, error)
}

// Manager stores one refresh session per access token jti. A session value
// is "<userID>.<refreshToken>".
type Manager struct {
	store sessionStore
	keyer sessionKeyer
	ttl   time.Duration
}

// Rotation is the outcome of a successful refresh.
type Rotation struct {
	UserID       uuid.UUID
	AccessID     string
	RefreshToken string
}

type refreshSession struct {
	userID uuid.UUID
	token  string
}

func (s refreshSession) String() string {
	return s.userID.String() + "." + s.token
}

func parseSession(value string) (refreshSession, bool) {
	rawID, token, found := strings.Cut(value, ".")
	if !found || token == "" {
		return refreshSession{}, false
	}
	userID, err := uuid.Parse(rawID)
	if err != nil {
		return refreshSession{}, false
	}
	return refreshSession{userID: userID, token: token}, true
}

// NewManager requires the refresh TTL to outlive the access token.
func NewManager(client *redisclient.Client, cfg config.JWTConfig) (*Manager, error) {
	if client == nil {
		return nil, errors.New("redis client is required")
	}
	ttl, accessTTL := cfg.RefreshTokenTTL(), cfg.AccessTokenTTL()
	if ttl <= accessTTL {
		return nil, fmt.Errorf("refresh token ttl (%s) must exceed access token ttl (%s)", ttl, accessTTL)
	}
	return &Manager{store: client, keyer: client, ttl: ttl}, nil
}

// NewAccessID returns the value used as both JWT jti and session key.
func NewAccessID() string {
	return uuid.NewString()
}

func (m *Manager) key(accessID string) (string, error) {
	if strings.TrimSpace(accessID) == "" {
		return "", errMissingAccessID
	}
	return m.keyer.AccessSessionKey(accessID), nil
}

// Generate stores a fresh refresh token for userID under accessID.
func (m *Manager) Generate(ctx context.Context, userID uuid.UUID, accessID string) (string, error) {
	key, err := m.key(accessID)
	if err != nil {
		return "", err
	}
	if userID == uuid.Nil {
		return "", errors.New("user id is required")
	}
	buf := make([]byte, refreshTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate refresh token: %w", err)
	}
	sess := refreshSession{userID: userID, token: base64.RawURLEncoding.EncodeToString(buf)}
	if err := m.store.Set(ctx, key, sess.String(), m.ttl); err != nil {
		return "", err
	}
	return sess.token, nil
}

// Rotate exchanges a refresh token for a new session. The old session is
// consumed with GETDEL after the token matches, so only one of several
// concurrent refreshes succeeds.
func (m *Manager) Rotate(ctx context.Context, oldAccessID, provided string) (*Rotation, error) {
	key, err := m.key(oldAccessID)
	if err != nil || strings.TrimSpace(provided) == "" {
		return nil, ErrInvalidRefreshToken
	}

	stored, err := m.store.Get(ctx, key)
	if err != nil {
		return nil, notFoundAsInvalid(err)
	}
	sess, ok := parseSession(stored)
	if !ok || subtle.ConstantTimeCompare([]byte(sess.token), []byte(provided)) != 1 {
		return nil, ErrInvalidRefreshToken
	}
	consumed, err := m.store.GetDel(ctx, key)
	if err != nil {
		return nil, notFoundAsInvalid(err)
	}
	if consumed != stored {
		return nil, ErrInvalidRefreshToken
	}

	rotation := &Rotation{UserID: sess.userID, AccessID: NewAccessID()}
	if rotation.RefreshToken, err = m.Generate(ctx, sess.userID, rotation.AccessID); err != nil {
		return nil, err
	}
	return rotation, nil
}

func (m *Manager) Revoke(ctx context.Context, accessID string) error {
	key, err := m.key(accessID)
	if err != nil {
		return err
	}
	return m.store.Del(ctx, key)
}

func (m *Manager) HasSession(ctx context.Context, accessID string) (bool, error) {
	key, err := m.key(accessID)
	if err != nil {
		return false, err
	}
	_, err = m.store.Get(ctx, key)
	switch {
	case errors.Is(err, redislib.Nil):
		return false, nil
	case err != nil:
		return false, err
	}
	return true, nil
}

func notFoundAsInvalid(err error) error {
	if errors.Is(err, redislib.Nil) {
		return ErrInvalidRefreshToken
	}
	return err
}
