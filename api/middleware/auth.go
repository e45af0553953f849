package middleware

import (
	"net/http"
	"strings"

	"github.com/angelmondragon/gemvault-backend/api/responses"
	pkgAuth "github.com/angelmondragon/gemvault-backend/pkg/auth"
	"github.com/angelmondragon/gemvault-backend/pkg/auth/session"
	"github.com/angelmondragon/gemvault-backend/pkg/config"
	pkgerrors "github.com/angelmondragon/gemvault-backend/pkg/errors"
	"github.com/angelmondragon/gemvault-backend/pkg/logger"
)

const bearerPrefix = "bearer "

// BearerToken reads the Authorization header. The "Bearer" scheme is optional.
func BearerToken(r *http.Request) (string, error) {
	token := strings.TrimSpace(r.Header.Get("Authorization"))
	if len(token) >= len(bearerPrefix) && strings.EqualFold(token[:len(bearerPrefix)], bearerPrefix) {
		token = strings.TrimSpace(token[len(bearerPrefix):])
	}
	if token == "" {
		return "", pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials")
	}
	return token, nil
}

// Auth verifies the access token, checks its session is still live and seeds
// the request context with the caller's Identity.
func Auth(cfg config.JWTConfig, sessions session.AccessSessionChecker, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, err := BearerToken(r)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}

			claims, err := pkgAuth.ParseAccessToken(cfg, token)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid token"))
				return
			}
			if claims.ID == "" {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing session id"))
				return
			}

			if sessions != nil {
				live, err := sessions.HasSession(r.Context(), claims.ID)
				switch {
				case err != nil:
					responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "validate session"))
					return
				case !live:
					responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "session unavailable"))
					return
				}
			}

			id := Identity{UserID: claims.UserID, Role: claims.Role, Authorized: claims.IsAuthorized}
			ctx := WithIdentity(r.Context(), id)
			if logg != nil {
				ctx = logg.WithFields(logg.WithUserID(ctx, id.UserID.String()), map[string]any{
					"actor_role": string(id.Role),
				})
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
