package middleware

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/angelmondragon/gemvault-backend/api/responses"
	pkgerrors "github.com/angelmondragon/gemvault-backend/pkg/errors"
	"github.com/angelmondragon/gemvault-backend/pkg/logger"
	pkgredis "github.com/angelmondragon/gemvault-backend/pkg/redis"
)

const (
	IdempotencyHeader     = "Idempotency-Key"
	defaultIdempotencyTTL = 24 * time.Hour
	reservationTTL        = 2 * time.Minute
	inventoryPath         = "/api/v1/inventory"
)

// storedResponse is the replayable part of a completed write.
type storedResponse struct {
	Status      int    `json:"status"`
	ContentType string `json:"content_type,omitempty"`
	Body        []byte `json:"body"`
	BodyHash    string `json:"body_hash"`
	Pending     bool   `json:"pending,omitempty"`
}

type idempotencyGuard struct {
	store pkgredis.IdempotencyStore
	ttl   time.Duration
	logg  *logger.Logger
}

// Idempotency replays the first response to a stock-mutating write when the
// client retries it with the same Idempotency-Key. Reusing a key with a
// different body is rejected, and so is a retry that arrives while the first
// request still runs. Requests without the header pass through.
func Idempotency(store pkgredis.IdempotencyStore, ttl time.Duration, logg *logger.Logger) func(http.Handler) http.Handler {
	if ttl <= 0 {
		ttl = defaultIdempotencyTTL
	}
	g := &idempotencyGuard{store: store, ttl: ttl, logg: logg}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			clientKey := strings.TrimSpace(r.Header.Get(IdempotencyHeader))
			if clientKey == "" || g.store == nil || !covered(r.Method, r.URL.Path) {
				next.ServeHTTP(w, r)
				return
			}
			g.serve(next, w, r, clientKey)
		})
	}
}

func (g *idempotencyGuard) serve(next http.Handler, w http.ResponseWriter, r *http.Request, clientKey string) {
	ctx := r.Context()
	body, err := io.ReadAll(r.Body)
	if err != nil {
		responses.WriteError(ctx, g.logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "unable to read request body"))
		return
	}
	r.Body = io.NopCloser(bytes.NewReader(body))

	bodyHash := digest(body)
	key := g.store.IdempotencyKey(scopeOf(r), clientKey)

	prior, err := g.lookup(ctx, key)
	if err != nil {
		responses.WriteError(ctx, g.logg, w, err)
		return
	}
	if prior != nil {
		g.answer(w, r, prior, bodyHash)
		return
	}

	reserved, err := g.reserve(ctx, key, bodyHash)
	if err != nil {
		responses.WriteError(ctx, g.logg, w, err)
		return
	}
	if !reserved {
		// lost the race to a concurrent request with the same key
		prior, err = g.lookup(ctx, key)
		switch {
		case err != nil:
			responses.WriteError(ctx, g.logg, w, err)
		case prior == nil:
			responses.WriteError(ctx, g.logg, w, errInFlight())
		default:
			g.answer(w, r, prior, bodyHash)
		}
		return
	}

	defer func() {
		if rec := recover(); rec != nil {
			g.release(ctx, key)
			panic(rec)
		}
	}()
	capture := &responseCapture{ResponseWriter: w}
	next.ServeHTTP(capture, r)

	status := capture.statusCode()
	if !replayable(status) {
		g.release(ctx, key)
		return
	}
	g.remember(ctx, key, storedResponse{
		Status:      status,
		ContentType: capture.Header().Get("Content-Type"),
		Body:        capture.body.Bytes(),
		BodyHash:    bodyHash,
	})
}

func errInFlight() error {
	return pkgerrors.New(pkgerrors.CodeIdempotency, "request with this idempotency key is still in progress")
}

func (g *idempotencyGuard) answer(w http.ResponseWriter, r *http.Request, prior *storedResponse, bodyHash string) {
	switch {
	case prior.BodyHash != bodyHash:
		responses.WriteError(r.Context(), g.logg, w, pkgerrors.New(pkgerrors.CodeIdempotency, "idempotency key reused with different request body"))
	case prior.Pending:
		responses.WriteError(r.Context(), g.logg, w, errInFlight())
	default:
		prior.writeTo(w)
	}
}

// replayable excludes 5xx, which stay retryable, and auth rejections, which
// say nothing about the write itself.
func replayable(status int) bool {
	switch {
	case status >= http.StatusInternalServerError:
		return false
	case status == http.StatusUnauthorized, status == http.StatusForbidden:
		return false
	}
	return true
}

func (g *idempotencyGuard) lookup(ctx context.Context, key string) (*storedResponse, error) {
	raw, err := g.store.Get(ctx, key)
	switch {
	case errors.Is(err, redis.Nil) || (err == nil && raw == ""):
		return nil, nil
	case err != nil:
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check idempotency key")
	}
	var prior storedResponse
	if err := json.Unmarshal([]byte(raw), &prior); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode idempotency record")
	}
	return &prior, nil
}

// reserve claims the key with a pending marker before the handler runs.
func (g *idempotencyGuard) reserve(ctx context.Context, key, bodyHash string) (bool, error) {
	payload, err := json.Marshal(storedResponse{BodyHash: bodyHash, Pending: true})
	if err != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encode idempotency reservation")
	}
	ok, err := g.store.SetNX(ctx, key, string(payload), reservationTTL)
	if err != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reserve idempotency key")
	}
	return ok, nil
}

func (g *idempotencyGuard) release(ctx context.Context, key string) {
	if err := g.store.Del(context.WithoutCancel(ctx), key); err != nil && g.logg != nil {
		g.logg.Error(ctx, "idempotency.release_failed", err)
	}
}

func (g *idempotencyGuard) remember(ctx context.Context, key string, resp storedResponse) {
	payload, err := json.Marshal(resp)
	if err == nil {
		err = g.store.Set(context.WithoutCancel(ctx), key, string(payload), g.ttl)
	}
	if err != nil && g.logg != nil {
		g.logg.Error(ctx, "idempotency.store_failed", err)
	}
}

func (s *storedResponse) writeTo(w http.ResponseWriter) {
	if s.ContentType != "" {
		w.Header().Set("Content-Type", s.ContentType)
	}
	w.WriteHeader(s.Status)
	_, _ = w.Write(s.Body)
}

// scopeOf keeps keys from colliding across users and endpoints.
func scopeOf(r *http.Request) string {
	actor := "anonymous"
	if id, ok := IdentityFromContext(r.Context()); ok {
		actor = id.UserID.String()
	}
	return actor + "|" + r.Method + "|" + r.URL.Path
}

// covered limits replay to inventory writes.
func covered(method, path string) bool {
	if method != http.MethodPost && method != http.MethodPut {
		return false
	}
	return path == inventoryPath || strings.HasPrefix(path, inventoryPath+"/")
}

func digest(payload []byte) string {
	sum := sha256.Sum256(payload)
	return hex.EncodeToString(sum[:])
}

type responseCapture struct {
	http.ResponseWriter
	body   bytes.Buffer
	status int
}

func (c *responseCapture) statusCode() int {
	if c.status == 0 {
		return http.StatusOK
	}
	return c.status
}

func (c *responseCapture) WriteHeader(code int) {
	c.status = code
	c.ResponseWriter.WriteHeader(code)
}

func (c *responseCapture) Write(b []byte) (int, error) {
	if c.status == 0 {
		c.status = http.StatusOK
	}
	c.body.Write(b)
	return c.ResponseWriter.Write(b)
}
