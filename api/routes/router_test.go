package routes

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/angelmondragon/gemvault-backend/internal/inventory"
	pkgAuth "github.com/angelmondragon/gemvault-backend/pkg/auth"
	"github.com/angelmondragon/gemvault-backend/pkg/auth/session"
	"github.com/angelmondragon/gemvault-backend/pkg/config"
	"github.com/angelmondragon/gemvault-backend/pkg/enums"
	"github.com/angelmondragon/gemvault-backend/pkg/logger"
	"github.com/angelmondragon/gemvault-backend/pkg/metrics"
)

type stubPinger struct{}

func (stubPinger) Ping(context.Context) error {
	return nil
}

type stubSessionManager struct{}

func (stubSessionManager) HasSession(ctx context.Context, accessID string) (bool, error) {
	return true, nil
}

type stubInventoryService struct {
	inventory.Service
	sold bool
}

func (s *stubInventoryService) List(ctx context.Context, params inventory.ListParams) (*inventory.ItemList, error) {
	return &inventory.ItemList{Items: []inventory.ItemDTO{}}, nil
}

func (s *stubInventoryService) Sell(ctx context.Context, input inventory.SellInput) (*inventory.MovementResult, error) {
	s.sold = true
	return &inventory.MovementResult{}, nil
}

func testConfig() *config.Config {
	return &config.Config{
		App: config.AppConfig{Env: "test", Port: "0", CORSOrigins: "*"},
		JWT: config.JWTConfig{
			Secret:                 "secret",
			Issuer:                 "issuer",
			ExpirationMinutes:      60,
			RefreshTokenTTLMinutes: 120,
		},
		HTTP: config.HTTPConfig{MaxUploadMB: 1},
	}
}

func newTestRouter(cfg *config.Config, inv inventory.Service) http.Handler {
	logg := logger.New(logger.Options{ServiceName: "test-routing", Level: logger.ParseLevel("debug"), Output: io.Discard})
	reg := prometheus.NewRegistry()
	return NewRouter(
		cfg,
		logg,
		stubPinger{},
		nil,
		stubSessionManager{},
		reg,
		metrics.NewHTTPMetrics(reg),
		Services{Inventory: inv},
	)
}

func buildToken(t *testing.T, cfg *config.Config, role enums.UserRole, authorized bool) string {
	t.Helper()
	token, err := pkgAuth.MintAccessToken(cfg.JWT, time.Now(), pkgAuth.AccessTokenPayload{
		UserID:       uuid.New(),
		Email:        "operator@gemvault.co",
		Role:         role,
		IsAuthorized: authorized,
		JTI:          session.NewAccessID(),
	})
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}
	return token
}

func serve(router http.Handler, req *http.Request) *httptest.ResponseRecorder {
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	return resp
}

func TestHealthAndMetricsArePublic(t *testing.T) {
	router := newTestRouter(testConfig(), &stubInventoryService{})

	if resp := serve(router, httptest.NewRequest(http.MethodGet, "/health/live", nil)); resp.Code != http.StatusOK {
		t.Fatalf("expected 200 for live got %d", resp.Code)
	}
	if resp := serve(router, httptest.NewRequest(http.MethodGet, "/health/ready", nil)); resp.Code != http.StatusOK {
		t.Fatalf("expected 200 for ready got %d", resp.Code)
	}
	if resp := serve(router, httptest.NewRequest(http.MethodGet, "/metrics", nil)); resp.Code != http.StatusOK {
		t.Fatalf("expected 200 for metrics got %d", resp.Code)
	}
}

func TestProtectedRoutesRejectMissingJWT(t *testing.T) {
	router := newTestRouter(testConfig(), &stubInventoryService{})
	resp := serve(router, httptest.NewRequest(http.MethodGet, "/api/v1/inventory", nil))
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token got %d", resp.Code)
	}
}

func TestPendingAccountsAreForbidden(t *testing.T) {
	cfg := testConfig()
	router := newTestRouter(cfg, &stubInventoryService{})
	req := httptest.NewRequest(http.MethodGet, "/api/v1/inventory", nil)
	req.Header.Set("Authorization", "Bearer "+buildToken(t, cfg, enums.UserRoleUser, false))
	if resp := serve(router, req); resp.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for unauthorized account got %d", resp.Code)
	}
}

func TestReadsAllowAnyAuthorizedRole(t *testing.T) {
	cfg := testConfig()
	router := newTestRouter(cfg, &stubInventoryService{})
	for _, role := range []enums.UserRole{enums.UserRoleAdmin, enums.UserRoleAuditor, enums.UserRoleUser} {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/inventory", nil)
		req.Header.Set("Authorization", "Bearer "+buildToken(t, cfg, role, true))
		if resp := serve(router, req); resp.Code != http.StatusOK {
			t.Fatalf("expected 200 for %s got %d", role, resp.Code)
		}
	}
}

func TestStockWritesRequireAdmin(t *testing.T) {
	cfg := testConfig()
	inv := &stubInventoryService{}
	router := newTestRouter(cfg, inv)
	path := "/api/v1/inventory/" + uuid.NewString() + "/sell"
	body := []byte(`{"quantity":1,"price":10,"payment_method":"cash"}`)

	auditor := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(body))
	auditor.Header.Set("Authorization", "Bearer "+buildToken(t, cfg, enums.UserRoleAuditor, true))
	if resp := serve(router, auditor); resp.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for auditor got %d", resp.Code)
	}
	if inv.sold {
		t.Fatal("sell must not run for non-admin")
	}

	admin := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(body))
	admin.Header.Set("Authorization", "Bearer "+buildToken(t, cfg, enums.UserRoleAdmin, true))
	if resp := serve(router, admin); resp.Code != http.StatusOK {
		t.Fatalf("expected 200 for admin got %d: %s", resp.Code, resp.Body.String())
	}
	if !inv.sold {
		t.Fatal("expected sell to run for admin")
	}
}

func TestUserAdministrationRequiresAdmin(t *testing.T) {
	cfg := testConfig()
	router := newTestRouter(cfg, &stubInventoryService{})
	req := httptest.NewRequest(http.MethodGet, "/api/v1/users", nil)
	req.Header.Set("Authorization", "Bearer "+buildToken(t, cfg, enums.UserRoleUser, true))
	if resp := serve(router, req); resp.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for user role got %d", resp.Code)
	}
}
