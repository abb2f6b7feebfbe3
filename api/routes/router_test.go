package routes

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/mealmesh/mealmesh-backend/internal/cart"
	"github.com/mealmesh/mealmesh-backend/internal/orders"
	"github.com/mealmesh/mealmesh-backend/internal/stores"
	pkgauth "github.com/mealmesh/mealmesh-backend/pkg/auth"
	"github.com/mealmesh/mealmesh-backend/pkg/config"
	"github.com/mealmesh/mealmesh-backend/pkg/db/models"
	"github.com/mealmesh/mealmesh-backend/pkg/enums"
	"github.com/mealmesh/mealmesh-backend/pkg/logger"
	"github.com/mealmesh/mealmesh-backend/pkg/pagination"
	"github.com/mealmesh/mealmesh-backend/pkg/redis"
)

type stubStoresService struct{ stores.Service }

func (stubStoresService) ListPublic(ctx context.Context, category *string, page pagination.Params) ([]models.Store, *pagination.Page, error) {
	return []models.Store{}, &pagination.Page{}, nil
}

type stubCartService struct{ cart.Service }

func (stubCartService) Get(ctx context.Context, userID uuid.UUID) (*models.Cart, error) {
	return &models.Cart{UserID: userID}, nil
}

type stubOrdersService struct{ orders.Service }

func (stubOrdersService) ListAll(ctx context.Context, filter orders.ListFilter, page pagination.Params) ([]models.Order, *pagination.Page, error) {
	return []models.Order{}, &pagination.Page{}, nil
}

func (stubOrdersService) Transition(ctx context.Context, input orders.TransitionInput) (*models.Order, error) {
	return &models.Order{ID: input.OrderID, Status: input.Next}, nil
}

func testConfig() *config.Config {
	return &config.Config{
		App: config.AppConfig{Env: "test", Port: "0"},
		JWT: config.JWTConfig{
			Secret:            "secret",
			Issuer:            "issuer",
			ExpirationMinutes: 60,
		},
	}
}

func newTestRouter(cfg *config.Config) http.Handler {
	logg := logger.New(logger.Options{ServiceName: "test-routing", Level: logger.ParseLevel("debug"), Output: io.Discard})
	return NewRouter(
		cfg,
		logg,
		(*redis.Client)(nil),
		nil,
		nil,
		Services{
			Stores: stubStoresService{},
			Cart:   stubCartService{},
			Orders: stubOrdersService{},
		},
	)
}

func buildToken(t *testing.T, cfg *config.Config, role enums.UserRole) string {
	t.Helper()
	token, err := pkgauth.MintAccessToken(cfg.JWT, time.Now(), pkgauth.AccessTokenPayload{
		UserID: uuid.New(),
		Role:   role,
		JTI:    uuid.NewString(),
	})
	if err != nil {
		t.Fatalf("minting token: %v", err)
	}
	return token
}

func TestPublicStoreListingNeedsNoToken(t *testing.T) {
	router := newTestRouter(testConfig())
	req := httptest.NewRequest(http.MethodGet, "/api/v1/stores", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 for public store listing got %d", resp.Code)
	}
}

func TestCustomerGroupRejectsMissingToken(t *testing.T) {
	router := newTestRouter(testConfig())
	req := httptest.NewRequest(http.MethodGet, "/api/v1/cart", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token got %d", resp.Code)
	}
}

func TestCustomerGroupRequiresCustomerRole(t *testing.T) {
	cfg := testConfig()
	router := newTestRouter(cfg)

	owner := httptest.NewRequest(http.MethodGet, "/api/v1/cart", nil)
	owner.Header.Set("Authorization", "Bearer "+buildToken(t, cfg, enums.UserRoleStoreOwner))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, owner)
	if resp.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for store owner on cart got %d", resp.Code)
	}

	customer := httptest.NewRequest(http.MethodGet, "/api/v1/cart", nil)
	customer.Header.Set("Authorization", "Bearer "+buildToken(t, cfg, enums.UserRoleCustomer))
	resp = httptest.NewRecorder()
	router.ServeHTTP(resp, customer)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 for customer cart got %d", resp.Code)
	}
}

func TestAdminGroupRequiresAdminRole(t *testing.T) {
	cfg := testConfig()
	router := newTestRouter(cfg)

	customer := httptest.NewRequest(http.MethodGet, "/api/v1/admin/orders", nil)
	customer.Header.Set("Authorization", "Bearer "+buildToken(t, cfg, enums.UserRoleCustomer))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, customer)
	if resp.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for non-admin got %d", resp.Code)
	}

	admin := httptest.NewRequest(http.MethodGet, "/api/v1/admin/orders", nil)
	admin.Header.Set("Authorization", "Bearer "+buildToken(t, cfg, enums.UserRoleAdmin))
	resp = httptest.NewRecorder()
	router.ServeHTTP(resp, admin)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 for admin got %d", resp.Code)
	}
}

func TestOrderStatusPatchAllowsDeliveryRole(t *testing.T) {
	cfg := testConfig()
	router := newTestRouter(cfg)
	target := "/api/v1/orders/" + uuid.NewString() + "/status"
	body := `{"status":"delivered"}`

	courier := httptest.NewRequest(http.MethodPatch, target, strings.NewReader(body))
	courier.Header.Set("Authorization", "Bearer "+buildToken(t, cfg, enums.UserRoleDelivery))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, courier)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 for courier status update got %d", resp.Code)
	}

	customer := httptest.NewRequest(http.MethodPatch, target, strings.NewReader(body))
	customer.Header.Set("Authorization", "Bearer "+buildToken(t, cfg, enums.UserRoleCustomer))
	resp = httptest.NewRecorder()
	router.ServeHTTP(resp, customer)
	if resp.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for customer status update got %d", resp.Code)
	}
}

func TestMetricsEndpointExposed(t *testing.T) {
	router := newTestRouter(testConfig())
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 for metrics got %d", resp.Code)
	}
}
