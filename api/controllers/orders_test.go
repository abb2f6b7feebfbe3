package controllers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/mealmesh/mealmesh-backend/api/middleware"
	ordersvc "github.com/mealmesh/mealmesh-backend/internal/orders"
	pkgauth "github.com/mealmesh/mealmesh-backend/pkg/auth"
	"github.com/mealmesh/mealmesh-backend/pkg/db/models"
	"github.com/mealmesh/mealmesh-backend/pkg/enums"
	pkgerrors "github.com/mealmesh/mealmesh-backend/pkg/errors"
)

type stubOrdersService struct {
	ordersvc.Service

	created    *ordersvc.CreateInput
	transition *ordersvc.TransitionInput
	err        error
}

func (s *stubOrdersService) Create(ctx context.Context, input ordersvc.CreateInput) (*models.Order, error) {
	if s.err != nil {
		return nil, s.err
	}
	s.created = &input
	return &models.Order{ID: uuid.New(), UserID: input.UserID, Status: enums.OrderStatusPending}, nil
}

func (s *stubOrdersService) Transition(ctx context.Context, input ordersvc.TransitionInput) (*models.Order, error) {
	if s.err != nil {
		return nil, s.err
	}
	s.transition = &input
	return &models.Order{ID: input.OrderID, Status: input.Next}, nil
}

func asCustomer(req *http.Request, userID uuid.UUID) *http.Request {
	principal := pkgauth.Principal{UserID: userID, Role: enums.UserRoleCustomer}
	return req.WithContext(middleware.WithPrincipal(req.Context(), principal))
}

func TestOrderCreateSuccess(t *testing.T) {
	svc := &stubOrdersService{}
	handler := OrderCreate(svc, nil)

	userID := uuid.New()
	itemID := uuid.New()
	payload := []byte(`{
		"items": [{"menu_item_id": "` + itemID.String() + `", "quantity": 2}],
		"delivery_address": {"line1": "12 Elm St", "city": "Austin", "state": "TX", "postal_code": "78701"}
	}`)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/orders", bytes.NewReader(payload))
	req = asCustomer(req, userID)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d: %s", rec.Code, rec.Body.String())
	}
	if svc.created == nil {
		t.Fatal("expected service call")
	}
	if svc.created.UserID != userID {
		t.Fatalf("expected user %s got %s", userID, svc.created.UserID)
	}
	if len(svc.created.Items) != 1 || svc.created.Items[0].Quantity != 2 {
		t.Fatalf("unexpected items: %+v", svc.created.Items)
	}

	var envelope struct {
		Data models.Order `json:"data"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if envelope.Data.Status != enums.OrderStatusPending {
		t.Fatalf("expected pending order got %s", envelope.Data.Status)
	}
}

func TestOrderCreateRejectsEmptyItems(t *testing.T) {
	svc := &stubOrdersService{}
	handler := OrderCreate(svc, nil)

	payload := []byte(`{"items": [], "delivery_address": {"line1": "12 Elm St", "city": "Austin", "state": "TX", "postal_code": "78701"}}`)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/orders", bytes.NewReader(payload))
	req = asCustomer(req, uuid.New())
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", rec.Code)
	}
	if svc.created != nil {
		t.Fatal("service should not be called")
	}
}

func TestOrderTransitionRejectsUnknownStatus(t *testing.T) {
	svc := &stubOrdersService{}
	handler := OrderTransition(svc, nil)

	req := httptest.NewRequest(http.MethodPatch, "/api/v1/orders/x/status", bytes.NewReader([]byte(`{"status":"teleported"}`)))
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("orderID", uuid.NewString())
	req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
	req = asCustomer(req, uuid.New())
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", rec.Code)
	}
}

func TestOrderTransitionMapsStateConflict(t *testing.T) {
	svc := &stubOrdersService{err: pkgerrors.New(pkgerrors.CodeStateConflict, "delivered orders are final")}
	handler := OrderTransition(svc, nil)

	orderID := uuid.New()
	req := httptest.NewRequest(http.MethodPatch, "/api/v1/orders/x/status", bytes.NewReader([]byte(`{"status":"confirmed"}`)))
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("orderID", orderID.String())
	req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
	req = asCustomer(req, uuid.New())
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 got %d", rec.Code)
	}
}

func TestOrderGetRejectsMalformedID(t *testing.T) {
	handler := OrderGet(&stubOrdersService{}, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/orders/not-a-uuid", nil)
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("orderID", "not-a-uuid")
	req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
	req = asCustomer(req, uuid.New())
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", rec.Code)
	}
}

func TestOrderCreateNilServiceGuard(t *testing.T) {
	handler := OrderCreate(nil, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/orders", bytes.NewReader([]byte(`{}`)))
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500 got %d", rec.Code)
	}
}
