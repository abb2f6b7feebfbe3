package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/mealmesh/mealmesh-backend/api/middleware"
	"github.com/mealmesh/mealmesh-backend/api/responses"
	"github.com/mealmesh/mealmesh-backend/api/validators"
	ordersvc "github.com/mealmesh/mealmesh-backend/internal/orders"
	"github.com/mealmesh/mealmesh-backend/pkg/enums"
	pkgerrors "github.com/mealmesh/mealmesh-backend/pkg/errors"
	"github.com/mealmesh/mealmesh-backend/pkg/logger"
	"github.com/mealmesh/mealmesh-backend/pkg/types"
)

type orderLinePayload struct {
	MenuItemID uuid.UUID `json:"menu_item_id" validate:"required"`
	Quantity   int       `json:"quantity" validate:"required,min=1"`
}

type createOrderRequest struct {
	Items           []orderLinePayload `json:"items" validate:"required,min=1,dive"`
	DeliveryAddress types.Address      `json:"delivery_address" validate:"required"`
	Notes           *string            `json:"notes,omitempty"`
	PromoCode       *string            `json:"promo_code,omitempty"`
}

func (r createOrderRequest) toInput(userID uuid.UUID) ordersvc.CreateInput {
	lines := make([]ordersvc.LineInput, len(r.Items))
	for i, item := range r.Items {
		lines[i] = ordersvc.LineInput{MenuItemID: item.MenuItemID, Quantity: item.Quantity}
	}
	return ordersvc.CreateInput{
		UserID:          userID,
		Items:           lines,
		DeliveryAddress: r.DeliveryAddress,
		Notes:           r.Notes,
		PromoCode:       r.PromoCode,
	}
}

// OrderCreate places an order from an explicit list of menu items.
func OrderCreate(svc ordersvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}

		principal := middleware.PrincipalFromContext(r.Context())

		var body createOrderRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.Create(r.Context(), body.toInput(principal.UserID))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, order)
	}
}

type orderFromCartRequest struct {
	Notes *string `json:"notes,omitempty"`
}

// OrderCreateFromCart places an order from the user's persisted cart.
func OrderCreateFromCart(svc ordersvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}

		principal := middleware.PrincipalFromContext(r.Context())

		var body orderFromCartRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.CreateFromCart(r.Context(), ordersvc.FromCartInput{
			UserID: principal.UserID,
			Notes:  body.Notes,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, order)
	}
}

// OrderGet returns one order, scoped to the caller's role.
func OrderGet(svc ordersvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}

		principal := middleware.PrincipalFromContext(r.Context())
		orderID, err := validators.ParsePathUUID(chi.URLParam(r, "orderID"), "order id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.Get(r.Context(), ordersvc.Actor{UserID: principal.UserID, Role: principal.Role}, orderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, order)
	}
}

func orderStatusFilter(r *http.Request) (*enums.OrderStatus, error) {
	raw := r.URL.Query().Get("status")
	if raw == "" {
		return nil, nil
	}
	status, err := enums.ParseOrderStatus(raw)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status filter")
	}
	return &status, nil
}

// OrderListMine lists the authenticated customer's orders.
func OrderListMine(svc ordersvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}

		principal := middleware.PrincipalFromContext(r.Context())
		status, err := orderStatusFilter(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		orders, page, err := svc.ListForUser(r.Context(), principal.UserID, status, validators.ParsePagination(r))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]any{
			"orders":     orders,
			"pagination": page,
		})
	}
}

// OrderListForStore lists incoming orders for one of the owner's stores.
func OrderListForStore(svc ordersvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}

		principal := middleware.PrincipalFromContext(r.Context())
		storeID, err := validators.ParsePathUUID(chi.URLParam(r, "storeID"), "store id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		status, err := orderStatusFilter(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		orders, page, err := svc.ListForStore(r.Context(), principal.UserID, storeID, status, validators.ParsePagination(r))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]any{
			"orders":     orders,
			"pagination": page,
		})
	}
}

// OrderListAll lists orders across the platform for back office review.
func OrderListAll(svc ordersvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}

		status, err := orderStatusFilter(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		filter := ordersvc.ListFilter{Status: status}
		if storeID, err := validators.ParseQueryUUID(r, "store_id"); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		} else if storeID != nil {
			filter.StoreID = storeID
		}
		if userID, err := validators.ParseQueryUUID(r, "user_id"); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		} else if userID != nil {
			filter.UserID = userID
		}

		orders, page, err := svc.ListAll(r.Context(), filter, validators.ParsePagination(r))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]any{
			"orders":     orders,
			"pagination": page,
		})
	}
}

type orderStatusRequest struct {
	Status string `json:"status" validate:"required"`
}

// OrderTransition moves an order along the status graph on behalf of the caller.
func OrderTransition(svc ordersvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}

		principal := middleware.PrincipalFromContext(r.Context())
		orderID, err := validators.ParsePathUUID(chi.URLParam(r, "orderID"), "order id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body orderStatusRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		next, err := enums.ParseOrderStatus(body.Status)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status"))
			return
		}

		order, err := svc.Transition(r.Context(), ordersvc.TransitionInput{
			Actor:   ordersvc.Actor{UserID: principal.UserID, Role: principal.Role},
			OrderID: orderID,
			Next:    next,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, order)
	}
}

type cancelOrderRequest struct {
	Reason string `json:"reason" validate:"required"`
}

// OrderCancel lets a customer cancel their own pending order.
func OrderCancel(svc ordersvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}

		principal := middleware.PrincipalFromContext(r.Context())
		orderID, err := validators.ParsePathUUID(chi.URLParam(r, "orderID"), "order id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body cancelOrderRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.CancelByCustomer(r.Context(), principal.UserID, orderID, body.Reason)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, order)
	}
}

// OrderAdminCancel cancels an order from the back office, refunding any
// settled payment.
func OrderAdminCancel(svc ordersvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}

		principal := middleware.PrincipalFromContext(r.Context())
		orderID, err := validators.ParsePathUUID(chi.URLParam(r, "orderID"), "order id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body cancelOrderRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.AdminCancel(r.Context(), principal.UserID, orderID, body.Reason)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, order)
	}
}
