package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/mealmesh/mealmesh-backend/api/middleware"
	"github.com/mealmesh/mealmesh-backend/api/responses"
	"github.com/mealmesh/mealmesh-backend/api/validators"
	paymentsvc "github.com/mealmesh/mealmesh-backend/internal/payments"
	"github.com/mealmesh/mealmesh-backend/pkg/enums"
	pkgerrors "github.com/mealmesh/mealmesh-backend/pkg/errors"
	"github.com/mealmesh/mealmesh-backend/pkg/logger"
)

type createPaymentRequest struct {
	OrderID uuid.UUID `json:"order_id" validate:"required"`
	Method  string    `json:"method" validate:"required"`
}

// PaymentCreate opens a payment for one of the caller's orders.
func PaymentCreate(svc paymentsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payments service unavailable"))
			return
		}

		principal := middleware.PrincipalFromContext(r.Context())

		var body createPaymentRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		method, err := enums.ParsePaymentMethod(body.Method)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid payment method"))
			return
		}

		payment, err := svc.Create(r.Context(), paymentsvc.CreateInput{
			UserID:  principal.UserID,
			OrderID: body.OrderID,
			Method:  method,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, payment)
	}
}

// PaymentGet returns one payment record.
func PaymentGet(svc paymentsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payments service unavailable"))
			return
		}

		paymentID, err := validators.ParsePathUUID(chi.URLParam(r, "paymentID"), "payment id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		payment, err := svc.Get(r.Context(), paymentID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, payment)
	}
}

// PaymentListMine lists the caller's own payments.
func PaymentListMine(svc paymentsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payments service unavailable"))
			return
		}

		principal := middleware.PrincipalFromContext(r.Context())
		payments, page, err := svc.ListForUser(r.Context(), principal.UserID, validators.ParsePagination(r))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]any{
			"payments":   payments,
			"pagination": page,
		})
	}
}

// PaymentListForStore lists a store's payments with commission totals.
func PaymentListForStore(svc paymentsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payments service unavailable"))
			return
		}

		principal := middleware.PrincipalFromContext(r.Context())
		storeID, err := validators.ParsePathUUID(chi.URLParam(r, "storeID"), "store id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		payments, totals, page, err := svc.ListForStore(r.Context(), principal.UserID, storeID, validators.ParsePagination(r))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]any{
			"payments":   payments,
			"totals":     totals,
			"pagination": page,
		})
	}
}

// PaymentListAll lists payments across the platform with optional filters.
func PaymentListAll(svc paymentsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payments service unavailable"))
			return
		}

		var filter paymentsvc.ListFilter
		if raw := r.URL.Query().Get("status"); raw != "" {
			status, err := enums.ParsePaymentStatus(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status filter"))
				return
			}
			filter.Status = &status
		}
		if storeID, err := validators.ParseQueryUUID(r, "store_id"); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		} else if storeID != nil {
			filter.StoreID = storeID
		}

		payments, page, err := svc.ListAll(r.Context(), filter, validators.ParsePagination(r))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]any{
			"payments":   payments,
			"pagination": page,
		})
	}
}

type completePaymentRequest struct {
	TransactionID  string  `json:"transaction_id" validate:"required"`
	GatewayOrderID *string `json:"gateway_order_id,omitempty"`
}

// PaymentComplete settles a payment and confirms its order.
func PaymentComplete(svc paymentsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payments service unavailable"))
			return
		}

		paymentID, err := validators.ParsePathUUID(chi.URLParam(r, "paymentID"), "payment id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body completePaymentRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		payment, err := svc.Complete(r.Context(), paymentsvc.CompleteInput{
			PaymentID:      paymentID,
			TransactionID:  &body.TransactionID,
			GatewayOrderID: body.GatewayOrderID,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, payment)
	}
}

type failPaymentRequest struct {
	Reason string `json:"reason" validate:"required"`
}

// PaymentFail marks an unsettled payment as failed.
func PaymentFail(svc paymentsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payments service unavailable"))
			return
		}

		paymentID, err := validators.ParsePathUUID(chi.URLParam(r, "paymentID"), "payment id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body failPaymentRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		payment, err := svc.Fail(r.Context(), paymentID, body.Reason)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, payment)
	}
}

type refundPaymentRequest struct {
	AmountCents *int64 `json:"amount_cents,omitempty"`
	Reason      string `json:"reason" validate:"required"`
}

// PaymentRefund reverses a settled payment and cancels its order.
func PaymentRefund(svc paymentsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payments service unavailable"))
			return
		}

		paymentID, err := validators.ParsePathUUID(chi.URLParam(r, "paymentID"), "payment id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body refundPaymentRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		payment, err := svc.Refund(r.Context(), paymentsvc.RefundInput{
			PaymentID:   paymentID,
			AmountCents: body.AmountCents,
			Reason:      body.Reason,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, payment)
	}
}
