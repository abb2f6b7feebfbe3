package controllers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/mealmesh/mealmesh-backend/api/middleware"
	"github.com/mealmesh/mealmesh-backend/api/responses"
	"github.com/mealmesh/mealmesh-backend/api/validators"
	payoutsvc "github.com/mealmesh/mealmesh-backend/internal/payouts"
	"github.com/mealmesh/mealmesh-backend/pkg/enums"
	pkgerrors "github.com/mealmesh/mealmesh-backend/pkg/errors"
	"github.com/mealmesh/mealmesh-backend/pkg/logger"
)

type generatePayoutRequest struct {
	PeriodStart time.Time `json:"period_start" validate:"required"`
	PeriodEnd   time.Time `json:"period_end" validate:"required"`
}

// PayoutGenerate batches a store's eligible payments into one payout.
func PayoutGenerate(svc payoutsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payouts service unavailable"))
			return
		}

		principal := middleware.PrincipalFromContext(r.Context())
		storeID, err := validators.ParsePathUUID(chi.URLParam(r, "storeID"), "store id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body generatePayoutRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		payout, err := svc.Generate(r.Context(), payoutsvc.GenerateInput{
			AdminID:     principal.UserID,
			StoreID:     storeID,
			PeriodStart: body.PeriodStart,
			PeriodEnd:   body.PeriodEnd,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, payout)
	}
}

// PayoutRequestEarly lets a store owner ask for an off-cycle payout.
func PayoutRequestEarly(svc payoutsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payouts service unavailable"))
			return
		}

		principal := middleware.PrincipalFromContext(r.Context())
		storeID, err := validators.ParsePathUUID(chi.URLParam(r, "storeID"), "store id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		payout, err := svc.RequestEarly(r.Context(), principal.UserID, storeID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, payout)
	}
}

// PayoutGet returns one payout record.
func PayoutGet(svc payoutsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payouts service unavailable"))
			return
		}

		payoutID, err := validators.ParsePathUUID(chi.URLParam(r, "payoutID"), "payout id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		payout, err := svc.Get(r.Context(), payoutID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, payout)
	}
}

// PayoutApprove moves a pending payout to approved.
func PayoutApprove(svc payoutsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payouts service unavailable"))
			return
		}

		principal := middleware.PrincipalFromContext(r.Context())
		payoutID, err := validators.ParsePathUUID(chi.URLParam(r, "payoutID"), "payout id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		payout, err := svc.Approve(r.Context(), principal.UserID, payoutID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, payout)
	}
}

type completePayoutRequest struct {
	TransferID string `json:"transfer_id" validate:"required"`
}

// PayoutComplete records the transfer and settles the referenced payments.
func PayoutComplete(svc payoutsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payouts service unavailable"))
			return
		}

		payoutID, err := validators.ParsePathUUID(chi.URLParam(r, "payoutID"), "payout id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body completePayoutRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		payout, err := svc.Complete(r.Context(), payoutsvc.CompleteInput{
			PayoutID:   payoutID,
			TransferID: body.TransferID,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, payout)
	}
}

type failPayoutRequest struct {
	Reason string `json:"reason" validate:"required"`
}

// PayoutFail marks a payout as failed and releases its payments.
func PayoutFail(svc payoutsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payouts service unavailable"))
			return
		}

		payoutID, err := validators.ParsePathUUID(chi.URLParam(r, "payoutID"), "payout id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body failPayoutRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		payout, err := svc.Fail(r.Context(), payoutID, body.Reason)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, payout)
	}
}

// PayoutListForStore lists a store's payouts with an earnings summary.
func PayoutListForStore(svc payoutsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payouts service unavailable"))
			return
		}

		principal := middleware.PrincipalFromContext(r.Context())
		storeID, err := validators.ParsePathUUID(chi.URLParam(r, "storeID"), "store id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		payouts, earnings, page, err := svc.ListForStore(r.Context(), principal.UserID, storeID, validators.ParsePagination(r))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]any{
			"payouts":    payouts,
			"earnings":   earnings,
			"pagination": page,
		})
	}
}

// PayoutListAll lists payouts across the platform with optional filters.
func PayoutListAll(svc payoutsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payouts service unavailable"))
			return
		}

		var filter payoutsvc.ListFilter
		if raw := r.URL.Query().Get("status"); raw != "" {
			status, err := enums.ParsePayoutStatus(raw)
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

		payouts, page, err := svc.ListAll(r.Context(), filter, validators.ParsePagination(r))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]any{
			"payouts":    payouts,
			"pagination": page,
		})
	}
}
