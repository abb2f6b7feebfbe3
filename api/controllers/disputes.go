package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/mealmesh/mealmesh-backend/api/middleware"
	"github.com/mealmesh/mealmesh-backend/api/responses"
	"github.com/mealmesh/mealmesh-backend/api/validators"
	disputesvc "github.com/mealmesh/mealmesh-backend/internal/disputes"
	"github.com/mealmesh/mealmesh-backend/pkg/enums"
	pkgerrors "github.com/mealmesh/mealmesh-backend/pkg/errors"
	"github.com/mealmesh/mealmesh-backend/pkg/logger"
)

func disputeActor(r *http.Request) disputesvc.Actor {
	principal := middleware.PrincipalFromContext(r.Context())
	return disputesvc.Actor{UserID: principal.UserID, Role: principal.Role}
}

type createDisputeRequest struct {
	OrderID     uuid.UUID `json:"order_id" validate:"required"`
	Subject     string    `json:"subject" validate:"required"`
	Description string    `json:"description" validate:"required"`
}

// DisputeCreate opens a dispute against one of the caller's orders.
func DisputeCreate(svc disputesvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "disputes service unavailable"))
			return
		}

		principal := middleware.PrincipalFromContext(r.Context())

		var body createDisputeRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		dispute, err := svc.Create(r.Context(), disputesvc.CreateInput{
			UserID:      principal.UserID,
			OrderID:     body.OrderID,
			Subject:     body.Subject,
			Description: body.Description,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, dispute)
	}
}

// DisputeGet returns one dispute, scoped to the opener, the disputed store's
// owner, or an admin.
func DisputeGet(svc disputesvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "disputes service unavailable"))
			return
		}

		disputeID, err := validators.ParsePathUUID(chi.URLParam(r, "disputeID"), "dispute id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		dispute, err := svc.Get(r.Context(), disputeActor(r), disputeID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, dispute)
	}
}

type disputeCommentRequest struct {
	Note string `json:"note" validate:"required"`
}

// DisputeComment appends a timeline comment.
func DisputeComment(svc disputesvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "disputes service unavailable"))
			return
		}

		disputeID, err := validators.ParsePathUUID(chi.URLParam(r, "disputeID"), "dispute id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body disputeCommentRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		dispute, err := svc.AddComment(r.Context(), disputeActor(r), disputeID, body.Note)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, dispute)
	}
}

type disputeStatusRequest struct {
	Status string `json:"status" validate:"required"`
}

// DisputeUpdateStatus moves a dispute through triage.
func DisputeUpdateStatus(svc disputesvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "disputes service unavailable"))
			return
		}

		principal := middleware.PrincipalFromContext(r.Context())
		disputeID, err := validators.ParsePathUUID(chi.URLParam(r, "disputeID"), "dispute id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body disputeStatusRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		status, err := enums.ParseDisputeStatus(body.Status)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid dispute status"))
			return
		}

		dispute, err := svc.UpdateStatus(r.Context(), principal.UserID, disputeID, status)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, dispute)
	}
}

type resolveDisputeRequest struct {
	Resolution        string `json:"resolution" validate:"required"`
	Notes             string `json:"notes,omitempty"`
	RefundAmountCents *int64 `json:"refund_amount_cents,omitempty"`
}

// DisputeResolve closes a dispute with a resolution, refunding when called for.
func DisputeResolve(svc disputesvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "disputes service unavailable"))
			return
		}

		principal := middleware.PrincipalFromContext(r.Context())
		disputeID, err := validators.ParsePathUUID(chi.URLParam(r, "disputeID"), "dispute id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body resolveDisputeRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		resolution, err := enums.ParseDisputeResolution(body.Resolution)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid resolution"))
			return
		}

		dispute, err := svc.Resolve(r.Context(), disputesvc.ResolveInput{
			AdminID:           principal.UserID,
			DisputeID:         disputeID,
			Resolution:        resolution,
			Notes:             body.Notes,
			RefundAmountCents: body.RefundAmountCents,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, dispute)
	}
}

// DisputeListMine lists the caller's own disputes.
func DisputeListMine(svc disputesvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "disputes service unavailable"))
			return
		}

		principal := middleware.PrincipalFromContext(r.Context())
		disputes, page, err := svc.ListForUser(r.Context(), principal.UserID, validators.ParsePagination(r))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]any{
			"disputes":   disputes,
			"pagination": page,
		})
	}
}

// DisputeListForStore lists disputes filed against the caller's store.
func DisputeListForStore(svc disputesvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "disputes service unavailable"))
			return
		}

		principal := middleware.PrincipalFromContext(r.Context())
		storeID, err := validators.ParsePathUUID(chi.URLParam(r, "storeID"), "store id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		disputes, page, err := svc.ListForStore(r.Context(), principal.UserID, storeID, validators.ParsePagination(r))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]any{
			"disputes":   disputes,
			"pagination": page,
		})
	}
}

// DisputeListAll lists disputes across the platform with optional filters.
func DisputeListAll(svc disputesvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "disputes service unavailable"))
			return
		}

		var filter disputesvc.ListFilter
		if raw := r.URL.Query().Get("status"); raw != "" {
			status, err := enums.ParseDisputeStatus(raw)
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

		disputes, page, err := svc.ListAll(r.Context(), filter, validators.ParsePagination(r))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]any{
			"disputes":   disputes,
			"pagination": page,
		})
	}
}
