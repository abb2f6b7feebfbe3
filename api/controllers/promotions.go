package controllers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/mealmesh/mealmesh-backend/api/middleware"
	"github.com/mealmesh/mealmesh-backend/api/responses"
	"github.com/mealmesh/mealmesh-backend/api/validators"
	promosvc "github.com/mealmesh/mealmesh-backend/internal/promotions"
	"github.com/mealmesh/mealmesh-backend/pkg/enums"
	pkgerrors "github.com/mealmesh/mealmesh-backend/pkg/errors"
	"github.com/mealmesh/mealmesh-backend/pkg/logger"
)

// PromotionListActive lists currently redeemable promotions.
func PromotionListActive(svc promosvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "promotions service unavailable"))
			return
		}

		promos, page, err := svc.ListActive(r.Context(), validators.ParsePagination(r))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]any{
			"promotions": promos,
			"pagination": page,
		})
	}
}

type validatePromoRequest struct {
	Code       string      `json:"code" validate:"required"`
	StoreID    *uuid.UUID  `json:"store_id,omitempty"`
	ItemIDs    []uuid.UUID `json:"item_ids,omitempty"`
	Categories []string    `json:"categories,omitempty"`
	TotalCents int64       `json:"total_cents" validate:"min=0"`
}

// PromotionValidate checks a code against a cart snapshot and previews the
// discount. Anonymous callers skip the per-user usage check.
func PromotionValidate(svc promosvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "promotions service unavailable"))
			return
		}

		principal := middleware.PrincipalFromContext(r.Context())

		var body validatePromoRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		promo, err := svc.Validate(r.Context(), body.Code, promosvc.CartSnapshot{
			UserID:     principal.UserID,
			StoreID:    body.StoreID,
			ItemIDs:    body.ItemIDs,
			Categories: body.Categories,
			TotalCents: body.TotalCents,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]any{
			"promotion":      promo,
			"discount_cents": svc.CalculateDiscount(promo, body.TotalCents),
		})
	}
}

type createPromotionRequest struct {
	Code             string      `json:"code" validate:"required"`
	Description      *string     `json:"description,omitempty"`
	Type             string      `json:"type" validate:"required"`
	DiscountValue    string      `json:"discount_value" validate:"required"`
	MaxDiscountCents *int64      `json:"max_discount_cents,omitempty"`
	MinOrderCents    int64       `json:"min_order_cents" validate:"min=0"`
	Scope            string      `json:"scope" validate:"required"`
	StoreIDs         []uuid.UUID `json:"store_ids,omitempty"`
	ItemIDs          []uuid.UUID `json:"item_ids,omitempty"`
	Categories       []string    `json:"categories,omitempty"`
	StartsAt         time.Time   `json:"starts_at" validate:"required"`
	EndsAt           time.Time   `json:"ends_at" validate:"required"`
	MaxUses          *int        `json:"max_uses,omitempty"`
	MaxUsesPerUser   int         `json:"max_uses_per_user" validate:"min=0"`
}

func (r createPromotionRequest) toInput(adminID uuid.UUID) (promosvc.CreateInput, error) {
	promoType, err := enums.ParsePromotionType(r.Type)
	if err != nil {
		return promosvc.CreateInput{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid promotion type")
	}
	scope, err := enums.ParsePromotionScope(r.Scope)
	if err != nil {
		return promosvc.CreateInput{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid promotion scope")
	}
	value, err := decimal.NewFromString(r.DiscountValue)
	if err != nil {
		return promosvc.CreateInput{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid discount value")
	}
	return promosvc.CreateInput{
		Code:             r.Code,
		Description:      r.Description,
		Type:             promoType,
		DiscountValue:    value,
		MaxDiscountCents: r.MaxDiscountCents,
		MinOrderCents:    r.MinOrderCents,
		Scope:            scope,
		StoreIDs:         r.StoreIDs,
		ItemIDs:          r.ItemIDs,
		Categories:       r.Categories,
		StartsAt:         r.StartsAt,
		EndsAt:           r.EndsAt,
		MaxUses:          r.MaxUses,
		MaxUsesPerUser:   r.MaxUsesPerUser,
		CreatedBy:        adminID,
	}, nil
}

// PromotionCreate adds a promotion.
func PromotionCreate(svc promosvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "promotions service unavailable"))
			return
		}

		principal := middleware.PrincipalFromContext(r.Context())

		var body createPromotionRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input, err := body.toInput(principal.UserID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		promo, err := svc.Create(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, promo)
	}
}

type updatePromotionRequest struct {
	Description      *string    `json:"description,omitempty"`
	DiscountValue    *string    `json:"discount_value,omitempty"`
	MaxDiscountCents *int64     `json:"max_discount_cents,omitempty"`
	MinOrderCents    *int64     `json:"min_order_cents,omitempty"`
	StartsAt         *time.Time `json:"starts_at,omitempty"`
	EndsAt           *time.Time `json:"ends_at,omitempty"`
	MaxUses          *int       `json:"max_uses,omitempty"`
	MaxUsesPerUser   *int       `json:"max_uses_per_user,omitempty"`
}

// PromotionUpdate edits a promotion's terms.
func PromotionUpdate(svc promosvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "promotions service unavailable"))
			return
		}

		promoID, err := validators.ParsePathUUID(chi.URLParam(r, "promotionID"), "promotion id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body updatePromotionRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input := promosvc.UpdateInput{
			ID:               promoID,
			Description:      body.Description,
			MaxDiscountCents: body.MaxDiscountCents,
			MinOrderCents:    body.MinOrderCents,
			StartsAt:         body.StartsAt,
			EndsAt:           body.EndsAt,
			MaxUses:          body.MaxUses,
			MaxUsesPerUser:   body.MaxUsesPerUser,
		}
		if body.DiscountValue != nil {
			value, err := decimal.NewFromString(*body.DiscountValue)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid discount value"))
				return
			}
			input.DiscountValue = &value
		}

		promo, err := svc.Update(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, promo)
	}
}

type promotionActiveRequest struct {
	IsActive *bool `json:"is_active" validate:"required"`
}

// PromotionSetActive toggles a promotion on or off.
func PromotionSetActive(svc promosvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "promotions service unavailable"))
			return
		}

		promoID, err := validators.ParsePathUUID(chi.URLParam(r, "promotionID"), "promotion id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body promotionActiveRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.SetActive(r.Context(), promoID, *body.IsActive); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]bool{"is_active": *body.IsActive})
	}
}

// PromotionDelete removes a promotion from circulation.
func PromotionDelete(svc promosvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "promotions service unavailable"))
			return
		}

		promoID, err := validators.ParsePathUUID(chi.URLParam(r, "promotionID"), "promotion id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.Delete(r.Context(), promoID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]bool{"deleted": true})
	}
}

// PromotionStats summarizes redemption of one promotion.
func PromotionStats(svc promosvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "promotions service unavailable"))
			return
		}

		promoID, err := validators.ParsePathUUID(chi.URLParam(r, "promotionID"), "promotion id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		stats, err := svc.Stats(r.Context(), promoID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, stats)
	}
}

// PromotionListAll lists every promotion for back office management.
func PromotionListAll(svc promosvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "promotions service unavailable"))
			return
		}

		promos, page, err := svc.ListAll(r.Context(), validators.ParsePagination(r))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]any{
			"promotions": promos,
			"pagination": page,
		})
	}
}
