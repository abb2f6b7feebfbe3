package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/mealmesh/mealmesh-backend/api/middleware"
	"github.com/mealmesh/mealmesh-backend/api/responses"
	"github.com/mealmesh/mealmesh-backend/api/validators"
	menusvc "github.com/mealmesh/mealmesh-backend/internal/menu"
	pkgerrors "github.com/mealmesh/mealmesh-backend/pkg/errors"
	"github.com/mealmesh/mealmesh-backend/pkg/logger"
)

type createMenuItemRequest struct {
	Name          string  `json:"name" validate:"required"`
	Description   *string `json:"description,omitempty"`
	Category      string  `json:"category" validate:"required"`
	PriceCents    int64   `json:"price_cents" validate:"required,min=1"`
	StockQuantity *int    `json:"stock_quantity,omitempty"`
}

// MenuItemCreate adds an item to the owner's store menu.
func MenuItemCreate(svc menusvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "menu service unavailable"))
			return
		}

		principal := middleware.PrincipalFromContext(r.Context())
		storeID, err := validators.ParsePathUUID(chi.URLParam(r, "storeID"), "store id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body createMenuItemRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		item, err := svc.Create(r.Context(), menusvc.CreateInput{
			OwnerID:       principal.UserID,
			StoreID:       storeID,
			Name:          body.Name,
			Description:   body.Description,
			Category:      body.Category,
			PriceCents:    body.PriceCents,
			StockQuantity: body.StockQuantity,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, item)
	}
}

// MenuItemGet returns one menu item.
func MenuItemGet(svc menusvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "menu service unavailable"))
			return
		}

		itemID, err := validators.ParsePathUUID(chi.URLParam(r, "itemID"), "item id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		item, err := svc.Get(r.Context(), itemID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, item)
	}
}

// MenuList lists a store's menu with optional category and availability filters.
func MenuList(svc menusvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "menu service unavailable"))
			return
		}

		storeID, err := validators.ParsePathUUID(chi.URLParam(r, "storeID"), "store id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var filter menusvc.ListFilter
		if raw := r.URL.Query().Get("category"); raw != "" {
			filter.Category = &raw
		}
		if r.URL.Query().Get("available") == "true" {
			filter.OnlyAvailable = true
		}

		items, page, err := svc.List(r.Context(), storeID, filter, validators.ParsePagination(r))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]any{
			"items":      items,
			"pagination": page,
		})
	}
}

type updateMenuItemRequest struct {
	Name          *string `json:"name,omitempty"`
	Description   *string `json:"description,omitempty"`
	Category      *string `json:"category,omitempty"`
	PriceCents    *int64  `json:"price_cents,omitempty"`
	IsAvailable   *bool   `json:"is_available,omitempty"`
	StockQuantity *int    `json:"stock_quantity,omitempty"`
}

// MenuItemUpdate edits an item on the owner's store menu.
func MenuItemUpdate(svc menusvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "menu service unavailable"))
			return
		}

		principal := middleware.PrincipalFromContext(r.Context())
		storeID, err := validators.ParsePathUUID(chi.URLParam(r, "storeID"), "store id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		itemID, err := validators.ParsePathUUID(chi.URLParam(r, "itemID"), "item id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body updateMenuItemRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		item, err := svc.Update(r.Context(), menusvc.UpdateInput{
			OwnerID:       principal.UserID,
			StoreID:       storeID,
			ItemID:        itemID,
			Name:          body.Name,
			Description:   body.Description,
			Category:      body.Category,
			PriceCents:    body.PriceCents,
			IsAvailable:   body.IsAvailable,
			StockQuantity: body.StockQuantity,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, item)
	}
}

// MenuItemDelete removes an item from the owner's store menu.
func MenuItemDelete(svc menusvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "menu service unavailable"))
			return
		}

		principal := middleware.PrincipalFromContext(r.Context())
		storeID, err := validators.ParsePathUUID(chi.URLParam(r, "storeID"), "store id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		itemID, err := validators.ParsePathUUID(chi.URLParam(r, "itemID"), "item id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.Delete(r.Context(), principal.UserID, storeID, itemID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]bool{"deleted": true})
	}
}
