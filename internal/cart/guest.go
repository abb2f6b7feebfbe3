package cart

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/google/uuid"
	"github.com/mealmesh/mealmesh-backend/pkg/db/models"
	pkgerrors "github.com/mealmesh/mealmesh-backend/pkg/errors"
	redispkg "github.com/mealmesh/mealmesh-backend/pkg/redis"
	"gorm.io/gorm"
)

// GuestCart is the Redis-resident cart for an unauthenticated session. It
// carries the same snapshots as a persisted cart so a login merge is a
// straight copy.
type GuestCart struct {
	Token           string          `json:"token"`
	StoreID         *uuid.UUID      `json:"store_id,omitempty"`
	Items           []GuestCartItem `json:"items"`
	ItemsTotalCents int64           `json:"items_total_cents"`
}

// GuestCartItem is one line of a guest cart.
type GuestCartItem struct {
	MenuItemID     uuid.UUID `json:"menu_item_id"`
	NameSnapshot   string    `json:"name_snapshot"`
	UnitPriceCents int64     `json:"unit_price_cents"`
	Quantity       int       `json:"quantity"`
	LineTotalCents int64     `json:"line_total_cents"`
}

// GuestItemInput adds a menu item to a guest cart.
type GuestItemInput struct {
	MenuItemID uuid.UUID
	Quantity   int
}

func (s *service) GetGuestCart(ctx context.Context, token string) (*GuestCart, error) {
	if token == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "guest token required")
	}
	payload, err := s.guests.GetGuestCart(ctx, token)
	if err != nil {
		if errors.Is(err, redispkg.ErrNotFound) {
			return &GuestCart{Token: token}, nil
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading guest cart")
	}
	var guest GuestCart
	if err := json.Unmarshal([]byte(payload), &guest); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "decoding guest cart")
	}
	guest.Token = token
	return &guest, nil
}

func (s *service) AddGuestItem(ctx context.Context, token string, input GuestItemInput) (*GuestCart, error) {
	if input.Quantity <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}
	guest, err := s.GetGuestCart(ctx, token)
	if err != nil {
		return nil, err
	}

	item, err := s.menuRepo.FindByID(ctx, input.MenuItemID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "menu item not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading menu item")
	}
	if !item.IsAvailable {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "menu item is unavailable")
	}
	if guest.StoreID != nil && *guest.StoreID != item.StoreID {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "cart holds items from another store")
	}

	merged := false
	for i := range guest.Items {
		if guest.Items[i].MenuItemID == item.ID {
			guest.Items[i].Quantity += input.Quantity
			guest.Items[i].LineTotalCents = guest.Items[i].UnitPriceCents * int64(guest.Items[i].Quantity)
			merged = true
			break
		}
	}
	if !merged {
		guest.Items = append(guest.Items, GuestCartItem{
			MenuItemID:     item.ID,
			NameSnapshot:   item.Name,
			UnitPriceCents: item.PriceCents,
			Quantity:       input.Quantity,
			LineTotalCents: item.PriceCents * int64(input.Quantity),
		})
	}
	if guest.StoreID == nil {
		storeID := item.StoreID
		guest.StoreID = &storeID
	}
	guest.ItemsTotalCents = 0
	for _, line := range guest.Items {
		guest.ItemsTotalCents += line.LineTotalCents
	}

	if err := s.saveGuestCart(ctx, guest); err != nil {
		return nil, err
	}
	return guest, nil
}

// MergeGuestCart folds a guest cart into the user's persisted cart on login
// and drops the Redis copy. Items from a different store than the user's
// existing cart fail with Conflict and leave both carts untouched.
func (s *service) MergeGuestCart(ctx context.Context, token string, userID uuid.UUID) (*models.Cart, error) {
	guest, err := s.GetGuestCart(ctx, token)
	if err != nil {
		return nil, err
	}
	cart, err := s.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(guest.Items) == 0 {
		return cart, nil
	}
	if cart.StoreID != nil && guest.StoreID != nil && *cart.StoreID != *guest.StoreID {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "cart holds items from another store")
	}

	for _, line := range guest.Items {
		if _, err := s.AddItem(ctx, AddItemInput{UserID: userID, MenuItemID: line.MenuItemID, Quantity: line.Quantity}); err != nil {
			return nil, err
		}
	}
	if err := s.guests.DeleteGuestCart(ctx, token); err != nil && !errors.Is(err, redispkg.ErrNotFound) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "dropping guest cart")
	}
	return s.Get(ctx, userID)
}

func (s *service) saveGuestCart(ctx context.Context, guest *GuestCart) error {
	payload, err := json.Marshal(guest)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encoding guest cart")
	}
	if err := s.guests.StoreGuestCart(ctx, guest.Token, string(payload), s.redisCfg.GuestCartTTL); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "storing guest cart")
	}
	return nil
}
