package cart

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/mealmesh/mealmesh-backend/internal/menu"
	"github.com/mealmesh/mealmesh-backend/internal/promotions"
	"github.com/mealmesh/mealmesh-backend/pkg/config"
	"github.com/mealmesh/mealmesh-backend/pkg/db/models"
	"github.com/mealmesh/mealmesh-backend/pkg/enums"
	pkgerrors "github.com/mealmesh/mealmesh-backend/pkg/errors"
	redispkg "github.com/mealmesh/mealmesh-backend/pkg/redis"
	"github.com/mealmesh/mealmesh-backend/pkg/types"
	"gorm.io/gorm"
)

// AddItemInput adds a menu item to the caller's cart.
type AddItemInput struct {
	UserID     uuid.UUID
	MenuItemID uuid.UUID
	Quantity   int
}

type service struct {
	repo     Repository
	menuRepo menu.Repository
	promos   promotions.Service
	guests   redispkg.GuestCartStore
	checkout config.CheckoutConfig
	redisCfg config.RedisConfig
}

// NewService builds the cart service.
func NewService(
	repo Repository,
	menuRepo menu.Repository,
	promos promotions.Service,
	guests redispkg.GuestCartStore,
	checkout config.CheckoutConfig,
	redisCfg config.RedisConfig,
) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	if menuRepo == nil {
		return nil, fmt.Errorf("menu repository required")
	}
	if promos == nil {
		return nil, fmt.Errorf("promotions service required")
	}
	if guests == nil {
		return nil, fmt.Errorf("guest cart store required")
	}
	return &service{
		repo:     repo,
		menuRepo: menuRepo,
		promos:   promos,
		guests:   guests,
		checkout: checkout,
		redisCfg: redisCfg,
	}, nil
}

// Get returns the caller's cart, creating an empty one on first use.
func (s *service) Get(ctx context.Context, userID uuid.UUID) (*models.Cart, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}
	cart, err := s.repo.FindByUser(ctx, userID)
	if err == nil {
		return cart, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading cart")
	}
	created, err := s.repo.Create(ctx, &models.Cart{UserID: userID})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "creating cart")
	}
	return created, nil
}

func (s *service) AddItem(ctx context.Context, input AddItemInput) (*models.Cart, error) {
	if input.Quantity <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}
	cart, err := s.Get(ctx, input.UserID)
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
	if cart.StoreID != nil && *cart.StoreID != item.StoreID {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "cart holds items from another store")
	}

	// Same item added twice folds into one line.
	var existing *models.CartItem
	for i := range cart.Items {
		if cart.Items[i].MenuItemID == item.ID {
			existing = &cart.Items[i]
			break
		}
	}
	if existing != nil {
		quantity := existing.Quantity + input.Quantity
		err = s.repo.UpdateItem(ctx, existing.ID, map[string]any{
			"quantity":         quantity,
			"line_total_cents": existing.UnitPriceCents * int64(quantity),
		})
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "updating cart item")
		}
	} else {
		line := &models.CartItem{
			CartID:         cart.ID,
			MenuItemID:     item.ID,
			NameSnapshot:   item.Name,
			UnitPriceCents: item.PriceCents,
			Quantity:       input.Quantity,
			LineTotalCents: item.PriceCents * int64(input.Quantity),
		}
		if err := s.repo.AddItem(ctx, line); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "adding cart item")
		}
	}

	if cart.StoreID == nil {
		storeID := item.StoreID
		cart.StoreID = &storeID
	}
	return s.recompute(ctx, cart.UserID)
}

func (s *service) UpdateItemQuantity(ctx context.Context, userID, itemID uuid.UUID, quantity int) (*models.Cart, error) {
	if quantity < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity cannot be negative")
	}
	cart, err := s.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	line := findLine(cart, itemID)
	if line == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "cart item not found")
	}

	if quantity == 0 {
		if err := s.repo.RemoveItem(ctx, cart.ID, line.ID); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "removing cart item")
		}
	} else {
		err = s.repo.UpdateItem(ctx, line.ID, map[string]any{
			"quantity":         quantity,
			"line_total_cents": line.UnitPriceCents * int64(quantity),
		})
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "updating cart item")
		}
	}
	return s.recompute(ctx, userID)
}

func (s *service) RemoveItem(ctx context.Context, userID, itemID uuid.UUID) (*models.Cart, error) {
	cart, err := s.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	line := findLine(cart, itemID)
	if line == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "cart item not found")
	}
	if err := s.repo.RemoveItem(ctx, cart.ID, line.ID); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "removing cart item")
	}
	return s.recompute(ctx, userID)
}

func (s *service) Clear(ctx context.Context, userID uuid.UUID) error {
	cart, err := s.Get(ctx, userID)
	if err != nil {
		return err
	}
	if err := s.repo.ClearItems(ctx, cart.ID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "clearing cart")
	}
	cart.StoreID = nil
	cart.PromoCode = nil
	cart.PromotionID = nil
	cart.Items = nil
	zeroTotals(cart)
	if err := s.repo.Save(ctx, cart); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "saving cart")
	}
	return nil
}

func (s *service) SetDeliveryAddress(ctx context.Context, userID uuid.UUID, address types.Address) (*models.Cart, error) {
	if address.Line1 == "" || address.City == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "address line1 and city required")
	}
	cart, err := s.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	cart.DeliveryAddress = &address
	if err := s.repo.Save(ctx, cart); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "saving cart")
	}
	return cart, nil
}

func (s *service) ApplyPromo(ctx context.Context, userID uuid.UUID, code string) (*models.Cart, error) {
	cart, err := s.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(cart.Items) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart is empty")
	}

	promo, err := s.promos.Validate(ctx, code, s.snapshot(ctx, cart))
	if err != nil {
		return nil, err
	}

	cart.PromoCode = &promo.Code
	promoID := promo.ID
	cart.PromotionID = &promoID
	return s.recomputeWith(ctx, cart, promo)
}

func (s *service) RemovePromo(ctx context.Context, userID uuid.UUID) (*models.Cart, error) {
	cart, err := s.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	cart.PromoCode = nil
	cart.PromotionID = nil
	return s.recomputeWith(ctx, cart, nil)
}

// recompute reloads the cart and rebuilds its totals from the line items and
// any applied promotion.
func (s *service) recompute(ctx context.Context, userID uuid.UUID) (*models.Cart, error) {
	cart, err := s.repo.FindByUser(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "reloading cart")
	}
	var itemsTotal int64
	for _, line := range cart.Items {
		itemsTotal += line.LineTotalCents
	}
	cart.ItemsTotalCents = itemsTotal

	var promo *models.Promotion
	if cart.PromoCode != nil {
		// Revalidate silently; a promo that no longer qualifies drops off.
		if validated, err := s.promos.Validate(ctx, *cart.PromoCode, s.snapshot(ctx, cart)); err == nil {
			promo = validated
		} else {
			cart.PromoCode = nil
			cart.PromotionID = nil
		}
	}
	return s.recomputeWith(ctx, cart, promo)
}

func (s *service) recomputeWith(ctx context.Context, cart *models.Cart, promo *models.Promotion) (*models.Cart, error) {
	var itemsTotal int64
	for _, line := range cart.Items {
		itemsTotal += line.LineTotalCents
	}
	cart.ItemsTotalCents = itemsTotal

	if len(cart.Items) == 0 {
		cart.StoreID = nil
		cart.PromoCode = nil
		cart.PromotionID = nil
		zeroTotals(cart)
	} else {
		cart.DeliveryFeeCents = s.deliveryFee(itemsTotal)
		if promo != nil && promo.Type == enums.PromotionTypeFreeDelivery {
			cart.DeliveryFeeCents = 0
		}
		cart.DiscountCents = s.promos.CalculateDiscount(promo, itemsTotal)
		final := itemsTotal + cart.DeliveryFeeCents - cart.DiscountCents
		if final < 0 {
			final = 0
		}
		cart.FinalAmountCents = final
	}

	if err := s.repo.Save(ctx, cart); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "saving cart")
	}
	return cart, nil
}

func (s *service) deliveryFee(itemsTotalCents int64) int64 {
	if itemsTotalCents >= s.checkout.FreeDeliveryMinCents {
		return 0
	}
	return s.checkout.DeliveryFeeCents
}

// snapshot builds the promotion validation view of the cart. Categories come
// from the live menu items so scope checks see current data.
func (s *service) snapshot(ctx context.Context, cart *models.Cart) promotions.CartSnapshot {
	snapshot := promotions.CartSnapshot{
		UserID:     cart.UserID,
		StoreID:    cart.StoreID,
		TotalCents: cart.ItemsTotalCents,
	}
	for _, line := range cart.Items {
		snapshot.ItemIDs = append(snapshot.ItemIDs, line.MenuItemID)
		if item, err := s.menuRepo.FindByID(ctx, line.MenuItemID); err == nil {
			snapshot.Categories = append(snapshot.Categories, item.Category)
		}
	}
	return snapshot
}

func findLine(cart *models.Cart, itemID uuid.UUID) *models.CartItem {
	for i := range cart.Items {
		if cart.Items[i].ID == itemID || cart.Items[i].MenuItemID == itemID {
			return &cart.Items[i]
		}
	}
	return nil
}

func zeroTotals(cart *models.Cart) {
	cart.ItemsTotalCents = 0
	cart.DeliveryFeeCents = 0
	cart.DiscountCents = 0
	cart.FinalAmountCents = 0
}
