package orders

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/mealmesh/mealmesh-backend/internal/cart"
	"github.com/mealmesh/mealmesh-backend/internal/fraud"
	"github.com/mealmesh/mealmesh-backend/internal/menu"
	"github.com/mealmesh/mealmesh-backend/internal/promotions"
	"github.com/mealmesh/mealmesh-backend/internal/stores"
	"github.com/mealmesh/mealmesh-backend/internal/users"
	"github.com/mealmesh/mealmesh-backend/pkg/config"
	"github.com/mealmesh/mealmesh-backend/pkg/db/models"
	"github.com/mealmesh/mealmesh-backend/pkg/enums"
	pkgerrors "github.com/mealmesh/mealmesh-backend/pkg/errors"
	"github.com/mealmesh/mealmesh-backend/pkg/pagination"
	"github.com/mealmesh/mealmesh-backend/pkg/types"
	"gorm.io/gorm"
)

// Actor identifies who is performing an order operation.
type Actor struct {
	UserID uuid.UUID
	Role   enums.UserRole
}

// LineInput is one requested order line.
type LineInput struct {
	MenuItemID uuid.UUID
	Quantity   int
}

// CreateInput places an order directly from a list of menu items.
type CreateInput struct {
	UserID          uuid.UUID
	Items           []LineInput
	DeliveryAddress types.Address
	Notes           *string
	PromoCode       *string
}

// FromCartInput places an order from the user's persisted cart.
type FromCartInput struct {
	UserID uuid.UUID
	Notes  *string
}

// TransitionInput moves an order along the status graph.
type TransitionInput struct {
	Actor   Actor
	OrderID uuid.UUID
	Next    enums.OrderStatus
}

type service struct {
	repo       Repository
	usersRepo  users.Repository
	storesRepo stores.Repository
	menuRepo   menu.Repository
	cartSvc    cart.Service
	promos     promotions.Service
	checker    fraud.Checker
	tx         txRunner
	refunder   PaymentRefunder
	checkout   config.CheckoutConfig
	now        func() time.Time
}

// NewService builds the orders service. The payment refunder is optional at
// construction and wired once the payments service exists.
func NewService(
	repo Repository,
	usersRepo users.Repository,
	storesRepo stores.Repository,
	menuRepo menu.Repository,
	cartSvc cart.Service,
	promos promotions.Service,
	checker fraud.Checker,
	tx txRunner,
	checkout config.CheckoutConfig,
) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if usersRepo == nil {
		return nil, fmt.Errorf("users repository required")
	}
	if storesRepo == nil {
		return nil, fmt.Errorf("stores repository required")
	}
	if menuRepo == nil {
		return nil, fmt.Errorf("menu repository required")
	}
	if cartSvc == nil {
		return nil, fmt.Errorf("cart service required")
	}
	if promos == nil {
		return nil, fmt.Errorf("promotions service required")
	}
	if checker == nil {
		return nil, fmt.Errorf("fraud checker required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	return &service{
		repo:       repo,
		usersRepo:  usersRepo,
		storesRepo: storesRepo,
		menuRepo:   menuRepo,
		cartSvc:    cartSvc,
		promos:     promos,
		checker:    checker,
		tx:         tx,
		checkout:   checkout,
		now:        time.Now,
	}, nil
}

// SetPaymentRefunder wires the payments service in after both services are
// constructed.
func (s *service) SetPaymentRefunder(refunder PaymentRefunder) {
	s.refunder = refunder
}

func (s *service) Create(ctx context.Context, input CreateInput) (*models.Order, error) {
	if input.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}
	if len(input.Items) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order needs at least one item")
	}
	if input.DeliveryAddress.Line1 == "" || input.DeliveryAddress.City == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "delivery address required")
	}

	var (
		storeID    uuid.UUID
		lines      []models.OrderItem
		itemsTotal int64
		itemIDs    []uuid.UUID
		categories []string
	)
	for _, requested := range input.Items {
		if requested.Quantity <= 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
		}
		item, err := s.menuRepo.FindByID(ctx, requested.MenuItemID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, pkgerrors.New(pkgerrors.CodeNotFound, "menu item not found")
			}
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading menu item")
		}
		if !item.IsAvailable {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "menu item is unavailable")
		}
		if storeID == uuid.Nil {
			storeID = item.StoreID
		} else if storeID != item.StoreID {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "order items must come from one store")
		}
		lineTotal := item.PriceCents * int64(requested.Quantity)
		lines = append(lines, models.OrderItem{
			MenuItemID:     item.ID,
			NameSnapshot:   item.Name,
			UnitPriceCents: item.PriceCents,
			Quantity:       requested.Quantity,
			LineTotalCents: lineTotal,
		})
		itemsTotal += lineTotal
		itemIDs = append(itemIDs, item.ID)
		categories = append(categories, item.Category)
	}

	var promo *models.Promotion
	if input.PromoCode != nil && *input.PromoCode != "" {
		snapshot := promotions.CartSnapshot{
			UserID:     input.UserID,
			StoreID:    &storeID,
			ItemIDs:    itemIDs,
			Categories: categories,
			TotalCents: itemsTotal,
		}
		validated, err := s.promos.Validate(ctx, *input.PromoCode, snapshot)
		if err != nil {
			return nil, err
		}
		promo = validated
	}

	return s.place(ctx, placement{
		userID:     input.UserID,
		storeID:    storeID,
		lines:      lines,
		itemsTotal: itemsTotal,
		address:    input.DeliveryAddress,
		notes:      input.Notes,
		promo:      promo,
	})
}

func (s *service) CreateFromCart(ctx context.Context, input FromCartInput) (*models.Order, error) {
	userCart, err := s.cartSvc.Get(ctx, input.UserID)
	if err != nil {
		return nil, err
	}
	if len(userCart.Items) == 0 || userCart.StoreID == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart is empty")
	}
	if userCart.DeliveryAddress == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart has no delivery address")
	}

	var (
		lines      []models.OrderItem
		itemsTotal int64
		itemIDs    []uuid.UUID
	)
	for _, line := range userCart.Items {
		lines = append(lines, models.OrderItem{
			MenuItemID:     line.MenuItemID,
			NameSnapshot:   line.NameSnapshot,
			UnitPriceCents: line.UnitPriceCents,
			Quantity:       line.Quantity,
			LineTotalCents: line.LineTotalCents,
		})
		itemsTotal += line.LineTotalCents
		itemIDs = append(itemIDs, line.MenuItemID)
	}

	var promo *models.Promotion
	if userCart.PromoCode != nil {
		categories, err := s.categoriesFor(ctx, itemIDs)
		if err != nil {
			return nil, err
		}
		snapshot := promotions.CartSnapshot{
			UserID:     input.UserID,
			StoreID:    userCart.StoreID,
			ItemIDs:    itemIDs,
			Categories: categories,
			TotalCents: itemsTotal,
		}
		validated, err := s.promos.Validate(ctx, *userCart.PromoCode, snapshot)
		if err != nil {
			return nil, err
		}
		promo = validated
	}

	order, err := s.place(ctx, placement{
		userID:     input.UserID,
		storeID:    *userCart.StoreID,
		lines:      lines,
		itemsTotal: itemsTotal,
		address:    *userCart.DeliveryAddress,
		notes:      input.Notes,
		promo:      promo,
	})
	if err != nil {
		return nil, err
	}
	if err := s.cartSvc.Clear(ctx, input.UserID); err != nil {
		return nil, err
	}
	return order, nil
}

// categoriesFor resolves the current category of each menu item for scoped
// promotion revalidation. Lines whose item has since been removed are skipped.
func (s *service) categoriesFor(ctx context.Context, itemIDs []uuid.UUID) ([]string, error) {
	categories := make([]string, 0, len(itemIDs))
	for _, id := range itemIDs {
		item, err := s.menuRepo.FindByID(ctx, id)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				continue
			}
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading menu item")
		}
		categories = append(categories, item.Category)
	}
	return categories, nil
}

type placement struct {
	userID     uuid.UUID
	storeID    uuid.UUID
	lines      []models.OrderItem
	itemsTotal int64
	address    types.Address
	notes      *string
	promo      *models.Promotion
}

// place runs the fraud gate, prices the order, and persists it together
// with any promotion redemption and stock decrements in one transaction.
func (s *service) place(ctx context.Context, p placement) (*models.Order, error) {
	store, err := s.storesRepo.FindByID(ctx, p.storeID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "store not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading store")
	}
	if store.Status != enums.StoreStatusApproved || !store.IsAvailable {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "store is not accepting orders")
	}

	deliveryFee := s.checkout.DeliveryFeeCents
	if p.itemsTotal >= s.checkout.FreeDeliveryMinCents {
		deliveryFee = 0
	}
	var discount int64
	if p.promo != nil {
		if p.promo.Type == enums.PromotionTypeFreeDelivery {
			deliveryFee = 0
		}
		discount = s.promos.CalculateDiscount(p.promo, p.itemsTotal)
	}
	total := p.itemsTotal + deliveryFee - discount
	if total < 0 {
		total = 0
	}

	user, err := s.usersRepo.FindByID(ctx, p.userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading user")
	}
	flags, err := s.checker.Evaluate(ctx, fraud.Input{
		UserID:        p.userID,
		AccountStatus: user.Status,
		AmountCents:   total,
	})
	if err != nil {
		return nil, err
	}

	order := &models.Order{
		UserID:           p.userID,
		StoreID:          p.storeID,
		Status:           enums.OrderStatusPending,
		ItemsTotalCents:  p.itemsTotal,
		DeliveryFeeCents: deliveryFee,
		DiscountCents:    discount,
		TotalCents:       total,
		DeliveryAddress:  p.address,
		FraudFlags:       flags,
		Notes:            p.notes,
		Items:            p.lines,
	}
	if p.promo != nil {
		order.PromoCode = &p.promo.Code
		promoID := p.promo.ID
		order.PromotionID = &promoID
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		created, err := s.repo.WithTx(tx).Create(ctx, order)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "creating order")
		}
		order = created
		if p.promo != nil {
			orderID := order.ID
			if err := s.promos.Apply(ctx, tx, p.promo, p.userID, &orderID); err != nil {
				return err
			}
		}
		txMenu := s.menuRepo.WithTx(tx)
		for _, line := range order.Items {
			if err := txMenu.DecrementStock(ctx, line.MenuItemID, line.Quantity); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "decrementing stock")
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return order, nil
}

func (s *service) Get(ctx context.Context, actor Actor, orderID uuid.UUID) (*models.Order, error) {
	order, err := s.load(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if err := s.authorizeRead(ctx, actor, order); err != nil {
		return nil, err
	}
	return order, nil
}

func (s *service) Transition(ctx context.Context, input TransitionInput) (*models.Order, error) {
	if !input.Next.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid order status")
	}
	order, err := s.load(ctx, input.OrderID)
	if err != nil {
		return nil, err
	}

	switch input.Actor.Role {
	case enums.UserRoleAdmin, enums.UserRoleDelivery:
		// Unscoped.
	case enums.UserRoleStoreOwner:
		if err := s.requireStoreOwnership(ctx, input.Actor.UserID, order.StoreID); err != nil {
			return nil, err
		}
	default:
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "role cannot change order status")
	}

	return s.applyTransition(ctx, order, input.Next, input.Actor.UserID, nil)
}

func (s *service) CancelByCustomer(ctx context.Context, userID, orderID uuid.UUID, reason string) (*models.Order, error) {
	order, err := s.load(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.UserID != userID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "order belongs to another user")
	}
	if order.Status != enums.OrderStatusPending && order.Status != enums.OrderStatusConfirmed {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict,
			fmt.Sprintf("orders in status %s cannot be cancelled", order.Status))
	}
	return s.applyTransition(ctx, order, enums.OrderStatusCancelled, userID, &reason)
}

// AdminCancel overrides the transition graph: it cancels from any state and
// refunds a completed payment inside the same transaction.
func (s *service) AdminCancel(ctx context.Context, adminID, orderID uuid.UUID, reason string) (*models.Order, error) {
	order, err := s.load(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.Status == enums.OrderStatusCancelled {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "order is already cancelled")
	}

	now := s.now().UTC()
	trimmed := strings.TrimSpace(reason)
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		updates := map[string]any{
			"status":              enums.OrderStatusCancelled,
			"cancellation_reason": trimmed,
			"cancelled_by":        adminID,
			"cancelled_at":        now,
		}
		if err := s.repo.WithTx(tx).Update(ctx, order.ID, updates); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "cancelling order")
		}
		if s.refunder != nil {
			if err := s.refunder.RefundForOrderInTx(ctx, tx, order.ID, trimmed); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.load(ctx, order.ID)
}

func (s *service) ListForUser(ctx context.Context, userID uuid.UUID, status *enums.OrderStatus, page pagination.Params) ([]models.Order, *pagination.Page, error) {
	if userID == uuid.Nil {
		return nil, nil, pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}
	return s.list(ctx, ListFilter{UserID: &userID, Status: status}, page)
}

func (s *service) ListForStore(ctx context.Context, ownerID, storeID uuid.UUID, status *enums.OrderStatus, page pagination.Params) ([]models.Order, *pagination.Page, error) {
	if err := s.requireStoreOwnership(ctx, ownerID, storeID); err != nil {
		return nil, nil, err
	}
	return s.list(ctx, ListFilter{StoreID: &storeID, Status: status}, page)
}

func (s *service) ListAll(ctx context.Context, filter ListFilter, page pagination.Params) ([]models.Order, *pagination.Page, error) {
	return s.list(ctx, filter, page)
}

func (s *service) list(ctx context.Context, filter ListFilter, page pagination.Params) ([]models.Order, *pagination.Page, error) {
	page = page.Normalize()
	orders, total, err := s.repo.List(ctx, filter, page)
	if err != nil {
		return nil, nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "listing orders")
	}
	meta := pagination.NewPage(page, total)
	return orders, &meta, nil
}

// applyTransition enforces the status graph and stamps the lifecycle
// columns for the target status.
func (s *service) applyTransition(ctx context.Context, order *models.Order, next enums.OrderStatus, actorID uuid.UUID, reason *string) (*models.Order, error) {
	if !order.Status.CanTransitionTo(next) {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict,
			fmt.Sprintf("cannot transition order from %s to %s", order.Status, next))
	}

	now := s.now().UTC()
	extra := map[string]any{}
	switch next {
	case enums.OrderStatusConfirmed:
		extra["confirmed_at"] = now
	case enums.OrderStatusDelivered:
		extra["delivered_at"] = now
	case enums.OrderStatusCancelled, enums.OrderStatusRejected:
		extra["cancelled_by"] = actorID
		extra["cancelled_at"] = now
		if reason != nil {
			extra["cancellation_reason"] = strings.TrimSpace(*reason)
		}
	}

	affected, err := s.repo.UpdateStatusFrom(ctx, order.ID, order.Status, next, extra)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "updating order status")
	}
	if affected == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "order status changed concurrently")
	}
	return s.load(ctx, order.ID)
}

func (s *service) authorizeRead(ctx context.Context, actor Actor, order *models.Order) error {
	switch actor.Role {
	case enums.UserRoleAdmin, enums.UserRoleDelivery:
		return nil
	case enums.UserRoleStoreOwner:
		return s.requireStoreOwnership(ctx, actor.UserID, order.StoreID)
	default:
		if order.UserID != actor.UserID {
			return pkgerrors.New(pkgerrors.CodeForbidden, "order belongs to another user")
		}
		return nil
	}
}

func (s *service) requireStoreOwnership(ctx context.Context, ownerID, storeID uuid.UUID) error {
	store, err := s.storesRepo.FindByID(ctx, storeID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "store not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading store")
	}
	if store.OwnerID != ownerID {
		return pkgerrors.New(pkgerrors.CodeForbidden, "store not owned by caller")
	}
	return nil
}

func (s *service) load(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	order, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading order")
	}
	return order, nil
}
