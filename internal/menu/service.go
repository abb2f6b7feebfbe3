package menu

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/mealmesh/mealmesh-backend/internal/stores"
	"github.com/mealmesh/mealmesh-backend/pkg/db/models"
	pkgerrors "github.com/mealmesh/mealmesh-backend/pkg/errors"
	"github.com/mealmesh/mealmesh-backend/pkg/pagination"
	"gorm.io/gorm"
)

// CreateInput adds a menu item to a store owned by the caller.
type CreateInput struct {
	OwnerID       uuid.UUID
	StoreID       uuid.UUID
	Name          string
	Description   *string
	Category      string
	PriceCents    int64
	StockQuantity *int
}

// UpdateInput edits a menu item.
type UpdateInput struct {
	OwnerID       uuid.UUID
	StoreID       uuid.UUID
	ItemID        uuid.UUID
	Name          *string
	Description   *string
	Category      *string
	PriceCents    *int64
	IsAvailable   *bool
	StockQuantity *int
}

type service struct {
	repo      Repository
	storeRepo stores.Repository
}

// NewService builds the menu service.
func NewService(repo Repository, storeRepo stores.Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("menu repository required")
	}
	if storeRepo == nil {
		return nil, fmt.Errorf("stores repository required")
	}
	return &service{repo: repo, storeRepo: storeRepo}, nil
}

func (s *service) Create(ctx context.Context, input CreateInput) (*models.MenuItem, error) {
	if err := s.requireOwnership(ctx, input.OwnerID, input.StoreID); err != nil {
		return nil, err
	}
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "item name required")
	}
	if strings.TrimSpace(input.Category) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "category required")
	}
	if input.PriceCents <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "price must be positive")
	}
	if input.StockQuantity != nil && *input.StockQuantity < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "stock quantity cannot be negative")
	}

	item := &models.MenuItem{
		StoreID:       input.StoreID,
		Name:          name,
		Description:   input.Description,
		Category:      strings.TrimSpace(input.Category),
		PriceCents:    input.PriceCents,
		IsAvailable:   true,
		StockQuantity: input.StockQuantity,
	}
	created, err := s.repo.Create(ctx, item)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "creating menu item")
	}
	return created, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*models.MenuItem, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "item id required")
	}
	return s.load(ctx, id)
}

func (s *service) List(ctx context.Context, storeID uuid.UUID, filter ListFilter, page pagination.Params) ([]models.MenuItem, *pagination.Page, error) {
	if storeID == uuid.Nil {
		return nil, nil, pkgerrors.New(pkgerrors.CodeValidation, "store id required")
	}
	page = page.Normalize()
	items, total, err := s.repo.ListByStore(ctx, storeID, filter, page)
	if err != nil {
		return nil, nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "listing menu items")
	}
	meta := pagination.NewPage(page, total)
	return items, &meta, nil
}

func (s *service) Update(ctx context.Context, input UpdateInput) (*models.MenuItem, error) {
	if err := s.requireOwnership(ctx, input.OwnerID, input.StoreID); err != nil {
		return nil, err
	}
	item, err := s.load(ctx, input.ItemID)
	if err != nil {
		return nil, err
	}
	if item.StoreID != input.StoreID {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "menu item not found")
	}

	updates := map[string]any{}
	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "item name required")
		}
		updates["name"] = name
	}
	if input.Description != nil {
		updates["description"] = *input.Description
	}
	if input.Category != nil {
		category := strings.TrimSpace(*input.Category)
		if category == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "category required")
		}
		updates["category"] = category
	}
	if input.PriceCents != nil {
		if *input.PriceCents <= 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "price must be positive")
		}
		updates["price_cents"] = *input.PriceCents
	}
	if input.IsAvailable != nil {
		updates["is_available"] = *input.IsAvailable
	}
	if input.StockQuantity != nil {
		if *input.StockQuantity < 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "stock quantity cannot be negative")
		}
		updates["stock_quantity"] = *input.StockQuantity
	}
	if len(updates) == 0 {
		return item, nil
	}

	if err := s.repo.Update(ctx, item.ID, updates); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "updating menu item")
	}
	return s.load(ctx, item.ID)
}

func (s *service) Delete(ctx context.Context, ownerID, storeID, itemID uuid.UUID) error {
	if err := s.requireOwnership(ctx, ownerID, storeID); err != nil {
		return err
	}
	item, err := s.load(ctx, itemID)
	if err != nil {
		return err
	}
	if item.StoreID != storeID {
		return pkgerrors.New(pkgerrors.CodeNotFound, "menu item not found")
	}
	if err := s.repo.SoftDelete(ctx, itemID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "deleting menu item")
	}
	return nil
}

func (s *service) load(ctx context.Context, id uuid.UUID) (*models.MenuItem, error) {
	item, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "menu item not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading menu item")
	}
	return item, nil
}

func (s *service) requireOwnership(ctx context.Context, ownerID, storeID uuid.UUID) error {
	if ownerID == uuid.Nil || storeID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "owner and store ids required")
	}
	store, err := s.storeRepo.FindByID(ctx, storeID)
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
