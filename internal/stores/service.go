package stores

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/mealmesh/mealmesh-backend/pkg/db/models"
	"github.com/mealmesh/mealmesh-backend/pkg/enums"
	pkgerrors "github.com/mealmesh/mealmesh-backend/pkg/errors"
	"github.com/mealmesh/mealmesh-backend/pkg/pagination"
	"github.com/mealmesh/mealmesh-backend/pkg/types"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// CreateInput opens a new storefront. New stores start pending until an
// admin verifies them.
type CreateInput struct {
	OwnerID     uuid.UUID
	Name        string
	Description *string
	Category    string
	Address     *types.Address
}

// UpdateInput edits an owner's store profile.
type UpdateInput struct {
	OwnerID     uuid.UUID
	StoreID     uuid.UUID
	Name        *string
	Description *string
	Category    *string
	Address     *types.Address
}

// VerifyInput records an admin verification decision.
type VerifyInput struct {
	AdminID         uuid.UUID
	StoreID         uuid.UUID
	Decision        enums.StoreStatus
	RejectionReason *string
}

type service struct {
	repo Repository
	now  func() time.Time
}

// NewService builds the stores service.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("stores repository required")
	}
	return &service{repo: repo, now: time.Now}, nil
}

func (s *service) Create(ctx context.Context, input CreateInput) (*models.Store, error) {
	if input.OwnerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "owner id required")
	}
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "store name required")
	}
	category := strings.TrimSpace(input.Category)
	if category == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "category required")
	}

	store := &models.Store{
		OwnerID:     input.OwnerID,
		Name:        name,
		Description: input.Description,
		Category:    category,
		Status:      enums.StoreStatusPending,
		IsAvailable: true,
		Address:     input.Address,
	}
	created, err := s.repo.Create(ctx, store)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "creating store")
	}
	return created, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*models.Store, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "store id required")
	}
	return s.load(ctx, id)
}

func (s *service) ListPublic(ctx context.Context, category *string, page pagination.Params) ([]models.Store, *pagination.Page, error) {
	page = page.Normalize()
	approved := enums.StoreStatusApproved
	filter := ListFilter{Status: &approved, Category: category, OnlyAvailable: true}

	stores, total, err := s.repo.List(ctx, filter, page)
	if err != nil {
		return nil, nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "listing stores")
	}
	meta := pagination.NewPage(page, total)
	return stores, &meta, nil
}

func (s *service) ListMine(ctx context.Context, ownerID uuid.UUID) ([]models.Store, error) {
	if ownerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "owner id required")
	}
	stores, err := s.repo.FindByOwner(ctx, ownerID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "listing owner stores")
	}
	return stores, nil
}

func (s *service) Update(ctx context.Context, input UpdateInput) (*models.Store, error) {
	store, err := s.ownedStore(ctx, input.OwnerID, input.StoreID)
	if err != nil {
		return nil, err
	}

	updates := map[string]any{}
	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "store name required")
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
	if input.Address != nil {
		updates["address"] = input.Address
	}
	if len(updates) == 0 {
		return store, nil
	}

	if err := s.repo.Update(ctx, store.ID, updates); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "updating store")
	}
	return s.load(ctx, store.ID)
}

func (s *service) SetAvailability(ctx context.Context, ownerID, storeID uuid.UUID, available bool) error {
	store, err := s.ownedStore(ctx, ownerID, storeID)
	if err != nil {
		return err
	}
	if err := s.repo.Update(ctx, store.ID, map[string]any{"is_available": available}); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "updating availability")
	}
	return nil
}

func (s *service) Verify(ctx context.Context, input VerifyInput) (*models.Store, error) {
	switch input.Decision {
	case enums.StoreStatusApproved, enums.StoreStatusRejected, enums.StoreStatusSuspended:
	default:
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid verification decision")
	}
	if input.Decision == enums.StoreStatusRejected && (input.RejectionReason == nil || strings.TrimSpace(*input.RejectionReason) == "") {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "rejection reason required")
	}

	store, err := s.load(ctx, input.StoreID)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	updates := map[string]any{
		"status":      input.Decision,
		"verified_by": input.AdminID,
		"verified_at": now,
	}
	if input.Decision == enums.StoreStatusRejected {
		updates["rejection_reason"] = strings.TrimSpace(*input.RejectionReason)
	} else {
		updates["rejection_reason"] = nil
	}

	if err := s.repo.Update(ctx, store.ID, updates); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "recording verification")
	}
	return s.load(ctx, store.ID)
}

func (s *service) SetCommissionRate(ctx context.Context, storeID uuid.UUID, rate decimal.Decimal) error {
	if rate.IsNegative() || rate.GreaterThan(decimal.NewFromInt(100)) {
		return pkgerrors.New(pkgerrors.CodeValidation, "commission rate must be between 0 and 100")
	}
	if _, err := s.load(ctx, storeID); err != nil {
		return err
	}
	if err := s.repo.Update(ctx, storeID, map[string]any{"commission_rate": rate}); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "updating commission rate")
	}
	return nil
}

func (s *service) load(ctx context.Context, id uuid.UUID) (*models.Store, error) {
	store, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "store not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading store")
	}
	return store, nil
}

func (s *service) ownedStore(ctx context.Context, ownerID, storeID uuid.UUID) (*models.Store, error) {
	if ownerID == uuid.Nil || storeID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "owner and store ids required")
	}
	store, err := s.load(ctx, storeID)
	if err != nil {
		return nil, err
	}
	if store.OwnerID != ownerID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "store not owned by caller")
	}
	return store, nil
}
