package promotions

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/mealmesh/mealmesh-backend/pkg/db"
	"github.com/mealmesh/mealmesh-backend/pkg/db/models"
	dbtypes "github.com/mealmesh/mealmesh-backend/pkg/db/types"
	"github.com/mealmesh/mealmesh-backend/pkg/enums"
	pkgerrors "github.com/mealmesh/mealmesh-backend/pkg/errors"
	"github.com/mealmesh/mealmesh-backend/pkg/money"
	"github.com/mealmesh/mealmesh-backend/pkg/pagination"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// CreateInput defines a new promotion. Codes are stored uppercase.
type CreateInput struct {
	Code             string
	Description      *string
	Type             enums.PromotionType
	DiscountValue    decimal.Decimal
	MaxDiscountCents *int64
	MinOrderCents    int64
	Scope            enums.PromotionScope
	StoreIDs         []uuid.UUID
	ItemIDs          []uuid.UUID
	Categories       []string
	StartsAt         time.Time
	EndsAt           time.Time
	MaxUses          *int
	MaxUsesPerUser   int
	CreatedBy        uuid.UUID
}

// UpdateInput edits an existing promotion. Code and used count never change
// after creation.
type UpdateInput struct {
	ID               uuid.UUID
	Description      *string
	DiscountValue    *decimal.Decimal
	MaxDiscountCents *int64
	MinOrderCents    *int64
	StartsAt         *time.Time
	EndsAt           *time.Time
	MaxUses          *int
	MaxUsesPerUser   *int
}

// Stats summarizes redemption of one promotion.
type Stats struct {
	PromotionID   uuid.UUID `json:"promotion_id"`
	Code          string    `json:"code"`
	UsedCount     int       `json:"used_count"`
	MaxUses       *int      `json:"max_uses"`
	RemainingUses *int      `json:"remaining_uses"`
	IsActive      bool      `json:"is_active"`
}

type service struct {
	repo Repository
	now  func() time.Time
}

// NewService builds the promotions service.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("promotions repository required")
	}
	return &service{repo: repo, now: time.Now}, nil
}

// Validate runs the eligibility checks in a fixed order and returns the
// first failure as a validation error.
func (s *service) Validate(ctx context.Context, code string, snapshot CartSnapshot) (*models.Promotion, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "promo code required")
	}

	promo, err := s.repo.FindByCode(ctx, code)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "promo code not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading promotion")
	}

	if !promo.IsActive {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "promotion is not active")
	}
	now := s.now().UTC()
	if now.Before(promo.StartsAt) || now.After(promo.EndsAt) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "promotion is outside its validity window")
	}
	if promo.MaxUses != nil && promo.UsedCount >= *promo.MaxUses {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "promotion usage limit reached")
	}
	if snapshot.UserID != uuid.Nil {
		used, err := s.repo.CountUsesByUser(ctx, promo.ID, snapshot.UserID)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "counting promotion usage")
		}
		if used >= int64(promo.MaxUsesPerUser) {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "promotion already used")
		}
	}
	if snapshot.TotalCents < promo.MinOrderCents {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order amount below promotion minimum")
	}
	if err := s.checkScope(promo, snapshot); err != nil {
		return nil, err
	}
	return promo, nil
}

func (s *service) checkScope(promo *models.Promotion, snapshot CartSnapshot) error {
	switch promo.Scope {
	case enums.PromotionScopeAll:
		return nil
	case enums.PromotionScopeStore:
		if snapshot.StoreID != nil && promo.StoreIDs.Contains(*snapshot.StoreID) {
			return nil
		}
		return pkgerrors.New(pkgerrors.CodeValidation, "promotion does not apply to this store")
	case enums.PromotionScopeItem:
		for _, itemID := range snapshot.ItemIDs {
			if promo.ItemIDs.Contains(itemID) {
				return nil
			}
		}
		return pkgerrors.New(pkgerrors.CodeValidation, "promotion does not apply to these items")
	case enums.PromotionScopeCategory:
		for _, category := range snapshot.Categories {
			for _, allowed := range promo.Categories {
				if strings.EqualFold(category, allowed) {
					return nil
				}
			}
		}
		return pkgerrors.New(pkgerrors.CodeValidation, "promotion does not apply to this category")
	default:
		return pkgerrors.New(pkgerrors.CodeInternal, "unknown promotion scope")
	}
}

// CalculateDiscount returns the discount in cents for the given amount.
// Free delivery and BOGO promotions carry no direct amount discount.
func (s *service) CalculateDiscount(promo *models.Promotion, amountCents int64) int64 {
	if promo == nil || amountCents <= 0 {
		return 0
	}
	switch promo.Type {
	case enums.PromotionTypePercentage:
		maxDiscount := int64(0)
		if promo.MaxDiscountCents != nil {
			maxDiscount = *promo.MaxDiscountCents
		}
		return money.PercentDiscount(amountCents, promo.DiscountValue, maxDiscount)
	case enums.PromotionTypeFixed:
		return money.FixedDiscount(amountCents, money.RoundHalfUp(promo.DiscountValue.Mul(decimal.NewFromInt(100))))
	default:
		return 0
	}
}

// Apply redeems the promotion inside the caller's transaction. The guarded
// used_count update makes concurrent redemption of the final use lose with
// a Conflict instead of over-redeeming.
func (s *service) Apply(ctx context.Context, tx *gorm.DB, promo *models.Promotion, userID uuid.UUID, orderID *uuid.UUID) error {
	if promo == nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "promotion required")
	}
	if userID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}
	repo := s.repo.WithTx(tx)

	affected, err := repo.ConsumeUse(ctx, promo.ID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "consuming promotion use")
	}
	if affected == 0 {
		return pkgerrors.New(pkgerrors.CodeConflict, "promotion usage limit reached")
	}

	usage := &models.PromotionUsage{
		PromotionID: promo.ID,
		UserID:      userID,
		OrderID:     orderID,
	}
	if err := repo.RecordUsage(ctx, usage); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "recording promotion usage")
	}
	return nil
}

func (s *service) Create(ctx context.Context, input CreateInput) (*models.Promotion, error) {
	code := strings.ToUpper(strings.TrimSpace(input.Code))
	if code == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "promo code required")
	}
	if !input.Type.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid promotion type")
	}
	scope := input.Scope
	if scope == "" {
		scope = enums.PromotionScopeAll
	}
	if !scope.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid promotion scope")
	}
	if input.EndsAt.Before(input.StartsAt) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "validity window ends before it starts")
	}
	if input.DiscountValue.IsNegative() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "discount value cannot be negative")
	}
	maxUsesPerUser := input.MaxUsesPerUser
	if maxUsesPerUser <= 0 {
		maxUsesPerUser = 1
	}

	promo := &models.Promotion{
		Code:             code,
		Description:      input.Description,
		Type:             input.Type,
		DiscountValue:    input.DiscountValue,
		MaxDiscountCents: input.MaxDiscountCents,
		MinOrderCents:    input.MinOrderCents,
		Scope:            scope,
		StoreIDs:         dbtypes.UUIDArray(input.StoreIDs),
		ItemIDs:          dbtypes.UUIDArray(input.ItemIDs),
		Categories:       input.Categories,
		StartsAt:         input.StartsAt.UTC(),
		EndsAt:           input.EndsAt.UTC(),
		MaxUses:          input.MaxUses,
		MaxUsesPerUser:   maxUsesPerUser,
		IsActive:         true,
		CreatedBy:        &input.CreatedBy,
	}
	created, err := s.repo.Create(ctx, promo)
	if err != nil {
		if db.IsUniqueViolation(err, "") {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "promo code already exists")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "creating promotion")
	}
	return created, nil
}

func (s *service) Update(ctx context.Context, input UpdateInput) (*models.Promotion, error) {
	promo, err := s.load(ctx, input.ID)
	if err != nil {
		return nil, err
	}

	updates := map[string]any{}
	if input.Description != nil {
		updates["description"] = *input.Description
	}
	if input.DiscountValue != nil {
		if input.DiscountValue.IsNegative() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "discount value cannot be negative")
		}
		updates["discount_value"] = *input.DiscountValue
	}
	if input.MaxDiscountCents != nil {
		updates["max_discount_cents"] = *input.MaxDiscountCents
	}
	if input.MinOrderCents != nil {
		updates["min_order_cents"] = *input.MinOrderCents
	}
	if input.StartsAt != nil {
		updates["starts_at"] = input.StartsAt.UTC()
	}
	if input.EndsAt != nil {
		updates["ends_at"] = input.EndsAt.UTC()
	}
	if input.MaxUses != nil {
		updates["max_uses"] = *input.MaxUses
	}
	if input.MaxUsesPerUser != nil {
		if *input.MaxUsesPerUser <= 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "per-user limit must be positive")
		}
		updates["max_uses_per_user"] = *input.MaxUsesPerUser
	}
	if len(updates) == 0 {
		return promo, nil
	}

	if err := s.repo.Update(ctx, promo.ID, updates); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "updating promotion")
	}
	return s.load(ctx, promo.ID)
}

func (s *service) SetActive(ctx context.Context, id uuid.UUID, active bool) error {
	if _, err := s.load(ctx, id); err != nil {
		return err
	}
	if err := s.repo.Update(ctx, id, map[string]any{"is_active": active}); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "toggling promotion")
	}
	return nil
}

func (s *service) Delete(ctx context.Context, id uuid.UUID) error {
	promo, err := s.load(ctx, id)
	if err != nil {
		return err
	}
	if promo.UsedCount > 0 {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "promotion has been redeemed and cannot be deleted")
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "deleting promotion")
	}
	return nil
}

func (s *service) Stats(ctx context.Context, id uuid.UUID) (*Stats, error) {
	promo, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	stats := &Stats{
		PromotionID: promo.ID,
		Code:        promo.Code,
		UsedCount:   promo.UsedCount,
		MaxUses:     promo.MaxUses,
		IsActive:    promo.IsActive,
	}
	if promo.MaxUses != nil {
		remaining := *promo.MaxUses - promo.UsedCount
		if remaining < 0 {
			remaining = 0
		}
		stats.RemainingUses = &remaining
	}
	return stats, nil
}

func (s *service) ListActive(ctx context.Context, page pagination.Params) ([]models.Promotion, *pagination.Page, error) {
	page = page.Normalize()
	promos, total, err := s.repo.ListActive(ctx, page)
	if err != nil {
		return nil, nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "listing promotions")
	}
	meta := pagination.NewPage(page, total)
	return promos, &meta, nil
}

func (s *service) ListAll(ctx context.Context, page pagination.Params) ([]models.Promotion, *pagination.Page, error) {
	page = page.Normalize()
	promos, total, err := s.repo.ListAll(ctx, page)
	if err != nil {
		return nil, nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "listing promotions")
	}
	meta := pagination.NewPage(page, total)
	return promos, &meta, nil
}

func (s *service) load(ctx context.Context, id uuid.UUID) (*models.Promotion, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "promotion id required")
	}
	promo, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "promotion not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading promotion")
	}
	return promo, nil
}
