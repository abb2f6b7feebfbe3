package promotions

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/mealmesh/mealmesh-backend/pkg/db/models"
	dbtypes "github.com/mealmesh/mealmesh-backend/pkg/db/types"
	"github.com/mealmesh/mealmesh-backend/pkg/enums"
	pkgerrors "github.com/mealmesh/mealmesh-backend/pkg/errors"
	"github.com/mealmesh/mealmesh-backend/pkg/pagination"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type stubPromoRepo struct {
	byID    map[uuid.UUID]*models.Promotion
	byCode  map[string]*models.Promotion
	usages  []models.PromotionUsage
	updates map[uuid.UUID]map[string]any
	deleted map[uuid.UUID]bool
}

func newStubPromoRepo() *stubPromoRepo {
	return &stubPromoRepo{
		byID:    make(map[uuid.UUID]*models.Promotion),
		byCode:  make(map[string]*models.Promotion),
		updates: make(map[uuid.UUID]map[string]any),
		deleted: make(map[uuid.UUID]bool),
	}
}

func (s *stubPromoRepo) WithTx(tx *gorm.DB) Repository { return s }

func (s *stubPromoRepo) Create(ctx context.Context, promo *models.Promotion) (*models.Promotion, error) {
	if promo.ID == uuid.Nil {
		promo.ID = uuid.New()
	}
	s.byID[promo.ID] = promo
	s.byCode[promo.Code] = promo
	return promo, nil
}

func (s *stubPromoRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.Promotion, error) {
	if promo, ok := s.byID[id]; ok && !s.deleted[id] {
		return promo, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (s *stubPromoRepo) FindByCode(ctx context.Context, code string) (*models.Promotion, error) {
	if promo, ok := s.byCode[code]; ok && !s.deleted[promo.ID] {
		return promo, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (s *stubPromoRepo) ListActive(ctx context.Context, page pagination.Params) ([]models.Promotion, int64, error) {
	var out []models.Promotion
	now := time.Now().UTC()
	for _, promo := range s.byID {
		if promo.IsActive && !now.Before(promo.StartsAt) && !now.After(promo.EndsAt) && !s.deleted[promo.ID] {
			out = append(out, *promo)
		}
	}
	return out, int64(len(out)), nil
}

func (s *stubPromoRepo) ListAll(ctx context.Context, page pagination.Params) ([]models.Promotion, int64, error) {
	var out []models.Promotion
	for _, promo := range s.byID {
		if !s.deleted[promo.ID] {
			out = append(out, *promo)
		}
	}
	return out, int64(len(out)), nil
}

func (s *stubPromoRepo) Update(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	s.updates[id] = updates
	if promo, ok := s.byID[id]; ok {
		if active, ok := updates["is_active"].(bool); ok {
			promo.IsActive = active
		}
	}
	return nil
}

func (s *stubPromoRepo) Delete(ctx context.Context, id uuid.UUID) error {
	s.deleted[id] = true
	return nil
}

func (s *stubPromoRepo) ConsumeUse(ctx context.Context, id uuid.UUID) (int64, error) {
	promo, ok := s.byID[id]
	if !ok {
		return 0, nil
	}
	if promo.MaxUses != nil && promo.UsedCount >= *promo.MaxUses {
		return 0, nil
	}
	promo.UsedCount++
	return 1, nil
}

func (s *stubPromoRepo) CountUsesByUser(ctx context.Context, promoID, userID uuid.UUID) (int64, error) {
	var count int64
	for _, usage := range s.usages {
		if usage.PromotionID == promoID && usage.UserID == userID {
			count++
		}
	}
	return count, nil
}

func (s *stubPromoRepo) RecordUsage(ctx context.Context, usage *models.PromotionUsage) error {
	s.usages = append(s.usages, *usage)
	return nil
}

func newTestService(t *testing.T, repo Repository) *service {
	t.Helper()
	svc, err := NewService(repo)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc.(*service)
}

func seedPromo(repo *stubPromoRepo, mutate func(*models.Promotion)) *models.Promotion {
	now := time.Now().UTC()
	promo := &models.Promotion{
		ID:             uuid.New(),
		Code:           "WELCOME10",
		Type:           enums.PromotionTypePercentage,
		DiscountValue:  decimal.NewFromInt(10),
		Scope:          enums.PromotionScopeAll,
		StartsAt:       now.Add(-time.Hour),
		EndsAt:         now.Add(time.Hour),
		MaxUsesPerUser: 1,
		IsActive:       true,
	}
	if mutate != nil {
		mutate(promo)
	}
	repo.byID[promo.ID] = promo
	repo.byCode[promo.Code] = promo
	return promo
}

func TestValidateHappyPath(t *testing.T) {
	repo := newStubPromoRepo()
	svc := newTestService(t, repo)
	seedPromo(repo, nil)

	promo, err := svc.Validate(context.Background(), "welcome10", CartSnapshot{UserID: uuid.New(), TotalCents: 30000})
	if err != nil {
		t.Fatalf("validate failed: %v", err)
	}
	if promo.Code != "WELCOME10" {
		t.Fatalf("unexpected promo %s", promo.Code)
	}
}

func TestValidateChecksInOrder(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New()

	t.Run("inactive", func(t *testing.T) {
		repo := newStubPromoRepo()
		svc := newTestService(t, repo)
		seedPromo(repo, func(p *models.Promotion) { p.IsActive = false })
		_, err := svc.Validate(ctx, "WELCOME10", CartSnapshot{UserID: userID, TotalCents: 30000})
		if pkgerrors.CodeOf(err) != pkgerrors.CodeValidation {
			t.Fatalf("expected validation error, got %v", err)
		}
	})

	t.Run("expired window", func(t *testing.T) {
		repo := newStubPromoRepo()
		svc := newTestService(t, repo)
		seedPromo(repo, func(p *models.Promotion) {
			p.StartsAt = time.Now().UTC().Add(-48 * time.Hour)
			p.EndsAt = time.Now().UTC().Add(-24 * time.Hour)
		})
		_, err := svc.Validate(ctx, "WELCOME10", CartSnapshot{UserID: userID, TotalCents: 30000})
		if pkgerrors.CodeOf(err) != pkgerrors.CodeValidation {
			t.Fatalf("expected validation error, got %v", err)
		}
	})

	t.Run("global cap reached", func(t *testing.T) {
		repo := newStubPromoRepo()
		svc := newTestService(t, repo)
		max := 5
		seedPromo(repo, func(p *models.Promotion) {
			p.MaxUses = &max
			p.UsedCount = 5
		})
		_, err := svc.Validate(ctx, "WELCOME10", CartSnapshot{UserID: userID, TotalCents: 30000})
		if pkgerrors.CodeOf(err) != pkgerrors.CodeValidation {
			t.Fatalf("expected validation error, got %v", err)
		}
	})

	t.Run("per-user cap reached", func(t *testing.T) {
		repo := newStubPromoRepo()
		svc := newTestService(t, repo)
		promo := seedPromo(repo, nil)
		repo.usages = append(repo.usages, models.PromotionUsage{PromotionID: promo.ID, UserID: userID})
		_, err := svc.Validate(ctx, "WELCOME10", CartSnapshot{UserID: userID, TotalCents: 30000})
		if pkgerrors.CodeOf(err) != pkgerrors.CodeValidation {
			t.Fatalf("expected validation error, got %v", err)
		}
	})

	t.Run("below minimum", func(t *testing.T) {
		repo := newStubPromoRepo()
		svc := newTestService(t, repo)
		seedPromo(repo, func(p *models.Promotion) { p.MinOrderCents = 50000 })
		_, err := svc.Validate(ctx, "WELCOME10", CartSnapshot{UserID: userID, TotalCents: 30000})
		if pkgerrors.CodeOf(err) != pkgerrors.CodeValidation {
			t.Fatalf("expected validation error, got %v", err)
		}
	})

	t.Run("unknown code", func(t *testing.T) {
		repo := newStubPromoRepo()
		svc := newTestService(t, repo)
		_, err := svc.Validate(ctx, "NOPE", CartSnapshot{UserID: userID, TotalCents: 30000})
		if pkgerrors.CodeOf(err) != pkgerrors.CodeNotFound {
			t.Fatalf("expected not found, got %v", err)
		}
	})
}

func TestValidateStoreScope(t *testing.T) {
	repo := newStubPromoRepo()
	svc := newTestService(t, repo)
	storeID := uuid.New()
	seedPromo(repo, func(p *models.Promotion) {
		p.Scope = enums.PromotionScopeStore
		p.StoreIDs = dbtypes.UUIDArray{storeID}
	})

	snapshot := CartSnapshot{UserID: uuid.New(), StoreID: &storeID, TotalCents: 30000}
	if _, err := svc.Validate(context.Background(), "WELCOME10", snapshot); err != nil {
		t.Fatalf("expected in-scope store to pass, got %v", err)
	}

	other := uuid.New()
	snapshot.StoreID = &other
	_, err := svc.Validate(context.Background(), "WELCOME10", snapshot)
	if pkgerrors.CodeOf(err) != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error for out-of-scope store, got %v", err)
	}
}

func TestCalculateDiscount(t *testing.T) {
	svc := newTestService(t, newStubPromoRepo())

	maxDiscount := int64(10000)
	percentage := &models.Promotion{Type: enums.PromotionTypePercentage, DiscountValue: decimal.NewFromInt(10), MaxDiscountCents: &maxDiscount}
	if got := svc.CalculateDiscount(percentage, 30000); got != 3000 {
		t.Fatalf("expected 3000, got %d", got)
	}
	if got := svc.CalculateDiscount(percentage, 200000); got != 10000 {
		t.Fatalf("expected cap at 10000, got %d", got)
	}

	fixed := &models.Promotion{Type: enums.PromotionTypeFixed, DiscountValue: decimal.NewFromInt(50)}
	if got := svc.CalculateDiscount(fixed, 30000); got != 5000 {
		t.Fatalf("expected 5000, got %d", got)
	}
	if got := svc.CalculateDiscount(fixed, 2000); got != 2000 {
		t.Fatalf("expected fixed discount capped at amount, got %d", got)
	}

	freeDelivery := &models.Promotion{Type: enums.PromotionTypeFreeDelivery}
	if got := svc.CalculateDiscount(freeDelivery, 30000); got != 0 {
		t.Fatalf("expected 0 for free delivery, got %d", got)
	}
}

func TestApplyConflictsWhenCapExhausted(t *testing.T) {
	repo := newStubPromoRepo()
	svc := newTestService(t, repo)
	max := 1
	promo := seedPromo(repo, func(p *models.Promotion) { p.MaxUses = &max })
	ctx := context.Background()

	if err := svc.Apply(ctx, nil, promo, uuid.New(), nil); err != nil {
		t.Fatalf("first apply should succeed: %v", err)
	}
	if len(repo.usages) != 1 {
		t.Fatalf("expected one usage row, got %d", len(repo.usages))
	}

	err := svc.Apply(ctx, nil, promo, uuid.New(), nil)
	if pkgerrors.CodeOf(err) != pkgerrors.CodeConflict {
		t.Fatalf("expected conflict for exhausted promotion, got %v", err)
	}
	if len(repo.usages) != 1 {
		t.Fatalf("losing apply must not record usage, got %d rows", len(repo.usages))
	}
}

func TestCreateUppercasesAndDefaults(t *testing.T) {
	repo := newStubPromoRepo()
	svc := newTestService(t, repo)
	now := time.Now().UTC()

	promo, err := svc.Create(context.Background(), CreateInput{
		Code:          " summer5 ",
		Type:          enums.PromotionTypeFixed,
		DiscountValue: decimal.NewFromInt(5),
		StartsAt:      now,
		EndsAt:        now.Add(24 * time.Hour),
		CreatedBy:     uuid.New(),
	})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if promo.Code != "SUMMER5" {
		t.Fatalf("expected uppercase code, got %q", promo.Code)
	}
	if promo.Scope != enums.PromotionScopeAll {
		t.Fatalf("expected default scope all, got %s", promo.Scope)
	}
	if promo.MaxUsesPerUser != 1 {
		t.Fatalf("expected per-user default 1, got %d", promo.MaxUsesPerUser)
	}
	if !promo.IsActive {
		t.Fatal("new promotions should start active")
	}
}

func TestCreateRejectsInvertedWindow(t *testing.T) {
	svc := newTestService(t, newStubPromoRepo())
	now := time.Now().UTC()

	_, err := svc.Create(context.Background(), CreateInput{
		Code:          "BAD",
		Type:          enums.PromotionTypeFixed,
		DiscountValue: decimal.NewFromInt(5),
		StartsAt:      now,
		EndsAt:        now.Add(-time.Hour),
	})
	if pkgerrors.CodeOf(err) != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestDeleteOnlyWhenUnused(t *testing.T) {
	repo := newStubPromoRepo()
	svc := newTestService(t, repo)
	ctx := context.Background()

	used := seedPromo(repo, func(p *models.Promotion) { p.UsedCount = 2 })
	err := svc.Delete(ctx, used.ID)
	if pkgerrors.CodeOf(err) != pkgerrors.CodeStateConflict {
		t.Fatalf("expected state conflict for redeemed promotion, got %v", err)
	}

	fresh := seedPromo(repo, func(p *models.Promotion) { p.Code = "FRESH"; p.UsedCount = 0 })
	if err := svc.Delete(ctx, fresh.ID); err != nil {
		t.Fatalf("delete unused promotion: %v", err)
	}
	if !repo.deleted[fresh.ID] {
		t.Fatal("expected promotion deleted")
	}
}

func TestStatsRemainingUses(t *testing.T) {
	repo := newStubPromoRepo()
	svc := newTestService(t, repo)
	max := 10
	promo := seedPromo(repo, func(p *models.Promotion) {
		p.MaxUses = &max
		p.UsedCount = 4
	})

	stats, err := svc.Stats(context.Background(), promo.ID)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.UsedCount != 4 {
		t.Fatalf("expected 4 uses, got %d", stats.UsedCount)
	}
	if stats.RemainingUses == nil || *stats.RemainingUses != 6 {
		t.Fatalf("expected 6 remaining, got %v", stats.RemainingUses)
	}
}
