package promotions

import (
	"context"

	"github.com/google/uuid"
	"github.com/mealmesh/mealmesh-backend/pkg/db/models"
	"github.com/mealmesh/mealmesh-backend/pkg/pagination"
	"gorm.io/gorm"
)

// Repository persists promotions and their usage records.
type Repository interface {
	WithTx(tx *gorm.DB) Repository

	Create(ctx context.Context, promo *models.Promotion) (*models.Promotion, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.Promotion, error)
	FindByCode(ctx context.Context, code string) (*models.Promotion, error)
	ListActive(ctx context.Context, page pagination.Params) ([]models.Promotion, int64, error)
	ListAll(ctx context.Context, page pagination.Params) ([]models.Promotion, int64, error)
	Update(ctx context.Context, id uuid.UUID, updates map[string]any) error
	Delete(ctx context.Context, id uuid.UUID) error

	// ConsumeUse increments used_count only while the global cap holds.
	// Returns the number of rows affected; zero means the cap was hit.
	ConsumeUse(ctx context.Context, id uuid.UUID) (int64, error)
	CountUsesByUser(ctx context.Context, promoID, userID uuid.UUID) (int64, error)
	RecordUsage(ctx context.Context, usage *models.PromotionUsage) error
}

// CartSnapshot is the subset of a cart or draft order the validator needs.
type CartSnapshot struct {
	UserID     uuid.UUID
	StoreID    *uuid.UUID
	ItemIDs    []uuid.UUID
	Categories []string
	TotalCents int64
}

// Service exposes promotion validation, application, and admin management.
type Service interface {
	Validate(ctx context.Context, code string, snapshot CartSnapshot) (*models.Promotion, error)
	CalculateDiscount(promo *models.Promotion, amountCents int64) int64
	Apply(ctx context.Context, tx *gorm.DB, promo *models.Promotion, userID uuid.UUID, orderID *uuid.UUID) error

	Create(ctx context.Context, input CreateInput) (*models.Promotion, error)
	Update(ctx context.Context, input UpdateInput) (*models.Promotion, error)
	SetActive(ctx context.Context, id uuid.UUID, active bool) error
	Delete(ctx context.Context, id uuid.UUID) error
	Stats(ctx context.Context, id uuid.UUID) (*Stats, error)
	ListActive(ctx context.Context, page pagination.Params) ([]models.Promotion, *pagination.Page, error)
	ListAll(ctx context.Context, page pagination.Params) ([]models.Promotion, *pagination.Page, error)
}
