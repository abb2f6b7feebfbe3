package stores

import (
	"context"

	"github.com/google/uuid"
	"github.com/mealmesh/mealmesh-backend/pkg/db/models"
	"github.com/mealmesh/mealmesh-backend/pkg/enums"
	"github.com/mealmesh/mealmesh-backend/pkg/pagination"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// ListFilter narrows store listings.
type ListFilter struct {
	Status        *enums.StoreStatus
	Category      *string
	OnlyAvailable bool
}

// Repository persists stores.
type Repository interface {
	WithTx(tx *gorm.DB) Repository

	Create(ctx context.Context, store *models.Store) (*models.Store, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.Store, error)
	FindByOwner(ctx context.Context, ownerID uuid.UUID) ([]models.Store, error)
	List(ctx context.Context, filter ListFilter, page pagination.Params) ([]models.Store, int64, error)
	Update(ctx context.Context, id uuid.UUID, updates map[string]any) error
	AddRating(ctx context.Context, id uuid.UUID, rating int) error
}

// Service exposes store lifecycle operations.
type Service interface {
	Create(ctx context.Context, input CreateInput) (*models.Store, error)
	Get(ctx context.Context, id uuid.UUID) (*models.Store, error)
	ListPublic(ctx context.Context, category *string, page pagination.Params) ([]models.Store, *pagination.Page, error)
	ListMine(ctx context.Context, ownerID uuid.UUID) ([]models.Store, error)
	Update(ctx context.Context, input UpdateInput) (*models.Store, error)
	SetAvailability(ctx context.Context, ownerID, storeID uuid.UUID, available bool) error
	Verify(ctx context.Context, input VerifyInput) (*models.Store, error)
	SetCommissionRate(ctx context.Context, storeID uuid.UUID, rate decimal.Decimal) error
}
