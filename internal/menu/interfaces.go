package menu

import (
	"context"

	"github.com/google/uuid"
	"github.com/mealmesh/mealmesh-backend/pkg/db/models"
	"github.com/mealmesh/mealmesh-backend/pkg/pagination"
	"gorm.io/gorm"
)

// ListFilter narrows menu item listings within a store.
type ListFilter struct {
	Category      *string
	OnlyAvailable bool
}

// Repository persists menu items. Reads exclude soft-deleted rows.
type Repository interface {
	WithTx(tx *gorm.DB) Repository

	Create(ctx context.Context, item *models.MenuItem) (*models.MenuItem, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.MenuItem, error)
	ListByStore(ctx context.Context, storeID uuid.UUID, filter ListFilter, page pagination.Params) ([]models.MenuItem, int64, error)
	Update(ctx context.Context, id uuid.UUID, updates map[string]any) error
	SoftDelete(ctx context.Context, id uuid.UUID) error
	DecrementStock(ctx context.Context, id uuid.UUID, quantity int) error
}

// Service exposes store-scoped menu management.
type Service interface {
	Create(ctx context.Context, input CreateInput) (*models.MenuItem, error)
	Get(ctx context.Context, id uuid.UUID) (*models.MenuItem, error)
	List(ctx context.Context, storeID uuid.UUID, filter ListFilter, page pagination.Params) ([]models.MenuItem, *pagination.Page, error)
	Update(ctx context.Context, input UpdateInput) (*models.MenuItem, error)
	Delete(ctx context.Context, ownerID, storeID, itemID uuid.UUID) error
}
