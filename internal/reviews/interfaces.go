package reviews

import (
	"context"

	"github.com/google/uuid"
	"github.com/mealmesh/mealmesh-backend/pkg/db/models"
	"github.com/mealmesh/mealmesh-backend/pkg/enums"
	"github.com/mealmesh/mealmesh-backend/pkg/pagination"
	"gorm.io/gorm"
)

// ListFilter narrows review listings.
type ListFilter struct {
	StoreID *uuid.UUID
	UserID  *uuid.UUID
	Status  *enums.ReviewStatus
}

// Repository persists reviews.
type Repository interface {
	WithTx(tx *gorm.DB) Repository

	Create(ctx context.Context, review *models.Review) (*models.Review, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.Review, error)
	FindByOrder(ctx context.Context, orderID uuid.UUID) (*models.Review, error)
	List(ctx context.Context, filter ListFilter, page pagination.Params) ([]models.Review, int64, error)
	Update(ctx context.Context, id uuid.UUID, updates map[string]any) error
}

// txRunner abstracts the transactional boundary of the database client.
type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service exposes review submission, store responses, and moderation.
type Service interface {
	Create(ctx context.Context, input CreateInput) (*models.Review, error)
	Get(ctx context.Context, id uuid.UUID) (*models.Review, error)
	ListForStore(ctx context.Context, storeID uuid.UUID, page pagination.Params) ([]models.Review, *pagination.Page, error)
	ListForUser(ctx context.Context, userID uuid.UUID, page pagination.Params) ([]models.Review, *pagination.Page, error)
	AddStoreResponse(ctx context.Context, ownerID, reviewID uuid.UUID, response string) (*models.Review, error)
	Moderate(ctx context.Context, reviewID uuid.UUID, status enums.ReviewStatus) (*models.Review, error)
}
