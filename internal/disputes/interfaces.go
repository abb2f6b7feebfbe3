package disputes

import (
	"context"

	"github.com/google/uuid"
	"github.com/mealmesh/mealmesh-backend/pkg/db/models"
	"github.com/mealmesh/mealmesh-backend/pkg/enums"
	"github.com/mealmesh/mealmesh-backend/pkg/pagination"
	"gorm.io/gorm"
)

// ListFilter narrows dispute listings.
type ListFilter struct {
	Status  *enums.DisputeStatus
	StoreID *uuid.UUID
	UserID  *uuid.UUID
}

// Repository persists disputes. Timeline-bearing mutations go through Save
// so the JSON serializer applies.
type Repository interface {
	WithTx(tx *gorm.DB) Repository

	Create(ctx context.Context, dispute *models.Dispute) (*models.Dispute, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.Dispute, error)
	List(ctx context.Context, filter ListFilter, page pagination.Params) ([]models.Dispute, int64, error)
	Save(ctx context.Context, dispute *models.Dispute) error
}

// txRunner abstracts the transactional boundary of the database client.
type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service exposes dispute filing, triage, and resolution.
type Service interface {
	Create(ctx context.Context, input CreateInput) (*models.Dispute, error)
	Get(ctx context.Context, actor Actor, disputeID uuid.UUID) (*models.Dispute, error)
	AddComment(ctx context.Context, actor Actor, disputeID uuid.UUID, note string) (*models.Dispute, error)
	UpdateStatus(ctx context.Context, adminID, disputeID uuid.UUID, status enums.DisputeStatus) (*models.Dispute, error)
	Resolve(ctx context.Context, input ResolveInput) (*models.Dispute, error)
	ListForUser(ctx context.Context, userID uuid.UUID, page pagination.Params) ([]models.Dispute, *pagination.Page, error)
	ListForStore(ctx context.Context, ownerID, storeID uuid.UUID, page pagination.Params) ([]models.Dispute, *pagination.Page, error)
	ListAll(ctx context.Context, filter ListFilter, page pagination.Params) ([]models.Dispute, *pagination.Page, error)
}
