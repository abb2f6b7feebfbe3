package payouts

import (
	"context"

	"github.com/google/uuid"
	"github.com/mealmesh/mealmesh-backend/pkg/db/models"
	"github.com/mealmesh/mealmesh-backend/pkg/enums"
	"github.com/mealmesh/mealmesh-backend/pkg/pagination"
	"gorm.io/gorm"
)

// ListFilter narrows payout listings.
type ListFilter struct {
	Status  *enums.PayoutStatus
	StoreID *uuid.UUID
}

// EarningsSummary is the store owner's money position: what has been paid
// out, what sits in open payout batches, and what is settled but unbatched.
type EarningsSummary struct {
	PaidOutCents   int64 `json:"paid_out_cents"`
	InPayoutsCents int64 `json:"in_payouts_cents"`
	EligibleCents  int64 `json:"eligible_cents"`
	EligibleCount  int64 `json:"eligible_count"`
}

// Repository persists payout batches.
type Repository interface {
	WithTx(tx *gorm.DB) Repository

	Create(ctx context.Context, payout *models.Payout) (*models.Payout, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.Payout, error)
	List(ctx context.Context, filter ListFilter, page pagination.Params) ([]models.Payout, int64, error)
	Update(ctx context.Context, id uuid.UUID, updates map[string]any) error

	// FindLastForStore returns the store's payout with the latest period
	// end, or gorm.ErrRecordNotFound when the store has none.
	FindLastForStore(ctx context.Context, storeID uuid.UUID) (*models.Payout, error)
	// EarningsByStore sums net cents over completed payouts and over the
	// still-open pending and approved batches.
	EarningsByStore(ctx context.Context, storeID uuid.UUID) (paidOutCents, inPayoutsCents int64, err error)
}

// txRunner abstracts the transactional boundary of the database client.
type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service exposes payout batch generation and processing.
type Service interface {
	Generate(ctx context.Context, input GenerateInput) (*models.Payout, error)
	RequestEarly(ctx context.Context, ownerID, storeID uuid.UUID) (*models.Payout, error)
	Get(ctx context.Context, id uuid.UUID) (*models.Payout, error)
	Approve(ctx context.Context, adminID, payoutID uuid.UUID) (*models.Payout, error)
	Complete(ctx context.Context, input CompleteInput) (*models.Payout, error)
	Fail(ctx context.Context, payoutID uuid.UUID, reason string) (*models.Payout, error)
	ListForStore(ctx context.Context, ownerID, storeID uuid.UUID, page pagination.Params) ([]models.Payout, *EarningsSummary, *pagination.Page, error)
	ListAll(ctx context.Context, filter ListFilter, page pagination.Params) ([]models.Payout, *pagination.Page, error)
}
