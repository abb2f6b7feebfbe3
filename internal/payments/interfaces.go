package payments

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/mealmesh/mealmesh-backend/pkg/db/models"
	"github.com/mealmesh/mealmesh-backend/pkg/enums"
	"github.com/mealmesh/mealmesh-backend/pkg/pagination"
	"gorm.io/gorm"
)

// ListFilter narrows payment listings.
type ListFilter struct {
	Status       *enums.PaymentStatus
	PayoutStatus *enums.PaymentPayoutStatus
	StoreID      *uuid.UUID
	UserID       *uuid.UUID
}

// Totals aggregates a payment listing.
type Totals struct {
	Count           int64 `json:"count"`
	AmountCents     int64 `json:"amount_cents"`
	CommissionCents int64 `json:"commission_cents"`
	PayoutCents     int64 `json:"payout_cents"`
}

// Repository persists payments.
type Repository interface {
	WithTx(tx *gorm.DB) Repository

	Create(ctx context.Context, payment *models.Payment) (*models.Payment, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.Payment, error)
	FindByOrder(ctx context.Context, orderID uuid.UUID) (*models.Payment, error)
	List(ctx context.Context, filter ListFilter, page pagination.Params) ([]models.Payment, int64, error)
	Totals(ctx context.Context, filter ListFilter) (*Totals, error)
	Update(ctx context.Context, id uuid.UUID, updates map[string]any) error

	// FindEligibleForPayout selects completed payments with an eligible
	// payout status created inside the period.
	FindEligibleForPayout(ctx context.Context, storeID uuid.UUID, start, end time.Time) ([]models.Payment, error)
	// MarkPayoutStatus flips payout status on the given payments,
	// optionally stamping the payout reference and date.
	MarkPayoutStatus(ctx context.Context, paymentIDs []uuid.UUID, status enums.PaymentPayoutStatus, updates map[string]any) error
}

// txRunner abstracts the transactional boundary of the database client.
type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service exposes payment creation and settlement operations.
type Service interface {
	Create(ctx context.Context, input CreateInput) (*models.Payment, error)
	Get(ctx context.Context, id uuid.UUID) (*models.Payment, error)
	Complete(ctx context.Context, input CompleteInput) (*models.Payment, error)
	Fail(ctx context.Context, paymentID uuid.UUID, reason string) (*models.Payment, error)
	Refund(ctx context.Context, input RefundInput) (*models.Payment, error)
	RefundForOrderInTx(ctx context.Context, tx *gorm.DB, orderID uuid.UUID, reason string) error
	ListForUser(ctx context.Context, userID uuid.UUID, page pagination.Params) ([]models.Payment, *pagination.Page, error)
	ListForStore(ctx context.Context, ownerID, storeID uuid.UUID, page pagination.Params) ([]models.Payment, *Totals, *pagination.Page, error)
	ListAll(ctx context.Context, filter ListFilter, page pagination.Params) ([]models.Payment, *pagination.Page, error)
}
