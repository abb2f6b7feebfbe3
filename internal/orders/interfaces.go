package orders

import (
	"context"

	"github.com/google/uuid"
	"github.com/mealmesh/mealmesh-backend/pkg/db/models"
	"github.com/mealmesh/mealmesh-backend/pkg/enums"
	"github.com/mealmesh/mealmesh-backend/pkg/pagination"
	"gorm.io/gorm"
)

// ListFilter narrows order listings.
type ListFilter struct {
	Status  *enums.OrderStatus
	StoreID *uuid.UUID
	UserID  *uuid.UUID
}

// Repository persists orders and their lines.
type Repository interface {
	WithTx(tx *gorm.DB) Repository

	Create(ctx context.Context, order *models.Order) (*models.Order, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error)
	List(ctx context.Context, filter ListFilter, page pagination.Params) ([]models.Order, int64, error)
	Update(ctx context.Context, id uuid.UUID, updates map[string]any) error

	// UpdateStatusFrom flips status only when the row still holds the
	// expected current status, reporting rows affected.
	UpdateStatusFrom(ctx context.Context, id uuid.UUID, from, to enums.OrderStatus, extra map[string]any) (int64, error)
}

// txRunner abstracts the transactional boundary of the database client.
type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// PaymentRefunder lets the admin override cancel refund a completed payment
// inside the same transaction. Implemented by the payments service.
type PaymentRefunder interface {
	RefundForOrderInTx(ctx context.Context, tx *gorm.DB, orderID uuid.UUID, reason string) error
}

// Service exposes order creation, transitions, and listings.
type Service interface {
	SetPaymentRefunder(refunder PaymentRefunder)
	Create(ctx context.Context, input CreateInput) (*models.Order, error)
	CreateFromCart(ctx context.Context, input FromCartInput) (*models.Order, error)
	Get(ctx context.Context, actor Actor, orderID uuid.UUID) (*models.Order, error)
	Transition(ctx context.Context, input TransitionInput) (*models.Order, error)
	CancelByCustomer(ctx context.Context, userID, orderID uuid.UUID, reason string) (*models.Order, error)
	AdminCancel(ctx context.Context, adminID, orderID uuid.UUID, reason string) (*models.Order, error)
	ListForUser(ctx context.Context, userID uuid.UUID, status *enums.OrderStatus, page pagination.Params) ([]models.Order, *pagination.Page, error)
	ListForStore(ctx context.Context, ownerID, storeID uuid.UUID, status *enums.OrderStatus, page pagination.Params) ([]models.Order, *pagination.Page, error)
	ListAll(ctx context.Context, filter ListFilter, page pagination.Params) ([]models.Order, *pagination.Page, error)
}
