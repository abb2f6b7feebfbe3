package cart

import (
	"context"

	"github.com/google/uuid"
	"github.com/mealmesh/mealmesh-backend/pkg/db/models"
	"github.com/mealmesh/mealmesh-backend/pkg/types"
	"gorm.io/gorm"
)

// Repository persists carts and their items.
type Repository interface {
	WithTx(tx *gorm.DB) Repository

	FindByUser(ctx context.Context, userID uuid.UUID) (*models.Cart, error)
	Create(ctx context.Context, cart *models.Cart) (*models.Cart, error)
	Save(ctx context.Context, cart *models.Cart) error
	AddItem(ctx context.Context, item *models.CartItem) error
	UpdateItem(ctx context.Context, itemID uuid.UUID, updates map[string]any) error
	RemoveItem(ctx context.Context, cartID, itemID uuid.UUID) error
	ClearItems(ctx context.Context, cartID uuid.UUID) error
}

// Service exposes cart operations for authenticated customers plus the
// Redis-backed guest cart flow.
type Service interface {
	Get(ctx context.Context, userID uuid.UUID) (*models.Cart, error)
	AddItem(ctx context.Context, input AddItemInput) (*models.Cart, error)
	UpdateItemQuantity(ctx context.Context, userID, itemID uuid.UUID, quantity int) (*models.Cart, error)
	RemoveItem(ctx context.Context, userID, itemID uuid.UUID) (*models.Cart, error)
	Clear(ctx context.Context, userID uuid.UUID) error
	SetDeliveryAddress(ctx context.Context, userID uuid.UUID, address types.Address) (*models.Cart, error)
	ApplyPromo(ctx context.Context, userID uuid.UUID, code string) (*models.Cart, error)
	RemovePromo(ctx context.Context, userID uuid.UUID) (*models.Cart, error)

	GetGuestCart(ctx context.Context, token string) (*GuestCart, error)
	AddGuestItem(ctx context.Context, token string, input GuestItemInput) (*GuestCart, error)
	MergeGuestCart(ctx context.Context, token string, userID uuid.UUID) (*models.Cart, error)
}
