package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/mealmesh/mealmesh-backend/pkg/types"
)

// Cart is the single active cart owned by a customer. Guest carts follow the
// same shape but live in Redis until the session logs in.
type Cart struct {
	ID               uuid.UUID      `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	UserID           uuid.UUID      `gorm:"column:user_id;type:uuid;not null;uniqueIndex"`
	StoreID          *uuid.UUID     `gorm:"column:store_id;type:uuid"`
	ItemsTotalCents  int64          `gorm:"column:items_total_cents;not null;default:0"`
	DeliveryFeeCents int64          `gorm:"column:delivery_fee_cents;not null;default:0"`
	DiscountCents    int64          `gorm:"column:discount_cents;not null;default:0"`
	FinalAmountCents int64          `gorm:"column:final_amount_cents;not null;default:0"`
	PromoCode        *string        `gorm:"column:promo_code"`
	PromotionID      *uuid.UUID     `gorm:"column:promotion_id;type:uuid"`
	DeliveryAddress  *types.Address `gorm:"column:delivery_address;type:jsonb"`
	Items            []CartItem     `gorm:"foreignKey:CartID;constraint:OnDelete:CASCADE"`
	CreatedAt        time.Time      `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt        time.Time      `gorm:"column:updated_at;autoUpdateTime"`
}
