package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/mealmesh/mealmesh-backend/pkg/enums"
	"github.com/mealmesh/mealmesh-backend/pkg/types"
)

// Order is a placed order with immutable pricing snapshots.
type Order struct {
	ID                 uuid.UUID         `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	UserID             uuid.UUID         `gorm:"column:user_id;type:uuid;not null;index"`
	StoreID            uuid.UUID         `gorm:"column:store_id;type:uuid;not null;index"`
	Status             enums.OrderStatus `gorm:"column:status;type:text;not null;default:'pending';index"`
	ItemsTotalCents    int64             `gorm:"column:items_total_cents;not null"`
	DeliveryFeeCents   int64             `gorm:"column:delivery_fee_cents;not null;default:0"`
	DiscountCents      int64             `gorm:"column:discount_cents;not null;default:0"`
	TotalCents         int64             `gorm:"column:total_cents;not null"`
	PromoCode          *string           `gorm:"column:promo_code"`
	PromotionID        *uuid.UUID        `gorm:"column:promotion_id;type:uuid"`
	DeliveryAddress    types.Address     `gorm:"column:delivery_address;type:jsonb;not null"`
	FraudFlags         []string          `gorm:"column:fraud_flags;type:jsonb;serializer:json"`
	Notes              *string           `gorm:"column:notes"`
	CancellationReason *string           `gorm:"column:cancellation_reason"`
	CancelledBy        *uuid.UUID        `gorm:"column:cancelled_by;type:uuid"`
	CancelledAt        *time.Time        `gorm:"column:cancelled_at"`
	ConfirmedAt        *time.Time        `gorm:"column:confirmed_at"`
	DeliveredAt        *time.Time        `gorm:"column:delivered_at"`
	Items              []OrderItem       `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	CreatedAt          time.Time         `gorm:"column:created_at;autoCreateTime;index"`
	UpdatedAt          time.Time         `gorm:"column:updated_at;autoUpdateTime"`
}
