package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/mealmesh/mealmesh-backend/pkg/enums"
	"github.com/shopspring/decimal"
)

// Payment is the single settlement record for an order. The commission split
// is snapshotted at creation so later store rate changes cannot alter it.
type Payment struct {
	ID                uuid.UUID                 `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID           uuid.UUID                 `gorm:"column:order_id;type:uuid;not null;uniqueIndex"`
	UserID            uuid.UUID                 `gorm:"column:user_id;type:uuid;not null;index"`
	StoreID           uuid.UUID                 `gorm:"column:store_id;type:uuid;not null;index"`
	AmountCents       int64                     `gorm:"column:amount_cents;not null"`
	CommissionRate    decimal.Decimal           `gorm:"column:commission_rate;type:numeric(5,2);not null"`
	CommissionCents   int64                     `gorm:"column:commission_cents;not null"`
	PayoutCents       int64                     `gorm:"column:payout_cents;not null"`
	Status            enums.PaymentStatus       `gorm:"column:status;type:text;not null;default:'pending';index"`
	Method            enums.PaymentMethod       `gorm:"column:method;type:text;not null"`
	PayoutStatus      enums.PaymentPayoutStatus `gorm:"column:payout_status;type:text;not null;default:'pending';index"`
	PayoutID          *uuid.UUID                `gorm:"column:payout_id;type:uuid;index"`
	PayoutDate        *time.Time                `gorm:"column:payout_date"`
	TransactionID     *string                   `gorm:"column:transaction_id"`
	GatewayOrderID    *string                   `gorm:"column:gateway_order_id"`
	RefundAmountCents *int64                    `gorm:"column:refund_amount_cents"`
	RefundReason      *string                   `gorm:"column:refund_reason"`
	RefundedAt        *time.Time                `gorm:"column:refunded_at"`
	CompletedAt       *time.Time                `gorm:"column:completed_at"`
	FailureReason     *string                   `gorm:"column:failure_reason"`
	CreatedAt         time.Time                 `gorm:"column:created_at;autoCreateTime;index"`
	UpdatedAt         time.Time                 `gorm:"column:updated_at;autoUpdateTime"`
}
