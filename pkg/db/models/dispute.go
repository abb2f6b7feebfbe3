package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/mealmesh/mealmesh-backend/pkg/enums"
	"github.com/mealmesh/mealmesh-backend/pkg/types"
)

// Dispute is a customer complaint against an order, resolved by an admin.
type Dispute struct {
	ID                uuid.UUID                `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID           uuid.UUID                `gorm:"column:order_id;type:uuid;not null;index"`
	UserID            uuid.UUID                `gorm:"column:user_id;type:uuid;not null;index"`
	StoreID           uuid.UUID                `gorm:"column:store_id;type:uuid;not null;index"`
	Subject           string                   `gorm:"column:subject;not null"`
	Description       string                   `gorm:"column:description;not null"`
	Status            enums.DisputeStatus      `gorm:"column:status;type:text;not null;default:'open';index"`
	Resolution        *enums.DisputeResolution `gorm:"column:resolution;type:text"`
	ResolutionNotes   *string                  `gorm:"column:resolution_notes"`
	RefundAmountCents *int64                   `gorm:"column:refund_amount_cents"`
	Timeline          []types.DisputeEvent     `gorm:"column:timeline;type:jsonb;serializer:json"`
	ResolvedBy        *uuid.UUID               `gorm:"column:resolved_by;type:uuid"`
	ResolvedAt        *time.Time               `gorm:"column:resolved_at"`
	CreatedAt         time.Time                `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt         time.Time                `gorm:"column:updated_at;autoUpdateTime"`
}
