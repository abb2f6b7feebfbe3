package models

import (
	"time"

	"github.com/google/uuid"
	dbtypes "github.com/mealmesh/mealmesh-backend/pkg/db/types"
	"github.com/mealmesh/mealmesh-backend/pkg/enums"
)

// Payout is a batch settlement of completed payments for one store and
// period. Totals and the payment id set are snapshots taken at generation.
type Payout struct {
	ID              uuid.UUID          `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	StoreID         uuid.UUID          `gorm:"column:store_id;type:uuid;not null;index"`
	PeriodStart     time.Time          `gorm:"column:period_start;not null"`
	PeriodEnd       time.Time          `gorm:"column:period_end;not null"`
	GrossCents      int64              `gorm:"column:gross_cents;not null"`
	CommissionCents int64              `gorm:"column:commission_cents;not null"`
	NetCents        int64              `gorm:"column:net_cents;not null"`
	PaymentIDs      dbtypes.UUIDArray  `gorm:"column:payment_ids;type:uuid[];not null"`
	Status          enums.PayoutStatus `gorm:"column:status;type:text;not null;default:'pending';index"`
	RequestedBy     *uuid.UUID         `gorm:"column:requested_by;type:uuid"`
	ApprovedBy      *uuid.UUID         `gorm:"column:approved_by;type:uuid"`
	ApprovedAt      *time.Time         `gorm:"column:approved_at"`
	TransferID      *string            `gorm:"column:transfer_id"`
	CompletedAt     *time.Time         `gorm:"column:completed_at"`
	FailureReason   *string            `gorm:"column:failure_reason"`
	CreatedAt       time.Time          `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time          `gorm:"column:updated_at;autoUpdateTime"`
}
