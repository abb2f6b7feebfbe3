package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/mealmesh/mealmesh-backend/pkg/enums"
	"github.com/mealmesh/mealmesh-backend/pkg/types"
	"github.com/shopspring/decimal"
)

// Store is a merchant storefront owned by a store_owner user.
type Store struct {
	ID              uuid.UUID         `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	OwnerID         uuid.UUID         `gorm:"column:owner_id;type:uuid;not null;index"`
	Name            string            `gorm:"column:name;not null"`
	Description     *string           `gorm:"column:description"`
	Category        string            `gorm:"column:category;not null"`
	Status          enums.StoreStatus `gorm:"column:status;type:text;not null;default:'pending'"`
	CommissionRate  *decimal.Decimal  `gorm:"column:commission_rate;type:numeric(5,2)"`
	IsAvailable     bool              `gorm:"column:is_available;not null;default:true"`
	Address         *types.Address    `gorm:"column:address;type:jsonb"`
	RatingSum       int64             `gorm:"column:rating_sum;not null;default:0"`
	RatingCount     int64             `gorm:"column:rating_count;not null;default:0"`
	VerifiedBy      *uuid.UUID        `gorm:"column:verified_by;type:uuid"`
	VerifiedAt      *time.Time        `gorm:"column:verified_at"`
	RejectionReason *string           `gorm:"column:rejection_reason"`
	CreatedAt       time.Time         `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time         `gorm:"column:updated_at;autoUpdateTime"`
}

// EffectiveCommissionRate falls back to the platform default when the store
// has no negotiated rate.
func (s Store) EffectiveCommissionRate(fallback decimal.Decimal) decimal.Decimal {
	if s.CommissionRate != nil {
		return *s.CommissionRate
	}
	return fallback
}

// AverageRating returns the aggregate rating, zero when unrated.
func (s Store) AverageRating() decimal.Decimal {
	if s.RatingCount == 0 {
		return decimal.Zero
	}
	return decimal.NewFromInt(s.RatingSum).Div(decimal.NewFromInt(s.RatingCount)).Round(2)
}
