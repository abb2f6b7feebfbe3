package models

import (
	"time"

	"github.com/google/uuid"
	dbtypes "github.com/mealmesh/mealmesh-backend/pkg/db/types"
	"github.com/mealmesh/mealmesh-backend/pkg/enums"
	"github.com/shopspring/decimal"
)

// Promotion is a redeemable discount code.
type Promotion struct {
	ID               uuid.UUID            `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	Code             string               `gorm:"column:code;type:text;not null;uniqueIndex"`
	Description      *string              `gorm:"column:description"`
	Type             enums.PromotionType  `gorm:"column:type;type:text;not null"`
	DiscountValue    decimal.Decimal      `gorm:"column:discount_value;type:numeric(12,2);not null"`
	MaxDiscountCents *int64               `gorm:"column:max_discount_cents"`
	MinOrderCents    int64                `gorm:"column:min_order_cents;not null;default:0"`
	Scope            enums.PromotionScope `gorm:"column:scope;type:text;not null;default:'all'"`
	StoreIDs         dbtypes.UUIDArray    `gorm:"column:store_ids;type:uuid[]"`
	ItemIDs          dbtypes.UUIDArray    `gorm:"column:item_ids;type:uuid[]"`
	Categories       []string             `gorm:"column:categories;type:jsonb;serializer:json"`
	StartsAt         time.Time            `gorm:"column:starts_at;not null"`
	EndsAt           time.Time            `gorm:"column:ends_at;not null"`
	MaxUses          *int                 `gorm:"column:max_uses"`
	MaxUsesPerUser   int                  `gorm:"column:max_uses_per_user;not null;default:1"`
	UsedCount        int                  `gorm:"column:used_count;not null;default:0"`
	IsActive         bool                 `gorm:"column:is_active;not null;default:true"`
	CreatedBy        *uuid.UUID           `gorm:"column:created_by;type:uuid"`
	CreatedAt        time.Time            `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt        time.Time            `gorm:"column:updated_at;autoUpdateTime"`
}
