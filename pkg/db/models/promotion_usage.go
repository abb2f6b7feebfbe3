package models

import (
	"time"

	"github.com/google/uuid"
)

// PromotionUsage records one redemption of a promotion by a user. The
// composite index makes the per-user cap check a counted lookup.
type PromotionUsage struct {
	ID          uuid.UUID  `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	PromotionID uuid.UUID  `gorm:"column:promotion_id;type:uuid;not null;index:idx_promotion_usages_promo_user"`
	UserID      uuid.UUID  `gorm:"column:user_id;type:uuid;not null;index:idx_promotion_usages_promo_user"`
	OrderID     *uuid.UUID `gorm:"column:order_id;type:uuid"`
	CreatedAt   time.Time  `gorm:"column:created_at;autoCreateTime"`
}
