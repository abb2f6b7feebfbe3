package models

import (
	"time"

	"github.com/google/uuid"
)

// CartItem is one menu item line inside a cart, with a price snapshot taken
// at the moment it was added.
type CartItem struct {
	ID             uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	CartID         uuid.UUID `gorm:"column:cart_id;type:uuid;not null;index"`
	MenuItemID     uuid.UUID `gorm:"column:menu_item_id;type:uuid;not null"`
	NameSnapshot   string    `gorm:"column:name_snapshot;not null"`
	UnitPriceCents int64     `gorm:"column:unit_price_cents;not null"`
	Quantity       int       `gorm:"column:quantity;not null"`
	LineTotalCents int64     `gorm:"column:line_total_cents;not null"`
	CreatedAt      time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
