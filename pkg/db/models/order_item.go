package models

import (
	"time"

	"github.com/google/uuid"
)

// OrderItem is one line of an order, snapshotting name and unit price so the
// order stays stable when the menu changes later.
type OrderItem struct {
	ID             uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID        uuid.UUID `gorm:"column:order_id;type:uuid;not null;index"`
	MenuItemID     uuid.UUID `gorm:"column:menu_item_id;type:uuid;not null"`
	NameSnapshot   string    `gorm:"column:name_snapshot;not null"`
	UnitPriceCents int64     `gorm:"column:unit_price_cents;not null"`
	Quantity       int       `gorm:"column:quantity;not null"`
	LineTotalCents int64     `gorm:"column:line_total_cents;not null"`
	CreatedAt      time.Time `gorm:"column:created_at;autoCreateTime"`
}
