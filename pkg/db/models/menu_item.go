package models

import (
	"time"

	"github.com/google/uuid"
)

// MenuItem is a store-scoped sellable item.
type MenuItem struct {
	ID            uuid.UUID  `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	StoreID       uuid.UUID  `gorm:"column:store_id;type:uuid;not null;index"`
	Name          string     `gorm:"column:name;not null"`
	Description   *string    `gorm:"column:description"`
	Category      string     `gorm:"column:category;not null;index"`
	PriceCents    int64      `gorm:"column:price_cents;not null"`
	IsAvailable   bool       `gorm:"column:is_available;not null;default:true"`
	StockQuantity *int       `gorm:"column:stock_quantity"`
	CreatedAt     time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time  `gorm:"column:updated_at;autoUpdateTime"`
	DeletedAt     *time.Time `gorm:"column:deleted_at;index"`
}
