package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/mealmesh/mealmesh-backend/pkg/enums"
)

// Review is customer feedback on a delivered order, one per order.
type Review struct {
	ID            uuid.UUID          `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID       uuid.UUID          `gorm:"column:order_id;type:uuid;not null;uniqueIndex"`
	UserID        uuid.UUID          `gorm:"column:user_id;type:uuid;not null;index"`
	StoreID       uuid.UUID          `gorm:"column:store_id;type:uuid;not null;index"`
	Rating        int                `gorm:"column:rating;not null"`
	Comment       *string            `gorm:"column:comment"`
	Status        enums.ReviewStatus `gorm:"column:status;type:text;not null;default:'visible'"`
	StoreResponse *string            `gorm:"column:store_response"`
	RespondedAt   *time.Time         `gorm:"column:responded_at"`
	CreatedAt     time.Time          `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time          `gorm:"column:updated_at;autoUpdateTime"`
}
