package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mdsalahuddin2001/storefront-backend/pkg/enums"
)

// Vendor is a shop operated by a user, gated by admin review.
type Vendor struct {
	ID          uuid.UUID          `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	UserID      uuid.UUID          `gorm:"column:user_id;type:uuid;not null;uniqueIndex" json:"user_id"`
	User        *User              `gorm:"foreignKey:UserID" json:"user,omitempty"`
	ShopName    string             `gorm:"column:shop_name;not null" json:"shop_name"`
	Description string             `gorm:"column:description" json:"description"`
	Address     string             `gorm:"column:address" json:"address"`
	Status      enums.VendorStatus `gorm:"column:status;not null;default:'pending'" json:"status"`
	CreatedAt   time.Time          `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time          `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

func (v *Vendor) BeforeCreate(*gorm.DB) error {
	assignID(&v.ID)
	return nil
}
