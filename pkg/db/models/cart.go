package models

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mdsalahuddin2001/storefront-backend/pkg/enums"
)

// ErrCartOwnership is returned when a cart is saved without exactly one owner.
var ErrCartOwnership = errors.New("cart must belong to exactly one of user or session")

// Cart is owned by exactly one of a user or a guest session.
type Cart struct {
	ID            uuid.UUID        `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	UserID        *uuid.UUID       `gorm:"column:user_id;type:uuid;index" json:"user_id,omitempty"`
	SessionID     *string          `gorm:"column:session_id;index" json:"session_id,omitempty"`
	Status        enums.CartStatus `gorm:"column:status;not null;default:'active'" json:"status"`
	SubtotalCents int64            `gorm:"column:subtotal_cents;not null;default:0" json:"subtotal_cents"`
	Items         []CartItem       `gorm:"foreignKey:CartID;constraint:OnDelete:CASCADE" json:"items"`
	ConvertedAt   *time.Time       `gorm:"column:converted_at" json:"converted_at,omitempty"`
	CreatedAt     time.Time        `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time        `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

func (c *Cart) BeforeCreate(*gorm.DB) error {
	assignID(&c.ID)
	return nil
}

func (c *Cart) BeforeSave(*gorm.DB) error {
	hasUser := c.UserID != nil && *c.UserID != uuid.Nil
	hasSession := c.SessionID != nil && *c.SessionID != ""
	if hasUser == hasSession {
		return ErrCartOwnership
	}
	return nil
}

// Recalculate refreshes SubtotalCents from the item snapshots.
func (c *Cart) Recalculate() {
	var total int64
	for _, item := range c.Items {
		total += item.LineTotalCents()
	}
	c.SubtotalCents = total
}

// ItemCount sums quantities across lines.
func (c *Cart) ItemCount() int {
	n := 0
	for _, item := range c.Items {
		n += item.Quantity
	}
	return n
}

// CartItem is one product line with the price captured when it was added.
type CartItem struct {
	ID         uuid.UUID `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	CartID     uuid.UUID `gorm:"column:cart_id;type:uuid;not null;index" json:"-"`
	ProductID  uuid.UUID `gorm:"column:product_id;type:uuid;not null" json:"product_id"`
	Product    *Product  `gorm:"foreignKey:ProductID" json:"product,omitempty"`
	Position   int       `gorm:"column:position;not null;default:0" json:"-"`
	Quantity   int       `gorm:"column:quantity;not null" json:"quantity"`
	PriceCents int64     `gorm:"column:price_cents;not null" json:"price_cents"`
	CreatedAt  time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt  time.Time `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

func (i *CartItem) BeforeCreate(*gorm.DB) error {
	assignID(&i.ID)
	return nil
}

func (i CartItem) LineTotalCents() int64 {
	return int64(i.Quantity) * i.PriceCents
}
