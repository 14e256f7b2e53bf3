package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mdsalahuddin2001/storefront-backend/pkg/enums"
)

// ShippingAddress is stored inline on the order row.
type ShippingAddress struct {
	Name     string `gorm:"column:name" json:"name"`
	Phone    string `gorm:"column:phone" json:"phone"`
	Email    string `gorm:"column:email" json:"email,omitempty"`
	Address  string `gorm:"column:address" json:"address"`
	District string `gorm:"column:district" json:"district"`
	Upazila  string `gorm:"column:upazila" json:"upazila"`
}

// Order is an immutable snapshot of a checked-out cart plus its fulfilment state.
type Order struct {
	ID                uuid.UUID           `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	CustomerID        *uuid.UUID          `gorm:"column:customer_id;type:uuid;index" json:"customer_id,omitempty"`
	Customer          *User               `gorm:"foreignKey:CustomerID" json:"customer,omitempty"`
	SessionID         *string             `gorm:"column:session_id;index" json:"session_id,omitempty"`
	CartID            uuid.UUID           `gorm:"column:cart_id;type:uuid;not null" json:"cart_id"`
	Items             []OrderItem         `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE" json:"items"`
	ShippingAddress   ShippingAddress     `gorm:"embedded;embeddedPrefix:shipping_" json:"shipping_address"`
	Status            enums.OrderStatus   `gorm:"column:status;not null;default:'pending'" json:"status"`
	PaymentMethod     enums.PaymentMethod `gorm:"column:payment_method;not null" json:"payment_method"`
	PaymentStatus     enums.PaymentStatus `gorm:"column:payment_status;not null;default:'pending'" json:"payment_status"`
	DeliveryZone      enums.DeliveryZone  `gorm:"column:delivery_zone;not null" json:"delivery_zone"`
	TransactionID     *string             `gorm:"column:transaction_id" json:"transaction_id,omitempty"`
	SubtotalCents     int64               `gorm:"column:subtotal_cents;not null" json:"subtotal_cents"`
	ShippingCostCents int64               `gorm:"column:shipping_cost_cents;not null" json:"shipping_cost_cents"`
	TotalCents        int64               `gorm:"column:total_cents;not null" json:"total_cents"`
	CancelledAt       *time.Time          `gorm:"column:cancelled_at" json:"cancelled_at,omitempty"`
	CreatedAt         time.Time           `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt         time.Time           `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

func (o *Order) BeforeCreate(*gorm.DB) error {
	assignID(&o.ID)
	return nil
}

// OrderItem denormalises the product at purchase time.
type OrderItem struct {
	ID         uuid.UUID `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	OrderID    uuid.UUID `gorm:"column:order_id;type:uuid;not null;index" json:"-"`
	ProductID  uuid.UUID `gorm:"column:product_id;type:uuid;not null" json:"product_id"`
	Product    *Product  `gorm:"foreignKey:ProductID" json:"product,omitempty"`
	Position   int       `gorm:"column:position;not null;default:0" json:"-"`
	Name       string    `gorm:"column:name;not null" json:"name"`
	PriceCents int64     `gorm:"column:price_cents;not null" json:"price_cents"`
	Quantity   int       `gorm:"column:quantity;not null" json:"quantity"`
	TotalCents int64     `gorm:"column:total_cents;not null" json:"total_cents"`
}

func (i *OrderItem) BeforeCreate(*gorm.DB) error {
	assignID(&i.ID)
	return nil
}
