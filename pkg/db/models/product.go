package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mdsalahuddin2001/storefront-backend/pkg/enums"
)

// Product is a sellable catalog entry. StockQuantity is only changed through
// guarded UPDATE statements so it never drops below zero.
type Product struct {
	ID            uuid.UUID           `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	VendorID      *uuid.UUID          `gorm:"column:vendor_id;type:uuid;index" json:"vendor_id,omitempty"`
	Vendor        *Vendor             `gorm:"foreignKey:VendorID" json:"vendor,omitempty"`
	CategoryID    uuid.UUID           `gorm:"column:category_id;type:uuid;not null;index" json:"category_id"`
	Category      *Category           `gorm:"foreignKey:CategoryID" json:"category,omitempty"`
	Name          string              `gorm:"column:name;not null" json:"name"`
	Slug          string              `gorm:"column:slug;not null;uniqueIndex" json:"slug"`
	SKU           string              `gorm:"column:sku;not null;uniqueIndex" json:"sku"`
	Description   string              `gorm:"column:description" json:"description"`
	PriceCents    int64               `gorm:"column:price_cents;not null" json:"price_cents"`
	Rating        float64             `gorm:"column:rating;not null;default:0" json:"rating"`
	ReviewCount   int                 `gorm:"column:review_count;not null;default:0" json:"review_count"`
	StockQuantity int                 `gorm:"column:stock_quantity;not null;default:0" json:"stock_quantity"`
	Status        enums.ProductStatus `gorm:"column:status;not null;default:'active'" json:"status"`
	DeliveryZone  string              `gorm:"column:delivery_zone" json:"delivery_zone,omitempty"`
	CreatedAt     time.Time           `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time           `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`

	InStock bool `gorm:"-" json:"in_stock"`
}

func (p *Product) BeforeCreate(*gorm.DB) error {
	assignID(&p.ID)
	return nil
}

// AfterFind fills virtual fields. Lean reads skip it.
func (p *Product) AfterFind(*gorm.DB) error {
	p.InStock = p.Status == enums.ProductStatusActive && p.StockQuantity > 0
	return nil
}
