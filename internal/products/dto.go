package products

import (
	"github.com/google/uuid"

	"github.com/mdsalahuddin2001/storefront-backend/pkg/enums"
	"github.com/mdsalahuddin2001/storefront-backend/pkg/query"
)

// CreateProductInput is the validated payload for a new product. Price is a
// major-unit decimal string such as "1250.00".
type CreateProductInput struct {
	VendorID      *uuid.UUID
	CategoryID    uuid.UUID
	Name          string
	Slug          string
	SKU           string
	Description   string
	Price         string
	StockQuantity int
	Status        enums.ProductStatus
	DeliveryZone  string
}

// UpdateProductInput carries optional changes; nil leaves a field untouched.
type UpdateProductInput struct {
	VendorID      *uuid.UUID
	CategoryID    *uuid.UUID
	Name          *string
	Slug          *string
	SKU           *string
	Description   *string
	Price         *string
	StockQuantity *int
	Status        *enums.ProductStatus
	DeliveryZone  *string
}

// ListInput scopes a catalogue listing. Public callers only see active products.
type ListInput struct {
	Params          query.Params
	IncludeInactive bool
}
