package cart

import (
	"time"

	"github.com/google/uuid"

	"github.com/mdsalahuddin2001/storefront-backend/pkg/db/models"
	"github.com/mdsalahuddin2001/storefront-backend/pkg/enums"
	"github.com/mdsalahuddin2001/storefront-backend/pkg/money"
)

// Response is the cart as returned to shoppers. Amounts are sent both as
// minor units and as display strings.
type Response struct {
	ID            uuid.UUID        `json:"id"`
	Status        enums.CartStatus `json:"status"`
	Items         []ItemResponse   `json:"items"`
	ItemCount     int              `json:"item_count"`
	SubtotalCents int64            `json:"subtotal_cents"`
	Subtotal      string           `json:"subtotal"`
	UpdatedAt     time.Time        `json:"updated_at"`
}

type ItemResponse struct {
	ProductID      uuid.UUID `json:"product_id"`
	Name           string    `json:"name,omitempty"`
	Slug           string    `json:"slug,omitempty"`
	Quantity       int       `json:"quantity"`
	PriceCents     int64     `json:"price_cents"`
	Price          string    `json:"price"`
	LineTotalCents int64     `json:"line_total_cents"`
	LineTotal      string    `json:"line_total"`
	InStock        bool      `json:"in_stock"`
}

func newResponse(cart *models.Cart) Response {
	resp := Response{
		ID:            cart.ID,
		Status:        cart.Status,
		Items:         make([]ItemResponse, 0, len(cart.Items)),
		ItemCount:     cart.ItemCount(),
		SubtotalCents: cart.SubtotalCents,
		Subtotal:      money.Format(cart.SubtotalCents),
		UpdatedAt:     cart.UpdatedAt,
	}
	for _, item := range cart.Items {
		line := ItemResponse{
			ProductID:      item.ProductID,
			Quantity:       item.Quantity,
			PriceCents:     item.PriceCents,
			Price:          money.Format(item.PriceCents),
			LineTotalCents: item.LineTotalCents(),
			LineTotal:      money.Format(item.LineTotalCents()),
		}
		if item.Product != nil {
			line.Name = item.Product.Name
			line.Slug = item.Product.Slug
			line.InStock = item.Product.Status == enums.ProductStatusActive && item.Product.StockQuantity >= item.Quantity
		}
		resp.Items = append(resp.Items, line)
	}
	return resp
}
