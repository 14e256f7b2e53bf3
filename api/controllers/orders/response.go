package orders

import (
	"github.com/mdsalahuddin2001/storefront-backend/pkg/db/models"
	"github.com/mdsalahuddin2001/storefront-backend/pkg/money"
)

// Response adds display amounts to the stored order.
type Response struct {
	*models.Order
	Subtotal     string `json:"subtotal"`
	ShippingCost string `json:"shipping_cost"`
	Total        string `json:"total"`
}

func newResponse(order *models.Order) Response {
	return Response{
		Order:        order,
		Subtotal:     money.Format(order.SubtotalCents),
		ShippingCost: money.Format(order.ShippingCostCents),
		Total:        money.Format(order.TotalCents),
	}
}

func newResponses(rows []models.Order) []Response {
	out := make([]Response, 0, len(rows))
	for i := range rows {
		out = append(out, newResponse(&rows[i]))
	}
	return out
}
