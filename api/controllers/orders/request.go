package orders

import (
	"net/http"

	"github.com/mdsalahuddin2001/storefront-backend/api/middleware"
	internalorders "github.com/mdsalahuddin2001/storefront-backend/internal/orders"
	"github.com/mdsalahuddin2001/storefront-backend/pkg/db/models"
	"github.com/mdsalahuddin2001/storefront-backend/pkg/enums"
)

type shippingAddressRequest struct {
	Name     string `json:"name" validate:"required,max=120"`
	Phone    string `json:"phone" validate:"required,max=32"`
	Email    string `json:"email" validate:"omitempty,email"`
	Address  string `json:"address" validate:"required,max=500"`
	District string `json:"district" validate:"required,max=120"`
	Upazila  string `json:"upazila" validate:"required,max=120"`
}

type checkoutRequest struct {
	ShippingAddress shippingAddressRequest `json:"shipping_address"`
	PaymentMethod   enums.PaymentMethod    `json:"payment_method" validate:"required,oneof=cod celfin bkash nagad"`
	DeliveryZone    enums.DeliveryZone     `json:"delivery_zone" validate:"required,oneof=inside_dhaka outside_dhaka"`
	TransactionID   *string                `json:"transaction_id" validate:"omitempty,max=128"`
}

func (c checkoutRequest) toInput() internalorders.PlaceOrderInput {
	return internalorders.PlaceOrderInput{
		ShippingAddress: models.ShippingAddress{
			Name:     c.ShippingAddress.Name,
			Phone:    c.ShippingAddress.Phone,
			Email:    c.ShippingAddress.Email,
			Address:  c.ShippingAddress.Address,
			District: c.ShippingAddress.District,
			Upazila:  c.ShippingAddress.Upazila,
		},
		PaymentMethod: c.PaymentMethod,
		DeliveryZone:  c.DeliveryZone,
		TransactionID: c.TransactionID,
	}
}

type statusRequest struct {
	Status enums.OrderStatus `json:"status" validate:"required"`
}

type paymentRequest struct {
	PaymentStatus enums.PaymentStatus `json:"payment_status" validate:"required,oneof=pending paid failed"`
	TransactionID *string             `json:"transaction_id" validate:"omitempty,max=128"`
}

func viewerFromRequest(r *http.Request) internalorders.Viewer {
	return internalorders.Viewer{
		UserID:    middleware.UserUUIDFromContext(r.Context()),
		SessionID: middleware.CartSessionFromContext(r.Context()),
		Admin:     middleware.IsAdmin(r.Context()),
	}
}
