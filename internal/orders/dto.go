package orders

import (
	"strings"

	"github.com/google/uuid"

	"github.com/mdsalahuddin2001/storefront-backend/pkg/db/models"
	"github.com/mdsalahuddin2001/storefront-backend/pkg/enums"
	pkgerrors "github.com/mdsalahuddin2001/storefront-backend/pkg/errors"
	"github.com/mdsalahuddin2001/storefront-backend/pkg/query"
)

// PlaceOrderInput carries the checkout form.
type PlaceOrderInput struct {
	ShippingAddress models.ShippingAddress
	PaymentMethod   enums.PaymentMethod
	DeliveryZone    enums.DeliveryZone
	TransactionID   *string
}

func (in *PlaceOrderInput) normalize() error {
	addr := &in.ShippingAddress
	addr.Name = strings.TrimSpace(addr.Name)
	addr.Phone = strings.TrimSpace(addr.Phone)
	addr.Email = strings.TrimSpace(addr.Email)
	addr.Address = strings.TrimSpace(addr.Address)
	addr.District = strings.TrimSpace(addr.District)
	addr.Upazila = strings.TrimSpace(addr.Upazila)

	required := []struct{ field, value string }{
		{"name", addr.Name},
		{"phone", addr.Phone},
		{"address", addr.Address},
		{"district", addr.District},
		{"upazila", addr.Upazila},
	}
	missing := []string{}
	for _, r := range required {
		if r.value == "" {
			missing = append(missing, r.field)
		}
	}
	if len(missing) > 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "shipping address is incomplete").
			WithDetails(map[string]any{"missing": missing})
	}
	if in.PaymentMethod == "" {
		in.PaymentMethod = enums.PaymentMethodCOD
	}
	if !in.PaymentMethod.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid payment method")
	}
	if !in.DeliveryZone.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid delivery zone")
	}
	if in.TransactionID != nil {
		trimmed := strings.TrimSpace(*in.TransactionID)
		if trimmed == "" {
			in.TransactionID = nil
		} else {
			in.TransactionID = &trimmed
		}
	}
	return nil
}

// Viewer is the caller reading or cancelling an order.
type Viewer struct {
	UserID    *uuid.UUID
	SessionID string
	Admin     bool
}

func (v Viewer) owns(order *models.Order) bool {
	if v.Admin {
		return true
	}
	if order.CustomerID != nil {
		return v.UserID != nil && *v.UserID == *order.CustomerID
	}
	return order.SessionID != nil && v.SessionID != "" && *order.SessionID == v.SessionID
}

// ListInput scopes an order listing. A nil CustomerID is only honoured for admins.
type ListInput struct {
	Params     query.Params
	CustomerID *uuid.UUID
	Admin      bool
}
