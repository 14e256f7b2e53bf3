package cart

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/mdsalahuddin2001/storefront-backend/api/middleware"
	cartsvc "github.com/mdsalahuddin2001/storefront-backend/internal/cart"
)

type itemRequest struct {
	ProductID uuid.UUID `json:"product_id" validate:"required"`
	Quantity  int       `json:"quantity" validate:"required,gte=1"`
}

// identifierFromRequest prefers the signed-in user and falls back to the
// guest cart session resolved by the session middleware.
func identifierFromRequest(r *http.Request) cartsvc.Identifier {
	return cartsvc.Identifier{
		UserID:    middleware.UserUUIDFromContext(r.Context()),
		SessionID: middleware.CartSessionFromContext(r.Context()),
	}
}
