package cart

import (
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/multierr"

	"github.com/mdsalahuddin2001/storefront-backend/pkg/db/models"
	"github.com/mdsalahuddin2001/storefront-backend/pkg/enums"
	pkgerrors "github.com/mdsalahuddin2001/storefront-backend/pkg/errors"
)

const (
	ReasonUnavailable       = "unavailable"
	ReasonInsufficientStock = "insufficient_stock"
)

// Violation describes one cart line that cannot be fulfilled.
type Violation struct {
	ProductID    uuid.UUID `json:"product_id"`
	ProductName  string    `json:"product_name"`
	RequestedQty int       `json:"requested_qty"`
	AvailableQty int       `json:"available_qty"`
	Reason       string    `json:"reason"`
}

// Violations collects every unfulfillable line in one pass.
func Violations(items []models.CartItem, products map[uuid.UUID]models.Product) []Violation {
	out := []Violation{}
	for _, item := range items {
		product, ok := products[item.ProductID]
		switch {
		case !ok:
			out = append(out, Violation{ProductID: item.ProductID, ProductName: "unknown product", RequestedQty: item.Quantity, Reason: ReasonUnavailable})
		case product.Status != enums.ProductStatusActive:
			out = append(out, Violation{ProductID: item.ProductID, ProductName: product.Name, RequestedQty: item.Quantity, Reason: ReasonUnavailable})
		case product.StockQuantity < item.Quantity:
			out = append(out, Violation{
				ProductID:    item.ProductID,
				ProductName:  product.Name,
				RequestedQty: item.Quantity,
				AvailableQty: product.StockQuantity,
				Reason:       ReasonInsufficientStock,
			})
		}
	}
	return out
}

// ViolationError folds violations into a single error. Any stock shortfall
// makes it a conflict; a cart whose only problems are missing or inactive
// products is reported as not found.
func ViolationError(violations []Violation) error {
	if len(violations) == 0 {
		return nil
	}
	var combined error
	code := pkgerrors.CodeNotFound
	for _, v := range violations {
		if v.Reason == ReasonInsufficientStock {
			code = pkgerrors.CodeConflict
			combined = multierr.Append(combined, fmt.Errorf("%s: only %d available", v.ProductName, v.AvailableQty))
			continue
		}
		combined = multierr.Append(combined, fmt.Errorf("%s: no longer available", v.ProductName))
	}
	return pkgerrors.Wrap(code, combined, "some items cannot be fulfilled: "+combined.Error()).
		WithDetails(map[string]any{"violations": violations})
}
