package controllers

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"

	"github.com/mdsalahuddin2001/storefront-backend/api/responses"
	"github.com/mdsalahuddin2001/storefront-backend/api/validators"
	productsvc "github.com/mdsalahuddin2001/storefront-backend/internal/products"
	"github.com/mdsalahuddin2001/storefront-backend/pkg/enums"
	pkgerrors "github.com/mdsalahuddin2001/storefront-backend/pkg/errors"
	"github.com/mdsalahuddin2001/storefront-backend/pkg/logger"
)

// ProductList serves the catalogue. Only admins may see inactive products,
// and only when they ask for them with include_inactive.
func ProductList(svc productsvc.Service, admin bool, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "product service unavailable"))
			return
		}

		result, err := svc.List(r.Context(), productsvc.ListInput{
			Params:          validators.ListParams(r),
			IncludeInactive: admin && validators.QueryBool(r, "include_inactive"),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WritePage(w, result.Items, result.Pagination)
	}
}

func ProductGet(svc productsvc.Service, admin bool, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "product service unavailable"))
			return
		}

		id, err := validators.PathUUID(r, "productId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		product, err := svc.Get(r.Context(), id, admin)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, product)
	}
}

func AdminProductCreate(svc productsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "product service unavailable"))
			return
		}

		var payload createProductRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		product, err := svc.Create(r.Context(), payload.toInput())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, product)
	}
}

func AdminProductUpdate(svc productsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "product service unavailable"))
			return
		}

		id, err := validators.PathUUID(r, "productId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload updateProductRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		product, err := svc.Update(r.Context(), id, payload.toInput())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, product)
	}
}

func AdminProductDelete(svc productsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "product service unavailable"))
			return
		}

		id, err := validators.PathUUID(r, "productId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.Delete(r.Context(), id); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteNoContent(w)
	}
}

// Prices travel as major-unit amounts; either a JSON number or a numeric
// string is accepted.
type createProductRequest struct {
	VendorID      *uuid.UUID          `json:"vendor_id"`
	CategoryID    uuid.UUID           `json:"category_id" validate:"required"`
	Name          string              `json:"name" validate:"required,max=200"`
	Slug          string              `json:"slug" validate:"omitempty,max=200"`
	SKU           string              `json:"sku" validate:"required,max=64"`
	Description   string              `json:"description"`
	Price         json.Number         `json:"price" validate:"required"`
	StockQuantity int                 `json:"stock_quantity" validate:"gte=0"`
	Status        enums.ProductStatus `json:"status" validate:"omitempty,oneof=active inactive"`
	DeliveryZone  string              `json:"delivery_zone" validate:"omitempty,max=64"`
}

func (p createProductRequest) toInput() productsvc.CreateProductInput {
	return productsvc.CreateProductInput{
		VendorID:      p.VendorID,
		CategoryID:    p.CategoryID,
		Name:          p.Name,
		Slug:          p.Slug,
		SKU:           p.SKU,
		Description:   p.Description,
		Price:         p.Price.String(),
		StockQuantity: p.StockQuantity,
		Status:        p.Status,
		DeliveryZone:  p.DeliveryZone,
	}
}

type updateProductRequest struct {
	VendorID      *uuid.UUID           `json:"vendor_id"`
	CategoryID    *uuid.UUID           `json:"category_id"`
	Name          *string              `json:"name" validate:"omitempty,max=200"`
	Slug          *string              `json:"slug" validate:"omitempty,max=200"`
	SKU           *string              `json:"sku" validate:"omitempty,max=64"`
	Description   *string              `json:"description"`
	Price         *json.Number         `json:"price"`
	StockQuantity *int                 `json:"stock_quantity" validate:"omitempty,gte=0"`
	Status        *enums.ProductStatus `json:"status" validate:"omitempty,oneof=active inactive"`
	DeliveryZone  *string              `json:"delivery_zone" validate:"omitempty,max=64"`
}

func (p updateProductRequest) toInput() productsvc.UpdateProductInput {
	input := productsvc.UpdateProductInput{
		VendorID:      p.VendorID,
		CategoryID:    p.CategoryID,
		Name:          p.Name,
		Slug:          p.Slug,
		SKU:           p.SKU,
		Description:   p.Description,
		StockQuantity: p.StockQuantity,
		Status:        p.Status,
		DeliveryZone:  p.DeliveryZone,
	}
	if p.Price != nil {
		price := p.Price.String()
		input.Price = &price
	}
	return input
}
