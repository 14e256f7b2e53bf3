package products

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mdsalahuddin2001/storefront-backend/pkg/config"
	"github.com/mdsalahuddin2001/storefront-backend/pkg/db"
	"github.com/mdsalahuddin2001/storefront-backend/pkg/db/models"
	"github.com/mdsalahuddin2001/storefront-backend/pkg/enums"
	pkgerrors "github.com/mdsalahuddin2001/storefront-backend/pkg/errors"
	"github.com/mdsalahuddin2001/storefront-backend/pkg/logger"
	"github.com/mdsalahuddin2001/storefront-backend/pkg/money"
	"github.com/mdsalahuddin2001/storefront-backend/pkg/query"
	"github.com/mdsalahuddin2001/storefront-backend/pkg/sanitize"
)

// ListConfig is the catalogue's query surface.
var ListConfig = query.Config{
	SearchFields:   []string{"name", "description", "sku"},
	SortableFields: []string{"name", "price_cents", "rating", "review_count", "stock_quantity", "created_at"},
	SelectableFields: []string{
		"id", "name", "slug", "sku", "description", "price_cents", "rating", "review_count",
		"stock_quantity", "status", "category_id", "vendor_id", "delivery_zone", "created_at",
	},
	FilterableFields: []string{
		"category_id", "vendor_id", "status", "price_cents", "rating", "stock_quantity",
		"delivery_zone", "slug", "sku", "name",
	},
	PopulatableFields: []string{"category", "vendor"},
	EnableTextSearch:  true,
	TextSearchIndex:   "idx_products_search",
}

// Service exposes catalogue reads and admin product management.
type Service interface {
	List(ctx context.Context, input ListInput) (*query.Result[models.Product], error)
	Get(ctx context.Context, id uuid.UUID, includeInactive bool) (*models.Product, error)
	Create(ctx context.Context, input CreateProductInput) (*models.Product, error)
	Update(ctx context.Context, id uuid.UUID, input UpdateProductInput) (*models.Product, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type service struct {
	repo     *Repository
	dbClient *db.Client
	engine   *query.Engine[models.Product]
	logg     *logger.Logger
}

// NewService constructs a product service instance.
func NewService(repo *Repository, dbClient *db.Client, cfg config.QueryConfig, observer query.Observer, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("product repository required")
	}
	if dbClient == nil {
		return nil, fmt.Errorf("db client required")
	}
	if logg == nil {
		logg = logger.Nop()
	}
	opts := []query.Option{query.WithEntity("products")}
	if observer != nil {
		opts = append(opts, query.WithObserver(observer))
	}
	return &service{
		repo:     repo,
		dbClient: dbClient,
		engine:   query.New[models.Product](ListConfig.WithLimits(cfg.DefaultLimit, cfg.MaxLimit, cfg.Timeout), opts...),
		logg:     logg,
	}, nil
}

func (s *service) List(ctx context.Context, input ListInput) (*query.Result[models.Product], error) {
	b := s.engine.Query(s.dbClient.DB(), input.Params).Paginate()
	if !input.IncludeInactive {
		b = b.Where(query.Eq("status", enums.ProductStatusActive.String()))
	}
	return b.Execute(ctx)
}

func (s *service) Get(ctx context.Context, id uuid.UUID, includeInactive bool) (*models.Product, error) {
	product, err := s.repo.FindDetail(ctx, id)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
	}
	if !includeInactive && product.Status != enums.ProductStatusActive {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
	}
	return product, nil
}

func (s *service) Create(ctx context.Context, input CreateProductInput) (*models.Product, error) {
	priceCents, err := parsePrice(input.Price)
	if err != nil {
		return nil, err
	}
	if input.StockQuantity < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "stock_quantity must not be negative")
	}
	status := input.Status
	if status == "" {
		status = enums.ProductStatusActive
	}
	if !status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid product status")
	}
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "name is required")
	}
	slug := sanitize.Slug(input.Slug)
	if slug == "" {
		slug = sanitize.Slug(name)
	}

	product := &models.Product{
		VendorID:      input.VendorID,
		CategoryID:    input.CategoryID,
		Name:          name,
		Slug:          slug,
		SKU:           strings.TrimSpace(input.SKU),
		Description:   sanitize.HTML(input.Description),
		PriceCents:    priceCents,
		StockQuantity: input.StockQuantity,
		Status:        status,
		DeliveryZone:  strings.TrimSpace(input.DeliveryZone),
	}
	if err := s.ensureCategory(ctx, product.CategoryID); err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, product); err != nil {
		return nil, translateWriteError(err)
	}

	s.logg.Info(s.logg.WithFields(ctx, map[string]any{"product_id": product.ID.String(), "sku": product.SKU}), "product.created")
	return product, nil
}

func (s *service) Update(ctx context.Context, id uuid.UUID, input UpdateProductInput) (*models.Product, error) {
	var updated *models.Product
	err := s.dbClient.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		product, err := repo.FindByID(ctx, id)
		if err != nil {
			if db.IsNotFound(err) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
		}
		if err := applyUpdate(product, input); err != nil {
			return err
		}
		if input.CategoryID != nil {
			if err := ensureCategory(ctx, tx, *input.CategoryID); err != nil {
				return err
			}
		}
		if err := repo.Save(ctx, product); err != nil {
			return translateWriteError(err)
		}
		if input.StockQuantity != nil {
			if err := repo.SetStock(ctx, id, *input.StockQuantity); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update stock")
			}
		}
		updated = product
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logg.Info(s.logg.WithField(ctx, "product_id", id.String()), "product.updated")
	return updated, nil
}

func (s *service) Delete(ctx context.Context, id uuid.UUID) error {
	deleted, err := s.repo.Delete(ctx, id)
	if err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "foreign key") {
			return pkgerrors.New(pkgerrors.CodeConflict, "product is referenced by existing orders")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete product")
	}
	if !deleted {
		return pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
	}
	s.logg.Info(s.logg.WithField(ctx, "product_id", id.String()), "product.deleted")
	return nil
}

func (s *service) ensureCategory(ctx context.Context, categoryID uuid.UUID) error {
	return ensureCategory(ctx, s.dbClient.DB(), categoryID)
}

func ensureCategory(ctx context.Context, conn *gorm.DB, categoryID uuid.UUID) error {
	if categoryID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "category_id is required")
	}
	var count int64
	if err := conn.WithContext(ctx).Model(&models.Category{}).Where("id = ?", categoryID).Count(&count).Error; err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load category")
	}
	if count == 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "category does not exist")
	}
	return nil
}

func applyUpdate(product *models.Product, input UpdateProductInput) error {
	if input.VendorID != nil {
		product.VendorID = input.VendorID
	}
	if input.CategoryID != nil {
		product.CategoryID = *input.CategoryID
	}
	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return pkgerrors.New(pkgerrors.CodeValidation, "name must not be empty")
		}
		product.Name = name
	}
	if input.Slug != nil {
		slug := sanitize.Slug(*input.Slug)
		if slug == "" {
			return pkgerrors.New(pkgerrors.CodeValidation, "slug must not be empty")
		}
		product.Slug = slug
	}
	if input.SKU != nil {
		product.SKU = strings.TrimSpace(*input.SKU)
	}
	if input.Description != nil {
		product.Description = sanitize.HTML(*input.Description)
	}
	if input.Price != nil {
		cents, err := parsePrice(*input.Price)
		if err != nil {
			return err
		}
		product.PriceCents = cents
	}
	if input.StockQuantity != nil {
		if *input.StockQuantity < 0 {
			return pkgerrors.New(pkgerrors.CodeValidation, "stock_quantity must not be negative")
		}
		product.StockQuantity = *input.StockQuantity
	}
	if input.Status != nil {
		if !input.Status.IsValid() {
			return pkgerrors.New(pkgerrors.CodeValidation, "invalid product status")
		}
		product.Status = *input.Status
	}
	if input.DeliveryZone != nil {
		product.DeliveryZone = strings.TrimSpace(*input.DeliveryZone)
	}
	return nil
}

func parsePrice(raw string) (int64, error) {
	cents, err := money.ParseCents(strings.TrimSpace(raw))
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "price: "+err.Error())
	}
	return cents, nil
}

func translateWriteError(err error) error {
	if db.IsUniqueViolation(err, "") {
		return pkgerrors.New(pkgerrors.CodeConflict, "a product with this slug or sku already exists")
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "persist product")
}
