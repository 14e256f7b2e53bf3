package vendors

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mdsalahuddin2001/storefront-backend/internal/users"
	"github.com/mdsalahuddin2001/storefront-backend/pkg/config"
	"github.com/mdsalahuddin2001/storefront-backend/pkg/db"
	"github.com/mdsalahuddin2001/storefront-backend/pkg/db/models"
	"github.com/mdsalahuddin2001/storefront-backend/pkg/enums"
	pkgerrors "github.com/mdsalahuddin2001/storefront-backend/pkg/errors"
	"github.com/mdsalahuddin2001/storefront-backend/pkg/logger"
	"github.com/mdsalahuddin2001/storefront-backend/pkg/query"
	"github.com/mdsalahuddin2001/storefront-backend/pkg/sanitize"
)

var ListConfig = query.Config{
	SearchFields:      []string{"shop_name", "address"},
	SortableFields:    []string{"shop_name", "status", "created_at"},
	FilterableFields:  []string{"status", "user_id", "created_at"},
	PopulatableFields: []string{"user"},
}

// ApplyInput is a user's request to open a shop.
type ApplyInput struct {
	ShopName    string `json:"shop_name" validate:"required,max=160"`
	Description string `json:"description" validate:"max=4000"`
	Address     string `json:"address" validate:"max=500"`
}

// UpdateInput carries optional shop profile changes made by an admin.
type UpdateInput struct {
	ShopName    *string `json:"shop_name" validate:"omitempty,max=160"`
	Description *string `json:"description" validate:"omitempty,max=4000"`
	Address     *string `json:"address" validate:"omitempty,max=500"`
}

type Service interface {
	Apply(ctx context.Context, userID uuid.UUID, input ApplyInput) (*models.Vendor, error)
	Get(ctx context.Context, id uuid.UUID) (*models.Vendor, error)
	List(ctx context.Context, params query.Params) (*query.Result[models.Vendor], error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status enums.VendorStatus) (*models.Vendor, error)
	Update(ctx context.Context, id uuid.UUID, input UpdateInput) (*models.Vendor, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type service struct {
	repo     *Repository
	users    *users.Repository
	dbClient *db.Client
	engine   *query.Engine[models.Vendor]
	logg     *logger.Logger
}

func NewService(repo *Repository, userRepo *users.Repository, dbClient *db.Client, cfg config.QueryConfig, observer query.Observer, logg *logger.Logger) (Service, error) {
	if repo == nil || userRepo == nil {
		return nil, fmt.Errorf("vendor and user repositories required")
	}
	if dbClient == nil {
		return nil, fmt.Errorf("db client required")
	}
	if logg == nil {
		logg = logger.Nop()
	}
	opts := []query.Option{query.WithEntity("vendors")}
	if observer != nil {
		opts = append(opts, query.WithObserver(observer))
	}
	return &service{
		repo:     repo,
		users:    userRepo,
		dbClient: dbClient,
		engine:   query.New[models.Vendor](ListConfig.WithLimits(cfg.DefaultLimit, cfg.MaxLimit, cfg.Timeout), opts...),
		logg:     logg,
	}, nil
}

// Apply files a pending application. A user holds at most one.
func (s *service) Apply(ctx context.Context, userID uuid.UUID, input ApplyInput) (*models.Vendor, error) {
	vendor := &models.Vendor{
		UserID:      userID,
		ShopName:    sanitize.Text(input.ShopName),
		Description: sanitize.HTML(input.Description),
		Address:     sanitize.Text(input.Address),
		Status:      enums.VendorStatusPending,
	}
	if vendor.ShopName == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "shop name is required")
	}
	if _, err := s.users.FindByID(ctx, userID); err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load user")
	}
	if err := s.repo.Create(ctx, vendor); err != nil {
		if db.IsUniqueViolation(err, "") {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "vendor application already exists")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create vendor")
	}
	s.logg.Info(s.logg.WithFields(ctx, map[string]any{"vendor_id": vendor.ID.String(), "user_id": userID.String()}), "vendor.applied")
	return vendor, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*models.Vendor, error) {
	vendor, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, lookupError(err)
	}
	return vendor, nil
}

func (s *service) List(ctx context.Context, params query.Params) (*query.Result[models.Vendor], error) {
	return s.engine.Query(s.dbClient.DB(), params).Paginate().Execute(ctx)
}

// UpdateStatus reviews a pending application. Approval promotes the owner to
// the vendor role in the same transaction.
func (s *service) UpdateStatus(ctx context.Context, id uuid.UUID, status enums.VendorStatus) (*models.Vendor, error) {
	if status != enums.VendorStatusApproved && status != enums.VendorStatusRejected {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "status must be approved or rejected")
	}
	err := s.dbClient.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		vendor, err := repo.FindByID(ctx, id)
		if err != nil {
			return lookupError(err)
		}
		if vendor.Status != enums.VendorStatusPending {
			return pkgerrors.Newf(pkgerrors.CodeStateConflict, "vendor already %s", vendor.Status)
		}
		ok, err := repo.UpdateStatus(ctx, id, enums.VendorStatusPending, status)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update vendor status")
		}
		if !ok {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "vendor status changed concurrently")
		}
		if status != enums.VendorStatusApproved || (vendor.User != nil && vendor.User.Role == enums.UserRoleAdmin) {
			return nil
		}
		if err := s.users.WithTx(tx).UpdateRole(ctx, vendor.UserID, enums.UserRoleVendor); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "promote vendor user")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logg.Info(s.logg.WithFields(ctx, map[string]any{"vendor_id": id.String(), "status": status.String()}), "vendor.reviewed")
	return s.Get(ctx, id)
}

func (s *service) Update(ctx context.Context, id uuid.UUID, input UpdateInput) (*models.Vendor, error) {
	if input.ShopName == nil && input.Description == nil && input.Address == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "please provide at least one field to update")
	}
	vendor, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, lookupError(err)
	}
	if input.ShopName != nil {
		if vendor.ShopName = sanitize.Text(*input.ShopName); vendor.ShopName == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "shop name is required")
		}
	}
	if input.Description != nil {
		vendor.Description = sanitize.HTML(*input.Description)
	}
	if input.Address != nil {
		vendor.Address = sanitize.Text(*input.Address)
	}
	if err := s.repo.Save(ctx, vendor); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update vendor")
	}
	return vendor, nil
}

// Delete removes the shop, detaches its products and demotes a vendor owner
// back to a regular user.
func (s *service) Delete(ctx context.Context, id uuid.UUID) error {
	err := s.dbClient.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		vendor, err := repo.FindByID(ctx, id)
		if err != nil {
			return lookupError(err)
		}
		if err := repo.Delete(ctx, id); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete vendor")
		}
		if vendor.User == nil || vendor.User.Role != enums.UserRoleVendor {
			return nil
		}
		if err := s.users.WithTx(tx).UpdateRole(ctx, vendor.UserID, enums.UserRoleUser); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "demote vendor user")
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.logg.Info(s.logg.WithField(ctx, "vendor_id", id.String()), "vendor.deleted")
	return nil
}

func lookupError(err error) error {
	if db.IsNotFound(err) {
		return pkgerrors.New(pkgerrors.CodeNotFound, "vendor not found")
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load vendor")
}
