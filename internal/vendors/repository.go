package vendors

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mdsalahuddin2001/storefront-backend/pkg/db/models"
	"github.com/mdsalahuddin2001/storefront-backend/pkg/enums"
)

// Repository persists vendor applications.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx scopes the repository to the provided transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	if tx == nil {
		return r
	}
	return &Repository{db: tx}
}

func (r *Repository) Create(ctx context.Context, vendor *models.Vendor) error {
	return r.db.WithContext(ctx).Omit("User").Create(vendor).Error
}

func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Vendor, error) {
	var vendor models.Vendor
	if err := r.db.WithContext(ctx).Preload("User").First(&vendor, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &vendor, nil
}

func (r *Repository) FindByUserID(ctx context.Context, userID uuid.UUID) (*models.Vendor, error) {
	var vendor models.Vendor
	if err := r.db.WithContext(ctx).First(&vendor, "user_id = ?", userID).Error; err != nil {
		return nil, err
	}
	return &vendor, nil
}

// UpdateStatus moves a vendor from one status to another and reports whether
// the row was still in from.
func (r *Repository) UpdateStatus(ctx context.Context, id uuid.UUID, from, to enums.VendorStatus) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Vendor{}).
		Where("id = ? AND status = ?", id, from).
		Update("status", to)
	return res.RowsAffected > 0, res.Error
}

// Save writes the shop profile columns.
func (r *Repository) Save(ctx context.Context, vendor *models.Vendor) error {
	return r.db.WithContext(ctx).
		Model(vendor).
		Select("shop_name", "description", "address", "updated_at").
		Updates(vendor).Error
}

// Delete clears product ownership before removing the row, so sqlite without
// foreign key enforcement ends in the same state as postgres.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	conn := r.db.WithContext(ctx)
	if err := conn.Model(&models.Product{}).
		Where("vendor_id = ?", id).
		UpdateColumn("vendor_id", nil).Error; err != nil {
		return err
	}
	return conn.Delete(&models.Vendor{}, "id = ?", id).Error
}
