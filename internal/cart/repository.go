package cart

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/mdsalahuddin2001/storefront-backend/pkg/db/models"
	"github.com/mdsalahuddin2001/storefront-backend/pkg/enums"
)

// Repository encapsulates cart persistence.
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

func preloadItems(db *gorm.DB) *gorm.DB {
	return db.Order("cart_items.position ASC")
}

// FindActive returns the owner's active cart with items in insertion order.
// lock takes a row lock on postgres for the rest of the transaction.
func (r *Repository) FindActive(ctx context.Context, id Identifier, lock bool) (*models.Cart, error) {
	var cart models.Cart
	q := id.scope(r.db.WithContext(ctx)).
		Preload("Items", preloadItems).
		Where("status = ?", enums.CartStatusActive)
	if lock && r.db.Dialector.Name() == "postgres" {
		q = q.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	if err := q.Order("created_at DESC").First(&cart).Error; err != nil {
		return nil, err
	}
	return &cart, nil
}

// FindByID loads a cart and its items with their products.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Cart, error) {
	var cart models.Cart
	if err := r.db.WithContext(ctx).
		Preload("Items", preloadItems).
		Preload("Items.Product").
		First(&cart, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &cart, nil
}

func (r *Repository) Create(ctx context.Context, cart *models.Cart) error {
	if cart.Status == "" {
		cart.Status = enums.CartStatusActive
	}
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(cart).Error
}

// Save persists the subtotal and ownership columns.
func (r *Repository) Save(ctx context.Context, cart *models.Cart) error {
	return r.db.WithContext(ctx).
		Model(cart).
		Select("user_id", "session_id", "subtotal_cents", "updated_at").
		Updates(cart).Error
}

// ReplaceItems rewrites the cart lines, renumbering positions from zero.
func (r *Repository) ReplaceItems(ctx context.Context, cartID uuid.UUID, items []models.CartItem) error {
	tx := r.db.WithContext(ctx)
	if err := tx.Where("cart_id = ?", cartID).Delete(&models.CartItem{}).Error; err != nil {
		return err
	}
	if len(items) == 0 {
		return nil
	}
	rows := make([]models.CartItem, len(items))
	for i, item := range items {
		rows[i] = models.CartItem{
			CartID:     cartID,
			ProductID:  item.ProductID,
			Position:   i,
			Quantity:   item.Quantity,
			PriceCents: item.PriceCents,
		}
	}
	return tx.Omit(clause.Associations).Create(&rows).Error
}

// UpdateStatus moves a cart from one status to another. The update only
// applies while the cart is still in from, so two writers cannot both
// convert the same cart.
func (r *Repository) UpdateStatus(ctx context.Context, id uuid.UUID, from, to enums.CartStatus, at time.Time) (bool, error) {
	values := map[string]any{"status": to, "updated_at": at}
	if to == enums.CartStatusConverted {
		values["converted_at"] = at
	}
	res := r.db.WithContext(ctx).
		Model(&models.Cart{}).
		Where("id = ? AND status = ?", id, from).
		UpdateColumns(values)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// Reassign hands a guest cart to a user.
func (r *Repository) Reassign(ctx context.Context, id uuid.UUID, userID uuid.UUID, at time.Time) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Cart{}).
		Where("id = ? AND status = ? AND user_id IS NULL", id, enums.CartStatusActive).
		UpdateColumns(map[string]any{"user_id": userID, "session_id": nil, "updated_at": at})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// MarkAbandoned moves up to limit active carts untouched since cutoff to
// abandoned and reports how many rows changed.
func (r *Repository) MarkAbandoned(ctx context.Context, cutoff, at time.Time, limit int) (int64, error) {
	conn := r.db.WithContext(ctx)
	stale := conn.Model(&models.Cart{}).
		Select("id").
		Where("status = ? AND updated_at < ?", enums.CartStatusActive, cutoff).
		Order("updated_at ASC").
		Limit(limit)
	res := conn.Model(&models.Cart{}).
		Where("id IN (?) AND status = ?", stale, enums.CartStatusActive).
		UpdateColumns(map[string]any{"status": enums.CartStatusAbandoned, "updated_at": at})
	return res.RowsAffected, res.Error
}

// PurgeAbandonedGuests deletes up to limit abandoned guest carts last touched
// before cutoff, items first. Run it inside a transaction.
func (r *Repository) PurgeAbandonedGuests(ctx context.Context, cutoff time.Time, limit int) (int64, error) {
	conn := r.db.WithContext(ctx)
	var ids []uuid.UUID
	if err := conn.Model(&models.Cart{}).
		Where("status = ? AND user_id IS NULL AND updated_at < ?", enums.CartStatusAbandoned, cutoff).
		Order("updated_at ASC").
		Limit(limit).
		Pluck("id", &ids).Error; err != nil {
		return 0, err
	}
	if len(ids) == 0 {
		return 0, nil
	}
	if err := conn.Where("cart_id IN ?", ids).Delete(&models.CartItem{}).Error; err != nil {
		return 0, err
	}
	res := conn.Where("id IN ?", ids).Delete(&models.Cart{})
	return res.RowsAffected, res.Error
}
