package cart

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mdsalahuddin2001/storefront-backend/internal/products"
	"github.com/mdsalahuddin2001/storefront-backend/pkg/config"
	"github.com/mdsalahuddin2001/storefront-backend/pkg/db"
	"github.com/mdsalahuddin2001/storefront-backend/pkg/db/models"
	"github.com/mdsalahuddin2001/storefront-backend/pkg/enums"
	pkgerrors "github.com/mdsalahuddin2001/storefront-backend/pkg/errors"
	"github.com/mdsalahuddin2001/storefront-backend/pkg/logger"
	"github.com/mdsalahuddin2001/storefront-backend/pkg/query"
)

// ListConfig is the admin cart listing surface.
var ListConfig = query.Config{
	SortableFields:    []string{"created_at", "updated_at", "subtotal_cents"},
	FilterableFields:  []string{"status", "user_id", "session_id", "subtotal_cents", "created_at"},
	PopulatableFields: []string{"items"},
}

// Service exposes cart operations for both guests and signed-in users.
type Service interface {
	GetCart(ctx context.Context, id Identifier) (*models.Cart, error)
	AddItem(ctx context.Context, id Identifier, productID uuid.UUID, quantity int) (*models.Cart, error)
	UpdateItem(ctx context.Context, id Identifier, productID uuid.UUID, quantity int) (*models.Cart, error)
	RemoveItem(ctx context.Context, id Identifier, productID uuid.UUID) (*models.Cart, error)
	ClearCart(ctx context.Context, id Identifier) (*models.Cart, error)
	VerifyCart(ctx context.Context, id Identifier) (*Verification, error)
	MergeGuestCart(ctx context.Context, sessionID string, userID uuid.UUID) (*models.Cart, error)
	List(ctx context.Context, params query.Params) (*query.Result[models.Cart], error)
}

// Verification is a read-only checkout preview priced at live product prices.
type Verification struct {
	CartID                uuid.UUID      `json:"cart_id"`
	Lines                 []VerifiedLine `json:"lines"`
	ItemCount             int            `json:"item_count"`
	SubtotalCents         int64          `json:"subtotal_cents"`
	SnapshotSubtotalCents int64          `json:"snapshot_subtotal_cents"`
	Valid                 bool           `json:"valid"`
	Violations            []Violation    `json:"violations"`
}

type VerifiedLine struct {
	ProductID          uuid.UUID `json:"product_id"`
	Name               string    `json:"name"`
	Quantity           int       `json:"quantity"`
	PriceCents         int64     `json:"price_cents"`
	SnapshotPriceCents int64     `json:"snapshot_price_cents"`
	LineTotalCents     int64     `json:"line_total_cents"`
	AvailableQty       int       `json:"available_qty"`
}

type service struct {
	repo     *Repository
	products *products.Repository
	dbClient *db.Client
	engine   *query.Engine[models.Cart]
	logg     *logger.Logger
	now      func() time.Time
}

func NewService(repo *Repository, productRepo *products.Repository, dbClient *db.Client, cfg config.QueryConfig, observer query.Observer, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	if productRepo == nil {
		return nil, fmt.Errorf("product repository required")
	}
	if dbClient == nil {
		return nil, fmt.Errorf("db client required")
	}
	if logg == nil {
		logg = logger.Nop()
	}
	opts := []query.Option{query.WithEntity("carts")}
	if observer != nil {
		opts = append(opts, query.WithObserver(observer))
	}
	return &service{
		repo:     repo,
		products: productRepo,
		dbClient: dbClient,
		engine:   query.New[models.Cart](ListConfig.WithLimits(cfg.DefaultLimit, cfg.MaxLimit, cfg.Timeout), opts...),
		logg:     logg,
		now:      time.Now,
	}, nil
}

func (s *service) GetCart(ctx context.Context, id Identifier) (*models.Cart, error) {
	cart, err := s.ensureCart(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.load(ctx, cart.ID)
}

func (s *service) AddItem(ctx context.Context, id Identifier, productID uuid.UUID, quantity int) (*models.Cart, error) {
	if quantity < 1 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be at least 1")
	}
	if _, err := s.ensureCart(ctx, id); err != nil {
		return nil, err
	}

	var cartID uuid.UUID
	err := s.dbClient.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		cart, err := repo.FindActive(ctx, id, true)
		if err != nil {
			return lookupError(err)
		}
		product, err := s.availableProduct(ctx, tx, productID)
		if err != nil {
			return err
		}

		idx := lineIndex(cart.Items, productID)
		requested := quantity
		if idx >= 0 {
			requested += cart.Items[idx].Quantity
		}
		if err := checkStock(product, requested); err != nil {
			return err
		}
		if idx >= 0 {
			cart.Items[idx].Quantity = requested
			cart.Items[idx].PriceCents = product.PriceCents
		} else {
			cart.Items = append(cart.Items, models.CartItem{ProductID: productID, Quantity: quantity, PriceCents: product.PriceCents})
		}
		cartID = cart.ID
		return s.persist(ctx, repo, cart)
	})
	if err != nil {
		return nil, err
	}

	s.logg.Info(s.logg.WithFields(ctx, map[string]any{"cart_id": cartID.String(), "product_id": productID.String(), "quantity": quantity}), "cart.item_added")
	return s.load(ctx, cartID)
}

func (s *service) UpdateItem(ctx context.Context, id Identifier, productID uuid.UUID, quantity int) (*models.Cart, error) {
	if quantity < 1 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be at least 1")
	}
	return s.mutate(ctx, id, "cart.item_updated", func(tx *gorm.DB, cart *models.Cart) error {
		idx := lineIndex(cart.Items, productID)
		if idx < 0 {
			return pkgerrors.New(pkgerrors.CodeNotFound, "item not in cart")
		}
		product, err := s.availableProduct(ctx, tx, productID)
		if err != nil {
			return err
		}
		if err := checkStock(product, quantity); err != nil {
			return err
		}
		cart.Items[idx].Quantity = quantity
		cart.Items[idx].PriceCents = product.PriceCents
		return nil
	})
}

func (s *service) RemoveItem(ctx context.Context, id Identifier, productID uuid.UUID) (*models.Cart, error) {
	return s.mutate(ctx, id, "cart.item_removed", func(_ *gorm.DB, cart *models.Cart) error {
		idx := lineIndex(cart.Items, productID)
		if idx < 0 {
			return pkgerrors.New(pkgerrors.CodeNotFound, "item not in cart")
		}
		cart.Items = append(cart.Items[:idx], cart.Items[idx+1:]...)
		return nil
	})
}

func (s *service) ClearCart(ctx context.Context, id Identifier) (*models.Cart, error) {
	return s.mutate(ctx, id, "cart.cleared", func(_ *gorm.DB, cart *models.Cart) error {
		cart.Items = nil
		return nil
	})
}

// mutate applies fn to the caller's existing active cart inside a transaction.
func (s *service) mutate(ctx context.Context, id Identifier, event string, fn func(tx *gorm.DB, cart *models.Cart) error) (*models.Cart, error) {
	if err := id.Validate(); err != nil {
		return nil, err
	}
	var cartID uuid.UUID
	err := s.dbClient.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		cart, err := repo.FindActive(ctx, id, true)
		if err != nil {
			return lookupError(err)
		}
		if err := fn(tx, cart); err != nil {
			return err
		}
		cartID = cart.ID
		return s.persist(ctx, repo, cart)
	})
	if err != nil {
		return nil, err
	}
	s.logg.Info(s.logg.WithField(ctx, "cart_id", cartID.String()), event)
	return s.load(ctx, cartID)
}

func (s *service) VerifyCart(ctx context.Context, id Identifier) (*Verification, error) {
	if err := id.Validate(); err != nil {
		return nil, err
	}
	cart, err := s.repo.FindActive(ctx, id, false)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart is empty")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart")
	}
	if len(cart.Items) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart is empty")
	}

	found, err := s.products.FindByIDs(ctx, ProductIDs(cart.Items))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load products")
	}

	out := &Verification{CartID: cart.ID, Lines: make([]VerifiedLine, 0, len(cart.Items))}
	for _, item := range cart.Items {
		line := VerifiedLine{ProductID: item.ProductID, Quantity: item.Quantity, SnapshotPriceCents: item.PriceCents, PriceCents: item.PriceCents}
		if product, ok := found[item.ProductID]; ok {
			line.Name = product.Name
			line.PriceCents = product.PriceCents
			line.AvailableQty = product.StockQuantity
		}
		line.LineTotalCents = int64(line.Quantity) * line.PriceCents
		out.Lines = append(out.Lines, line)
		out.ItemCount += item.Quantity
		out.SubtotalCents += line.LineTotalCents
		out.SnapshotSubtotalCents += item.LineTotalCents()
	}
	out.Violations = Violations(cart.Items, found)
	out.Valid = len(out.Violations) == 0
	return out, nil
}

// MergeGuestCart folds a guest session's cart into the user's cart after
// sign-in. Stock is checked again at checkout, not here.
func (s *service) MergeGuestCart(ctx context.Context, sessionID string, userID uuid.UUID) (*models.Cart, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "sign in to merge a guest cart")
	}
	guestID := ForSession(sessionID)
	userIdent := ForUser(userID)

	var cartID uuid.UUID
	var merged, reassigned bool
	err := s.dbClient.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		now := s.now().UTC()

		var guest *models.Cart
		if guestID.SessionID != "" {
			found, err := repo.FindActive(ctx, guestID, true)
			if err != nil && !db.IsNotFound(err) {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load guest cart")
			}
			guest = found
		}
		user, err := repo.FindActive(ctx, userIdent, true)
		if err != nil && !db.IsNotFound(err) {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load user cart")
		}

		switch {
		case guest == nil || len(guest.Items) == 0:
			if user == nil {
				if user, err = s.create(ctx, repo, userIdent); err != nil {
					return err
				}
			}
			cartID = user.ID
			return nil

		case user == nil:
			ok, err := repo.Reassign(ctx, guest.ID, userID, now)
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reassign guest cart")
			}
			if !ok {
				return pkgerrors.New(pkgerrors.CodeConflict, "guest cart changed during merge")
			}
			cartID, reassigned = guest.ID, true
			return nil
		}

		user.Items = MergeItems(user.Items, guest.Items)
		if err := s.persist(ctx, repo, user); err != nil {
			return err
		}
		ok, err := repo.UpdateStatus(ctx, guest.ID, enums.CartStatusActive, enums.CartStatusConverted, now)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "convert guest cart")
		}
		if !ok {
			return pkgerrors.New(pkgerrors.CodeConflict, "guest cart changed during merge")
		}
		cartID, merged = user.ID, true
		return nil
	})
	if err != nil {
		return nil, err
	}

	ctx = s.logg.WithFields(ctx, map[string]any{"cart_id": cartID.String(), "merged": merged, "reassigned": reassigned})
	s.logg.Info(s.logg.WithSessionID(s.logg.WithUserID(ctx, userID.String()), sessionID), "cart.merged")
	return s.load(ctx, cartID)
}

func (s *service) List(ctx context.Context, params query.Params) (*query.Result[models.Cart], error) {
	return s.engine.Query(s.dbClient.DB(), params).Paginate().Execute(ctx)
}

// MergeItems sums quantities for products present in both carts and appends
// guest-only lines in their original order. Existing price snapshots win.
func MergeItems(userItems, guestItems []models.CartItem) []models.CartItem {
	out := make([]models.CartItem, 0, len(userItems)+len(guestItems))
	index := make(map[uuid.UUID]int, len(userItems))
	for _, item := range userItems {
		index[item.ProductID] = len(out)
		out = append(out, item)
	}
	for _, item := range guestItems {
		if i, ok := index[item.ProductID]; ok {
			out[i].Quantity += item.Quantity
			continue
		}
		index[item.ProductID] = len(out)
		out = append(out, models.CartItem{ProductID: item.ProductID, Quantity: item.Quantity, PriceCents: item.PriceCents})
	}
	return out
}

// ProductIDs lists the distinct products referenced by items.
func ProductIDs(items []models.CartItem) []uuid.UUID {
	seen := make(map[uuid.UUID]struct{}, len(items))
	ids := make([]uuid.UUID, 0, len(items))
	for _, item := range items {
		if _, ok := seen[item.ProductID]; ok {
			continue
		}
		seen[item.ProductID] = struct{}{}
		ids = append(ids, item.ProductID)
	}
	return ids
}

// ensureCart returns the active cart, creating one on first use. A concurrent
// creator losing the unique index race falls back to reading the winner.
func (s *service) ensureCart(ctx context.Context, id Identifier) (*models.Cart, error) {
	if err := id.Validate(); err != nil {
		return nil, err
	}
	cart, err := s.repo.FindActive(ctx, id, false)
	if err == nil {
		return cart, nil
	}
	if !db.IsNotFound(err) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart")
	}
	cart, err = s.create(ctx, s.repo, id)
	if err == nil {
		return cart, nil
	}
	if pkgerrors.IsCode(err, pkgerrors.CodeConflict) {
		if cart, err := s.repo.FindActive(ctx, id, false); err == nil {
			return cart, nil
		}
	}
	return nil, err
}

func (s *service) create(ctx context.Context, repo *Repository, id Identifier) (*models.Cart, error) {
	userID, sessionID := id.Owner()
	cart := &models.Cart{UserID: userID, SessionID: sessionID, Status: enums.CartStatusActive}
	if err := repo.Create(ctx, cart); err != nil {
		if db.IsUniqueViolation(err, "") {
			return nil, pkgerrors.Wrap(pkgerrors.CodeConflict, err, "cart already exists")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create cart")
	}
	s.logg.Info(s.logg.WithField(ctx, "cart_id", cart.ID.String()), "cart.created")
	return cart, nil
}

func (s *service) persist(ctx context.Context, repo *Repository, cart *models.Cart) error {
	cart.Recalculate()
	if err := repo.ReplaceItems(ctx, cart.ID, cart.Items); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save cart items")
	}
	if err := repo.Save(ctx, cart); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save cart")
	}
	return nil
}

func (s *service) load(ctx context.Context, id uuid.UUID) (*models.Cart, error) {
	cart, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, lookupError(err)
	}
	return cart, nil
}

func (s *service) availableProduct(ctx context.Context, tx *gorm.DB, productID uuid.UUID) (*models.Product, error) {
	product, err := s.products.WithTx(tx).FindByID(ctx, productID)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
	}
	if product.Status != enums.ProductStatusActive {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product is not available")
	}
	return product, nil
}

func checkStock(product *models.Product, requested int) error {
	if requested <= product.StockQuantity {
		return nil
	}
	return pkgerrors.Newf(pkgerrors.CodeConflict, "%s: only %d available", product.Name, product.StockQuantity).
		WithDetails(map[string]any{"violations": []Violation{{
			ProductID:    product.ID,
			ProductName:  product.Name,
			RequestedQty: requested,
			AvailableQty: product.StockQuantity,
			Reason:       ReasonInsufficientStock,
		}}})
}

func lineIndex(items []models.CartItem, productID uuid.UUID) int {
	for i, item := range items {
		if item.ProductID == productID {
			return i
		}
	}
	return -1
}

func lookupError(err error) error {
	if db.IsNotFound(err) {
		return pkgerrors.New(pkgerrors.CodeNotFound, "cart not found")
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart")
}
