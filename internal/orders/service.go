package orders

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mdsalahuddin2001/storefront-backend/internal/cart"
	"github.com/mdsalahuddin2001/storefront-backend/internal/products"
	"github.com/mdsalahuddin2001/storefront-backend/pkg/config"
	"github.com/mdsalahuddin2001/storefront-backend/pkg/db"
	"github.com/mdsalahuddin2001/storefront-backend/pkg/db/models"
	"github.com/mdsalahuddin2001/storefront-backend/pkg/enums"
	pkgerrors "github.com/mdsalahuddin2001/storefront-backend/pkg/errors"
	"github.com/mdsalahuddin2001/storefront-backend/pkg/logger"
	"github.com/mdsalahuddin2001/storefront-backend/pkg/query"
)

// ListConfig is the order listing surface shared by customers and admins.
var ListConfig = query.Config{
	SortableFields: []string{"created_at", "total_cents", "status"},
	FilterableFields: []string{
		"status", "payment_status", "payment_method", "delivery_zone", "customer_id",
		"total_cents", "created_at",
	},
	PopulatableFields: []string{"items", "customer"},
}

// CheckoutObserver receives checkout outcomes.
type CheckoutObserver interface {
	ObserveCheckout(elapsed time.Duration, err error)
	IncStockConflict()
}

type Service interface {
	PlaceOrder(ctx context.Context, id cart.Identifier, input PlaceOrderInput) (*models.Order, error)
	List(ctx context.Context, input ListInput) (*query.Result[models.Order], error)
	GetByID(ctx context.Context, id uuid.UUID, viewer Viewer) (*models.Order, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status enums.OrderStatus) (*models.Order, error)
	Cancel(ctx context.Context, id uuid.UUID, viewer Viewer) (*models.Order, error)
	UpdatePaymentStatus(ctx context.Context, id uuid.UUID, status enums.PaymentStatus, transactionID *string) (*models.Order, error)
}

type service struct {
	repo     *Repository
	carts    *cart.Repository
	products *products.Repository
	dbClient *db.Client
	cfg      config.OrdersConfig
	engine   *query.Engine[models.Order]
	observer CheckoutObserver
	logg     *logger.Logger
	now      func() time.Time
}

// Deps groups the collaborators of the order service.
type Deps struct {
	Repo        *Repository
	CartRepo    *cart.Repository
	ProductRepo *products.Repository
	DB          *db.Client
	Orders      config.OrdersConfig
	Query       config.QueryConfig
	Queries     query.Observer
	Checkout    CheckoutObserver
	Logger      *logger.Logger
}

func NewService(deps Deps) (Service, error) {
	if deps.Repo == nil {
		return nil, fmt.Errorf("order repository required")
	}
	if deps.CartRepo == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	if deps.ProductRepo == nil {
		return nil, fmt.Errorf("product repository required")
	}
	if deps.DB == nil {
		return nil, fmt.Errorf("db client required")
	}
	logg := deps.Logger
	if logg == nil {
		logg = logger.Nop()
	}
	opts := []query.Option{query.WithEntity("orders")}
	if deps.Queries != nil {
		opts = append(opts, query.WithObserver(deps.Queries))
	}
	return &service{
		repo:     deps.Repo,
		carts:    deps.CartRepo,
		products: deps.ProductRepo,
		dbClient: deps.DB,
		cfg:      deps.Orders,
		engine:   query.New[models.Order](ListConfig.WithLimits(deps.Query.DefaultLimit, deps.Query.MaxLimit, deps.Query.Timeout), opts...),
		observer: deps.Checkout,
		logg:     logg,
		now:      time.Now,
	}, nil
}

// PlaceOrder converts the caller's active cart into an order. Stock is taken
// with conditional decrements, so two checkouts racing for the last unit
// cannot both succeed; any failure rolls back every decrement.
func (s *service) PlaceOrder(ctx context.Context, id cart.Identifier, input PlaceOrderInput) (*models.Order, error) {
	start := s.now()
	order, err := s.placeOrder(ctx, id, input)
	if s.observer != nil {
		s.observer.ObserveCheckout(time.Since(start), err)
	}
	if err != nil {
		if pkgerrors.IsCode(err, pkgerrors.CodeConflict) {
			if s.observer != nil {
				s.observer.IncStockConflict()
			}
			s.logg.Warn(s.logg.WithField(ctx, "cart_owner", id.String()), "order.stock_conflict")
		}
		return nil, err
	}
	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"order_id":    order.ID.String(),
		"cart_id":     order.CartID.String(),
		"total_cents": order.TotalCents,
	}), "order.placed")
	return order, nil
}

func (s *service) placeOrder(ctx context.Context, id cart.Identifier, input PlaceOrderInput) (*models.Order, error) {
	if err := id.Validate(); err != nil {
		return nil, err
	}
	if err := input.normalize(); err != nil {
		return nil, err
	}
	if s.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.Timeout)
		defer cancel()
	}

	var orderID uuid.UUID
	err := s.dbClient.WithRetryTx(ctx, s.cfg.TxRetries, func(tx *gorm.DB) error {
		carts := s.carts.WithTx(tx)
		productRepo := s.products.WithTx(tx)

		active, err := carts.FindActive(ctx, id, true)
		if err != nil {
			if db.IsNotFound(err) {
				return pkgerrors.New(pkgerrors.CodeValidation, "cart is empty")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart")
		}
		if len(active.Items) == 0 {
			return pkgerrors.New(pkgerrors.CodeValidation, "cart is empty")
		}

		found, err := productRepo.FindByIDs(ctx, cart.ProductIDs(active.Items))
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load products")
		}
		if err := cart.ViolationError(cart.Violations(active.Items, found)); err != nil {
			return err
		}

		order := s.buildOrder(ctx, active, found, input)
		for _, item := range order.Items {
			ok, err := productRepo.DecrementStock(ctx, item.ProductID, item.Quantity)
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decrement stock")
			}
			if !ok {
				return s.stockConflict(ctx, productRepo, item)
			}
		}

		if err := s.repo.WithTx(tx).Create(ctx, order); err != nil {
			if db.IsUniqueViolation(err, "") {
				return pkgerrors.Wrap(pkgerrors.CodeConflict, err, "cart was already checked out")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create order")
		}

		ok, err := carts.UpdateStatus(ctx, active.ID, enums.CartStatusActive, enums.CartStatusConverted, s.now().UTC())
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "convert cart")
		}
		if !ok {
			return pkgerrors.New(pkgerrors.CodeConflict, "cart was already checked out")
		}
		orderID = order.ID
		return nil
	})
	if err != nil {
		if ctx.Err() != nil && !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "checkout timed out")
		}
		if pkgerrors.As(err) == nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "place order")
		}
		return nil, err
	}
	return s.load(ctx, orderID)
}

// buildOrder prices every line from the live product. Drift from the cart
// snapshot is logged and the live price wins.
func (s *service) buildOrder(ctx context.Context, active *models.Cart, found map[uuid.UUID]models.Product, input PlaceOrderInput) *models.Order {
	order := &models.Order{
		CustomerID:      active.UserID,
		SessionID:       active.SessionID,
		CartID:          active.ID,
		ShippingAddress: input.ShippingAddress,
		Status:          enums.OrderStatusPending,
		PaymentMethod:   input.PaymentMethod,
		PaymentStatus:   enums.PaymentStatusPending,
		DeliveryZone:    input.DeliveryZone,
		TransactionID:   input.TransactionID,
		Items:           make([]models.OrderItem, 0, len(active.Items)),
	}
	for i, item := range active.Items {
		product := found[item.ProductID]
		if product.PriceCents != item.PriceCents {
			s.logg.Warn(s.logg.WithFields(ctx, map[string]any{
				"product_id":     product.ID.String(),
				"snapshot_cents": item.PriceCents,
				"live_cents":     product.PriceCents,
			}), "order.price_drift")
		}
		line := models.OrderItem{
			ProductID:  item.ProductID,
			Position:   i,
			Name:       product.Name,
			PriceCents: product.PriceCents,
			Quantity:   item.Quantity,
			TotalCents: product.PriceCents * int64(item.Quantity),
		}
		order.SubtotalCents += line.TotalCents
		order.Items = append(order.Items, line)
	}
	order.ShippingCostCents = s.ShippingCost(input.DeliveryZone)
	order.TotalCents = order.SubtotalCents + order.ShippingCostCents
	return order
}

// ShippingCost returns the configured tariff for zone.
func (s *service) ShippingCost(zone enums.DeliveryZone) int64 {
	if zone == enums.DeliveryZoneInsideDhaka {
		return s.cfg.ShippingInsideDhakaCents
	}
	return s.cfg.ShippingOutsideDhakaCents
}

func (s *service) stockConflict(ctx context.Context, productRepo *products.Repository, item models.OrderItem) error {
	available := 0
	if current, err := productRepo.FindByID(ctx, item.ProductID); err == nil {
		available = current.StockQuantity
		if current.Status != enums.ProductStatusActive {
			available = 0
		}
	}
	return pkgerrors.Newf(pkgerrors.CodeConflict, "%s: only %d available", item.Name, available).
		WithDetails(map[string]any{"violations": []cart.Violation{{
			ProductID:    item.ProductID,
			ProductName:  item.Name,
			RequestedQty: item.Quantity,
			AvailableQty: available,
			Reason:       cart.ReasonInsufficientStock,
		}}})
}

func (s *service) List(ctx context.Context, input ListInput) (*query.Result[models.Order], error) {
	b := s.engine.Query(s.dbClient.DB(), input.Params).Paginate()
	if !input.Admin {
		if input.CustomerID == nil {
			return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "sign in to view orders")
		}
		b = b.Where(query.Eq("customer_id", *input.CustomerID))
	} else if input.CustomerID != nil {
		b = b.Where(query.Eq("customer_id", *input.CustomerID))
	}
	return b.Execute(ctx)
}

// GetByID hides orders the viewer does not own behind a not-found error.
func (s *service) GetByID(ctx context.Context, id uuid.UUID, viewer Viewer) (*models.Order, error) {
	order, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !viewer.owns(order) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	return order, nil
}

func (s *service) UpdateStatus(ctx context.Context, id uuid.UUID, status enums.OrderStatus) (*models.Order, error) {
	if !status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid order status")
	}
	if status == enums.OrderStatusCancelled {
		return s.Cancel(ctx, id, Viewer{Admin: true})
	}
	err := s.dbClient.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := repo.FindByID(ctx, id)
		if err != nil {
			return lookupError(err)
		}
		return s.transition(ctx, repo, order, status)
	})
	if err != nil {
		return nil, err
	}
	s.logg.Info(s.logg.WithFields(ctx, map[string]any{"order_id": id.String(), "status": status.String()}), "order.status_changed")
	return s.load(ctx, id)
}

// Cancel moves the order to cancelled and returns its items to stock in the
// same transaction. Customers may only cancel before processing starts.
func (s *service) Cancel(ctx context.Context, id uuid.UUID, viewer Viewer) (*models.Order, error) {
	err := s.dbClient.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := repo.FindByID(ctx, id)
		if err != nil {
			return lookupError(err)
		}
		if !viewer.owns(order) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		if !viewer.Admin && order.Status != enums.OrderStatusPending && order.Status != enums.OrderStatusConfirmed {
			return pkgerrors.Newf(pkgerrors.CodeStateConflict, "order can no longer be cancelled (status %s)", order.Status)
		}
		if err := s.transition(ctx, repo, order, enums.OrderStatusCancelled); err != nil {
			return err
		}
		productRepo := s.products.WithTx(tx)
		for _, item := range order.Items {
			if _, err := productRepo.IncrementStock(ctx, item.ProductID, item.Quantity); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "restock product")
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logg.Info(s.logg.WithField(ctx, "order_id", id.String()), "order.cancelled")
	return s.load(ctx, id)
}

func (s *service) transition(ctx context.Context, repo *Repository, order *models.Order, next enums.OrderStatus) error {
	if !order.Status.CanTransitionTo(next) {
		return pkgerrors.Newf(pkgerrors.CodeStateConflict, "cannot move order from %s to %s", order.Status, next).
			WithDetails(map[string]any{"from": order.Status, "to": next})
	}
	ok, err := repo.UpdateStatus(ctx, order.ID, order.Status, next, s.now().UTC())
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order status")
	}
	if !ok {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "order status changed concurrently")
	}
	order.Status = next
	return nil
}

func (s *service) UpdatePaymentStatus(ctx context.Context, id uuid.UUID, status enums.PaymentStatus, transactionID *string) (*models.Order, error) {
	if !status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid payment status")
	}
	err := s.dbClient.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := repo.FindByID(ctx, id)
		if err != nil {
			return lookupError(err)
		}
		if order.Status == enums.OrderStatusCancelled && status == enums.PaymentStatusPaid {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "cancelled orders cannot be marked paid")
		}
		order.PaymentStatus = status
		if transactionID != nil {
			order.TransactionID = transactionID
		}
		if err := repo.Save(ctx, order); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update payment status")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logg.Info(s.logg.WithFields(ctx, map[string]any{"order_id": id.String(), "payment_status": status.String()}), "order.payment_updated")
	return s.load(ctx, id)
}

func (s *service) load(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	order, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, lookupError(err)
	}
	return order, nil
}

func lookupError(err error) error {
	if db.IsNotFound(err) {
		return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
}
