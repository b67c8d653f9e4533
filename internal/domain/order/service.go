package order

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/heliokart/heliokart/internal/domain/cart"
	"github.com/heliokart/heliokart/internal/domain/coupon"
	"github.com/heliokart/heliokart/internal/domain/product"
)

// Finalization constants: flat shipping and 18% GST applied to the
// post-discount amount.
var (
	flatShipping = decimal.Zero
	taxRate      = decimal.NewFromFloat(0.18)
)

var (
	// ErrCartEmpty is returned when checkout is attempted with no cart items.
	ErrCartEmpty = errors.New("cart is empty")
	// ErrMissingAddress is returned when no shipping address was supplied.
	ErrMissingAddress = errors.New("shipping address is required")
	// ErrMissingMethod is returned when no payment method was supplied.
	ErrMissingMethod = errors.New("payment method is required")
)

// ProductUnavailableError aborts finalization when a cart line references a
// product that was deactivated or deleted after being added.
type ProductUnavailableError struct {
	Name string
}

func (e *ProductUnavailableError) Error() string {
	return fmt.Sprintf("product %s is no longer available", e.Name)
}

// StatusTransitionError reports an admin status update that the lifecycle
// does not permit.
type StatusTransitionError struct {
	From, To Status
}

func (e *StatusTransitionError) Error() string {
	return fmt.Sprintf("cannot transition order from %s to %s", e.From, e.To)
}

// Tx is the set of storage operations available inside the finalize
// transaction. Every read and write in CreateOrder goes through one Tx so
// that a concurrent checkout or coupon edit cannot interleave.
type Tx interface {
	// CartWithItems loads the user's cart, items, and attached coupon id.
	CartWithItems(ctx context.Context, userID string) (*cart.Cart, error)
	ProductsByIDs(ctx context.Context, ids []string) ([]product.Product, error)
	CouponByID(ctx context.Context, id string) (*coupon.Coupon, error)
	// ConsumeCouponUsage increments used_count by one, guarded by the usage
	// limit. It reports false, without mutating, when the limit is already
	// reached — the single point of truth for usage accounting.
	ConsumeCouponUsage(ctx context.Context, id string) (bool, error)
	// NextOrderSeq draws the next value from the order-number sequence.
	NextOrderSeq(ctx context.Context) (int64, error)
	// InsertOrder persists the order row and its item snapshot rows.
	InsertOrder(ctx context.Context, o *Order) error
	// ClearCart deletes all cart items and detaches the coupon; the cart row
	// itself persists, empty.
	ClearCart(ctx context.Context, cartID string) error
}

// Store runs a function inside a single atomic transaction. If fn returns an
// error the transaction is rolled back in full: no order row, no coupon
// increment, no cart mutation survives.
type Store interface {
	Finalize(ctx context.Context, fn func(tx Tx) error) error
}

// CreateRequest is the input to order finalization.
type CreateRequest struct {
	ShippingAddress *Address
	PaymentMethod   PaymentMethod
	Notes           string
}

// Service is the order finalizer: it converts a mutable cart into an
// immutable order inside one transaction, and owns admin status updates.
type Service struct {
	store  Store
	orders Repository
	now    func() time.Time
}

// NewService creates an order Service.
func NewService(store Store, orders Repository) *Service {
	return &Service{store: store, orders: orders, now: time.Now}
}

// Create finalizes the user's cart into an order. All reads-then-writes run
// under one transaction: product re-validation, coupon reload and usage
// consumption, order + item insert, and cart clearing.
func (s *Service) Create(ctx context.Context, userID string, req CreateRequest) (*Order, error) {
	if req.ShippingAddress == nil {
		return nil, ErrMissingAddress
	}
	if err := req.ShippingAddress.Validate(); err != nil {
		return nil, err
	}
	if req.PaymentMethod == "" {
		return nil, ErrMissingMethod
	}
	if !ValidMethod(req.PaymentMethod) {
		return nil, errors.Errorf("unsupported payment method %q", req.PaymentMethod)
	}

	var created *Order
	err := s.store.Finalize(ctx, func(tx Tx) error {
		o, err := s.finalize(ctx, tx, userID, req)
		if err != nil {
			return err
		}
		created = o
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

func (s *Service) finalize(ctx context.Context, tx Tx, userID string, req CreateRequest) (*Order, error) {
	c, err := tx.CartWithItems(ctx, userID)
	if err != nil {
		return nil, errors.Wrap(err, "load cart")
	}
	if c == nil || len(c.Items) == 0 {
		return nil, ErrCartEmpty
	}

	// Re-validate every line against the live product inside the transaction.
	ids := make([]string, len(c.Items))
	for i, item := range c.Items {
		ids[i] = item.ProductID
	}
	fetched, err := tx.ProductsByIDs(ctx, ids)
	if err != nil {
		return nil, errors.Wrap(err, "load products")
	}
	productByID := make(map[string]product.Product, len(fetched))
	for _, p := range fetched {
		productByID[p.ID] = p
	}

	subtotal := decimal.Zero
	items := make([]Item, len(c.Items))
	for i, line := range c.Items {
		p, ok := productByID[line.ProductID]
		if !ok || !p.Active {
			name := line.ProductName
			if name == "" {
				name = line.ProductID
			}
			return nil, &ProductUnavailableError{Name: name}
		}

		// Checkout price is the add-to-cart snapshot, never the live price.
		subtotal = subtotal.Add(line.Price.Mul(decimal.NewFromInt(int64(line.Quantity))))
		items[i] = Item{
			ID:        uuid.New().String(),
			ProductID: p.ID,
			Name:      p.Name,
			Quantity:  line.Quantity,
			Price:     line.Price,
			Image:     p.Image,
		}
	}
	subtotal = subtotal.Round(2)

	discount, couponID, err := s.applyCoupon(ctx, tx, c, subtotal)
	if err != nil {
		return nil, err
	}

	shipping := flatShipping
	tax := subtotal.Sub(discount).Mul(taxRate).Round(2)
	total := subtotal.Sub(discount).Add(shipping).Add(tax).Round(2)

	seq, err := tx.NextOrderSeq(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "next order number")
	}

	now := s.now()
	o := &Order{
		ID:              uuid.New().String(),
		OrderNumber:     fmt.Sprintf("HK-%s-%06d", now.Format("20060102"), seq),
		UserID:          userID,
		ShippingAddress: *req.ShippingAddress,
		PaymentMethod:   req.PaymentMethod,
		PaymentStatus:   PaymentPending,
		Subtotal:        subtotal,
		Discount:        discount,
		Shipping:        shipping,
		Tax:             tax,
		Total:           total,
		CouponID:        couponID,
		Status:          StatusPending,
		Notes:           req.Notes,
		Items:           items,
		CreatedAt:       now,
	}

	if err := tx.InsertOrder(ctx, o); err != nil {
		return nil, errors.Wrap(err, "insert order")
	}
	if err := tx.ClearCart(ctx, c.ID); err != nil {
		return nil, errors.Wrap(err, "clear cart")
	}

	return o, nil
}

// applyCoupon reloads the cart's coupon inside the transaction and consumes a
// usage slot. A coupon that became invalid between cart-attach and checkout
// degrades silently to zero discount rather than failing the order; so does a
// usage-limit race lost to a concurrent checkout.
func (s *Service) applyCoupon(ctx context.Context, tx Tx, c *cart.Cart, subtotal decimal.Decimal) (decimal.Decimal, *string, error) {
	if c.Coupon == nil {
		return decimal.Zero, nil, nil
	}

	cp, err := tx.CouponByID(ctx, c.Coupon.ID)
	if err != nil {
		if errors.Is(err, coupon.ErrNotFound) {
			return decimal.Zero, nil, nil
		}
		return decimal.Zero, nil, errors.Wrap(err, "reload coupon")
	}
	if !cp.IsValid(s.now()) {
		return decimal.Zero, nil, nil
	}

	discount := cp.Discount(subtotal, s.now())
	if discount.IsZero() {
		return decimal.Zero, nil, nil
	}

	consumed, err := tx.ConsumeCouponUsage(ctx, cp.ID)
	if err != nil {
		return decimal.Zero, nil, errors.Wrap(err, "consume coupon usage")
	}
	if !consumed {
		return decimal.Zero, nil, nil
	}

	return discount, &cp.ID, nil
}

// Get returns the order visible to the given user. Admin callers pass
// admin=true to bypass the ownership check.
func (s *Service) Get(ctx context.Context, id, userID string, admin bool) (*Order, error) {
	o, err := s.orders.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !admin && o.UserID != userID {
		return nil, ErrNotFound
	}
	return o, nil
}

// UpdateStatus applies an admin-driven lifecycle transition and optionally
// records a tracking number.
func (s *Service) UpdateStatus(ctx context.Context, id string, status Status, trackingNumber *string) (*Order, error) {
	o, err := s.orders.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if !CanTransition(o.Status, status) {
		return nil, &StatusTransitionError{From: o.Status, To: status}
	}

	if err := s.orders.UpdateStatus(ctx, id, status, trackingNumber); err != nil {
		return nil, errors.Wrap(err, "update status")
	}

	return s.orders.GetByID(ctx, id)
}
