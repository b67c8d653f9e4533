package cart

import (
	"context"
	"time"

	"github.com/go-faster/errors"

	"github.com/heliokart/heliokart/internal/domain/coupon"
	"github.com/heliokart/heliokart/internal/domain/product"
)

// ErrInvalidQuantity is returned when an add/update carries a quantity < 1.
var ErrInvalidQuantity = errors.New("quantity must be at least 1")

// View bundles a cart with its freshly computed totals. Every service call
// re-fetches the cart and recomputes totals before returning, so the caller
// always sees a snapshot reflecting its own last write.
type View struct {
	Cart   *Cart
	Totals Totals
}

// Service implements the cart operations exposed to the API layer.
type Service struct {
	carts    Repository
	products product.Repository
	coupons  coupon.Repository
	now      func() time.Time
}

// NewService creates a cart Service with the required dependencies.
func NewService(carts Repository, products product.Repository, coupons coupon.Repository) *Service {
	return &Service{
		carts:    carts,
		products: products,
		coupons:  coupons,
		now:      time.Now,
	}
}

// Get returns the user's cart, creating an empty one on first access.
func (s *Service) Get(ctx context.Context, userID string) (*View, error) {
	return s.view(ctx, userID)
}

// AddItem adds a product to the cart, snapshotting the current catalog price.
// Adding an already-present product merges quantities instead of duplicating
// the line (keeping its original snapshot price).
func (s *Service) AddItem(ctx context.Context, userID, productID string, quantity int) (*View, error) {
	if quantity < 1 {
		return nil, ErrInvalidQuantity
	}

	p, err := s.products.GetByID(ctx, productID)
	if err != nil {
		return nil, err
	}
	if !p.Active {
		return nil, product.ErrNotFound
	}

	c, err := s.carts.GetOrCreate(ctx, userID)
	if err != nil {
		return nil, errors.Wrap(err, "load cart")
	}

	if err := s.carts.UpsertItem(ctx, c.ID, p.ID, quantity, p.Price); err != nil {
		return nil, errors.Wrap(err, "add item")
	}

	return s.view(ctx, userID)
}

// UpdateItem sets the quantity of an existing cart line.
func (s *Service) UpdateItem(ctx context.Context, userID, itemID string, quantity int) (*View, error) {
	if quantity < 1 {
		return nil, ErrInvalidQuantity
	}

	c, err := s.carts.GetOrCreate(ctx, userID)
	if err != nil {
		return nil, errors.Wrap(err, "load cart")
	}

	updated, err := s.carts.UpdateItemQuantity(ctx, c.ID, itemID, quantity)
	if err != nil {
		return nil, errors.Wrap(err, "update item")
	}
	if !updated {
		return nil, ErrItemNotFound
	}

	return s.view(ctx, userID)
}

// RemoveItem deletes a cart line.
func (s *Service) RemoveItem(ctx context.Context, userID, itemID string) (*View, error) {
	c, err := s.carts.GetOrCreate(ctx, userID)
	if err != nil {
		return nil, errors.Wrap(err, "load cart")
	}

	deleted, err := s.carts.DeleteItem(ctx, c.ID, itemID)
	if err != nil {
		return nil, errors.Wrap(err, "remove item")
	}
	if !deleted {
		return nil, ErrItemNotFound
	}

	return s.view(ctx, userID)
}

// Clear removes all items and detaches any coupon. The cart row itself
// persists, empty.
func (s *Service) Clear(ctx context.Context, userID string) error {
	c, err := s.carts.GetOrCreate(ctx, userID)
	if err != nil {
		return errors.Wrap(err, "load cart")
	}

	if err := s.carts.ClearItems(ctx, c.ID); err != nil {
		return errors.Wrap(err, "clear items")
	}
	if err := s.carts.SetCoupon(ctx, c.ID, nil); err != nil {
		return errors.Wrap(err, "detach coupon")
	}
	return nil
}

// ApplyCoupon attaches a coupon to the cart after checking the code exists,
// the coupon is currently valid, the cart is non-empty, and the subtotal
// meets the minimum purchase requirement. Nothing is mutated on failure.
func (s *Service) ApplyCoupon(ctx context.Context, userID, code string) (*View, error) {
	cp, err := s.coupons.FindByCode(ctx, code)
	if err != nil {
		return nil, err
	}
	if !cp.IsValid(s.now()) {
		return nil, coupon.ErrInvalid
	}

	c, err := s.carts.GetOrCreate(ctx, userID)
	if err != nil {
		return nil, errors.Wrap(err, "load cart")
	}
	if len(c.Items) == 0 {
		return nil, ErrEmpty
	}

	subtotal := ComputeTotals(c, s.now()).Subtotal
	if subtotal.LessThan(cp.MinPurchaseAmount) {
		return nil, &MinPurchaseError{Required: cp.MinPurchaseAmount}
	}

	if err := s.carts.SetCoupon(ctx, c.ID, &cp.ID); err != nil {
		return nil, errors.Wrap(err, "attach coupon")
	}

	return s.view(ctx, userID)
}

// RemoveCoupon detaches the cart's coupon, if any.
func (s *Service) RemoveCoupon(ctx context.Context, userID string) (*View, error) {
	c, err := s.carts.GetOrCreate(ctx, userID)
	if err != nil {
		return nil, errors.Wrap(err, "load cart")
	}

	if err := s.carts.SetCoupon(ctx, c.ID, nil); err != nil {
		return nil, errors.Wrap(err, "detach coupon")
	}

	return s.view(ctx, userID)
}

func (s *Service) view(ctx context.Context, userID string) (*View, error) {
	c, err := s.carts.GetOrCreate(ctx, userID)
	if err != nil {
		return nil, errors.Wrap(err, "load cart")
	}
	return &View{Cart: c, Totals: ComputeTotals(c, s.now())}, nil
}
