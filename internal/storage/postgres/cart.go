package postgres

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/heliokart/heliokart/internal/domain/cart"
)

const (
	getCartSQL = `SELECT id, user_id, coupon_id FROM carts WHERE user_id = $1`

	// ON CONFLICT DO NOTHING keeps concurrent first reads from racing on the
	// user_id unique constraint; the follow-up select always sees one row.
	createCartSQL = `INSERT INTO carts (id, user_id)
		VALUES ($1, $2)
		ON CONFLICT (user_id) DO NOTHING`

	getCartItemsSQL = `SELECT ci.id, ci.product_id, p.name, ci.quantity, ci.price
		FROM cart_items ci
		JOIN products p ON p.id = ci.product_id
		WHERE ci.cart_id = $1
		ORDER BY ci.created_at, ci.id`

	// Quantity merges on duplicate add; the price captured on first insert is
	// kept so checkout charges the add-time snapshot.
	upsertCartItemSQL = `INSERT INTO cart_items (id, cart_id, product_id, quantity, price)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (cart_id, product_id)
		DO UPDATE SET quantity = cart_items.quantity + EXCLUDED.quantity, updated_at = now()`

	updateCartItemSQL = `UPDATE cart_items SET quantity = $3, updated_at = now()
		WHERE cart_id = $1 AND id = $2`

	deleteCartItemSQL = `DELETE FROM cart_items WHERE cart_id = $1 AND id = $2`

	clearCartItemsSQL = `DELETE FROM cart_items WHERE cart_id = $1`

	setCartCouponSQL = `UPDATE carts SET coupon_id = $2, updated_at = now() WHERE id = $1`
)

var _ cart.Repository = (*CartRepository)(nil)

// CartRepository implements cart.Repository backed by PostgreSQL.
type CartRepository struct {
	pool *pgxpool.Pool
}

// NewCartRepository returns a CartRepository that uses the given pool.
func NewCartRepository(pool *pgxpool.Pool) *CartRepository {
	return &CartRepository{pool: pool}
}

// GetOrCreate returns the user's cart with items and attached coupon loaded,
// creating an empty cart on first access.
func (r *CartRepository) GetOrCreate(ctx context.Context, userID string) (*cart.Cart, error) {
	c, err := r.getCart(ctx, userID)
	if errors.Is(err, pgx.ErrNoRows) {
		if _, err := r.pool.Exec(ctx, createCartSQL, uuid.NewString(), userID); err != nil {
			return nil, fmt.Errorf("creating cart for user %q: %w", userID, err)
		}
		c, err = r.getCart(ctx, userID)
	}
	if err != nil {
		return nil, fmt.Errorf("loading cart for user %q: %w", userID, err)
	}
	return c, nil
}

func (r *CartRepository) getCart(ctx context.Context, userID string) (*cart.Cart, error) {
	var (
		c        cart.Cart
		couponID *string
	)
	err := r.pool.QueryRow(ctx, getCartSQL, userID).Scan(&c.ID, &c.UserID, &couponID)
	if err != nil {
		return nil, err
	}

	c.Items, err = collectCartItems(ctx, r.pool, c.ID)
	if err != nil {
		return nil, err
	}

	if couponID != nil {
		coup, err := findCouponByID(ctx, r.pool, *couponID)
		if err != nil {
			return nil, fmt.Errorf("loading attached coupon %q: %w", *couponID, err)
		}
		c.Coupon = coup
	}
	return &c, nil
}

// UpsertItem adds a product line or merges quantity into an existing one.
func (r *CartRepository) UpsertItem(ctx context.Context, cartID, productID string, quantity int, price decimal.Decimal) error {
	_, err := r.pool.Exec(ctx, upsertCartItemSQL, uuid.NewString(), cartID, productID, quantity, price)
	if err != nil {
		return fmt.Errorf("upserting cart item: %w", err)
	}
	return nil
}

// UpdateItemQuantity sets an item's quantity. Returns false when the item is
// not in this cart.
func (r *CartRepository) UpdateItemQuantity(ctx context.Context, cartID, itemID string, quantity int) (bool, error) {
	tag, err := r.pool.Exec(ctx, updateCartItemSQL, cartID, itemID, quantity)
	if err != nil {
		return false, fmt.Errorf("updating cart item %q: %w", itemID, err)
	}
	return tag.RowsAffected() > 0, nil
}

// DeleteItem removes an item. Returns false when the item is not in this cart.
func (r *CartRepository) DeleteItem(ctx context.Context, cartID, itemID string) (bool, error) {
	tag, err := r.pool.Exec(ctx, deleteCartItemSQL, cartID, itemID)
	if err != nil {
		return false, fmt.Errorf("deleting cart item %q: %w", itemID, err)
	}
	return tag.RowsAffected() > 0, nil
}

// ClearItems removes every item from the cart. The cart row itself stays.
func (r *CartRepository) ClearItems(ctx context.Context, cartID string) error {
	if _, err := r.pool.Exec(ctx, clearCartItemsSQL, cartID); err != nil {
		return fmt.Errorf("clearing cart %q: %w", cartID, err)
	}
	return nil
}

// SetCoupon attaches a coupon to the cart, or detaches with nil.
func (r *CartRepository) SetCoupon(ctx context.Context, cartID string, couponID *string) error {
	if _, err := r.pool.Exec(ctx, setCartCouponSQL, cartID, couponID); err != nil {
		return fmt.Errorf("setting cart coupon: %w", err)
	}
	return nil
}

func collectCartItems(ctx context.Context, q querier, cartID string) ([]cart.Item, error) {
	rows, err := q.Query(ctx, getCartItemsSQL, cartID)
	if err != nil {
		return nil, fmt.Errorf("loading cart items: %w", err)
	}

	items, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (cart.Item, error) {
		var it cart.Item
		err := row.Scan(&it.ID, &it.ProductID, &it.ProductName, &it.Quantity, &it.Price)
		return it, err
	})
	if err != nil {
		return nil, fmt.Errorf("loading cart items: %w", err)
	}
	return items, nil
}
