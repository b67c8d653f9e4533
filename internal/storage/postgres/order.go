package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/heliokart/heliokart/internal/domain/cart"
	"github.com/heliokart/heliokart/internal/domain/coupon"
	"github.com/heliokart/heliokart/internal/domain/order"
	"github.com/heliokart/heliokart/internal/domain/product"
)

const (
	// FOR UPDATE serializes concurrent checkouts of the same cart.
	getCartForUpdateSQL = `SELECT id, user_id, coupon_id FROM carts
		WHERE user_id = $1 FOR UPDATE`

	insertOrderSQL = `INSERT INTO orders (id, order_number, user_id, shipping_address,
		payment_method, payment_status, payment_id, subtotal, discount, shipping,
		tax, total, coupon_id, status, tracking_number, notes, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)`

	insertOrderItemSQL = `INSERT INTO order_items (id, order_id, product_id, name, quantity, price, image)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	nextOrderSeqSQL = `SELECT nextval('order_number_seq')`

	detachCartCouponSQL = `UPDATE carts SET coupon_id = NULL, updated_at = now() WHERE id = $1`

	getOrderSQL = `SELECT id, order_number, user_id, shipping_address, payment_method,
		payment_status, payment_id, subtotal, discount, shipping, tax, total,
		coupon_id, status, tracking_number, notes, created_at
		FROM orders WHERE id = $1`

	getOrderItemsSQL = `SELECT id, product_id, name, quantity, price, image
		FROM order_items WHERE order_id = $1 ORDER BY id`

	updateOrderStatusSQL = `UPDATE orders
		SET status = $2, tracking_number = COALESCE($3, tracking_number), updated_at = now()
		WHERE id = $1`

	// The payment_status guard makes payment confirmation idempotent: a
	// re-delivered confirmation matches zero rows and mutates nothing.
	markOrderPaidSQL = `UPDATE orders
		SET status = 'confirmed', payment_status = 'completed', payment_id = $2, updated_at = now()
		WHERE id = $1 AND payment_status <> 'completed'`
)

// Store runs order finalization inside a single database transaction.
type Store struct {
	pool *pgxpool.Pool
}

var _ order.Store = (*Store)(nil)

// NewStore returns a Store that uses the given pool.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Finalize executes fn against a transactional view of the storage. Any error
// from fn rolls the transaction back in full.
func (s *Store) Finalize(ctx context.Context, fn func(tx order.Tx) error) error {
	return pgx.BeginTxFunc(ctx, s.pool, pgx.TxOptions{}, func(tx pgx.Tx) error {
		return fn(&finalizeTx{tx: tx})
	})
}

// finalizeTx exposes the finalize operations over one pgx.Tx.
type finalizeTx struct {
	tx pgx.Tx
}

var _ order.Tx = (*finalizeTx)(nil)

func (t *finalizeTx) CartWithItems(ctx context.Context, userID string) (*cart.Cart, error) {
	var (
		c        cart.Cart
		couponID *string
	)
	err := t.tx.QueryRow(ctx, getCartForUpdateSQL, userID).Scan(&c.ID, &c.UserID, &couponID)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("locking cart for user %q: %w", userID, err)
	}

	c.Items, err = collectCartItems(ctx, t.tx, c.ID)
	if err != nil {
		return nil, err
	}
	if couponID != nil {
		c.Coupon = &coupon.Coupon{ID: *couponID}
	}
	return &c, nil
}

func (t *finalizeTx) ProductsByIDs(ctx context.Context, ids []string) ([]product.Product, error) {
	rows, err := t.tx.Query(ctx, getProductsByIDsSQL, ids)
	if err != nil {
		return nil, fmt.Errorf("getting products: %w", err)
	}
	products, err := pgx.CollectRows(rows, scanProduct)
	if err != nil {
		return nil, fmt.Errorf("getting products: %w", err)
	}
	return products, nil
}

func (t *finalizeTx) CouponByID(ctx context.Context, id string) (*coupon.Coupon, error) {
	return findCouponByID(ctx, t.tx, id)
}

func (t *finalizeTx) ConsumeCouponUsage(ctx context.Context, id string) (bool, error) {
	tag, err := t.tx.Exec(ctx, consumeCouponUsageSQL, id)
	if err != nil {
		return false, fmt.Errorf("consuming coupon usage %q: %w", id, err)
	}
	return tag.RowsAffected() > 0, nil
}

func (t *finalizeTx) NextOrderSeq(ctx context.Context) (int64, error) {
	var seq int64
	if err := t.tx.QueryRow(ctx, nextOrderSeqSQL).Scan(&seq); err != nil {
		return 0, fmt.Errorf("drawing order sequence: %w", err)
	}
	return seq, nil
}

func (t *finalizeTx) InsertOrder(ctx context.Context, o *order.Order) error {
	address, err := json.Marshal(o.ShippingAddress)
	if err != nil {
		return fmt.Errorf("encoding shipping address: %w", err)
	}

	_, err = t.tx.Exec(ctx, insertOrderSQL,
		o.ID, o.OrderNumber, o.UserID, address,
		string(o.PaymentMethod), string(o.PaymentStatus), o.PaymentID,
		o.Subtotal, o.Discount, o.Shipping, o.Tax, o.Total,
		o.CouponID, string(o.Status), o.TrackingNumber, o.Notes, o.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("inserting order %q: %w", o.OrderNumber, err)
	}

	for _, it := range o.Items {
		_, err := t.tx.Exec(ctx, insertOrderItemSQL,
			it.ID, o.ID, it.ProductID, it.Name, it.Quantity, it.Price, it.Image,
		)
		if err != nil {
			return fmt.Errorf("inserting order item for product %q: %w", it.ProductID, err)
		}
	}
	return nil
}

func (t *finalizeTx) ClearCart(ctx context.Context, cartID string) error {
	if _, err := t.tx.Exec(ctx, clearCartItemsSQL, cartID); err != nil {
		return fmt.Errorf("clearing cart %q: %w", cartID, err)
	}
	if _, err := t.tx.Exec(ctx, detachCartCouponSQL, cartID); err != nil {
		return fmt.Errorf("detaching cart coupon: %w", err)
	}
	return nil
}

// OrderRepository implements order.Repository and the payment store backed by
// PostgreSQL.
type OrderRepository struct {
	pool *pgxpool.Pool
}

var _ order.Repository = (*OrderRepository)(nil)

// NewOrderRepository returns an OrderRepository that uses the given pool.
func NewOrderRepository(pool *pgxpool.Pool) *OrderRepository {
	return &OrderRepository{pool: pool}
}

// GetByID fetches an order with its item snapshot. Returns order.ErrNotFound
// when the id does not exist.
func (r *OrderRepository) GetByID(ctx context.Context, id string) (*order.Order, error) {
	var (
		o             order.Order
		address       []byte
		method        string
		paymentStatus string
		status        string
	)
	err := r.pool.QueryRow(ctx, getOrderSQL, id).Scan(
		&o.ID, &o.OrderNumber, &o.UserID, &address, &method,
		&paymentStatus, &o.PaymentID, &o.Subtotal, &o.Discount, &o.Shipping,
		&o.Tax, &o.Total, &o.CouponID, &status, &o.TrackingNumber, &o.Notes,
		&o.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, order.ErrNotFound
		}
		return nil, fmt.Errorf("getting order %q: %w", id, err)
	}
	if err := json.Unmarshal(address, &o.ShippingAddress); err != nil {
		return nil, fmt.Errorf("decoding shipping address: %w", err)
	}
	o.PaymentMethod = order.PaymentMethod(method)
	o.PaymentStatus = order.PaymentStatus(paymentStatus)
	o.Status = order.Status(status)

	rows, err := r.pool.Query(ctx, getOrderItemsSQL, id)
	if err != nil {
		return nil, fmt.Errorf("getting order items: %w", err)
	}
	o.Items, err = pgx.CollectRows(rows, func(row pgx.CollectableRow) (order.Item, error) {
		var it order.Item
		err := row.Scan(&it.ID, &it.ProductID, &it.Name, &it.Quantity, &it.Price, &it.Image)
		return it, err
	})
	if err != nil {
		return nil, fmt.Errorf("getting order items: %w", err)
	}
	return &o, nil
}

// UpdateStatus persists a lifecycle transition. Tracking number is recorded
// when given, kept when nil.
func (r *OrderRepository) UpdateStatus(ctx context.Context, id string, status order.Status, trackingNumber *string) error {
	tag, err := r.pool.Exec(ctx, updateOrderStatusSQL, id, string(status), trackingNumber)
	if err != nil {
		return fmt.Errorf("updating order %q status: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return order.ErrNotFound
	}
	return nil
}

// MarkPaid transitions the order to (confirmed, completed) and records the
// gateway payment id. Reports false without mutating when the order was
// already completed.
func (r *OrderRepository) MarkPaid(ctx context.Context, orderID, paymentID string) (bool, error) {
	tag, err := r.pool.Exec(ctx, markOrderPaidSQL, orderID, paymentID)
	if err != nil {
		return false, fmt.Errorf("marking order %q paid: %w", orderID, err)
	}
	return tag.RowsAffected() > 0, nil
}
