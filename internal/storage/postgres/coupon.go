package postgres

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/heliokart/heliokart/internal/domain/coupon"
)

const (
	couponColumns = `id, code, description, discount_type, discount_value,
		min_purchase_amount, max_discount_amount, start_date, end_date,
		usage_limit, used_count, active, applicable_categories, applicable_products`

	getCouponByCodeSQL = `SELECT ` + couponColumns + `
		FROM coupons WHERE UPPER(code) = UPPER($1)`

	getCouponByIDSQL = `SELECT ` + couponColumns + `
		FROM coupons WHERE id = $1`

	insertCouponSQL = `INSERT INTO coupons (` + couponColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`

	updateCouponSQL = `UPDATE coupons SET code = $2, description = $3,
		discount_type = $4, discount_value = $5, min_purchase_amount = $6,
		max_discount_amount = $7, start_date = $8, end_date = $9,
		usage_limit = $10, active = $11, applicable_categories = $12,
		applicable_products = $13, updated_at = now()
		WHERE id = $1`

	// The guard keeps used_count at or below usage_limit under concurrent
	// checkouts; zero rows affected means the limit is exhausted.
	consumeCouponUsageSQL = `UPDATE coupons
		SET used_count = used_count + 1, updated_at = now()
		WHERE id = $1 AND (usage_limit IS NULL OR used_count < usage_limit)`
)

// uniqueViolation is the PostgreSQL error code for duplicate keys.
const uniqueViolation = "23505"

var _ coupon.Repository = (*CouponRepository)(nil)

// CouponRepository implements coupon.Repository backed by PostgreSQL.
type CouponRepository struct {
	pool *pgxpool.Pool
}

// NewCouponRepository returns a CouponRepository that uses the given pool.
func NewCouponRepository(pool *pgxpool.Pool) *CouponRepository {
	return &CouponRepository{pool: pool}
}

// FindByCode looks a coupon up by its code, case-insensitively. Returns
// coupon.ErrNotFound when no such code exists; validity is the caller's
// concern.
func (r *CouponRepository) FindByCode(ctx context.Context, code string) (*coupon.Coupon, error) {
	rows, err := r.pool.Query(ctx, getCouponByCodeSQL, code)
	if err != nil {
		return nil, fmt.Errorf("finding coupon by code %q: %w", code, err)
	}

	c, err := pgx.CollectExactlyOneRow(rows, scanCoupon)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, coupon.ErrNotFound
		}
		return nil, fmt.Errorf("finding coupon by code %q: %w", code, err)
	}
	return &c, nil
}

// FindByID looks a coupon up by id.
func (r *CouponRepository) FindByID(ctx context.Context, id string) (*coupon.Coupon, error) {
	return findCouponByID(ctx, r.pool, id)
}

// Create inserts a new coupon. Returns coupon.ErrCodeTaken when the code is
// already in use.
func (r *CouponRepository) Create(ctx context.Context, c *coupon.Coupon) error {
	_, err := r.pool.Exec(ctx, insertCouponSQL,
		c.ID, c.Code, c.Description, string(c.DiscountType), c.DiscountValue,
		c.MinPurchaseAmount, c.MaxDiscountAmount, c.StartDate, c.EndDate,
		c.UsageLimit, c.UsedCount, c.Active, c.ApplicableCategories, c.ApplicableProducts,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return coupon.ErrCodeTaken
		}
		return fmt.Errorf("creating coupon %q: %w", c.Code, err)
	}
	return nil
}

// Update overwrites a coupon's rule fields. Usage accounting is untouched;
// used_count only moves through the finalize transaction.
func (r *CouponRepository) Update(ctx context.Context, c *coupon.Coupon) error {
	tag, err := r.pool.Exec(ctx, updateCouponSQL,
		c.ID, c.Code, c.Description, string(c.DiscountType), c.DiscountValue,
		c.MinPurchaseAmount, c.MaxDiscountAmount, c.StartDate, c.EndDate,
		c.UsageLimit, c.Active, c.ApplicableCategories, c.ApplicableProducts,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return coupon.ErrCodeTaken
		}
		return fmt.Errorf("updating coupon %q: %w", c.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return coupon.ErrNotFound
	}
	return nil
}

// querier abstracts pgxpool.Pool and pgx.Tx so coupon reads can run both
// outside and inside the finalize transaction.
type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

func findCouponByID(ctx context.Context, q querier, id string) (*coupon.Coupon, error) {
	rows, err := q.Query(ctx, getCouponByIDSQL, id)
	if err != nil {
		return nil, fmt.Errorf("finding coupon %q: %w", id, err)
	}

	c, err := pgx.CollectExactlyOneRow(rows, scanCoupon)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, coupon.ErrNotFound
		}
		return nil, fmt.Errorf("finding coupon %q: %w", id, err)
	}
	return &c, nil
}

func scanCoupon(row pgx.CollectableRow) (coupon.Coupon, error) {
	var (
		c            coupon.Coupon
		discountType string
		maxDiscount  *decimal.Decimal
		usageLimit   *int32
		usedCount    int32
	)
	err := row.Scan(
		&c.ID, &c.Code, &c.Description, &discountType, &c.DiscountValue,
		&c.MinPurchaseAmount, &maxDiscount, &c.StartDate, &c.EndDate,
		&usageLimit, &usedCount, &c.Active, &c.ApplicableCategories, &c.ApplicableProducts,
	)
	c.DiscountType = coupon.DiscountType(discountType)
	c.MaxDiscountAmount = maxDiscount
	if usageLimit != nil {
		limit := int(*usageLimit)
		c.UsageLimit = &limit
	}
	c.UsedCount = int(usedCount)
	return c, err
}
