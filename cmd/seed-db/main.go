// Command seed-db populates a development database with a product catalog and
// a set of demo coupons. Safe to re-run: every insert is an upsert.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/heliokart/heliokart/internal/storage/postgres"
)

const (
	upsertProductSQL = `INSERT INTO products (id, name, sku, price, image, active)
		VALUES ($1, $2, $3, $4, $5, TRUE)
		ON CONFLICT (sku) DO UPDATE SET name = EXCLUDED.name,
			price = EXCLUDED.price, image = EXCLUDED.image, active = TRUE`

	upsertCouponSQL = `INSERT INTO coupons (id, code, description, discount_type,
		discount_value, min_purchase_amount, max_discount_amount, start_date,
		end_date, usage_limit, active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, TRUE)
		ON CONFLICT (code) DO UPDATE SET description = EXCLUDED.description,
			discount_type = EXCLUDED.discount_type,
			discount_value = EXCLUDED.discount_value,
			min_purchase_amount = EXCLUDED.min_purchase_amount,
			max_discount_amount = EXCLUDED.max_discount_amount,
			start_date = EXCLUDED.start_date, end_date = EXCLUDED.end_date,
			usage_limit = EXCLUDED.usage_limit, active = TRUE`
)

type productJSON struct {
	Name  string          `json:"name"`
	SKU   string          `json:"sku"`
	Price decimal.Decimal `json:"price"`
	Image string          `json:"image"`
}

type couponSeed struct {
	code        string
	description string
	kind        string
	value       decimal.Decimal
	minPurchase decimal.Decimal
	maxDiscount *decimal.Decimal
	usageLimit  *int
}

func main() {
	var (
		databaseURL  string
		productsFile string
	)
	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.StringVar(&productsFile, "products-file", "db/seed/products.json", "path to products JSON file")
	flag.Parse()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, databaseURL, productsFile); err != nil {
		slog.Error("seed failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("seed completed successfully")
}

func run(ctx context.Context, databaseURL, productsFile string) error {
	slog.Info("connecting to database")

	pool, err := postgres.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	slog.Info("running migrations")

	if err := postgres.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return seedProducts(ctx, pool, productsFile)
	})
	g.Go(func() error {
		return seedCoupons(ctx, pool)
	})
	return g.Wait()
}

func seedProducts(ctx context.Context, pool *pgxpool.Pool, productsFile string) error {
	slog.Info("reading products file", slog.String("path", productsFile))

	data, err := os.ReadFile(productsFile)
	if err != nil {
		return errors.Wrap(err, "read products file")
	}

	var products []productJSON
	if err := json.Unmarshal(data, &products); err != nil {
		return errors.Wrap(err, "parse products JSON")
	}

	slog.Info("upserting products", slog.Int("count", len(products)))

	for _, p := range products {
		_, err := pool.Exec(ctx, upsertProductSQL,
			uuid.NewString(), p.Name, p.SKU, p.Price, p.Image)
		if err != nil {
			return errors.Wrapf(err, "upsert product %s", p.SKU)
		}
		slog.Info("upserted product", slog.String("sku", p.SKU), slog.String("name", p.Name))
	}
	return nil
}

func seedCoupons(ctx context.Context, pool *pgxpool.Pool) error {
	slog.Info("seeding demo coupons")

	cap5000 := decimal.NewFromInt(5000)
	limit100 := 100

	coupons := []couponSeed{
		{
			code:        "WELCOME10",
			description: "10% off your first order, up to 5000",
			kind:        "percentage",
			value:       decimal.NewFromInt(10),
			maxDiscount: &cap5000,
			usageLimit:  &limit100,
		},
		{
			code:        "FLAT5000",
			description: "5000 off orders above 25000",
			kind:        "fixed",
			value:       decimal.NewFromInt(5000),
			minPurchase: decimal.NewFromInt(25000),
		},
	}

	now := time.Now()
	start := now.AddDate(0, 0, -1)
	end := now.AddDate(1, 0, 0)

	for _, c := range coupons {
		_, err := pool.Exec(ctx, upsertCouponSQL,
			uuid.NewString(), c.code, c.description, c.kind, c.value,
			c.minPurchase, c.maxDiscount, start, end, c.usageLimit)
		if err != nil {
			return errors.Wrapf(err, "upsert coupon %s", c.code)
		}
		slog.Info("upserted coupon", slog.String("code", c.code), slog.String("description", c.description))
	}
	return nil
}
