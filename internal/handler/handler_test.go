package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/heliokart/heliokart/internal/domain/cart"
	"github.com/heliokart/heliokart/internal/domain/coupon"
	"github.com/heliokart/heliokart/internal/domain/order"
	"github.com/heliokart/heliokart/internal/domain/payment"
	"github.com/heliokart/heliokart/internal/domain/product"
)

// In-memory fakes wiring a full Handler for route-level tests.

type memProducts struct {
	products map[string]*product.Product
}

func (m *memProducts) GetByID(_ context.Context, id string) (*product.Product, error) {
	p, ok := m.products[id]
	if !ok {
		return nil, product.ErrNotFound
	}
	return p, nil
}

func (m *memProducts) GetByIDs(_ context.Context, ids []string) ([]product.Product, error) {
	out := make([]product.Product, 0, len(ids))
	for _, id := range ids {
		if p, ok := m.products[id]; ok {
			out = append(out, *p)
		}
	}
	return out, nil
}

type memCoupons struct {
	byCode  map[string]*coupon.Coupon
	created []*coupon.Coupon
}

func (m *memCoupons) FindByCode(_ context.Context, code string) (*coupon.Coupon, error) {
	c, ok := m.byCode[code]
	if !ok {
		return nil, coupon.ErrNotFound
	}
	return c, nil
}

func (m *memCoupons) FindByID(_ context.Context, id string) (*coupon.Coupon, error) {
	for _, c := range m.byCode {
		if c.ID == id {
			return c, nil
		}
	}
	return nil, coupon.ErrNotFound
}

func (m *memCoupons) Create(_ context.Context, c *coupon.Coupon) error {
	if _, taken := m.byCode[c.Code]; taken {
		return coupon.ErrCodeTaken
	}
	m.byCode[c.Code] = c
	m.created = append(m.created, c)
	return nil
}

func (m *memCoupons) Update(_ context.Context, c *coupon.Coupon) error {
	m.byCode[c.Code] = c
	return nil
}

type memCarts struct {
	cart    *cart.Cart
	coupons *memCoupons
	nextID  int
}

func (m *memCarts) GetOrCreate(_ context.Context, userID string) (*cart.Cart, error) {
	if m.cart == nil {
		m.cart = &cart.Cart{ID: "cart-1", UserID: userID}
	}
	c := *m.cart
	c.Items = append([]cart.Item(nil), m.cart.Items...)
	return &c, nil
}

func (m *memCarts) UpsertItem(_ context.Context, _, productID string, quantity int, price decimal.Decimal) error {
	for i := range m.cart.Items {
		if m.cart.Items[i].ProductID == productID {
			m.cart.Items[i].Quantity += quantity
			return nil
		}
	}
	m.nextID++
	m.cart.Items = append(m.cart.Items, cart.Item{
		ID:        "item-" + strconv.Itoa(m.nextID),
		ProductID: productID,
		Quantity:  quantity,
		Price:     price,
	})
	return nil
}

func (m *memCarts) UpdateItemQuantity(_ context.Context, _, itemID string, quantity int) (bool, error) {
	for i := range m.cart.Items {
		if m.cart.Items[i].ID == itemID {
			m.cart.Items[i].Quantity = quantity
			return true, nil
		}
	}
	return false, nil
}

func (m *memCarts) DeleteItem(_ context.Context, _, itemID string) (bool, error) {
	for i := range m.cart.Items {
		if m.cart.Items[i].ID == itemID {
			m.cart.Items = append(m.cart.Items[:i], m.cart.Items[i+1:]...)
			return true, nil
		}
	}
	return false, nil
}

func (m *memCarts) ClearItems(_ context.Context, _ string) error {
	m.cart.Items = nil
	return nil
}

func (m *memCarts) SetCoupon(_ context.Context, _ string, couponID *string) error {
	if couponID == nil {
		m.cart.Coupon = nil
		return nil
	}
	for _, c := range m.coupons.byCode {
		if c.ID == *couponID {
			m.cart.Coupon = c
			return nil
		}
	}
	return nil
}

type memOrders struct {
	orders map[string]*order.Order
}

func (m *memOrders) GetByID(_ context.Context, id string) (*order.Order, error) {
	o, ok := m.orders[id]
	if !ok {
		return nil, order.ErrNotFound
	}
	cp := *o
	return &cp, nil
}

func (m *memOrders) UpdateStatus(_ context.Context, id string, status order.Status, trackingNumber *string) error {
	o, ok := m.orders[id]
	if !ok {
		return order.ErrNotFound
	}
	o.Status = status
	if trackingNumber != nil {
		o.TrackingNumber = trackingNumber
	}
	return nil
}

func (m *memOrders) MarkPaid(_ context.Context, orderID, paymentID string) (bool, error) {
	o, ok := m.orders[orderID]
	if !ok {
		return false, order.ErrNotFound
	}
	if o.PaymentStatus == order.PaymentCompleted {
		return false, nil
	}
	o.Status = order.StatusConfirmed
	o.PaymentStatus = order.PaymentCompleted
	o.PaymentID = &paymentID
	return true, nil
}

// unusedStore fails the test if checkout is reached; these tests cover the
// routes around finalization, not finalization itself.
type unusedStore struct {
	t *testing.T
}

func (s unusedStore) Finalize(context.Context, func(order.Tx) error) error {
	s.t.Fatal("Finalize should not be called")
	return nil
}

type fixture struct {
	handler http.Handler
	carts   *memCarts
	coupons *memCoupons
	orders  *memOrders
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	now := time.Now()
	coupons := &memCoupons{byCode: map[string]*coupon.Coupon{
		"SOLAR20": {
			ID:            "c-solar",
			Code:          "SOLAR20",
			DiscountType:  coupon.DiscountPercentage,
			DiscountValue: decimal.NewFromInt(20),
			StartDate:     now.AddDate(0, 0, -1),
			EndDate:       now.AddDate(0, 1, 0),
			Active:        true,
		},
	}}
	products := &memProducts{products: map[string]*product.Product{
		"p-panel": {ID: "p-panel", Name: "Solar Panel 450W", Price: decimal.NewFromInt(12000), Active: true},
	}}
	carts := &memCarts{coupons: coupons}
	orders := &memOrders{orders: map[string]*order.Order{
		"o-1": {
			ID:            "o-1",
			OrderNumber:   "HK-20250615-000001",
			UserID:        "user-1",
			Status:        order.StatusPending,
			PaymentMethod: order.MethodCOD,
			PaymentStatus: order.PaymentPending,
			Subtotal:      decimal.NewFromInt(12000),
			Total:         decimal.NewFromInt(14160),
		},
	}}

	h := NewHandler(
		cart.NewService(carts, products, coupons),
		coupons,
		order.NewService(unusedStore{t: t}, orders),
		payment.NewReconciler(orders, payment.Gateways{}),
	)
	return &fixture{handler: h.Routes(), carts: carts, coupons: coupons, orders: orders}
}

func (f *fixture) do(method, path string, body any, headers map[string]string) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	f.handler.ServeHTTP(w, req)
	return w
}

func asUser(user string) map[string]string {
	return map[string]string{"X-User-ID": user}
}

func asAdmin(user string) map[string]string {
	return map[string]string{"X-User-ID": user, "X-Admin": "true"}
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	return body
}

func TestRoutes_RequireUser(t *testing.T) {
	f := newFixture(t)

	w := f.do(http.MethodGet, "/cart", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	body := decodeBody(t, w)
	assert.Equal(t, false, body["success"])
}

func TestRoutes_RequireAdmin(t *testing.T) {
	f := newFixture(t)

	w := f.do(http.MethodPut, "/orders/o-1/status",
		map[string]any{"status": "confirmed"}, asUser("user-1"))
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestGetCart_AutoCreatesEmpty(t *testing.T) {
	f := newFixture(t)

	w := f.do(http.MethodGet, "/cart", nil, asUser("user-1"))
	require.Equal(t, http.StatusOK, w.Code)

	body := decodeBody(t, w)
	assert.Equal(t, true, body["success"])
	cartBody := body["cart"].(map[string]any)
	assert.Empty(t, cartBody["items"])
	assert.Equal(t, "0", cartBody["total"])
}

func TestAddCartItem(t *testing.T) {
	f := newFixture(t)

	w := f.do(http.MethodPost, "/cart",
		map[string]any{"productId": "p-panel", "quantity": 2}, asUser("user-1"))
	require.Equal(t, http.StatusOK, w.Code)

	cartBody := decodeBody(t, w)["cart"].(map[string]any)
	items := cartBody["items"].([]any)
	require.Len(t, items, 1)
	assert.Equal(t, "24000", cartBody["subtotal"])
	assert.Equal(t, float64(2), cartBody["itemCount"])
}

func TestAddCartItem_UnknownProduct(t *testing.T) {
	f := newFixture(t)

	w := f.do(http.MethodPost, "/cart",
		map[string]any{"productId": "p-ghost"}, asUser("user-1"))
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "Product not found", decodeBody(t, w)["message"])
}

func TestApplyCoupon_UnknownCode(t *testing.T) {
	f := newFixture(t)
	f.do(http.MethodPost, "/cart", map[string]any{"productId": "p-panel"}, asUser("user-1"))

	w := f.do(http.MethodPost, "/cart/coupon",
		map[string]any{"code": "NOPE"}, asUser("user-1"))
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "Invalid coupon code", decodeBody(t, w)["message"])
}

func TestApplyCoupon_DiscountsTotals(t *testing.T) {
	f := newFixture(t)
	f.do(http.MethodPost, "/cart", map[string]any{"productId": "p-panel"}, asUser("user-1"))

	w := f.do(http.MethodPost, "/cart/coupon",
		map[string]any{"code": "SOLAR20"}, asUser("user-1"))
	require.Equal(t, http.StatusOK, w.Code)

	cartBody := decodeBody(t, w)["cart"].(map[string]any)
	assert.Equal(t, "12000", cartBody["subtotal"])
	assert.Equal(t, "2400", cartBody["discount"])
	assert.Equal(t, "9600", cartBody["total"])
}

func TestValidateCoupon_DryRun(t *testing.T) {
	f := newFixture(t)

	w := f.do(http.MethodPost, "/coupons/validate",
		map[string]any{"code": "SOLAR20", "amount": "10000"}, nil)
	require.Equal(t, http.StatusOK, w.Code)

	body := decodeBody(t, w)
	assert.Equal(t, true, body["valid"])
	assert.Equal(t, "2000", body["discount"])

	// Dry run never touches usage accounting.
	assert.Equal(t, 0, f.coupons.byCode["SOLAR20"].UsedCount)
}

func TestCreateCoupon_RejectsUnknownFields(t *testing.T) {
	f := newFixture(t)

	w := f.do(http.MethodPost, "/coupons/admin", map[string]any{
		"code":          "NEWCODE",
		"discountType":  "percentage",
		"discountValue": "10",
		"startDate":     time.Now().Format(time.RFC3339),
		"endDate":       time.Now().AddDate(0, 1, 0).Format(time.RFC3339),
		"bogusField":    true,
	}, asAdmin("admin-1"))

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Empty(t, f.coupons.created)
}

func TestCreateCoupon_UppercasesCode(t *testing.T) {
	f := newFixture(t)

	w := f.do(http.MethodPost, "/coupons/admin", map[string]any{
		"code":          "springsale",
		"discountType":  "fixed",
		"discountValue": "500",
		"startDate":     time.Now().Format(time.RFC3339),
		"endDate":       time.Now().AddDate(0, 1, 0).Format(time.RFC3339),
	}, asAdmin("admin-1"))

	require.Equal(t, http.StatusCreated, w.Code)
	couponBody := decodeBody(t, w)["coupon"].(map[string]any)
	assert.Equal(t, "SPRINGSALE", couponBody["code"])
}

func TestCreateCoupon_UnknownDiscountType(t *testing.T) {
	f := newFixture(t)

	w := f.do(http.MethodPost, "/coupons/admin", map[string]any{
		"code":          "BROKEN",
		"discountType":  "bogo",
		"discountValue": "1",
		"startDate":     time.Now().Format(time.RFC3339),
		"endDate":       time.Now().AddDate(0, 1, 0).Format(time.RFC3339),
	}, asAdmin("admin-1"))

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, decodeBody(t, w)["message"], "discountType")
}

func TestGetOrder_Ownership(t *testing.T) {
	f := newFixture(t)

	w := f.do(http.MethodGet, "/orders/o-1", nil, asUser("user-1"))
	assert.Equal(t, http.StatusOK, w.Code)

	w = f.do(http.MethodGet, "/orders/o-1", nil, asUser("user-2"))
	assert.Equal(t, http.StatusNotFound, w.Code)

	// Admins may read any order.
	w = f.do(http.MethodGet, "/orders/o-1", nil, asAdmin("admin-1"))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestUpdateOrderStatus(t *testing.T) {
	f := newFixture(t)

	w := f.do(http.MethodPut, "/orders/o-1/status",
		map[string]any{"status": "shipped"}, asAdmin("admin-1"))
	assert.Equal(t, http.StatusBadRequest, w.Code, "pending cannot jump to shipped")

	w = f.do(http.MethodPut, "/orders/o-1/status",
		map[string]any{"status": "confirmed"}, asAdmin("admin-1"))
	require.Equal(t, http.StatusOK, w.Code)
	orderBody := decodeBody(t, w)["order"].(map[string]any)
	assert.Equal(t, "confirmed", orderBody["status"])
}

func TestPayments_NotConfigured(t *testing.T) {
	f := newFixture(t)

	w := f.do(http.MethodPost, "/payments/paypal/create",
		map[string]any{"orderId": "o-1"}, asUser("user-1"))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, "Payment method not configured", decodeBody(t, w)["message"])
}
