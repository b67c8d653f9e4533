package payment

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/heliokart/heliokart/internal/domain/order"
)

// Store is the order persistence the reconciler needs. MarkPaid transitions
// the order to (confirmed, completed) and records the gateway transaction id,
// guarded so it applies at most once: it reports false without mutating when
// the order is already completed.
type Store interface {
	GetByID(ctx context.Context, id string) (*order.Order, error)
	MarkPaid(ctx context.Context, orderID, paymentID string) (bool, error)
}

// Gateways bundles the per-method capabilities injected into the Reconciler.
// A nil capability means that method is not configured; invoking it yields
// ErrNotConfigured rather than a nil-pointer surprise.
type Gateways struct {
	Intents IntentGateway   // stripe-shaped
	Orders  CheckoutGateway // razorpay-shaped
	// OrdersSecret is the shared secret for verifying checkout signatures.
	OrdersSecret []byte
	Redirects    RedirectGateway // paypal-shaped
}

// Reconciler maps gateway outcomes onto the order state machine. All
// confirmation paths are idempotent: re-delivering a confirmation for an
// already-completed order returns the current state without side effects.
type Reconciler struct {
	orders   Store
	gateways Gateways
}

// NewReconciler creates a Reconciler over the given order store and gateway
// capabilities.
func NewReconciler(orders Store, gateways Gateways) *Reconciler {
	return &Reconciler{orders: orders, gateways: gateways}
}

// minorUnits converts a decimal amount to the gateway's smallest currency
// unit (paise/cents).
func minorUnits(amount decimal.Decimal) int64 {
	return amount.Mul(decimal.NewFromInt(100)).Round(0).IntPart()
}

// load fetches the order, enforces ownership, and checks the payment method.
func (r *Reconciler) load(ctx context.Context, orderID, userID string, method order.PaymentMethod) (*order.Order, error) {
	o, err := r.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if o.UserID != userID {
		return nil, order.ErrNotFound
	}
	if o.PaymentMethod != method {
		return nil, ErrWrongMethod
	}
	return o, nil
}

// CreateIntent opens a gateway payment intent for the order's total.
func (r *Reconciler) CreateIntent(ctx context.Context, orderID, userID string) (*IntentRef, error) {
	if r.gateways.Intents == nil {
		return nil, ErrNotConfigured
	}
	o, err := r.load(ctx, orderID, userID, order.MethodStripe)
	if err != nil {
		return nil, err
	}

	ref, err := r.gateways.Intents.CreateIntent(ctx, minorUnits(o.Total), "inr", o.ID)
	if err != nil {
		return nil, errors.Wrap(err, "create intent")
	}
	return ref, nil
}

// ConfirmIntent checks the intent's state with the gateway and, on success,
// transitions the order to (confirmed, completed). A negative or ambiguous
// gateway answer leaves the order untouched.
func (r *Reconciler) ConfirmIntent(ctx context.Context, orderID, userID, intentID string) (*order.Order, error) {
	if r.gateways.Intents == nil {
		return nil, ErrNotConfigured
	}
	o, err := r.load(ctx, orderID, userID, order.MethodStripe)
	if err != nil {
		return nil, err
	}
	if o.PaymentStatus == order.PaymentCompleted {
		return o, nil
	}

	state, err := r.gateways.Intents.RetrieveIntent(ctx, intentID)
	if err != nil {
		return nil, errors.Wrap(err, "retrieve intent")
	}
	if !state.Succeeded {
		return nil, ErrNotCompleted
	}

	return r.complete(ctx, o.ID, intentID)
}

// CreateCheckout opens a gateway-side order for the signature-verified flow,
// using the order number as the gateway receipt.
func (r *Reconciler) CreateCheckout(ctx context.Context, orderID, userID string) (*CheckoutRef, error) {
	if r.gateways.Orders == nil {
		return nil, ErrNotConfigured
	}
	o, err := r.load(ctx, orderID, userID, order.MethodRazorpay)
	if err != nil {
		return nil, err
	}

	ref, err := r.gateways.Orders.CreateOrder(ctx, minorUnits(o.Total), "INR", o.OrderNumber)
	if err != nil {
		return nil, errors.Wrap(err, "create checkout order")
	}
	return ref, nil
}

// VerifyCheckout recomputes the HMAC-SHA256 of "gatewayOrderID|gatewayPaymentID"
// with the server-held secret and compares it to the client-supplied
// signature. Only an exact match completes the payment; a mismatch is always
// a failure and is never retried here.
func (r *Reconciler) VerifyCheckout(ctx context.Context, orderID, userID, gatewayOrderID, gatewayPaymentID, signature string) (*order.Order, error) {
	if r.gateways.Orders == nil || len(r.gateways.OrdersSecret) == 0 {
		return nil, ErrNotConfigured
	}
	o, err := r.load(ctx, orderID, userID, order.MethodRazorpay)
	if err != nil {
		return nil, err
	}
	if o.PaymentStatus == order.PaymentCompleted {
		return o, nil
	}

	mac := hmac.New(sha256.New, r.gateways.OrdersSecret)
	mac.Write([]byte(gatewayOrderID + "|" + gatewayPaymentID))

	supplied, err := hex.DecodeString(signature)
	if err != nil || !hmac.Equal(mac.Sum(nil), supplied) {
		return nil, ErrSignatureMismatch
	}

	return r.complete(ctx, o.ID, gatewayPaymentID)
}

// CreateRedirect opens a redirect-based payment and returns the approval URL.
func (r *Reconciler) CreateRedirect(ctx context.Context, orderID, userID string) (*Redirect, error) {
	if r.gateways.Redirects == nil {
		return nil, ErrNotConfigured
	}
	o, err := r.load(ctx, orderID, userID, order.MethodPayPal)
	if err != nil {
		return nil, err
	}

	redirect, err := r.gateways.Redirects.CreatePayment(ctx, minorUnits(o.Total), "INR", o.OrderNumber)
	if err != nil {
		return nil, errors.Wrap(err, "create redirect payment")
	}
	return redirect, nil
}

// ExecuteRedirect executes an approved redirect payment and completes the
// order on approval.
func (r *Reconciler) ExecuteRedirect(ctx context.Context, orderID, userID, paymentID, payerID string) (*order.Order, error) {
	if r.gateways.Redirects == nil {
		return nil, ErrNotConfigured
	}
	o, err := r.load(ctx, orderID, userID, order.MethodPayPal)
	if err != nil {
		return nil, err
	}
	if o.PaymentStatus == order.PaymentCompleted {
		return o, nil
	}

	exec, err := r.gateways.Redirects.ExecutePayment(ctx, paymentID, payerID)
	if err != nil {
		return nil, errors.Wrap(err, "execute redirect payment")
	}
	if !exec.Approved {
		return nil, ErrNotCompleted
	}

	return r.complete(ctx, o.ID, exec.PaymentID)
}

// complete applies the guarded (confirmed, completed) transition and returns
// the fresh order state. A lost race against another confirmation is fine:
// the order is completed either way, so re-fetch and return it.
func (r *Reconciler) complete(ctx context.Context, orderID, paymentID string) (*order.Order, error) {
	if _, err := r.orders.MarkPaid(ctx, orderID, paymentID); err != nil {
		return nil, errors.Wrap(err, "mark paid")
	}
	return r.orders.GetByID(ctx, orderID)
}
