package order

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// Status is the fulfilment lifecycle of an order. Transitions are linear
// (pending → confirmed → processing → shipped → delivered) with cancelled
// reachable from any non-terminal state.
type Status string

const (
	StatusPending    Status = "pending"
	StatusConfirmed  Status = "confirmed"
	StatusProcessing Status = "processing"
	StatusShipped    Status = "shipped"
	StatusDelivered  Status = "delivered"
	StatusCancelled  Status = "cancelled"
)

// PaymentStatus tracks the money side of an order, independent of Status: a
// cash-on-delivery order can be delivered while payment is still pending.
type PaymentStatus string

const (
	PaymentPending    PaymentStatus = "pending"
	PaymentProcessing PaymentStatus = "processing"
	PaymentCompleted  PaymentStatus = "completed"
	PaymentFailed     PaymentStatus = "failed"
	PaymentRefunded   PaymentStatus = "refunded"
)

// PaymentMethod selects which gateway capability settles the order.
type PaymentMethod string

const (
	MethodStripe   PaymentMethod = "stripe"
	MethodRazorpay PaymentMethod = "razorpay"
	MethodPayPal   PaymentMethod = "paypal"
	MethodCOD      PaymentMethod = "cod"
)

// ValidMethod reports whether m is a known payment method.
func ValidMethod(m PaymentMethod) bool {
	switch m {
	case MethodStripe, MethodRazorpay, MethodPayPal, MethodCOD:
		return true
	}
	return false
}

// nextStatus maps each state to its linear successor.
var nextStatus = map[Status]Status{
	StatusPending:    StatusConfirmed,
	StatusConfirmed:  StatusProcessing,
	StatusProcessing: StatusShipped,
	StatusShipped:    StatusDelivered,
}

// CanTransition reports whether an admin may move an order from one status to
// another.
func CanTransition(from, to Status) bool {
	if from == StatusDelivered || from == StatusCancelled {
		return false
	}
	if to == StatusCancelled {
		return true
	}
	return nextStatus[from] == to
}

// Address is the structured shipping destination embedded in the order.
type Address struct {
	Name       string `json:"name"`
	Line1      string `json:"line1"`
	Line2      string `json:"line2,omitempty"`
	City       string `json:"city"`
	State      string `json:"state,omitempty"`
	PostalCode string `json:"postalCode"`
	Country    string `json:"country"`
	Phone      string `json:"phone,omitempty"`
}

// Validate checks the fields a shipment cannot do without.
func (a *Address) Validate() error {
	switch {
	case a.Name == "":
		return errors.New("shipping address: name is required")
	case a.Line1 == "":
		return errors.New("shipping address: line1 is required")
	case a.City == "":
		return errors.New("shipping address: city is required")
	case a.PostalCode == "":
		return errors.New("shipping address: postal code is required")
	case a.Country == "":
		return errors.New("shipping address: country is required")
	}
	return nil
}

// Order is the immutable financial record produced by finalization. Total is
// computed once at creation (subtotal - discount + shipping + tax) and never
// recomputed; Status and PaymentStatus are the only fields mutated afterwards.
type Order struct {
	ID              string
	OrderNumber     string
	UserID          string
	ShippingAddress Address
	PaymentMethod   PaymentMethod
	PaymentStatus   PaymentStatus
	PaymentID       *string
	Subtotal        decimal.Decimal
	Discount        decimal.Decimal
	Shipping        decimal.Decimal
	Tax             decimal.Decimal
	Total           decimal.Decimal
	CouponID        *string
	Status          Status
	TrackingNumber  *string
	Notes           string
	Items           []Item
	CreatedAt       time.Time
}

// Item is a per-order snapshot of a product line, decoupled from the live
// catalog row so later product edits never alter historical orders.
type Item struct {
	ID        string
	ProductID string
	Name      string
	Quantity  int
	Price     decimal.Decimal
	Image     string
}

// ErrNotFound is returned when an order does not exist or is not visible to
// the requesting user.
var ErrNotFound = errors.New("order not found")

// Repository defines order persistence outside the finalize transaction.
type Repository interface {
	GetByID(ctx context.Context, id string) (*Order, error)
	UpdateStatus(ctx context.Context, id string, status Status, trackingNumber *string) error
}
