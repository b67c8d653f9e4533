// Package dev provides in-memory payment gateways for development and
// testing. Every created intent or payment immediately succeeds; no money
// moves anywhere.
package dev

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/heliokart/heliokart/internal/domain/payment"
)

// Intents is an in-memory IntentGateway. Created intents are retrievable and
// always report success.
type Intents struct {
	mu      sync.Mutex
	intents map[string]int64
}

var _ payment.IntentGateway = (*Intents)(nil)

// NewIntents returns an empty in-memory intent gateway.
func NewIntents() *Intents {
	return &Intents{intents: make(map[string]int64)}
}

func (g *Intents) CreateIntent(_ context.Context, amount int64, _ string, _ string) (*payment.IntentRef, error) {
	id := "pi_dev_" + uuid.NewString()
	g.mu.Lock()
	g.intents[id] = amount
	g.mu.Unlock()

	return &payment.IntentRef{ID: id, ClientSecret: id + "_secret"}, nil
}

func (g *Intents) RetrieveIntent(_ context.Context, id string) (*payment.IntentState, error) {
	g.mu.Lock()
	_, ok := g.intents[id]
	g.mu.Unlock()

	return &payment.IntentState{ID: id, Succeeded: ok}, nil
}

// Checkout is an in-memory CheckoutGateway.
type Checkout struct{}

var _ payment.CheckoutGateway = (*Checkout)(nil)

func (Checkout) CreateOrder(_ context.Context, amount int64, currency, _ string) (*payment.CheckoutRef, error) {
	return &payment.CheckoutRef{
		ID:          "order_dev_" + uuid.NewString(),
		AmountMinor: amount,
		Currency:    currency,
	}, nil
}

// Redirects is an in-memory RedirectGateway that approves every execution.
type Redirects struct {
	// ApprovalBaseURL prefixes the fake approval URL returned from
	// CreatePayment.
	ApprovalBaseURL string
}

var _ payment.RedirectGateway = (*Redirects)(nil)

func (g *Redirects) CreatePayment(_ context.Context, _ int64, _ string, _ string) (*payment.Redirect, error) {
	id := "pay_dev_" + uuid.NewString()
	return &payment.Redirect{
		PaymentID:   id,
		ApprovalURL: g.ApprovalBaseURL + "/approve/" + id,
	}, nil
}

func (g *Redirects) ExecutePayment(_ context.Context, paymentID, _ string) (*payment.Execution, error) {
	return &payment.Execution{PaymentID: paymentID, Approved: true}, nil
}
