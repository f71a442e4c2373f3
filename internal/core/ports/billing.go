package ports

import (
	"context"

	"github.com/99minutos/member-portal/internal/core/domain"
)

// CheckoutRequest describes a transaction to open in the checkout widget.
type CheckoutRequest struct {
	PriceID string
	Email   string
}

// Transaction is the subset of a provider transaction we act on.
type Transaction struct {
	ID       string
	Status   string
	PriceIDs []string
	Email    string
}

// Completed reports whether the provider has taken the money.
func (t *Transaction) Completed() bool {
	return t.Status == "paid" || t.Status == "completed"
}

// PaymentProvider creates and inspects checkout transactions.
type PaymentProvider interface {
	CreateTransaction(ctx context.Context, req CheckoutRequest) (*Transaction, error)
	GetTransaction(ctx context.Context, id string) (*Transaction, error)
}

// BillingConfig is what the checkout widget needs on the client.
type BillingConfig struct {
	ClientToken string
	Environment string
	Plans       domain.PlanCatalog
}

// CheckoutSession is handed to the widget to open an inline checkout.
type CheckoutSession struct {
	TransactionID string
	PriceID       string
	Tier          domain.Tier
}

type BillingService interface {
	Config() BillingConfig
	Checkout(ctx context.Context, email, plan string, period domain.BillingPeriod) (*CheckoutSession, error)
	Confirm(ctx context.Context, email, transactionID string) (*LoginResult, error)
}
