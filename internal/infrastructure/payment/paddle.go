package payment

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	paddle "github.com/PaddleHQ/paddle-go-sdk/v4"

	"github.com/99minutos/member-portal/internal/core/ports"
)

// transactionsAPI is the part of the Paddle SDK the provider calls.
type transactionsAPI interface {
	CreateTransaction(ctx context.Context, req *paddle.CreateTransactionRequest) (*paddle.Transaction, error)
	GetTransaction(ctx context.Context, req *paddle.GetTransactionRequest) (*paddle.Transaction, error)
}

// PaddleProvider creates and inspects Paddle Billing transactions.
type PaddleProvider struct {
	txs     transactionsAPI
	timeout time.Duration
}

// NewPaddleProvider builds a provider for the sandbox or production API.
// Each API call is bounded by timeout; zero leaves only the caller's deadline.
func NewPaddleProvider(apiKey, environment string, timeout time.Duration) (*PaddleProvider, error) {
	if apiKey == "" {
		return nil, errors.New("paddle API key is required")
	}

	var (
		client *paddle.SDK
		err    error
	)
	switch strings.ToLower(environment) {
	case "sandbox":
		client, err = paddle.NewSandbox(apiKey)
	case "production":
		client, err = paddle.New(apiKey)
	default:
		return nil, fmt.Errorf("invalid paddle environment: %s", environment)
	}
	if err != nil {
		return nil, fmt.Errorf("create paddle client: %w", err)
	}

	return &PaddleProvider{txs: client.TransactionsClient, timeout: timeout}, nil
}

// CreateTransaction opens a transaction for one catalog price. The buyer's
// email travels in custom data so the confirmation can be matched to the
// account that started it.
func (p *PaddleProvider) CreateTransaction(ctx context.Context, req ports.CheckoutRequest) (*ports.Transaction, error) {
	if req.PriceID == "" {
		return nil, errors.New("price ID is required")
	}

	item := paddle.NewCreateTransactionItemsTransactionItemFromCatalog(&paddle.TransactionItemFromCatalog{
		PriceID:  req.PriceID,
		Quantity: 1,
	})

	ctx, cancel := p.withTimeout(ctx)
	defer cancel()

	tx, err := p.txs.CreateTransaction(ctx, &paddle.CreateTransactionRequest{
		Items:      []paddle.CreateTransactionItems{*item},
		CustomData: paddle.CustomData{"email": req.Email},
	})
	if err != nil {
		return nil, fmt.Errorf("create paddle transaction: %w", err)
	}
	return fromPaddle(tx), nil
}

func (p *PaddleProvider) GetTransaction(ctx context.Context, id string) (*ports.Transaction, error) {
	ctx, cancel := p.withTimeout(ctx)
	defer cancel()

	tx, err := p.txs.GetTransaction(ctx, &paddle.GetTransactionRequest{TransactionID: id})
	if err != nil {
		return nil, fmt.Errorf("get paddle transaction %s: %w", id, err)
	}
	return fromPaddle(tx), nil
}

func (p *PaddleProvider) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if p.timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, p.timeout)
}

func fromPaddle(tx *paddle.Transaction) *ports.Transaction {
	out := &ports.Transaction{
		ID:     tx.ID,
		Status: string(tx.Status),
	}
	for _, item := range tx.Items {
		if item.Price.ID != "" {
			out.PriceIDs = append(out.PriceIDs, item.Price.ID)
		}
	}
	if email, ok := tx.CustomData["email"].(string); ok {
		out.Email = email
	}
	return out
}
