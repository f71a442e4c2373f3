package service

import (
	"context"
	"errors"

	"github.com/rs/zerolog"

	"github.com/99minutos/member-portal/internal/core/domain"
	"github.com/99minutos/member-portal/internal/core/ports"
)

// BillingService opens checkout transactions and applies the purchased tier
// once the provider reports the payment as completed.
type BillingService struct {
	auth        *AuthService
	provider    ports.PaymentProvider
	plans       domain.PlanCatalog
	clientToken string
	environment string
	log         zerolog.Logger
}

func NewBillingService(
	auth *AuthService,
	provider ports.PaymentProvider,
	plans domain.PlanCatalog,
	clientToken, environment string,
	log zerolog.Logger,
) *BillingService {
	if plans == nil {
		plans = domain.DefaultPlanCatalog()
	}
	return &BillingService{
		auth:        auth,
		provider:    provider,
		plans:       plans,
		clientToken: clientToken,
		environment: environment,
		log:         log,
	}
}

func (s *BillingService) Config() ports.BillingConfig {
	return ports.BillingConfig{
		ClientToken: s.clientToken,
		Environment: s.environment,
		Plans:       s.plans,
	}
}

func (s *BillingService) Checkout(ctx context.Context, email, plan string, period domain.BillingPeriod) (*ports.CheckoutSession, error) {
	tier, err := domain.TierFor(plan, period)
	if err != nil {
		return nil, err
	}
	priceID, ok := s.plans.PriceID(tier)
	if !ok {
		return nil, domain.ErrInvalidTier
	}

	tx, err := s.provider.CreateTransaction(ctx, ports.CheckoutRequest{
		PriceID: priceID,
		Email:   domain.NormalizeEmail(email),
	})
	if err != nil {
		return nil, s.auth.unavailable("checkout", err)
	}

	s.log.Info().Str("transaction_id", tx.ID).Str("tier", string(tier)).Msg("checkout opened")
	return &ports.CheckoutSession{TransactionID: tx.ID, PriceID: priceID, Tier: tier}, nil
}

// Confirm checks a transaction with the provider and, when it is paid and
// belongs to email, records the purchased tier and returns a fresh token.
func (s *BillingService) Confirm(ctx context.Context, email, transactionID string) (*ports.LoginResult, error) {
	email = domain.NormalizeEmail(email)
	if transactionID == "" {
		return nil, domain.ErrInvalidInput
	}

	tx, err := s.provider.GetTransaction(ctx, transactionID)
	if err != nil {
		return nil, s.auth.unavailable("confirm checkout", err)
	}
	if !tx.Completed() || domain.NormalizeEmail(tx.Email) != email {
		s.log.Warn().
			Str("transaction_id", transactionID).
			Str("status", tx.Status).
			Msg("checkout confirmation rejected")
		return nil, domain.ErrPaymentNotCompleted
	}

	tier, err := s.tierOf(tx)
	if err != nil {
		return nil, err
	}

	if err := s.auth.ChangeTier(ctx, email, tier); err != nil {
		return nil, err
	}
	return s.auth.Refresh(ctx, email)
}

func (s *BillingService) tierOf(tx *ports.Transaction) (domain.Tier, error) {
	for _, id := range tx.PriceIDs {
		if tier, ok := s.plans.TierByPrice(id); ok {
			return tier, nil
		}
	}
	return "", errors.Join(domain.ErrInvalidTier, errors.New("transaction has no catalog price"))
}
