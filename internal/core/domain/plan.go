package domain

import (
	"fmt"
	"strings"
)

// Tier is the subscription level label stored on a user.
type Tier string

const (
	TierFree            Tier = "Free"
	TierStandardMonthly Tier = "Standard Monthly"
	TierStandardAnnual  Tier = "Standard Annual"
	TierPremiumMonthly  Tier = "Premium Monthly"
	TierPremiumAnnual   Tier = "Premium Annual"
)

// BillingPeriod is the checkout toggle between monthly and annual pricing.
type BillingPeriod string

const (
	PeriodMonthly BillingPeriod = "monthly"
	PeriodAnnual  BillingPeriod = "annual"
)

var knownTiers = map[Tier]struct{}{
	TierFree:            {},
	TierStandardMonthly: {},
	TierStandardAnnual:  {},
	TierPremiumMonthly:  {},
	TierPremiumAnnual:   {},
}

// Valid reports whether t is one of the known labels.
func (t Tier) Valid() bool {
	_, ok := knownTiers[t]
	return ok
}

// IsPaid reports whether t is a paid tier.
func (t Tier) IsPaid() bool {
	return t.Valid() && t != TierFree
}

// TierFor builds the tier label for a plan title and billing period,
// e.g. ("Premium", annual) -> "Premium Annual".
func TierFor(plan string, period BillingPeriod) (Tier, error) {
	suffix := "Monthly"
	switch period {
	case PeriodMonthly:
	case PeriodAnnual:
		suffix = "Annual"
	default:
		return "", fmt.Errorf("%w: billing period %q", ErrInvalidTier, period)
	}

	plan = strings.TrimSpace(plan)
	if plan == "" {
		return "", fmt.Errorf("%w: empty plan", ErrInvalidTier)
	}
	t := Tier(strings.ToUpper(plan[:1]) + strings.ToLower(plan[1:]) + " " + suffix)
	if !t.IsPaid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidTier, t)
	}
	return t, nil
}

// PlanCatalog maps paid tiers to payment-provider price IDs.
type PlanCatalog map[Tier]string

// DefaultPlanCatalog returns the price IDs configured in the checkout dashboard.
func DefaultPlanCatalog() PlanCatalog {
	return PlanCatalog{
		TierStandardMonthly: "pri_std_monthly_123",
		TierStandardAnnual:  "pri_std_annual_456",
		TierPremiumMonthly:  "pri_prem_monthly_789",
		TierPremiumAnnual:   "pri_prem_annual_012",
	}
}

// PriceID returns the price for a paid tier.
func (c PlanCatalog) PriceID(t Tier) (string, bool) {
	id, ok := c[t]
	return id, ok && id != ""
}

// TierByPrice is the reverse lookup used when confirming a checkout.
func (c PlanCatalog) TierByPrice(priceID string) (Tier, bool) {
	for t, id := range c {
		if id == priceID {
			return t, true
		}
	}
	return "", false
}
