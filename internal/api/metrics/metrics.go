// Package metrics defines the custom Prometheus metrics of the member portal
// API. It is the single source of truth for metric names, labels and help
// strings; the collectors register with the default registry on import.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "portal"

// ── Auth metrics ──────────────────────────────────────────────────────────────

// LoginsTotal counts password login attempts.
// Label:
//   - result: "success", "rejected" (unknown email or wrong password) or "error"
var LoginsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "logins_total",
		Help:      "Total number of password login attempts, by result.",
	},
	[]string{"result"},
)

// RegistrationsTotal counts registration attempts.
// Label:
//   - result: "created", "duplicate", "invalid" or "error"
var RegistrationsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "registrations_total",
		Help:      "Total number of registration attempts, by result.",
	},
	[]string{"result"},
)

// TokenVerificationsTotal counts bearer token checks.
// Label:
//   - result: "valid" or "invalid"
var TokenVerificationsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "token_verifications_total",
		Help:      "Total number of session token verifications, by result.",
	},
	[]string{"result"},
)

// OAuthTotal counts completed provider callbacks.
// Labels:
//   - outcome: "login", "registered", "not_registered", "invalid_state" or "error"
var OAuthTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "oauth_callbacks_total",
		Help:      "Total number of OAuth callbacks, by outcome.",
	},
	[]string{"outcome"},
)

// ── Billing metrics ───────────────────────────────────────────────────────────

// TierChangesTotal counts applied subscription tier changes.
// Labels:
//   - tier: the new tier label (e.g. "Premium Annual")
//   - source: "admin" or "checkout"
var TierChangesTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "tier_changes_total",
		Help:      "Total number of subscription tier changes, by tier and source.",
	},
	[]string{"tier", "source"},
)

// CheckoutsTotal counts checkout transactions opened with the payment provider.
var CheckoutsTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "checkouts_total",
		Help:      "Total number of checkout transactions opened.",
	},
)
