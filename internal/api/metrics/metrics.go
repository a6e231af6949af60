// Package metrics defines and registers the custom Prometheus metrics for the
// koreamarkers web auth service. It is the single source of truth for metric
// names, labels, and help strings.
//
// Metrics are registered with the default registry on package init through
// promauto; HTTP request metrics come from echoprometheus in the router.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "koreamarkers"

// ── Authentication gate ───────────────────────────────────────────────────────

// AuthGateTotal counts gate outcomes per request.
// Label:
//   - result: "authenticated", "anonymous" (no token presented) or "rejected"
//     (a token was presented but did not yield an identity)
var AuthGateTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "auth_gate_total",
		Help:      "Total number of requests seen by the authentication gate, by outcome.",
	},
	[]string{"result"},
)

// AccessDeniedTotal counts requests refused by the access rules.
// Label:
//   - reason: "unauthenticated" or "forbidden"
var AccessDeniedTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "access_denied_total",
		Help:      "Total number of requests refused by the access rules.",
	},
	[]string{"reason"},
)

// ── Sessions ─────────────────────────────────────────────────────────────────

// LoginsTotal counts interactive login attempts.
// Label:
//   - result: "success", "invalid_credentials", "disabled" or "error"
var LoginsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "logins_total",
		Help:      "Total number of form login attempts, by result.",
	},
	[]string{"result"},
)

// RefreshTotal counts refresh endpoint calls.
// Label:
//   - result: "success", "no_token", "invalid", "expired" or "error"
var RefreshTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "token_refresh_total",
		Help:      "Total number of access token refresh attempts, by result.",
	},
	[]string{"result"},
)

// ── Registration ─────────────────────────────────────────────────────────────

// SignupsTotal counts registration attempts.
// Labels:
//   - channel: "form" or "api"
//   - result: "created", "invalid", "duplicate_username", "duplicate_email" or "error"
var SignupsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "signups_total",
		Help:      "Total number of signup attempts, by channel and result.",
	},
	[]string{"channel", "result"},
)
