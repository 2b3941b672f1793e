// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package auth

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Outcome labels shared by the auth metrics.
const (
	OutcomeSuccess     = "success"
	OutcomeRejected    = "rejected"
	OutcomeError       = "error"
	OutcomeRefreshed   = "refreshed"
	OutcomeChallenged  = "challenged"
	OutcomeAlreadyUsed = "already_used"
	OutcomeExpired     = "expired"
)

// SessionsIssued counts sessions created by the session manager.
// Use RegisterMetrics to register this with a Prometheus registry.
var SessionsIssued = prometheus.NewCounter(
	prometheus.CounterOpts{
		Name: "authengine_sessions_issued_total",
		Help: "Total number of sessions created",
	},
)

// SessionRefreshes counts silent refresh attempts by outcome.
var SessionRefreshes = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "authengine_session_refreshes_total",
		Help: "Total number of access token refresh attempts by outcome",
	},
	[]string{"outcome"},
)

// Redemptions counts single-use token redemptions by flow and outcome.
var Redemptions = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "authengine_token_redemptions_total",
		Help: "Total number of single-use token redemptions by flow and outcome",
	},
	[]string{"flow", "outcome"},
)

// Logins counts login attempts by outcome.
var Logins = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "authengine_logins_total",
		Help: "Total number of login attempts by outcome",
	},
	[]string{"outcome"},
)

// SweepDeleted counts rows removed by maintenance sweeps.
var SweepDeleted = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "authengine_sweep_deleted_total",
		Help: "Total number of expired records removed by maintenance sweeps",
	},
	[]string{"target"},
)

// RegisterMetrics registers auth metrics with the given Prometheus registry.
// Panics if registration fails (following prometheus convention).
func RegisterMetrics(reg prometheus.Registerer) {
	reg.MustRegister(SessionsIssued)
	reg.MustRegister(SessionRefreshes)
	reg.MustRegister(Redemptions)
	reg.MustRegister(Logins)
	reg.MustRegister(SweepDeleted)
}

func recordRedemption(flow, outcome string) {
	Redemptions.WithLabelValues(flow, outcome).Inc()
}
