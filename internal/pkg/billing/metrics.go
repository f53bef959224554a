package billing

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// WebhookRequestsTotal counts processor webhook requests by outcome.
	WebhookRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "primepass",
		Subsystem: "billing",
		Name:      "webhook_requests_total",
		Help:      "Total payment webhook requests by outcome.",
	}, []string{"outcome"})

	// WebhookDuration tracks webhook processing latency.
	WebhookDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "primepass",
		Subsystem: "billing",
		Name:      "webhook_duration_seconds",
		Help:      "Payment webhook processing duration in seconds.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"outcome"})

	// ActivationsTotal counts tier activations by source and result.
	ActivationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "primepass",
		Subsystem: "billing",
		Name:      "activations_total",
		Help:      "Tier activations by source (payment, review) and result.",
	}, []string{"source", "result"})

	// ReviewDecisionsTotal counts manual review decisions.
	ReviewDecisionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "primepass",
		Subsystem: "billing",
		Name:      "review_decisions_total",
		Help:      "Manual review decisions by outcome.",
	}, []string{"outcome"})

	// FailedActivationsTotal counts failure records by reason.
	FailedActivationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "primepass",
		Subsystem: "billing",
		Name:      "failed_activations_total",
		Help:      "Failed activation records written, by reason.",
	}, []string{"reason"})

	// MembershipsExpiredTotal counts downgrades done by the expiry sweep.
	MembershipsExpiredTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "primepass",
		Subsystem: "billing",
		Name:      "memberships_expired_total",
		Help:      "Memberships downgraded to free by the expiry sweep.",
	})
)
