// Package metrics registers the service's Prometheus instruments on the
// default registry and exposes them through accessor functions so tests
// and callers do not touch package variables directly.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ordersCreatedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "checkout_orders_created_total",
		Help: "Orders successfully created.",
	})
	duplicatesSuppressedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "checkout_duplicate_orders_suppressed_total",
		Help: "Submissions resolved to an existing order by the durable idempotency check.",
	})
	duplicateInFlightTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "checkout_duplicate_in_flight_total",
		Help: "Submissions rejected because the merchant order id was already being processed.",
	})
	validationRejectedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "checkout_validation_rejected_total",
		Help: "Submissions rejected before any store interaction.",
	})
	paymentLinkFailuresTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "checkout_payment_link_failures_total",
		Help: "Orders created whose payment linkage failed and was swallowed.",
	})
	inFlightLocks = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "checkout_in_flight_locks",
		Help: "Merchant order ids currently held by the in-flight registry.",
	})
	submitDurationSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "checkout_submit_duration_seconds",
		Help:    "End-to-end duration of order submissions.",
		Buckets: prometheus.DefBuckets,
	})
)

func OrdersCreatedTotal() prometheus.Counter        { return ordersCreatedTotal }
func DuplicatesSuppressedTotal() prometheus.Counter { return duplicatesSuppressedTotal }
func DuplicateInFlightTotal() prometheus.Counter    { return duplicateInFlightTotal }
func ValidationRejectedTotal() prometheus.Counter   { return validationRejectedTotal }
func PaymentLinkFailuresTotal() prometheus.Counter  { return paymentLinkFailuresTotal }
func InFlightLocks() prometheus.Gauge               { return inFlightLocks }
func SubmitDurationSeconds() prometheus.Histogram   { return submitDurationSeconds }
