// Package metrics exposes the ledger's Prometheus collectors.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// EntriesCreated counts ledger rows written by the entry generator.
var EntriesCreated = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "mesa",
	Subsystem: "ledger",
	Name:      "entries_created_total",
	Help:      "Ledger rows created, by entry kind.",
}, []string{"kind"})

var InvoiceRecalculations = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "mesa",
	Subsystem: "invoice",
	Name:      "recalculations_total",
	Help:      "Statement totals recomputed from their linked expenses.",
})

// InvoicePayments counts statement settlements by action (pay, undo).
var InvoicePayments = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "mesa",
	Subsystem: "invoice",
	Name:      "payments_total",
	Help:      "Statement payments and reversals.",
}, []string{"action"})

// IncomeConfirmations counts confirmations by kind (template, direct, undo).
var IncomeConfirmations = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "mesa",
	Subsystem: "income",
	Name:      "confirmations_total",
	Help:      "Income confirmations and their reversals.",
}, []string{"kind"})

// EventsPublished counts ledger events by outcome (ok, error).
var EventsPublished = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "mesa",
	Subsystem: "events",
	Name:      "published_total",
	Help:      "Ledger events handed to the broker.",
}, []string{"outcome"})

var ProjectionDuration = promauto.NewHistogram(prometheus.HistogramOpts{
	Namespace: "mesa",
	Subsystem: "projection",
	Name:      "duration_seconds",
	Help:      "Time spent building a monthly projection.",
	Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1},
})

// Exports counts projection exports by outcome (ok, error, skipped).
var Exports = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "mesa",
	Subsystem: "worker",
	Name:      "exports_total",
	Help:      "Projection exports attempted by the worker.",
}, []string{"outcome"})

var RateLimited = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "mesa",
	Subsystem: "http",
	Name:      "rate_limited_total",
	Help:      "Requests rejected by the per-user rate limiter.",
})

// HTTPRequests observes request latency by route pattern, method and status.
var HTTPRequests = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Namespace: "mesa",
	Subsystem: "http",
	Name:      "request_duration_seconds",
	Help:      "HTTP request latency.",
	Buckets:   prometheus.DefBuckets,
}, []string{"route", "method", "status"})
