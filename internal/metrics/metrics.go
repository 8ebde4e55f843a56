// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package metrics exposes Prometheus counters for the subscription and
// delivery workflows.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the application counters. A nil *Metrics is valid and
// records nothing.
type Metrics struct {
	registry *prometheus.Registry

	// Subscribers moved from pending to confirmed
	SubscriptionsConfirmed prometheus.Counter

	// Subscriptions created or refreshed via POST /subscriptions
	SubscriptionsRequested *prometheus.CounterVec

	// Newsletter emails handed to the transport successfully
	Deliveries prometheus.Counter

	// Confirmed subscribers skipped because their stored email is invalid
	SkippedSubscribers prometheus.Counter

	// Publish requests by outcome ("success", "failed")
	Publishes *prometheus.CounterVec
}

// New creates a Metrics instance registered on its own registry, together
// with the Go runtime and process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,

		SubscriptionsConfirmed: f.NewCounter(prometheus.CounterOpts{
			Name: "subscriptions_confirmed_total",
			Help: "Total number of confirmation requests that confirmed a subscriber",
		}),

		SubscriptionsRequested: f.NewCounterVec(prometheus.CounterOpts{
			Name: "subscriptions_requested_total",
			Help: "Total subscription requests by result",
		}, []string{"result"}), // result: "created", "resent", "already_confirmed"

		Deliveries: f.NewCounter(prometheus.CounterOpts{
			Name: "newsletter_deliveries_total",
			Help: "Total newsletter emails accepted by the mail transport",
		}),

		SkippedSubscribers: f.NewCounter(prometheus.CounterOpts{
			Name: "newsletter_skipped_subscribers_total",
			Help: "Total confirmed subscribers skipped due to invalid stored contact details",
		}),

		Publishes: f.NewCounterVec(prometheus.CounterOpts{
			Name: "newsletter_publishes_total",
			Help: "Total newsletter publish attempts by outcome",
		}, []string{"outcome"}),
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Metrics) IncConfirmed() {
	if m != nil {
		m.SubscriptionsConfirmed.Inc()
	}
}

func (m *Metrics) IncSubscriptionRequested(result string) {
	if m != nil {
		m.SubscriptionsRequested.WithLabelValues(result).Inc()
	}
}

func (m *Metrics) IncDelivered() {
	if m != nil {
		m.Deliveries.Inc()
	}
}

func (m *Metrics) IncSkipped() {
	if m != nil {
		m.SkippedSubscribers.Inc()
	}
}

// IncPublish records the outcome of one publish request.
func (m *Metrics) IncPublish(outcome string) {
	if m != nil {
		m.Publishes.WithLabelValues(outcome).Inc()
	}
}
