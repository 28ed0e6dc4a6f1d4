package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "storefront"

// Storefront records checkout, payment notification and catalog activity.
type Storefront struct {
	checkoutAttempts   *prometheus.CounterVec
	preferenceDuration *prometheus.HistogramVec
	webhooks           *prometheus.CounterVec
	catalogLoads       *prometheus.CounterVec
}

// NewStorefront registers the storefront metrics on the provided registerer.
func NewStorefront(reg prometheus.Registerer) *Storefront {
	if reg == nil {
		return &Storefront{}
	}
	checkoutAttempts := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "checkout_attempts_total",
		Help:      "Checkout attempts by outcome.",
	}, []string{"outcome"})
	preferenceDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "preference_request_duration_seconds",
		Help:      "Latency of payment preference creation calls.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"outcome"})
	webhooks := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "payment_notifications_total",
		Help:      "Payment notifications by outcome and payment status.",
	}, []string{"outcome", "status"})
	catalogLoads := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "catalog_loads_total",
		Help:      "Catalog load attempts by outcome.",
	}, []string{"outcome"})
	reg.MustRegister(checkoutAttempts, preferenceDuration, webhooks, catalogLoads)
	return &Storefront{
		checkoutAttempts:   checkoutAttempts,
		preferenceDuration: preferenceDuration,
		webhooks:           webhooks,
		catalogLoads:       catalogLoads,
	}
}

func (s *Storefront) IncCheckout(outcome string) {
	if s == nil || s.checkoutAttempts == nil {
		return
	}
	s.checkoutAttempts.WithLabelValues(normalizeLabel(outcome)).Inc()
}

func (s *Storefront) ObservePreference(outcome string, duration time.Duration) {
	if s == nil || s.preferenceDuration == nil {
		return
	}
	s.preferenceDuration.WithLabelValues(normalizeLabel(outcome)).Observe(duration.Seconds())
}

func (s *Storefront) IncWebhook(outcome, status string) {
	if s == nil || s.webhooks == nil {
		return
	}
	s.webhooks.WithLabelValues(normalizeLabel(outcome), normalizeLabel(status)).Inc()
}

func (s *Storefront) IncCatalogLoad(outcome string) {
	if s == nil || s.catalogLoads == nil {
		return
	}
	s.catalogLoads.WithLabelValues(normalizeLabel(outcome)).Inc()
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
