package metrics

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "monopay"

var (
	// ProviderRequestTotal counts outbound provider calls by endpoint and result.
	ProviderRequestTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "provider_requests_total",
		Help:      "Count of Monobank API calls by endpoint and result.",
	}, []string{"endpoint", "result"})

	// ProviderRequestDuration records provider call latency in seconds.
	ProviderRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "provider_request_duration_seconds",
		Help:      "Latency of Monobank API calls in seconds.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"endpoint"})

	// PaymentLinkTotal counts payment link requests by result.
	PaymentLinkTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "payment_link_total",
		Help:      "Count of payment link creation outcomes.",
	}, []string{"result"})

	// PaymentWebhookTotal counts inbound notifications by outcome.
	PaymentWebhookTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "payment_webhook_total",
		Help:      "Count of processed payment webhooks by outcome.",
	}, []string{"outcome"})
)

func collectors() []prometheus.Collector {
	return []prometheus.Collector{
		ProviderRequestTotal,
		ProviderRequestDuration,
		PaymentLinkTotal,
		PaymentWebhookTotal,
	}
}

// Register adds the payment collectors to reg. Registering twice is not an error.
func Register(reg prometheus.Registerer) error {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	for _, c := range collectors() {
		if err := reg.Register(c); err != nil {
			var already prometheus.AlreadyRegisteredError
			if errors.As(err, &already) {
				continue
			}
			return err
		}
	}
	return nil
}

// ObserveProviderRequest records one provider call started at t.
func ObserveProviderRequest(endpoint string, t *Timer, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	ProviderRequestTotal.WithLabelValues(endpoint, result).Inc()
	ProviderRequestDuration.WithLabelValues(endpoint).Observe(t.Duration().Seconds())
}
