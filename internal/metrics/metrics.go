// Package metrics содержит Prometheus-метрики сервиса платежей.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// PaymentsTotal счётчик завершённых workflow по типу оплаты и исходу.
	PaymentsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "console_payments_total",
		Help: "Terminal payment workflow outcomes by payment type and outcome.",
	}, []string{"type", "outcome"})

	// WorkflowsInFlight количество незавершённых workflow.
	WorkflowsInFlight = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "console_payment_workflows_in_flight",
		Help: "Payment workflows that have started but not yet reached a terminal state.",
	})

	// GatewayRequestDuration длительность вызовов платёжного шлюза.
	GatewayRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "console_payment_gateway_request_seconds",
		Help:    "Duration of payment gateway calls.",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation"})
)
