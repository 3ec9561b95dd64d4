// Package metrics содержит счетчики Prometheus для вебхуков и писем.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// WebhooksProcessed вебхуки, завершившиеся апсертом покупки, по статусу.
	WebhooksProcessed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "payment_webhooks_processed_total",
		Help: "Processed payment webhooks by canonical status.",
	}, []string{"status"})

	// WebhooksRejected вебхуки, отклоненные до записи в базу.
	WebhooksRejected = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "payment_webhooks_rejected_total",
		Help: "Rejected payment webhooks by reason.",
	}, []string{"reason"})

	// EmailsDispatched попытки отправки писем по виду и исходу.
	EmailsDispatched = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "emails_dispatched_total",
		Help: "Transactional email dispatches by kind and outcome.",
	}, []string{"kind", "outcome"})
)
