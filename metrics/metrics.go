// Package metrics holds the Prometheus collectors exported on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "marketplace_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "marketplace_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	NotificationChannelsOpen = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "marketplace_notification_channels_open",
			Help: "Number of open notification channels",
		},
	)

	NotificationsDelivered = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "marketplace_notifications_delivered_total",
			Help: "Notification messages written to channels",
		},
		[]string{"kind", "result"},
	)

	EmailsSent = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "marketplace_emails_sent_total",
			Help: "Outbound emails by template and result",
		},
		[]string{"template", "result"},
	)

	ActionTokensPurged = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "marketplace_action_tokens_purged_total",
			Help: "Expired action tokens removed by the scheduler",
		},
	)
)
