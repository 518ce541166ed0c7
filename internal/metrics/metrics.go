package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "supperclub"

var (
	once sync.Once

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by route and status code.",
		},
		[]string{"route", "code"},
	)

	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"route"},
	)

	operations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "operations_total",
			Help:      "Engine operations by name and outcome kind.",
		},
		[]string{"operation", "outcome"},
	)

	couponRedemptions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "coupon_redemptions_total",
			Help:      "Coupon outcomes on booking creation by result.",
		},
		[]string{"result"},
	)

	notifications = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_total",
			Help:      "Notifications by type and delivery state.",
		},
		[]string{"type", "state"},
	)

	domainEvents = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "domain_events_total",
			Help:      "Published domain events by type.",
		},
		[]string{"type"},
	)
)

// Register registers Prometheus metrics. Safe to call multiple times.
func Register() {
	once.Do(func() {
		prometheus.MustRegister(httpRequests, httpDuration, operations, couponRedemptions, notifications, domainEvents)
	})
}

// ObserveHTTP records one served request.
func ObserveHTTP(route, code string, elapsed time.Duration) {
	httpRequests.WithLabelValues(route, code).Inc()
	httpDuration.WithLabelValues(route).Observe(elapsed.Seconds())
}

// IncOperation counts an engine operation; outcome is "ok" or an error kind.
func IncOperation(operation, outcome string) {
	operations.WithLabelValues(operation, outcome).Inc()
}

// IncCoupon counts a coupon outcome: "applied" or a rejection reason.
func IncCoupon(result string) {
	couponRedemptions.WithLabelValues(result).Inc()
}

// IncNotification counts a notification transition: queued, delivered, retried, dead.
func IncNotification(notificationType, state string) {
	notifications.WithLabelValues(notificationType, state).Inc()
}

// IncEvent counts a published domain event.
func IncEvent(eventType string) {
	domainEvents.WithLabelValues(eventType).Inc()
}
