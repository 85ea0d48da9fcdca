// Package metrics exposes the service's Prometheus collectors.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	RequestTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)
	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	OrdersCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "orders_created_total",
		Help: "Orders created successfully",
	})
	OrdersDeleted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "orders_deleted_total",
		Help: "Orders deleted",
	})
	ReservationConflicts = promauto.NewCounter(prometheus.CounterOpts{
		Name: "stock_reservation_conflicts_total",
		Help: "Reservations rejected because validation failed under the stock lock",
	})
	StockReleased = promauto.NewCounter(prometheus.CounterOpts{
		Name: "stock_released_total",
		Help: "Successful compensating stock releases",
	})
	StockReleaseFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "stock_release_failures_total",
		Help: "Failed stock releases; each one needs reconciliation",
	})
	StockLockTimeouts = promauto.NewCounter(prometheus.CounterOpts{
		Name: "stock_lock_timeouts_total",
		Help: "Stock lock acquisitions that timed out",
	})
)

// Handler serves the Prometheus scrape endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveRequest records one finished HTTP request.
func ObserveRequest(method, path string, status int, duration time.Duration) {
	RequestTotal.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	RequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}
