package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "countrypulse_requests_total",
			Help: "Total number of requests per route",
		},
		[]string{"route", "method"},
	)

	RequestDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "countrypulse_request_duration_seconds",
			Help:    "Request duration in seconds per route",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route"},
	)

	RequestErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "countrypulse_request_errors_total",
			Help: "Total number of error responses per route and status code",
		},
		[]string{"route", "code"},
	)

	UpstreamFetchDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "countrypulse_upstream_fetch_duration_seconds",
			Help:    "Duration of upstream fetches per source",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"upstream"},
	)

	UpstreamFetchErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "countrypulse_upstream_fetch_errors_total",
			Help: "Total number of failed upstream fetches per source",
		},
		[]string{"upstream"},
	)

	RefreshTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "countrypulse_refresh_total",
			Help: "Total number of refresh attempts",
		},
	)

	RefreshFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "countrypulse_refresh_failures_total",
			Help: "Total number of failed refreshes per reason",
		},
		[]string{"reason"},
	)

	RefreshCountries = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "countrypulse_refresh_countries",
			Help: "Number of countries written by the last successful refresh",
		},
	)

	LastRefreshTimestamp = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "countrypulse_last_refresh_timestamp",
			Help: "Unix timestamp of the last successful refresh",
		},
	)

	DBPoolTotalConns = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "countrypulse_db_pool_total_conns",
			Help: "Total number of connections in the DB pool per driver",
		},
		[]string{"driver"},
	)

	DBPoolIdleConns = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "countrypulse_db_pool_idle_conns",
			Help: "Idle connections in the DB pool per driver",
		},
		[]string{"driver"},
	)

	DBPoolAcquiredConns = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "countrypulse_db_pool_acquired_conns",
			Help: "Currently acquired (in-use) connections per driver",
		},
		[]string{"driver"},
	)
)

// ObserveRefresh records the outcome of a refresh attempt.
func ObserveRefresh(written int, finished time.Time, err error, reason string) {
	RefreshTotal.Inc()
	if err != nil {
		RefreshFailuresTotal.WithLabelValues(reason).Inc()
		return
	}
	RefreshCountries.Set(float64(written))
	LastRefreshTimestamp.Set(float64(finished.Unix()))
}

// UpdateDBPoolMetrics publishes pool stats for a storage driver.
func UpdateDBPoolMetrics(driver string, total, idle, acquired float64) {
	DBPoolTotalConns.WithLabelValues(driver).Set(total)
	DBPoolIdleConns.WithLabelValues(driver).Set(idle)
	DBPoolAcquiredConns.WithLabelValues(driver).Set(acquired)
}
