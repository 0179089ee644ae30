// Package metrics exposes Prometheus instrumentation for the dispatch
// pipeline and the HTTP surface.
package metrics

import (
	"context"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	activeEmergenciesTimeout = 2 * time.Second
)

var (
	HTTPRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total HTTP requests by route and status.",
		},
		[]string{"route", "status"},
	)
	EmergenciesReported = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "emergencies_reported_total",
			Help: "Total emergency records created.",
		},
	)
	EmergenciesResolved = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "emergencies_resolved_total",
			Help: "Total emergency records resolved.",
		},
	)
	ContactNotifyAttempts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "contact_notify_attempts_total",
			Help: "Emergency contact SMS intent attempts by result.",
		},
		[]string{"result"},
	)
	ActiveEmergencies = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "active_emergencies",
			Help: "Emergency records currently in the active state.",
		},
	)
	OutboxPending = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "outbox_pending",
			Help: "Pending outbox events not yet published.",
		},
	)
	OutboxPublishFailures = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "outbox_publish_failures_total",
			Help: "Total outbox publish failures.",
		},
	)
	MetricsScrapeErrors = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "metrics_scrape_errors_total",
			Help: "Total metrics scrape errors.",
		},
	)
)

func init() {
	prometheus.MustRegister(
		HTTPRequests,
		EmergenciesReported,
		EmergenciesResolved,
		ContactNotifyAttempts,
		ActiveEmergencies,
		OutboxPending,
		OutboxPublishFailures,
		MetricsScrapeErrors,
	)
}

// Handler returns the /metrics scrape handler. The active-emergencies and
// outbox-pending gauges are refreshed from the database on every scrape.
func Handler(pool *pgxpool.Pool) echo.HandlerFunc {
	h := promhttp.Handler()
	return func(c echo.Context) error {
		if pool != nil {
			updateGauges(pool)
		}
		h.ServeHTTP(c.Response(), c.Request())
		return nil
	}
}

// Middleware counts finished requests by route template and status code.
func Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			err := next(c)

			status := c.Response().Status
			if he, ok := err.(*echo.HTTPError); ok {
				status = he.Code
			}
			route := c.Path()
			if route == "" {
				route = c.Request().URL.Path
			}
			HTTPRequests.WithLabelValues(route, http.StatusText(status)).Inc()

			return err
		}
	}
}

func updateGauges(pool *pgxpool.Pool) {
	ctx, cancel := context.WithTimeout(context.Background(), activeEmergenciesTimeout)
	defer cancel()

	var active int64
	if err := pool.QueryRow(ctx, "SELECT count(*) FROM emergencies WHERE status = 'active'").Scan(&active); err != nil {
		MetricsScrapeErrors.Inc()
	} else {
		ActiveEmergencies.Set(float64(active))
	}

	var pending int64
	if err := pool.QueryRow(ctx, "SELECT count(*) FROM outbox_events WHERE published_at IS NULL").Scan(&pending); err != nil {
		MetricsScrapeErrors.Inc()
	} else {
		OutboxPending.Set(float64(pending))
	}
}
