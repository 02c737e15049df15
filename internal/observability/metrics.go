package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	registry *prometheus.Registry

	// HTTP request rate for the screen surface.
	HTTPRequestsTotal *prometheus.CounterVec

	// HTTP request latency per request.
	HTTPRequestDuration *prometheus.HistogramVec

	// Concurrent HTTP requests being served.
	HTTPRequestsInFlight prometheus.Gauge

	// Completed fetch flows by outcome (success, location_failed, weather_failed).
	// Watch for: location_failed spikes (locator misconfigured or provider down).
	FetchesTotal *prometheus.CounterVec

	// End-to-end latency of one location+weather flow.
	FetchDuration prometheus.Histogram

	// Fetch flows currently running. Values above 1 mean overlapping refreshes.
	FetchesInFlight prometheus.Gauge

	// Position lookups per provider and status.
	LocationLookupsTotal *prometheus.CounterVec

	// OpenWeatherMap API call rate. Watch for: error vs success ratio.
	WeatherAPICallsTotal *prometheus.CounterVec

	// External API latency per request.
	WeatherAPIDuration *prometheus.HistogramVec

	// Weather API failures by stable category (see client.CategorizeError).
	WeatherAPIErrorsTotal *prometheus.CounterVec

	// User-facing alerts raised by the screen.
	AlertsShownTotal prometheus.Counter

	// Pull-to-refresh gestures accepted.
	RefreshRequestsTotal prometheus.Counter

	// Pull-to-refresh gestures rejected (limiter or overlap guard).
	RefreshDeniedTotal *prometheus.CounterVec
)

func init() {
	registry = prometheus.NewRegistry()

	registry.MustRegister(
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		collectors.NewGoCollector(),
	)

	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "httpRequestsTotal",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "statusCode"},
	)
	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "httpRequestDurationSeconds",
			Help:    "HTTP request latency in seconds (per request)",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)
	HTTPRequestsInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "httpRequestsInFlight",
			Help: "Number of HTTP requests currently being served",
		},
	)
	FetchesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fetchesTotal",
			Help: "Total number of completed location+weather fetch flows",
		},
		[]string{"outcome"},
	)
	FetchDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "fetchDurationSeconds",
			Help:    "Latency of a full location+weather fetch flow in seconds",
			Buckets: []float64{.1, .25, .5, 1, 2.5, 5, 10, 30},
		},
	)
	FetchesInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "fetchesInFlight",
			Help: "Number of fetch flows currently running",
		},
	)
	LocationLookupsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "locationLookupsTotal",
			Help: "Total number of one-shot position lookups",
		},
		[]string{"provider", "status"},
	)
	WeatherAPICallsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "weatherApiCallsTotal",
			Help: "Total number of OpenWeatherMap API calls",
		},
		[]string{"status"},
	)
	WeatherAPIDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "weatherApiDurationSeconds",
			Help:    "OpenWeatherMap API latency in seconds (per request)",
			Buckets: []float64{.1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"status"},
	)
	WeatherAPIErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "weatherApiErrorsTotal",
			Help: "OpenWeatherMap API failures by category",
		},
		[]string{"category"},
	)
	AlertsShownTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "alertsShownTotal",
			Help: "Total number of user-facing alerts raised",
		},
	)
	RefreshRequestsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "refreshRequestsTotal",
			Help: "Total number of accepted pull-to-refresh gestures",
		},
	)
	RefreshDeniedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "refreshDeniedTotal",
			Help: "Total number of rejected pull-to-refresh gestures",
		},
		[]string{"reason"},
	)

	registry.MustRegister(
		HTTPRequestsTotal, HTTPRequestDuration, HTTPRequestsInFlight,
		FetchesTotal, FetchDuration, FetchesInFlight,
		LocationLookupsTotal,
		WeatherAPICallsTotal, WeatherAPIDuration, WeatherAPIErrorsTotal,
		AlertsShownTotal,
		RefreshRequestsTotal, RefreshDeniedTotal,
	)
}

// MetricsHandler returns an http.Handler that serves application and runtime metrics.
func MetricsHandler() http.Handler {
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
}
