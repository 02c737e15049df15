package http

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"golang.org/x/time/rate"

	"github.com/kjstillabower/weatherview/internal/observability"
)

// RouterConfig carries the per-route policies applied by NewRouter.
type RouterConfig struct {
	RequestTimeout time.Duration
	// RefreshLimiter throttles POST /refresh; nil disables it.
	RefreshLimiter *rate.Limiter
}

// NewRouter registers the screen routes on a gorilla/mux router.
func NewRouter(h *Handler, cfg RouterConfig) *mux.Router {
	router := mux.NewRouter()
	router.Use(CorrelationIDMiddleware(h.logger))
	router.Use(MetricsMiddleware)

	router.HandleFunc("/health", h.GetHealth).Methods(http.MethodGet)
	router.Handle("/metrics", observability.MetricsHandler()).Methods(http.MethodGet)

	timeout := func(next http.Handler) http.Handler { return next }
	if cfg.RequestTimeout > 0 {
		timeout = TimeoutMiddleware(cfg.RequestTimeout)
	}
	router.Handle("/", timeout(http.HandlerFunc(h.GetScreen))).Methods(http.MethodGet)
	router.Handle("/snapshot", timeout(http.HandlerFunc(h.GetSnapshot))).Methods(http.MethodGet)
	router.Handle("/alerts", timeout(http.HandlerFunc(h.GetAlerts))).Methods(http.MethodGet)
	router.Handle("/alerts/{id}/dismiss", timeout(http.HandlerFunc(h.PostDismissAlert))).Methods(http.MethodPost)
	router.Handle("/refresh", timeout(RateLimitMiddleware(cfg.RefreshLimiter)(http.HandlerFunc(h.PostRefresh)))).Methods(http.MethodPost)

	return router
}
