package http

import (
	"context"
	"encoding/json"
	"errors"
	"html/template"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/kjstillabower/weatherview/internal/lifecycle"
	"github.com/kjstillabower/weatherview/internal/models"
	"github.com/kjstillabower/weatherview/internal/observability"
	"github.com/kjstillabower/weatherview/internal/screen"
	"github.com/kjstillabower/weatherview/internal/traffic"
)

// Screen is the weather screen as seen by the HTTP surface.
type Screen interface {
	View() screen.View
	Snapshot() models.Snapshot
	Refresh(ctx context.Context) error
	Mounted() bool
}

// Alerts exposes the pending user-facing alerts.
type Alerts interface {
	Pending() []screen.Alert
	Dismiss(id string) bool
}

// Handler holds dependencies for HTTP handlers.
type Handler struct {
	screen Screen
	alerts Alerts
	logger *zap.Logger
	page   *template.Template
}

// NewHandler returns a new Handler. alerts may be nil.
func NewHandler(s Screen, alerts Alerts, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		screen: s,
		alerts: alerts,
		logger: logger,
		page:   template.Must(template.New("screen").Parse(screenPage)),
	}
}

type pageData struct {
	View   screen.View
	Alerts []screen.Alert
}

// GetScreen handles GET /. It renders HTML, or plain text when the client
// asks for text/plain only.
func (h *Handler) GetScreen(w http.ResponseWriter, r *http.Request) {
	view := h.screen.View()
	if prefersPlainText(r) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		if err := screen.RenderText(w, view); err != nil {
			observability.LoggerFromContext(r.Context(), h.logger).Debug("render text", zap.Error(err))
		}
		return
	}

	data := pageData{View: view, Alerts: h.pendingAlerts()}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	if err := h.page.Execute(w, data); err != nil {
		observability.LoggerFromContext(r.Context(), h.logger).Error("render page", zap.Error(err))
	}
}

// GetSnapshot handles GET /snapshot.
func (h *Handler) GetSnapshot(w http.ResponseWriter, r *http.Request) {
	snap := h.screen.Snapshot()
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"snapshot": snap,
		"view":     screen.Render(snap),
	})
}

// PostRefresh handles POST /refresh, the pull-to-refresh gesture.
func (h *Handler) PostRefresh(w http.ResponseWriter, r *http.Request) {
	err := h.screen.Refresh(r.Context())
	switch {
	case errors.Is(err, screen.ErrRefreshInProgress):
		writeError(w, r, http.StatusConflict, "REFRESH_IN_PROGRESS", "A refresh is already running")
		return
	case errors.Is(err, screen.ErrNotMounted):
		writeError(w, r, http.StatusServiceUnavailable, "SCREEN_UNMOUNTED", "Screen is not mounted")
		return
	case err != nil:
		observability.LoggerFromContext(r.Context(), h.logger).Error("refresh", zap.Error(err))
		writeError(w, r, http.StatusInternalServerError, "REFRESH_FAILED", "Unable to start refresh")
		return
	}

	observability.RefreshRequestsTotal.Inc()
	if wantsHTML(r) {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]interface{}{
		"accepted": true,
		"view":     h.screen.View(),
	})
}

// GetAlerts handles GET /alerts.
func (h *Handler) GetAlerts(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{"alerts": h.pendingAlerts()})
}

// PostDismissAlert handles POST /alerts/{id}/dismiss.
func (h *Handler) PostDismissAlert(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if h.alerts == nil || !h.alerts.Dismiss(id) {
		writeError(w, r, http.StatusNotFound, "ALERT_NOT_FOUND", "no pending alert with id "+id)
		return
	}
	if wantsHTML(r) {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetHealth handles GET /health.
// Decision order: shutting-down > unmounted > healthy.
func (h *Handler) GetHealth(w http.ResponseWriter, r *http.Request) {
	mounted := h.screen.Mounted()
	status, code := "healthy", http.StatusOK
	switch {
	case lifecycle.IsShuttingDown():
		status, code = "shutting-down", http.StatusServiceUnavailable
	case !mounted:
		status, code = "unmounted", http.StatusServiceUnavailable
	}

	snap := h.screen.Snapshot()
	checks := map[string]string{"screen": "mounted", "weather": "empty"}
	if !mounted {
		checks["screen"] = "unmounted"
	}
	if snap.Valid() {
		checks["weather"] = "loaded"
	}

	resp := map[string]interface{}{
		"status":    status,
		"service":   "weatherview",
		"version":   "dev",
		"phase":     lifecycle.CurrentPhase().String(),
		"checks":    checks,
		"fetches":   traffic.Recent(traffic.DefaultWindow),
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}
	if !snap.UpdatedAt.IsZero() {
		resp["lastUpdate"] = snap.UpdatedAt.UTC().Format(time.RFC3339)
	}
	writeJSON(w, code, resp)
}

func (h *Handler) pendingAlerts() []screen.Alert {
	if h.alerts == nil {
		return []screen.Alert{}
	}
	return h.alerts.Pending()
}

func prefersPlainText(r *http.Request) bool {
	accept := r.Header.Get("Accept")
	return strings.Contains(accept, "text/plain") && !strings.Contains(accept, "text/html")
}

func wantsHTML(r *http.Request) bool {
	return strings.Contains(r.Header.Get("Accept"), "text/html")
}

// writeJSON writes a JSON response with the specified HTTP status code.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError writes an error response in the standard error format with code, message,
// and requestId (correlation ID) if available in request context.
func writeError(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	writeJSON(w, status, map[string]interface{}{
		"error": map[string]string{
			"code":      code,
			"message":   message,
			"requestId": observability.CorrelationID(r.Context()),
		},
	})
}
