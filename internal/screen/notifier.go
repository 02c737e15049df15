package screen

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kjstillabower/weatherview/internal/observability"
)

// Notifier surfaces a single text message to the user.
type Notifier interface {
	Notify(message string)
}

// Alert is one user-facing message awaiting dismissal.
type Alert struct {
	ID       string    `json:"id"`
	Message  string    `json:"message"`
	RaisedAt time.Time `json:"raisedAt"`
}

// DefaultMaxAlerts bounds the AlertQueue; the oldest alert is dropped first.
const DefaultMaxAlerts = 20

// AlertQueue holds raised alerts until the user dismisses them.
type AlertQueue struct {
	mu     sync.Mutex
	alerts []Alert
	max    int
	logger *zap.Logger
}

// NewAlertQueue returns an empty queue holding at most max alerts
// (DefaultMaxAlerts when max <= 0).
func NewAlertQueue(logger *zap.Logger, max int) *AlertQueue {
	if logger == nil {
		logger = zap.NewNop()
	}
	if max <= 0 {
		max = DefaultMaxAlerts
	}
	return &AlertQueue{max: max, logger: logger}
}

func (q *AlertQueue) Notify(message string) {
	alert := Alert{
		ID:       uuid.NewString(),
		Message:  message,
		RaisedAt: time.Now(),
	}

	q.mu.Lock()
	q.alerts = append(q.alerts, alert)
	if len(q.alerts) > q.max {
		q.alerts = q.alerts[len(q.alerts)-q.max:]
	}
	q.mu.Unlock()

	observability.AlertsShownTotal.Inc()
	q.logger.Warn("alert raised", zap.String("alert_id", alert.ID), zap.String("message", message))
}

// Pending returns the undismissed alerts, oldest first.
func (q *AlertQueue) Pending() []Alert {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]Alert, len(q.alerts))
	copy(out, q.alerts)
	return out
}

// Dismiss removes the alert with id and reports whether it existed.
func (q *AlertQueue) Dismiss(id string) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	for i, a := range q.alerts {
		if a.ID == id {
			q.alerts = append(q.alerts[:i], q.alerts[i+1:]...)
			return true
		}
	}
	return false
}
