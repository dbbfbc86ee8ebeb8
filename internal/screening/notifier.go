// Package screening hosts the per-message orchestration: threat assessment,
// intention classification, state transition, response selection and session
// bookkeeping.
package screening

import (
	"time"

	"go.uber.org/zap"
)

// Event kinds emitted towards the notification sink.
const (
	EventSessionStarted = "session_started"
	EventSessionClosed  = "session_closed"
	EventCVUploaded     = "cv_uploaded"
	EventSecurityAlert  = "security_alert"
)

// Event is one fire-and-forget notification for the external alerting
// system.
type Event struct {
	Kind      string         `json:"kind"`
	Severity  string         `json:"severity"`
	SessionID string         `json:"session_id"`
	At        time.Time      `json:"at"`
	Data      map[string]any `json:"data,omitempty"`
}

// Notifier consumes events. Implementations must not block the message loop;
// delivery failures are the sink's problem.
type Notifier interface {
	Notify(e Event)
}

// LogNotifier writes events to the structured log. The default sink when no
// webhook is configured.
type LogNotifier struct {
	logger *zap.Logger
}

// NewLogNotifier creates a log-backed sink. A nil logger is replaced with a
// no-op.
func NewLogNotifier(logger *zap.Logger) *LogNotifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) Notify(e Event) {
	n.logger.Info("notification event",
		zap.String("kind", e.Kind),
		zap.String("severity", e.Severity),
		zap.String("session_id", e.SessionID),
		zap.Any("data", e.Data),
	)
}

// NopNotifier drops events.
type NopNotifier struct{}

func (NopNotifier) Notify(Event) {}
