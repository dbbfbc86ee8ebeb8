package screening

import (
	"sync"

	"github.com/spigell/hh-screener/internal/conversation"
)

// smoothingAlpha is the weight of the newest observation in the
// exponentially smoothed confidence estimate.
const smoothingAlpha = 0.2

// Analytics is the running aggregate over all processed messages. Safe for
// concurrent use across sessions.
type Analytics struct {
	mu sync.Mutex

	processed          int
	securityEvents     int
	intentions         map[conversation.Intention]int
	smoothedConfidence float64
}

// NewAnalytics returns an empty aggregate.
func NewAnalytics() *Analytics {
	return &Analytics{intentions: map[conversation.Intention]int{}}
}

// Record folds one processed message into the aggregate.
func (a *Analytics) Record(in conversation.Intention, confidence float64, security bool) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.processed++
	if security {
		a.securityEvents++
	}
	if in != "" {
		a.intentions[in]++
	}

	if a.processed == 1 {
		a.smoothedConfidence = confidence
	} else {
		a.smoothedConfidence = smoothingAlpha*confidence + (1-smoothingAlpha)*a.smoothedConfidence
	}
}

// AnalyticsSnapshot is a point-in-time copy of the aggregate.
type AnalyticsSnapshot struct {
	Processed          int                            `json:"processed"`
	SecurityEvents     int                            `json:"security_events"`
	Intentions         map[conversation.Intention]int `json:"intentions"`
	SmoothedConfidence float64                        `json:"smoothed_confidence"`
}

// Snapshot returns a copy of the current aggregate.
func (a *Analytics) Snapshot() AnalyticsSnapshot {
	a.mu.Lock()
	defer a.mu.Unlock()

	snap := AnalyticsSnapshot{
		Processed:          a.processed,
		SecurityEvents:     a.securityEvents,
		Intentions:         make(map[conversation.Intention]int, len(a.intentions)),
		SmoothedConfidence: a.smoothedConfidence,
	}
	for in, n := range a.intentions {
		snap.Intentions[in] = n
	}
	return snap
}
