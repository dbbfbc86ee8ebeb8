package threat

import "sync"

// Stats is the running statistics aggregate over all assessments. Safe for
// concurrent use.
type Stats struct {
	mu sync.Mutex

	total      int
	jailbreaks int
	byType     map[Type]int
	bySeverity map[Severity]int

	sumConfidence float64
	sumRisk       float64
}

// NewStats returns an empty aggregate.
func NewStats() *Stats {
	return &Stats{
		byType:     map[Type]int{},
		bySeverity: map[Severity]int{},
	}
}

// Record folds one assessment into the aggregate.
func (s *Stats) Record(a Assessment) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.total++
	if a.IsJailbreak {
		s.jailbreaks++
	}
	for _, t := range a.Types {
		s.byType[t]++
	}
	s.bySeverity[a.Severity]++
	s.sumConfidence += a.Confidence
	s.sumRisk += a.RiskScore
}

// Snapshot is a point-in-time copy of the aggregate.
type Snapshot struct {
	Total             int              `json:"total"`
	Jailbreaks        int              `json:"jailbreaks"`
	ByType            map[Type]int     `json:"by_type"`
	BySeverity        map[Severity]int `json:"by_severity"`
	AverageConfidence float64          `json:"average_confidence"`
	AverageRisk       float64          `json:"average_risk"`
}

// Snapshot returns a copy of the current aggregate.
func (s *Stats) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := Snapshot{
		Total:      s.total,
		Jailbreaks: s.jailbreaks,
		ByType:     make(map[Type]int, len(s.byType)),
		BySeverity: make(map[Severity]int, len(s.bySeverity)),
	}
	for t, n := range s.byType {
		snap.ByType[t] = n
	}
	for sev, n := range s.bySeverity {
		snap.BySeverity[sev] = n
	}
	if s.total > 0 {
		snap.AverageConfidence = s.sumConfidence / float64(s.total)
		snap.AverageRisk = s.sumRisk / float64(s.total)
	}
	return snap
}
