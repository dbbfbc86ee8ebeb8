package threat

// RiskTier is the qualitative overall-risk bucket derived from a risk score.
type RiskTier string

const (
	TierLow      RiskTier = "low"
	TierMedium   RiskTier = "medium"
	TierHigh     RiskTier = "high"
	TierCritical RiskTier = "critical"
)

// Action is the recommended security response.
type Action string

const (
	ActionBlock         Action = "block"
	ActionWarnRateLimit Action = "warn_and_rate_limit"
	ActionLog           Action = "log"
)

// Analysis is the qualitative view over one assessment.
type Analysis struct {
	OverallRisk RiskTier `json:"overall_risk"`
	Mitigations []string `json:"mitigations,omitempty"`
	Action      Action   `json:"recommended_action"`
}

// Analyze re-derives a qualitative risk tier from the assessment's score,
// lists per-type mitigation suggestions and recommends a security action
// keyed off the severity.
func Analyze(a Assessment) Analysis {
	out := Analysis{
		OverallRisk: tierForScore(a.RiskScore),
		Action:      actionForSeverity(a.Severity),
	}

	for _, t := range a.Types {
		if m, ok := mitigations[t]; ok {
			out.Mitigations = append(out.Mitigations, m)
		}
	}

	return out
}

func tierForScore(score float64) RiskTier {
	switch {
	case score >= 90:
		return TierCritical
	case score >= 70:
		return TierHigh
	case score >= 40:
		return TierMedium
	default:
		return TierLow
	}
}

func actionForSeverity(s Severity) Action {
	switch s {
	case SeverityCritical, SeverityHigh:
		return ActionBlock
	case SeverityMedium:
		return ActionWarnRateLimit
	default:
		return ActionLog
	}
}

var mitigations = map[Type]string{
	TypePromptInjection:     "strip instruction-like content before forwarding the message",
	TypeInstructionOverride: "refuse instruction-override requests and restate the assistant scope",
	TypeRoleManipulation:    "pin the assistant role; ignore persona-change requests",
	TypeContextManipulation: "reset the conversation context after repeated suspicious turns",
	TypeEncodingBypass:      "reject messages containing opaque encoded payloads",
	TypeRateAbuse:           "throttle the session and require a cool-down period",
	TypeDeniedInput:         "keep the deny list entry and review the session transcript",
}
