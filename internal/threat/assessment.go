// Package threat scores candidate messages for jailbreak and prompt-injection
// risk. Several independent detection stages inspect a message and their
// findings merge into one immutable assessment.
package threat

// Severity is a totally ordered risk severity.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// Rank positions a severity inside the total order low < medium < high <
// critical. Unknown severities rank below low.
func (s Severity) Rank() int {
	switch s {
	case SeverityLow:
		return 1
	case SeverityMedium:
		return 2
	case SeverityHigh:
		return 3
	case SeverityCritical:
		return 4
	default:
		return 0
	}
}

// Max returns the higher of two severities.
func (s Severity) Max(other Severity) Severity {
	if other.Rank() > s.Rank() {
		return other
	}
	return s
}

// multiplier weights the risk-score contribution of a severity.
func (s Severity) multiplier() float64 {
	switch s {
	case SeverityCritical:
		return 1.2
	case SeverityHigh:
		return 1.0
	case SeverityMedium:
		return 0.8
	default:
		return 0.6
	}
}

// Type classifies what kind of threat a finding represents.
type Type string

const (
	TypePromptInjection     Type = "prompt_injection"
	TypeInstructionOverride Type = "instruction_override"
	TypeRoleManipulation    Type = "role_manipulation"
	TypeContextManipulation Type = "context_manipulation"
	TypeEncodingBypass      Type = "encoding_bypass"
	TypeRateAbuse           Type = "rate_abuse"
	TypeDeniedInput         Type = "denied_input"
)

// Method identifies one detection technique contributing to an assessment.
type Method string

const (
	MethodAllowlist  Method = "allowlist"
	MethodDenylist   Method = "denylist"
	MethodRateLimit  Method = "rate_limit"
	MethodPattern    Method = "pattern"
	MethodKeyword    Method = "keyword"
	MethodContext    Method = "context"
	MethodBehavioral Method = "behavioral"
	MethodSemantic   Method = "semantic"
	MethodML         Method = "ml"
)

// Evidence carries the raw matches backing an assessment.
type Evidence struct {
	Patterns     []string `json:"patterns,omitempty"`
	Keywords     []string `json:"keywords,omitempty"`
	ContextFlags []string `json:"context_flags,omitempty"`
}

func (e *Evidence) merge(other Evidence) {
	e.Patterns = append(e.Patterns, other.Patterns...)
	e.Keywords = append(e.Keywords, other.Keywords...)
	e.ContextFlags = append(e.ContextFlags, other.ContextFlags...)
}

// Assessment is the aggregated verdict of all enabled stages for one message.
// Produced fresh per message and never mutated afterwards.
type Assessment struct {
	IsJailbreak bool     `json:"is_jailbreak"`
	Severity    Severity `json:"severity"`
	Confidence  float64  `json:"confidence"`
	Methods     []Method `json:"methods,omitempty"`
	Types       []Type   `json:"types,omitempty"`
	RiskScore   float64  `json:"risk_score"`
	Reasoning   []string `json:"reasoning,omitempty"`
	Evidence    Evidence `json:"evidence"`
}
