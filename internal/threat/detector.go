package threat

import (
	"math"
	"sync"
	"time"

	"github.com/spigell/hh-screener/internal/conversation"
	"github.com/spigell/hh-screener/internal/logger"
	"github.com/spigell/hh-screener/internal/textmatch"

	"go.uber.org/zap"
)

// SessionContext is the slice of session state the detector is allowed to
// see: an identifier for the rate window and the recent message history for
// the context stage.
type SessionContext struct {
	SessionID string
	Messages  []conversation.Message
}

// Config tunes the detector. Each stage is optional; disabling a stage can
// only lower the resulting risk, never raise it.
type Config struct {
	ConfidenceThreshold float64 `mapstructure:"confidence-threshold"`
	RiskScoreThreshold  float64 `mapstructure:"risk-score-threshold"`

	// Allowlist entries short-circuit to a zero-risk result on exact match
	// of the cleaned message. Denylist entries are substring matches that
	// short-circuit to a maximum-severity result.
	Allowlist []string `mapstructure:"allowlist"`
	Denylist  []string `mapstructure:"denylist"`

	// RatePerMinute caps messages per session inside a sliding 60s window;
	// 0 disables the rate check.
	RatePerMinute int `mapstructure:"rate-per-minute"`

	DisablePatterns   bool `mapstructure:"disable-patterns"`
	DisableKeywords   bool `mapstructure:"disable-keywords"`
	DisableContext    bool `mapstructure:"disable-context"`
	DisableBehavioral bool `mapstructure:"disable-behavioral"`

	// Semantic and ML stages are forward-compatibility switches: without a
	// registered implementation they are absent from the capability set and
	// contribute nothing.
	EnableSemantic bool `mapstructure:"enable-semantic"`
	EnableML       bool `mapstructure:"enable-ml"`

	// Extra rules merged after the built-in tables.
	PatternRules []PatternRule `mapstructure:"pattern-rules"`
	KeywordRules []KeywordRule `mapstructure:"keyword-rules"`
}

const (
	defaultThreatConfidenceThreshold = 0.7
	defaultRiskScoreThreshold        = 60
)

// Stage is one detection technique. Implementations must be side-effect-free
// per message.
type Stage interface {
	Method() Method
	Inspect(message string, sctx *SessionContext) Finding
}

// Finding is one stage's contribution to the merged assessment.
type Finding struct {
	Hit bool
	// Method overrides the stage's reported method; the pre-flight stage
	// uses it to distinguish allowlist, denylist and rate-limit findings.
	Method     Method
	Confidence float64
	Severity   Severity
	Types      []Type
	Reasons    []string
	Evidence   Evidence

	// Terminal short-circuits the pipeline (pre-flight allow/deny).
	Terminal bool
	// Allowed marks a terminal zero-risk result.
	Allowed bool
}

// Detector runs the enabled stages against a message and merges their
// findings. Safe for concurrent use across sessions; the per-session rate
// window is internally locked.
type Detector struct {
	cfg    Config
	stages []Stage
	logger *zap.Logger
	stats  *Stats

	mu      sync.Mutex
	windows map[string][]time.Time
	now     func() time.Time
}

// NewDetector builds a detector with the default stage set. Extra stages
// (for example a real semantic classifier) register via RegisterStage.
func NewDetector(cfg Config, log *zap.Logger) (*Detector, error) {
	if log == nil {
		log = zap.NewNop()
	}
	if cfg.ConfidenceThreshold <= 0 {
		cfg.ConfidenceThreshold = defaultThreatConfidenceThreshold
	}
	if cfg.RiskScoreThreshold <= 0 {
		cfg.RiskScoreThreshold = defaultRiskScoreThreshold
	}

	d := &Detector{
		cfg:     cfg,
		logger:  log,
		stats:   NewStats(),
		windows: map[string][]time.Time{},
		now:     time.Now,
	}

	d.stages = append(d.stages, &preflightStage{detector: d})
	if !cfg.DisablePatterns {
		patterns := append(append([]PatternRule{}, defaultPatternRules...), cfg.PatternRules...)
		compiled, err := compilePatternRules(patterns)
		if err != nil {
			return nil, err
		}
		d.stages = append(d.stages, &patternStage{rules: compiled})
	}
	if !cfg.DisableKeywords {
		keywords := append(append([]KeywordRule{}, defaultKeywordRules...), cfg.KeywordRules...)
		d.stages = append(d.stages, &keywordStage{rules: compileKeywordRules(keywords)})
	}
	if !cfg.DisableContext {
		d.stages = append(d.stages, &contextStage{})
	}
	if !cfg.DisableBehavioral {
		d.stages = append(d.stages, &behavioralStage{})
	}

	return d, nil
}

// RegisterStage appends a caller-supplied stage (semantic, ML) to the
// pipeline. The merge contract is unchanged: the stage's finding unions into
// the assessment like any other.
func (d *Detector) RegisterStage(s Stage) {
	d.stages = append(d.stages, s)
}

// Capabilities lists the detection methods present in the pipeline. Semantic
// and ML appear only when an implementation was registered, regardless of
// configuration switches.
func (d *Detector) Capabilities() []Method {
	methods := make([]Method, 0, len(d.stages)+2)
	for _, s := range d.stages {
		if _, ok := s.(*preflightStage); ok {
			methods = append(methods, MethodAllowlist, MethodDenylist, MethodRateLimit)
			continue
		}
		methods = append(methods, s.Method())
	}
	return methods
}

// Stats exposes the running statistics aggregate.
func (d *Detector) Stats() *Stats {
	return d.stats
}

// Assess scores one message. Side-effect-free except for the rate window and
// the running statistics aggregate.
func (d *Detector) Assess(message string, sctx *SessionContext) Assessment {
	a := Assessment{Severity: SeverityLow}

	for _, s := range d.stages {
		f := s.Inspect(message, sctx)
		method := f.Method
		if method == "" {
			method = s.Method()
		}
		if f.Terminal {
			if f.Allowed {
				a = Assessment{Severity: SeverityLow}
			} else {
				a = d.merge(Assessment{Severity: SeverityLow}, f, method)
				a.RiskScore = riskScore(a)
				a.IsJailbreak = true
			}
			d.finish(&a)
			return a
		}
		if !f.Hit {
			continue
		}
		a = d.merge(a, f, method)
	}

	a.RiskScore = riskScore(a)
	a.IsJailbreak = a.Confidence >= d.cfg.ConfidenceThreshold ||
		a.RiskScore >= d.cfg.RiskScoreThreshold

	d.finish(&a)
	return a
}

// merge folds one finding into the running assessment: union of methods and
// types, max of confidence, higher severity, concatenated reasoning.
func (d *Detector) merge(a Assessment, f Finding, method Method) Assessment {
	a.Methods = appendUniqueMethod(a.Methods, method)
	for _, t := range f.Types {
		a.Types = appendUniqueType(a.Types, t)
	}
	a.Confidence = math.Max(a.Confidence, f.Confidence)
	a.Severity = a.Severity.Max(f.Severity)
	a.Reasoning = append(a.Reasoning, f.Reasons...)
	a.Evidence.merge(f.Evidence)
	return a
}

func (d *Detector) finish(a *Assessment) {
	d.stats.Record(*a)
	if a.IsJailbreak {
		logger.Security(d.logger, "jailbreak detected",
			zap.Float64("confidence", a.Confidence),
			zap.Float64("risk_score", a.RiskScore),
			zap.String("severity", string(a.Severity)),
			zap.Strings("reasoning", a.Reasoning),
		)
	}
}

// riskScore computes confidence*50*severityMultiplier + 5*|methods| +
// 10*|types|, clamped to [0, 100].
func riskScore(a Assessment) float64 {
	score := a.Confidence*50*a.Severity.multiplier() +
		5*float64(len(a.Methods)) +
		10*float64(len(a.Types))
	return math.Min(100, math.Max(0, score))
}

// allowRate records one request for the session and reports whether it stays
// inside the sliding 60-second window.
func (d *Detector) allowRate(sessionID string) bool {
	if d.cfg.RatePerMinute <= 0 || sessionID == "" {
		return true
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	now := d.now()
	cutoff := now.Add(-time.Minute)
	window := d.windows[sessionID]
	kept := window[:0]
	for _, t := range window {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}
	kept = append(kept, now)
	d.windows[sessionID] = kept

	return len(kept) <= d.cfg.RatePerMinute
}

func (d *Detector) cleanedAllowlisted(msg string) bool {
	cleaned := textmatch.CleanText(msg)
	for _, allowed := range d.cfg.Allowlist {
		if cleaned == textmatch.CleanText(allowed) {
			return true
		}
	}
	return false
}

func (d *Detector) denylisted(msg string) (string, bool) {
	for _, denied := range d.cfg.Denylist {
		if denied == "" {
			continue
		}
		if textmatch.MatchesAny(msg, []string{denied}) {
			return denied, true
		}
	}
	return "", false
}

func appendUniqueMethod(methods []Method, m Method) []Method {
	for _, existing := range methods {
		if existing == m {
			return methods
		}
	}
	return append(methods, m)
}

func appendUniqueType(types []Type, t Type) []Type {
	for _, existing := range types {
		if existing == t {
			return types
		}
	}
	return append(types, t)
}
