package threat

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/spigell/hh-screener/internal/textmatch"
)

// preflightStage runs the allow/deny lists and the rate window before any
// scoring stage. Its findings are terminal.
type preflightStage struct {
	detector *Detector
}

func (s *preflightStage) Method() Method { return MethodAllowlist }

func (s *preflightStage) Inspect(message string, sctx *SessionContext) Finding {
	if s.detector.cleanedAllowlisted(message) {
		return Finding{Terminal: true, Allowed: true, Method: MethodAllowlist}
	}

	if denied, ok := s.detector.denylisted(message); ok {
		return Finding{
			Terminal:   true,
			Hit:        true,
			Method:     MethodDenylist,
			Confidence: 1.0,
			Severity:   SeverityCritical,
			Types:      []Type{TypeDeniedInput},
			Reasons:    []string{"message matches the deny list"},
			Evidence:   Evidence{Keywords: []string{denied}},
		}
	}

	sessionID := ""
	if sctx != nil {
		sessionID = sctx.SessionID
	}
	if !s.detector.allowRate(sessionID) {
		return Finding{
			Terminal:   true,
			Hit:        true,
			Method:     MethodRateLimit,
			Confidence: 1.0,
			Severity:   SeverityCritical,
			Types:      []Type{TypeRateAbuse},
			Reasons:    []string{"per-session rate ceiling exceeded"},
			Evidence:   Evidence{ContextFlags: []string{"rate_limit_exceeded"}},
		}
	}

	return Finding{}
}

// patternStage evaluates the regexp rule table; every match contributes.
type patternStage struct {
	rules []compiledPatternRule
}

func (s *patternStage) Method() Method { return MethodPattern }

func (s *patternStage) Inspect(message string, _ *SessionContext) Finding {
	f := Finding{Severity: SeverityLow}
	for _, c := range s.rules {
		m := c.re.FindString(message)
		if m == "" {
			continue
		}
		f.Hit = true
		if c.rule.Confidence > f.Confidence {
			f.Confidence = c.rule.Confidence
		}
		f.Severity = f.Severity.Max(c.rule.Severity)
		f.Types = append(f.Types, c.rule.Type)
		f.Reasons = append(f.Reasons, fmt.Sprintf("pattern rule hit: %s", c.rule.Type))
		f.Evidence.Patterns = append(f.Evidence.Patterns, m)
	}
	return f
}

// keywordStage evaluates the literal keyword rule sets.
type keywordStage struct {
	rules []compiledKeywordRule
}

func (s *keywordStage) Method() Method { return MethodKeyword }

func (s *keywordStage) Inspect(message string, _ *SessionContext) Finding {
	f := Finding{Severity: SeverityLow}
	for _, c := range s.rules {
		for _, match := range c.matchers {
			kw, ok := match(message)
			if !ok {
				continue
			}
			f.Hit = true
			if c.rule.Confidence > f.Confidence {
				f.Confidence = c.rule.Confidence
			}
			f.Severity = f.Severity.Max(c.rule.Severity)
			f.Types = append(f.Types, c.rule.Type)
			f.Reasons = append(f.Reasons, fmt.Sprintf("keyword rule hit: %s", c.rule.Type))
			f.Evidence.Keywords = append(f.Evidence.Keywords, kw)
		}
	}
	return f
}

const (
	contextWindow       = 5
	repeatedTermMinimum = 3
	rapidMessageGap     = 2 * time.Second
)

// contextStage inspects the recent session history: repeated suspicious
// terms across the last messages and abnormally short inter-message gaps.
type contextStage struct{}

func (s *contextStage) Method() Method { return MethodContext }

func (s *contextStage) Inspect(message string, sctx *SessionContext) Finding {
	if sctx == nil || len(sctx.Messages) == 0 {
		return Finding{}
	}

	recent := sctx.Messages
	if len(recent) > contextWindow {
		recent = recent[len(recent)-contextWindow:]
	}

	f := Finding{Severity: SeverityLow}

	texts := make([]string, 0, len(recent)+1)
	for _, m := range recent {
		texts = append(texts, textmatch.CleanText(m.Content))
	}
	texts = append(texts, textmatch.CleanText(message))

	for _, term := range suspiciousTerms {
		count := 0
		for _, t := range texts {
			count += strings.Count(t, term)
		}
		if count >= repeatedTermMinimum {
			f.Hit = true
			f.Severity = f.Severity.Max(SeverityHigh)
			if f.Confidence < 0.7 {
				f.Confidence = 0.7
			}
			f.Types = append(f.Types, TypeContextManipulation)
			f.Reasons = append(f.Reasons,
				fmt.Sprintf("suspicious term %q repeated %d times in recent history", term, count))
			f.Evidence.ContextFlags = append(f.Evidence.ContextFlags, "repeated_term:"+term)
		}
	}

	for i := 1; i < len(recent); i++ {
		gap := recent[i].Timestamp.Sub(recent[i-1].Timestamp)
		if gap > 0 && gap < rapidMessageGap {
			f.Hit = true
			if f.Confidence < 0.3 {
				f.Confidence = 0.3
			}
			f.Reasons = append(f.Reasons, "abnormally short inter-message gap")
			f.Evidence.ContextFlags = append(f.Evidence.ContextFlags, "rapid_messages")
			break
		}
	}

	return f
}

const (
	longMessageLimit = 1000
	encodedRunLimit  = 20
)

var (
	base64RunRe = regexp.MustCompile(`[A-Za-z0-9+/=]{21,}`)
	hexRunRe    = regexp.MustCompile(`(?i)\b[0-9a-f]{21,}\b`)
)

// behavioralStage flags excessively long messages and apparent base64 or
// hex-encoded tokens.
type behavioralStage struct{}

func (s *behavioralStage) Method() Method { return MethodBehavioral }

func (s *behavioralStage) Inspect(message string, _ *SessionContext) Finding {
	f := Finding{Severity: SeverityLow}

	if len(message) > longMessageLimit {
		f.Hit = true
		f.Confidence = 0.3
		f.Reasons = append(f.Reasons,
			fmt.Sprintf("message length %d exceeds %d characters", len(message), longMessageLimit))
		f.Evidence.ContextFlags = append(f.Evidence.ContextFlags, "excessive_length")
	}

	if tok := hexRunRe.FindString(message); tok != "" {
		f.Hit = true
		if f.Confidence < 0.6 {
			f.Confidence = 0.6
		}
		f.Severity = f.Severity.Max(SeverityMedium)
		f.Types = append(f.Types, TypeEncodingBypass)
		f.Reasons = append(f.Reasons, "hex-encoded token detected")
		f.Evidence.Patterns = append(f.Evidence.Patterns, tok)
	} else if tok := base64RunRe.FindString(message); tok != "" {
		f.Hit = true
		if f.Confidence < 0.6 {
			f.Confidence = 0.6
		}
		f.Severity = f.Severity.Max(SeverityMedium)
		f.Types = append(f.Types, TypeEncodingBypass)
		f.Reasons = append(f.Reasons, "base64-encoded token detected")
		f.Evidence.Patterns = append(f.Evidence.Patterns, tok)
	}

	return f
}
