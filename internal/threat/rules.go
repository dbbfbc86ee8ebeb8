package threat

import (
	"fmt"
	"regexp"
	"strings"
)

// PatternRule is one regexp-based detection rule.
type PatternRule struct {
	Pattern    string   `mapstructure:"pattern"`
	Type       Type     `mapstructure:"type"`
	Severity   Severity `mapstructure:"severity"`
	Confidence float64  `mapstructure:"confidence"`
}

type compiledPatternRule struct {
	re   *regexp.Regexp
	rule PatternRule
}

func compilePatternRules(rules []PatternRule) ([]compiledPatternRule, error) {
	out := make([]compiledPatternRule, 0, len(rules))
	for _, r := range rules {
		re, err := regexp.Compile(r.Pattern)
		if err != nil {
			return nil, fmt.Errorf("compiling threat pattern %q: %w", r.Pattern, err)
		}
		out = append(out, compiledPatternRule{re: re, rule: r})
	}
	return out, nil
}

// KeywordRule is one literal keyword detection rule. Case sensitivity and
// whole-word matching are configurable per rule.
type KeywordRule struct {
	Keywords      []string `mapstructure:"keywords"`
	Type          Type     `mapstructure:"type"`
	Severity      Severity `mapstructure:"severity"`
	Confidence    float64  `mapstructure:"confidence"`
	CaseSensitive bool     `mapstructure:"case-sensitive"`
	WholeWord     bool     `mapstructure:"whole-word"`
}

type compiledKeywordRule struct {
	matchers []func(msg string) (string, bool)
	rule     KeywordRule
}

func compileKeywordRules(rules []KeywordRule) []compiledKeywordRule {
	out := make([]compiledKeywordRule, 0, len(rules))
	for _, r := range rules {
		c := compiledKeywordRule{rule: r}
		for _, kw := range r.Keywords {
			c.matchers = append(c.matchers, keywordMatcher(kw, r.CaseSensitive, r.WholeWord))
		}
		out = append(out, c)
	}
	return out
}

func keywordMatcher(keyword string, caseSensitive, wholeWord bool) func(string) (string, bool) {
	if wholeWord {
		expr := `\b` + regexp.QuoteMeta(keyword) + `\b`
		if !caseSensitive {
			expr = "(?i)" + expr
		}
		re := regexp.MustCompile(expr)
		return func(msg string) (string, bool) {
			return keyword, re.MatchString(msg)
		}
	}

	if caseSensitive {
		return func(msg string) (string, bool) {
			return keyword, strings.Contains(msg, keyword)
		}
	}

	lower := strings.ToLower(keyword)
	return func(msg string) (string, bool) {
		return keyword, strings.Contains(strings.ToLower(msg), lower)
	}
}

// defaultPatternRules is the built-in (pattern, type, severity, confidence)
// table.
var defaultPatternRules = []PatternRule{
	{
		Pattern:    `(?i)ignore\s+(all\s+)?(previous|prior|above)\s+instructions`,
		Type:       TypeInstructionOverride,
		Severity:   SeverityCritical,
		Confidence: 0.95,
	},
	{
		Pattern:    `(?i)(reveal|show|print|repeat)\b.{0,30}\b(system\s+prompt|initial\s+instructions|hidden\s+rules)`,
		Type:       TypePromptInjection,
		Severity:   SeverityCritical,
		Confidence: 0.9,
	},
	{
		Pattern:    `(?i)disregard\s+(the\s+)?(rules|guidelines|instructions|policy)`,
		Type:       TypeInstructionOverride,
		Severity:   SeverityHigh,
		Confidence: 0.85,
	},
	{
		Pattern:    `(?i)you\s+are\s+now\s+(dan|free|unrestricted|in\s+developer\s+mode)`,
		Type:       TypeRoleManipulation,
		Severity:   SeverityHigh,
		Confidence: 0.85,
	},
	{
		Pattern:    `(?i)pretend\s+(to\s+be|you\s+are|you're)`,
		Type:       TypeRoleManipulation,
		Severity:   SeverityHigh,
		Confidence: 0.7,
	},
	{
		Pattern:    `(?i)act\s+as\s+(if\s+you|an?\s+unrestricted)`,
		Type:       TypeRoleManipulation,
		Severity:   SeverityMedium,
		Confidence: 0.6,
	},
}

// defaultKeywordRules is the built-in keyword table.
var defaultKeywordRules = []KeywordRule{
	{
		Keywords:   []string{"jailbreak", "prompt injection", "системный промпт"},
		Type:       TypePromptInjection,
		Severity:   SeverityHigh,
		Confidence: 0.8,
	},
	{
		Keywords:      []string{"DAN"},
		Type:          TypeRoleManipulation,
		Severity:      SeverityMedium,
		Confidence:    0.6,
		CaseSensitive: true,
		WholeWord:     true,
	},
	{
		Keywords:   []string{"developer mode", "режим разработчика"},
		Type:       TypeRoleManipulation,
		Severity:   SeverityMedium,
		Confidence: 0.65,
	},
}

// suspiciousTerms feeds the context stage's repeated-term check.
var suspiciousTerms = []string{
	"ignore", "instructions", "prompt", "system", "pretend", "override",
	"bypass", "restrictions",
}
