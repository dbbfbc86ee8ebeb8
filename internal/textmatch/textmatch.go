// Package textmatch provides the text-matching primitives shared by the
// intention classifier and the threat detector: text normalization, compiled
// pattern sets, a hard safety pre-filter and coverage-based confidence scoring.
package textmatch

import (
	"fmt"
	"math"
	"regexp"
	"strings"
)

// RegexpPrefix marks a pattern as a regular expression instead of a literal
// substring. Everything after the prefix is compiled case-insensitively.
const RegexpPrefix = "re:"

// Set is a compiled collection of alternative patterns for one tag. Literal
// patterns match as case-insensitive substrings of the cleaned text, "re:"
// patterns as regular expressions.
type Set struct {
	literals []string
	regexps  []*regexp.Regexp
}

// Compile builds a Set from raw patterns. Invalid regexp patterns are
// reported, not skipped.
func Compile(patterns []string) (*Set, error) {
	s := &Set{}
	for _, p := range patterns {
		if rest, ok := strings.CutPrefix(p, RegexpPrefix); ok {
			re, err := regexp.Compile("(?i)" + rest)
			if err != nil {
				return nil, fmt.Errorf("compiling pattern %q: %w", p, err)
			}
			s.regexps = append(s.regexps, re)
			continue
		}
		lit := CleanText(p)
		if lit == "" {
			continue
		}
		s.literals = append(s.literals, lit)
	}
	return s, nil
}

// MustCompile is Compile for static pattern tables.
func MustCompile(patterns []string) *Set {
	s, err := Compile(patterns)
	if err != nil {
		panic(err)
	}
	return s
}

// Append merges additional patterns into the set.
func (s *Set) Append(patterns []string) error {
	extra, err := Compile(patterns)
	if err != nil {
		return err
	}
	s.literals = append(s.literals, extra.literals...)
	s.regexps = append(s.regexps, extra.regexps...)
	return nil
}

// Match reports whether text matches any pattern in the set, returning the
// matched span. Text is expected to be cleaned already.
func (s *Set) Match(text string) (string, bool) {
	for _, lit := range s.literals {
		if strings.Contains(text, lit) {
			return lit, true
		}
	}
	for _, re := range s.regexps {
		if m := re.FindString(text); m != "" {
			return m, true
		}
	}
	return "", false
}

// Len returns the number of compiled patterns.
func (s *Set) Len() int {
	return len(s.literals) + len(s.regexps)
}

// CleanText normalizes a message for matching. Total: never fails, empty in
// gives empty out.
func CleanText(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// MatchesAny reports whether the cleaned text contains any of the literal
// patterns.
func MatchesAny(s string, patterns []string) bool {
	text := CleanText(s)
	for _, p := range patterns {
		if p == "" {
			continue
		}
		if strings.Contains(text, CleanText(p)) {
			return true
		}
	}
	return false
}

// unsafePatterns is the fixed blocklist of script/URI-injection markers. It is
// independent of any configurable pattern set: IsSafe is a hard pre-filter
// that cannot be relaxed through configuration.
var unsafePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)<\s*script\b`),
	regexp.MustCompile(`(?i)javascript\s*:`),
	regexp.MustCompile(`(?i)data\s*:\s*text/html`),
	regexp.MustCompile(`(?i)vbscript\s*:`),
	regexp.MustCompile(`(?i)\bon(load|error|click|mouseover|focus|submit)\s*=`),
}

// IsSafe reports whether the message is free of script/URI-injection markers.
func IsSafe(s string) bool {
	for _, re := range unsafePatterns {
		if re.MatchString(s) {
			return false
		}
	}
	return true
}

// Confidence scores a match against the full text: the larger the share of
// the text covered by the matched span, the higher the score. The result is
// non-decreasing in coverage, bounded by [base, 1] and rounded to one
// decimal.
func Confidence(text, matched string, base float64) float64 {
	if base < 0 {
		base = 0
	}
	if base > 1 {
		base = 1
	}
	if len(text) == 0 || len(matched) == 0 {
		return round1(base)
	}
	ratio := float64(len(matched)) / float64(len(text))
	if ratio > 1 {
		ratio = 1
	}
	return round1(math.Min(1, base+ratio*(1-base)))
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
