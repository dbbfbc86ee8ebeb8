package profile

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
)

// ParseResult reports the outcome of one extraction attempt. Rejections are
// reported in Errors, never thrown: an empty buffer yields Success=false and
// no partially populated profile.
type ParseResult struct {
	Success  bool     `json:"success"`
	Profile  *Profile `json:"profile,omitempty"`
	Errors   []string `json:"errors,omitempty"`
	Warnings []string `json:"warnings,omitempty"`
}

// ExtractorConfig tunes document validation and confidence reporting.
type ExtractorConfig struct {
	// MaxSize caps the accepted document size in bytes.
	MaxSize int `mapstructure:"max-size"`
	// ConfidenceWarningThreshold attaches a warning when parsing confidence
	// falls below it.
	ConfidenceWarningThreshold float64 `mapstructure:"confidence-warning-threshold"`
}

// DefaultExtractorConfig returns the production defaults.
func DefaultExtractorConfig() ExtractorConfig {
	return ExtractorConfig{
		MaxSize:                    5 << 20,
		ConfidenceWarningThreshold: 0.5,
	}
}

// Extractor parses résumé documents into profiles.
type Extractor struct {
	cfg    ExtractorConfig
	logger *zap.Logger
}

// NewExtractor creates an extractor. A nil logger is replaced with a no-op.
func NewExtractor(cfg ExtractorConfig, logger *zap.Logger) *Extractor {
	if cfg.MaxSize <= 0 {
		cfg.MaxSize = DefaultExtractorConfig().MaxSize
	}
	if cfg.ConfidenceWarningThreshold <= 0 {
		cfg.ConfidenceWarningThreshold = DefaultExtractorConfig().ConfidenceWarningThreshold
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Extractor{cfg: cfg, logger: logger}
}

// textFormats maps supported extensions to the text-reduction strategy. Plain
// text is the ground truth; richer text formats reduce to it before the same
// heuristics apply.
var textFormats = map[string]bool{
	".txt": true,
	".md":  true,
	".csv": true,
}

// Parse validates and extracts a profile from a document. Format is derived
// from the file extension, falling back to MIME-type sniffing.
func (e *Extractor) Parse(data []byte, filename, declaredMIME string) ParseResult {
	if len(data) == 0 {
		return ParseResult{Success: false, Errors: []string{"empty file"}}
	}
	if len(data) > e.cfg.MaxSize {
		return ParseResult{Success: false, Errors: []string{
			fmt.Sprintf("file too large: %d bytes (limit %d)", len(data), e.cfg.MaxSize),
		}}
	}

	ext := strings.ToLower(filepath.Ext(filename))
	if !textFormats[ext] && !isTextMIME(declaredMIME) {
		return ParseResult{Success: false, Errors: []string{
			fmt.Sprintf("unsupported format: %s (%s)", ext, declaredMIME),
		}}
	}

	profile, warnings := e.extractFromText(string(data))

	if profile.ParseConfidence < e.cfg.ConfidenceWarningThreshold {
		warnings = append(warnings, fmt.Sprintf(
			"low parsing confidence: %.2f", profile.ParseConfidence))
	}

	e.logger.Debug("parsed resume document",
		zap.String("filename", filename),
		zap.Int("size", len(data)),
		zap.Int("skills", len(profile.Skills)),
		zap.Float64("confidence", profile.ParseConfidence),
	)

	return ParseResult{Success: true, Profile: profile, Warnings: warnings}
}

func isTextMIME(mime string) bool {
	mime = strings.ToLower(strings.TrimSpace(mime))
	return strings.HasPrefix(mime, "text/") || mime == "application/csv"
}

var (
	emailRe = regexp.MustCompile(`[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}`)
	phoneRe = regexp.MustCompile(`\+?[0-9][0-9 ()\-]{7,}[0-9]`)
	yearRe  = regexp.MustCompile(`\b(19[7-9][0-9]|20[0-4][0-9])\b`)
)

// skillVocabulary is the fixed vocabulary matched on word boundaries.
// Canonical casing is preserved in the extracted skill list.
var skillVocabulary = []string{
	"Go", "Golang", "JavaScript", "TypeScript", "Python", "Java", "Kotlin",
	"C++", "C#", "Rust", "Ruby", "PHP", "Swift", "Scala",
	"React", "Vue", "Angular", "Node.js",
	"SQL", "PostgreSQL", "MySQL", "MongoDB", "Redis",
	"Docker", "Kubernetes", "Terraform", "AWS", "GCP", "Azure",
	"Kafka", "RabbitMQ", "gRPC", "GraphQL", "Linux", "Git",
}

var skillRes = buildSkillRes()

func buildSkillRes() map[string]*regexp.Regexp {
	res := make(map[string]*regexp.Regexp, len(skillVocabulary))
	for _, skill := range skillVocabulary {
		// \b does not work after '+' or '#', so wrap the quoted skill in
		// explicit non-word-char boundaries.
		res[skill] = regexp.MustCompile(`(?i)(^|[^\w+#])` + regexp.QuoteMeta(skill) + `($|[^\w+#])`)
	}
	return res
}

// extractFromText applies the plain-text heuristics: first non-empty line is
// the name (low reliability), first email-shaped token the contact email,
// vocabulary hits the skill list, 4-digit years a synthesized experience
// span.
func (e *Extractor) extractFromText(text string) (*Profile, []string) {
	p := &Profile{Level: LevelEntry}
	var warnings []string

	for _, line := range strings.Split(text, "\n") {
		if name := strings.TrimSpace(line); name != "" {
			p.Name = name
			break
		}
	}
	if p.Name == "" {
		warnings = append(warnings, "could not extract name")
	}

	if email := emailRe.FindString(text); email != "" {
		p.Email = email
	} else {
		warnings = append(warnings, "could not extract email")
	}

	if phone := phoneRe.FindString(text); phone != "" {
		p.Phone = strings.TrimSpace(phone)
	}

	for _, skill := range skillVocabulary {
		if skillRes[skill].MatchString(text) {
			p.Skills = append(p.Skills, Skill{Name: skill, Proficiency: "unrated"})
		}
	}
	p.Skills = dedupeSkills(p.Skills)
	if len(p.Skills) == 0 {
		warnings = append(warnings, "could not extract skills")
	}

	if years := yearTokens(text); len(years) > 0 {
		first, last := years[0], years[len(years)-1]
		p.Experience = []Experience{{
			StartYear:   first,
			EndYear:     last,
			Description: "synthesized from year tokens",
		}}
		p.TotalYears = totalYears(first, last)
		p.Level = LevelForYears(p.TotalYears)
	} else {
		warnings = append(warnings, "could not extract work experience")
	}

	p.ParseConfidence = plainTextConfidence(p)

	return p, warnings
}

func dedupeSkills(skills []Skill) []Skill {
	seen := make(map[string]bool, len(skills))
	out := skills[:0]
	for _, s := range skills {
		key := strings.ToLower(s.Name)
		// Golang is an alias of Go in the vocabulary.
		if key == "golang" {
			key = "go"
			s.Name = "Go"
		}
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, s)
	}
	return out
}

func yearTokens(text string) []int {
	var years []int
	for _, tok := range yearRe.FindAllString(text, -1) {
		y, err := strconv.Atoi(tok)
		if err != nil {
			continue
		}
		years = append(years, y)
	}
	if len(years) > 1 {
		min, max := years[0], years[0]
		for _, y := range years[1:] {
			if y < min {
				min = y
			}
			if y > max {
				max = y
			}
		}
		return []int{min, max}
	}
	return years
}

func totalYears(first, last int) float64 {
	if last <= first {
		// Single year token: assume the span runs to now.
		last = time.Now().Year()
	}
	if last <= first {
		return 0
	}
	return float64(last - first)
}

// plainTextConfidence scores heuristic extraction. Plain text tops out well
// below structured-format parsing would.
func plainTextConfidence(p *Profile) float64 {
	score := 0.2
	if p.Name != "" {
		score += 0.1
	}
	if p.Email != "" {
		score += 0.15
	}
	if len(p.Skills) > 0 {
		score += 0.15
	}
	if len(p.Experience) > 0 {
		score += 0.1
	}
	return score
}
