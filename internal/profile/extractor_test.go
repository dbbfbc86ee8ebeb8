package profile

import (
	"strings"
	"testing"

	"go.uber.org/zap"
)

const janeSmithResume = `Jane Smith
jane.smith@example.com
+1 (555) 123-4567

Senior software engineer. 2015 - 2023 at Initech.

Skills: Python, JavaScript, PostgreSQL, Docker
`

func TestParseEmptyFile(t *testing.T) {
	e := NewExtractor(ExtractorConfig{}, zap.NewNop())

	res := e.Parse(nil, "resume.txt", "text/plain")
	if res.Success {
		t.Fatalf("empty file must be rejected")
	}
	if res.Profile != nil {
		t.Fatalf("rejection must not carry a partial profile")
	}
	if len(res.Errors) != 1 || res.Errors[0] != "empty file" {
		t.Fatalf("unexpected errors: %v", res.Errors)
	}
}

func TestParseOversizeFile(t *testing.T) {
	e := NewExtractor(ExtractorConfig{MaxSize: 10}, zap.NewNop())

	res := e.Parse([]byte("this is longer than ten bytes"), "resume.txt", "text/plain")
	if res.Success {
		t.Fatalf("oversize file must be rejected")
	}
	if !strings.Contains(res.Errors[0], "file too large") {
		t.Fatalf("unexpected error: %v", res.Errors)
	}
}

func TestParseUnsupportedFormat(t *testing.T) {
	e := NewExtractor(ExtractorConfig{}, zap.NewNop())

	res := e.Parse([]byte("%PDF-1.4"), "resume.pdf", "application/pdf")
	if res.Success {
		t.Fatalf("unsupported format must be rejected")
	}
	if !strings.Contains(res.Errors[0], "unsupported format") {
		t.Fatalf("unexpected error: %v", res.Errors)
	}
}

func TestParseFallsBackToMIME(t *testing.T) {
	e := NewExtractor(ExtractorConfig{}, zap.NewNop())

	res := e.Parse([]byte(janeSmithResume), "resume", "text/plain")
	if !res.Success {
		t.Fatalf("text MIME without extension must be accepted: %v", res.Errors)
	}
}

func TestParsePlainTextResume(t *testing.T) {
	e := NewExtractor(ExtractorConfig{}, zap.NewNop())

	res := e.Parse([]byte(janeSmithResume), "resume.txt", "text/plain")
	if !res.Success {
		t.Fatalf("parse failed: %v", res.Errors)
	}
	p := res.Profile

	if p.Name != "Jane Smith" {
		t.Fatalf("name = %q", p.Name)
	}
	if p.Email != "jane.smith@example.com" {
		t.Fatalf("email = %q", p.Email)
	}
	if p.Phone == "" {
		t.Fatalf("expected a phone number")
	}

	wantSkills := []string{"Python", "JavaScript", "PostgreSQL", "Docker"}
	if len(p.Skills) != len(wantSkills) {
		t.Fatalf("skills = %v, want %v", p.SkillNames(), wantSkills)
	}
	for _, want := range wantSkills {
		if !p.HasSkill(want) {
			t.Fatalf("missing skill %q in %v", want, p.SkillNames())
		}
	}
	// "Java" must not surface from inside "JavaScript".
	if p.HasSkill("Java") {
		t.Fatalf("Java must not match inside JavaScript: %v", p.SkillNames())
	}

	if len(p.Experience) != 1 {
		t.Fatalf("expected one synthesized span, got %v", p.Experience)
	}
	if p.Experience[0].StartYear != 2015 || p.Experience[0].EndYear != 2023 {
		t.Fatalf("span = %+v", p.Experience[0])
	}
	if p.TotalYears != 8 {
		t.Fatalf("total years = %v, want 8", p.TotalYears)
	}
	if p.Level != LevelSenior {
		t.Fatalf("level = %q, want senior", p.Level)
	}
}

func TestParseSkillBoundaries(t *testing.T) {
	e := NewExtractor(ExtractorConfig{}, zap.NewNop())

	res := e.Parse([]byte("worked with C++ and C# and Go\n"), "skills.txt", "")
	if !res.Success {
		t.Fatalf("parse failed: %v", res.Errors)
	}
	p := res.Profile
	for _, want := range []string{"C++", "C#", "Go"} {
		if !p.HasSkill(want) {
			t.Fatalf("missing %q in %v", want, p.SkillNames())
		}
	}
}

func TestParseDedupesGolangAlias(t *testing.T) {
	e := NewExtractor(ExtractorConfig{}, zap.NewNop())

	res := e.Parse([]byte("Experienced in Go and Golang services.\n"), "cv.txt", "")
	if !res.Success {
		t.Fatalf("parse failed: %v", res.Errors)
	}
	count := 0
	for _, s := range res.Profile.Skills {
		if s.Name == "Go" {
			count++
		}
	}
	if count != 1 {
		t.Fatalf("Go and Golang must collapse into one skill: %v", res.Profile.SkillNames())
	}
}

func TestParseLowConfidenceWarning(t *testing.T) {
	e := NewExtractor(ExtractorConfig{}, zap.NewNop())

	// A single bare line: no email, no skills, no years.
	res := e.Parse([]byte("nothing useful here\n"), "note.txt", "")
	if !res.Success {
		t.Fatalf("parse failed: %v", res.Errors)
	}
	found := false
	for _, w := range res.Warnings {
		if strings.Contains(w, "low parsing confidence") {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected a low-confidence warning: %v", res.Warnings)
	}
}

func TestLevelForYears(t *testing.T) {
	cases := []struct {
		years float64
		want  ExperienceLevel
	}{
		{0, LevelEntry},
		{0.9, LevelEntry},
		{1, LevelJunior},
		{3, LevelMid},
		{6, LevelSenior},
		{10, LevelLead},
		{15, LevelPrincipal},
	}
	for _, c := range cases {
		if got := LevelForYears(c.years); got != c.want {
			t.Fatalf("LevelForYears(%v) = %q, want %q", c.years, got, c.want)
		}
	}
}

func TestProfileMerge(t *testing.T) {
	p := &Profile{Name: "Old Name", Email: "old@example.com", TotalYears: 2, Level: LevelJunior}
	p.Merge(&Profile{
		Name:       "New Name",
		Skills:     []Skill{{Name: "Go"}},
		TotalYears: 7,
		Level:      LevelSenior,
	})

	if p.Name != "New Name" {
		t.Fatalf("new non-empty name must overwrite, got %q", p.Name)
	}
	if p.Email != "old@example.com" {
		t.Fatalf("empty incoming email must not clear the old one, got %q", p.Email)
	}
	if p.TotalYears != 7 || p.Level != LevelSenior {
		t.Fatalf("experience must overwrite: %v %q", p.TotalYears, p.Level)
	}
	if !p.HasSkill("go") {
		t.Fatalf("skills must overwrite, got %v", p.SkillNames())
	}
}

func TestAnalyzeScoresCompleteProfile(t *testing.T) {
	p := &Profile{
		Name:            "Jane Smith",
		Email:           "jane@example.com",
		Skills:          []Skill{{Name: "Go"}, {Name: "Docker"}},
		Experience:      []Experience{{StartYear: 2015, EndYear: 2023}},
		TotalYears:      8,
		Level:           LevelSenior,
		ParseConfidence: 0.7,
	}

	a := Analyze(p, nil)
	// completeness 1.0, experience 0.8 -> raw 92, discounted by 0.7.
	if a.Score != 64 {
		t.Fatalf("score = %d, want 64", a.Score)
	}
	if len(a.Strengths) == 0 {
		t.Fatalf("expected strengths for a complete profile")
	}
	if len(a.Weaknesses) != 0 {
		t.Fatalf("unexpected weaknesses: %v", a.Weaknesses)
	}
}

func TestAnalyzeNilProfile(t *testing.T) {
	a := Analyze(nil, nil)
	if a.Score != 0 || len(a.Weaknesses) == 0 {
		t.Fatalf("nil profile must score zero with a weakness: %+v", a)
	}
}

func TestAnalyzeFit(t *testing.T) {
	p := &Profile{
		Skills:          []Skill{{Name: "Go"}, {Name: "Docker"}},
		TotalYears:      3,
		ParseConfidence: 0.7,
	}
	req := &JobRequirements{Skills: []string{"Go", "Kubernetes"}, MinYears: 6}

	a := Analyze(p, req)
	// skillFit 0.5, expFit 0.5 -> fit 50.
	if a.FitScore != 50 {
		t.Fatalf("fit = %d, want 50", a.FitScore)
	}
	if len(a.SkillGaps) != 1 || a.SkillGaps[0] != "Kubernetes" {
		t.Fatalf("skill gaps = %v", a.SkillGaps)
	}
	if len(a.ExperienceGaps) != 1 {
		t.Fatalf("experience gaps = %v", a.ExperienceGaps)
	}
}
