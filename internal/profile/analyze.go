package profile

import (
	"fmt"
	"math"
)

// JobRequirements describes what a vacancy asks for.
type JobRequirements struct {
	Skills   []string `mapstructure:"skills" json:"skills"`
	MinYears float64  `mapstructure:"min-years" json:"min_years"`
	Title    string   `mapstructure:"title" json:"title"`
}

// Analysis is the derived assessment of one profile, optionally against a
// set of job requirements.
type Analysis struct {
	Score       int      `json:"score"`
	Strengths   []string `json:"strengths,omitempty"`
	Weaknesses  []string `json:"weaknesses,omitempty"`
	Suggestions []string `json:"suggestions,omitempty"`

	// Fit fields are populated only when job requirements were supplied.
	FitScore       int      `json:"fit_score,omitempty"`
	SkillGaps      []string `json:"skill_gaps,omitempty"`
	ExperienceGaps []string `json:"experience_gaps,omitempty"`
}

// Analyze derives a 0-100 score from weighted completeness and experience,
// discounted by parsing confidence, plus rule-based strengths, weaknesses and
// suggestions. With requirements it also computes a fit score and explicit
// gap lists.
func Analyze(p *Profile, req *JobRequirements) Analysis {
	if p == nil {
		return Analysis{Weaknesses: []string{"no profile available"}}
	}

	a := Analysis{}

	completeness := 0.0
	if p.Name != "" {
		completeness += 0.2
	}
	if p.Email != "" {
		completeness += 0.2
	}
	if len(p.Skills) > 0 {
		completeness += 0.3
	}
	if len(p.Experience) > 0 {
		completeness += 0.3
	}

	experience := math.Min(1, p.TotalYears/10)

	raw := (completeness*0.6 + experience*0.4) * 100
	a.Score = int(math.Round(raw * math.Max(0.3, p.ParseConfidence)))

	if len(p.Skills) >= 5 {
		a.Strengths = append(a.Strengths, "broad technical skill set")
	} else if len(p.Skills) > 0 {
		a.Strengths = append(a.Strengths, "relevant technical skills listed")
	}
	if p.TotalYears >= 5 {
		a.Strengths = append(a.Strengths, fmt.Sprintf("%.0f+ years of experience", p.TotalYears))
	}

	if p.Email == "" {
		a.Weaknesses = append(a.Weaknesses, "no contact email found")
		a.Suggestions = append(a.Suggestions, "add a contact email to the resume")
	}
	if len(p.Skills) == 0 {
		a.Weaknesses = append(a.Weaknesses, "no recognizable technical skills")
		a.Suggestions = append(a.Suggestions, "list concrete technologies you have worked with")
	}
	if len(p.Experience) == 0 {
		a.Weaknesses = append(a.Weaknesses, "no work experience detected")
		a.Suggestions = append(a.Suggestions, "add employment history with dates")
	}

	if req != nil {
		a.FitScore, a.SkillGaps, a.ExperienceGaps = fit(p, req)
	}

	return a
}

func fit(p *Profile, req *JobRequirements) (int, []string, []string) {
	var gaps []string
	matched := 0
	for _, want := range req.Skills {
		if p.HasSkill(want) {
			matched++
			continue
		}
		gaps = append(gaps, want)
	}

	skillFit := 1.0
	if len(req.Skills) > 0 {
		skillFit = float64(matched) / float64(len(req.Skills))
	}

	var expGaps []string
	expFit := 1.0
	if req.MinYears > 0 {
		if p.TotalYears < req.MinYears {
			expFit = p.TotalYears / req.MinYears
			expGaps = append(expGaps, fmt.Sprintf(
				"has %.0f years of experience, position asks for %.0f",
				p.TotalYears, req.MinYears))
		}
	}

	score := int(math.Round((skillFit*0.7 + expFit*0.3) * 100))

	return score, gaps, expGaps
}
