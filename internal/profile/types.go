// Package profile turns uploaded résumé documents into structured candidate
// profiles and scores them against job requirements.
package profile

import "strings"

// ExperienceLevel buckets total years of experience into a tier.
type ExperienceLevel string

const (
	LevelEntry     ExperienceLevel = "entry"
	LevelJunior    ExperienceLevel = "junior"
	LevelMid       ExperienceLevel = "mid"
	LevelSenior    ExperienceLevel = "senior"
	LevelLead      ExperienceLevel = "lead"
	LevelPrincipal ExperienceLevel = "principal"
)

// LevelForYears maps total years of experience to a tier using the fixed
// thresholds <1, <3, <6, <10, <15.
func LevelForYears(years float64) ExperienceLevel {
	switch {
	case years < 1:
		return LevelEntry
	case years < 3:
		return LevelJunior
	case years < 6:
		return LevelMid
	case years < 10:
		return LevelSenior
	case years < 15:
		return LevelLead
	default:
		return LevelPrincipal
	}
}

// Skill is one extracted technical skill with a proficiency tier.
type Skill struct {
	Name        string `json:"name"`
	Proficiency string `json:"proficiency"`
}

// Experience is one work-experience span.
type Experience struct {
	Company     string `json:"company,omitempty"`
	Title       string `json:"title,omitempty"`
	StartYear   int    `json:"start_year,omitempty"`
	EndYear     int    `json:"end_year,omitempty"`
	Description string `json:"description,omitempty"`
}

// Education is one education entry.
type Education struct {
	Institution string `json:"institution,omitempty"`
	Degree      string `json:"degree,omitempty"`
	Year        int    `json:"year,omitempty"`
}

// Profile is the structured candidate record derived from a résumé.
type Profile struct {
	Name            string          `json:"name,omitempty"`
	Email           string          `json:"email,omitempty"`
	Phone           string          `json:"phone,omitempty"`
	Experience      []Experience    `json:"experience,omitempty"`
	Education       []Education     `json:"education,omitempty"`
	Skills          []Skill         `json:"skills,omitempty"`
	TotalYears      float64         `json:"total_years"`
	Level           ExperienceLevel `json:"level"`
	ParseConfidence float64         `json:"parse_confidence"`
}

// SkillNames returns the skill names in extraction order.
func (p *Profile) SkillNames() []string {
	names := make([]string, 0, len(p.Skills))
	for _, s := range p.Skills {
		names = append(names, s.Name)
	}
	return names
}

// HasSkill reports whether the profile lists the skill, case-insensitively.
func (p *Profile) HasSkill(name string) bool {
	for _, s := range p.Skills {
		if strings.EqualFold(s.Name, name) {
			return true
		}
	}
	return false
}

// Merge overlays other onto p: new non-empty fields overwrite old ones. Used
// when a session uploads a second document.
func (p *Profile) Merge(other *Profile) {
	if other == nil {
		return
	}
	if other.Name != "" {
		p.Name = other.Name
	}
	if other.Email != "" {
		p.Email = other.Email
	}
	if other.Phone != "" {
		p.Phone = other.Phone
	}
	if len(other.Experience) > 0 {
		p.Experience = other.Experience
	}
	if len(other.Education) > 0 {
		p.Education = other.Education
	}
	if len(other.Skills) > 0 {
		p.Skills = other.Skills
	}
	if other.TotalYears > 0 {
		p.TotalYears = other.TotalYears
		p.Level = other.Level
	}
	if other.ParseConfidence > 0 {
		p.ParseConfidence = other.ParseConfidence
	}
}
