package ai

import "context"

// Assessment is the validated result of one oracle evaluation. All match
// values are integers in [0,100]. Grade and Recommendation carry whatever
// the oracle answered; the orchestrator re-derives both from Overall before
// anything is persisted.
type Assessment struct {
	Overall         int    `mapstructure:"overall"`
	SkillsMatch     int    `mapstructure:"skills_match"`
	ExperienceMatch int    `mapstructure:"experience_match"`
	EducationMatch  int    `mapstructure:"education_match"`
	Grade           string `mapstructure:"grade"`
	Recommendation  string `mapstructure:"recommendation"`
	KeyStrength     string `mapstructure:"key_strength"`
	Concerns        string `mapstructure:"concerns"`

	// Raw is the unparsed oracle output, kept for debug logging only.
	Raw string `mapstructure:"-"`
}

// Oracle evaluates a candidate's text against an opportunity's text.
type Oracle interface {
	Evaluate(ctx context.Context, candidateText, opportunityText string) (*Assessment, error)
}
