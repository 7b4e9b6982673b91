package store

import "time"

// Candidate is a registered resume document. The record is immutable after
// registration except for a one-time contact back-fill.
type Candidate struct {
	ID             int       `json:"id"`
	SourceFilename string    `json:"source_filename"`
	RawText        string    `json:"raw_text"`
	Email          string    `json:"email,omitempty"`
	Phone          string    `json:"phone,omitempty"`
	RegisteredAt   time.Time `json:"registered_at"`
}

// Opportunity is a registered role document.
type Opportunity struct {
	ID             int       `json:"id"`
	SourceFilename string    `json:"source_filename"`
	RawText        string    `json:"raw_text"`
	PositionTitle  string    `json:"position_title"`
	RegisteredAt   time.Time `json:"registered_at"`
}

// Score is the persisted outcome of evaluating one candidate against one
// opportunity. At most one Score exists per (candidate, opportunity) pair.
// Grade and Recommendation are derived from Overall at write time and are
// never accepted as independent caller input.
type Score struct {
	CandidateID     int       `json:"candidate_id"`
	OpportunityID   int       `json:"opportunity_id"`
	Overall         int       `json:"overall"`
	SkillsMatch     int       `json:"skills_match"`
	ExperienceMatch int       `json:"experience_match"`
	EducationMatch  int       `json:"education_match"`
	Grade           string    `json:"grade"`
	Recommendation  string    `json:"recommendation"`
	KeyStrength     string    `json:"key_strength"`
	Concerns        string    `json:"concerns"`
	ScoredAt        time.Time `json:"scored_at"`
}

// Metadata is a cached aggregate over the three collections. It is
// recomputable at any time and never a source of truth.
type Metadata struct {
	LastCheck          *time.Time `json:"last_check"`
	TotalCandidates    int        `json:"total_candidates"`
	TotalOpportunities int        `json:"total_opportunities"`
	TotalScores        int        `json:"total_scores"`
}

// LowScorer describes a candidate whose every existing score sits below a
// threshold. Consumed by the external notification flow.
type LowScorer struct {
	CandidateID    int            `json:"candidate_id"`
	SourceFilename string         `json:"source_filename"`
	Email          string         `json:"email,omitempty"`
	Phone          string         `json:"phone,omitempty"`
	Scores         map[int]*Score `json:"scores"`
}
