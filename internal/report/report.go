// Package report is a read-only consumer of the store producing ranked
// views, per-opportunity exports and cross-opportunity overlap analysis.
package report

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"talentmatch/internal/store"
)

const topSize = 10

// RankedCandidate joins a score with the candidate it belongs to.
type RankedCandidate struct {
	CandidateID     int       `json:"candidate_id"`
	SourceFilename  string    `json:"source_filename"`
	Email           string    `json:"email,omitempty"`
	Phone           string    `json:"phone,omitempty"`
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

// Statistics aggregates the overall scores currently existing for one
// opportunity. It does not force completeness.
type Statistics struct {
	TotalCandidates int     `json:"total_candidates"`
	AverageScore    float64 `json:"average_score"`
	HighestScore    int     `json:"highest_score"`
	LowestScore     int     `json:"lowest_score"`
}

// OpportunitySummary identifies the opportunity a report belongs to.
type OpportunitySummary struct {
	ID             int       `json:"id"`
	PositionTitle  string    `json:"position_title"`
	SourceFilename string    `json:"source_filename"`
	RegisteredAt   time.Time `json:"registered_at"`
}

// OpportunityReport is the full export for one opportunity.
type OpportunityReport struct {
	Opportunity   OpportunitySummary `json:"opportunity"`
	Statistics    Statistics         `json:"statistics"`
	Top10         []*RankedCandidate `json:"top_10_candidates"`
	AllCandidates []*RankedCandidate `json:"all_candidates"`
	GeneratedAt   time.Time          `json:"generated_at"`
}

// OverlapEntry describes a candidate ranked in the top 10 of more than one
// opportunity.
type OverlapEntry struct {
	CandidateID    int            `json:"candidate_id"`
	SourceFilename string         `json:"source_filename"`
	Opportunities  map[int]string `json:"opportunities"`
	BestOverall    int            `json:"best_overall"`
}

// Generator reads scores from the store and renders reports. It never
// writes score records.
type Generator struct {
	store  *store.Store
	logger *zap.Logger
}

func New(st *store.Store, logger *zap.Logger) *Generator {
	return &Generator{store: st, logger: logger}
}

// ranked returns every scored candidate for the opportunity, sorted by
// overall descending with candidate id ascending as the tie-break.
func (g *Generator) ranked(opportunityID int) ([]*RankedCandidate, error) {
	scores, err := g.store.ScoresForOpportunity(opportunityID)
	if err != nil {
		return nil, err
	}

	out := make([]*RankedCandidate, 0, len(scores))
	for candidateID, score := range scores {
		candidate, err := g.store.GetCandidate(candidateID)
		if err != nil {
			return nil, err
		}
		if candidate == nil {
			continue
		}
		out = append(out, &RankedCandidate{
			CandidateID:     candidateID,
			SourceFilename:  candidate.SourceFilename,
			Email:           candidate.Email,
			Phone:           candidate.Phone,
			Overall:         score.Overall,
			SkillsMatch:     score.SkillsMatch,
			ExperienceMatch: score.ExperienceMatch,
			EducationMatch:  score.EducationMatch,
			Grade:           score.Grade,
			Recommendation:  score.Recommendation,
			KeyStrength:     score.KeyStrength,
			Concerns:        score.Concerns,
			ScoredAt:        score.ScoredAt,
		})
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Overall != out[j].Overall {
			return out[i].Overall > out[j].Overall
		}
		return out[i].CandidateID < out[j].CandidateID
	})
	return out, nil
}

// TopN returns the n best-ranked candidates for the opportunity.
func (g *Generator) TopN(opportunityID, n int) ([]*RankedCandidate, error) {
	ranked, err := g.ranked(opportunityID)
	if err != nil {
		return nil, err
	}
	if n < len(ranked) {
		ranked = ranked[:n]
	}
	return ranked, nil
}

// Report builds the complete report for one opportunity.
func (g *Generator) Report(opportunityID int) (*OpportunityReport, error) {
	opportunity, err := g.store.GetOpportunity(opportunityID)
	if err != nil {
		return nil, err
	}
	if opportunity == nil {
		return nil, fmt.Errorf("opportunity %d not found", opportunityID)
	}

	ranked, err := g.ranked(opportunityID)
	if err != nil {
		return nil, err
	}

	stats := Statistics{TotalCandidates: len(ranked)}
	if len(ranked) > 0 {
		sum := 0
		for _, c := range ranked {
			sum += c.Overall
		}
		stats.AverageScore = float64(sum) / float64(len(ranked))
		stats.HighestScore = ranked[0].Overall
		stats.LowestScore = ranked[len(ranked)-1].Overall
	}

	top := ranked
	if len(top) > topSize {
		top = top[:topSize]
	}

	return &OpportunityReport{
		Opportunity: OpportunitySummary{
			ID:             opportunity.ID,
			PositionTitle:  opportunity.PositionTitle,
			SourceFilename: opportunity.SourceFilename,
			RegisteredAt:   opportunity.RegisteredAt,
		},
		Statistics:    stats,
		Top10:         top,
		AllCandidates: ranked,
		GeneratedAt:   time.Now(),
	}, nil
}

// ExportAll writes one JSON report per opportunity into dir, overwriting
// previous runs and pruning files that no longer correspond to a current
// opportunity.
func (g *Generator) ExportAll(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	opportunities, err := g.store.ListOpportunities()
	if err != nil {
		return err
	}

	written := make(map[string]bool, len(opportunities))
	for _, opportunity := range opportunities {
		rep, err := g.Report(opportunity.ID)
		if err != nil {
			return err
		}

		name := fmt.Sprintf("opportunity_%d_%s.json", opportunity.ID, SanitizeFilename(opportunity.PositionTitle))
		path := filepath.Join(dir, name)

		data, err := json.MarshalIndent(rep, "", "  ")
		if err != nil {
			return fmt.Errorf("encode report for opportunity %d: %w", opportunity.ID, err)
		}
		if err := os.WriteFile(path, data, 0o644); err != nil {
			return fmt.Errorf("write report %s: %w", name, err)
		}
		written[name] = true

		g.logger.Info("exported report",
			zap.String("file", name),
			zap.Int("opportunity_id", opportunity.ID),
			zap.Int("candidates", rep.Statistics.TotalCandidates),
		)
	}

	// Prune reports left over from opportunities renamed in prior runs.
	entries, err := os.ReadDir(dir)
	if err != nil {
		return err
	}
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || written[name] {
			continue
		}
		if !strings.HasPrefix(name, "opportunity_") || !strings.HasSuffix(name, ".json") {
			continue
		}
		if err := os.Remove(filepath.Join(dir, name)); err != nil {
			return fmt.Errorf("prune stale report %s: %w", name, err)
		}
		g.logger.Info("pruned stale report", zap.String("file", name))
	}

	return nil
}

// Overlap finds candidates appearing in the top 10 of more than one
// opportunity.
func (g *Generator) Overlap() ([]*OverlapEntry, error) {
	opportunities, err := g.store.ListOpportunities()
	if err != nil {
		return nil, err
	}

	byCandidate := make(map[int]*OverlapEntry)
	for _, opportunity := range opportunities {
		top, err := g.TopN(opportunity.ID, topSize)
		if err != nil {
			return nil, err
		}
		for _, ranked := range top {
			entry, ok := byCandidate[ranked.CandidateID]
			if !ok {
				entry = &OverlapEntry{
					CandidateID:    ranked.CandidateID,
					SourceFilename: ranked.SourceFilename,
					Opportunities:  map[int]string{},
				}
				byCandidate[ranked.CandidateID] = entry
			}
			entry.Opportunities[opportunity.ID] = opportunity.PositionTitle
			if ranked.Overall > entry.BestOverall {
				entry.BestOverall = ranked.Overall
			}
		}
	}

	var out []*OverlapEntry
	for _, entry := range byCandidate {
		if len(entry.Opportunities) > 1 {
			out = append(out, entry)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if len(out[i].Opportunities) != len(out[j].Opportunities) {
			return len(out[i].Opportunities) > len(out[j].Opportunities)
		}
		return out[i].CandidateID < out[j].CandidateID
	})
	return out, nil
}

// ExportLowScorers writes the candidates scored below threshold against
// every known opportunity into low_scoring_candidates.json under dir. The
// file feeds the external notification flow.
func (g *Generator) ExportLowScorers(dir string, threshold int) ([]*store.LowScorer, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}

	low, err := g.store.LowScoringCandidates(threshold)
	if err != nil {
		return nil, err
	}

	payload := struct {
		Threshold   int                `json:"threshold"`
		Candidates  []*store.LowScorer `json:"candidates"`
		GeneratedAt time.Time          `json:"generated_at"`
	}{
		Threshold:   threshold,
		Candidates:  low,
		GeneratedAt: time.Now(),
	}
	if payload.Candidates == nil {
		payload.Candidates = []*store.LowScorer{}
	}

	data, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode low scorers: %w", err)
	}

	path := filepath.Join(dir, "low_scoring_candidates.json")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return nil, fmt.Errorf("write %s: %w", filepath.Base(path), err)
	}

	g.logger.Info("exported low scoring candidates",
		zap.Int("count", len(low)),
		zap.Int("threshold", threshold),
	)
	return low, nil
}

// LogSummary logs the current top candidates of every opportunity.
func (g *Generator) LogSummary() error {
	opportunities, err := g.store.ListOpportunities()
	if err != nil {
		return err
	}

	for _, opportunity := range opportunities {
		top, err := g.TopN(opportunity.ID, topSize)
		if err != nil {
			return err
		}
		if len(top) == 0 {
			g.logger.Info("no scores yet", zap.Int("opportunity_id", opportunity.ID))
			continue
		}

		best := top[0]
		g.logger.Info("opportunity summary",
			zap.Int("opportunity_id", opportunity.ID),
			zap.String("position", opportunity.PositionTitle),
			zap.Int("candidates_ranked", len(top)),
			zap.String("best_candidate", best.SourceFilename),
			zap.Int("best_overall", best.Overall),
			zap.String("best_grade", best.Grade),
		)
	}
	return nil
}

var (
	invalidFilenameChars = regexp.MustCompile(`[<>:"/\\|?*[:cntrl:]]`)
	filenameRuns         = regexp.MustCompile(`[\s_]+`)
)

// SanitizeFilename makes text safe for use in a report filename: invalid
// characters replaced, runs collapsed to single underscores, length capped.
func SanitizeFilename(text string) string {
	const maxLength = 50

	text = strings.NewReplacer("\n", " ", "\r", " ", "\t", " ").Replace(text)
	text = invalidFilenameChars.ReplaceAllString(text, "_")
	text = filenameRuns.ReplaceAllString(text, "_")
	text = strings.Trim(text, "_")

	runes := []rune(text)
	if len(runes) > maxLength {
		text = strings.Trim(string(runes[:maxLength]), "_")
	}
	if text == "" {
		text = "untitled"
	}
	return text
}
