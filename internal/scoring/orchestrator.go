// Package scoring decides which (candidate, opportunity) pairs need
// evaluation, invokes the oracle, validates its answers and persists the
// results. It is the only writer of score records.
package scoring

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"talentmatch/internal/ai"
	"talentmatch/internal/store"
	"talentmatch/internal/utils"
)

// ScoringError reports an oracle invocation or response-parsing failure for
// one pair. Batch operations recover from it by skipping the pair; storage
// failures are never wrapped into it.
type ScoringError struct {
	CandidateID   int
	OpportunityID int
	Err           error
}

func (e *ScoringError) Error() string {
	return fmt.Sprintf("scoring candidate %d x opportunity %d: %v", e.CandidateID, e.OpportunityID, e.Err)
}

func (e *ScoringError) Unwrap() error { return e.Err }

// Config tunes the orchestrator's cost controls.
type Config struct {
	// Threshold is the overall score below which an already-scored pair is
	// never re-evaluated unless forced.
	Threshold int
	// RequestsPerMinute caps oracle calls. Zero disables the limiter.
	RequestsPerMinute int
	// Timeout bounds a single oracle call.
	Timeout time.Duration
	// MaxRetries is the number of additional oracle attempts per pair.
	MaxRetries int
	// RetryBackoff is the base delay between attempts, multiplied by the
	// attempt number.
	RetryBackoff time.Duration
}

const (
	defaultTimeout      = 60 * time.Second
	defaultRetryBackoff = 2 * time.Second
	progressEvery       = 5
)

// Progress is a snapshot of a running or finished full scoring pass.
type Progress struct {
	Completed int
	Total     int
	Reused    int
}

// Orchestrator is the scoring state machine.
type Orchestrator struct {
	store   *store.Store
	oracle  ai.Oracle
	logger  *zap.Logger
	cfg     Config
	limiter *rate.Limiter

	progressMu sync.Mutex
	progress   Progress
}

func New(st *store.Store, oracle ai.Oracle, cfg Config, logger *zap.Logger) *Orchestrator {
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.RetryBackoff <= 0 {
		cfg.RetryBackoff = defaultRetryBackoff
	}

	var limiter *rate.Limiter
	if cfg.RequestsPerMinute > 0 {
		limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(cfg.RequestsPerMinute)), 1)
	}

	return &Orchestrator{
		store:   st,
		oracle:  oracle,
		logger:  logger,
		cfg:     cfg,
		limiter: limiter,
	}
}

// Threshold returns the configured skip threshold.
func (o *Orchestrator) Threshold() int { return o.cfg.Threshold }

// ScorePair evaluates one candidate against one opportunity. Without force
// an existing score is returned unchanged and the oracle is not called.
func (o *Orchestrator) ScorePair(ctx context.Context, candidateID, opportunityID int, force bool) (*store.Score, error) {
	if !force {
		existing, err := o.store.GetScore(candidateID, opportunityID)
		if err != nil {
			return nil, err
		}
		if existing != nil {
			o.logger.Debug("pair already scored, reusing",
				zap.Int("candidate_id", candidateID),
				zap.Int("opportunity_id", opportunityID),
				zap.Int("overall", existing.Overall),
			)
			return existing, nil
		}
	}

	candidate, err := o.store.GetCandidate(candidateID)
	if err != nil {
		return nil, err
	}
	opportunity, err := o.store.GetOpportunity(opportunityID)
	if err != nil {
		return nil, err
	}
	if candidate == nil || opportunity == nil {
		return nil, &ScoringError{
			CandidateID:   candidateID,
			OpportunityID: opportunityID,
			Err:           errors.New("candidate or opportunity not found"),
		}
	}

	assessment, err := o.evaluate(ctx, candidate.RawText, opportunity.RawText)
	if err != nil {
		return nil, &ScoringError{CandidateID: candidateID, OpportunityID: opportunityID, Err: err}
	}

	score := &store.Score{
		CandidateID:     candidateID,
		OpportunityID:   opportunityID,
		Overall:         assessment.Overall,
		SkillsMatch:     assessment.SkillsMatch,
		ExperienceMatch: assessment.ExperienceMatch,
		EducationMatch:  assessment.EducationMatch,
		Grade:           GradeFor(assessment.Overall),
		Recommendation:  RecommendationFor(assessment.Overall),
		KeyStrength:     assessment.KeyStrength,
		Concerns:        assessment.Concerns,
	}

	if err := o.store.PutScore(score); err != nil {
		return nil, err
	}

	o.logger.Info("scored pair",
		zap.Int("candidate_id", candidateID),
		zap.Int("opportunity_id", opportunityID),
		zap.Int("overall", score.Overall),
		zap.String("grade", score.Grade),
	)
	return score, nil
}

// evaluate runs one oracle call under the rate limiter and timeout, with
// bounded retry and linear backoff.
func (o *Orchestrator) evaluate(ctx context.Context, candidateText, opportunityText string) (*ai.Assessment, error) {
	var lastErr error

	for attempt := 0; attempt <= o.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			if err := utils.WaitFor(ctx, time.Duration(attempt)*o.cfg.RetryBackoff); err != nil {
				return nil, err
			}
		}
		if o.limiter != nil {
			if err := o.limiter.Wait(ctx); err != nil {
				return nil, err
			}
		}

		callCtx, cancel := context.WithTimeout(ctx, o.cfg.Timeout)
		assessment, err := o.oracle.Evaluate(callCtx, candidateText, opportunityText)
		cancel()
		if err == nil {
			return assessment, nil
		}

		lastErr = err
		o.logger.Warn("oracle call failed",
			zap.Int("attempt", attempt+1),
			zap.Int("max_attempts", o.cfg.MaxRetries+1),
			zap.Error(err),
		)
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
	}

	return nil, fmt.Errorf("oracle attempts exhausted: %w", lastErr)
}

// reuseBelowThreshold applies the threshold-skip policy: a pair already
// judged a clear non-match is not re-evaluated unless forced.
func (o *Orchestrator) reuseBelowThreshold(candidateID, opportunityID int, force bool) (*store.Score, error) {
	if force {
		return nil, nil
	}
	existing, err := o.store.GetScore(candidateID, opportunityID)
	if err != nil {
		return nil, err
	}
	if existing != nil && existing.Overall < o.cfg.Threshold {
		o.logger.Debug("below threshold, reusing without oracle call",
			zap.Int("candidate_id", candidateID),
			zap.Int("opportunity_id", opportunityID),
			zap.Int("overall", existing.Overall),
			zap.Int("threshold", o.cfg.Threshold),
		)
		return existing, nil
	}
	return nil, nil
}

// ScoreAllForOpportunity scores every known candidate against one
// opportunity. Per-pair oracle failures are logged and excluded from the
// result; storage failures abort.
func (o *Orchestrator) ScoreAllForOpportunity(ctx context.Context, opportunityID int, force bool) ([]*store.Score, error) {
	opportunity, err := o.store.GetOpportunity(opportunityID)
	if err != nil {
		return nil, err
	}
	if opportunity == nil {
		return nil, &ScoringError{OpportunityID: opportunityID, Err: errors.New("opportunity not found")}
	}

	candidates, err := o.store.ListCandidates()
	if err != nil {
		return nil, err
	}

	o.logger.Info("scoring all candidates for opportunity",
		zap.Int("opportunity_id", opportunityID),
		zap.String("position", opportunity.PositionTitle),
		zap.Int("candidates", len(candidates)),
	)

	scores := make([]*store.Score, 0, len(candidates))
	for idx, candidate := range candidates {
		reused, err := o.reuseBelowThreshold(candidate.ID, opportunityID, force)
		if err != nil {
			return nil, err
		}
		if reused != nil {
			scores = append(scores, reused)
			continue
		}

		score, err := o.ScorePair(ctx, candidate.ID, opportunityID, force)
		if err != nil {
			var serr *ScoringError
			if errors.As(err, &serr) {
				o.logger.Error("failed to score candidate",
					zap.Int("candidate_id", candidate.ID),
					zap.Int("opportunity_id", opportunityID),
					zap.Error(err),
				)
				continue
			}
			return nil, err
		}
		scores = append(scores, score)

		if (idx+1)%progressEvery == 0 {
			o.logger.Info("progress",
				zap.Int("done", idx+1),
				zap.Int("total", len(candidates)),
			)
		}
	}

	o.logger.Info("completed scoring for opportunity",
		zap.Int("opportunity_id", opportunityID),
		zap.Int("scored", len(scores)),
	)
	return scores, nil
}

// ScoreCandidateAcrossOpportunities scores one candidate against every
// known opportunity, with the same skip and failure policy as
// ScoreAllForOpportunity.
func (o *Orchestrator) ScoreCandidateAcrossOpportunities(ctx context.Context, candidateID int, force bool) ([]*store.Score, error) {
	candidate, err := o.store.GetCandidate(candidateID)
	if err != nil {
		return nil, err
	}
	if candidate == nil {
		return nil, &ScoringError{CandidateID: candidateID, Err: errors.New("candidate not found")}
	}

	opportunities, err := o.store.ListOpportunities()
	if err != nil {
		return nil, err
	}

	o.logger.Info("scoring candidate across opportunities",
		zap.Int("candidate_id", candidateID),
		zap.Int("opportunities", len(opportunities)),
	)

	scores := make([]*store.Score, 0, len(opportunities))
	for _, opportunity := range opportunities {
		reused, err := o.reuseBelowThreshold(candidateID, opportunity.ID, force)
		if err != nil {
			return nil, err
		}
		if reused != nil {
			scores = append(scores, reused)
			continue
		}

		score, err := o.ScorePair(ctx, candidateID, opportunity.ID, force)
		if err != nil {
			var serr *ScoringError
			if errors.As(err, &serr) {
				o.logger.Error("failed to score against opportunity",
					zap.Int("candidate_id", candidateID),
					zap.Int("opportunity_id", opportunity.ID),
					zap.Error(err),
				)
				continue
			}
			return nil, err
		}
		scores = append(scores, score)
	}

	o.logger.Info("completed scoring for candidate",
		zap.Int("candidate_id", candidateID),
		zap.Int("scored", len(scores)),
	)
	return scores, nil
}

// ScoreAllPairs runs the full cross-product. Existing scores are reused
// when not forced; progress is tracked and can be observed concurrently via
// Progress.
func (o *Orchestrator) ScoreAllPairs(ctx context.Context, force bool) (map[int][]*store.Score, error) {
	candidates, err := o.store.ListCandidates()
	if err != nil {
		return nil, err
	}
	opportunities, err := o.store.ListOpportunities()
	if err != nil {
		return nil, err
	}

	total := len(candidates) * len(opportunities)
	o.setProgress(Progress{Total: total})

	o.logger.Info("starting complete scoring",
		zap.Int("candidates", len(candidates)),
		zap.Int("opportunities", len(opportunities)),
		zap.Int("total_pairs", total),
	)

	results := make(map[int][]*store.Score, len(opportunities))
	for _, opportunity := range opportunities {
		results[opportunity.ID] = []*store.Score{}

		for idx, candidate := range candidates {
			if !force {
				existing, err := o.store.GetScore(candidate.ID, opportunity.ID)
				if err != nil {
					return nil, err
				}
				if existing != nil {
					results[opportunity.ID] = append(results[opportunity.ID], existing)
					o.bumpProgress(true)
					continue
				}
			}

			score, err := o.ScorePair(ctx, candidate.ID, opportunity.ID, force)
			if err != nil {
				var serr *ScoringError
				if errors.As(err, &serr) {
					o.logger.Error("failed to score pair",
						zap.Int("candidate_id", candidate.ID),
						zap.Int("opportunity_id", opportunity.ID),
						zap.Error(err),
					)
					o.bumpProgress(false)
					continue
				}
				return nil, err
			}
			results[opportunity.ID] = append(results[opportunity.ID], score)
			o.bumpProgress(false)

			if (idx+1)%progressEvery == 0 {
				p := o.Progress()
				o.logger.Info("progress",
					zap.Int("completed", p.Completed),
					zap.Int("total", p.Total),
					zap.Int("reused", p.Reused),
				)
			}
		}
	}

	p := o.Progress()
	o.logger.Info("complete scoring finished",
		zap.Int("completed", p.Completed),
		zap.Int("total", p.Total),
		zap.Int("new_scores", p.Completed-p.Reused),
		zap.Int("reused", p.Reused),
	)
	return results, nil
}

// Progress returns the snapshot of the most recent ScoreAllPairs run.
func (o *Orchestrator) Progress() Progress {
	o.progressMu.Lock()
	defer o.progressMu.Unlock()
	return o.progress
}

func (o *Orchestrator) setProgress(p Progress) {
	o.progressMu.Lock()
	defer o.progressMu.Unlock()
	o.progress = p
}

func (o *Orchestrator) bumpProgress(reused bool) {
	o.progressMu.Lock()
	defer o.progressMu.Unlock()
	o.progress.Completed++
	if reused {
		o.progress.Reused++
	}
}
