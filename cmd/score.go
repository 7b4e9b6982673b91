package cmd

import (
	"context"
	"fmt"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const (
	PromptYes = "Yes"
	PromptNo  = "No"
)

var scoreCmd = &cobra.Command{
	Use:   "score",
	Short: "Score candidates against opportunities",
	Long: `Score candidates against opportunities. With --candidate and --opportunity a
single pair is scored; with only one of them, that slice of the cross-product;
with neither, everything.`,
	Run: func(cmd *cobra.Command, _ []string) {
		score(cmd)
	},
}

func init() {
	rootCmd.AddCommand(scoreCmd)

	scoreCmd.Flags().IntP("candidate", "c", 0, "candidate id to score")
	scoreCmd.Flags().IntP("opportunity", "o", 0, "opportunity id to score against")
	scoreCmd.Flags().BoolP("force", "f", false, "re-invoke the oracle even for already-scored pairs")
	scoreCmd.Flags().BoolP("yes", "y", false, "do not ask for confirmation before a forced full re-score")
}

func score(cmd *cobra.Command) {
	ctx := context.Background()
	e := newEngine()

	candidateID, _ := cmd.Flags().GetInt("candidate")
	opportunityID, _ := cmd.Flags().GetInt("opportunity")
	force, _ := cmd.Flags().GetBool("force")
	yes, _ := cmd.Flags().GetBool("yes")

	orchestrator := e.newOrchestrator(ctx)

	switch {
	case candidateID > 0 && opportunityID > 0:
		result, err := orchestrator.ScorePair(ctx, candidateID, opportunityID, force)
		if err != nil {
			e.logger.Fatal("scoring pair", zap.Error(err))
		}
		e.logger.Info("pair scored",
			zap.Int("candidate_id", candidateID),
			zap.Int("opportunity_id", opportunityID),
			zap.Int("overall", result.Overall),
			zap.String("grade", result.Grade),
			zap.String("recommendation", result.Recommendation),
		)

	case opportunityID > 0:
		results, err := orchestrator.ScoreAllForOpportunity(ctx, opportunityID, force)
		if err != nil {
			e.logger.Fatal("scoring opportunity", zap.Error(err))
		}
		e.logger.Info("opportunity scored",
			zap.Int("opportunity_id", opportunityID),
			zap.Int("scored", len(results)),
		)

	case candidateID > 0:
		results, err := orchestrator.ScoreCandidateAcrossOpportunities(ctx, candidateID, force)
		if err != nil {
			e.logger.Fatal("scoring candidate", zap.Error(err))
		}
		e.logger.Info("candidate scored",
			zap.Int("candidate_id", candidateID),
			zap.Int("scored", len(results)),
		)

	default:
		if force && !yes {
			if !confirmFullRescore(e) {
				e.logger.Info("exiting", zap.String("reason", "got no from prompt"))
				return
			}
		}

		results, err := orchestrator.ScoreAllPairs(ctx, force)
		if err != nil {
			e.logger.Fatal("scoring all pairs", zap.Error(err))
		}

		progress := orchestrator.Progress()
		e.logger.Info("all pairs scored",
			zap.Int("opportunities", len(results)),
			zap.Int("completed", progress.Completed),
			zap.Int("total", progress.Total),
			zap.Int("reused", progress.Reused),
		)
	}

	if _, err := e.store.RecomputeMetadata(); err != nil {
		e.logger.Fatal("updating metadata", zap.Error(err))
	}
}

// confirmFullRescore asks before re-invoking the oracle on every known
// pair, since a forced full pass is the most expensive thing this tool does.
func confirmFullRescore(e *engine) bool {
	md, err := e.store.Metadata()
	if err != nil {
		e.logger.Fatal("reading metadata", zap.Error(err))
	}

	prompt := promptui.Select{
		Label: fmt.Sprintf("Re-score all %d x %d pairs through the oracle?", md.TotalCandidates, md.TotalOpportunities),
		Items: []string{PromptYes, PromptNo},
	}

	_, action, err := prompt.Run()
	if err != nil {
		e.logger.Fatal("exiting", zap.Error(err))
	}
	return action == PromptYes
}
