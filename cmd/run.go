package cmd

import (
	"context"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"talentmatch/internal/scoring"
	"talentmatch/internal/utils"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Watch the input directories and score new documents as they appear",
	Long: `Watch the input directories and score new documents as they appear.
Each cycle scans for new files, scores every new pair through the oracle,
refreshes the stored metadata and rewrites the report files.`,
	Run: func(cmd *cobra.Command, _ []string) {
		run(cmd)
	},
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().Bool("once", false, "run a single cycle and exit")
	runCmd.Flags().Duration("interval", time.Minute*5, "pause between cycles")
}

func run(cmd *cobra.Command) {
	ctx := context.Background()
	e := newEngine()
	orchestrator := e.newOrchestrator(ctx)

	once, _ := cmd.Flags().GetBool("once")
	interval, _ := cmd.Flags().GetDuration("interval")

	for {
		cycle(ctx, e, orchestrator)

		if once {
			return
		}

		e.logger.Info("sleeping", zap.Duration("interval", interval))
		if err := utils.WaitFor(ctx, interval); err != nil {
			e.logger.Fatal("interrupted", zap.Error(err))
		}
	}
}

// cycle is one scan-score-report pass. Per-pair oracle failures are already
// skipped inside the orchestrator, so a failed cycle means storage trouble
// and there is no point in carrying on.
func cycle(ctx context.Context, e *engine, orchestrator *scoring.Orchestrator) {
	newCandidates, newOpportunities, err := e.monitor.ScanAll()
	if err != nil {
		e.logger.Fatal("scanning input directories", zap.Error(err))
	}

	if len(newCandidates) == 0 && len(newOpportunities) == 0 {
		e.logger.Info("no new documents")
		return
	}

	// New candidates meet every opportunity, then every candidate meets the
	// new opportunities. Pairs covered by the first pass are already cached
	// when the second one reaches them.
	for _, candidateID := range newCandidates {
		if _, err := orchestrator.ScoreCandidateAcrossOpportunities(ctx, candidateID, false); err != nil {
			e.logger.Fatal("scoring new candidate", zap.Int("candidate_id", candidateID), zap.Error(err))
		}
	}
	for _, opportunityID := range newOpportunities {
		if _, err := orchestrator.ScoreAllForOpportunity(ctx, opportunityID, false); err != nil {
			e.logger.Fatal("scoring new opportunity", zap.Int("opportunity_id", opportunityID), zap.Error(err))
		}
	}

	if _, err := e.store.RecomputeMetadata(); err != nil {
		e.logger.Fatal("updating metadata", zap.Error(err))
	}

	if err := e.reports.ExportAll(e.config.ReportsDir); err != nil {
		e.logger.Fatal("writing reports", zap.Error(err))
	}
	if err := e.reports.LogSummary(); err != nil {
		e.logger.Fatal("summarizing results", zap.Error(err))
	}
}
