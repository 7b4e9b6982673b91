package cmd

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"talentmatch/internal/queue"
)

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Check the input directories once and register new documents",
	Run: func(cmd *cobra.Command, _ []string) {
		scan(cmd)
	},
}

func init() {
	rootCmd.AddCommand(scanCmd)

	scanCmd.Flags().Bool("enqueue", false, "queue scoring tasks for the new documents instead of leaving them unscored")
}

func scan(cmd *cobra.Command) {
	e := newEngine()

	newCandidates, newOpportunities, err := e.monitor.ScanAll()
	if err != nil {
		e.logger.Fatal("scanning input directories", zap.Error(err))
	}

	if _, err := e.store.RecomputeMetadata(); err != nil {
		e.logger.Fatal("updating metadata", zap.Error(err))
	}

	e.logger.Info("scan complete",
		zap.Int("new_candidates", len(newCandidates)),
		zap.Int("new_opportunities", len(newOpportunities)),
	)

	if cmd.Flag("enqueue").Value.String() != "true" {
		return
	}
	if len(newCandidates) == 0 && len(newOpportunities) == 0 {
		return
	}

	q, err := queue.Open(e.config.QueuePath, e.logger)
	if err != nil {
		e.logger.Fatal("opening the scoring queue", zap.Error(err))
	}
	defer q.Close()

	enqueued := 0
	opportunities, err := e.store.ListOpportunities()
	if err != nil {
		e.logger.Fatal("listing opportunities", zap.Error(err))
	}
	candidates, err := e.store.ListCandidates()
	if err != nil {
		e.logger.Fatal("listing candidates", zap.Error(err))
	}

	// New candidates pair with every opportunity; new opportunities with
	// every candidate. Overlapping pairs are deduped by the queue.
	for _, candidateID := range newCandidates {
		for _, opportunity := range opportunities {
			if _, err := q.Enqueue(candidateID, opportunity.ID, false); err != nil {
				e.logger.Fatal("enqueueing task", zap.Error(err))
			}
			enqueued++
		}
	}
	for _, opportunityID := range newOpportunities {
		for _, candidate := range candidates {
			if _, err := q.Enqueue(candidate.ID, opportunityID, false); err != nil {
				e.logger.Fatal("enqueueing task", zap.Error(err))
			}
			enqueued++
		}
	}

	e.logger.Info("queued scoring tasks", zap.Int("enqueued", enqueued))
}
