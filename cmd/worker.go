package cmd

import (
	"context"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"talentmatch/internal/queue"
)

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Process queued scoring tasks",
	Long: `Process queued scoring tasks. The queue survives restarts, so a worker
can be stopped at any point and pick up where it left off.`,
	Run: func(cmd *cobra.Command, _ []string) {
		worker(cmd)
	},
}

func init() {
	rootCmd.AddCommand(workerCmd)

	workerCmd.Flags().Bool("drain", false, "process the pending tasks once and exit")
	workerCmd.Flags().Duration("interval", time.Second*30, "pause between polls of the queue")
}

func worker(cmd *cobra.Command) {
	ctx := context.Background()
	e := newEngine()

	q, err := queue.Open(e.config.QueuePath, e.logger)
	if err != nil {
		e.logger.Fatal("opening the scoring queue", zap.Error(err))
	}
	defer q.Close()

	counts, err := q.Counts()
	if err != nil {
		e.logger.Fatal("inspecting the scoring queue", zap.Error(err))
	}
	e.logger.Info("queue state",
		zap.Int("pending", counts[queue.StatusPending]),
		zap.Int("done", counts[queue.StatusDone]),
		zap.Int("failed", counts[queue.StatusFailed]),
	)

	orchestrator := e.newOrchestrator(ctx)

	drain, _ := cmd.Flags().GetBool("drain")
	interval, _ := cmd.Flags().GetDuration("interval")

	if drain {
		processed, err := q.Drain(ctx, orchestrator)
		if err != nil {
			e.logger.Fatal("draining the scoring queue", zap.Error(err))
		}
		e.logger.Info("queue drained", zap.Int("processed", processed))

		if _, err := e.store.RecomputeMetadata(); err != nil {
			e.logger.Fatal("updating metadata", zap.Error(err))
		}
		return
	}

	if err := q.Run(ctx, orchestrator, interval); err != nil {
		e.logger.Fatal("worker stopped", zap.Error(err))
	}
}
