package cmd

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Write ranked reports for the scored opportunities",
	Run: func(cmd *cobra.Command, _ []string) {
		reports(cmd)
	},
}

func init() {
	rootCmd.AddCommand(reportCmd)

	reportCmd.Flags().StringP("output", "O", "", "directory for the report files (defaults to reports-dir from the config)")
	reportCmd.Flags().String("xlsx", "", "also write a summary workbook to this path")
	reportCmd.Flags().Bool("overlap", false, "log candidates ranked in the top ten of several opportunities")
	reportCmd.Flags().Bool("low-scorers", false, "also export candidates below the threshold against every opportunity")
}

func reports(cmd *cobra.Command) {
	e := newEngine()

	output, _ := cmd.Flags().GetString("output")
	if output == "" {
		output = e.config.ReportsDir
	}

	if err := e.reports.ExportAll(output); err != nil {
		e.logger.Fatal("writing reports", zap.Error(err))
	}
	if err := e.reports.LogSummary(); err != nil {
		e.logger.Fatal("summarizing results", zap.Error(err))
	}

	if workbook, _ := cmd.Flags().GetString("xlsx"); workbook != "" {
		if err := e.reports.ExportSummaryWorkbook(workbook); err != nil {
			e.logger.Fatal("writing the summary workbook", zap.Error(err))
		}
		e.logger.Info("workbook written", zap.String("path", workbook))
	}

	if lowScorers, _ := cmd.Flags().GetBool("low-scorers"); lowScorers {
		low, err := e.reports.ExportLowScorers(output, e.config.Threshold)
		if err != nil {
			e.logger.Fatal("exporting low scoring candidates", zap.Error(err))
		}
		for _, candidate := range low {
			e.logger.Info("candidate below threshold everywhere",
				zap.Int("candidate_id", candidate.CandidateID),
				zap.String("source", candidate.SourceFilename),
				zap.String("email", candidate.Email),
			)
		}
	}

	if overlap, _ := cmd.Flags().GetBool("overlap"); overlap {
		entries, err := e.reports.Overlap()
		if err != nil {
			e.logger.Fatal("computing overlaps", zap.Error(err))
		}
		for _, entry := range entries {
			e.logger.Info("candidate ranks high in several opportunities",
				zap.Int("candidate_id", entry.CandidateID),
				zap.String("source", entry.SourceFilename),
				zap.Int("opportunities", len(entry.Opportunities)),
				zap.Int("best_overall", entry.BestOverall),
			)
		}
		if len(entries) == 0 {
			e.logger.Info("no candidate is in the top ten of more than one opportunity")
		}
	}
}
