package report

import (
	"fmt"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
)

// ExportSummaryWorkbook writes a single xlsx workbook with a summary sheet
// and one ranked sheet per opportunity.
func (g *Generator) ExportSummaryWorkbook(path string) error {
	if !strings.HasSuffix(strings.ToLower(path), ".xlsx") {
		path += ".xlsx"
	}

	f := excelize.NewFile()
	defer f.Close()

	const summarySheet = "Summary"
	f.SetSheetName("Sheet1", summarySheet)

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
	})
	if err != nil {
		return fmt.Errorf("workbook style: %w", err)
	}

	if err := writeRow(f, summarySheet, 1, []any{"Opportunity ID", "Position", "Candidates", "Average", "Highest", "Lowest"}); err != nil {
		return err
	}
	if err := f.SetRowStyle(summarySheet, 1, 1, headerStyle); err != nil {
		return err
	}

	opportunities, err := g.store.ListOpportunities()
	if err != nil {
		return err
	}

	for i, opportunity := range opportunities {
		rep, err := g.Report(opportunity.ID)
		if err != nil {
			return err
		}

		if err := writeRow(f, summarySheet, i+2, []any{
			opportunity.ID,
			opportunity.PositionTitle,
			rep.Statistics.TotalCandidates,
			rep.Statistics.AverageScore,
			rep.Statistics.HighestScore,
			rep.Statistics.LowestScore,
		}); err != nil {
			return err
		}

		sheet := sheetName(opportunity.ID, opportunity.PositionTitle)
		if _, err := f.NewSheet(sheet); err != nil {
			return fmt.Errorf("create sheet %s: %w", sheet, err)
		}

		if err := writeRow(f, sheet, 1, []any{"Rank", "Candidate", "Overall", "Skills", "Experience", "Education", "Grade", "Recommendation", "Key Strength", "Concerns"}); err != nil {
			return err
		}
		if err := f.SetRowStyle(sheet, 1, 1, headerStyle); err != nil {
			return err
		}

		for rank, c := range rep.AllCandidates {
			if err := writeRow(f, sheet, rank+2, []any{
				rank + 1,
				c.SourceFilename,
				c.Overall,
				c.SkillsMatch,
				c.ExperienceMatch,
				c.EducationMatch,
				c.Grade,
				c.Recommendation,
				c.KeyStrength,
				c.Concerns,
			}); err != nil {
				return err
			}
		}
	}

	if err := writeRow(f, summarySheet, len(opportunities)+3, []any{"Generated", time.Now().Format(time.RFC3339)}); err != nil {
		return err
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("save workbook: %w", err)
	}

	g.logger.Info("exported summary workbook",
		zap.String("path", path),
		zap.Int("opportunities", len(opportunities)),
	)
	return nil
}

func writeRow(f *excelize.File, sheet string, row int, values []any) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	if err := f.SetSheetRow(sheet, cell, &values); err != nil {
		return fmt.Errorf("write row %d on %s: %w", row, sheet, err)
	}
	return nil
}

// sheetName fits an opportunity into excel's 31-character sheet name limit.
func sheetName(id int, title string) string {
	name := fmt.Sprintf("%d %s", id, SanitizeFilename(title))
	runes := []rune(name)
	if len(runes) > 31 {
		name = string(runes[:31])
	}
	return name
}
