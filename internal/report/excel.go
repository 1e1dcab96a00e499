// Package report renders grading results as an Excel workbook or a
// flat CSV. Reports are built in memory and handed to the caller as
// bytes; nothing is written to disk.
package report

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/ksalako/gradelab/internal/model"
)

const (
	sheetSummary   = "Summary"
	sheetDetailed  = "Detailed Results"
	sheetCriteria  = "Criteria Breakdown"
	sheetQuestions = "Questions Breakdown"

	systemName      = "AI Grading System v1.0"
	feedbackMaxLen  = 200
	reportColWidth  = 15
	headerFillColor = "D7E4BC"
)

// Excel builds the full grading workbook.
func Excel(results []model.GradingResult) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", sheetSummary); err != nil {
		return nil, fmt.Errorf("rename summary sheet: %w", err)
	}

	if err := writeSummarySheet(f, results); err != nil {
		return nil, err
	}
	if err := writeDetailedSheet(f, results); err != nil {
		return nil, err
	}
	if err := writeCriteriaSheet(f, results); err != nil {
		return nil, err
	}
	if err := writeQuestionsSheet(f, results); err != nil {
		return nil, err
	}
	if err := formatWorkbook(f); err != nil {
		return nil, err
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("serialize workbook: %w", err)
	}
	return buf.Bytes(), nil
}

func writeSummarySheet(f *excelize.File, results []model.GradingResult) error {
	header := []interface{}{"Student File", "Score", "Percentage", "Letter Grade", "File Type", "Status"}
	if err := setRow(f, sheetSummary, 1, header); err != nil {
		return err
	}
	for i, r := range results {
		row := []interface{}{
			r.Filename,
			r.ScoreDisplay(),
			round1(r.Percentage),
			model.LetterGrade(r.Percentage),
			strings.ToUpper(r.FileType),
			"Graded",
		}
		if err := setRow(f, sheetSummary, i+2, row); err != nil {
			return err
		}
	}

	// Statistics block a few rows below the per-file table.
	stats := model.ComputeStatistics(results)
	statsStart := len(results) + 4
	statsRows := [][]interface{}{
		{"Metric", "Value"},
		{"Total Submissions", stats.TotalSubmissions},
		{"Average Score (%)", round1(stats.AverageScore)},
		{"Median Score (%)", round1(stats.MedianScore)},
		{"Highest Score (%)", round1(stats.HighestScore)},
		{"Lowest Score (%)", round1(stats.LowestScore)},
		{"Standard Deviation", round1(stats.StandardDeviation)},
		{"Pass Rate (%)", round1(stats.PassRate)},
	}
	for i, row := range statsRows {
		if err := setRow(f, sheetSummary, statsStart+i, row); err != nil {
			return err
		}
	}

	// Metadata block below the statistics.
	metaStart := statsStart + len(statsRows) + 3
	metaRows := [][]interface{}{
		{"Report Generated", "Total Files Processed", "System"},
		{time.Now().Format("2006-01-02 15:04:05"), len(results), systemName},
	}
	for i, row := range metaRows {
		if err := setRow(f, sheetSummary, metaStart+i, row); err != nil {
			return err
		}
	}
	return nil
}

func writeDetailedSheet(f *excelize.File, results []model.GradingResult) error {
	if _, err := f.NewSheet(sheetDetailed); err != nil {
		return fmt.Errorf("create sheet %q: %w", sheetDetailed, err)
	}

	header := []interface{}{
		"Student File", "Total Score", "Max Score", "Percentage", "Letter Grade",
		"Feedback", "Strengths", "Areas for Improvement", "Grade Justification", "File Type",
	}
	if err := setRow(f, sheetDetailed, 1, header); err != nil {
		return err
	}
	for i, r := range results {
		row := []interface{}{
			r.Filename,
			r.AwardedMarks,
			r.TotalMarks,
			round1(r.Percentage),
			model.LetterGrade(r.Percentage),
			r.Feedback,
			strings.Join(r.Strengths, "; "),
			strings.Join(r.AreasForImprovement, "; "),
			r.GradeJustification,
			strings.ToUpper(r.FileType),
		}
		if err := setRow(f, sheetDetailed, i+2, row); err != nil {
			return err
		}
	}
	return nil
}

// writeCriteriaSheet is skipped entirely when no result carries criteria
// scores. Columns are the sorted union of criteria across all results;
// a file missing a criterion scores 0 for it.
func writeCriteriaSheet(f *excelize.File, results []model.GradingResult) error {
	criteria := map[string]bool{}
	for _, r := range results {
		for name := range r.CriteriaScores {
			criteria[name] = true
		}
	}
	if len(criteria) == 0 {
		return nil
	}

	names := make([]string, 0, len(criteria))
	for name := range criteria {
		names = append(names, name)
	}
	sort.Strings(names)

	if _, err := f.NewSheet(sheetCriteria); err != nil {
		return fmt.Errorf("create sheet %q: %w", sheetCriteria, err)
	}

	header := []interface{}{"Student File"}
	for _, name := range names {
		header = append(header, name)
	}
	header = append(header, "Total")
	if err := setRow(f, sheetCriteria, 1, header); err != nil {
		return err
	}

	for i, r := range results {
		row := []interface{}{r.Filename}
		for _, name := range names {
			row = append(row, r.CriteriaScores[name])
		}
		row = append(row, r.AwardedMarks)
		if err := setRow(f, sheetCriteria, i+2, row); err != nil {
			return err
		}
	}
	return nil
}

func writeQuestionsSheet(f *excelize.File, results []model.GradingResult) error {
	if _, err := f.NewSheet(sheetQuestions); err != nil {
		return fmt.Errorf("create sheet %q: %w", sheetQuestions, err)
	}

	header := []interface{}{
		"Student File", "Question Number", "Question Description",
		"Score Awarded", "Max Score", "Percentage", "Feedback",
	}
	if err := setRow(f, sheetQuestions, 1, header); err != nil {
		return err
	}

	rowNum := 2
	for _, r := range results {
		if len(r.Questions) == 0 {
			row := []interface{}{
				r.Filename, "Overall", "Complete Assignment",
				r.AwardedMarks, r.TotalMarks, round1(r.Percentage),
				truncate(r.Feedback, feedbackMaxLen),
			}
			if err := setRow(f, sheetQuestions, rowNum, row); err != nil {
				return err
			}
			rowNum++
			continue
		}
		for _, q := range r.Questions {
			pct := 0.0
			if q.MaxScore > 0 {
				pct = round1(q.Score / q.MaxScore * 100)
			}
			row := []interface{}{
				r.Filename, q.QuestionNumber, q.QuestionText,
				q.Score, q.MaxScore, pct,
				truncate(q.Feedback, feedbackMaxLen),
			}
			if err := setRow(f, sheetQuestions, rowNum, row); err != nil {
				return err
			}
			rowNum++
		}
	}
	return nil
}

func formatWorkbook(f *excelize.File) error {
	headerStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{headerFillColor}, Pattern: 1},
		Alignment: &excelize.Alignment{WrapText: true, Vertical: "top"},
		Border: []excelize.Border{
			{Type: "left", Color: "000000", Style: 1},
			{Type: "right", Color: "000000", Style: 1},
			{Type: "top", Color: "000000", Style: 1},
			{Type: "bottom", Color: "000000", Style: 1},
		},
	})
	if err != nil {
		return fmt.Errorf("create header style: %w", err)
	}

	for _, sheet := range f.GetSheetList() {
		if err := f.SetColWidth(sheet, "A", "Z", reportColWidth); err != nil {
			return fmt.Errorf("set column width on %q: %w", sheet, err)
		}
		if err := f.SetRowStyle(sheet, 1, 1, headerStyle); err != nil {
			return fmt.Errorf("style header row on %q: %w", sheet, err)
		}
	}
	return nil
}

func setRow(f *excelize.File, sheet string, row int, values []interface{}) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	if err := f.SetSheetRow(sheet, cell, &values); err != nil {
		return fmt.Errorf("write row %d on %q: %w", row, sheet, err)
	}
	return nil
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
