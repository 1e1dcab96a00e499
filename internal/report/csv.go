package report

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strings"

	"github.com/ksalako/gradelab/internal/model"
)

// CSV renders a flat one-row-per-file export. Newlines inside feedback
// are replaced with spaces so each record stays on one line for
// spreadsheet imports.
func CSV(results []model.GradingResult) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	header := []string{"Student_File", "Score", "Percentage", "Letter_Grade", "File_Type", "Feedback"}
	if err := w.Write(header); err != nil {
		return nil, fmt.Errorf("write csv header: %w", err)
	}

	for _, r := range results {
		record := []string{
			r.Filename,
			r.ScoreDisplay(),
			fmt.Sprintf("%.1f", round1(r.Percentage)),
			model.LetterGrade(r.Percentage),
			strings.ToUpper(r.FileType),
			flatten(r.Feedback),
		}
		if err := w.Write(record); err != nil {
			return nil, fmt.Errorf("write csv record for %q: %w", r.Filename, err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("flush csv: %w", err)
	}
	return buf.Bytes(), nil
}

func flatten(s string) string {
	s = strings.ReplaceAll(s, "\r", " ")
	return strings.ReplaceAll(s, "\n", " ")
}
