package model

import (
	"fmt"
	"strings"
)

// GradingConfig holds the per-run grading parameters supplied by the
// caller. It is passed explicitly to the services that need it; nothing
// reads grading parameters from process-wide state.
type GradingConfig struct {
	TotalMarks              int            `json:"total_marks"`
	Criteria                map[string]int `json:"criteria,omitempty"`
	Instructions            string         `json:"instructions,omitempty"`
	DetectMultipleQuestions bool           `json:"detect_multiple_questions"`
}

// Validate checks the configuration before any file is graded.
func (c GradingConfig) Validate() error {
	if c.TotalMarks < 1 || c.TotalMarks > 1000 {
		return fmt.Errorf("total marks must be between 1 and 1000, got %d", c.TotalMarks)
	}

	sum := 0
	for name, marks := range c.Criteria {
		if strings.TrimSpace(name) == "" {
			return fmt.Errorf("criteria names cannot be empty")
		}
		if marks < 0 {
			return fmt.Errorf("negative marks not allowed for criterion %q", name)
		}
		sum += marks
	}
	if sum > c.TotalMarks {
		return fmt.Errorf("sum of criteria marks (%d) exceeds total marks (%d)", sum, c.TotalMarks)
	}

	return nil
}

// GradingResult is the normalized outcome of grading one submission.
// Results live only in process memory for the duration of one
// report/export; they are never persisted.
type GradingResult struct {
	Filename            string             `json:"filename"`
	FileType            string             `json:"file_type"`
	TotalMarks          int                `json:"total_marks"`
	AwardedMarks        float64            `json:"awarded_marks"`
	Percentage          float64            `json:"percentage"`
	Feedback            string             `json:"feedback"`
	CriteriaScores      map[string]float64 `json:"criteria_scores"`
	Questions           []QuestionResult   `json:"questions"`
	Strengths           []string           `json:"strengths"`
	AreasForImprovement []string           `json:"areas_for_improvement"`
	GradeJustification  string             `json:"grade_justification"`
	TextPreview         string             `json:"text_preview,omitempty"`
}

// QuestionResult holds per-question scores when the model detects
// multiple questions in a submission.
type QuestionResult struct {
	QuestionNumber int     `json:"question_number"`
	QuestionText   string  `json:"question_text"`
	Score          float64 `json:"score"`
	MaxScore       float64 `json:"max_score"`
	Feedback       string  `json:"feedback"`
}

// ScoreDisplay formats awarded/total marks as "85/100".
func (r GradingResult) ScoreDisplay() string {
	return fmt.Sprintf("%s/%d", formatMarks(r.AwardedMarks), r.TotalMarks)
}

// formatMarks renders a score without trailing zeros (14 rather than 14.00,
// but 14.5 stays 14.5).
func formatMarks(v float64) string {
	s := fmt.Sprintf("%.2f", v)
	s = strings.TrimRight(s, "0")
	return strings.TrimSuffix(s, ".")
}

// TextPreview returns a whitespace-collapsed preview of extracted text,
// truncated at a word boundary.
func TextPreview(text string, maxLength int) string {
	if strings.TrimSpace(text) == "" {
		return "No text content available"
	}

	cleaned := strings.Join(strings.Fields(text), " ")
	if len(cleaned) <= maxLength {
		return cleaned
	}

	truncated := cleaned[:maxLength]
	if i := strings.LastIndex(truncated, " "); i > 0 {
		truncated = truncated[:i]
	}
	return truncated + "..."
}

// SanitizeFilename strips characters that are unsafe in report and
// download file names.
func SanitizeFilename(filename string) string {
	sanitized := filename
	for _, c := range []string{"<", ">", ":", `"`, "/", `\`, "|", "?", "*"} {
		sanitized = strings.ReplaceAll(sanitized, c, "_")
	}
	for strings.Contains(sanitized, "__") {
		sanitized = strings.ReplaceAll(sanitized, "__", "_")
	}
	return strings.Trim(sanitized, "_")
}
