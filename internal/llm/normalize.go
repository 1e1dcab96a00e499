package llm

import (
	"encoding/json"
	"errors"
	"regexp"
	"strconv"
	"strings"

	"github.com/ksalako/gradelab/internal/model"
)

var (
	// Models often wrap JSON in a markdown fence.
	fencedJSONRe = regexp.MustCompile("(?s)```json\n(.*?)\n```")
	// Last-resort score extraction: "score: 7/10", "Marks: 14".
	fallbackScoreRe = regexp.MustCompile(`(?i)(?:score|marks?)[:\s]*(\d+)(?:/(\d+))?`)
)

const (
	fallbackJustification = "Grading performed using fallback text analysis."
	errorJustification    = "Grading failed due to technical error."
)

// gradingReply is the loose shape the model is asked to return. Missing
// keys leave zero values, which is the documented default policy.
type gradingReply struct {
	TotalScore          float64                `json:"total_score"`
	Percentage          float64                `json:"percentage"`
	OverallFeedback     string                 `json:"overall_feedback"`
	Strengths           []string               `json:"strengths"`
	AreasForImprovement []string               `json:"areas_for_improvement"`
	CriteriaScores      map[string]float64     `json:"criteria_scores"`
	Questions           []model.QuestionResult `json:"questions"`
	GradeJustification  string                 `json:"grade_justification"`
}

// Normalize converts a raw model reply into a GradingResult. It tries
// three tiers: structured JSON (stripping a markdown fence or slicing
// first-to-last brace), then regex score extraction over the raw text,
// then the canonical error result. The score is clamped into
// [0, totalMarks] and the percentage is recomputed whenever the score
// is positive; a zero score keeps whatever percentage the model sent.
func Normalize(response string, totalMarks int) model.GradingResult {
	raw := strings.TrimSpace(response)

	content := raw
	if m := fencedJSONRe.FindStringSubmatch(raw); m != nil {
		content = m[1]
	} else if start, end := strings.Index(raw, "{"), strings.LastIndex(raw, "}"); start != -1 && end > start {
		content = raw[start : end+1]
	}

	var reply gradingReply
	if err := json.Unmarshal([]byte(content), &reply); err != nil {
		// Malformed JSON gets the regex fallback; structurally valid
		// JSON with wrong field types is a model contract violation and
		// yields the error result.
		var syntaxErr *json.SyntaxError
		if errors.As(err, &syntaxErr) {
			return fallbackParse(raw, totalMarks)
		}
		return ErrorResult(err.Error(), totalMarks)
	}

	score := clampScore(reply.TotalScore, totalMarks)

	result := model.GradingResult{
		TotalMarks:          totalMarks,
		AwardedMarks:        score,
		Percentage:          reply.Percentage,
		Feedback:            combineFeedback(reply),
		CriteriaScores:      reply.CriteriaScores,
		Questions:           reply.Questions,
		Strengths:           reply.Strengths,
		AreasForImprovement: reply.AreasForImprovement,
		GradeJustification:  reply.GradeJustification,
	}
	fillEmptyCollections(&result)

	if score > 0 && totalMarks > 0 {
		result.Percentage = score / float64(totalMarks) * 100
	}
	return result
}

// combineFeedback merges the reply's feedback components into one text
// block with section headings.
func combineFeedback(reply gradingReply) string {
	var parts []string

	if reply.OverallFeedback != "" {
		parts = append(parts, reply.OverallFeedback)
	}
	if len(reply.Strengths) > 0 {
		parts = append(parts, "**Strengths:**\n"+bulletList(reply.Strengths))
	}
	if len(reply.AreasForImprovement) > 0 {
		parts = append(parts, "**Areas for Improvement:**\n"+bulletList(reply.AreasForImprovement))
	}
	if reply.GradeJustification != "" {
		parts = append(parts, "**Grade Justification:**\n"+reply.GradeJustification)
	}

	return strings.Join(parts, "\n\n")
}

func bulletList(items []string) string {
	lines := make([]string, len(items))
	for i, item := range items {
		lines[i] = "• " + item
	}
	return strings.Join(lines, "\n")
}

// fallbackParse scans unparsable text for a "score: N/M" pattern. When
// the detected denominator differs from totalMarks the score is
// rescaled to the configured total — a known approximation, since the
// denominator may be unrelated to the configured scale. The result is
// marked as fallback analysis via its justification.
func fallbackParse(response string, totalMarks int) model.GradingResult {
	score := 0.0
	if m := fallbackScoreRe.FindStringSubmatch(response); m != nil {
		score, _ = strconv.ParseFloat(m[1], 64)
		if m[2] != "" {
			maxScore, _ := strconv.ParseFloat(m[2], 64)
			if maxScore == 0 {
				return ErrorResult("failed to parse grading response", totalMarks)
			}
			if maxScore != float64(totalMarks) {
				score = score / maxScore * float64(totalMarks)
			}
		}
		score = clampScore(score, totalMarks)
	}

	percentage := 0.0
	if totalMarks > 0 {
		percentage = score / float64(totalMarks) * 100
	}

	result := model.GradingResult{
		TotalMarks:         totalMarks,
		AwardedMarks:       score,
		Percentage:         percentage,
		Feedback:           response,
		GradeJustification: fallbackJustification,
	}
	fillEmptyCollections(&result)
	return result
}

// ErrorResult builds the canonical zero-score result for failures:
// score 0, percentage 0, error-prefixed feedback, empty collections.
func ErrorResult(message string, totalMarks int) model.GradingResult {
	result := model.GradingResult{
		TotalMarks:         totalMarks,
		Feedback:           "Error during grading: " + message,
		GradeJustification: errorJustification,
	}
	fillEmptyCollections(&result)
	return result
}

func fillEmptyCollections(r *model.GradingResult) {
	if r.CriteriaScores == nil {
		r.CriteriaScores = map[string]float64{}
	}
	if r.Questions == nil {
		r.Questions = []model.QuestionResult{}
	}
	if r.Strengths == nil {
		r.Strengths = []string{}
	}
	if r.AreasForImprovement == nil {
		r.AreasForImprovement = []string{}
	}
}

func clampScore(score float64, totalMarks int) float64 {
	if score < 0 {
		return 0
	}
	if score > float64(totalMarks) {
		return float64(totalMarks)
	}
	return score
}
