package llm

import (
	"fmt"
	"sort"
	"strings"

	"github.com/ksalako/gradelab/internal/model"
)

// responseFormat is the fixed tail of every grading prompt: the JSON
// schema the normalizer expects plus the grading guidelines.
const responseFormat = `RESPONSE FORMAT:
Please respond with a JSON object containing the following structure:

{
    "total_score": <numerical score out of total marks>,
    "percentage": <percentage score>,
    "overall_feedback": "<comprehensive feedback explaining the grade>",
    "strengths": ["<list of strengths identified>"],
    "areas_for_improvement": ["<list of areas needing improvement>"],
    "criteria_scores": {
        "<criterion_name>": <score for this criterion>
    },
    "questions": [
        {
            "question_number": <number>,
            "question_text": "<brief description of the question>",
            "score": <score for this question>,
            "max_score": <maximum possible score>,
            "feedback": "<specific feedback for this question>"
        }
    ],
    "grade_justification": "<detailed explanation of how the grade was determined>"
}

GRADING GUIDELINES:
1. Be fair and consistent in your evaluation
2. Provide specific, actionable feedback
3. Consider the context and level of the assignment
4. Look for understanding of concepts, not just correct answers
5. Award partial credit where appropriate
6. Be constructive in your criticism
7. Highlight both strengths and areas for improvement

Please ensure your response is valid JSON format.`

// BuildGradingPrompt assembles the grading prompt from the submission
// text and the run configuration. The submission text is interpolated
// as-is, with no escaping.
func BuildGradingPrompt(content string, cfg model.GradingConfig) string {
	var sb strings.Builder

	sb.WriteString("You are an expert academic grader. Your task is to grade the following assignment/exam submission fairly and provide detailed, constructive feedback.\n\n")
	sb.WriteString("ASSIGNMENT CONTENT TO GRADE:\n")
	sb.WriteString(content)
	sb.WriteString("\n\nGRADING PARAMETERS:\n")
	fmt.Fprintf(&sb, "- Total Marks Available: %d\n", cfg.TotalMarks)
	fmt.Fprintf(&sb, "- Detect Multiple Questions: %t\n\n", cfg.DetectMultipleQuestions)

	if len(cfg.Criteria) > 0 {
		sb.WriteString("CUSTOM GRADING CRITERIA:\n")
		// Sorted for a stable prompt.
		names := make([]string, 0, len(cfg.Criteria))
		for name := range cfg.Criteria {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			fmt.Fprintf(&sb, "- %s: %d marks\n", name, cfg.Criteria[name])
		}
		sb.WriteString("\n")
	}

	if cfg.Instructions != "" {
		sb.WriteString("ADDITIONAL GRADING INSTRUCTIONS:\n")
		sb.WriteString(cfg.Instructions)
		sb.WriteString("\n\n")
	}

	if cfg.DetectMultipleQuestions {
		sb.WriteString("MULTIPLE QUESTIONS DETECTION:\n")
		sb.WriteString("Please identify if there are multiple distinct questions or parts in this submission. If so, grade each question/part separately.\n\n")
	}

	sb.WriteString(responseFormat)
	return sb.String()
}
