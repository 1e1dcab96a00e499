package llm

import (
	"strings"
	"testing"
)

const goodReply = `{
	"total_score": 85,
	"percentage": 42,
	"overall_feedback": "Solid work overall.",
	"strengths": ["Clear structure", "Good examples"],
	"areas_for_improvement": ["Cite sources"],
	"criteria_scores": {"Clarity": 40, "Accuracy": 45},
	"questions": [
		{"question_number": 1, "question_text": "Define X", "score": 40, "max_score": 50, "feedback": "Mostly right"},
		{"question_number": 2, "question_text": "Explain Y", "score": 45, "max_score": 50, "feedback": "Complete"}
	],
	"grade_justification": "Both questions answered well."
}`

func TestNormalizeValidJSON(t *testing.T) {
	result := Normalize(goodReply, 100)

	if result.AwardedMarks != 85 {
		t.Errorf("AwardedMarks = %v, want 85", result.AwardedMarks)
	}
	// Percentage is recomputed from the score, not taken from the reply.
	if result.Percentage != 85 {
		t.Errorf("Percentage = %v, want 85", result.Percentage)
	}
	if result.TotalMarks != 100 {
		t.Errorf("TotalMarks = %v, want 100", result.TotalMarks)
	}
	if len(result.Questions) != 2 {
		t.Fatalf("Questions = %d entries, want 2", len(result.Questions))
	}
	if result.Questions[0].QuestionNumber != 1 || result.Questions[0].Score != 40 {
		t.Errorf("unexpected first question: %+v", result.Questions[0])
	}
	if result.CriteriaScores["Clarity"] != 40 {
		t.Errorf("CriteriaScores[Clarity] = %v, want 40", result.CriteriaScores["Clarity"])
	}
	if result.GradeJustification != "Both questions answered well." {
		t.Errorf("GradeJustification = %q", result.GradeJustification)
	}
}

func TestNormalizeClampsScore(t *testing.T) {
	tests := []struct {
		name       string
		reply      string
		totalMarks int
		want       float64
	}{
		{"over total", `{"total_score": 120}`, 100, 100},
		{"at total", `{"total_score": 100}`, 100, 100},
		{"negative", `{"total_score": -5}`, 100, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := Normalize(tt.reply, tt.totalMarks)
			if result.AwardedMarks != tt.want {
				t.Errorf("AwardedMarks = %v, want %v", result.AwardedMarks, tt.want)
			}
		})
	}
}

func TestNormalizeClampedPercentage(t *testing.T) {
	result := Normalize(`{"total_score": 150, "percentage": 150}`, 100)
	if result.AwardedMarks != 100 {
		t.Errorf("AwardedMarks = %v, want 100", result.AwardedMarks)
	}
	if result.Percentage != 100 {
		t.Errorf("Percentage = %v, want 100", result.Percentage)
	}
}

func TestNormalizeFencedJSON(t *testing.T) {
	fenced := "Here is the grading result:\n```json\n" + goodReply + "\n```\nLet me know if you need more."

	plain := Normalize(goodReply, 100)
	wrapped := Normalize(fenced, 100)

	if wrapped.AwardedMarks != plain.AwardedMarks ||
		wrapped.Percentage != plain.Percentage ||
		wrapped.Feedback != plain.Feedback ||
		wrapped.GradeJustification != plain.GradeJustification {
		t.Errorf("fenced reply normalized differently:\nplain:   %+v\nwrapped: %+v", plain, wrapped)
	}
}

func TestNormalizeBraceSlicing(t *testing.T) {
	noisy := "Sure! " + `{"total_score": 50, "overall_feedback": "ok"}` + " — hope that helps."
	result := Normalize(noisy, 100)
	if result.AwardedMarks != 50 {
		t.Errorf("AwardedMarks = %v, want 50", result.AwardedMarks)
	}
	if result.Percentage != 50 {
		t.Errorf("Percentage = %v, want 50", result.Percentage)
	}
}

func TestNormalizeEmptyCriteria(t *testing.T) {
	t.Run("empty object stays empty map", func(t *testing.T) {
		result := Normalize(`{"total_score": 10, "criteria_scores": {}}`, 20)
		if result.CriteriaScores == nil {
			t.Fatal("CriteriaScores is nil, want empty map")
		}
		if len(result.CriteriaScores) != 0 {
			t.Errorf("CriteriaScores = %v, want empty", result.CriteriaScores)
		}
	})

	t.Run("missing keys get defaults", func(t *testing.T) {
		result := Normalize(`{"total_score": 10}`, 20)
		if result.CriteriaScores == nil || result.Questions == nil || result.Strengths == nil || result.AreasForImprovement == nil {
			t.Error("missing collections should default to empty, not nil")
		}
		if result.Feedback != "" {
			t.Errorf("Feedback = %q, want empty", result.Feedback)
		}
	})
}

func TestNormalizeFallbackParsing(t *testing.T) {
	t.Run("score with denominator rescales", func(t *testing.T) {
		result := Normalize("I would give this a score: 7/10 because it is decent work", 20)
		if result.AwardedMarks != 14 {
			t.Errorf("AwardedMarks = %v, want 14", result.AwardedMarks)
		}
		if result.Percentage != 70 {
			t.Errorf("Percentage = %v, want 70", result.Percentage)
		}
		if result.GradeJustification != fallbackJustification {
			t.Errorf("GradeJustification = %q, want fallback marker", result.GradeJustification)
		}
		// The raw reply is preserved as feedback.
		if !strings.Contains(result.Feedback, "decent work") {
			t.Errorf("Feedback should carry the raw reply, got %q", result.Feedback)
		}
	})

	t.Run("bare score taken at configured scale", func(t *testing.T) {
		result := Normalize("Marks: 14 out of the total", 20)
		if result.AwardedMarks != 14 {
			t.Errorf("AwardedMarks = %v, want 14", result.AwardedMarks)
		}
	})

	t.Run("no score pattern yields zero", func(t *testing.T) {
		result := Normalize("The submission shows reasonable effort.", 20)
		if result.AwardedMarks != 0 || result.Percentage != 0 {
			t.Errorf("got %v/%v, want 0/0", result.AwardedMarks, result.Percentage)
		}
	})

	t.Run("zero denominator is an error result", func(t *testing.T) {
		result := Normalize("score: 5/0", 20)
		if result.GradeJustification != errorJustification {
			t.Errorf("GradeJustification = %q, want error marker", result.GradeJustification)
		}
	})
}

func TestNormalizeTypeMismatchIsErrorResult(t *testing.T) {
	// Valid JSON with the wrong type for a known field is not sent to
	// the regex fallback.
	result := Normalize(`{"total_score": "eighty"}`, 100)
	if result.AwardedMarks != 0 {
		t.Errorf("AwardedMarks = %v, want 0", result.AwardedMarks)
	}
	if !strings.HasPrefix(result.Feedback, "Error during grading:") {
		t.Errorf("Feedback = %q, want error prefix", result.Feedback)
	}
	if result.GradeJustification != errorJustification {
		t.Errorf("GradeJustification = %q", result.GradeJustification)
	}
}

func TestErrorResult(t *testing.T) {
	result := ErrorResult("connection refused", 50)

	if result.AwardedMarks != 0 || result.Percentage != 0 {
		t.Errorf("got %v/%v, want 0/0", result.AwardedMarks, result.Percentage)
	}
	if !strings.HasPrefix(result.Feedback, "Error during grading:") {
		t.Errorf("Feedback = %q, want error prefix", result.Feedback)
	}
	if !strings.Contains(result.Feedback, "connection refused") {
		t.Errorf("Feedback should carry the cause, got %q", result.Feedback)
	}
	if len(result.CriteriaScores) != 0 || len(result.Questions) != 0 || len(result.Strengths) != 0 {
		t.Error("error result should have empty collections")
	}
	if result.CriteriaScores == nil {
		t.Error("collections should be empty, not nil")
	}
}

func TestCombineFeedback(t *testing.T) {
	reply := gradingReply{
		OverallFeedback:     "Good effort.",
		Strengths:           []string{"Organized", "Thorough"},
		AreasForImprovement: []string{"Grammar"},
		GradeJustification:  "Met most criteria.",
	}

	feedback := combineFeedback(reply)

	for _, want := range []string{
		"Good effort.",
		"**Strengths:**\n• Organized\n• Thorough",
		"**Areas for Improvement:**\n• Grammar",
		"**Grade Justification:**\nMet most criteria.",
	} {
		if !strings.Contains(feedback, want) {
			t.Errorf("feedback missing %q:\n%s", want, feedback)
		}
	}

	// Sections appear in a fixed order.
	if strings.Index(feedback, "Strengths") > strings.Index(feedback, "Areas for Improvement") {
		t.Error("strengths should come before areas for improvement")
	}
}

func TestCombineFeedbackSkipsEmptySections(t *testing.T) {
	feedback := combineFeedback(gradingReply{OverallFeedback: "Only this."})
	if feedback != "Only this." {
		t.Errorf("feedback = %q, want %q", feedback, "Only this.")
	}
}
