package model

import (
	"fmt"
	"math"
	"sort"
)

// BatchStatistics aggregates the scores of one grading run.
type BatchStatistics struct {
	TotalSubmissions  int            `json:"total_submissions"`
	AverageScore      float64        `json:"average_score"`
	MedianScore       float64        `json:"median_score"`
	HighestScore      float64        `json:"highest_score"`
	LowestScore       float64        `json:"lowest_score"`
	StandardDeviation float64        `json:"standard_deviation"`
	GradeDistribution map[string]int `json:"grade_distribution"`
	PassRate          float64        `json:"pass_rate"`
}

// ComputeStatistics derives batch statistics from per-file percentages.
// The pass threshold is 60%.
func ComputeStatistics(results []GradingResult) BatchStatistics {
	if len(results) == 0 {
		return BatchStatistics{GradeDistribution: gradeDistribution(nil)}
	}

	percentages := make([]float64, len(results))
	for i, r := range results {
		percentages[i] = r.Percentage
	}

	sorted := make([]float64, len(percentages))
	copy(sorted, percentages)
	sort.Float64s(sorted)

	sum := 0.0
	passed := 0
	for _, p := range percentages {
		sum += p
		if p >= 60 {
			passed++
		}
	}

	return BatchStatistics{
		TotalSubmissions:  len(results),
		AverageScore:      sum / float64(len(percentages)),
		MedianScore:       sorted[len(sorted)/2],
		HighestScore:      sorted[len(sorted)-1],
		LowestScore:       sorted[0],
		StandardDeviation: stdDev(percentages),
		GradeDistribution: gradeDistribution(percentages),
		PassRate:          float64(passed) / float64(len(percentages)) * 100,
	}
}

// stdDev is the sample standard deviation (n-1 denominator).
func stdDev(values []float64) float64 {
	if len(values) <= 1 {
		return 0
	}
	mean := 0.0
	for _, v := range values {
		mean += v
	}
	mean /= float64(len(values))

	variance := 0.0
	for _, v := range values {
		variance += (v - mean) * (v - mean)
	}
	variance /= float64(len(values) - 1)
	return math.Sqrt(variance)
}

func gradeDistribution(percentages []float64) map[string]int {
	distribution := map[string]int{"A": 0, "B": 0, "C": 0, "D": 0, "F": 0}
	for _, p := range percentages {
		distribution[LetterGrade(p)]++
	}
	return distribution
}

// LetterGrade maps a percentage to the A-F scale.
func LetterGrade(percentage float64) string {
	switch {
	case percentage >= 90:
		return "A"
	case percentage >= 80:
		return "B"
	case percentage >= 70:
		return "C"
	case percentage >= 60:
		return "D"
	default:
		return "F"
	}
}

// FormatGradeDisplay renders a percentage as "B (84.5%)".
func FormatGradeDisplay(percentage float64) string {
	return fmt.Sprintf("%s (%.1f%%)", LetterGrade(percentage), percentage)
}
