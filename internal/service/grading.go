// Package service runs the grading pipeline: extract text from a
// submission, send it to the model, normalize the reply.
package service

import (
	"context"
	"log/slog"
	"strings"

	"github.com/ksalako/gradelab/internal/extract"
	"github.com/ksalako/gradelab/internal/llm"
	"github.com/ksalako/gradelab/internal/model"
)

// previewLength caps the extracted-text preview attached to results.
const previewLength = 500

// Service grades uploaded submissions through a Grader.
type Service struct {
	grader llm.Grader
}

// New creates a grading service.
func New(grader llm.Grader) *Service {
	return &Service{grader: grader}
}

// File is one uploaded submission held in memory.
type File struct {
	Name string
	Data []byte
}

// GradeBatch grades files one at a time, in order. No concurrency and
// no retries: each file gets exactly one model call, and a failed file
// becomes a zero-score result without stopping the batch.
func (s *Service) GradeBatch(ctx context.Context, files []File, cfg model.GradingConfig) []model.GradingResult {
	results := make([]model.GradingResult, 0, len(files))
	for i, f := range files {
		slog.Info("grading submission", "file", f.Name, "index", i+1, "total", len(files))
		results = append(results, s.GradeFile(ctx, f, cfg))
	}
	return results
}

// GradeFile runs the full pipeline for one submission. It never returns
// an error: every failure mode (unsupported type, extraction failure,
// empty content, remote failure, unparsable reply) yields a zero-score
// result with explanatory feedback.
func (s *Service) GradeFile(ctx context.Context, file File, cfg model.GradingConfig) model.GradingResult {
	fileType := extract.DetectType(file.Name)
	if fileType == "" {
		slog.Warn("unsupported file type", "file", file.Name)
		return s.unscored(file.Name, "unknown", cfg,
			"Unsupported file type. Supported formats: PDF, DOCX, JPG, JPEG, PNG.")
	}

	text, err := s.extractText(ctx, file, fileType)
	if err != nil {
		slog.Error("text extraction failed", "file", file.Name, "error", err)
		return s.unscored(file.Name, fileType, cfg, "Error processing file: "+err.Error())
	}
	if strings.TrimSpace(text) == "" || !extract.ValidateContent(text) {
		slog.Warn("no usable text content", "file", file.Name)
		result := s.unscored(file.Name, fileType, cfg,
			"No text content could be extracted from this file.")
		result.TextPreview = "No content available"
		return result
	}

	prompt := llm.BuildGradingPrompt(text, cfg)

	var result model.GradingResult
	reply, err := s.grader.Grade(ctx, prompt)
	if err != nil {
		slog.Error("grading call failed", "file", file.Name, "error", err)
		result = llm.ErrorResult(err.Error(), cfg.TotalMarks)
	} else {
		result = llm.Normalize(reply, cfg.TotalMarks)
	}

	result.Filename = file.Name
	result.FileType = fileType
	result.TextPreview = model.TextPreview(text, previewLength)
	return result
}

func (s *Service) extractText(ctx context.Context, file File, fileType string) (string, error) {
	if extract.IsImage(fileType) {
		jpegData, err := extract.PrepareImage(file.Data)
		if err != nil {
			return "", err
		}
		return s.grader.ExtractImageText(ctx, jpegData)
	}
	return extract.Text(file.Data, fileType)
}

// unscored builds a zero-score result for files that never reached the
// model.
func (s *Service) unscored(filename, fileType string, cfg model.GradingConfig, feedback string) model.GradingResult {
	return model.GradingResult{
		Filename:            filename,
		FileType:            fileType,
		TotalMarks:          cfg.TotalMarks,
		Feedback:            feedback,
		CriteriaScores:      map[string]float64{},
		Questions:           []model.QuestionResult{},
		Strengths:           []string{},
		AreasForImprovement: []string{},
	}
}
