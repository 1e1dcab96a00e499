// Package llm talks to the remote model: it builds grading prompts,
// issues the HTTP calls, and normalizes the replies into typed results.
package llm

import (
	"context"
	"fmt"
)

// Grader sends grading and OCR requests to a remote model.
// Implementations may call Gemini, an OpenAI-compatible endpoint, or
// return canned results (for tests).
type Grader interface {
	// Grade sends a grading prompt and returns the model's raw text reply.
	Grade(ctx context.Context, prompt string) (string, error)
	// ExtractImageText runs OCR over a JPEG image. An empty string with
	// a nil error means the model found no text.
	ExtractImageText(ctx context.Context, jpegData []byte) (string, error)
	// Ping checks that the endpoint is reachable and the credential works.
	Ping(ctx context.Context) error
}

// GradeError is returned when a remote call fails so the caller can
// distinguish "the model was unreachable" from "the model returned
// something unusable."
type GradeError struct {
	Reason  string
	Wrapped error
}

func (e *GradeError) Error() string {
	if e.Wrapped != nil {
		return fmt.Sprintf("grading failed: %s: %v", e.Reason, e.Wrapped)
	}
	return fmt.Sprintf("grading failed: %s", e.Reason)
}

func (e *GradeError) Unwrap() error {
	return e.Wrapped
}
