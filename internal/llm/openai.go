package llm

import (
	"context"
	"fmt"

	openai "github.com/sashabaranov/go-openai"
)

// OpenAIClient grades through any OpenAI-compatible chat endpoint
// (OpenAI, Ollama, vLLM, LM Studio). Image OCR is not supported here;
// use the Gemini provider for image submissions.
type OpenAIClient struct {
	api   *openai.Client
	model string
}

var _ Grader = (*OpenAIClient)(nil)

// NewOpenAI creates an OpenAI-compatible client.
func NewOpenAI(baseURL, apiKey, modelName string) *OpenAIClient {
	config := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		config.BaseURL = baseURL
	}
	return &OpenAIClient{
		api:   openai.NewClientWithConfig(config),
		model: modelName,
	}
}

// Grade sends the grading prompt as a chat completion with JSON output
// enforced.
func (c *OpenAIClient) Grade(ctx context.Context, prompt string) (string, error) {
	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: gradePreamble},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
		Temperature: 0.3,
	})
	if err != nil {
		return "", &GradeError{Reason: "chat completion failed", Wrapped: err}
	}

	if len(resp.Choices) == 0 {
		return "", &GradeError{Reason: "model returned no choices"}
	}
	return resp.Choices[0].Message.Content, nil
}

// ExtractImageText always fails: OCR is Gemini-only.
func (c *OpenAIClient) ExtractImageText(ctx context.Context, jpegData []byte) (string, error) {
	return "", &GradeError{Reason: "image OCR requires the gemini provider"}
}

// Ping lists models to verify the endpoint and credential.
func (c *OpenAIClient) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	if _, err := c.api.ListModels(ctx); err != nil {
		return fmt.Errorf("llm ping: %w", err)
	}
	return nil
}
