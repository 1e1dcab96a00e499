package llm

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// DefaultGeminiURL is the generateContent endpoint used when no base
// URL is configured.
const DefaultGeminiURL = "https://generativelanguage.googleapis.com/v1beta/models/gemini-1.5-flash:generateContent"

const (
	gradeTimeout = 30 * time.Second
	pingTimeout  = 10 * time.Second

	maxReplyTokens = 2000

	gradePreamble  = "You are an expert academic grader. Always respond with valid JSON format as requested."
	ocrInstruction = "Extract all text from this image. Return only the extracted text content, without any explanations or formatting."
)

// GeminiClient calls the Gemini generateContent REST endpoint directly.
// The API key travels as a query parameter and requests use the
// contents/parts envelope, including inline_data parts for OCR.
type GeminiClient struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

var _ Grader = (*GeminiClient)(nil)

// NewGemini creates a Gemini client. The API key is mandatory; an empty
// baseURL selects DefaultGeminiURL.
func NewGemini(baseURL, apiKey string) (*GeminiClient, error) {
	if apiKey == "" {
		return nil, errors.New("gemini: API key is required")
	}
	if baseURL == "" {
		baseURL = DefaultGeminiURL
	}
	return &GeminiClient{
		baseURL: baseURL,
		apiKey:  apiKey,
		client:  &http.Client{Timeout: gradeTimeout},
	}, nil
}

type geminiRequest struct {
	Contents         []geminiContent `json:"contents"`
	GenerationConfig geminiGenConfig `json:"generationConfig"`
}

type geminiContent struct {
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text       string            `json:"text,omitempty"`
	InlineData *geminiInlineData `json:"inline_data,omitempty"`
}

type geminiInlineData struct {
	MimeType string `json:"mime_type"`
	Data     string `json:"data"`
}

type geminiGenConfig struct {
	Temperature     float64 `json:"temperature,omitempty"`
	MaxOutputTokens int     `json:"maxOutputTokens"`
}

type geminiResponse struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
}

// Grade sends one grading prompt and returns the model's raw reply text.
// One blocking call, no retries.
func (c *GeminiClient) Grade(ctx context.Context, prompt string) (string, error) {
	req := geminiRequest{
		Contents: []geminiContent{{Parts: []geminiPart{
			{Text: gradePreamble + "\n\n" + prompt},
		}}},
		GenerationConfig: geminiGenConfig{Temperature: 0.3, MaxOutputTokens: maxReplyTokens},
	}

	resp, err := c.do(ctx, req)
	if err != nil {
		return "", &GradeError{Reason: "gemini call failed", Wrapped: err}
	}

	text, err := firstPartText(resp)
	if err != nil {
		return "", &GradeError{Reason: "gemini returned no usable reply", Wrapped: err}
	}
	slog.Debug("gemini reply", "chars", len(text))
	return text, nil
}

// ExtractImageText runs OCR over a JPEG image.
func (c *GeminiClient) ExtractImageText(ctx context.Context, jpegData []byte) (string, error) {
	req := geminiRequest{
		Contents: []geminiContent{{Parts: []geminiPart{
			{Text: ocrInstruction},
			{InlineData: &geminiInlineData{
				MimeType: "image/jpeg",
				Data:     base64.StdEncoding.EncodeToString(jpegData),
			}},
		}}},
		GenerationConfig: geminiGenConfig{Temperature: 0.1, MaxOutputTokens: maxReplyTokens},
	}

	resp, err := c.do(ctx, req)
	if err != nil {
		return "", &GradeError{Reason: "gemini OCR call failed", Wrapped: err}
	}

	text, err := firstPartText(resp)
	if err != nil {
		// No candidates means no text detected, not a failure.
		return "", nil
	}
	return strings.TrimSpace(text), nil
}

// Ping issues a minimal request to verify connectivity and the key.
func (c *GeminiClient) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	req := geminiRequest{
		Contents:         []geminiContent{{Parts: []geminiPart{{Text: "Hello, this is a test message."}}}},
		GenerationConfig: geminiGenConfig{MaxOutputTokens: 10},
	}

	if _, err := c.do(ctx, req); err != nil {
		return fmt.Errorf("gemini ping: %w", err)
	}
	return nil
}

func (c *GeminiClient) do(ctx context.Context, payload geminiRequest) (*geminiResponse, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"?key="+url.QueryEscape(c.apiKey), bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("gemini request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("gemini API error: %d - %s", resp.StatusCode, strings.TrimSpace(string(detail)))
	}

	var out geminiResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode gemini response: %w", err)
	}
	return &out, nil
}

func firstPartText(resp *geminiResponse) (string, error) {
	if len(resp.Candidates) == 0 || len(resp.Candidates[0].Content.Parts) == 0 {
		return "", errors.New("no text parts in response")
	}
	return resp.Candidates[0].Content.Parts[0].Text, nil
}
