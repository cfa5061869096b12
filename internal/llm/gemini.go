package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"google.golang.org/genai"
)

const solvePromptTemplate = `You are a tutor producing a worked solution for a student assignment.

Assignment title: %s
Subject: %s
Type: %s

Assignment description:
%s
%s
Respond with a single JSON object and nothing else, using this schema:
{
  "content": "the full solution text",
  "steps": [{"text": "step", "detail": "optional elaboration"}],
  "reasoning": "why this approach was chosen",
  "confidence": 0.0
}
"confidence" is your own estimate between 0.0 and 1.0.`

// GeminiInvoker generates solutions through the Gemini API.
type GeminiInvoker struct {
	client *genai.Client
	model  string
}

var _ Invoker = (*GeminiInvoker)(nil)

func NewGeminiInvoker(ctx context.Context, apiKey, model string) (*GeminiInvoker, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}
	return &GeminiInvoker{client: client, model: model}, nil
}

func (g *GeminiInvoker) Solve(ctx context.Context, req Request) (*Solution, error) {
	prompt := buildPrompt(req)

	resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(prompt), &genai.GenerateContentConfig{
		Temperature:      genai.Ptr[float32](0.4),
		TopP:             genai.Ptr[float32](0.85),
		MaxOutputTokens:  8192,
		ResponseMIMEType: "application/json",
	})
	if err != nil {
		return nil, fmt.Errorf("gemini generate content: %w", err)
	}

	text := resp.Text()
	if text == "" {
		return nil, fmt.Errorf("%w: empty response", ErrMalformedOutput)
	}

	solution, err := parseSolution(text)
	if err != nil {
		zap.S().Named("llm").Debugw("failed to parse model output", "error", err)
		return nil, err
	}
	solution.Model = g.model
	return solution, nil
}

func buildPrompt(req Request) string {
	subject := req.Subject
	if subject == "" {
		subject = "unspecified"
	}
	attachments := ""
	if len(req.Attachments) > 0 {
		attachments = fmt.Sprintf("\nAttached material:\n%s\n", strings.Join(req.Attachments, "\n---\n"))
	}
	return fmt.Sprintf(solvePromptTemplate, req.Title, subject, req.Kind, req.Description, attachments)
}

// parseSolution tries a strict unmarshal first, then a single repair pass
// that strips code fences and trailing prose before giving up.
func parseSolution(text string) (*Solution, error) {
	var solution Solution
	if err := json.Unmarshal([]byte(text), &solution); err == nil && solution.Content != "" {
		return clamp(&solution), nil
	}

	repaired := stripFences(text)
	if start := strings.IndexByte(repaired, '{'); start >= 0 {
		if end := strings.LastIndexByte(repaired, '}'); end > start {
			repaired = repaired[start : end+1]
		}
	}

	if err := json.Unmarshal([]byte(repaired), &solution); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedOutput, err)
	}
	if solution.Content == "" {
		return nil, fmt.Errorf("%w: missing content", ErrMalformedOutput)
	}
	return clamp(&solution), nil
}

func stripFences(text string) string {
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")
	return strings.TrimSpace(text)
}

func clamp(s *Solution) *Solution {
	if s.Confidence < 0 {
		s.Confidence = 0
	}
	if s.Confidence > 1 {
		s.Confidence = 1
	}
	return s
}
