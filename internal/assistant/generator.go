// Package assistant produces the AI advisory content shown to members.
package assistant

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/genai"
)

// DefaultModel is the Gemini model used when none is configured.
const DefaultModel = "gemini-2.5-flash"

// ErrDisabled is returned by DisabledGenerator.
var ErrDisabled = errors.New("AI generation is not configured")

// Prompt is one text-generation request.
type Prompt struct {
	// Operation names the advisory operation, for logs and metrics.
	Operation string
	// Text is the full prompt.
	Text string
	// Schema requests a JSON response of this shape when set.
	Schema *genai.Schema
}

// Generator is the external AI text-generation service.
type Generator interface {
	// Generate returns the model's text output for prompt.
	Generate(ctx context.Context, prompt Prompt) (string, error)
}

// GeminiGenerator implements Generator on the Gemini API.
type GeminiGenerator struct {
	client *genai.Client
	model  string
}

// NewGeminiGenerator creates a Gemini-backed generator.
func NewGeminiGenerator(ctx context.Context, apiKey, model string) (*GeminiGenerator, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("Gemini API key is required")
	}
	if model == "" {
		model = DefaultModel
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}
	return &GeminiGenerator{client: client, model: model}, nil
}

// Generate implements Generator.
func (g *GeminiGenerator) Generate(ctx context.Context, prompt Prompt) (string, error) {
	var cfg *genai.GenerateContentConfig
	if prompt.Schema != nil {
		cfg = &genai.GenerateContentConfig{
			ResponseMIMEType: "application/json",
			ResponseSchema:   prompt.Schema,
		}
	}

	resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(prompt.Text), cfg)
	if err != nil {
		return "", fmt.Errorf("GenAI generate failed: %w", err)
	}
	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return "", errors.New("GenAI returned an empty response")
	}
	return text, nil
}

// DisabledGenerator fails every request, so callers fall back to defaults.
type DisabledGenerator struct{}

// Generate implements Generator.
func (DisabledGenerator) Generate(context.Context, Prompt) (string, error) {
	return "", ErrDisabled
}

var (
	_ Generator = (*GeminiGenerator)(nil)
	_ Generator = DisabledGenerator{}
)
