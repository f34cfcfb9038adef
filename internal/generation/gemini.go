package generation

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"github.com/kalambet/aide/internal/config"
)

// DefaultGeminiModel is used when no model is configured.
const DefaultGeminiModel = "gemini-2.0-flash-exp"

// Gemini generates text with the Gemini API.
type Gemini struct {
	client *genai.Client
	model  string
	params Params
}

// NewGemini creates a Gemini backend. An empty apiKey returns
// config.ErrMissingAPIKey without contacting the service.
func NewGemini(ctx context.Context, apiKey, model string, params Params) (*Gemini, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini: %w", config.ErrMissingAPIKey)
	}
	if model == "" {
		model = DefaultGeminiModel
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("creating gemini client: %w", err)
	}
	return &Gemini{client: client, model: model, params: params}, nil
}

// Generate sends prompt as a single user turn and returns the trimmed text.
func (g *Gemini) Generate(ctx context.Context, prompt string) (string, error) {
	contents := []*genai.Content{
		{Role: "user", Parts: []*genai.Part{{Text: prompt}}},
	}
	cfg := &genai.GenerateContentConfig{
		MaxOutputTokens: g.params.MaxOutputTokens,
		Temperature:     genai.Ptr(g.params.Temperature),
		TopP:            genai.Ptr(g.params.TopP),
		TopK:            genai.Ptr(g.params.TopK),
	}

	resp, err := g.client.Models.GenerateContent(ctx, g.model, contents, cfg)
	if err != nil {
		return "", fmt.Errorf("generating content: %w", err)
	}
	return responseText(resp)
}

// responseText concatenates the text parts of the first candidate, skipping
// thought parts.
func responseText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", ErrEmptyResponse
	}
	var sb strings.Builder
	for _, p := range resp.Candidates[0].Content.Parts {
		if p == nil || p.Thought {
			continue
		}
		sb.WriteString(p.Text)
	}
	text := strings.TrimSpace(sb.String())
	if text == "" {
		return "", ErrEmptyResponse
	}
	return text, nil
}
