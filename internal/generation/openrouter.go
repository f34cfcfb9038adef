package generation

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/kalambet/aide/internal/config"
)

const (
	defaultOpenRouterURL   = "https://openrouter.ai/api/v1"
	defaultOpenRouterModel = "google/gemini-2.0-flash-exp:free"
	defaultTimeout         = 60 * time.Second
)

// OpenRouter generates text through the OpenAI-compatible OpenRouter API.
type OpenRouter struct {
	apiKey     string
	baseURL    string
	model      string
	params     Params
	httpClient *http.Client
	referer    string
	title      string
}

// NewOpenRouter creates an OpenRouter backend. An empty apiKey returns
// config.ErrMissingAPIKey.
func NewOpenRouter(apiKey, model string, params Params) (*OpenRouter, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("openrouter: %w", config.ErrMissingAPIKey)
	}
	if model == "" {
		model = defaultOpenRouterModel
	}
	return &OpenRouter{
		apiKey:  apiKey,
		baseURL: defaultOpenRouterURL,
		model:   model,
		params:  params,
		httpClient: &http.Client{
			Timeout: defaultTimeout,
		},
		referer: "https://github.com/kalambet/aide",
		title:   "aide",
	}, nil
}

// NewOpenRouterWithBaseURL creates a backend pointing at a custom base URL (for testing).
func NewOpenRouterWithBaseURL(apiKey, baseURL, model string, params Params) (*OpenRouter, error) {
	o, err := NewOpenRouter(apiKey, model, params)
	if err != nil {
		return nil, err
	}
	o.baseURL = strings.TrimRight(baseURL, "/")
	return o, nil
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int32         `json:"max_tokens"`
	Temperature float32       `json:"temperature"`
	TopP        float32       `json:"top_p"`
	TopK        float32       `json:"top_k"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

// Generate sends prompt as a single user message and returns the trimmed reply.
func (o *OpenRouter) Generate(ctx context.Context, prompt string) (string, error) {
	body, err := json.Marshal(chatRequest{
		Model:       o.model,
		Messages:    []chatMessage{{Role: "user", Content: prompt}},
		MaxTokens:   o.params.MaxOutputTokens,
		Temperature: o.params.Temperature,
		TopP:        o.params.TopP,
		TopK:        o.params.TopK,
	})
	if err != nil {
		return "", fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	o.setHeaders(req)

	resp, err := o.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(respBody))
	}

	var out chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decoding response: %w", err)
	}
	if len(out.Choices) == 0 {
		return "", ErrEmptyResponse
	}
	text := strings.TrimSpace(out.Choices[0].Message.Content)
	if text == "" {
		return "", ErrEmptyResponse
	}
	return text, nil
}

func (o *OpenRouter) setHeaders(req *http.Request) {
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+o.apiKey)
	req.Header.Set("HTTP-Referer", o.referer)
	req.Header.Set("X-Title", o.title)
}
