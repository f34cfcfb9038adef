package generation

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

const (
	defaultOllamaURL   = "http://localhost:11434"
	defaultOllamaModel = "llama3.2"
)

// Ollama generates text with a model served by a local Ollama instance.
type Ollama struct {
	baseURL    string
	model      string
	params     Params
	httpClient *http.Client
}

// NewOllama creates an Ollama backend. Empty arguments fall back to
// http://localhost:11434 and llama3.2.
func NewOllama(baseURL, model string, params Params) *Ollama {
	if baseURL == "" {
		baseURL = defaultOllamaURL
	}
	if model == "" {
		model = defaultOllamaModel
	}
	return &Ollama{
		baseURL: strings.TrimRight(baseURL, "/"),
		model:   model,
		params:  params,
		httpClient: &http.Client{
			Timeout: defaultTimeout,
		},
	}
}

type tagsResponse struct {
	Models []struct {
		Name string `json:"name"`
	} `json:"models"`
}

// IsRunning returns true if the Ollama server responds to GET /api/tags with 200.
func (o *Ollama) IsRunning(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, o.baseURL+"/api/tags", nil)
	if err != nil {
		return false
	}
	resp, err := o.httpClient.Do(req)
	if err != nil {
		return false
	}
	resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

// ListModels returns the names of all models available locally.
func (o *Ollama) ListModels(ctx context.Context) ([]string, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, o.baseURL+"/api/tags", nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	resp, err := o.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("requesting model list: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	var tags tagsResponse
	if err := json.NewDecoder(resp.Body).Decode(&tags); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}

	names := make([]string, len(tags.Models))
	for i, m := range tags.Models {
		names[i] = m.Name
	}
	return names, nil
}

// HasModel reports whether the configured model is present locally.
// "llama3.2" matches "llama3.2:latest".
func (o *Ollama) HasModel(ctx context.Context) bool {
	models, err := o.ListModels(ctx)
	if err != nil {
		return false
	}
	for _, m := range models {
		if m == o.model || strings.HasPrefix(m, o.model+":") {
			return true
		}
	}
	return false
}

// checkReady fails when Ollama is unreachable and warns when the model has
// not been pulled yet.
func (o *Ollama) checkReady(ctx context.Context) error {
	if !o.IsRunning(ctx) {
		return fmt.Errorf("ollama is not running at %s; start it with: ollama serve", o.baseURL)
	}
	if !o.HasModel(ctx) {
		slog.Warn("ollama model not found locally", "model", o.model, "hint", "ollama pull "+o.model)
	}
	return nil
}

type ollamaOptions struct {
	NumPredict  int32   `json:"num_predict"`
	Temperature float32 `json:"temperature"`
	TopP        float32 `json:"top_p"`
	TopK        float32 `json:"top_k"`
}

type ollamaChatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
	Stream   bool          `json:"stream"`
	Options  ollamaOptions `json:"options"`
}

type ollamaChatResponse struct {
	Message chatMessage `json:"message"`
}

// Generate sends prompt as a single user message to /api/chat.
func (o *Ollama) Generate(ctx context.Context, prompt string) (string, error) {
	body, err := json.Marshal(ollamaChatRequest{
		Model:    o.model,
		Messages: []chatMessage{{Role: "user", Content: prompt}},
		Options: ollamaOptions{
			NumPredict:  o.params.MaxOutputTokens,
			Temperature: o.params.Temperature,
			TopP:        o.params.TopP,
			TopK:        o.params.TopK,
		},
	})
	if err != nil {
		return "", fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.baseURL+"/api/chat", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("creating chat request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := o.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("chat request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("chat: unexpected status %d: %s", resp.StatusCode, string(respBody))
	}

	var result ollamaChatResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("decoding chat response: %w", err)
	}
	text := strings.TrimSpace(result.Message.Content)
	if text == "" {
		return "", ErrEmptyResponse
	}
	return text, nil
}
