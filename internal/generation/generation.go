// Package generation turns an assembled prompt into assistant text using a
// hosted or local language model. Calls are synchronous and never retried.
package generation

import (
	"context"
	"errors"
	"fmt"

	"github.com/kalambet/aide/internal/config"
)

// ErrEmptyResponse is returned when the backend answers without any text.
var ErrEmptyResponse = errors.New("empty response from model")

// Params are the sampling settings sent with every request.
type Params struct {
	MaxOutputTokens int32
	Temperature     float32
	TopP            float32
	TopK            float32
}

// DefaultParams returns the standard settings: 500 tokens, temperature 0.7,
// top-p 0.8, top-k 40.
func DefaultParams() Params {
	return Params{MaxOutputTokens: 500, Temperature: 0.7, TopP: 0.8, TopK: 40}
}

// Generator produces text for a prompt.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Display renders a generation failure for the user.
func Display(err error) string {
	return fmt.Sprintf("❌ 生成回應時發生錯誤: %v", err)
}

// ParamsFrom reads sampling settings from configuration. Non-positive values
// fall back to DefaultParams.
func ParamsFrom(gc config.GenerationConfig) Params {
	p := DefaultParams()
	if gc.MaxOutputTokens > 0 {
		p.MaxOutputTokens = int32(gc.MaxOutputTokens)
	}
	if gc.Temperature > 0 {
		p.Temperature = float32(gc.Temperature)
	}
	if gc.TopP > 0 {
		p.TopP = float32(gc.TopP)
	}
	if gc.TopK > 0 {
		p.TopK = float32(gc.TopK)
	}
	return p
}

// New builds the backend selected by generation.backend. A missing API key is
// reported before any client is created; an unreachable Ollama is reported
// before the first turn.
func New(ctx context.Context, cfg config.Config) (Generator, error) {
	key, err := cfg.GenerationAPIKey()
	if err != nil {
		return nil, err
	}
	params := ParamsFrom(cfg.Generation)

	switch cfg.Generation.Backend {
	case config.BackendOpenRouter:
		o, err := NewOpenRouter(key, cfg.Generation.OpenRouterModel, params)
		if err != nil {
			return nil, err
		}
		return o, nil
	case config.BackendOllama:
		o := NewOllama(cfg.Generation.OllamaBaseURL, cfg.Generation.OllamaModel, params)
		if err := o.checkReady(ctx); err != nil {
			return nil, err
		}
		return o, nil
	}
	g, err := NewGemini(ctx, key, cfg.Generation.Model, params)
	if err != nil {
		return nil, err
	}
	return g, nil
}
