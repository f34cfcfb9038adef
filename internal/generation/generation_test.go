package generation

import (
	"context"
	"errors"
	"strings"
	"testing"

	"google.golang.org/genai"

	"github.com/kalambet/aide/internal/config"
)

func TestResponseText(t *testing.T) {
	resp := &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content: &genai.Content{Parts: []*genai.Part{
				{Text: "thinking...", Thought: true},
				{Text: " 今天台北"},
				nil,
				{Text: "天氣晴朗。 "},
			}},
		}},
	}

	got, err := responseText(resp)
	if err != nil {
		t.Fatalf("responseText: %v", err)
	}
	if got != "今天台北天氣晴朗。" {
		t.Errorf("got %q", got)
	}
}

func TestResponseText_Empty(t *testing.T) {
	cases := map[string]*genai.GenerateContentResponse{
		"nil":           nil,
		"no candidates": {},
		"nil content":   {Candidates: []*genai.Candidate{{}}},
		"only thoughts": {Candidates: []*genai.Candidate{{
			Content: &genai.Content{Parts: []*genai.Part{{Text: "hmm", Thought: true}}},
		}}},
		"whitespace": {Candidates: []*genai.Candidate{{
			Content: &genai.Content{Parts: []*genai.Part{{Text: "  \n"}}},
		}}},
	}
	for name, resp := range cases {
		if _, err := responseText(resp); !errors.Is(err, ErrEmptyResponse) {
			t.Errorf("%s: err = %v, want ErrEmptyResponse", name, err)
		}
	}
}

func TestNewGemini_MissingKey(t *testing.T) {
	_, err := NewGemini(context.Background(), "", "", DefaultParams())
	if !errors.Is(err, config.ErrMissingAPIKey) {
		t.Errorf("err = %v, want ErrMissingAPIKey", err)
	}
}

func TestNew_MissingKeyBlocksConstruction(t *testing.T) {
	cfg := config.Config{Generation: config.GenerationConfig{Backend: config.BackendGemini}}

	g, err := New(context.Background(), cfg)
	if !errors.Is(err, config.ErrMissingAPIKey) {
		t.Fatalf("err = %v, want ErrMissingAPIKey", err)
	}
	if g != nil {
		t.Error("generator should be nil on error")
	}
}

func TestNew_OpenRouter(t *testing.T) {
	cfg := config.Config{Generation: config.GenerationConfig{
		Backend:          config.BackendOpenRouter,
		OpenRouterAPIKey: "k",
		OpenRouterModel:  "some/model",
	}}

	g, err := New(context.Background(), cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	o, ok := g.(*OpenRouter)
	if !ok {
		t.Fatalf("got %T, want *OpenRouter", g)
	}
	if o.model != "some/model" {
		t.Errorf("model = %q", o.model)
	}
	if o.params != DefaultParams() {
		t.Errorf("params = %+v, want defaults for zero config", o.params)
	}
}

func TestParamsFrom(t *testing.T) {
	p := ParamsFrom(config.GenerationConfig{MaxOutputTokens: 256, Temperature: 0.2})
	if p.MaxOutputTokens != 256 || p.Temperature != 0.2 {
		t.Errorf("params = %+v", p)
	}
	if p.TopP != 0.8 || p.TopK != 40 {
		t.Errorf("unset values should keep defaults, got %+v", p)
	}
}

func TestDisplay(t *testing.T) {
	got := Display(errors.New("boom"))
	if !strings.HasPrefix(got, "❌ 生成回應時發生錯誤") || !strings.Contains(got, "boom") {
		t.Errorf("Display = %q", got)
	}
}
