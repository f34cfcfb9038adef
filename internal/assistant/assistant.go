// Package assistant runs one conversational turn: classify the input, run the
// matching tool, compose the prompt and ask the language model for a reply.
package assistant

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/kalambet/aide/internal/composer"
	"github.com/kalambet/aide/internal/generation"
	"github.com/kalambet/aide/internal/intent"
	"github.com/kalambet/aide/internal/tools"
)

// EmptyInputReply is returned for blank input without calling anything.
const EmptyInputReply = "請告訴我您需要什麼幫助 😊"

var errNoGenerator = errors.New("language model not configured")

// Metadata captures diagnostic information about a processed turn.
type Metadata struct {
	Intent     intent.Intent `json:"intent"`
	ToolUsed   bool          `json:"tool_used"`
	Tool       string        `json:"tool,omitempty"`
	ToolResult string        `json:"tool_result,omitempty"`
	Memories   int           `json:"memories_used"`
	Generated  bool          `json:"generated"`
	DurationMs int64         `json:"duration_ms"`
}

// Assistant orchestrates a turn: intent extraction, tool dispatch, context
// assembly, and generation.
type Assistant struct {
	extractor *intent.Extractor
	tools     *tools.Dispatcher
	composer  *composer.Composer
	generator generation.Generator
	now       func() time.Time
}

// New creates an Assistant. The dispatcher carries the caller's own calendar
// and mailbox, so every session gets independent tool state.
func New(gen generation.Generator, dispatcher *tools.Dispatcher, comp *composer.Composer) *Assistant {
	if comp == nil {
		comp = composer.New(0)
	}
	if dispatcher == nil {
		dispatcher = &tools.Dispatcher{}
	}
	return &Assistant{
		extractor: intent.NewExtractor(),
		tools:     dispatcher,
		composer:  comp,
		generator: gen,
		now:       time.Now,
	}
}

// Process answers input. memories are the pre-formatted relevant memories and
// history is the recent conversation, newest last.
//
// Generation failures are rendered as the reply rather than returned, so the
// caller always has something to show and to remember.
func (a *Assistant) Process(ctx context.Context, input string, memories []string, history []composer.Turn) (reply string, meta Metadata) {
	start := time.Now()
	defer func() {
		meta.DurationMs = time.Since(start).Milliseconds()
	}()

	if strings.TrimSpace(input) == "" {
		return EmptyInputReply, meta
	}

	meta.Intent = a.extractor.Extract(input)
	meta.Memories = len(memories)

	toolResult, ran := a.tools.Dispatch(ctx, meta.Intent, input)
	if ran {
		meta.ToolUsed = true
		meta.Tool = string(meta.Intent.Type)
		meta.ToolResult = toolResult
	}

	promptCtx := a.composer.Context(a.now(), toolResult, ran, history)
	prompt := a.composer.Prompt(input, promptCtx, memories)

	if a.generator == nil {
		slog.Warn("assistant: no generator configured")
		return generation.Display(errNoGenerator), meta
	}

	text, err := a.generator.Generate(ctx, prompt)
	if err != nil {
		slog.Warn("assistant: generation failed", "error", err)
		return generation.Display(err), meta
	}
	meta.Generated = true

	slog.Debug("turn complete",
		"intent", meta.Intent.Type,
		"confidence", meta.Intent.Confidence,
		"tool_used", meta.ToolUsed,
		"memories", meta.Memories,
	)
	return text, meta
}

// Classify runs intent extraction only.
func (a *Assistant) Classify(input string) intent.Intent {
	return a.extractor.Extract(input)
}

// Capabilities reports which tools are configured, keyed by tool name.
func (a *Assistant) Capabilities() map[string]bool {
	return a.tools.Configured()
}
