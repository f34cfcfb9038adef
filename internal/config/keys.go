package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
)

type keyType int

const (
	kString keyType = iota
	kInt
	kBool
	kFloat
)

type keySpec struct {
	key     string
	typ     keyType
	env     string
	secret  bool
	account string
	apply   func(cfg *Config, v any)
	extract func(cfg Config) any
}

var specs = []keySpec{
	{
		key: "server.port", typ: kInt, env: "AIDE_SERVER_PORT",
		apply:   func(cfg *Config, v any) { cfg.Server.Port = v.(int) },
		extract: func(cfg Config) any { return cfg.Server.Port },
	},
	{
		key: "log.level", typ: kString, env: "AIDE_LOG_LEVEL",
		apply:   func(cfg *Config, v any) { cfg.Log.Level = v.(string) },
		extract: func(cfg Config) any { return cfg.Log.Level },
	},
	{
		key: "storage.data_dir", typ: kString, env: "AIDE_STORAGE_DATA_DIR",
		apply:   func(cfg *Config, v any) { cfg.Storage.DataDir = v.(string) },
		extract: func(cfg Config) any { return cfg.Storage.DataDir },
	},
	{
		key: "generation.backend", typ: kString, env: "AIDE_GENERATION_BACKEND",
		apply:   func(cfg *Config, v any) { cfg.Generation.Backend = v.(string) },
		extract: func(cfg Config) any { return cfg.Generation.Backend },
	},
	{
		key: "generation.model", typ: kString, env: "AIDE_GENERATION_MODEL",
		apply:   func(cfg *Config, v any) { cfg.Generation.Model = v.(string) },
		extract: func(cfg Config) any { return cfg.Generation.Model },
	},
	{
		key: "generation.openrouter_model", typ: kString, env: "AIDE_GENERATION_OPENROUTER_MODEL",
		apply:   func(cfg *Config, v any) { cfg.Generation.OpenRouterModel = v.(string) },
		extract: func(cfg Config) any { return cfg.Generation.OpenRouterModel },
	},
	{
		key: "generation.ollama_base_url", typ: kString, env: "AIDE_GENERATION_OLLAMA_BASE_URL",
		apply:   func(cfg *Config, v any) { cfg.Generation.OllamaBaseURL = v.(string) },
		extract: func(cfg Config) any { return cfg.Generation.OllamaBaseURL },
	},
	{
		key: "generation.ollama_model", typ: kString, env: "AIDE_GENERATION_OLLAMA_MODEL",
		apply:   func(cfg *Config, v any) { cfg.Generation.OllamaModel = v.(string) },
		extract: func(cfg Config) any { return cfg.Generation.OllamaModel },
	},
	{
		key: "generation.max_output_tokens", typ: kInt, env: "AIDE_GENERATION_MAX_OUTPUT_TOKENS",
		apply:   func(cfg *Config, v any) { cfg.Generation.MaxOutputTokens = v.(int) },
		extract: func(cfg Config) any { return cfg.Generation.MaxOutputTokens },
	},
	{
		key: "generation.temperature", typ: kFloat, env: "AIDE_GENERATION_TEMPERATURE",
		apply:   func(cfg *Config, v any) { cfg.Generation.Temperature = v.(float64) },
		extract: func(cfg Config) any { return cfg.Generation.Temperature },
	},
	{
		key: "generation.top_p", typ: kFloat, env: "AIDE_GENERATION_TOP_P",
		apply:   func(cfg *Config, v any) { cfg.Generation.TopP = v.(float64) },
		extract: func(cfg Config) any { return cfg.Generation.TopP },
	},
	{
		key: "generation.top_k", typ: kFloat, env: "AIDE_GENERATION_TOP_K",
		apply:   func(cfg *Config, v any) { cfg.Generation.TopK = v.(float64) },
		extract: func(cfg Config) any { return cfg.Generation.TopK },
	},
	{
		key: "generation.gemini_api_key", typ: kString, env: "AIDE_GEMINI_API_KEY",
		secret: true, account: "gemini_api_key",
		apply:   func(cfg *Config, v any) { cfg.Generation.GeminiAPIKey = v.(string) },
		extract: func(cfg Config) any { return cfg.Generation.GeminiAPIKey },
	},
	{
		key: "generation.openrouter_api_key", typ: kString, env: "AIDE_OPENROUTER_API_KEY",
		secret: true, account: "openrouter_api_key",
		apply:   func(cfg *Config, v any) { cfg.Generation.OpenRouterAPIKey = v.(string) },
		extract: func(cfg Config) any { return cfg.Generation.OpenRouterAPIKey },
	},
	{
		key: "weather.base_url", typ: kString, env: "AIDE_WEATHER_BASE_URL",
		apply:   func(cfg *Config, v any) { cfg.Weather.BaseURL = v.(string) },
		extract: func(cfg Config) any { return cfg.Weather.BaseURL },
	},
	{
		key: "weather.timeout", typ: kString, env: "AIDE_WEATHER_TIMEOUT",
		apply:   func(cfg *Config, v any) { cfg.Weather.Timeout = v.(string) },
		extract: func(cfg Config) any { return cfg.Weather.Timeout },
	},
	{
		key: "weather.api_key", typ: kString, env: "AIDE_WEATHER_API_KEY",
		secret: true, account: "weather_api_key",
		apply:   func(cfg *Config, v any) { cfg.Weather.APIKey = v.(string) },
		extract: func(cfg Config) any { return cfg.Weather.APIKey },
	},
	{
		key: "memory.max_memories", typ: kInt, env: "AIDE_MEMORY_MAX_MEMORIES",
		apply:   func(cfg *Config, v any) { cfg.Memory.MaxMemories = v.(int) },
		extract: func(cfg Config) any { return cfg.Memory.MaxMemories },
	},
	{
		key: "memory.relevant_limit", typ: kInt, env: "AIDE_MEMORY_RELEVANT_LIMIT",
		apply:   func(cfg *Config, v any) { cfg.Memory.RelevantLimit = v.(int) },
		extract: func(cfg Config) any { return cfg.Memory.RelevantLimit },
	},
	{
		key: "session.history_retained", typ: kInt, env: "AIDE_SESSION_HISTORY_RETAINED",
		apply:   func(cfg *Config, v any) { cfg.Session.HistoryRetained = v.(int) },
		extract: func(cfg Config) any { return cfg.Session.HistoryRetained },
	},
	{
		key: "session.history_in_prompt", typ: kInt, env: "AIDE_SESSION_HISTORY_IN_PROMPT",
		apply:   func(cfg *Config, v any) { cfg.Session.HistoryInPrompt = v.(int) },
		extract: func(cfg Config) any { return cfg.Session.HistoryInPrompt },
	},
}

func applyBackend(cfg *Config, b ConfigBackend) error {
	for _, s := range specs {
		if s.secret {
			continue
		}
		switch s.typ {
		case kString:
			v, ok, err := b.GetString(s.key)
			if err != nil {
				return fmt.Errorf("reading %s: %w", s.key, err)
			}
			if ok {
				s.apply(cfg, v)
			}
		case kInt:
			v, ok, err := b.GetInt(s.key)
			if err != nil {
				return fmt.Errorf("reading %s: %w", s.key, err)
			}
			if ok {
				s.apply(cfg, v)
			}
		case kBool:
			v, ok, err := b.GetString(s.key)
			if err != nil {
				return fmt.Errorf("reading %s: %w", s.key, err)
			}
			if ok && v != "" {
				if bv, err := strconv.ParseBool(v); err == nil {
					s.apply(cfg, bv)
				} else {
					slog.Warn("could not parse bool from config key, using default", "key", s.key, "value", v, "error", err)
				}
			}
		case kFloat:
			v, ok, err := b.GetString(s.key)
			if err != nil {
				return fmt.Errorf("reading %s: %w", s.key, err)
			}
			if ok && v != "" {
				if f, err := strconv.ParseFloat(v, 64); err == nil {
					s.apply(cfg, f)
				} else {
					slog.Warn("could not parse float from config key, using default", "key", s.key, "value", v, "error", err)
				}
			}
		}
	}
	return nil
}

func applyEnvOverrides(cfg *Config) {
	for _, s := range specs {
		if s.env == "" {
			continue
		}
		raw := os.Getenv(s.env)
		if raw == "" {
			continue
		}
		switch s.typ {
		case kString:
			s.apply(cfg, raw)
		case kInt:
			if i, err := strconv.Atoi(raw); err == nil {
				s.apply(cfg, i)
			} else {
				slog.Warn("could not parse integer from env var, using default", "env", s.env, "value", raw, "error", err)
			}
		case kBool:
			if b, err := strconv.ParseBool(raw); err == nil {
				s.apply(cfg, b)
			} else {
				slog.Warn("could not parse bool from env var, using default", "env", s.env, "value", raw, "error", err)
			}
		case kFloat:
			if f, err := strconv.ParseFloat(raw, 64); err == nil {
				s.apply(cfg, f)
			} else {
				slog.Warn("could not parse float from env var, using default", "env", s.env, "value", raw, "error", err)
			}
		}
	}
}
