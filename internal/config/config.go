package config

import (
	"errors"
	"fmt"
	"time"
)

// ErrMissingAPIKey is returned when the selected generation backend has no
// API key in the environment or the secret store.
var ErrMissingAPIKey = errors.New("missing generation API key")

// Secret store service name shared by every secret this package reads.
const secretService = "aide"

type Config struct {
	Server     ServerConfig
	Log        LogConfig
	Storage    StorageConfig
	Generation GenerationConfig
	Weather    WeatherConfig
	Memory     MemoryConfig
	Session    SessionConfig
}

type ServerConfig struct {
	Port int
}

type LogConfig struct {
	Level string
}

// StorageConfig.DataDir is either a directory holding aide.db or the literal
// ":memory:", in which case nothing outlives the process.
type StorageConfig struct {
	DataDir string
}

type GenerationConfig struct {
	Backend          string
	Model            string
	OpenRouterModel  string
	OllamaBaseURL    string
	OllamaModel      string
	MaxOutputTokens  int
	Temperature      float64
	TopP             float64
	TopK             float64
	GeminiAPIKey     string
	OpenRouterAPIKey string
}

type WeatherConfig struct {
	BaseURL string
	Timeout string
	APIKey  string
}

type MemoryConfig struct {
	MaxMemories   int
	RelevantLimit int
}

type SessionConfig struct {
	HistoryRetained int
	HistoryInPrompt int
}

const (
	BackendGemini     = "gemini"
	BackendOpenRouter = "openrouter"
	BackendOllama     = "ollama"
)

const defaultWeatherTimeout = 10 * time.Second

func defaults() Config {
	return Config{
		Server: ServerConfig{
			Port: 4100,
		},
		Log: LogConfig{
			Level: "info",
		},
		Storage: StorageConfig{
			DataDir: ":memory:",
		},
		Generation: GenerationConfig{
			Backend:         BackendGemini,
			Model:           "gemini-2.0-flash-exp",
			OpenRouterModel: "google/gemini-2.0-flash-exp:free",
			OllamaBaseURL:   "http://localhost:11434",
			OllamaModel:     "llama3.2",
			MaxOutputTokens: 500,
			Temperature:     0.7,
			TopP:            0.8,
			TopK:            40,
		},
		Weather: WeatherConfig{
			BaseURL: "http://api.openweathermap.org/data/2.5",
			Timeout: "10s",
		},
		Memory: MemoryConfig{
			MaxMemories:   100,
			RelevantLimit: 5,
		},
		Session: SessionConfig{
			HistoryRetained: 5,
			HistoryInPrompt: 3,
		},
	}
}

// Load reads configuration from the platform-native backend, environment
// variables, and platform secret store.
//
// On macOS the backend is UserDefaults (domain: com.aide.app) and secrets
// fall back to macOS Keychain.
// On Linux the backend is a JSON file at $XDG_CONFIG_HOME/aide/config.json
// and secrets fall back to $XDG_DATA_HOME/aide/secrets.json.
//
// Environment variables (AIDE_*) override backend values on all platforms.
// A missing API key is not an error here; see GenerationAPIKey.
func Load() (Config, error) {
	return loadWith(newPlatformBackend(), keychainReader{})
}

// keychain abstracts secret store reads for testing.
type keychain interface {
	Get(service, account string) (string, error)
}

func loadWith(b ConfigBackend, kc keychain) (Config, error) {
	cfg := defaults()

	if err := applyBackend(&cfg, b); err != nil {
		return Config{}, err
	}

	applyEnvOverrides(&cfg)
	applySecrets(&cfg, kc)

	return cfg, nil
}

// applySecrets fills secrets the environment left empty from the secret store.
func applySecrets(cfg *Config, kc keychain) {
	for _, s := range specs {
		if !s.secret {
			continue
		}
		if v, _ := s.extract(*cfg).(string); v != "" {
			continue
		}
		if key, err := kc.Get(secretService, s.account); err == nil && key != "" {
			s.apply(cfg, key)
		}
	}
}

// GenerationAPIKey returns the key for the configured backend or an error
// naming where the key can be supplied. The ollama backend needs no key.
func (c Config) GenerationAPIKey() (string, error) {
	var key, env, account string
	switch c.Generation.Backend {
	case BackendGemini:
		key, env, account = c.Generation.GeminiAPIKey, "AIDE_GEMINI_API_KEY", "gemini_api_key"
	case BackendOpenRouter:
		key, env, account = c.Generation.OpenRouterAPIKey, "AIDE_OPENROUTER_API_KEY", "openrouter_api_key"
	case BackendOllama:
		return "", nil
	default:
		return "", fmt.Errorf("unknown generation backend %q (want %s, %s or %s)",
			c.Generation.Backend, BackendGemini, BackendOpenRouter, BackendOllama)
	}
	if key == "" {
		return "", fmt.Errorf("%w for %s backend: set environment variable %s%s",
			ErrMissingAPIKey, c.Generation.Backend, env, apiKeyHint(account))
	}
	return key, nil
}

// TimeoutDuration parses Timeout, falling back to ten seconds when it is
// empty, malformed, or not positive.
func (w WeatherConfig) TimeoutDuration() time.Duration {
	d, err := time.ParseDuration(w.Timeout)
	if err != nil || d <= 0 {
		return defaultWeatherTimeout
	}
	return d
}

// keychainReader reads from the platform secret store.
type keychainReader struct{}

func (keychainReader) Get(service, account string) (string, error) {
	return keychainGet(service, account)
}
