// Package generate turns arc suggestions into plot prose.
//
// Supports two providers:
//   - Google GenAI (generativelanguage.googleapis.com)
//   - OpenRouter (openrouter.ai)
//
// All HTTP calls use syscall/js to leverage the browser's fetch API,
// avoiding CORS issues in WASM environment. Native builds get a stub
// that reports the provider as unavailable.
package generate

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Provider type for LLM providers.
type Provider string

const (
	ProviderGoogle     Provider = "google"
	ProviderOpenRouter Provider = "openrouter"
)

// Config holds generation settings passed from the host UI.
type Config struct {
	Provider         Provider `json:"provider"`
	GoogleAPIKey     string   `json:"googleApiKey"`
	GoogleModel      string   `json:"googleModel"`
	OpenRouterAPIKey string   `json:"openRouterApiKey"`
	OpenRouterModel  string   `json:"openRouterModel"`
}

// Generator produces plot prose for a prompt payload. The concrete
// Service talks to a real provider; tests substitute fakes.
type Generator interface {
	Generate(ctx context.Context, p Payload) (string, error)
}

// Service handles non-streaming plot generation.
type Service struct {
	config Config
}

// NewService creates a generation service with config from the host.
func NewService(config Config) *Service {
	return &Service{config: config}
}

// UpdateConfig updates the service configuration.
func (s *Service) UpdateConfig(config Config) {
	s.config = config
}

// IsConfigured checks if the current provider has valid credentials.
func (s *Service) IsConfigured() bool {
	switch s.config.Provider {
	case ProviderGoogle:
		return s.config.GoogleAPIKey != ""
	case ProviderOpenRouter:
		return s.config.OpenRouterAPIKey != ""
	default:
		return false
	}
}

// Generate makes a non-streaming completion request and returns the
// cleaned prose. Failures leave no trace anywhere; callers report them
// without touching arc or profile state.
func (s *Service) Generate(ctx context.Context, p Payload) (string, error) {
	if !s.IsConfigured() {
		return "", errors.New("generate: provider not configured")
	}

	userPrompt := p.BuildUserPrompt()

	var raw string
	var err error
	switch s.config.Provider {
	case ProviderGoogle:
		raw, err = s.callGoogle(ctx, userPrompt, SystemPrompt)
	case ProviderOpenRouter:
		raw, err = s.callOpenRouter(ctx, userPrompt, SystemPrompt)
	default:
		return "", errors.New("generate: unknown provider")
	}
	if err != nil {
		return "", fmt.Errorf("generate: completion failed: %w", err)
	}

	text := stripCodeFence(strings.TrimSpace(raw))
	if text == "" {
		return "", errors.New("generate: empty completion")
	}
	return text, nil
}

// stripCodeFence removes markdown code block wrappers some models insist
// on adding around plain prose.
func stripCodeFence(s string) string {
	if !strings.HasPrefix(s, "```") {
		return s
	}
	lines := strings.Split(s, "\n")
	if len(lines) > 0 {
		lines = lines[1:]
	}
	if len(lines) > 0 && strings.HasPrefix(strings.TrimSpace(lines[len(lines)-1]), "```") {
		lines = lines[:len(lines)-1]
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}

var _ Generator = (*Service)(nil)
