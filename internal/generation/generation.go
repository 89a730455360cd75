// Package generation calls the external generative-AI service and extracts the
// generated code from its response envelope.
package generation

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"reqapi/internal/config"
)

// Reason classifies a generation failure.
type Reason string

const (
	// ReasonHTTPError covers transport failures and non-success statuses.
	ReasonHTTPError Reason = "http-error"
	// ReasonEmptyOrMalformed covers success responses without a usable artifact.
	ReasonEmptyOrMalformed Reason = "empty-or-malformed"
)

const (
	ProviderOpenAI = "openai"
	ProviderGemini = "gemini"
)

// ErrAPIKeyRequired is returned by constructors when no credential is configured.
var ErrAPIKeyRequired = errors.New("generation api key is required")

// Generator produces a code artifact from a sanitized requirement text.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Error is returned by every Generator on failure.
// Detail may contain the raw provider error body and must only be logged.
type Error struct {
	Reason     Reason
	StatusCode int
	Detail     string
	Err        error
}

func (e *Error) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("generation %s (status %d): %s", e.Reason, e.StatusCode, e.Detail)
	}
	if e.Detail != "" {
		return fmt.Sprintf("generation %s: %s", e.Reason, e.Detail)
	}
	return "generation " + string(e.Reason)
}

func (e *Error) Unwrap() error { return e.Err }

// New builds the Generator selected by cfg.Provider. hc carries the outbound
// transport and timeout; nil means http.DefaultClient.
func New(ctx context.Context, cfg config.GenerationConfig, hc *http.Client) (Generator, error) {
	switch cfg.Provider {
	case ProviderOpenAI, "":
		return NewOpenAI(cfg, hc)
	case ProviderGemini:
		return NewGemini(ctx, cfg, hc)
	default:
		return nil, fmt.Errorf("unsupported generation provider: %s", cfg.Provider)
	}
}

func maxTokens(cfg config.GenerationConfig) int {
	if cfg.MaxTokens > 0 {
		return cfg.MaxTokens
	}
	return 1024
}

func systemPrompt(cfg config.GenerationConfig) string {
	if cfg.SystemPrompt != "" {
		return cfg.SystemPrompt
	}
	return config.DefaultSystemPrompt
}
