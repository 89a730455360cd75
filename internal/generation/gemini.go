package generation

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"google.golang.org/genai"

	"reqapi/internal/config"
)

const defaultGeminiModel = "gemini-2.0-flash"

// Gemini generates code through the Google Gemini API.
type Gemini struct {
	client    *genai.Client
	model     string
	system    string
	maxTokens int32
}

var _ Generator = (*Gemini)(nil)

// NewGemini constructs a Gemini generator.
func NewGemini(ctx context.Context, cfg config.GenerationConfig, hc *http.Client) (*Gemini, error) {
	if cfg.APIKey == "" {
		return nil, ErrAPIKeyRequired
	}
	model := cfg.Model
	if model == "" {
		model = defaultGeminiModel
	}

	cc := &genai.ClientConfig{
		APIKey:     cfg.APIKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: hc,
	}
	if cfg.BaseURL != "" {
		cc.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.BaseURL}
	}

	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}

	return &Gemini{
		client:    client,
		model:     model,
		system:    systemPrompt(cfg),
		maxTokens: int32(maxTokens(cfg)),
	}, nil
}

// Generate sends prompt as the only user content and returns the trimmed artifact.
func (g *Gemini) Generate(ctx context.Context, prompt string) (string, error) {
	resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(prompt), &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(g.system, genai.RoleUser),
		MaxOutputTokens:   g.maxTokens,
	})
	if err != nil {
		var apiErr genai.APIError
		if errors.As(err, &apiErr) {
			return "", &Error{Reason: ReasonHTTPError, StatusCode: apiErr.Code, Detail: apiErr.Message, Err: err}
		}
		return "", &Error{Reason: ReasonHTTPError, Detail: err.Error(), Err: err}
	}

	ext := ExtractGemini(resp)
	if !ext.OK {
		return "", &Error{Reason: ext.Reason, Detail: "no text in first candidate"}
	}
	return ext.Artifact, nil
}
