package generation

import (
	"context"
	"errors"
	"net/http"

	openai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"reqapi/internal/config"
)

const defaultOpenAIModel = "gpt-4o-mini"

// OpenAI generates code through any OpenAI-compatible chat completions endpoint.
type OpenAI struct {
	client    openai.Client
	model     string
	system    string
	maxTokens int64
}

var _ Generator = (*OpenAI)(nil)

// NewOpenAI constructs an OpenAI generator. SDK retries are disabled: a failed
// call fails the request.
func NewOpenAI(cfg config.GenerationConfig, hc *http.Client) (*OpenAI, error) {
	if cfg.APIKey == "" {
		return nil, ErrAPIKeyRequired
	}
	model := cfg.Model
	if model == "" {
		model = defaultOpenAIModel
	}

	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(0),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	if hc != nil {
		opts = append(opts, option.WithHTTPClient(hc))
	}

	return &OpenAI{
		client:    openai.NewClient(opts...),
		model:     model,
		system:    systemPrompt(cfg),
		maxTokens: int64(maxTokens(cfg)),
	}, nil
}

// Generate sends prompt as the only user message and returns the trimmed artifact.
func (o *OpenAI) Generate(ctx context.Context, prompt string) (string, error) {
	var httpResp *http.Response
	resp, err := o.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(o.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(o.system),
			openai.UserMessage(prompt),
		},
		MaxTokens: openai.Int(o.maxTokens),
	}, option.WithResponseInto(&httpResp))
	if err != nil {
		return "", classifyOpenAIError(err, httpResp)
	}

	ext := ExtractChatCompletion(resp.RawJSON())
	if !ext.OK {
		return "", &Error{Reason: ext.Reason, Detail: "no content in first choice"}
	}
	return ext.Artifact, nil
}

func classifyOpenAIError(err error, httpResp *http.Response) error {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		return &Error{
			Reason:     ReasonHTTPError,
			StatusCode: apiErr.StatusCode,
			Detail:     apiErr.RawJSON(),
			Err:        err,
		}
	}
	// A 2xx response that failed to decode is an envelope problem, not transport.
	if httpResp != nil && httpResp.StatusCode >= 200 && httpResp.StatusCode < 300 {
		return &Error{Reason: ReasonEmptyOrMalformed, StatusCode: httpResp.StatusCode, Detail: err.Error(), Err: err}
	}
	return &Error{Reason: ReasonHTTPError, Detail: err.Error(), Err: err}
}
