package openai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	goopenai "github.com/sashabaranov/go-openai"

	"readability-backend/internal/llm"
	"readability-backend/internal/shared/telemetry"
)

const maxTokens = 4096

// Client implements llm.Client against any OpenAI-compatible chat
// completion endpoint.
type Client struct {
	api   *goopenai.Client
	model string
}

// NewClient constructs a client for one model. baseURL may be empty for
// the OpenAI default.
func NewClient(apiKey, baseURL, model string) (*Client, error) {
	if strings.TrimSpace(model) == "" {
		return nil, fmt.Errorf("model is required")
	}
	if strings.TrimSpace(apiKey) == "" {
		return nil, fmt.Errorf("api key is required for %s", model)
	}
	cfg := goopenai.DefaultConfig(apiKey)
	if base := strings.TrimRight(strings.TrimSpace(baseURL), "/"); base != "" {
		cfg.BaseURL = base
	}
	return &Client{api: goopenai.NewClientWithConfig(cfg), model: model}, nil
}

// ExtractPage sends the page to the model and returns the raw JSON reply.
func (c *Client) ExtractPage(ctx context.Context, input llm.ExtractInput) (json.RawMessage, error) {
	version, messages := BuildMessages(input)
	req := goopenai.ChatCompletionRequest{
		Model:       c.model,
		Temperature: 0,
		ResponseFormat: &goopenai.ChatCompletionResponseFormat{
			Type: goopenai.ChatCompletionResponseFormatTypeJSONObject,
		},
		Messages: messages,
	}
	if isReasoningModel(c.model) {
		req.MaxCompletionTokens = maxTokens
	} else {
		req.MaxTokens = maxTokens
	}

	resp, err := c.api.CreateChatCompletion(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("%s chat completion: %w", input.ModelKey, err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("%s response missing choices", input.ModelKey)
	}
	content := strings.TrimSpace(resp.Choices[0].Message.Content)
	if content == "" {
		return nil, fmt.Errorf("%s response empty content", input.ModelKey)
	}

	telemetry.Info("llm.response", map[string]any{
		"model":             c.model,
		"model_key":         input.ModelKey,
		"prompt_version":    version,
		"prompt_tokens":     resp.Usage.PromptTokens,
		"completion_tokens": resp.Usage.CompletionTokens,
		"total_tokens":      resp.Usage.TotalTokens,
	})
	return json.RawMessage(content), nil
}

func isReasoningModel(model string) bool {
	m := strings.ToLower(strings.TrimSpace(model))
	for _, prefix := range []string{"o1", "o3", "o4", "gpt-5"} {
		if strings.HasPrefix(m, prefix) {
			return true
		}
	}
	return false
}

var _ llm.Client = (*Client)(nil)
