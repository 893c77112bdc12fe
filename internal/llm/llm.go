package llm

import (
	"context"
	"encoding/json"
)

// Client abstracts a reader model reached through a chat completion API.
type Client interface {
	ExtractPage(ctx context.Context, input ExtractInput) (json.RawMessage, error)
}

// ExtractInput is the page content handed to one reader model.
type ExtractInput struct {
	ModelKey      string
	Content       string
	PromptVersion string
}
