package openai

import (
	goopenai "github.com/sashabaranov/go-openai"

	"readability-backend/internal/extract"
	"readability-backend/internal/llm"
)

const systemPrompt = "You are a web page reader. Respond with JSON only. No markdown. Never omit keys."

// BuildMessages creates the chat messages for one reader extraction. Page
// content is cut at a sentence boundary before the character limit.
func BuildMessages(input llm.ExtractInput) (string, []goopenai.ChatCompletionMessage) {
	version, instructions := llm.BuildPrompt(input.PromptVersion, input.ModelKey)
	content := extract.TruncateAtSentence(input.Content, llm.MaxContentChars)
	return version, []goopenai.ChatCompletionMessage{
		{Role: goopenai.ChatMessageRoleSystem, Content: systemPrompt},
		{Role: goopenai.ChatMessageRoleUser, Content: instructions + "\nPAGE CONTENT:\n" + content},
	}
}
