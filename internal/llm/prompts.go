package llm

import (
	"crypto/sha256"
	_ "embed"
	"encoding/hex"
	"strings"
)

// DefaultPromptVersion is the reader prompt used when none is configured.
const DefaultPromptVersion = "reader_v1"

// MaxContentChars bounds the page text sent to a reader model.
const MaxContentChars = 50000

var (
	//go:embed prompts/reader_v1.txt
	readerPromptV1 string
)

// PromptTemplate returns the prompt template text and whether the version was recognized.
func PromptTemplate(version string) (string, bool) {
	switch version {
	case "reader_v1":
		return readerPromptV1, true
	default:
		return readerPromptV1, false
	}
}

// BuildPrompt renders the reader prompt for one model. Unknown versions
// fall back to the default template.
func BuildPrompt(version, modelKey string) (usedVersion, prompt string) {
	template, ok := PromptTemplate(strings.TrimSpace(version))
	usedVersion = version
	if !ok {
		usedVersion = DefaultPromptVersion
	}
	replacer := strings.NewReplacer(
		"{{PROMPT_VERSION}}", usedVersion,
		"{{MODEL_KEY}}", modelKey,
	)
	return usedVersion, replacer.Replace(template)
}

// PromptHash fingerprints the rendered template so stored runs can be
// traced back to the exact instructions they used.
func PromptHash(version string) string {
	_, prompt := BuildPrompt(version, "")
	sum := sha256.Sum256([]byte(prompt))
	return hex.EncodeToString(sum[:])
}
