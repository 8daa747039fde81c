package translator

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

// ChatClient is the part of llm.Client the translator needs.
type ChatClient interface {
	SimpleChat(ctx context.Context, prompt string, systemPrompt string) (string, error)
}

// LLMTranslator asks a chat model for a line-by-line translation.
type LLMTranslator struct {
	client       ChatClient
	systemPrompt string
}

func NewLLMTranslator(client ChatClient, source, target language.Tag) *LLMTranslator {
	return &LLMTranslator{
		client:       client,
		systemPrompt: buildSystemPrompt(source, target),
	}
}

func (t *LLMTranslator) Translate(ctx context.Context, text string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "", nil
	}
	reply, err := t.client.SimpleChat(ctx, text, t.systemPrompt)
	if err != nil {
		return "", fmt.Errorf("llm translation failed: %w", err)
	}
	return stripCodeFence(reply), nil
}

func buildSystemPrompt(source, target language.Tag) string {
	names := display.English.Tags()
	return fmt.Sprintf(`You are a professional subtitle translator.
Translate the user's %s subtitle lines into natural, concise %s.

## Output Contract (STRICT)
- Each input line is one subtitle. Output exactly one translated line per input line, in the same order.
- Never merge, split, drop or number lines. Never add blank lines.
- Output only the translations: no explanations, quotes, notes or markdown.
- Keep names consistent across lines.`, names.Name(source), names.Name(target))
}

// stripCodeFence removes a ``` wrapper some models put around the answer.
func stripCodeFence(reply string) string {
	trimmed := strings.TrimSpace(reply)
	if !strings.HasPrefix(trimmed, "```") || !strings.HasSuffix(trimmed, "```") || len(trimmed) < 6 {
		return reply
	}
	inner := strings.TrimSuffix(strings.TrimPrefix(trimmed, "```"), "```")
	if idx := strings.Index(inner, "\n"); idx >= 0 && !strings.Contains(inner[:idx], " ") {
		// drop a language hint such as ```text
		inner = inner[idx+1:]
	}
	return strings.Trim(inner, "\n")
}
