package chat

import (
	"context"
	"strings"
	"time"

	"github.com/cloudwego/eino/schema"
	"go.uber.org/zap"

	"github.com/Conversly/lead-response/internal/llm"
	"github.com/Conversly/lead-response/internal/utils"
)

const (
	defaultTitle  = "New Chat"
	titleTimeout  = 15 * time.Second
	titleInputMax = 500
	fallbackMax   = 50
)

// FallbackTitle is the first 50 characters of the prompt, ellipsised.
func FallbackTitle(prompt string) string {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return defaultTitle
	}
	r := []rune(prompt)
	if len(r) > fallbackMax {
		return string(r[:fallbackMax]) + "..."
	}
	return prompt
}

// GenerateTitle asks the model for a short title and falls back to the
// prompt excerpt when it cannot.
func GenerateTitle(ctx context.Context, p llm.Provider, prompt string) string {
	if p == nil || strings.TrimSpace(prompt) == "" {
		return FallbackTitle(prompt)
	}
	r := []rune(prompt)
	if len(r) > titleInputMax {
		r = r[:titleInputMax]
	}

	ctx, cancel := context.WithTimeout(ctx, titleTimeout)
	defer cancel()
	out, err := p.Complete(ctx, &llm.Request{
		Messages: []*schema.Message{schema.UserMessage(
			"Summarize the following user prompt into a very short, concise title (max 6 words). " +
				"Do not use quotes. prompt: " + string(r))},
		MaxTokens: 32,
	})
	if err != nil {
		utils.Zlog.Warn("Title generation failed", zap.String("provider", p.Name()), zap.Error(err))
		return FallbackTitle(prompt)
	}
	title := strings.ReplaceAll(out, `"`, "")
	title = strings.TrimSpace(strings.ReplaceAll(title, "Title:", ""))
	if title == "" {
		return defaultTitle
	}
	return title
}
