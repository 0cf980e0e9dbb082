package nlu

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/wolfman30/pharmastic-ai-platform/internal/llm"
)

const translationPrompt = `Translate to %s. Professional but friendly. Keep emojis.
Keep *bold* markers, line breaks, numbers, medicine names and the ₹ sign exactly as they are.
Reply with the translation only.`

// LLMTranslator localizes outbound replies with a language model.
type LLMTranslator struct {
	client llm.Client
	opts   options
}

var _ Translator = (*LLMTranslator)(nil)

// NewLLMTranslator builds a translator. A nil client makes it a passthrough.
func NewLLMTranslator(client llm.Client, opts ...Option) *LLMTranslator {
	return &LLMTranslator{client: client, opts: applyOptions(opts)}
}

func (t *LLMTranslator) Translate(ctx context.Context, text, targetLanguage string) string {
	if t.client == nil || strings.TrimSpace(text) == "" || IsBaseLanguage(targetLanguage, t.opts.baseLanguage) {
		return text
	}
	target := strings.ToLower(strings.TrimSpace(targetLanguage))

	callCtx, cancel := context.WithTimeout(ctx, t.opts.timeout)
	defer cancel()

	resp, err := t.client.Complete(callCtx, llm.Request{
		System:      []string{fmt.Sprintf(translationPrompt, target)},
		Messages:    []llm.Message{{Role: llm.RoleUser, Content: text}},
		MaxTokens:   512,
		Temperature: 0.2,
	})
	if err != nil {
		reason := "error"
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(callCtx.Err(), context.DeadlineExceeded) {
			reason = "timeout"
		}
		t.opts.logger.Warn("translation failed, sending base language", "target_language", target, "reason", reason, "error", err)
		t.opts.metrics.ObserveFallback("translation", reason)
		return text
	}

	translated := strings.TrimSpace(resp.Text)
	if translated == "" {
		t.opts.metrics.ObserveFallback("translation", "empty")
		return text
	}
	return translated
}
