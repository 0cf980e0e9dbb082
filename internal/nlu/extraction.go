// Package nlu turns free-form customer text into order details and localizes replies.
package nlu

import (
	"context"
	"strings"
)

// Intent is what the customer is trying to do.
type Intent string

const (
	IntentOrder    Intent = "order"
	IntentGreeting Intent = "greeting"
	IntentHistory  Intent = "history"
	IntentOther    Intent = "other"
)

// BaseLanguage is the language replies are written in before translation.
const BaseLanguage = "english"

// Extraction is the structured reading of one message. Zero values mean absent.
type Extraction struct {
	Intent               Intent
	Medicine             string
	Quantity             int
	Unit                 string
	DosageFrequency      string
	PrescriptionRequired string
	Language             string
	// Degraded marks the fallback result; Language is then a default, not a detection.
	Degraded bool
}

func (e Extraction) HasMedicine() bool { return strings.TrimSpace(e.Medicine) != "" }

func (e Extraction) HasQuantity() bool { return e.Quantity > 0 }

// Fallback is the extraction used whenever the service is disabled or misbehaves.
func Fallback(baseLanguage string) Extraction {
	if strings.TrimSpace(baseLanguage) == "" {
		baseLanguage = BaseLanguage
	}
	return Extraction{Intent: IntentOther, Language: baseLanguage, Degraded: true}
}

// Extractor never fails: problems are reported through the fallback result.
type Extractor interface {
	Extract(ctx context.Context, text string) Extraction
}

// Translator returns text unchanged whenever it cannot localize it.
type Translator interface {
	Translate(ctx context.Context, text, targetLanguage string) string
}

// IsBaseLanguage reports whether language needs no translation.
func IsBaseLanguage(language, base string) bool {
	lang := strings.ToLower(strings.TrimSpace(language))
	switch lang {
	case "", "en", "eng", "english":
		return true
	}
	return lang == strings.ToLower(strings.TrimSpace(base))
}

// FallbackExtractor always returns the fallback. Used when no LLM is configured.
type FallbackExtractor struct {
	BaseLanguage string
}

func (f FallbackExtractor) Extract(context.Context, string) Extraction {
	return Fallback(f.BaseLanguage)
}

// PassthroughTranslator never translates.
type PassthroughTranslator struct{}

func (PassthroughTranslator) Translate(_ context.Context, text, _ string) string { return text }
