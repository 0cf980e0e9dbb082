package nlu

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"strconv"
	"strings"

	"github.com/wolfman30/pharmastic-ai-platform/internal/llm"
)

const extractionPrompt = `You read messages sent to an online pharmacy and extract order details.
Return JSON ONLY, with exactly these fields:
{
  "intent": "order" | "greeting" | "history" | "other",
  "medicine": "string" or null,
  "quantity": int or null,
  "unit": "string" or null,
  "dosage_frequency": "string",
  "prescription_required": "string",
  "language": "string"
}
Use "history" when the customer asks about their previous orders.
"language" is the language the customer wrote in, in lower case English (for example "english", "hindi", "tamil").`

// LLMExtractor asks a language model for an Extraction.
type LLMExtractor struct {
	client llm.Client
	opts   options
}

var _ Extractor = (*LLMExtractor)(nil)

// NewLLMExtractor builds an extractor. A nil client disables the service and
// every call returns the fallback.
func NewLLMExtractor(client llm.Client, opts ...Option) *LLMExtractor {
	return &LLMExtractor{client: client, opts: applyOptions(opts)}
}

func (e *LLMExtractor) Extract(ctx context.Context, text string) Extraction {
	fallback := Fallback(e.opts.baseLanguage)
	text = strings.TrimSpace(text)
	if e.client == nil {
		e.opts.metrics.ObserveFallback("extraction", "disabled")
		return fallback
	}
	if text == "" {
		return fallback
	}

	callCtx, cancel := context.WithTimeout(ctx, e.opts.timeout)
	defer cancel()

	resp, err := e.client.Complete(callCtx, llm.Request{
		System:      []string{extractionPrompt},
		Messages:    []llm.Message{{Role: llm.RoleUser, Content: text}},
		MaxTokens:   256,
		Temperature: 0.1,
		JSONMode:    true,
	})
	if err != nil {
		reason := "error"
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(callCtx.Err(), context.DeadlineExceeded) {
			reason = "timeout"
		}
		e.opts.logger.Warn("extraction failed, using fallback", "reason", reason, "error", err)
		e.opts.metrics.ObserveFallback("extraction", reason)
		return fallback
	}

	out, err := ParseExtraction(resp.Text, e.opts.baseLanguage)
	if err != nil {
		e.opts.logger.Warn("extraction response unusable, using fallback", "error", err)
		e.opts.metrics.ObserveFallback("extraction", "parse")
		return fallback
	}
	return out
}

type rawExtraction struct {
	Intent               string          `json:"intent"`
	Medicine             json.RawMessage `json:"medicine"`
	Quantity             json.RawMessage `json:"quantity"`
	Unit                 json.RawMessage `json:"unit"`
	DosageFrequency      json.RawMessage `json:"dosage_frequency"`
	PrescriptionRequired json.RawMessage `json:"prescription_required"`
	Language             json.RawMessage `json:"language"`
}

// ParseExtraction reads the model output leniently. Any text around the outermost
// JSON object is ignored and loosely typed fields are normalized.
func ParseExtraction(content, baseLanguage string) (Extraction, error) {
	content = strings.TrimSpace(content)
	start := strings.Index(content, "{")
	end := strings.LastIndex(content, "}")
	if start < 0 || end <= start {
		return Extraction{}, errors.New("nlu: no json object in response")
	}

	var raw rawExtraction
	if err := json.Unmarshal([]byte(content[start:end+1]), &raw); err != nil {
		return Extraction{}, err
	}

	out := Extraction{
		Intent:               normalizeIntent(raw.Intent),
		Medicine:             optionalString(raw.Medicine),
		Quantity:             positiveInt(raw.Quantity),
		Unit:                 optionalString(raw.Unit),
		DosageFrequency:      optionalString(raw.DosageFrequency),
		PrescriptionRequired: optionalString(raw.PrescriptionRequired),
		Language:             strings.ToLower(optionalString(raw.Language)),
	}
	if out.Language == "" {
		out.Language = baseLanguage
	}
	if out.Language == "" {
		out.Language = BaseLanguage
	}
	if out.Quantity == 0 {
		out.Unit = ""
	}
	return out, nil
}

func normalizeIntent(s string) Intent {
	switch Intent(strings.ToLower(strings.TrimSpace(s))) {
	case IntentOrder:
		return IntentOrder
	case IntentGreeting:
		return IntentGreeting
	case IntentHistory:
		return IntentHistory
	default:
		return IntentOther
	}
}

// optionalString accepts strings, numbers and booleans; null-like values become "".
func optionalString(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return ""
	}
	var s string
	switch t := v.(type) {
	case string:
		s = strings.TrimSpace(t)
	case bool:
		if t {
			s = "yes"
		} else {
			s = "no"
		}
	case float64:
		s = strconv.FormatFloat(t, 'f', -1, 64)
	default:
		return ""
	}
	switch strings.ToLower(s) {
	case "null", "none", "nil", "n/a", "unknown":
		return ""
	}
	return s
}

func positiveInt(raw json.RawMessage) int {
	if len(raw) == 0 {
		return 0
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return 0
	}
	var f float64
	switch t := v.(type) {
	case float64:
		f = t
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil {
			return 0
		}
		f = parsed
	default:
		return 0
	}
	if f < 1 || f > math.MaxInt32 || f != math.Trunc(f) {
		return 0
	}
	return int(f)
}
