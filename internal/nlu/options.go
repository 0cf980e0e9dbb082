package nlu

import (
	"time"

	"github.com/wolfman30/pharmastic-ai-platform/internal/observability/metrics"
	"github.com/wolfman30/pharmastic-ai-platform/pkg/logging"
)

const defaultTimeout = 8 * time.Second

type options struct {
	baseLanguage string
	timeout      time.Duration
	logger       *logging.Logger
	metrics      *metrics.ConversationMetrics
}

// Option configures an extractor or translator.
type Option func(*options)

func WithBaseLanguage(language string) Option {
	return func(o *options) {
		if language != "" {
			o.baseLanguage = language
		}
	}
}

// WithTimeout bounds each service call. Non-positive values keep the default.
func WithTimeout(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.timeout = d
		}
	}
}

func WithLogger(logger *logging.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

func WithMetrics(m *metrics.ConversationMetrics) Option {
	return func(o *options) {
		o.metrics = m
	}
}

func applyOptions(opts []Option) options {
	o := options{
		baseLanguage: BaseLanguage,
		timeout:      defaultTimeout,
		logger:       logging.Default(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	return o
}
