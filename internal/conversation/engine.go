package conversation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/wolfman30/pharmastic-ai-platform/internal/customers"
	"github.com/wolfman30/pharmastic-ai-platform/internal/nlu"
	"github.com/wolfman30/pharmastic-ai-platform/internal/observability/metrics"
	"github.com/wolfman30/pharmastic-ai-platform/internal/orders"
	"github.com/wolfman30/pharmastic-ai-platform/internal/session"
	"github.com/wolfman30/pharmastic-ai-platform/pkg/logging"
)

// Deps are the collaborators of an Engine. Sessions, Profiles and Orders are
// required; the rest have working defaults.
type Deps struct {
	Sessions   session.Store
	Profiles   customers.Store
	Orders     orders.Store
	Extractor  nlu.Extractor
	Translator nlu.Translator
	Locker     Locker
	Pricer     Pricer
	Notifier   OrderNotifier
	Logger     *logging.Logger
	Metrics    *metrics.ConversationMetrics
}

// Engine runs conversation turns.
type Engine struct {
	sessions     session.Store
	profiles     customers.Store
	orders       orders.Store
	extractor    nlu.Extractor
	translator   nlu.Translator
	locker       Locker
	pricer       Pricer
	notifier     OrderNotifier
	logger       *logging.Logger
	metrics      *metrics.ConversationMetrics
	tracer       trace.Tracer
	now          func() time.Time
	newOrderID   func() string
	baseLanguage string
}

// Option customizes an Engine.
type Option func(*Engine)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

// WithOrderIDs replaces the order id generator.
func WithOrderIDs(gen func() string) Option {
	return func(e *Engine) {
		if gen != nil {
			e.newOrderID = gen
		}
	}
}

func WithBaseLanguage(language string) Option {
	return func(e *Engine) {
		if strings.TrimSpace(language) != "" {
			e.baseLanguage = strings.ToLower(strings.TrimSpace(language))
		}
	}
}

func WithTracer(tracer trace.Tracer) Option {
	return func(e *Engine) {
		if tracer != nil {
			e.tracer = tracer
		}
	}
}

func NewEngine(deps Deps, opts ...Option) *Engine {
	if deps.Sessions == nil {
		panic("conversation: session store cannot be nil")
	}
	if deps.Profiles == nil {
		panic("conversation: profile store cannot be nil")
	}
	if deps.Orders == nil {
		panic("conversation: order store cannot be nil")
	}

	e := &Engine{
		sessions:     deps.Sessions,
		profiles:     deps.Profiles,
		orders:       deps.Orders,
		extractor:    deps.Extractor,
		translator:   deps.Translator,
		locker:       deps.Locker,
		pricer:       deps.Pricer,
		notifier:     deps.Notifier,
		logger:       deps.Logger,
		metrics:      deps.Metrics,
		tracer:       otel.Tracer("pharmastic.internal.conversation"),
		now:          time.Now,
		newOrderID:   orders.NewOrderID,
		baseLanguage: nlu.BaseLanguage,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(e)
		}
	}
	if e.logger == nil {
		e.logger = logging.Default()
	}
	if e.extractor == nil {
		e.extractor = nlu.FallbackExtractor{BaseLanguage: e.baseLanguage}
	}
	if e.translator == nil {
		e.translator = nlu.PassthroughTranslator{}
	}
	if e.locker == nil {
		e.locker = NewMemoryLocker()
	}
	if e.pricer == nil {
		e.pricer = NewRandomPricer(DefaultMinPrice, DefaultMaxPrice)
	}
	return e
}

// HandleMessage runs one turn for the sender of in and returns the reply to
// deliver. Turns for the same user are serialized; different users run in
// parallel.
func (e *Engine) HandleMessage(ctx context.Context, in Inbound) (Reply, error) {
	userID := NormalizeUserID(in.UserID)
	if userID == "" {
		return Reply{}, ErrEmptyUserID
	}
	text := strings.TrimSpace(in.Text)

	ctx, span := e.tracer.Start(ctx, "conversation.turn", trace.WithAttributes(
		attribute.String("channel", in.Channel),
	))
	defer span.End()
	started := time.Now()

	unlock, err := e.locker.Lock(ctx, userID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "lock")
		e.metrics.ObserveTurn("unknown", "lock_error", time.Since(started).Seconds())
		return Reply{}, fmt.Errorf("conversation: lock session: %w", err)
	}
	defer unlock()

	reply, step, err := e.turn(ctx, userID, text)
	outcomeLabel := "ok"
	if err != nil {
		outcomeLabel = "error"
		span.RecordError(err)
		span.SetStatus(codes.Error, "turn failed")
		e.logger.Error("conversation turn failed", "user_id", userID, "step", string(step), "error", err)
	}
	span.SetAttributes(attribute.String("step", string(step)))
	e.metrics.ObserveTurn(string(step), outcomeLabel, time.Since(started).Seconds())
	return reply, err
}

func (e *Engine) turn(ctx context.Context, userID, text string) (Reply, session.Step, error) {
	sess, err := e.sessions.Get(ctx, userID)
	if err != nil {
		if !errors.Is(err, session.ErrCorruptRecord) {
			return Reply{}, session.StepNeedsProfileCheck, fmt.Errorf("conversation: load session: %w", err)
		}
		e.logger.Warn("discarding unreadable session", "user_id", userID, "error", err)
		sess = session.New(userID)
	}
	step := sess.Step()

	profile, err := e.profiles.Find(ctx, userID)
	if err != nil {
		return Reply{}, step, fmt.Errorf("conversation: load profile: %w", err)
	}

	in := turnInput{
		userID:  userID,
		state:   sess.State,
		text:    text,
		profile: profile,
		now:     e.now().UTC(),
	}
	if err := e.gather(ctx, step, &in); err != nil {
		return Reply{}, step, err
	}

	out := decide(in, turnEnv{
		baseLanguage: e.baseLanguage,
		unitPrice: func(medicine string) int64 {
			return e.pricer.UnitPrice(ctx, medicine)
		},
		newOrderID: e.newOrderID,
	})

	if err := e.commit(ctx, userID, profile, out); err != nil {
		return Reply{}, step, err
	}

	e.logger.Info("conversation turn",
		"user_id", userID,
		"step", string(step),
		"next_step", string(out.next.Step()),
	)

	reply := out.reply
	if out.language != "" && !nlu.IsBaseLanguage(out.language, e.baseLanguage) {
		reply.Text = e.translator.Translate(ctx, reply.Text, out.language)
	}
	return reply.Normalized(), step, nil
}

// gather runs the adapter and store reads the current step needs.
func (e *Engine) gather(ctx context.Context, step session.Step, in *turnInput) error {
	needsExtraction := step == session.StepMainMenu ||
		step == session.StepAwaitingQuantity ||
		(step == session.StepNeedsProfileCheck && in.profile != nil)
	if !needsExtraction {
		return nil
	}

	in.extraction = e.extractor.Extract(ctx, in.text)
	if in.extraction.Language == "" {
		in.extraction.Language = e.baseLanguage
	}

	if step != session.StepAwaitingQuantity && wantsHistory(in.text, in.extraction) {
		recent, err := e.orders.RecentByCustomer(ctx, in.userID, orders.DefaultRecentLimit)
		if err != nil {
			return fmt.Errorf("conversation: load recent orders: %w", err)
		}
		in.recent = recent
	}
	return nil
}
