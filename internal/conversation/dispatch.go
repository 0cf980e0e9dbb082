package conversation

import (
	"context"
	"time"

	"github.com/wolfman30/pharmastic-ai-platform/pkg/logging"
)

// Dispatcher accepts inbound messages from a gateway. The reply, if any, is
// delivered out of band through a ReplyMessenger.
type Dispatcher interface {
	Dispatch(ctx context.Context, in Inbound) error
}

// Dispatch implements Dispatcher by enqueueing the message.
func (p *Publisher) Dispatch(ctx context.Context, in Inbound) error {
	return p.Enqueue(ctx, in)
}

// InlineDispatcher runs the turn in the caller's goroutine and sends the
// reply before returning.
type InlineDispatcher struct {
	handler   TurnHandler
	messenger ReplyMessenger
	logger    *logging.Logger
	timeout   time.Duration
}

func NewInlineDispatcher(handler TurnHandler, messenger ReplyMessenger, logger *logging.Logger) *InlineDispatcher {
	if handler == nil {
		panic("conversation: turn handler cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &InlineDispatcher{handler: handler, messenger: messenger, logger: logger, timeout: DefaultTurnTimeout}
}

func (d *InlineDispatcher) Dispatch(ctx context.Context, in Inbound) error {
	if NormalizeUserID(in.UserID) == "" {
		return ErrEmptyUserID
	}
	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()
	deliverTurn(ctx, d.handler, d.messenger, d.logger, in.MessageID, in)
	return nil
}
