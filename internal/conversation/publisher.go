package conversation

import (
	"context"
	"fmt"

	"github.com/wolfman30/pharmastic-ai-platform/pkg/logging"
)

// Publisher enqueues inbound messages for the turn workers.
type Publisher struct {
	queue  TurnQueue
	logger *logging.Logger
}

// NewPublisher creates a queue-backed publisher.
func NewPublisher(queue TurnQueue, logger *logging.Logger) *Publisher {
	if queue == nil {
		panic("conversation: queue cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Publisher{
		queue:  queue,
		logger: logger,
	}
}

// Enqueue publishes one inbound message. The gateway message id doubles as
// the job id so redelivered webhooks collapse on FIFO queues.
func (p *Publisher) Enqueue(ctx context.Context, in Inbound) error {
	userID := NormalizeUserID(in.UserID)
	if userID == "" {
		return ErrEmptyUserID
	}
	in.UserID = userID

	job, body, err := encodeJob(turnJob{ID: in.MessageID, Inbound: in})
	if err != nil {
		return err
	}
	if err := p.queue.Send(ctx, userID, job.ID, body); err != nil {
		return fmt.Errorf("conversation: failed to enqueue turn: %w", err)
	}

	p.logger.Debug("turn enqueued", "job_id", job.ID, "user_id", userID)
	return nil
}
