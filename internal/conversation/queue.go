package conversation

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// TurnQueue moves turn jobs between the webhook and the workers. groupID
// keeps one user's messages in order; dedupID lets the queue drop redelivered
// webhooks.
type TurnQueue interface {
	Send(ctx context.Context, groupID, dedupID, body string) error
	Receive(ctx context.Context, maxMessages int, waitSeconds int) ([]queueMessage, error)
	Delete(ctx context.Context, receiptHandle string) error
}

type queueMessage struct {
	ID            string
	Body          string
	ReceiptHandle string
}

type turnJob struct {
	ID         string    `json:"id"`
	Inbound    Inbound   `json:"inbound"`
	EnqueuedAt time.Time `json:"enqueued_at"`
}

func encodeJob(job turnJob) (turnJob, string, error) {
	if job.ID == "" {
		job.ID = uuid.NewString()
	}
	if job.EnqueuedAt.IsZero() {
		job.EnqueuedAt = time.Now().UTC()
	}

	body, err := json.Marshal(job)
	if err != nil {
		return turnJob{}, "", fmt.Errorf("conversation: failed to encode job: %w", err)
	}
	return job, string(body), nil
}
