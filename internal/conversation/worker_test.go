package conversation

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	sqstypes "github.com/aws/aws-sdk-go-v2/service/sqs/types"

	"github.com/wolfman30/pharmastic-ai-platform/pkg/logging"
)

type stubQueue struct {
	mu     sync.Mutex
	sent   []sentMessage
	delete []string
}

type sentMessage struct {
	group, dedup, body string
}

func (s *stubQueue) Send(_ context.Context, group, dedup, body string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, sentMessage{group, dedup, body})
	return nil
}

func (s *stubQueue) Receive(context.Context, int, int) ([]queueMessage, error) {
	return nil, context.Canceled
}

func (s *stubQueue) Delete(_ context.Context, receiptHandle string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.delete = append(s.delete, receiptHandle)
	return nil
}

func TestPublisherEnqueueUsesUserAsGroup(t *testing.T) {
	queue := &stubQueue{}
	publisher := NewPublisher(queue, logging.Default())

	err := publisher.Enqueue(context.Background(), Inbound{UserID: "whatsapp:+919812345678", Text: "hi", MessageID: "wamid.1"})
	if err != nil {
		t.Fatalf("enqueue returned error: %v", err)
	}
	if len(queue.sent) != 1 {
		t.Fatalf("expected 1 message, got %d", len(queue.sent))
	}
	msg := queue.sent[0]
	if msg.group != "919812345678" || msg.dedup != "wamid.1" {
		t.Fatalf("unexpected group/dedup %q/%q", msg.group, msg.dedup)
	}

	var job turnJob
	if err := json.Unmarshal([]byte(msg.body), &job); err != nil {
		t.Fatalf("failed to decode payload: %v", err)
	}
	if job.ID != "wamid.1" || job.Inbound.UserID != "919812345678" || job.Inbound.Text != "hi" {
		t.Fatalf("unexpected job %+v", job)
	}
	if job.EnqueuedAt.IsZero() {
		t.Fatal("expected enqueue time")
	}
}

func TestPublisherRejectsEmptySender(t *testing.T) {
	publisher := NewPublisher(&stubQueue{}, nil)
	if err := publisher.Enqueue(context.Background(), Inbound{UserID: "whatsapp:"}); !errors.Is(err, ErrEmptyUserID) {
		t.Fatalf("expected ErrEmptyUserID, got %v", err)
	}
}

type recordingHandler struct {
	mu    sync.Mutex
	seen  map[string][]string
	fail  string
	delay time.Duration
}

func (h *recordingHandler) HandleMessage(_ context.Context, in Inbound) (Reply, error) {
	if h.delay > 0 {
		time.Sleep(h.delay)
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.seen[in.UserID] = append(h.seen[in.UserID], in.Text)
	if in.Text == h.fail {
		return Reply{}, errors.New("boom")
	}
	return Reply{Text: "echo " + in.Text}, nil
}

type recordingMessenger struct {
	mu      sync.Mutex
	replies map[string][]string
}

func (m *recordingMessenger) SendReply(_ context.Context, userID string, reply Reply) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.replies[userID] = append(m.replies[userID], reply.Text)
	return nil
}

func (m *recordingMessenger) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, r := range m.replies {
		n += len(r)
	}
	return n
}

func TestWorkerKeepsPerUserOrder(t *testing.T) {
	queue := NewMemoryQueue(64)
	publisher := NewPublisher(queue, logging.Default())
	handler := &recordingHandler{seen: map[string][]string{}, delay: time.Millisecond}
	messenger := &recordingMessenger{replies: map[string][]string{}}

	worker := NewWorker(handler, queue, messenger, logging.Default(), WithWorkerCount(3), WithReceiveWaitSeconds(1))
	ctx, cancel := context.WithCancel(context.Background())
	worker.Start(ctx)

	users := []string{"911", "912", "913", "914"}
	texts := []string{"a", "b", "c", "d", "e"}
	for _, text := range texts {
		for _, user := range users {
			if err := publisher.Enqueue(ctx, Inbound{UserID: user, Text: text}); err != nil {
				t.Fatalf("enqueue: %v", err)
			}
		}
	}

	deadline := time.Now().Add(5 * time.Second)
	for messenger.count() < len(users)*len(texts) {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for replies, got %d", messenger.count())
		}
		time.Sleep(5 * time.Millisecond)
	}
	cancel()
	worker.Wait()

	for _, user := range users {
		got := handler.seen[user]
		if len(got) != len(texts) {
			t.Fatalf("user %s: expected %d turns, got %v", user, len(texts), got)
		}
		for i := range texts {
			if got[i] != texts[i] {
				t.Fatalf("user %s: out of order %v", user, got)
			}
		}
	}
}

func TestWorkerSendsApologyOnFailure(t *testing.T) {
	queue := &stubQueue{}
	handler := &recordingHandler{seen: map[string][]string{}, fail: "break"}
	messenger := &recordingMessenger{replies: map[string][]string{}}
	worker := NewWorker(handler, queue, messenger, logging.Default())

	_, body, err := encodeJob(turnJob{Inbound: Inbound{UserID: "915", Text: "break"}})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	worker.handleMessage(context.Background(), queueMessage{ID: "m1", Body: body, ReceiptHandle: "rh-1"})

	if got := messenger.replies["915"]; len(got) != 1 || got[0] != ApologyReply().Text {
		t.Fatalf("expected apology, got %v", got)
	}
	if len(queue.delete) != 1 || queue.delete[0] != "rh-1" {
		t.Fatalf("expected message deleted, got %v", queue.delete)
	}
}

func TestWorkerDropsUndecodableJobs(t *testing.T) {
	queue := &stubQueue{}
	messenger := &recordingMessenger{replies: map[string][]string{}}
	worker := NewWorker(&recordingHandler{seen: map[string][]string{}}, queue, messenger, nil)

	worker.handleMessage(context.Background(), queueMessage{ID: "m1", Body: "{not json", ReceiptHandle: "rh-2"})
	if messenger.count() != 0 {
		t.Fatal("no reply expected for an undecodable job")
	}
	if len(queue.delete) != 1 {
		t.Fatalf("expected poison message deleted, got %v", queue.delete)
	}
}

type fakeSQS struct {
	sent *sqs.SendMessageInput
}

func (f *fakeSQS) SendMessage(_ context.Context, in *sqs.SendMessageInput, _ ...func(*sqs.Options)) (*sqs.SendMessageOutput, error) {
	f.sent = in
	return &sqs.SendMessageOutput{}, nil
}

func (f *fakeSQS) ReceiveMessage(context.Context, *sqs.ReceiveMessageInput, ...func(*sqs.Options)) (*sqs.ReceiveMessageOutput, error) {
	return &sqs.ReceiveMessageOutput{Messages: []sqstypes.Message{{
		MessageId: aws.String("m-1"), Body: aws.String("{}"), ReceiptHandle: aws.String("rh"),
	}}}, nil
}

func (f *fakeSQS) DeleteMessage(context.Context, *sqs.DeleteMessageInput, ...func(*sqs.Options)) (*sqs.DeleteMessageOutput, error) {
	return &sqs.DeleteMessageOutput{}, nil
}

func TestSQSQueueSetsGroupOnFIFO(t *testing.T) {
	fake := &fakeSQS{}
	q := NewSQSQueue(fake, "https://sqs.ap-south-1.amazonaws.com/123/turns.fifo")
	if err := q.Send(context.Background(), "919", "wamid.9", "{}"); err != nil {
		t.Fatalf("send: %v", err)
	}
	if aws.ToString(fake.sent.MessageGroupId) != "919" || aws.ToString(fake.sent.MessageDeduplicationId) != "wamid.9" {
		t.Fatalf("unexpected FIFO attributes %+v", fake.sent)
	}

	std := NewSQSQueue(fake, "https://sqs.ap-south-1.amazonaws.com/123/turns")
	if err := std.Send(context.Background(), "919", "wamid.9", "{}"); err != nil {
		t.Fatalf("send: %v", err)
	}
	if fake.sent.MessageGroupId != nil {
		t.Fatal("standard queues must not set a message group")
	}

	msgs, err := q.Receive(context.Background(), 1, 0)
	if err != nil || len(msgs) != 1 || msgs[0].ReceiptHandle != "rh" {
		t.Fatalf("unexpected receive %+v, %v", msgs, err)
	}
}
