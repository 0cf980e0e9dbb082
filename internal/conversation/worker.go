package conversation

import (
	"context"
	"encoding/json"
	"errors"
	"hash/fnv"
	"sync"
	"time"

	"github.com/wolfman30/pharmastic-ai-platform/pkg/logging"
)

// TurnHandler runs one conversation turn. *Engine implements it.
type TurnHandler interface {
	HandleMessage(ctx context.Context, in Inbound) (Reply, error)
}

// ReplyMessenger delivers a reply to the customer on their channel.
type ReplyMessenger interface {
	SendReply(ctx context.Context, userID string, reply Reply) error
}

// Worker consumes turn jobs. Jobs are sharded into lanes by user so one
// user's messages are handled in arrival order while different users run in
// parallel.
type Worker struct {
	handler   TurnHandler
	queue     TurnQueue
	messenger ReplyMessenger
	logger    *logging.Logger

	cfg   workerConfig
	lanes []chan queueMessage
	wg    sync.WaitGroup
}

type workerConfig struct {
	workers          int
	receiveWaitSecs  int
	receiveBatchSize int
	turnTimeout      time.Duration
}

// DefaultTurnTimeout bounds one queued or inline turn.
const DefaultTurnTimeout = 30 * time.Second

const (
	defaultWorkerCount   = 4
	defaultWaitSeconds   = 2
	defaultBatchSize     = 5
	maxWaitSeconds       = 20
	maxReceiveBatchSize  = 10
	deleteTimeoutSeconds = 5
)

// WorkerOption customizes worker behavior.
type WorkerOption func(*workerConfig)

// WithWorkerCount sets the number of lanes.
func WithWorkerCount(count int) WorkerOption {
	return func(cfg *workerConfig) {
		if count > 0 {
			cfg.workers = count
		}
	}
}

// WithReceiveWaitSeconds sets the SQS long-poll wait duration.
func WithReceiveWaitSeconds(seconds int) WorkerOption {
	return func(cfg *workerConfig) {
		if seconds < 0 {
			return
		}
		if seconds > maxWaitSeconds {
			seconds = maxWaitSeconds
		}
		cfg.receiveWaitSecs = seconds
	}
}

// WithReceiveBatchSize sets how many messages to fetch per poll.
func WithReceiveBatchSize(size int) WorkerOption {
	return func(cfg *workerConfig) {
		if size <= 0 {
			return
		}
		if size > maxReceiveBatchSize {
			size = maxReceiveBatchSize
		}
		cfg.receiveBatchSize = size
	}
}

// WithTurnTimeout bounds a single turn including reply delivery.
func WithTurnTimeout(d time.Duration) WorkerOption {
	return func(cfg *workerConfig) {
		if d > 0 {
			cfg.turnTimeout = d
		}
	}
}

func NewWorker(handler TurnHandler, queue TurnQueue, messenger ReplyMessenger, logger *logging.Logger, opts ...WorkerOption) *Worker {
	if handler == nil {
		panic("conversation: turn handler cannot be nil")
	}
	if queue == nil {
		panic("conversation: queue cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}

	cfg := workerConfig{
		workers:          defaultWorkerCount,
		receiveWaitSecs:  defaultWaitSeconds,
		receiveBatchSize: defaultBatchSize,
		turnTimeout:      DefaultTurnTimeout,
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	lanes := make([]chan queueMessage, cfg.workers)
	for i := range lanes {
		lanes[i] = make(chan queueMessage, cfg.receiveBatchSize)
	}
	return &Worker{
		handler:   handler,
		queue:     queue,
		messenger: messenger,
		logger:    logger,
		cfg:       cfg,
		lanes:     lanes,
	}
}

// Start launches the receive loop and lane goroutines until ctx is cancelled.
func (w *Worker) Start(ctx context.Context) {
	for i, lane := range w.lanes {
		w.wg.Add(1)
		go w.runLane(ctx, i+1, lane)
	}
	w.wg.Add(1)
	go w.receive(ctx)
}

// Wait blocks until all worker goroutines exit.
func (w *Worker) Wait() {
	w.wg.Wait()
}

func (w *Worker) receive(ctx context.Context) {
	defer w.wg.Done()
	defer func() {
		for _, lane := range w.lanes {
			close(lane)
		}
	}()
	w.logger.Debug("turn receiver started", "lanes", len(w.lanes))

	backoff := time.Second
	for {
		select {
		case <-ctx.Done():
			w.logger.Debug("turn receiver stopping")
			return
		default:
		}

		messages, err := w.queue.Receive(ctx, w.cfg.receiveBatchSize, w.cfg.receiveWaitSecs)
		if err != nil {
			if errors.Is(err, context.Canceled) || ctx.Err() != nil {
				return
			}
			w.logger.Error("failed to receive turn jobs", "error", err)
			select {
			case <-ctx.Done():
				return
			case <-time.After(backoff):
			}
			if backoff < 5*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second

		for _, msg := range messages {
			lane := w.lanes[w.laneFor(msg)]
			select {
			case lane <- msg:
			case <-ctx.Done():
				return
			}
		}
	}
}

// laneFor hashes the job's user id. Undecodable bodies all land in lane 0,
// where handleMessage discards them.
func (w *Worker) laneFor(msg queueMessage) int {
	var job turnJob
	if err := json.Unmarshal([]byte(msg.Body), &job); err != nil {
		return 0
	}
	h := fnv.New32a()
	_, _ = h.Write([]byte(NormalizeUserID(job.Inbound.UserID)))
	return int(h.Sum32() % uint32(len(w.lanes)))
}

func (w *Worker) runLane(ctx context.Context, laneID int, lane <-chan queueMessage) {
	defer w.wg.Done()
	w.logger.Debug("turn lane started", "lane", laneID)
	for msg := range lane {
		w.handleMessage(ctx, msg)
	}
}

func (w *Worker) handleMessage(ctx context.Context, msg queueMessage) {
	var job turnJob
	if err := json.Unmarshal([]byte(msg.Body), &job); err != nil {
		w.logger.Error("failed to decode turn job", "error", err, "msg_id", msg.ID)
		w.deleteMessage(context.Background(), msg.ReceiptHandle)
		return
	}

	turnCtx, cancel := context.WithTimeout(ctx, w.cfg.turnTimeout)
	defer cancel()

	deliverTurn(turnCtx, w.handler, w.messenger, w.logger, job.ID, job.Inbound)
	w.logger.Debug("turn job processed", "job_id", job.ID, "queued_for", time.Since(job.EnqueuedAt).String())

	w.deleteMessage(context.Background(), msg.ReceiptHandle)
}

func (w *Worker) deleteMessage(ctx context.Context, receiptHandle string) {
	if receiptHandle == "" {
		return
	}

	deleteCtx, cancel := context.WithTimeout(ctx, deleteTimeoutSeconds*time.Second)
	defer cancel()

	if err := w.queue.Delete(deleteCtx, receiptHandle); err != nil {
		w.logger.Error("failed to delete turn job", "error", err)
	}
}

// deliverTurn runs a turn and sends its reply, or the apology when the turn
// fails. Messages without a usable sender get no reply.
func deliverTurn(ctx context.Context, handler TurnHandler, messenger ReplyMessenger, logger *logging.Logger, jobID string, in Inbound) {
	reply, err := handler.HandleMessage(ctx, in)
	if err != nil {
		if errors.Is(err, ErrEmptyUserID) {
			logger.Warn("dropping turn without sender", "job_id", jobID)
			return
		}
		logger.Error("turn failed", "error", err, "job_id", jobID, "user_id", in.UserID)
		reply = ApologyReply()
	}

	if messenger == nil {
		return
	}
	if err := messenger.SendReply(ctx, NormalizeUserID(in.UserID), reply); err != nil {
		logger.Error("failed to deliver reply", "error", err, "job_id", jobID, "user_id", in.UserID)
	}
}
