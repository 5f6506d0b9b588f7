package conversation

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/wolfman30/flymebot/pkg/logging"
)

// ReplyMessenger delivers a finished turn back to the user's transport.
type ReplyMessenger interface {
	Deliver(ctx context.Context, resp *Response) error
}

// Worker consumes conversation jobs from the queue and runs them through the
// Service.
type Worker struct {
	processor Service
	queue     queueClient
	jobs      JobUpdater
	messenger ReplyMessenger
	logger    *logging.Logger

	cfg workerConfig
	wg  sync.WaitGroup
}

type workerConfig struct {
	workers          int
	receiveWaitSecs  int
	receiveBatchSize int
	resetter         Resetter
}

const (
	defaultWorkerCount   = 2
	defaultWaitSeconds   = 2
	defaultBatchSize     = 5
	maxWaitSeconds       = 20
	maxReceiveBatchSize  = 10
	deleteTimeoutSeconds = 5
	replyTimeoutSeconds  = 10
)

// WorkerOption customizes worker behavior.
type WorkerOption func(*workerConfig)

// WithWorkerCount sets the number of concurrent consumer goroutines.
func WithWorkerCount(count int) WorkerOption {
	return func(cfg *workerConfig) {
		if count > 0 {
			cfg.workers = count
		}
	}
}

// WithReceiveWaitSeconds sets the long-poll wait duration.
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

// WithResetter handles reset jobs. Without one they are dropped.
func WithResetter(r Resetter) WorkerOption {
	return func(cfg *workerConfig) {
		cfg.resetter = r
	}
}

// NewWorker builds a worker. messenger may be nil when callers poll the job
// store instead.
func NewWorker(processor Service, queue queueClient, jobs JobUpdater, messenger ReplyMessenger, logger *logging.Logger, opts ...WorkerOption) *Worker {
	if processor == nil {
		panic("conversation: processor cannot be nil")
	}
	if queue == nil {
		panic("conversation: queue cannot be nil")
	}
	if jobs == nil {
		panic("conversation: job store cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}

	cfg := workerConfig{
		workers:          defaultWorkerCount,
		receiveWaitSecs:  defaultWaitSeconds,
		receiveBatchSize: defaultBatchSize,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}

	return &Worker{
		processor: processor,
		queue:     queue,
		jobs:      jobs,
		messenger: messenger,
		logger:    logger,
		cfg:       cfg,
	}
}

// Start launches worker goroutines until ctx is cancelled.
func (w *Worker) Start(ctx context.Context) {
	for i := 0; i < w.cfg.workers; i++ {
		w.wg.Add(1)
		go w.run(ctx, i+1)
	}
}

// Wait blocks until all worker goroutines exit.
func (w *Worker) Wait() {
	w.wg.Wait()
}

func (w *Worker) run(ctx context.Context, workerID int) {
	defer w.wg.Done()
	w.logger.Debug("conversation worker started", "worker_id", workerID)

	backoff := time.Second

	for {
		select {
		case <-ctx.Done():
			w.logger.Debug("conversation worker stopping", "worker_id", workerID)
			return
		default:
		}

		messages, err := w.queue.Receive(ctx, w.cfg.receiveBatchSize, w.cfg.receiveWaitSecs)
		if err != nil {
			if errors.Is(err, context.Canceled) || ctx.Err() != nil {
				return
			}
			w.logger.Error("failed to receive conversation jobs", "error", err, "worker_id", workerID)
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
			w.handleMessage(ctx, msg)
		}
	}
}

// handleMessage always deletes the queue message so a failing turn cannot
// loop forever.
func (w *Worker) handleMessage(ctx context.Context, msg queueMessage) {
	defer w.deleteMessage(msg.ReceiptHandle)

	var payload queuePayload
	if err := json.Unmarshal([]byte(msg.Body), &payload); err != nil {
		w.logger.Error("failed to decode conversation job", "error", err, "message_id", msg.ID)
		return
	}

	switch payload.Kind {
	case jobTypeMessage:
		w.handleTurn(ctx, payload)
	case jobTypeReset:
		if w.cfg.resetter == nil {
			w.logger.Warn("reset job dropped, no resetter configured", "conversation_id", payload.Message.ConversationID)
			return
		}
		if err := w.cfg.resetter.Reset(ctx, payload.Message.ConversationID); err != nil {
			w.logger.Error("failed to reset conversation", "error", err, "conversation_id", payload.Message.ConversationID)
		}
	default:
		w.logger.Warn("unknown conversation job kind", "kind", payload.Kind, "job_id", payload.ID)
	}
}

func (w *Worker) handleTurn(ctx context.Context, payload queuePayload) {
	req := payload.Message
	logger := w.logger.With("job_id", payload.ID, "conversation_id", req.ConversationID)

	resp, err := w.processor.ProcessMessage(ctx, req)
	if err != nil {
		logger.Error("failed to process conversation turn", "error", err)
		if payload.TrackStatus {
			if markErr := w.jobs.MarkFailed(context.WithoutCancel(ctx), payload.ID, err.Error()); markErr != nil {
				logger.Error("failed to mark job failed", "error", markErr)
			}
		}
		return
	}

	if payload.TrackStatus {
		if err := w.jobs.MarkCompleted(context.WithoutCancel(ctx), payload.ID, resp, req.ConversationID); err != nil {
			logger.Error("failed to mark job completed", "error", err)
		}
	}

	if w.messenger == nil {
		return
	}
	replyCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), replyTimeoutSeconds*time.Second)
	defer cancel()
	if err := w.messenger.Deliver(replyCtx, resp); err != nil {
		logger.Warn("failed to deliver reply", "error", err)
	}
}

func (w *Worker) deleteMessage(receiptHandle string) {
	ctx, cancel := context.WithTimeout(context.Background(), deleteTimeoutSeconds*time.Second)
	defer cancel()
	if err := w.queue.Delete(ctx, receiptHandle); err != nil {
		w.logger.Error("failed to delete conversation job", "error", err)
	}
}
