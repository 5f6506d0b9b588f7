package conversation

import (
	"context"
	"fmt"

	"github.com/wolfman30/flymebot/pkg/logging"
)

// Enqueuer hands turns to the worker pool.
type Enqueuer interface {
	EnqueueMessage(ctx context.Context, jobID string, req MessageRequest, opts ...PublishOption) error
}

// Publisher enqueues conversation jobs for asynchronous processing.
type Publisher struct {
	queue  queueClient
	logger *logging.Logger
}

var _ Enqueuer = (*Publisher)(nil)

// NewPublisher creates a queue-backed publisher.
func NewPublisher(queue queueClient, logger *logging.Logger) *Publisher {
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

// EnqueueMessage publishes a turn job. Jobs are tracked in the job store
// unless WithoutJobTracking is passed.
func (p *Publisher) EnqueueMessage(ctx context.Context, jobID string, req MessageRequest, opts ...PublishOption) error {
	return p.enqueue(ctx, queuePayload{ID: jobID, Kind: jobTypeMessage, Message: req, TrackStatus: true}, opts)
}

// EnqueueReset publishes a job that drops the conversation's dialog state.
func (p *Publisher) EnqueueReset(ctx context.Context, conversationID string) error {
	return p.enqueue(ctx, queuePayload{Kind: jobTypeReset, Message: MessageRequest{ConversationID: conversationID}}, nil)
}

func (p *Publisher) enqueue(ctx context.Context, payload queuePayload, opts []PublishOption) error {
	for _, opt := range opts {
		if opt != nil {
			opt(&payload)
		}
	}

	payload, body, err := encodePayload(payload)
	if err != nil {
		return err
	}

	if err := p.queue.Send(ctx, body); err != nil {
		return fmt.Errorf("conversation: failed to enqueue job: %w", err)
	}

	p.logger.Debug("conversation job enqueued",
		"job_id", payload.ID,
		"kind", payload.Kind,
		"conversation_id", payload.Message.ConversationID,
	)
	return nil
}
