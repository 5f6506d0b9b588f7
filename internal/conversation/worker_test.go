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
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/flymebot/internal/dialog"
	"github.com/wolfman30/flymebot/pkg/logging"
)

type recordingService struct {
	mu    sync.Mutex
	reqs  []MessageRequest
	err   error
	reset []string
}

func (s *recordingService) ProcessMessage(_ context.Context, req MessageRequest) (*Response, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reqs = append(s.reqs, req)
	if s.err != nil {
		return nil, s.err
	}
	return &Response{
		ConversationID: req.ConversationID,
		Status:         dialog.StatusWaiting,
		Activities:     []dialog.Activity{dialog.Message("echo: " + req.Text)},
	}, nil
}

func (s *recordingService) Reset(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reset = append(s.reset, id)
	return nil
}

func (s *recordingService) calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.reqs) + len(s.reset)
}

type recordingMessenger struct {
	mu        sync.Mutex
	delivered []*Response
}

func (m *recordingMessenger) Deliver(_ context.Context, resp *Response) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.delivered = append(m.delivered, resp)
	return nil
}

type countingQueue struct {
	*MemoryQueue
	mu      sync.Mutex
	deleted []string
}

func (q *countingQueue) Delete(_ context.Context, handle string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.deleted = append(q.deleted, handle)
	return nil
}

func (q *countingQueue) deletes() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.deleted)
}

func runWorker(t *testing.T, svc *recordingService, queue queueClient, jobs JobUpdater, messenger ReplyMessenger, until func() bool) {
	t.Helper()
	w := NewWorker(svc, queue, jobs, messenger, logging.Discard(),
		WithWorkerCount(1), WithReceiveBatchSize(1), WithReceiveWaitSeconds(0), WithResetter(svc))
	ctx, cancel := context.WithCancel(context.Background())
	w.Start(ctx)
	require.Eventually(t, until, time.Second, 5*time.Millisecond)
	cancel()
	w.Wait()
}

func TestWorker_ProcessesQueuedTurns(t *testing.T) {
	queue := &countingQueue{MemoryQueue: NewMemoryQueue(4)}
	jobs := NewMemoryJobStore()
	svc := &recordingService{}
	messenger := &recordingMessenger{}
	publisher := NewPublisher(queue, logging.Discard())
	ctx := context.Background()

	require.NoError(t, jobs.PutPending(ctx, &JobRecord{JobID: "job-1"}))
	require.NoError(t, publisher.EnqueueMessage(ctx, "job-1", MessageRequest{ConversationID: "c1", Text: "hello"}))

	runWorker(t, svc, queue, jobs, messenger, func() bool { return queue.deletes() == 1 })

	job, err := jobs.GetJob(ctx, "job-1")
	require.NoError(t, err)
	assert.Equal(t, JobStatusCompleted, job.Status)
	assert.Equal(t, "c1", job.ConversationID)
	assert.Equal(t, []string{"echo: hello"}, job.Response.Texts())

	require.Len(t, messenger.delivered, 1)
	assert.Equal(t, "c1", messenger.delivered[0].ConversationID)
}

func TestWorker_FailedTurnIsRecordedAndDeleted(t *testing.T) {
	queue := &countingQueue{MemoryQueue: NewMemoryQueue(4)}
	jobs := NewMemoryJobStore()
	svc := &recordingService{err: errors.New("lock timeout")}
	messenger := &recordingMessenger{}
	ctx := context.Background()

	require.NoError(t, jobs.PutPending(ctx, &JobRecord{JobID: "job-2"}))
	require.NoError(t, NewPublisher(queue, logging.Discard()).EnqueueMessage(ctx, "job-2", MessageRequest{ConversationID: "c2"}))

	runWorker(t, svc, queue, jobs, messenger, func() bool { return queue.deletes() == 1 })

	job, err := jobs.GetJob(ctx, "job-2")
	require.NoError(t, err)
	assert.Equal(t, JobStatusFailed, job.Status)
	assert.Equal(t, "lock timeout", job.ErrorMessage)
	assert.Empty(t, messenger.delivered)
}

func TestWorker_ResetAndGarbage(t *testing.T) {
	queue := &countingQueue{MemoryQueue: NewMemoryQueue(4)}
	svc := &recordingService{}
	ctx := context.Background()

	require.NoError(t, queue.Send(ctx, "{garbage"))
	require.NoError(t, NewPublisher(queue, logging.Discard()).EnqueueReset(ctx, "c3"))
	untracked := NewPublisher(queue, logging.Discard())
	require.NoError(t, untracked.EnqueueMessage(ctx, "", MessageRequest{ConversationID: "c4"}, WithoutJobTracking()))

	runWorker(t, svc, queue, NewMemoryJobStore(), nil, func() bool { return queue.deletes() == 3 })

	assert.Equal(t, []string{"c3"}, svc.reset)
	require.Len(t, svc.reqs, 1)
	assert.Equal(t, "c4", svc.reqs[0].ConversationID)
}

func TestWorker_ResetWithoutResetterIsDropped(t *testing.T) {
	queue := &countingQueue{MemoryQueue: NewMemoryQueue(4)}
	svc := &recordingService{}
	ctx := context.Background()
	require.NoError(t, NewPublisher(queue, logging.Discard()).EnqueueReset(ctx, "c5"))

	w := NewWorker(svc, queue, NewMemoryJobStore(), nil, logging.Discard(),
		WithWorkerCount(1), WithReceiveBatchSize(1), WithReceiveWaitSeconds(0))
	runCtx, cancel := context.WithCancel(ctx)
	w.Start(runCtx)
	require.Eventually(t, func() bool { return queue.deletes() == 1 }, time.Second, 5*time.Millisecond)
	cancel()
	w.Wait()

	assert.Empty(t, svc.reset)
	assert.Nil(t, w.cfg.resetter)
}

func TestPublisher_EnqueueMessage(t *testing.T) {
	queue := NewMemoryQueue(2)
	publisher := NewPublisher(queue, logging.Discard())
	require.NoError(t, publisher.EnqueueMessage(context.Background(), "job-9", MessageRequest{ConversationID: "c", Text: "hi"}))

	msgs, err := queue.Receive(context.Background(), 5, 1)
	require.NoError(t, err)
	require.Len(t, msgs, 1)

	var payload queuePayload
	require.NoError(t, json.Unmarshal([]byte(msgs[0].Body), &payload))
	assert.Equal(t, "job-9", payload.ID)
	assert.Equal(t, jobTypeMessage, payload.Kind)
	assert.True(t, payload.TrackStatus)
	assert.Equal(t, "hi", payload.Message.Text)
}

func TestMemoryQueue_ReceiveTimeoutAndBatch(t *testing.T) {
	queue := NewMemoryQueue(0)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := queue.Receive(ctx, 1, 0)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	for i := 0; i < 3; i++ {
		require.NoError(t, queue.Send(context.Background(), "m"))
	}
	assert.Equal(t, 3, queue.Len())
	msgs, err := queue.Receive(context.Background(), 2, 1)
	require.NoError(t, err)
	assert.Len(t, msgs, 2)
	assert.Equal(t, 1, queue.Len())
}

type fakeSQS struct {
	sent     []string
	deleted  []string
	received *sqs.ReceiveMessageInput
}

func (f *fakeSQS) SendMessage(_ context.Context, in *sqs.SendMessageInput, _ ...func(*sqs.Options)) (*sqs.SendMessageOutput, error) {
	f.sent = append(f.sent, aws.ToString(in.MessageBody))
	return &sqs.SendMessageOutput{}, nil
}

func (f *fakeSQS) ReceiveMessage(_ context.Context, in *sqs.ReceiveMessageInput, _ ...func(*sqs.Options)) (*sqs.ReceiveMessageOutput, error) {
	f.received = in
	return &sqs.ReceiveMessageOutput{Messages: []sqstypes.Message{{
		MessageId: aws.String("m1"), Body: aws.String("{}"), ReceiptHandle: aws.String("rh1"),
	}}}, nil
}

func (f *fakeSQS) DeleteMessage(_ context.Context, in *sqs.DeleteMessageInput, _ ...func(*sqs.Options)) (*sqs.DeleteMessageOutput, error) {
	f.deleted = append(f.deleted, aws.ToString(in.ReceiptHandle))
	return &sqs.DeleteMessageOutput{}, nil
}

func TestSQSQueue(t *testing.T) {
	api := &fakeSQS{}
	q := NewSQSQueue(api, "https://sqs.local/queue")
	ctx := context.Background()

	require.NoError(t, q.Send(ctx, "body"))
	assert.Equal(t, []string{"body"}, api.sent)

	msgs, err := q.Receive(ctx, 3, 7)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, "rh1", msgs[0].ReceiptHandle)
	assert.Equal(t, int32(3), api.received.MaxNumberOfMessages)
	assert.Equal(t, int32(7), api.received.WaitTimeSeconds)

	require.NoError(t, q.Delete(ctx, ""))
	require.NoError(t, q.Delete(ctx, "rh1"))
	assert.Equal(t, []string{"rh1"}, api.deleted)
}
