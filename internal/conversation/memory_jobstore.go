package conversation

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

// MemoryJobStore tracks jobs in process memory.
type MemoryJobStore struct {
	mu   sync.RWMutex
	jobs map[string]JobRecord
}

var _ JobRecorder = (*MemoryJobStore)(nil)
var _ JobUpdater = (*MemoryJobStore)(nil)

func NewMemoryJobStore() *MemoryJobStore {
	return &MemoryJobStore{jobs: make(map[string]JobRecord)}
}

func (s *MemoryJobStore) PutPending(_ context.Context, job *JobRecord) error {
	if job == nil {
		return errors.New("conversation: job cannot be nil")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.jobs[job.JobID]; exists {
		return fmt.Errorf("conversation: job %s already exists", job.JobID)
	}
	stampPending(job, time.Now().UTC())
	s.jobs[job.JobID] = *job
	return nil
}

func (s *MemoryJobStore) GetJob(_ context.Context, jobID string) (*JobRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	job, ok := s.jobs[jobID]
	if !ok {
		return nil, ErrJobNotFound
	}
	return &job, nil
}

func (s *MemoryJobStore) MarkCompleted(_ context.Context, jobID string, resp *Response, conversationID string) error {
	return s.update(jobID, func(job *JobRecord) {
		job.Status = JobStatusCompleted
		job.Response = resp
		job.ConversationID = conversationID
		job.ErrorMessage = ""
	})
}

func (s *MemoryJobStore) MarkFailed(_ context.Context, jobID string, errMsg string) error {
	return s.update(jobID, func(job *JobRecord) {
		job.Status = JobStatusFailed
		job.Response = nil
		job.ErrorMessage = errMsg
	})
}

func (s *MemoryJobStore) update(jobID string, fn func(*JobRecord)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[jobID]
	if !ok {
		return ErrJobNotFound
	}
	fn(&job)
	job.UpdatedAt = time.Now().UTC().Format(time.RFC3339Nano)
	s.jobs[jobID] = job
	return nil
}
