package job

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"

	"docsearch/src/core/aisearch"
	"docsearch/src/core/indexing"
)

// Handler executes a decoded indexing job.
type Handler interface {
	Handle(ctx context.Context, job indexing.Job) error
}

type JobService struct {
	publisher message.Publisher
	repo      JobRepository
	handler   Handler
	topic     string
	logger    watermill.LoggerAdapter
}

var _ aisearch.QueueInspector = (*JobService)(nil)

type JobMessage struct {
	JobID       int64           `json:"job_id"`
	Kind        indexing.Kind   `json:"kind"`
	WorkspaceID string          `json:"workspace_id"`
	Payload     json.RawMessage `json:"payload"`
}

// NewJobService wires job tracking to a queue topic. handler may be nil for
// processes that only enqueue.
func NewJobService(
	publisher message.Publisher,
	repo JobRepository,
	handler Handler,
	topic string,
	logger watermill.LoggerAdapter,
) *JobService {
	return &JobService{
		publisher: publisher,
		repo:      repo,
		handler:   handler,
		topic:     topic,
		logger:    logger,
	}
}

// EnqueueJob creates a job record and publishes it to the queue
func (s *JobService) EnqueueJob(ctx context.Context, j indexing.Job) (*Job, error) {
	kind, payload, err := indexing.EncodeJob(j)
	if err != nil {
		return nil, err
	}

	record, err := s.repo.Create(ctx, string(kind), j.Workspace(), payload)
	if err != nil {
		return nil, fmt.Errorf("failed to create job: %w", err)
	}

	msgPayload, err := json.Marshal(JobMessage{
		JobID:       record.ID,
		Kind:        kind,
		WorkspaceID: record.WorkspaceID,
		Payload:     payload,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal job message: %w", err)
	}

	msg := message.NewMessage(watermill.NewUUID(), msgPayload)
	msg.SetContext(ctx)
	if err := s.publisher.Publish(s.topic, msg); err != nil {
		errStr := err.Error()
		if updateErr := s.repo.UpdateStatus(ctx, record.ID, JobStatusFailed, &errStr); updateErr != nil {
			s.logger.Error("Failed to update job status to failed", updateErr, watermill.LogFields{"job_id": record.ID})
		}
		return nil, fmt.Errorf("failed to publish job message: %w", err)
	}

	s.logger.Debug("Job enqueued", watermill.LogFields{
		"job_id":    record.ID,
		"kind":      kind,
		"workspace": record.WorkspaceID,
	})
	return record, nil
}

// PublishEvent enqueues the job that reflects a document lifecycle event.
func (s *JobService) PublishEvent(ctx context.Context, event indexing.Event, workspaceID string, documentIDs []string) (*Job, error) {
	j, err := indexing.JobForEvent(event, workspaceID, documentIDs)
	if err != nil {
		return nil, err
	}
	return s.EnqueueJob(ctx, j)
}

// ProcessJobMessage processes a job message from the queue
func (s *JobService) ProcessJobMessage(msg *message.Message) error {
	var jobMsg JobMessage
	if err := json.Unmarshal(msg.Payload, &jobMsg); err != nil {
		return fmt.Errorf("failed to unmarshal job message: %w", err)
	}

	ctx := msg.Context()

	job, err := s.repo.Get(ctx, jobMsg.JobID)
	if err != nil {
		return fmt.Errorf("failed to get job: %w", err)
	}
	if job == nil {
		return fmt.Errorf("job not found: %d", jobMsg.JobID)
	}

	if err := s.repo.UpdateStatus(ctx, job.ID, JobStatusRunning, nil); err != nil {
		return fmt.Errorf("failed to update job status to running: %w", err)
	}

	fields := watermill.LogFields{
		"job_id":    job.ID,
		"kind":      job.Kind,
		"workspace": job.WorkspaceID,
		"attempt":   job.Attempts + 1,
	}
	s.logger.Info("Processing job", fields)

	err = s.processJob(ctx, job)
	if err != nil {
		errStr := err.Error()
		if updateErr := s.repo.UpdateStatus(ctx, job.ID, JobStatusFailed, &errStr); updateErr != nil {
			s.logger.Error("Failed to update job status to failed", updateErr, fields)
		}
		s.logger.Error("Job failed", err, fields.Add(watermill.LogFields{"fatal": aisearch.IsFatal(err)}))
		return fmt.Errorf("failed to process job: %w", err)
	}

	if err := s.repo.UpdateStatus(ctx, job.ID, JobStatusCompleted, nil); err != nil {
		return fmt.Errorf("failed to update job status to completed: %w", err)
	}
	s.logger.Info("Job completed", fields)

	return nil
}

func (s *JobService) processJob(ctx context.Context, job *Job) error {
	if s.handler == nil {
		return fmt.Errorf("no handler registered for job kind: %s", job.Kind)
	}

	decoded, err := indexing.DecodeJob(indexing.Kind(job.Kind), json.RawMessage(job.Payload))
	if err != nil {
		return err
	}
	return s.handler.Handle(ctx, decoded)
}

// QueueCounts reports tracked jobs by state.
func (s *JobService) QueueCounts(ctx context.Context) (*aisearch.QueueCounts, error) {
	counts, err := s.repo.CountByStatus(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count jobs: %w", err)
	}
	return &aisearch.QueueCounts{
		Waiting:   counts[JobStatusPending],
		Active:    counts[JobStatusRunning],
		Completed: counts[JobStatusCompleted],
		Failed:    counts[JobStatusFailed],
	}, nil
}
