package job

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"
)

// MemoryJobRepository keeps job records in memory. Tests use it in place of
// the postgres table.
type MemoryJobRepository struct {
	mu     sync.Mutex
	nextID int64
	jobs   map[int64]*Job
}

func NewMemoryJobRepository() *MemoryJobRepository {
	return &MemoryJobRepository{jobs: make(map[int64]*Job)}
}

func (r *MemoryJobRepository) Create(_ context.Context, kind, workspaceID string, payload json.RawMessage) (*Job, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.nextID++
	now := time.Now()
	job := &Job{
		ID:          r.nextID,
		Kind:        kind,
		WorkspaceID: workspaceID,
		Payload:     append([]byte(nil), payload...),
		Status:      JobStatusPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	r.jobs[job.ID] = job

	out := *job
	return &out, nil
}

func (r *MemoryJobRepository) Get(_ context.Context, id int64) (*Job, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	job, ok := r.jobs[id]
	if !ok {
		return nil, nil
	}
	out := *job
	return &out, nil
}

func (r *MemoryJobRepository) UpdateStatus(_ context.Context, id int64, status JobStatus, err *string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	job, ok := r.jobs[id]
	if !ok {
		return errors.New("job not found")
	}
	job.Status = status
	job.Error = err
	job.UpdatedAt = time.Now()
	if status == JobStatusRunning {
		job.Attempts++
	}
	return nil
}

func (r *MemoryJobRepository) CountByStatus(_ context.Context) (map[JobStatus]int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	counts := make(map[JobStatus]int64)
	for _, job := range r.jobs {
		counts[job.Status]++
	}
	return counts, nil
}
