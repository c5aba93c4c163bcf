package indexing

import (
	"encoding/json"
	"fmt"
)

// Kind names an indexing job variant on the queue.
type Kind string

const (
	KindWorkspaceCreate Kind = "workspace.create_embeddings"
	KindWorkspaceDelete Kind = "workspace.delete_embeddings"
	KindDocumentReindex Kind = "document.reindex"
	KindDocumentRemove  Kind = "document.remove"
)

// Job is a closed set of indexing jobs: WorkspaceCreate, WorkspaceDelete,
// DocumentReindex and DocumentRemove.
type Job interface {
	Kind() Kind
	Workspace() string
	validate() error
}

// WorkspaceCreate indexes every live document of a workspace.
type WorkspaceCreate struct {
	WorkspaceID string `json:"workspaceId"`
}

// WorkspaceDelete removes every chunk of a workspace.
type WorkspaceDelete struct {
	WorkspaceID string `json:"workspaceId"`
}

// DocumentReindex replaces the chunks of the given documents.
type DocumentReindex struct {
	DocumentIDs []string `json:"documentIds"`
	WorkspaceID string   `json:"workspaceId"`
}

// DocumentRemove deletes the chunks of the given documents.
type DocumentRemove struct {
	DocumentIDs []string `json:"documentIds"`
	WorkspaceID string   `json:"workspaceId"`
}

func (WorkspaceCreate) Kind() Kind { return KindWorkspaceCreate }
func (WorkspaceDelete) Kind() Kind { return KindWorkspaceDelete }
func (DocumentReindex) Kind() Kind { return KindDocumentReindex }
func (DocumentRemove) Kind() Kind  { return KindDocumentRemove }

func (j WorkspaceCreate) Workspace() string { return j.WorkspaceID }
func (j WorkspaceDelete) Workspace() string { return j.WorkspaceID }
func (j DocumentReindex) Workspace() string { return j.WorkspaceID }
func (j DocumentRemove) Workspace() string  { return j.WorkspaceID }

func (j WorkspaceCreate) validate() error { return requireWorkspace(j.WorkspaceID) }
func (j WorkspaceDelete) validate() error { return requireWorkspace(j.WorkspaceID) }
func (j DocumentReindex) validate() error { return requireDocuments(j.WorkspaceID, j.DocumentIDs) }
func (j DocumentRemove) validate() error  { return requireDocuments(j.WorkspaceID, j.DocumentIDs) }

func requireWorkspace(workspaceID string) error {
	if workspaceID == "" {
		return fmt.Errorf("workspaceId is required")
	}
	return nil
}

func requireDocuments(workspaceID string, ids []string) error {
	if err := requireWorkspace(workspaceID); err != nil {
		return err
	}
	if len(ids) == 0 {
		return fmt.Errorf("documentIds must not be empty")
	}
	return nil
}

// EncodeJob serializes the payload of job.
func EncodeJob(job Job) (Kind, []byte, error) {
	if err := job.validate(); err != nil {
		return "", nil, fmt.Errorf("invalid %s job: %w", job.Kind(), err)
	}
	payload, err := json.Marshal(job)
	if err != nil {
		return "", nil, fmt.Errorf("failed to marshal %s payload: %w", job.Kind(), err)
	}
	return job.Kind(), payload, nil
}

// DecodeJob parses payload into the variant named by kind.
func DecodeJob(kind Kind, payload []byte) (Job, error) {
	var (
		job Job
		err error
	)
	switch kind {
	case KindWorkspaceCreate:
		job, err = decode[WorkspaceCreate](payload)
	case KindWorkspaceDelete:
		job, err = decode[WorkspaceDelete](payload)
	case KindDocumentReindex:
		job, err = decode[DocumentReindex](payload)
	case KindDocumentRemove:
		job, err = decode[DocumentRemove](payload)
	default:
		return nil, fmt.Errorf("unknown job kind: %s", kind)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal %s payload: %w", kind, err)
	}
	if err := job.validate(); err != nil {
		return nil, fmt.Errorf("invalid %s job: %w", kind, err)
	}
	return job, nil
}

func decode[T Job](payload []byte) (Job, error) {
	var v T
	if err := json.Unmarshal(payload, &v); err != nil {
		return nil, err
	}
	return v, nil
}
