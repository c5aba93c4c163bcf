package indexing

import "fmt"

// Event is a document or workspace lifecycle event emitted by the document store.
type Event string

const (
	EventDocumentCreated     Event = "document.created"
	EventDocumentUpdated     Event = "document.updated"
	EventDocumentMoved       Event = "document.moved"
	EventDocumentRestored    Event = "document.restored"
	EventDocumentSoftDeleted Event = "document.soft_deleted"
	EventDocumentDeleted     Event = "document.deleted"
	EventWorkspaceEnabled    Event = "workspace.embeddings_enabled"
	EventWorkspaceDisabled   Event = "workspace.embeddings_disabled"
)

// JobForEvent maps a lifecycle event to the indexing job that keeps the
// index consistent with it.
func JobForEvent(event Event, workspaceID string, documentIDs []string) (Job, error) {
	var job Job
	switch event {
	case EventDocumentCreated, EventDocumentUpdated, EventDocumentMoved, EventDocumentRestored:
		job = DocumentReindex{DocumentIDs: documentIDs, WorkspaceID: workspaceID}
	case EventDocumentSoftDeleted, EventDocumentDeleted:
		job = DocumentRemove{DocumentIDs: documentIDs, WorkspaceID: workspaceID}
	case EventWorkspaceEnabled:
		job = WorkspaceCreate{WorkspaceID: workspaceID}
	case EventWorkspaceDisabled:
		job = WorkspaceDelete{WorkspaceID: workspaceID}
	default:
		return nil, fmt.Errorf("unknown event: %s", event)
	}
	if err := job.validate(); err != nil {
		return nil, fmt.Errorf("invalid %s event: %w", event, err)
	}
	return job, nil
}
