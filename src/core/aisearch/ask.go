package aisearch

import (
	"context"
	"fmt"

	"github.com/go-logr/logr"
	"github.com/google/uuid"

	"docsearch/src/infrastructure/log"
)

const (
	maxQueryLength = 2000
	previewLength  = 500
)

// AskRequest is a natural-language question scoped to a workspace and
// optionally a space.
type AskRequest struct {
	Query       string
	WorkspaceID string
	SpaceID     string
}

func (r AskRequest) Validate() error {
	if r.Query == "" {
		return &ValidationError{Field: "query", Reason: "must not be empty"}
	}
	if len([]rune(r.Query)) > maxQueryLength {
		return &ValidationError{Field: "query", Reason: fmt.Sprintf("must be at most %d characters", maxQueryLength)}
	}
	return nil
}

// Orchestrator drives the ask flow: retrieve, cite, then stream the answer.
type Orchestrator struct {
	settings  Settings
	retriever ContextRetriever
	completer Completer
	logger    logr.Logger
}

func NewOrchestrator(settings Settings, retriever ContextRetriever, completer Completer) *Orchestrator {
	return &Orchestrator{
		settings:  settings.WithDefaults(),
		retriever: retriever,
		completer: completer,
		logger:    log.WithName("ask"),
	}
}

// Ask validates the request and starts a streaming session. The returned
// channel yields one EventSources, zero or more EventContent and a terminal
// EventDone or EventError, and is always closed. Cancelling ctx stops the
// session and releases the provider stream.
func (o *Orchestrator) Ask(ctx context.Context, req AskRequest) (<-chan StreamEvent, error) {
	if err := o.settings.RequireGeneration(); err != nil {
		return nil, err
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}

	out := make(chan StreamEvent)
	go o.run(ctx, req, out)
	return out, nil
}

func (o *Orchestrator) run(ctx context.Context, req AskRequest, out chan<- StreamEvent) {
	defer close(out)

	logger := o.logger.WithValues("session", uuid.NewString(), "workspace", req.WorkspaceID, "space", req.SpaceID)

	contexts, err := o.retriever.Retrieve(ctx, req.Query, req.WorkspaceID, req.SpaceID)
	if err != nil {
		logger.Error(err, "retrieval failed")
		emit(ctx, out, StreamEvent{Kind: EventError, Err: fmt.Errorf("%w: %v", ErrServiceFailure, err)})
		return
	}

	messages := BuildAskMessages(req.Query, contexts)
	logger.Info("ask", "ragPieces", len(contexts), "prompt", promptPreview(messages, previewLength))

	sources, meta := summarize(contexts)
	if !emit(ctx, out, StreamEvent{Kind: EventSources, Sources: sources, Meta: meta}) {
		return
	}

	err = o.completer.CompleteStreaming(ctx, o.settings.CompletionModel, messages, func(delta string) error {
		if delta == "" {
			return nil
		}
		if !emit(ctx, out, StreamEvent{Kind: EventContent, Content: delta}) {
			return ctx.Err()
		}
		return nil
	})
	if err != nil {
		if ctx.Err() != nil {
			logger.Info("client went away; stream stopped")
			return
		}
		logger.Error(err, "ask stream failed")
		emit(ctx, out, StreamEvent{Kind: EventError, Err: fmt.Errorf("%w: %v", ErrServiceFailure, err)})
		return
	}

	emit(ctx, out, StreamEvent{Kind: EventDone})
}

func summarize(contexts []RetrievedContext) ([]Source, AskMeta) {
	sources := make([]Source, 0, len(contexts))
	documents := make(map[string]struct{}, len(contexts))
	for _, c := range contexts {
		documents[c.DocumentID] = struct{}{}
		sources = append(sources, Source{
			DocumentID: c.DocumentID,
			Title:      c.Title,
			SlugID:     c.SlugID,
			SpaceSlug:  c.SpaceSlug,
			Link:       c.Link,
			ChunkIndex: c.ChunkIndex,
			ChunkCount: c.ChunkCount,
			Excerpt:    c.Text,
			Similarity: c.Similarity(),
			Distance:   c.Distance,
		})
	}
	return sources, AskMeta{ChunkCount: len(contexts), DocumentCount: len(documents)}
}

// emit delivers ev unless ctx is cancelled first.
func emit(ctx context.Context, out chan<- StreamEvent, ev StreamEvent) bool {
	select {
	case out <- ev:
		return true
	case <-ctx.Done():
		return false
	}
}
