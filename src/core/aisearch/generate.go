package aisearch

import (
	"context"
	"fmt"

	"github.com/go-logr/logr"

	"docsearch/src/infrastructure/log"
)

// Action selects a writing instruction for Generate.
type Action string

const (
	ActionImproveWriting     Action = "improve_writing"
	ActionFixSpellingGrammar Action = "fix_spelling_grammar"
	ActionMakeShorter        Action = "make_shorter"
	ActionMakeLonger         Action = "make_longer"
	ActionSimplify           Action = "simplify"
	ActionChangeTone         Action = "change_tone"
	ActionSummarize          Action = "summarize"
	ActionContinueWriting    Action = "continue_writing"
	ActionTranslate          Action = "translate"
	ActionCustom             Action = "custom"
)

const (
	maxContentLength = 20000
	maxPromptLength  = 4000
)

// GenerateRequest asks for a writing action over content.
type GenerateRequest struct {
	Action  Action
	Content string
	Prompt  string
}

func (r GenerateRequest) Validate() error {
	switch r.Action {
	case "", ActionCustom:
	default:
		if _, ok := actionInstructions[r.Action]; !ok {
			return &ValidationError{Field: "action", Reason: fmt.Sprintf("unknown action %q", r.Action)}
		}
	}
	if r.Content == "" {
		return &ValidationError{Field: "content", Reason: "must not be empty"}
	}
	if len([]rune(r.Content)) > maxContentLength {
		return &ValidationError{Field: "content", Reason: fmt.Sprintf("must be at most %d characters", maxContentLength)}
	}
	if len([]rune(r.Prompt)) > maxPromptLength {
		return &ValidationError{Field: "prompt", Reason: fmt.Sprintf("must be at most %d characters", maxPromptLength)}
	}
	return nil
}

// Generator runs writing actions without retrieval.
type Generator struct {
	settings  Settings
	completer Completer
	logger    logr.Logger
}

func NewGenerator(settings Settings, completer Completer) *Generator {
	return &Generator{
		settings:  settings.WithDefaults(),
		completer: completer,
		logger:    log.WithName("generate"),
	}
}

// Generate returns the whole completion for req.
func (g *Generator) Generate(ctx context.Context, req GenerateRequest) (string, error) {
	if err := g.settings.RequireGeneration(); err != nil {
		return "", err
	}
	if err := req.Validate(); err != nil {
		return "", err
	}

	content, err := g.completer.Complete(ctx, g.settings.CompletionModel, BuildGenerateMessages(req))
	if err != nil {
		g.logger.Error(err, "completion failed", "action", req.Action)
		return "", fmt.Errorf("%w: %v", ErrServiceFailure, err)
	}
	return content, nil
}

// GenerateStream streams the completion for req as EventContent events
// followed by EventDone or EventError. The channel is always closed.
func (g *Generator) GenerateStream(ctx context.Context, req GenerateRequest) (<-chan StreamEvent, error) {
	if err := g.settings.RequireGeneration(); err != nil {
		return nil, err
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}

	out := make(chan StreamEvent)
	go func() {
		defer close(out)

		err := g.completer.CompleteStreaming(ctx, g.settings.CompletionModel, BuildGenerateMessages(req), func(delta string) error {
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
				return
			}
			g.logger.Error(err, "generate stream failed", "action", req.Action)
			emit(ctx, out, StreamEvent{Kind: EventError, Err: fmt.Errorf("%w: %v", ErrServiceFailure, err)})
			return
		}
		emit(ctx, out, StreamEvent{Kind: EventDone})
	}()
	return out, nil
}
