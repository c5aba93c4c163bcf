package aisearch_test

import (
	"context"
	"errors"
	"sync"

	"docsearch/src/core/aisearch"
)

// vectorEmbedder returns the vector registered for a text, or a zero vector.
type vectorEmbedder struct {
	mu      sync.Mutex
	vectors map[string][]float32
	dim     int
	err     error
	calls   int
}

func (e *vectorEmbedder) Embed(_ context.Context, text string, _ string) ([]float32, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.calls++
	if e.err != nil {
		return nil, e.err
	}
	if v, ok := e.vectors[text]; ok {
		return v, nil
	}
	return make([]float32, e.dim), nil
}

type scriptedCompleter struct {
	mu       sync.Mutex
	deltas   []string
	full     string
	err      error
	block    bool
	messages []aisearch.ChatMessage
	model    string
}

func (c *scriptedCompleter) Complete(_ context.Context, model string, messages []aisearch.ChatMessage) (string, error) {
	c.record(model, messages)
	if c.err != nil {
		return "", c.err
	}
	return c.full, nil
}

func (c *scriptedCompleter) CompleteStreaming(ctx context.Context, model string, messages []aisearch.ChatMessage, onDelta func(string) error) error {
	c.record(model, messages)
	for _, d := range c.deltas {
		if err := onDelta(d); err != nil {
			return err
		}
	}
	if c.block {
		<-ctx.Done()
		return ctx.Err()
	}
	return c.err
}

func (c *scriptedCompleter) record(model string, messages []aisearch.ChatMessage) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.model = model
	c.messages = messages
}

func (c *scriptedCompleter) lastMessages() []aisearch.ChatMessage {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.messages
}

type stubRetriever struct {
	contexts []aisearch.RetrievedContext
	err      error
}

func (r stubRetriever) Retrieve(context.Context, string, string, string) ([]aisearch.RetrievedContext, error) {
	return r.contexts, r.err
}

var errProvider = errors.New("upstream 503")

func collect(ch <-chan aisearch.StreamEvent) []aisearch.StreamEvent {
	var events []aisearch.StreamEvent
	for ev := range ch {
		events = append(events, ev)
	}
	return events
}
