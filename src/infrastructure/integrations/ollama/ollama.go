// Package ollama drives a local Ollama server for embeddings and chat.
package ollama

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-logr/logr"
	"github.com/ollama/ollama/api"
	"golang.org/x/time/rate"

	"docsearch/src/core/aisearch"
	"docsearch/src/infrastructure/integrations/aiprovider"
	"docsearch/src/infrastructure/log"
)

const (
	DefaultURL     = "http://localhost:11434"
	DefaultTimeout = 120 * time.Second

	providerName = "ollama"
)

type Config struct {
	URL     string
	Timeout time.Duration
	// EmbeddingRateLimit caps embedding requests per second; zero disables it.
	EmbeddingRateLimit float64
}

// Client implements aisearch.Embedder and aisearch.Completer.
type Client struct {
	api     *api.Client
	limiter *rate.Limiter
	logger  logr.Logger
}

var (
	_ aisearch.Embedder  = (*Client)(nil)
	_ aisearch.Completer = (*Client)(nil)
)

// NewClient creates a client for the server at cfg.URL. The URL must not
// include the /api path.
func NewClient(cfg Config) (*Client, error) {
	raw := strings.TrimSuffix(strings.TrimRight(cfg.URL, "/"), "/api")
	if raw == "" {
		raw = DefaultURL
	}
	base, err := url.Parse(raw)
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, &aisearch.ConfigurationError{Setting: "ollama.url", Reason: fmt.Sprintf("invalid url %q", cfg.URL)}
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.ResponseHeaderTimeout = cfg.Timeout

	return &Client{
		api:     api.NewClient(base, &http.Client{Transport: transport}),
		limiter: aiprovider.NewLimiter(cfg.EmbeddingRateLimit),
		logger:  log.WithName("ollama"),
	}, nil
}

// Embed returns the embedding of text. A transient network failure is retried once.
func (c *Client) Embed(ctx context.Context, text string, model string) ([]float32, error) {
	return aiprovider.RetryOnce(ctx, c.logger, "embed", func(ctx context.Context) ([]float32, error) {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}

		resp, err := c.api.Embed(ctx, &api.EmbedRequest{Model: model, Input: text})
		if err != nil {
			return nil, callError("embed", err)
		}
		if len(resp.Embeddings) == 0 {
			return nil, &aisearch.ProviderCallError{Provider: providerName, Op: "embed", Err: errors.New("no embedding data returned")}
		}
		return resp.Embeddings[0], nil
	})
}

func (c *Client) Complete(ctx context.Context, model string, messages []aisearch.ChatMessage) (string, error) {
	stream := false
	var out strings.Builder
	err := c.api.Chat(ctx, &api.ChatRequest{
		Model:    model,
		Messages: toMessages(messages),
		Stream:   &stream,
	}, func(resp api.ChatResponse) error {
		out.WriteString(resp.Message.Content)
		return nil
	})
	if err != nil {
		return "", callError("complete", err)
	}
	return out.String(), nil
}

func (c *Client) CompleteStreaming(ctx context.Context, model string, messages []aisearch.ChatMessage, onDelta func(delta string) error) error {
	var consumerErr error
	err := c.api.Chat(ctx, &api.ChatRequest{
		Model:    model,
		Messages: toMessages(messages),
	}, func(resp api.ChatResponse) error {
		if resp.Message.Content == "" {
			return nil
		}
		if err := onDelta(resp.Message.Content); err != nil {
			consumerErr = err
			return err
		}
		return nil
	})
	switch {
	case err == nil:
		return nil
	case consumerErr != nil:
		return consumerErr
	case ctx.Err() != nil:
		return ctx.Err()
	default:
		return callError("stream", err)
	}
}

func callError(op string, err error) error {
	callErr := &aisearch.ProviderCallError{Provider: providerName, Op: op, Err: err}

	var statusErr api.StatusError
	if errors.As(err, &statusErr) {
		callErr.StatusCode = statusErr.StatusCode
	} else {
		callErr.Transient = aiprovider.IsTransient(err)
	}
	return callErr
}

func toMessages(messages []aisearch.ChatMessage) []api.Message {
	out := make([]api.Message, 0, len(messages))
	for _, m := range messages {
		out = append(out, api.Message{Role: m.Role, Content: m.Content})
	}
	return out
}
