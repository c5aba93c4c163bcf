// Package openai drives OpenAI-compatible embedding and chat completion APIs.
package openai

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-logr/logr"
	openai "github.com/sashabaranov/go-openai"
	"golang.org/x/time/rate"

	"docsearch/src/core/aisearch"
	"docsearch/src/infrastructure/integrations/aiprovider"
	"docsearch/src/infrastructure/log"
)

const (
	DefaultURL     = "https://api.openai.com/v1"
	DefaultTimeout = 60 * time.Second

	providerName = "openai"
)

type Config struct {
	APIKey  string
	BaseURL string
	Timeout time.Duration
	// EmbeddingRateLimit caps embedding requests per second; zero disables it.
	EmbeddingRateLimit float64
}

// Client implements aisearch.Embedder and aisearch.Completer. A client built
// without an API key fails every call with *aisearch.ProviderConfigError.
type Client struct {
	cfg     Config
	api     *openai.Client
	stream  *http.Client
	limiter *rate.Limiter
	logger  logr.Logger
}

var (
	_ aisearch.Embedder  = (*Client)(nil)
	_ aisearch.Completer = (*Client)(nil)
)

func NewClient(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultURL
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}

	apiCfg := openai.DefaultConfig(cfg.APIKey)
	apiCfg.BaseURL = cfg.BaseURL
	apiCfg.HTTPClient = &http.Client{Timeout: cfg.Timeout}

	// Streams may run longer than the timeout; only the wait for headers is bounded.
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.ResponseHeaderTimeout = cfg.Timeout

	return &Client{
		cfg:     cfg,
		api:     openai.NewClientWithConfig(apiCfg),
		stream:  &http.Client{Transport: transport},
		limiter: aiprovider.NewLimiter(cfg.EmbeddingRateLimit),
		logger:  log.WithName("openai"),
	}
}

func (c *Client) ready() error {
	if c.cfg.APIKey == "" {
		return &aisearch.ProviderConfigError{Provider: providerName, Setting: "openai.api_key"}
	}
	return nil
}

func callError(op string, err error) error {
	callErr := &aisearch.ProviderCallError{Provider: providerName, Op: op, Err: err}

	var apiErr *openai.APIError
	var reqErr *openai.RequestError
	switch {
	case errors.As(err, &apiErr):
		callErr.StatusCode = apiErr.HTTPStatusCode
	case errors.As(err, &reqErr):
		callErr.StatusCode = reqErr.HTTPStatusCode
	default:
		callErr.Transient = aiprovider.IsTransient(err)
	}
	return callErr
}

func toMessages(messages []aisearch.ChatMessage) []openai.ChatCompletionMessage {
	out := make([]openai.ChatCompletionMessage, 0, len(messages))
	for _, m := range messages {
		out = append(out, openai.ChatCompletionMessage{Role: m.Role, Content: m.Content})
	}
	return out
}
