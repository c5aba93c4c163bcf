package openai_test

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docsearch/src/core/aisearch"
	"docsearch/src/infrastructure/integrations/openai"
)

var messages = []aisearch.ChatMessage{
	{Role: aisearch.RoleSystem, Content: "be brief"},
	{Role: aisearch.RoleUser, Content: "hello"},
}

func newClient(t *testing.T, handler http.HandlerFunc) *openai.Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return openai.NewClient(openai.Config{APIKey: "sk-test", BaseURL: srv.URL + "/v1/", Timeout: 200 * time.Millisecond})
}

func TestEmbed(t *testing.T) {
	client := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/embeddings", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))

		var body struct {
			Model string   `json:"model"`
			Input []string `json:"input"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "text-embedding-3-small", body.Model)
		assert.Equal(t, []string{"some text"}, body.Input)

		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"object":"list","data":[{"object":"embedding","index":0,"embedding":[0.25,-0.5,1]}],"model":"text-embedding-3-small"}`)
	})

	vec, err := client.Embed(context.Background(), "some text", "text-embedding-3-small")
	require.NoError(t, err)
	assert.Equal(t, []float32{0.25, -0.5, 1}, vec)
}

func TestEmbedRetriesTimeoutOnce(t *testing.T) {
	var calls atomic.Int32
	client := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			time.Sleep(400 * time.Millisecond)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"data":[{"index":0,"embedding":[1,2]}]}`)
	})

	vec, err := client.Embed(context.Background(), "x", "m")
	require.NoError(t, err)
	assert.Equal(t, []float32{1, 2}, vec)
	assert.EqualValues(t, 2, calls.Load())
}

func TestEmbedHTTPError(t *testing.T) {
	var calls atomic.Int32
	client := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		fmt.Fprint(w, `{"error":{"message":"invalid api key","type":"invalid_request_error"}}`)
	})

	_, err := client.Embed(context.Background(), "x", "m")
	var callErr *aisearch.ProviderCallError
	require.ErrorAs(t, err, &callErr)
	assert.Equal(t, http.StatusUnauthorized, callErr.StatusCode)
	assert.False(t, callErr.Transient)
	assert.EqualValues(t, 1, calls.Load())
}

func TestMissingAPIKey(t *testing.T) {
	client := openai.NewClient(openai.Config{})

	_, err := client.Embed(context.Background(), "x", "m")
	var cfgErr *aisearch.ProviderConfigError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "openai.api_key", cfgErr.Setting)
	assert.True(t, aisearch.IsFatal(err))

	err = client.CompleteStreaming(context.Background(), "m", messages, func(string) error { return nil })
	assert.True(t, aisearch.IsFatal(err))
}

func TestComplete(t *testing.T) {
	client := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		var body struct {
			Model    string                 `json:"model"`
			Messages []aisearch.ChatMessage `json:"messages"`
			Stream   bool                   `json:"stream"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "gpt-4o-mini", body.Model)
		assert.Equal(t, messages, body.Messages)
		assert.False(t, body.Stream)

		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"id":"c1","object":"chat.completion","choices":[{"index":0,"message":{"role":"assistant","content":"Hi there."},"finish_reason":"stop"}]}`)
	})

	out, err := client.Complete(context.Background(), "gpt-4o-mini", messages)
	require.NoError(t, err)
	assert.Equal(t, "Hi there.", out)
}

func TestCompleteStreaming(t *testing.T) {
	client := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "text/event-stream", r.Header.Get("Accept"))
		body, _ := io.ReadAll(r.Body)
		assert.Contains(t, string(body), `"stream":true`)

		w.Header().Set("Content-Type", "text/event-stream")
		lines := []string{
			`data: {"choices":[{"index":0,"delta":{"role":"assistant"}}]}`,
			`data: {"choices":[{"index":0,"delta":{"content":"Hel"}}]}`,
			`: keep-alive`,
			`data: {not json`,
			`data: {"choices":[{"index":0,"delta":{"content":"lo"}}]}`,
			`data: [DONE]`,
			`data: {"choices":[{"index":0,"delta":{"content":"ignored"}}]}`,
		}
		fmt.Fprint(w, strings.Join(lines, "\n\n")+"\n\n")
	})

	var deltas []string
	err := client.CompleteStreaming(context.Background(), "m", messages, func(d string) error {
		deltas = append(deltas, d)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"Hel", "lo"}, deltas)
}

func TestCompleteStreamingErrors(t *testing.T) {
	t.Run("non-2xx", func(t *testing.T) {
		client := newClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusTooManyRequests)
			fmt.Fprint(w, `{"error":{"message":"rate limited"}}`)
		})

		called := false
		err := client.CompleteStreaming(context.Background(), "m", messages, func(string) error {
			called = true
			return nil
		})
		var callErr *aisearch.ProviderCallError
		require.ErrorAs(t, err, &callErr)
		assert.Equal(t, http.StatusTooManyRequests, callErr.StatusCode)
		assert.Contains(t, callErr.Error(), "rate limited")
		assert.False(t, called)
	})

	t.Run("consumer stops the stream", func(t *testing.T) {
		client := newClient(t, func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, "data: {\"choices\":[{\"delta\":{\"content\":\"a\"}}]}\n\ndata: {\"choices\":[{\"delta\":{\"content\":\"b\"}}]}\n\n")
		})

		stop := fmt.Errorf("stop")
		var deltas []string
		err := client.CompleteStreaming(context.Background(), "m", messages, func(d string) error {
			deltas = append(deltas, d)
			return stop
		})
		assert.ErrorIs(t, err, stop)
		assert.Equal(t, []string{"a"}, deltas)
	})
}
