package openai

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"docsearch/src/core/aisearch"
)

const maxErrorBody = 4096

func (c *Client) Complete(ctx context.Context, model string, messages []aisearch.ChatMessage) (string, error) {
	if err := c.ready(); err != nil {
		return "", err
	}

	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:    model,
		Messages: toMessages(messages),
	})
	if err != nil {
		return "", callError("complete", err)
	}
	if len(resp.Choices) == 0 {
		return "", nil
	}
	return resp.Choices[0].Message.Content, nil
}

// CompleteStreaming reads the server-sent event stream of a chat completion.
// Lines that are not valid JSON chunks are skipped. A non-2xx response fails
// before any delta is delivered.
func (c *Client) CompleteStreaming(ctx context.Context, model string, messages []aisearch.ChatMessage, onDelta func(delta string) error) error {
	if err := c.ready(); err != nil {
		return err
	}

	body, err := json.Marshal(openai.ChatCompletionRequest{
		Model:    model,
		Messages: toMessages(messages),
		Stream:   true,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal chat request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create chat request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)

	resp, err := c.stream.Do(req)
	if err != nil {
		return callError("stream", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &aisearch.ProviderCallError{
			Provider:   providerName,
			Op:         "stream",
			StatusCode: resp.StatusCode,
			Err:        errors.New(strings.TrimSpace(string(msg))),
		}
	}

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if !strings.HasPrefix(line, "data:") {
			continue
		}
		data := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		if data == "" {
			continue
		}
		if data == "[DONE]" {
			return nil
		}

		var chunk openai.ChatCompletionStreamResponse
		if err := json.Unmarshal([]byte(data), &chunk); err != nil {
			c.logger.V(1).Info("skipping malformed stream line", "line", data)
			continue
		}
		for _, choice := range chunk.Choices {
			if choice.Delta.Content == "" {
				continue
			}
			if err := onDelta(choice.Delta.Content); err != nil {
				return err
			}
		}
	}

	if err := scanner.Err(); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return callError("stream", err)
	}
	return nil
}
