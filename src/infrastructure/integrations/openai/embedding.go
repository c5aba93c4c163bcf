package openai

import (
	"context"
	"errors"

	openai "github.com/sashabaranov/go-openai"

	"docsearch/src/core/aisearch"
	"docsearch/src/infrastructure/integrations/aiprovider"
)

// Embed returns the embedding of text. A transient network failure is retried once.
func (c *Client) Embed(ctx context.Context, text string, model string) ([]float32, error) {
	if err := c.ready(); err != nil {
		return nil, err
	}

	return aiprovider.RetryOnce(ctx, c.logger, "embed", func(ctx context.Context) ([]float32, error) {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}

		resp, err := c.api.CreateEmbeddings(ctx, openai.EmbeddingRequest{
			Model: openai.EmbeddingModel(model),
			Input: []string{text},
		})
		if err != nil {
			return nil, callError("embed", err)
		}
		if len(resp.Data) == 0 {
			return nil, &aisearch.ProviderCallError{Provider: providerName, Op: "embed", Err: errors.New("no embedding data returned")}
		}
		return resp.Data[0].Embedding, nil
	})
}
