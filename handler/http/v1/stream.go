package v1

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"docsearch/src/core/aisearch"
	"docsearch/src/infrastructure/log"
)

const doneSentinel = "[DONE]"

func startStream(c *gin.Context) {
	header := c.Writer.Header()
	header.Set("Content-Type", "text/event-stream")
	header.Set("Cache-Control", "no-cache")
	header.Set("Connection", "keep-alive")
	header.Set("X-Accel-Buffering", "no")
	c.Status(http.StatusOK)
	c.Writer.WriteHeaderNow()
	c.Writer.Flush()
}

func writeFrame(c *gin.Context, data string) error {
	if _, err := fmt.Fprintf(c.Writer, "data: %s\n\n", data); err != nil {
		return err
	}
	c.Writer.Flush()
	return nil
}

func writeJSONFrame(c *gin.Context, payload interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal stream frame: %w", err)
	}
	return writeFrame(c, string(data))
}

// pipeEvents writes events as server-sent frames until the stream ends or
// the client goes away. Returning early cancels the request context, which
// stops the producer.
func pipeEvents(c *gin.Context, events <-chan aisearch.StreamEvent) {
	for ev := range events {
		var err error
		switch ev.Kind {
		case aisearch.EventSources:
			err = writeJSONFrame(c, gin.H{"sources": ev.Sources, "meta": ev.Meta})
		case aisearch.EventContent:
			err = writeJSONFrame(c, gin.H{"content": ev.Content})
		case aisearch.EventError:
			if err := writeJSONFrame(c, gin.H{"error": aisearch.ErrServiceFailure.Error()}); err != nil {
				log.Debug("failed to write error frame", "error", err.Error())
			}
			return
		case aisearch.EventDone:
			if err := writeFrame(c, doneSentinel); err != nil {
				log.Debug("failed to write done frame", "error", err.Error())
			}
			return
		}
		if err != nil {
			log.Debug("stream write failed; client gone", "error", err.Error())
			return
		}
	}
}
