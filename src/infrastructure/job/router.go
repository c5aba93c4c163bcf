package job

import (
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/message/router/middleware"

	"docsearch/src/core/aisearch"
)

type RouterConfig struct {
	Topic         string
	PoisonTopic   string
	MaxRetries    int
	RetryInterval time.Duration
	// Concurrency is the number of handlers consuming Topic. Only brokers
	// that share a queue between consumers (AMQP) should use more than one.
	Concurrency int
}

// NewRouter builds the router that feeds queued jobs to service. Jobs failing
// with a fatal error go straight to PoisonTopic; other failures are retried
// MaxRetries times before they do.
func NewRouter(
	cfg RouterConfig,
	subscriber message.Subscriber,
	publisher message.Publisher,
	service *JobService,
	logger watermill.LoggerAdapter,
) (*message.Router, error) {
	router, err := message.NewRouter(message.RouterConfig{}, logger)
	if err != nil {
		return nil, err
	}

	poisonAll, err := middleware.PoisonQueue(publisher, cfg.PoisonTopic)
	if err != nil {
		return nil, fmt.Errorf("failed to create poison queue middleware: %w", err)
	}
	poisonFatal, err := middleware.PoisonQueueWithFilter(publisher, cfg.PoisonTopic, aisearch.IsFatal)
	if err != nil {
		return nil, fmt.Errorf("failed to create poison queue middleware: %w", err)
	}

	router.AddMiddleware(
		middleware.CorrelationID,
		poisonAll,
		middleware.Retry{
			MaxRetries:      cfg.MaxRetries,
			InitialInterval: cfg.RetryInterval,
			MaxInterval:     10 * cfg.RetryInterval,
			Multiplier:      2,
			Logger:          logger,
		}.Middleware,
		poisonFatal,
		middleware.Recoverer,
	)

	concurrency := max(cfg.Concurrency, 1)
	for i := 0; i < concurrency; i++ {
		router.AddNoPublisherHandler(
			fmt.Sprintf("job_processor_%d", i),
			cfg.Topic,
			subscriber,
			service.ProcessJobMessage,
		)
	}

	return router, nil
}
