package cmd

import (
	"fmt"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/spf13/viper"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"docsearch/src/core/aisearch"
	"docsearch/src/core/indexing"
	"docsearch/src/infrastructure/integrations/ollama"
	"docsearch/src/infrastructure/integrations/openai"
	"docsearch/src/infrastructure/job"
	"docsearch/src/infrastructure/log"
	"docsearch/src/storage/postgres/embeddingctrl"
	"docsearch/src/storage/postgres/pagectrl"
)

type aiProvider interface {
	aisearch.Embedder
	aisearch.Completer
}

// components holds everything a command may need. Fields that a command did
// not ask for are nil.
type components struct {
	settings aisearch.Settings
	db       *gorm.DB
	store    aisearch.EmbeddingStore
	docs     aisearch.DocumentProvider
	provider aiProvider
	consumer *indexing.Consumer
	jobRepo  job.JobRepository
	pubSub   *job.PubSub
	jobs     *job.JobService
	logger   watermill.LoggerAdapter
	closers  []func() error
}

func (c *components) Close() {
	for i := len(c.closers) - 1; i >= 0; i-- {
		if err := c.closers[i](); err != nil {
			log.Error(err, "failed to release resource")
		}
	}
}

// bootstrap connects storage and the AI provider. When withQueue is set it
// also connects the broker and builds the job service.
func bootstrap(withQueue bool) (*components, error) {
	c := &components{
		settings: aiSettings(),
		logger:   log.NewWatermillAdapter(log.WithName("watermill")),
	}

	if err := c.openStorage(); err != nil {
		c.Close()
		return nil, err
	}

	provider, err := newProvider(c.settings)
	if err != nil {
		c.Close()
		return nil, err
	}
	c.provider = provider
	c.consumer = indexing.NewConsumer(c.settings, c.store, c.docs, c.provider)

	if withQueue {
		pubSub, err := job.NewPubSub(job.PubSubConfig{
			Driver:  viper.GetString("queue.driver"),
			AMQPURL: viper.GetString("amqp.url"),
		}, c.logger)
		if err != nil {
			c.Close()
			return nil, err
		}
		c.pubSub = pubSub
		c.closers = append(c.closers, pubSub.Close)
		c.jobs = job.NewJobService(pubSub.Publisher, c.jobRepo, c.consumer, viper.GetString("queue.topic"), c.logger)
	}

	return c, nil
}

func (c *components) openStorage() error {
	db, err := openDatabase()
	if err != nil {
		return err
	}
	c.db = db
	if sqlDB, err := db.DB(); err == nil {
		c.closers = append(c.closers, sqlDB.Close)
	}

	embeddings, err := embeddingctrl.NewEmbeddingService(db)
	if err != nil {
		return fmt.Errorf("failed to initialize embedding service: %w", err)
	}
	jobRepo, err := job.NewPostgresJobRepository(db)
	if err != nil {
		return fmt.Errorf("failed to initialize job repository: %w", err)
	}
	c.store = embeddings
	c.docs = pagectrl.NewPageService(db)
	c.jobRepo = jobRepo
	return nil
}

func openDatabase() (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(postgresDSN()), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return db, nil
}

// newProvider picks the embedding and completion client for the configured
// driver. Without a driver every AI call fails with a configuration error.
func newProvider(settings aisearch.Settings) (aiProvider, error) {
	rateLimit := viper.GetFloat64("ai.embedding_rate_limit")

	switch settings.Driver {
	case aisearch.DriverOpenAI:
		return openai.NewClient(openai.Config{
			APIKey:             viper.GetString("openai.api_key"),
			BaseURL:            viper.GetString("openai.api_url"),
			Timeout:            viper.GetDuration("openai.timeout"),
			EmbeddingRateLimit: rateLimit,
		}), nil
	case aisearch.DriverOllama:
		return ollama.NewClient(ollama.Config{
			URL:                viper.GetString("ollama.url"),
			EmbeddingRateLimit: rateLimit,
		})
	default:
		log.Info("No AI driver configured; generation and indexing are disabled", "driver", settings.Driver)
		return aisearch.DisabledProvider{}, nil
	}
}
