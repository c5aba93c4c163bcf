package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"docsearch/src/infrastructure/job"
	"docsearch/src/infrastructure/log"
)

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Start the background indexing worker",
	RunE:  runWorker,
}

func init() {
	rootCmd.AddCommand(workerCmd)
}

func runWorker(cmd *cobra.Command, args []string) error {
	if err := requireSharedQueue("worker", viper.GetString("queue.driver")); err != nil {
		return err
	}

	c, err := bootstrap(true)
	if err != nil {
		return err
	}
	defer c.Close()

	cfg := routerConfig()
	router, err := job.NewRouter(cfg, c.pubSub.Subscriber, c.pubSub.Publisher, c.jobs, c.logger)
	if err != nil {
		return err
	}

	// Run the router
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	routerErr := make(chan error, 1)
	go func() {
		routerErr <- router.Run(ctx)
	}()
	log.Info("Worker started", "topic", cfg.Topic, "concurrency", cfg.Concurrency, "max_retries", cfg.MaxRetries)

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
	case err := <-routerErr:
		return err
	}

	log.Info("Shutting down...")
	cancel()
	<-router.Running()
	if err := <-routerErr; err != nil {
		return err
	}
	log.Info("Router stopped")

	return nil
}
