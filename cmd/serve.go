package cmd

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	v1 "docsearch/handler/http/v1"
	"docsearch/src/core/aisearch"
	"docsearch/src/infrastructure/job"
	"docsearch/src/infrastructure/log"
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the AI search server",
	Long: `The serve command starts an HTTP server for asking questions, writing
assistance and indexing events. With QUEUE_DRIVER=gochannel it also runs the
indexing worker in the same process.`,
	RunE: RunServer,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func RunServer(cmd *cobra.Command, args []string) error {
	c, err := bootstrap(true)
	if err != nil {
		return err
	}
	defer c.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// The in-process broker only delivers to subscribers of this process
	var router *message.Router
	if viper.GetString("queue.driver") == job.DriverGoChannel {
		router, err = job.NewRouter(routerConfig(), c.pubSub.Subscriber, c.pubSub.Publisher, c.jobs, c.logger)
		if err != nil {
			return err
		}
		go func() {
			if err := router.Run(ctx); err != nil {
				log.Error(err, "Job router stopped")
			}
		}()
		<-router.Running()
	}

	retriever := aisearch.NewRetriever(c.settings, c.provider, c.store)
	handler := v1.NewHandler(
		aisearch.NewOrchestrator(c.settings, retriever, c.provider),
		aisearch.NewGenerator(c.settings, c.provider),
		aisearch.NewStatusService(c.settings, c.store, c.docs, c.jobs),
		c.jobs,
	)

	// Setup gin router
	r := gin.Default()
	handler.RegisterRoutes(r)

	// Create HTTP server
	srv := &http.Server{
		Addr:    ":" + viper.GetString("server.port"),
		Handler: r,
	}

	// Start server in a goroutine
	serverErr := make(chan error, 1)
	go func() {
		log.Info("Server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
	case err := <-serverErr:
		return err
	}
	log.Info("Shutting down server...")

	timeout := viper.GetDuration("server.shutdown_timeout")
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), timeout)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error(err, "Server forced to shutdown")
	}

	if router != nil {
		cancel()
		if err := router.Close(); err != nil {
			log.Error(err, "Failed to close job router")
		}
	}

	log.Info("Server exited")
	return nil
}
