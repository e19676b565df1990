package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/yking-ly/nyaya/internal/bootstrap"
	"github.com/yking-ly/nyaya/internal/config"
	"github.com/yking-ly/nyaya/internal/observability/logging"
	"github.com/yking-ly/nyaya/internal/observability/metrics"
)

func main() {
	cfg := config.Load()
	logger := logging.NewJSONLogger("indexer", cfg.LogLevel)
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(ctx, cfg, logger)
	if err != nil {
		log.Fatalf("bootstrap error: %v", err)
	}
	defer app.Close()

	workerMetrics := metrics.NewWorkerMetrics("indexer")
	go func() {
		metricsServer := &http.Server{
			Addr:    ":" + cfg.WorkerMetricsPort,
			Handler: workerMetrics.Handler(),
		}
		logger.Info("indexer_metrics_listening", "port", cfg.WorkerMetricsPort)
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("metrics_server_error", "error", err)
		}
	}()

	logger.Info("indexer_subscribed", "subject", cfg.NATSIngestSubject)
	err = app.DocQueue.SubscribeDocumentUploaded(ctx, func(handlerCtx context.Context, filename string) error {
		processCtx, cancel := context.WithTimeout(handlerCtx, 10*time.Minute)
		defer cancel()

		workerMetrics.StartDocument()
		start := time.Now()
		indexErr := app.IngestUC.IndexFile(processCtx, filename)
		workerMetrics.FinishDocument("indexer", time.Since(start), indexErr)
		return indexErr
	})
	if err != nil {
		log.Fatalf("indexer subscribe error: %v", err)
	}
}
