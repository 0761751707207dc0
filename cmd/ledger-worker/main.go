package main

import (
	"context"
	"errors"
	"os"
	"time"

	"ledger/internal/amqp"
	"ledger/internal/backend"
	"ledger/internal/cli"
	"ledger/internal/log"
	"ledger/internal/store"
	"ledger/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(log.ComponentWorker, os.Getenv("LOG_LEVEL"))
	cfg := cli.LoadAndValidateConfig(logger)

	if !cfg.AMQPEnabled() {
		logger.Error("ledger-worker needs AMQP_URL")
		os.Exit(1)
	}
	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", log.FieldError, err)
		os.Exit(1)
	}

	factory := backend.NewFactory(logger)
	mirror, err := factory.CreateMirror(context.Background(), backendCfg)
	if err != nil {
		logger.Error("Failed to initialize mirror", log.FieldError, err)
		os.Exit(1)
	}
	st, err := factory.CreateStore(context.Background(), backendCfg)
	if err != nil {
		logger.Error("Failed to open store for reconciliation", log.FieldError, err)
		os.Exit(1)
	}
	defer st.Close()

	client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", log.FieldError, err)
		os.Exit(1)
	}
	defer client.Close()

	w := worker.NewMirrorWorker(mirror, logger)
	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, nil)

	// Catch up on events missed while the worker was down.
	reconcile(ctx, logger, w, st)
	if cfg.ReconcileInterval > 0 {
		go func() {
			ticker := time.NewTicker(cfg.ReconcileInterval)
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					return
				case <-ticker.C:
					reconcile(ctx, logger, w, st)
				}
			}
		}()
	}

	logger.Info("Starting ledger-worker", "queue", cfg.AMQPQueue, "sheets", cfg.SheetsEnabled())
	if err := w.Run(ctx, client); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Event consumption failed", log.FieldError, err)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Worker stopped")
}

func reconcile(ctx context.Context, logger *log.Logger, w *worker.MirrorWorker, lister store.Lister) {
	if _, _, err := w.Reconcile(ctx, lister); err != nil && ctx.Err() == nil {
		logger.Error("Mirror reconciliation failed", log.FieldError, err)
	}
}
