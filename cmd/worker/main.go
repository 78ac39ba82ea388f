package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fieldsight/location-engine/internal/bootstrap"
	"github.com/fieldsight/location-engine/internal/config"
	"github.com/fieldsight/location-engine/internal/observability/logging"
	"github.com/fieldsight/location-engine/internal/observability/metrics"
)

const service = "worker"

func main() {
	cfg := config.Load()
	logger := logging.NewJSONLogger(service, cfg.LogLevel)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	workerMetrics := metrics.NewWorkerMetrics(service)

	app, err := bootstrap.New(ctx, cfg, nil)
	if err != nil {
		log.Fatalf("bootstrap error: %v", err)
	}
	defer app.Close()

	metricsServer := &http.Server{
		Addr:    ":" + cfg.WorkerMetricsPort,
		Handler: workerMetrics.Handler(),
	}
	go func() {
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("worker metrics server error", "error", err.Error())
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = metricsServer.Shutdown(shutdownCtx)
	}()

	logger.Info("worker subscribed", "subject", cfg.NATSRecordSubject)
	err = app.Queue.SubscribeRecordIngested(ctx, func(handlerCtx context.Context, recordID string) error {
		matchCtx, cancel := context.WithTimeout(handlerCtx, time.Minute)
		defer cancel()

		workerMetrics.StartRecord()
		start := time.Now()
		err := matchRecord(matchCtx, app, workerMetrics, logger, recordID)
		workerMetrics.FinishRecord(service, time.Since(start), err)
		return err
	})
	if err != nil {
		log.Fatalf("worker subscribe error: %v", err)
	}
}

func matchRecord(ctx context.Context, app *bootstrap.App, workerMetrics *metrics.WorkerMetrics, logger *slog.Logger, recordID string) error {
	record, err := app.Records.GetByID(ctx, recordID)
	if err != nil {
		return err
	}
	workerMetrics.ObserveQueueLag(service, time.Since(record.CreatedAt))

	// New records change the catalog; rebuild before matching.
	catalog, err := app.Catalog.Rebuild(ctx)
	if err != nil {
		return err
	}

	location, err := app.Matcher.MatchRecordToLocation(ctx, *record, catalog)
	if err != nil {
		return err
	}
	if location == nil {
		logger.Info("record unmatched", "record_id", recordID)
		return nil
	}
	if record.LocationID == location.ID {
		return nil
	}

	if err := app.Records.SaveMatch(ctx, recordID, location.ID); err != nil {
		return err
	}
	logger.Info("record matched",
		"record_id", recordID,
		"location_id", location.ID,
		"location_name", location.Name,
	)
	return nil
}
