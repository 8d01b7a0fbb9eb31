package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/IBM/pgxpoolprometheus"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"example.com/healthtracker/internal/config"
	"example.com/healthtracker/internal/logging"
	"example.com/healthtracker/internal/outbox"
	"example.com/healthtracker/internal/persistence"
	httptransport "example.com/healthtracker/internal/transport/http"
)

const dlqBatchSize = 50

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Warnf("failed to load .env: %s", err)
	}

	cfg := config.Load()
	logging.Setup(logging.LoggerSetupParams{
		LogFileName:   cfg.LogFile,
		LogToStdout:   true,
		LogLevel:      cfg.LogLevel,
		LogFormatJSON: cfg.LogFormatJSON,
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		log.Fatalf("dlq manager: %s", err)
	}
	log.Info("dlq manager stopped")
}

func run(ctx context.Context, cfg config.Config) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	pool, err := persistence.NewPool(ctx, cfg.PostgresURL)
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}
	defer pool.Close()
	prometheus.MustRegister(pgxpoolprometheus.NewCollector(pool, map[string]string{"db_name": "healthtracker"}))

	manager := outbox.NewDLQManager(pool, cfg.DLQMaxRetries, cfg.DLQBaseDelay)
	metricsSrv := httptransport.NewMetricsServer(cfg.MetricsAddress, prometheus.DefaultGatherer)

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		if err := metricsSrv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("metrics server: %w", err)
		}
		return nil
	})
	group.Go(func() error {
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := metricsSrv.Shutdown(shutdownCtx); err != nil {
				log.Errorf("metrics server shutdown: %s", err)
			}
		}()
		sweep(groupCtx, manager, cfg.DLQPollInterval)
		return nil
	})

	log.WithFields(log.Fields{
		"interval":    cfg.DLQPollInterval,
		"max_retries": cfg.DLQMaxRetries,
		"metrics":     cfg.MetricsAddress,
	}).Info("dlq manager started")
	return group.Wait()
}

// sweep replays due dead-letter entries every interval until ctx is done.
func sweep(ctx context.Context, manager *outbox.DLQManager, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		processed, err := manager.RunOnce(ctx, dlqBatchSize)
		switch {
		case err != nil && ctx.Err() == nil:
			log.Errorf("dlq sweep: %s", err)
		case processed > 0:
			log.Infof("dlq sweep processed %d entries", processed)
		}
	}
}
