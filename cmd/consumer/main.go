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
	"github.com/segmentio/kafka-go"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"example.com/healthtracker/internal/config"
	"example.com/healthtracker/internal/consumer"
	"example.com/healthtracker/internal/logging"
	"example.com/healthtracker/internal/persistence"
	httptransport "example.com/healthtracker/internal/transport/http"
)

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
		log.Fatalf("event consumer: %s", err)
	}
	log.Info("event consumer stopped")
}

func run(ctx context.Context, cfg config.Config) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if !cfg.OutboxEnabled() {
		return errors.New("KAFKA_BROKERS is required")
	}

	pool, err := persistence.NewPool(ctx, cfg.PostgresURL)
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}
	defer pool.Close()
	prometheus.MustRegister(pgxpoolprometheus.NewCollector(pool, map[string]string{"db_name": "healthtracker"}))

	handler := consumer.NewPersistenceHandler(pool)
	metricsSrv := httptransport.NewMetricsServer(cfg.MetricsAddress, prometheus.DefaultGatherer)

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		log.Infof("consumer metrics listening on %s", cfg.MetricsAddress)
		if err := metricsSrv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("metrics server: %w", err)
		}
		return nil
	})
	group.Go(func() error {
		<-groupCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return metricsSrv.Shutdown(shutdownCtx)
	})

	for _, topic := range cfg.ConsumerTopics {
		reader := newReader(cfg, topic)
		logger := log.WithFields(log.Fields{"topic": topic, "group": cfg.ConsumerGroupID})
		proc := consumer.NewProcessor(reader, handler, consumer.WithLogger(logger))

		group.Go(func() error {
			defer reader.Close()
			logger.Info("consuming")
			if err := proc.Run(groupCtx); !errors.Is(err, context.Canceled) {
				return fmt.Errorf("consume %s: %w", topic, err)
			}
			return nil
		})
	}

	return group.Wait()
}

func newReader(cfg config.Config, topic string) *kafka.Reader {
	return kafka.NewReader(kafka.ReaderConfig{
		Brokers:         cfg.KafkaBrokers,
		GroupID:         cfg.ConsumerGroupID,
		Topic:           topic,
		MinBytes:        1e3,
		MaxBytes:        10e6,
		CommitInterval:  time.Second,
		RetentionTime:   24 * time.Hour,
		ReadLagInterval: -1,
	})
}
