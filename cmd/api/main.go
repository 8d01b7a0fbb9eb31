package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/IBM/pgxpoolprometheus"
	"github.com/go-redis/redis/v8"
	"github.com/go-redis/redis_rate/v9"
	"github.com/gorilla/mux"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/cors"
	log "github.com/sirupsen/logrus"

	"example.com/healthtracker/internal/api"
	"example.com/healthtracker/internal/auth"
	"example.com/healthtracker/internal/config"
	"example.com/healthtracker/internal/domain"
	"example.com/healthtracker/internal/logging"
	"example.com/healthtracker/internal/middleware"
	"example.com/healthtracker/internal/observability"
	"example.com/healthtracker/internal/outbox"
	"example.com/healthtracker/internal/persistence"
	"example.com/healthtracker/internal/persistence/postgres"
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
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid configuration: %s", err)
	}
	loc, _ := cfg.Location()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pool, err := persistence.NewPool(ctx, cfg.PostgresURL)
	if err != nil {
		log.Fatalf("failed to connect to postgres: %s", err)
	}
	defer pool.Close()
	if err := pool.Ping(ctx); err != nil {
		log.Warnf("failed to ping db: %s", err)
	}

	prometheus.MustRegister(pgxpoolprometheus.NewCollector(pool, map[string]string{"db_name": "healthtracker"}))
	metricsManager := observability.NewManager("healthtracker", "api", prometheus.DefaultRegisterer)
	metricsManager.GaugeLifeSignal.Set(0)

	repo := postgres.NewRepository(pool)
	tokens := auth.NewTokenService(auth.Config{Secret: cfg.JWTSecret, Issuer: cfg.JWTIssuer, TTL: cfg.TokenTTL})

	handler := api.NewHandler(api.Services{
		Identity:   domain.NewIdentityService(repo, tokens, auth.PasswordHasher{Cost: cfg.BcryptCost}),
		Profiles:   domain.NewProfileService(repo, loc),
		Activities: domain.NewActivityLedger(repo, loc),
		Goals:      domain.NewGoalRegistry(repo, loc),
		Checkins:   domain.NewCheckinLedger(repo, repo, loc),
		Progress:   domain.NewProgressEngine(repo, repo, repo, loc),
		Stats:      domain.NewStatsService(repo, loc),
	}, loc, cfg.StoreTimeout)

	var rdb *redis.Client
	if cfg.RedisAddress != "" {
		rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddress,
			Password: cfg.RedisPassword,
			DB:       0,
		})
		if err := rdb.Ping(ctx).Err(); err != nil {
			log.Errorf("--> failed to ping redis: %s", err)
		}
		clients, err := middleware.NewClientResolver(cfg.TrustedProxies)
		if err != nil {
			log.Fatalf("invalid TRUSTED_PROXIES: %s", err)
		}
		limiter := redis_rate.NewLimiter(rdb)
		handler.ThrottleAuth(middleware.RateLimit(limiter, clients, "auth", cfg.AuthRateLimitPerMinute, metricsManager))
	}

	router := mux.NewRouter()
	router.Use(middleware.PanicRecovery(metricsManager))
	router.Use(middleware.LogRequest())
	router.Use(middleware.RequestMetrics(metricsManager))
	router.Use(middleware.DrainAndCloseRequest())
	handler.RegisterRoutes(router)

	authMiddleware := auth.NewMiddleware(tokens, auth.PublicPaths(api.PublicPaths...))
	corsMiddleware := cors.New(cors.Options{
		AllowedOrigins:   cfg.CORSAllowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		AllowCredentials: true,
	})

	server := httptransport.NewServer(
		httptransport.DefaultServerConfig(cfg.HTTPAddress),
		corsMiddleware.Handler(authMiddleware.Wrap(router)),
		metricsManager,
	)
	metricsServer := httptransport.NewMetricsServer(cfg.MetricsAddress, prometheus.DefaultGatherer)

	var dispatcher *outbox.Dispatcher
	if cfg.OutboxEnabled() {
		producer := outbox.NewKafkaProducer(cfg.KafkaBrokers, outbox.WithErrorLogger(log.WithField("component", "kafka-producer")))
		defer func() {
			if err := producer.Close(); err != nil {
				log.Errorf("failed to close kafka producer: %s", err)
			}
		}()
		registry := outbox.NewSchemaRegistryClient(cfg.SchemaRegistryURL)
		dispatcher = outbox.NewDispatcher(pool, producer, registry, cfg.OutboxPollInterval, cfg.OutboxBatchSize)
		go dispatcher.Start(ctx)
	} else {
		log.Warn("KAFKA_BROKERS not set, outbox dispatcher disabled")
	}

	shutdownCh := make(chan os.Signal, 1)
	signal.Notify(shutdownCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		log.Infof(" > healthtracker api listening on: [%s]", cfg.HTTPAddress)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("api listen and serve: %s", err)
		}
	}()
	go func() {
		log.Debugf(" > metrics listening on: [%s]", cfg.MetricsAddress)
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Errorf("metrics listen and serve: %s", err)
		}
	}()
	metricsManager.GaugeLifeSignal.Set(1)

	<-shutdownCh
	log.Debug("graceful shutdown initiated ...")
	metricsManager.GaugeLifeSignal.Set(0)
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Errorf("graceful shutdown failed: %s", err)
	}
	if err := metricsServer.Shutdown(shutdownCtx); err != nil {
		log.Errorf("metrics server shutdown failed: %s", err)
	}
	if dispatcher != nil {
		dispatcher.Wait()
	}
	if rdb != nil {
		if err := rdb.Close(); err != nil {
			log.Errorf("failed to close redis client conn: %s", err)
		}
	}
	log.Warnln("server shut down")
}
