package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"golang.org/x/time/rate"

	"github.com/GotWill/checkout-colmeia/internal/cache"
	"github.com/GotWill/checkout-colmeia/internal/catalog"
	"github.com/GotWill/checkout-colmeia/internal/checkout"
	"github.com/GotWill/checkout-colmeia/internal/circuitbreaker"
	"github.com/GotWill/checkout-colmeia/internal/config"
	"github.com/GotWill/checkout-colmeia/internal/consumer"
	h "github.com/GotWill/checkout-colmeia/internal/http"
	"github.com/GotWill/checkout-colmeia/internal/logger"
	"github.com/GotWill/checkout-colmeia/internal/metrics"
	"github.com/GotWill/checkout-colmeia/internal/orders"
	"github.com/GotWill/checkout-colmeia/internal/publisher"
	"github.com/GotWill/checkout-colmeia/internal/repository"
	"github.com/GotWill/checkout-colmeia/internal/store"
)

func main() {
	cfg := config.Load()
	log := logger.New(os.Stdout, cfg.LogLevel)
	slog.SetDefault(log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Client state
	var stateRepo repository.StateRepository
	var mongoClient *mongo.Client
	switch cfg.StorageBackend {
	case config.StorageMongo:
		client, db, err := repository.ConnectMongoDB(ctx, cfg.Mongo)
		if err != nil {
			fatal(log, "failed to connect to MongoDB", err)
		}
		mongoClient = client
		mongoRepo := repository.NewMongoRepository(db)
		if err := mongoRepo.CreateIndexes(ctx); err != nil {
			fatal(log, "failed to create state indexes", err)
		}
		stateRepo = mongoRepo
		log.Info("connected to MongoDB", slog.String("database", cfg.Mongo.Database))
	case config.StorageMemory:
		stateRepo = repository.NewMemoryRepository()
		log.Warn("using in-memory client state, nothing survives a restart")
	default:
		fatal(log, "unknown storage backend", errors.New(cfg.StorageBackend))
	}

	var redisClient *redis.Client
	if cfg.RedisAddr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       0,
		})
		if err := redisClient.Ping(ctx).Err(); err != nil {
			log.Warn("redis ping failed, cache calls will go through the breaker", slog.Any("error", err))
		} else {
			log.Info("redis ping succeeded", slog.String("addr", cfg.RedisAddr))
		}
		breaker := circuitbreaker.New(circuitbreaker.DefaultSettings("redis-state-cache"), log)
		stateRepo = repository.NewCachedRepository(stateRepo, cache.NewRedisCache(redisClient), breaker, log)
	}

	registry := store.NewRegistry(stateRepo, store.RegistryConfig{
		PersistTimeout:  cfg.PersistTimeout,
		IdleTTL:         cfg.CheckoutSessionTTL,
		CleanupInterval: cfg.SweepInterval,
	}, log)

	// Catalog
	catalogRepo, err := catalog.NewSQLiteRepository(cfg.CatalogDBPath)
	if err != nil {
		fatal(log, "failed to open catalog database", err)
	}
	if err := catalogRepo.RunMigrations(); err != nil {
		fatal(log, "failed to migrate catalog database", err)
	}

	// Orders and events
	var ordersRepo *orders.PostgresRepository
	if cfg.OrdersDatabaseURL != "" {
		ordersRepo, err = orders.NewPostgresRepository(cfg.OrdersDatabaseURL)
		if err != nil {
			fatal(log, "failed to connect to orders database", err)
		}
		if err := ordersRepo.RunMigrations(); err != nil {
			fatal(log, "failed to migrate orders database", err)
		}
		log.Info("orders database ready")
	}

	var checkoutPublisher checkout.Publisher
	var kafkaPublisher *publisher.KafkaPublisher
	var ordersConsumer *consumer.OrdersConsumer
	if len(cfg.KafkaBrokers) > 0 {
		breaker := circuitbreaker.New(circuitbreaker.DefaultSettings("kafka-publisher"), log)
		kafkaPublisher = publisher.NewKafkaPublisher(publisher.NewKafkaWriter(cfg.KafkaBrokers...), breaker, log)
		checkoutPublisher = kafkaPublisher

		if ordersRepo != nil {
			ordersConsumer = consumer.NewOrdersConsumer(ordersRepo, consumer.NewKafkaReader(cfg.KafkaBrokers...), log)
			go ordersConsumer.Run(ctx)
		}
		log.Info("publishing checkout events to kafka", slog.Any("brokers", cfg.KafkaBrokers))
	} else if ordersRepo != nil {
		checkoutPublisher = consumer.NewOrderRecorder(ordersRepo, log)
	} else {
		checkoutPublisher = publisher.NewLogPublisher(log)
	}

	// Metrics
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	collector := metrics.NewCollector(reg)

	checkoutService := checkout.NewService(registry, checkoutPublisher, collector, checkout.RandomOutcome{}, checkout.Config{
		TickInterval: cfg.CheckoutTickInterval,
		SessionTTL:   cfg.CheckoutSessionTTL,
	}, log)
	go checkoutService.RunSweeper(ctx, cfg.SweepInterval)

	authLimiter := h.NewRateLimiter(h.RateLimiterConfig{
		Rate:  rate.Limit(cfg.RateLimitRPS),
		Burst: cfg.RateLimitBurst,
	})

	routerCfg := h.RouterConfig{
		Catalog:            catalogRepo,
		Workspaces:         registry,
		Checkout:           checkoutService,
		Metrics:            collector,
		MetricsHandler:     metrics.Handler(reg),
		AuthLimiter:        authLimiter,
		RequestTimeout:     cfg.RequestTimeout,
		MaxRequestBodySize: cfg.MaxRequestBodySize,
		Logger:             log,
	}
	if ordersRepo != nil {
		routerCfg.Orders = ordersRepo
	}
	router := h.NewRouter(routerCfg)

	// Propagate trace context
	otel.SetTextMapPropagator(
		propagation.NewCompositeTextMapPropagator(
			propagation.TraceContext{}, propagation.Baggage{}))

	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      otelhttp.NewHandler(router, "storefront"),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info("storefront starting", slog.String("port", cfg.HTTPPort))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			fatal(log, "server error", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server...")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("server forced to shutdown", slog.Any("error", err))
	}

	cancel()
	authLimiter.Stop()
	checkoutService.Close()
	if err := registry.Close(); err != nil {
		log.Error("failed to close registry", slog.Any("error", err))
	}
	if ordersConsumer != nil {
		ordersConsumer.Close()
	}
	if kafkaPublisher != nil {
		if err := kafkaPublisher.Close(); err != nil {
			log.Error("failed to close kafka writer", slog.Any("error", err))
		}
	}
	if ordersRepo != nil {
		ordersRepo.Close()
	}
	catalogRepo.Close()
	if redisClient != nil {
		redisClient.Close()
	}
	if mongoClient != nil {
		if err := mongoClient.Disconnect(shutdownCtx); err != nil {
			log.Error("failed to disconnect from MongoDB", slog.Any("error", err))
		}
	}

	log.Info("server exited")
}

func fatal(log *slog.Logger, msg string, err error) {
	log.Error(msg, slog.Any("error", err))
	os.Exit(1)
}
