package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Skotchmaster/warehouse/internal/cache"
	"github.com/Skotchmaster/warehouse/internal/config"
	"github.com/Skotchmaster/warehouse/internal/db"
	"github.com/Skotchmaster/warehouse/internal/es"
	"github.com/Skotchmaster/warehouse/internal/httpserver"
	"github.com/Skotchmaster/warehouse/internal/logging"
	"github.com/Skotchmaster/warehouse/internal/mykafka"
	"github.com/Skotchmaster/warehouse/internal/repo"
	"github.com/Skotchmaster/warehouse/internal/service"
	"github.com/Skotchmaster/warehouse/internal/tracing"
)

func main() {
	config.LoadEnvFile(".env")

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("config: %v", err)
	}

	logger := logging.New(cfg.LogLevel).With("service", cfg.ServiceName)
	slog.SetDefault(logger)

	startCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	shutdownTracing, err := tracing.Setup(startCtx, cfg, os.Stdout)
	if err != nil {
		log.Fatalf("tracing: %v", err)
	}

	gdb, err := db.Open(startCtx, cfg.DBDriver, cfg.DSN(), logger)
	if err != nil {
		log.Fatalf("db open: %v", err)
	}
	if err := db.Migrate(startCtx, gdb); err != nil {
		log.Fatalf("db migrate: %v", err)
	}

	r := &repo.GormRepo{DB: gdb}
	statuses := &service.StatusCatalog{Repo: r}
	if err := statuses.EnsureSeeded(startCtx); err != nil {
		log.Fatalf("%v", err)
	}

	products := &service.ProductService{Repo: r}
	orders := &service.OrderService{Repo: r}

	var producer *mykafka.Producer
	if len(cfg.KafkaBrokers) > 0 {
		producer, err = mykafka.NewProducer(cfg.KafkaBrokers)
		if err != nil {
			log.Fatalf("kafka: %v", err)
		}
		products.Events, orders.Events = producer, producer
		logger.Info("kafka producer ready", "brokers", cfg.KafkaBrokers)
	}

	if cfg.ESURL != "" {
		esClient, err := es.NewClient(startCtx, cfg, logger)
		if err != nil {
			log.Fatalf("elasticsearch: %v", err)
		}
		index := es.NewProductIndex(esClient, cfg.ESIndex)
		products.Index, orders.Index = index, index
	}

	var redisClose func() error
	if cfg.RedisURL != "" {
		rdb, err := cache.NewClient(startCtx, cfg.RedisURL)
		if err != nil {
			log.Fatalf("redis: %v", err)
		}
		redisClose = rdb.Close
		pc := cache.NewProductCache(rdb, cfg.CacheTTL)
		products.Cache, orders.Cache = pc, pc
		logger.Info("product cache ready", "ttl", cfg.CacheTTL)
	}

	e := httpserver.New(cfg.ServiceName, logger, &httpserver.Deps{
		Products: &httpserver.ProductHTTP{Svc: products},
		Orders:   &httpserver.OrderHTTP{Svc: orders},
		Statuses: &httpserver.StatusHTTP{Svc: statuses},
		Ready:    func(ctx context.Context) error { return db.Ping(ctx, gdb) },
	})

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           e,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      15 * time.Second,
		ReadHeaderTimeout: 3 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		logger.Info("warehouse listening", "addr", srv.Addr, "db_driver", cfg.DBDriver)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("listen: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	logger.Info("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown failed", "error", err)
	}
	if producer != nil {
		if err := producer.Close(); err != nil {
			logger.Error("kafka close failed", "error", err)
		}
	}
	if redisClose != nil {
		if err := redisClose(); err != nil {
			logger.Error("redis close failed", "error", err)
		}
	}
	if err := db.Close(gdb); err != nil {
		logger.Error("db close failed", "error", err)
	}
	if err := shutdownTracing(shutdownCtx); err != nil {
		logger.Error("tracing shutdown failed", "error", err)
	}

	logger.Info("shutdown complete")
}
