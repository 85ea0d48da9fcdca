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

	"github.com/BuseglY/order-management-api/internal/app"
	"github.com/BuseglY/order-management-api/internal/clock"
	"github.com/BuseglY/order-management-api/internal/config"
	"github.com/BuseglY/order-management-api/internal/events"
	"github.com/BuseglY/order-management-api/internal/redisx"
	"github.com/BuseglY/order-management-api/internal/storage/postgres"
	transporthttp "github.com/BuseglY/order-management-api/internal/transport/http"
	"github.com/BuseglY/order-management-api/migrations"
)

const startupTimeout = 5 * time.Second

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	cfg := config.Load()

	startupCtx, cancel := context.WithTimeout(context.Background(), startupTimeout)
	defer cancel()

	pool, err := postgres.Connect(startupCtx, cfg.DatabaseURL)
	if err != nil {
		logger.Error("connect to db", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	if err := migrations.Apply(startupCtx, pool); err != nil {
		logger.Error("apply migrations", "error", err)
		os.Exit(1)
	}

	var publisher events.Publisher = events.Nop{}
	if len(cfg.KafkaBrokers) > 0 {
		kafkaPublisher := events.NewKafkaPublisher(cfg.KafkaBrokers, cfg.ServiceName)
		defer func() { _ = kafkaPublisher.Close() }()
		publisher = kafkaPublisher
		logger.Info("kafka publisher enabled", "brokers", cfg.KafkaBrokers)
	}

	stockOpts := []app.StockServiceOption{app.WithLockTimeout(cfg.StockLockTimeout)}
	if cfg.RedisAddr != "" {
		redisClient, err := redisx.New(startupCtx, cfg.RedisAddr)
		if err != nil {
			logger.Error("connect to redis", "error", err)
			os.Exit(1)
		}
		defer func() { _ = redisClient.Close() }()
		stockOpts = append(stockOpts, app.WithLowStockCache(redisx.NewAlertCache(redisClient)))
		logger.Info("low-stock alert cache enabled", "addr", cfg.RedisAddr)
	}

	clk := clock.NewSystem()
	productRepo := postgres.NewProductRepository(pool)
	orderRepo := postgres.NewOrderRepository(pool)

	stockSvc := app.NewStockService(productRepo, clk, logger, publisher, stockOpts...)
	orderSvc := app.NewOrderService(orderRepo, stockSvc, clk, logger, publisher)
	productSvc := app.NewProductService(productRepo, clk, logger)

	handler := transporthttp.NewRouter(logger, productSvc, orderSvc, stockSvc)

	server := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: handler,
	}

	logger.Info("api listening", "addr", cfg.HTTPAddr, "service", cfg.ServiceName)

	srvErr := make(chan error, 1)
	go func() {
		srvErr <- server.ListenAndServe()
	}()

	stopCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	select {
	case err := <-srvErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", "error", err)
		}
	case <-stopCtx.Done():
		logger.Info("shutdown signal received, stopping server")
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("server shutdown error", "error", err)
	}
	logger.Info("server stopped")
}
