package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	webAdapter "marketplace-orders/internal/adapters/web"
	"marketplace-orders/internal/app"
	"marketplace-orders/internal/cache"
	"marketplace-orders/internal/config"
	"marketplace-orders/internal/core"
	"marketplace-orders/internal/db"
	"marketplace-orders/internal/events"
	"marketplace-orders/internal/metrics"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("config", "error", err)
		os.Exit(1)
	}
	logger := newLogger(cfg.LogLevel)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := db.NewPool(ctx, cfg.Database.URL)
	if err != nil {
		logger.Error("database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	m := metrics.New()

	var bought cache.BoughtItemsCache
	if cfg.Redis.Addr != "" {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer client.Close()
		if err := client.Ping(ctx).Err(); err != nil {
			logger.Warn("redis unreachable, bought items cache disabled", "addr", cfg.Redis.Addr, "error", err)
		} else {
			bought = cache.NewRedisCache(client, cfg.Redis.TTL)
		}
	}

	var publisher events.Publisher = events.NopPublisher{}
	if len(cfg.Kafka.Brokers) > 0 {
		publisher = events.NewKafkaPublisher(cfg.Kafka.Brokers, cfg.Kafka.OrdersTopic, logger)
	}
	defer publisher.Close()

	tax := core.TaxConfig{ShipmentIncVAT: cfg.Tax.ShipmentIncVAT, ShippingTaxRate: cfg.Tax.ShippingTaxRate}
	recalc := core.NewRecalculator(core.NewAdjustmentLedger(), tax, logger)
	lineItems := core.NewLineItemService(core.NewOrderStore(pool), recalc, logger)
	users := core.NewUserService(pool)

	svc := app.NewAppService(pool, lineItems, users, bought, publisher, m, logger)

	if cfg.Auth.JWTSecret == "" {
		logger.Warn("JWT_SECRET is not set; every request is treated as anonymous")
	}
	handler := webAdapter.NewHandler(svc, cfg.Server.AllowedOrigins, cfg.Auth.JWTSecret, logger, m)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		logger.Info("server starting", "addr", srv.Addr,
			"shipment_inc_vat", tax.ShipmentIncVAT, "shipping_tax_rate", tax.ShippingTaxRate.String())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown", "error", err)
	}
}

func newLogger(level string) *slog.Logger {
	var l slog.Level
	if err := l.UnmarshalText([]byte(level)); err != nil {
		l = slog.LevelInfo
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: l}))
}
