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

	"github.com/leostore/storefront/internal/cart"
	"github.com/leostore/storefront/internal/checkout"
	"github.com/leostore/storefront/internal/config"
	"github.com/leostore/storefront/internal/database"
	"github.com/leostore/storefront/internal/events"
	"github.com/leostore/storefront/internal/httpx"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	cfg, err := config.Load()
	if err != nil {
		logger.Error("load config", "err", err)
		os.Exit(1)
	}

	db, err := database.NewConnection(&cfg.Database)
	if err != nil {
		logger.Error("connect to database", "err", err)
		os.Exit(1)
	}
	defer db.Close()
	logger.Info("connected to database")

	rdb := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr})
	defer rdb.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	publisher := events.NewPublisher(cfg.Kafka.Brokers, cfg.Kafka.OrderTopic, cfg.Kafka.ServiceName, logger)
	publisher.Start(ctx)

	handler := &httpx.Handler{
		DB:       db,
		Cart:     cart.NewStore(rdb, cfg.Redis.CartTTL),
		Checkout: checkout.NewService(db, publisher, logger),
		Events:   publisher,
		Logger:   logger,
	}

	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      httpx.NewRouter(handler),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("server starting", "port", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("server error", "err", err)
		os.Exit(1)
	}

	publisher.WaitClosed()
	logger.Info("server stopped")
}
