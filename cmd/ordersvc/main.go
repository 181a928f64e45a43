package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/stepflow-go/stepflow/internal/adapters/events/direct"
	"github.com/stepflow-go/stepflow/internal/adapters/storage/sqlite"
	"github.com/stepflow-go/stepflow/internal/config"
	"github.com/stepflow-go/stepflow/internal/orders"
	"github.com/stepflow-go/stepflow/internal/pipeline"
	"github.com/stepflow-go/stepflow/internal/server"
	"github.com/stepflow-go/stepflow/internal/telemetry"
)

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	cfg, err := config.Load("config.yaml")
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	if cfg.Telemetry.Enabled {
		shutdown, err := telemetry.InitTracer("ordersvc", logger)
		if err != nil {
			log.Fatalf("Failed to initialize tracer: %v", err)
		}
		defer func() {
			if err := shutdown(context.Background()); err != nil {
				logger.Error("failed to shutdown tracer", slog.String("error", err.Error()))
			}
		}()
	}

	store, err := sqlite.New(cfg.Storage.Path)
	if err != nil {
		log.Fatalf("Failed to open storage: %v", err)
	}
	defer store.Close()

	repo := sqlite.NewOrdersRepository(store)
	if err := seedDemoUsers(context.Background(), repo); err != nil {
		log.Fatalf("Failed to seed demo users: %v", err)
	}

	sink, err := direct.NewSink(store)
	if err != nil {
		log.Fatalf("Failed to create event sink: %v", err)
	}

	summary, err := orders.NewSummaryQuery(repo, logger)
	if err != nil {
		log.Fatalf("Failed to build summary query: %v", err)
	}
	placeOrder, err := orders.NewPlaceOrderCommand(repo, store, sink, logger)
	if err != nil {
		log.Fatalf("Failed to build place-order command: %v", err)
	}

	summaryHandler := pipeline.Chain(summary.Handler(),
		pipeline.WithTracing[orders.SummaryRequest, orders.Summary](summary.Name()),
		pipeline.WithLogging[orders.SummaryRequest, orders.Summary](logger, summary.Name()),
	)
	placeOrderHandler := pipeline.Chain(placeOrder.Handler(),
		pipeline.WithTracing[orders.PlaceOrderCommand, orders.PlaceOrderReceipt](placeOrder.Name()),
		pipeline.WithLogging[orders.PlaceOrderCommand, orders.PlaceOrderReceipt](logger, placeOrder.Name()),
	)

	srv := server.New(cfg.Server.Port, logger)
	orders.NewHandlers(summaryHandler, placeOrderHandler).Routes(srv.Router)

	go func() {
		if err := srv.Start(); err != nil {
			logger.Error("server failed", slog.String("error", err.Error()))
			os.Exit(1)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("shutdown signal received")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

// seedDemoUsers inserts a couple of users on first start so the demo
// endpoints have data to work with.
func seedDemoUsers(ctx context.Context, repo *sqlite.OrdersRepository) error {
	seed := []orders.User{
		{ID: 1, Name: "alice", Active: true},
		{ID: 2, Name: "bob", Active: false},
	}
	for i := range seed {
		_, err := repo.FindUser(ctx, seed[i].ID)
		if err == nil {
			continue
		}
		if !errors.Is(err, orders.ErrUserNotFound) {
			return err
		}
		if err := repo.SaveUser(ctx, &seed[i]); err != nil {
			return err
		}
	}
	return nil
}
