package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/joao-fontenele/tradeflow/internal/clients"
	"github.com/joao-fontenele/tradeflow/internal/config"
	"github.com/joao-fontenele/tradeflow/internal/delay"
	"github.com/joao-fontenele/tradeflow/internal/domain"
	"github.com/joao-fontenele/tradeflow/internal/messaging"
	"github.com/joao-fontenele/tradeflow/internal/telemetry"
	"github.com/joao-fontenele/tradeflow/internal/trade"
)

func main() {
	ctx := context.Background()
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	shutdownTracer, err := telemetry.InitTracerProvider(ctx, "trade", "0.1.0")
	if err != nil {
		logger.Error("failed to initialize tracer", "error", err)
		os.Exit(1)
	}
	defer func() { _ = shutdownTracer(ctx) }()

	metricsHandler, shutdownMeter, err := telemetry.InitMeterProvider("trade", "0.1.0")
	if err != nil {
		logger.Error("failed to initialize meter", "error", err)
		os.Exit(1)
	}
	defer func() { _ = shutdownMeter(ctx) }()

	db, err := telemetry.OpenDB("postgres", cfg.PostgresURL)
	if err != nil {
		logger.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer func() { _ = db.Close() }()

	if err := db.Ping(); err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}

	producer := messaging.NewProducer(cfg.KafkaBrokers, domain.TopicOrderCreated)
	defer func() { _ = producer.Close() }()

	scheduler, err := delay.NewScheduler(cfg.RabbitMQURL, cfg.PayTimeout, logger)
	if err != nil {
		logger.Error("failed to connect to rabbitmq", "error", err)
		os.Exit(1)
	}
	defer scheduler.Close()

	repo := trade.NewOrderRepository(db)
	itemClient := clients.NewItemClient(cfg.ItemServiceURL, logger)
	payClient := clients.NewPayClient(cfg.PayServiceURL, logger)

	coordinator, err := trade.NewCoordinator(repo, itemClient, payClient, producer, scheduler, logger)
	if err != nil {
		logger.Error("failed to create coordinator", "error", err)
		os.Exit(1)
	}
	handler := trade.NewHandler(coordinator, logger)

	mux := http.NewServeMux()
	mux.HandleFunc("POST /orders", telemetry.WithHTTPRoute(handler.HandleCreate))
	mux.HandleFunc("GET /orders/{id}", telemetry.WithHTTPRoute(handler.HandleGet))
	mux.HandleFunc("PUT /orders/{id}/cancel", telemetry.WithHTTPRoute(handler.HandleCancel))
	mux.Handle("GET /metrics", metricsHandler)

	server := &http.Server{
		Addr: ":" + cfg.Port,
		Handler: otelhttp.NewHandler(mux, "trade",
			otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
				if r.Pattern != "" {
					return r.Pattern
				}
				return r.Method + " " + r.URL.Path
			}),
		),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	consumerCtx, cancelConsumers := context.WithCancel(ctx)
	defer cancelConsumers()

	payConsumer := messaging.NewConsumer(cfg.KafkaBrokers, domain.TopicPaySuccess, cfg.ConsumerGroup)
	defer func() { _ = payConsumer.Close() }()

	go func() {
		logger.Info("starting pay success consumer", "brokers", cfg.KafkaBrokers)
		if err := payConsumer.Consume(consumerCtx, coordinator.HandlePaySuccess); err != nil && consumerCtx.Err() == nil {
			logger.Error("pay success consumer error", "error", err)
			os.Exit(1)
		}
	}()

	go func() {
		logger.Info("starting delayed check consumer", "delay", cfg.PayTimeout)
		if err := scheduler.Consume(consumerCtx, coordinator.HandleDelayedCheck); err != nil && consumerCtx.Err() == nil {
			logger.Error("delayed check consumer error", "error", err)
			os.Exit(1)
		}
	}()

	go func() {
		logger.Info("starting trade service", "port", cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	logger.Info("shutting down")
	cancelConsumers()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "error", err)
		os.Exit(1)
	}
}
