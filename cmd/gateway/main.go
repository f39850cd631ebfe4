package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/joao-fontenele/tradeflow/internal/config"
	"github.com/joao-fontenele/tradeflow/internal/gateway"
	"github.com/joao-fontenele/tradeflow/internal/telemetry"
)

func main() {
	ctx := context.Background()
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	cfg, err := config.LoadGateway()
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	shutdownTracer, err := telemetry.InitTracerProvider(ctx, "gateway", "0.1.0")
	if err != nil {
		logger.Error("failed to initialize tracer", "error", err)
		os.Exit(1)
	}
	defer func() { _ = shutdownTracer(ctx) }()

	httpClient := &http.Client{
		Timeout:   10 * time.Second,
		Transport: otelhttp.NewTransport(http.DefaultTransport),
	}

	tradeProxy := gateway.NewServiceProxy(cfg.TradeServiceURL, httpClient)
	itemProxy := gateway.NewServiceProxy(cfg.ItemServiceURL, httpClient)
	payProxy := gateway.NewServiceProxy(cfg.PayServiceURL, httpClient)
	handler := gateway.NewHandler(tradeProxy, itemProxy, payProxy, logger)

	mux := http.NewServeMux()
	mux.HandleFunc("POST /orders", telemetry.WithHTTPRoute(handler.HandleOrders))
	mux.HandleFunc("GET /orders/{id}", telemetry.WithHTTPRoute(handler.HandleOrders))
	mux.HandleFunc("PUT /orders/{id}/cancel", telemetry.WithHTTPRoute(handler.HandleOrders))
	mux.HandleFunc("GET /items", telemetry.WithHTTPRoute(handler.HandleItems))
	mux.HandleFunc("PUT /items/stock/deduct", telemetry.WithHTTPRoute(handler.HandleItems))
	mux.HandleFunc("PUT /items/stock/restore", telemetry.WithHTTPRoute(handler.HandleItems))
	mux.HandleFunc("GET /pay-orders/biz/{id}", telemetry.WithHTTPRoute(handler.HandlePayOrders))
	mux.HandleFunc("PUT /pay-orders/biz/{id}/{status}", telemetry.WithHTTPRoute(handler.HandlePayOrders))

	server := &http.Server{
		Addr: ":" + cfg.Port,
		Handler: otelhttp.NewHandler(mux, "gateway",
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

	go func() {
		logger.Info("starting gateway service", "port", cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "error", err)
		os.Exit(1)
	}
}
