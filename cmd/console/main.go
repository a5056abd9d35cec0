package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"

	"github.com/joao-fontenele/orderflow-console/internal/config"
	"github.com/joao-fontenele/orderflow-console/internal/console"
	"github.com/joao-fontenele/orderflow-console/internal/devproxy"
	"github.com/joao-fontenele/orderflow-console/internal/messaging"
	"github.com/joao-fontenele/orderflow-console/internal/orderapi"
	"github.com/joao-fontenele/orderflow-console/internal/telemetry"
	"github.com/joao-fontenele/orderflow-console/internal/web"
)

const (
	serviceName    = "console"
	serviceVersion = "0.1.0"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		slog.New(slog.NewJSONHandler(os.Stdout, nil)).Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := newLogger(cfg.Log)

	if cfg.Telemetry.TracingEnabled {
		shutdownTracer, err := telemetry.InitTracerProvider(ctx, cfg.Telemetry.OTLPEndpoint, serviceName, serviceVersion)
		if err != nil {
			logger.Error("failed to initialize tracer", "error", err)
			os.Exit(1)
		}
		defer func() { _ = shutdownTracer(context.Background()) }()
	}

	metricsHandler, shutdownMeter, err := telemetry.InitMeterProvider(serviceName, serviceVersion)
	if err != nil {
		logger.Error("failed to initialize meter provider", "error", err)
		os.Exit(1)
	}
	defer func() { _ = shutdownMeter(context.Background()) }()

	consoleMetrics, err := telemetry.NewConsoleMetrics(otel.GetMeterProvider())
	if err != nil {
		logger.Error("failed to create console metrics", "error", err)
		os.Exit(1)
	}

	opts := []console.Option{console.WithRecorder(consoleMetrics)}
	if cfg.ActivityEnabled() {
		producer := messaging.NewActivityProducer(cfg.Kafka.Brokers, cfg.Kafka.ActivityTopic)
		defer func() { _ = producer.Close() }()
		opts = append(opts, console.WithPublisher(producer))
		logger.Info("publishing console activity", "brokers", cfg.Kafka.Brokers, "topic", cfg.Kafka.ActivityTopic)
	}

	apiClient := &http.Client{
		Timeout:   cfg.API.Timeout,
		Transport: otelhttp.NewTransport(http.DefaultTransport),
	}
	api := orderapi.NewClient(cfg.APIBaseURL, cfg.ConsoleOrigin(), apiClient)

	store := console.NewStore(cfg.Session.TTL, func(sessionID string) *console.Console {
		return console.New(sessionID, api, logger, opts...)
	}, logger)
	go store.Run(ctx, time.Minute)

	proxyClient := &http.Client{
		Transport: otelhttp.NewTransport(http.DefaultTransport),
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
	proxyHandler := devproxy.NewHandler(devproxy.NewUpstreamProxy(cfg.ProxyTarget, proxyClient), logger)

	mux := http.NewServeMux()
	web.NewHandler(store, api.BaseURL(), cfg.Session.TTL, logger).Routes(mux, telemetry.WithHTTPRoute)
	mux.HandleFunc(devproxy.Prefix, telemetry.WithHTTPRoute(proxyHandler.HandleAPI))
	mux.HandleFunc(devproxy.Prefix+"/", telemetry.WithHTTPRoute(proxyHandler.HandleAPI))
	mux.Handle("GET /metrics", metricsHandler)

	server := &http.Server{
		Addr: cfg.Addr(),
		Handler: otelhttp.NewHandler(devproxy.AllowHosts(cfg.HostAllowed, logger, mux), serviceName,
			otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
				if r.Pattern != "" {
					return r.Pattern
				}
				return r.Method + " " + r.URL.Path
			}),
		),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	go func() {
		logger.Info("starting console",
			"addr", cfg.Addr(),
			"api_base_url", api.BaseURL(),
			"proxy_target", cfg.ProxyTarget,
			"allowed_hosts", cfg.AllowedHosts(),
		)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	logger.Info("shutting down")
	cancel()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "error", err)
		os.Exit(1)
	}
}

func newLogger(cfg config.Log) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(cfg.Format, "text") {
		return slog.New(slog.NewTextHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, opts))
}
