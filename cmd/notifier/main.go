package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/imrishuroy/gp-notifier/internal/aws"
	"github.com/imrishuroy/gp-notifier/internal/config"
	"github.com/imrishuroy/gp-notifier/internal/handlers"
	"github.com/imrishuroy/gp-notifier/internal/idempotency"
	"github.com/imrishuroy/gp-notifier/internal/listener"
	"github.com/imrishuroy/gp-notifier/internal/metrics"
	"github.com/imrishuroy/gp-notifier/internal/sightings"
)

func setupRouter(cfg handlers.HandlerConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), handlers.RequestIDMiddleware(), handlers.LoggingMiddleware(cfg.Logger))

	// health
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	if cfg.Metrics != nil {
		r.GET("/metrics", gin.WrapH(cfg.Metrics.Handler()))
	}

	handlers.RegisterPetsRoutes(r, cfg)

	return r
}

// buildSinks wires the optional AWS fan-out.
func buildSinks(ctx context.Context, cfg config.Config) ([]handlers.Sink, error) {
	if !cfg.FanoutEnabled() {
		return nil, nil
	}
	clients, err := aws.NewAWSClients(ctx, cfg.AWSRegion)
	if err != nil {
		return nil, fmt.Errorf("init aws clients: %w", err)
	}

	var sinks []handlers.Sink
	if cfg.QueueURL != "" {
		sinks = append(sinks, aws.NewPublisher(clients.SQS, cfg.QueueURL))
	}
	if cfg.CloudWatchNamespace != "" {
		sinks = append(sinks, aws.NewMetricEmitter(clients.CloudWatch, cfg.CloudWatchNamespace))
	}
	return sinks, nil
}

func run(ctx context.Context, cfg config.Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	sinks, err := buildSinks(ctx, cfg)
	if err != nil {
		return err
	}

	m := metrics.New()
	store := sightings.NewStore(cfg.RetentionWindow)
	fanout := handlers.NewFanout(sinks, cfg.ForwardTimeout, logger, m)
	r := setupRouter(handlers.HandlerConfig{
		Store:   store,
		Logger:  logger,
		Metrics: m,
		Fanout:  fanout,
	})
	srv := &http.Server{Addr: cfg.Addr(), Handler: r, ReadHeaderTimeout: 5 * time.Second}

	forwarder := listener.NewHTTPForwarder(cfg.IngestURL, cfg.ForwardTimeout)
	defer forwarder.Close()
	lst, err := listener.New(
		cfg.ChannelIDs,
		idempotency.NewStore(cfg.DedupTTL, cfg.DedupMaxEntries),
		forwarder,
		listener.WithLogger(logger),
		listener.WithMetrics(m),
	)
	if err != nil {
		return err
	}
	source, err := listener.NewDiscordSource(cfg.DiscordToken, logger)
	if err != nil {
		return err
	}

	srvErr := make(chan error, 1)
	go func() {
		logger.Info("server on", "url", fmt.Sprintf("http://localhost:%d", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			srvErr <- fmt.Errorf("http server: %w", err)
		}
	}()
	lstDone := make(chan error, 1)
	go func() {
		lstDone <- lst.Run(ctx, source)
	}()

	var runErr error
	select {
	case <-ctx.Done():
	case runErr = <-srvErr:
	case runErr = <-lstDone:
		lstDone = nil
	}
	if runErr != nil {
		logger.Error("runtime failure", "error", runErr)
	}
	stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), config.DefaultShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http shutdown", "error", err)
	}
	if err := fanout.Wait(shutdownCtx); err != nil {
		logger.Error("fan-out drain", "error", err)
	}
	if lstDone != nil {
		select {
		case err := <-lstDone:
			if err != nil {
				logger.Error("listener shutdown", "error", err)
			}
		case <-shutdownCtx.Done():
		}
	}
	return runErr
}

func main() {
	configPath := flag.String("config", os.Getenv("CONFIG_FILE"), "optional YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.LogLevel}))
	slog.SetDefault(logger)
	if cfg.LogLevel > slog.LevelDebug {
		gin.SetMode(gin.ReleaseMode)
	}

	if err := run(context.Background(), cfg, logger); err != nil {
		logger.Error("notifier stopped", "error", err)
		os.Exit(1)
	}
}
