package feedview

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/edgeflare/feedview/pkg/api"
	"github.com/edgeflare/feedview/pkg/feed"
	"github.com/edgeflare/feedview/pkg/metrics"
	"github.com/edgeflare/feedview/pkg/readiness"
	"github.com/edgeflare/feedview/pkg/stream"
	"github.com/edgeflare/feedview/pkg/userdir"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	// Register built-in sources
	_ "github.com/edgeflare/feedview/pkg/stream/source/kafka"
	_ "github.com/edgeflare/feedview/pkg/stream/source/mqtt"
	_ "github.com/edgeflare/feedview/pkg/stream/source/nats"
)

var serveCmd = &cobra.Command{
	Use:     "serve",
	Aliases: []string{"s"},
	Short:   "Consume lifecycle events and serve the feed view",
	Long:    `Subscribes to the post and user lifecycle topics, folds the events into an in-memory feed view, and serves it over HTTP.`,
	RunE:    runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	logger, err := newLogger(logLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	errChan := make(chan error, 3)
	doneChan := make(chan struct{})

	var wg sync.WaitGroup

	if cfg.Metrics.Enabled {
		metrics.StartPrometheusServer(ctx, &wg, logger, &metrics.PromServerOpts{Addr: cfg.Metrics.ListenAddr})
	}

	store := feed.NewStore()
	users := userdir.NewCache()

	var opts []feed.DispatcherOption
	if cfg.Resolver.URL != "" {
		opts = append(opts, feed.WithResolver(userdir.NewHTTPResolver(cfg.Resolver.URL)))
	}
	dispatcher := feed.NewDispatcher(store, users, logger, opts...)

	gate := readiness.NewGate(cfg.Readiness.QuietWindow)
	defer gate.Stop()

	source, msgs, err := connectSource(ctx, logger)
	if err != nil {
		return err
	}

	consumer := stream.NewConsumer(dispatcher, gate, logger)
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := consumer.Run(ctx, msgs); err != nil {
			errChan <- err
		}
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		watchReadiness(ctx, gate, store, logger)
	}()

	srv := api.NewServer(store, users, gate, logger)
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := srv.ListenAndServe(cfg.Server.ListenAddr); err != nil {
			errChan <- err
		}
	}()

	// Wait for shutdown signal or error
	select {
	case <-sigChan:
		logger.Info("received termination signal, shutting down gracefully")
	case err := <-errChan:
		logger.Error("serve error", zap.Error(err))
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("server shutdown", zap.Error(err))
	}
	if err := source.Disconnect(); err != nil {
		logger.Warn("source disconnect", zap.Error(err))
	}
	cancel()

	go func() {
		wg.Wait()
		close(doneChan)
	}()

	select {
	case <-doneChan:
		logger.Info("shutdown complete")
	case <-time.After(10 * time.Second):
		logger.Warn("shutdown timed out after 10 seconds")
	}

	return nil
}

// connectSource looks up the configured connector, connects with retry, and
// subscribes to the lifecycle topics. A connector that cannot be reached after
// the backoff budget is a fatal startup error.
func connectSource(ctx context.Context, logger *zap.Logger) (stream.Source, <-chan stream.Message, error) {
	source, ok := stream.LookupSource(cfg.Source.Connector)
	if !ok {
		return nil, nil, fmt.Errorf("unknown source connector: %s", cfg.Source.Connector)
	}

	raw, err := cfg.SourceJSON()
	if err != nil {
		return nil, nil, err
	}

	b := backoff.NewExponentialBackOff()
	b.MaxElapsedTime = 2 * time.Minute
	err = backoff.Retry(func() error {
		if err := source.Connect(raw); err != nil {
			logger.Warn("source connect failed, retrying",
				zap.String("connector", cfg.Source.Connector), zap.Error(err))
			return err
		}
		return nil
	}, backoff.WithContext(b, ctx))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect source %s: %w", cfg.Source.Connector, err)
	}

	topics := cfg.Topics()
	msgs, err := source.Sub(topics...)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to subscribe to %v: %w", topics, err)
	}

	logger.Info("consuming lifecycle events",
		zap.String("connector", cfg.Source.Connector),
		zap.Strings("topics", topics))
	return source, msgs, nil
}

// watchReadiness mirrors gate and store state into gauges and logs the
// transition to ready.
func watchReadiness(ctx context.Context, gate *readiness.Gate, store *feed.Store, logger *zap.Logger) {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	done := gate.Done()
	for {
		select {
		case <-done:
			metrics.ReplayReady.Set(1)
			logger.Info("replay gate fired, view is ready",
				zap.Int("feed_items", store.Len()))
			done = nil // terminal, stop selecting on it
		case <-ticker.C:
			metrics.FeedItems.Set(float64(store.Len()))
		case <-ctx.Done():
			return
		}
	}
}

func newLogger(level string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}
	zcfg := zap.NewProductionConfig()
	zcfg.Level = zap.NewAtomicLevelAt(lvl)
	return zcfg.Build()
}
