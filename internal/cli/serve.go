package cli

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

	"github.com/cenkalti/backoff/v4"
	"github.com/spf13/cobra"

	"github.com/nhalm/logos/metrics"
	"github.com/nhalm/logos/quote"
	"github.com/nhalm/logos/server"
	"github.com/nhalm/logos/store"
)

const redisConnectRetries = 5

func (a *app) newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return a.serve(ctx)
		},
	}

	cmd.Flags().String("addr", ":8080", "listen address")
	cmd.Flags().Int("rate-limit", 60, "requests per client per window")
	cmd.Flags().Duration("rate-window", time.Minute, "rate limit window")
	cmd.Flags().String("store", "memory", "rate limit store (memory, redis)")
	cmd.Flags().String("redis-url", "localhost:6379", "redis address")
	cmd.Flags().StringSlice("cors-origins", []string{"*"}, "origins allowed to call the API")
	cmd.Flags().Bool("metrics", true, "serve Prometheus metrics at /metrics")

	a.v.BindPFlag("addr", cmd.Flags().Lookup("addr"))
	a.v.BindPFlag("rate_limit", cmd.Flags().Lookup("rate-limit"))
	a.v.BindPFlag("rate_window", cmd.Flags().Lookup("rate-window"))
	a.v.BindPFlag("store", cmd.Flags().Lookup("store"))
	a.v.BindPFlag("redis_url", cmd.Flags().Lookup("redis-url"))
	a.v.BindPFlag("cors_origins", cmd.Flags().Lookup("cors-origins"))
	a.v.BindPFlag("metrics", cmd.Flags().Lookup("metrics"))

	return cmd
}

func (a *app) serve(ctx context.Context) error {
	cfg := a.cfg

	st, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	defer st.Close()

	ds := quote.NewLoader(cfg.Dataset, slog.Default()).Dataset()

	opts := []server.Option{
		server.WithRateLimit(cfg.RateLimit, cfg.RateWindow),
		server.WithCORSOrigins(cfg.CORSOrigins...),
	}
	if cfg.Metrics {
		c := metrics.New("logos")
		c.RegisterRuntime()
		opts = append(opts, server.WithMetrics(c))
	}

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           server.New(ds, st, opts...),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       time.Minute,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("listening", "addr", cfg.Addr, "quotes", ds.Len(), "store", cfg.Store)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("listen: %w", err)
	case <-ctx.Done():
	}

	slog.Info("shutting down", "timeout", cfg.ShutdownTimeout)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

// openStore connects the configured rate limit store. Redis is retried with
// exponential backoff since it often starts alongside the service.
func (a *app) openStore(ctx context.Context) (store.Store, error) {
	cfg := a.cfg
	if cfg.Store != "redis" {
		return store.NewMemory(), nil
	}

	var st *store.Redis
	operation := func() error {
		var err error
		st, err = store.NewRedis(store.RedisConfig{
			URL:      cfg.RedisURL,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
			Prefix:   cfg.RedisPrefix,
		})
		if err != nil {
			slog.Warn("redis unavailable, retrying", "addr", cfg.RedisURL, "error", err)
		}
		return err
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 500 * time.Millisecond
	b.MaxInterval = 10 * time.Second
	if err := backoff.Retry(operation, backoff.WithContext(backoff.WithMaxRetries(b, redisConnectRetries), ctx)); err != nil {
		return nil, fmt.Errorf("connect redis: %w", err)
	}
	return st, nil
}
