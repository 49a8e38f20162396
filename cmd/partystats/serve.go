package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/spf13/cobra"

	"github.com/okian/partystats/internal/adapters/cache"
	"github.com/okian/partystats/internal/adapters/http/api"
	"github.com/okian/partystats/internal/adapters/http/swagger"
	service "github.com/okian/partystats/internal/app"
	"github.com/okian/partystats/pkg/logger"
	"github.com/okian/partystats/pkg/metrics"
)

// HTTP server timeout constants.
const (
	readTimeout         = 10 * time.Second
	writeTimeout        = 30 * time.Second
	idleTimeout         = 60 * time.Second
	readHeaderTimeout   = 5 * time.Second
	shutdownTimeout     = 30 * time.Second
	cacheMetricInterval = 15 * time.Second
)

func newServeCmd() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the ranking and history API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			cfg, log, err := bootstrap(ctx)
			if err != nil {
				return err
			}
			if addr != "" {
				cfg.Addr = addr
			}

			b, err := openBackends(ctx, cfg, log)
			if err != nil {
				return err
			}
			defer b.Close()

			if cfg.Warm.OnStart {
				go warmInBackground(ctx, b.svc, log)
			}
			go startCacheMetricsUpdater(ctx, b.kv)

			srv := &http.Server{
				Addr:              cfg.Addr,
				Handler:           newHandler(ctx, b.svc),
				ReadTimeout:       readTimeout,
				WriteTimeout:      writeTimeout,
				IdleTimeout:       idleTimeout,
				ReadHeaderTimeout: readHeaderTimeout,
			}
			return serve(ctx, srv, log)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides config)")
	return cmd
}

// newHandler mounts the API and its documentation on one router.
func newHandler(ctx context.Context, svc *service.Service) chi.Router {
	r := api.NewRouter(ctx, svc, svc)
	swagger.Register(ctx, r)
	return r
}

// serve runs srv until ctx is done, then shuts it down gracefully.
func serve(ctx context.Context, srv *http.Server, log logger.Logger) error {
	errCh := make(chan error, 1)
	go func() {
		log.Info(ctx, "starting HTTP server", logger.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return err
		}
	case <-ctx.Done():
	}
	log.Info(ctx, "shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error(ctx, "server shutdown failed", logger.Error(err))
		return err
	}
	log.Info(ctx, "server stopped")
	return nil
}

func warmInBackground(ctx context.Context, svc *service.Service, log logger.Logger) {
	sum, err := svc.Warm(ctx)
	if err != nil {
		log.Error(ctx, "warm-up failed", logger.Error(err))
		return
	}
	log.Info(ctx, "warm-up finished", summaryFields(sum)...)
}

// startCacheMetricsUpdater publishes the cache size until ctx is done.
func startCacheMetricsUpdater(ctx context.Context, kv cache.Cache) {
	ticker := time.NewTicker(cacheMetricInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n, err := kv.Len(ctx); err == nil {
				metrics.UpdateCachedKeyLists(n)
			}
		}
	}
}
