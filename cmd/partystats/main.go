// Command partystats serves party vote-share rankings and manages the
// fact database and ranking cache behind them.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/okian/partystats/internal/adapters/cache"
	"github.com/okian/partystats/internal/adapters/repository"
	service "github.com/okian/partystats/internal/app"
	"github.com/okian/partystats/internal/config"
	"github.com/okian/partystats/pkg/logger"
)

// Version is set at build time.
var Version = "dev" //nolint:gochecknoglobals // overwritten by -ldflags

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:           "partystats",
		Short:         "Party vote-share rankings by region, prefecture and municipality",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			if configPath != "" {
				return os.Setenv(config.FileEnv, configPath)
			}
			return nil
		},
	}
	root.PersistentFlags().StringVar(&configPath, "config", "", "path to a YAML config file (overrides "+config.FileEnv+")")

	root.AddCommand(newServeCmd(), newImportCmd(), newWarmCmd())
	return root
}

// bootstrap loads config and initialises logging.
func bootstrap(ctx context.Context) (*config.Config, logger.Logger, error) {
	cfg, err := config.Load(ctx)
	if err != nil {
		return nil, nil, err
	}
	if err := logger.Init(logger.WithFormat(cfg.LogFormat)); err != nil {
		return nil, nil, fmt.Errorf("init logging: %w", err)
	}
	log := logger.Get()
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		log.Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}
	return cfg, log, nil
}

// backends bundles what the serve and warm commands share.
type backends struct {
	store *repository.Store
	kv    cache.Cache
	svc   *service.Service
}

func (b *backends) Close() {
	b.svc.Stop()
	_ = b.kv.Close()
	_ = b.store.Close()
}

// openBackends opens the fact database and cache and starts the service.
func openBackends(ctx context.Context, cfg *config.Config, log logger.Logger) (*backends, error) {
	store, err := repository.Open(ctx, cfg.Database.Driver, cfg.Database.DSN)
	if err != nil {
		return nil, err
	}
	kv, err := cache.New(cfg.Cache.Backend, cfg.Cache.DSN, cfg.Cache.MaxEntries, cfg.Cache.TTL)
	if err != nil {
		_ = store.Close()
		return nil, err
	}
	svc := service.New(store, kv,
		service.WithPageSize(cfg.Ranking.PageSize),
		service.WithCacheTTL(cfg.Cache.TTL),
		service.WithCoalescing(cfg.Ranking.CoalesceMisses),
		service.WithWarmWorkers(cfg.Warm.Workers),
		service.WithLogger(log.Named("service")),
	)
	if err := svc.Start(ctx); err != nil {
		_ = kv.Close()
		_ = store.Close()
		return nil, err
	}
	return &backends{store: store, kv: kv, svc: svc}, nil
}
