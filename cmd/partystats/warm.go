package main

import (
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/okian/partystats/internal/adapters/cache"
	"github.com/okian/partystats/internal/warmup"
	"github.com/okian/partystats/pkg/logger"
)

func newWarmCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "warm",
		Short: "Precompute every ranking key list into the cache",
		Long: `Warm computes the ordered key list of every election, party and unit
and stores it in the configured cache. Only useful with a persistent
cache backend or before serving from the same process.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			cfg, log, err := bootstrap(ctx)
			if err != nil {
				return err
			}
			b, err := openBackends(ctx, cfg, log)
			if err != nil {
				return err
			}
			defer b.Close()

			if p, ok := b.kv.(cache.Purger); ok {
				n, err := p.Purge(ctx)
				if err != nil {
					return err
				}
				log.Info(ctx, "purged expired cache entries", logger.Int("purged", int(n)))
				fmt.Fprintf(cmd.OutOrStdout(), "purged %s expired entries\n", humanize.Comma(n))
			}

			sum, err := b.svc.Warm(ctx)
			if err != nil {
				return err
			}
			log.Info(ctx, "warm-up finished", summaryFields(sum)...)
			fmt.Fprintf(cmd.OutOrStdout(), "warmed %s key lists (%s keys, %s failed) in %s\n",
				humanize.Comma(int64(sum.Jobs-sum.Failed)),
				humanize.Comma(int64(sum.Keys)),
				humanize.Comma(int64(sum.Failed)),
				sum.Duration.Round(time.Millisecond),
			)
			if sum.Failed > 0 {
				return fmt.Errorf("%d of %d warm-up jobs failed: %w", sum.Failed, sum.Jobs, sum.Errors[0])
			}
			return nil
		},
	}
}

func summaryFields(sum warmup.Summary) []logger.Field {
	return []logger.Field{
		logger.Int("jobs", sum.Jobs),
		logger.Int("failed", sum.Failed),
		logger.Int("keys", sum.Keys),
		logger.Duration("took", sum.Duration),
	}
}
