package main

import (
	"fmt"
	"os"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/okian/partystats/internal/adapters/repository"
	"github.com/okian/partystats/pkg/logger"
)

func newImportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import <dataset.yaml>",
		Short: "Load a YAML dataset into the fact database",
		Long: `Import validates a dataset (election types, units and the municipality
lineage) and writes it to the configured database in one transaction.
Rows that already exist are left untouched.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, log, err := bootstrap(ctx)
			if err != nil {
				return err
			}

			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()
			info, err := f.Stat()
			if err != nil {
				return err
			}

			ds, err := repository.DecodeDataset(f)
			if err != nil {
				return err
			}
			if err := ds.Validate(); err != nil {
				return err
			}

			store, err := repository.Open(ctx, cfg.Database.Driver, cfg.Database.DSN)
			if err != nil {
				return err
			}
			defer store.Close()

			start := time.Now()
			sum, err := store.Import(ctx, &ds)
			if err != nil {
				return err
			}
			log.Info(ctx, "dataset imported",
				logger.String("file", args[0]),
				logger.Int("facts", sum.Facts),
				logger.Duration("took", time.Since(start)),
			)
			fmt.Fprintf(cmd.OutOrStdout(),
				"imported %s (%s): %s elections, %s parties, %s municipalities, %s lineage edges, %s facts in %s\n",
				args[0], humanize.Bytes(uint64(info.Size())),
				humanize.Comma(int64(sum.Elections)),
				humanize.Comma(int64(sum.Parties)),
				humanize.Comma(int64(sum.Municipalities)),
				humanize.Comma(int64(sum.LineageEdges)),
				humanize.Comma(int64(sum.Facts)),
				time.Since(start).Round(time.Millisecond),
			)
			return nil
		},
	}
}
