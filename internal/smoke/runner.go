package smoke

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"golang.org/x/sync/errgroup"

	"github.com/okian/partystats/pkg/logger"
)

// Targets expands the configured elections, parties and scopes. The
// national scope is checked once per unit.
func (c *Config) Targets() []Target {
	var out []Target
	for _, e := range c.Elections {
		for _, p := range c.Parties {
			for _, s := range c.Scopes {
				if s == "national" && len(c.Units) > 0 {
					for _, u := range c.Units {
						out = append(out, Target{Election: e, Party: p, Scope: s, Unit: u})
					}
					continue
				}
				out = append(out, Target{Election: e, Party: p, Scope: s})
			}
		}
	}
	return out
}

// Run checks service health and then walks every target in both orders.
// Inconsistencies are reported per target, not as an error.
func Run(ctx context.Context, cfg *Config) (Report, error) {
	log := logger.Get().Named("smoke")
	start := time.Now()

	targets := cfg.Targets()
	if len(targets) == 0 {
		return Report{}, ErrNoTargets
	}

	c := newClient(cfg.BaseURL, cfg.Timeout)
	if err := c.health(ctx); err != nil {
		return Report{}, err
	}
	log.Info(ctx, "service is healthy", logger.String("baseURL", cfg.BaseURL), logger.Int("targets", len(targets)))

	var (
		mu     sync.Mutex
		report = Report{Targets: len(targets)}
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(cfg.Workers, 1))
	for _, t := range targets {
		g.Go(func() error {
			pages, items, err := checkTarget(gctx, c, t)
			mu.Lock()
			defer mu.Unlock()
			report.Pages += pages
			report.Items += items
			if err != nil {
				report.Failures = append(report.Failures, Failure{Target: t, Err: err})
				log.Warn(gctx, "target failed", logger.String("path", t.Path()), logger.Error(err))
			} else if cfg.Verbose {
				log.Info(gctx, "target ok", logger.String("path", t.Path()), logger.Int("items", items))
			}
			return nil
		})
	}
	_ = g.Wait()
	if err := ctx.Err(); err != nil {
		return report, err
	}

	report.Duration = time.Since(start)
	log.Info(ctx, "smoke check finished",
		logger.Int("targets", report.Targets),
		logger.Int("failed", len(report.Failures)),
		logger.String("pages", humanize.Comma(int64(report.Pages))),
		logger.String("items", humanize.Comma(int64(report.Items))),
		logger.Duration("took", report.Duration),
	)
	return report, nil
}

func checkTarget(ctx context.Context, c *client, t Target) (pages, items int, err error) {
	descMeta, desc, err := c.walk(ctx, t, sortDesc)
	if err != nil {
		return 0, 0, err
	}
	ascMeta, asc, err := c.walk(ctx, t, sortAsc)
	if err != nil {
		return len(descMeta), len(desc), err
	}
	pages = len(descMeta) + len(ascMeta)
	items = len(desc) + len(asc)
	if err := verify(descMeta, desc, ascMeta, asc); err != nil {
		return pages, items, fmt.Errorf("%s: %w", t.Path(), err)
	}
	return pages, items, nil
}
