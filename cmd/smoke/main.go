// Command smoke walks the ranking endpoints of a running partystats server
// and reports pages whose ordering or totals disagree.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"strings"
	"syscall"
	"time"

	"github.com/okian/partystats/internal/smoke"
	"github.com/okian/partystats/pkg/logger"
)

// Default configuration constants.
const (
	defaultTimeout     = 30 * time.Second
	defaultRunLimit    = 10 * time.Minute
	defaultElections   = "shugiin-2024"
	defaultParties     = "ldp"
	defaultScopes      = "national"
	defaultUnits       = "region,prefecture,municipality"
	defaultWorkerScale = 2 // multiplier for runtime.NumCPU()
)

func main() {
	var (
		baseURL   = flag.String("url", "http://localhost:9080", "Base URL of the service")
		elections = flag.String("elections", defaultElections, "Comma-separated election codes")
		parties   = flag.String("parties", defaultParties, "Comma-separated party codes")
		scopes    = flag.String("scopes", defaultScopes, `Comma-separated scope paths, e.g. "national,regions/3,prefectures/130001"`)
		units     = flag.String("units", defaultUnits, "Comma-separated units for the national scope")
		workers   = flag.Int("workers", runtime.NumCPU()*defaultWorkerScale, "Number of targets checked concurrently")
		timeout   = flag.Duration("timeout", defaultTimeout, "HTTP request timeout")
		verbose   = flag.Bool("verbose", false, "Log every target")
	)
	flag.Parse()

	if err := logger.Init(); err != nil {
		fmt.Fprintln(os.Stderr, "failed to initialize logging:", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, defaultRunLimit)
	defer cancel()

	report, err := smoke.Run(ctx, &smoke.Config{
		BaseURL:   *baseURL,
		Elections: splitList(*elections),
		Parties:   splitList(*parties),
		Scopes:    splitList(*scopes),
		Units:     splitList(*units),
		Workers:   *workers,
		Timeout:   *timeout,
		Verbose:   *verbose,
	})
	if err != nil {
		fmt.Fprintln(os.Stderr, "smoke check failed:", err)
		os.Exit(1)
	}
	for _, f := range report.Failures {
		fmt.Fprintf(os.Stderr, "FAIL %s: %v\n", f.Target.Path(), f.Err)
	}
	if len(report.Failures) > 0 {
		os.Exit(1)
	}
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
