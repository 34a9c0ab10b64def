package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/JakeFAU/spindle/internal/api"
	"github.com/JakeFAU/spindle/internal/clock/system"
	"github.com/JakeFAU/spindle/internal/crawler"
	"github.com/JakeFAU/spindle/internal/dispatcher"
	collyfetcher "github.com/JakeFAU/spindle/internal/fetcher/colly"
	"github.com/JakeFAU/spindle/internal/id/uuid"
	"github.com/JakeFAU/spindle/internal/index"
	"github.com/JakeFAU/spindle/internal/logging"
)

// newCrawlCmd creates the 'crawl' subcommand. Every flag is bound to the
// matching viper key, so it can also come from SPINDLE_* variables or the
// config file.
func newCrawlCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "crawl",
		Short: "Crawls from the seed URLs and writes the index",
		Example: `  spindle crawl -u http://localhost/docs/ -d ./index -i /docs/ -t 4
  spindle crawl -u http://localhost/manual.html -d postgres://localhost/spindle -n`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runCrawl(cmd, v)
		},
	}

	flags := cmd.Flags()
	flags.StringSliceP("seed", "u", nil, "seed URL to start from (repeatable)")
	flags.StringP("index", "d", "", "index directory, or a postgres:// URL")
	flags.StringSliceP("include", "i", nil, "only follow URLs containing every one of these substrings")
	flags.StringSliceP("exclude", "e", nil, "never follow URLs containing any of these substrings")
	flags.StringSliceP("content-type", "m", nil, "accepted media types (default text/html,text/plain)")
	flags.IntP("threads", "t", crawler.DefaultThreads, "number of concurrent workers")
	flags.IntP("description-size", "s", crawler.DefaultDescriptionSize, "maximum description length in bytes")
	flags.StringSlice("description-tag", nil, "only text inside these tags feeds the description")
	flags.BoolP("fragment-by-anchor", "n", false, "index each named-anchor section as its own document")
	flags.Bool("https", true, "follow https:// links")
	flags.BoolP("incremental", "a", false, "add to an existing index instead of rebuilding it")
	flags.String("user-agent", crawler.DefaultUserAgent, "User-Agent header")
	flags.Duration("request-timeout", 0, "per-request timeout (0 = none)")
	flags.Int("max-body-bytes", crawler.DefaultMaxBodyBytes, "truncate response bodies to this size (0 = unlimited)")
	flags.Bool("dry-run", false, "crawl without writing an index")
	flags.String("metrics-addr", "", "serve /metrics and /v1/progress on this address")

	for key, flag := range map[string]string{
		"crawl.seeds":              "seed",
		"index.destination":        "index",
		"crawl.include":            "include",
		"crawl.exclude":            "exclude",
		"crawl.content_types":      "content-type",
		"crawl.threads":            "threads",
		"crawl.description_size":   "description-size",
		"crawl.description_tags":   "description-tag",
		"crawl.fragment_by_anchor": "fragment-by-anchor",
		"crawl.https":              "https",
		"index.incremental":        "incremental",
		"crawl.user_agent":         "user-agent",
		"crawl.request_timeout":    "request-timeout",
		"crawl.max_body_bytes":     "max-body-bytes",
		"crawl.dry_run":            "dry-run",
		"metrics.addr":             "metrics-addr",
	} {
		mustBind(v, key, flags.Lookup(flag))
	}
	return cmd
}

func runCrawl(cmd *cobra.Command, v *viper.Viper) error {
	logger, err := logging.Configure(v.GetBool("log.development"), v.GetBool("log.verbose"))
	if err != nil {
		return fmt.Errorf("configure logging: %w", err)
	}
	defer logger.Sync() //nolint:errcheck // best-effort flush

	if v.GetBool("crawl.dry_run") {
		v.Set("index.destination", index.MemoryDestination)
	}
	cfg, err := crawler.LoadConfig(v)
	if err != nil {
		return fmt.Errorf("load crawl config: %w", err)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	fetcher := collyfetcher.New(collyfetcher.Config{
		UserAgent:   cfg.UserAgent,
		Timeout:     cfg.RequestTimeout,
		MaxBodySize: cfg.MaxBodyBytes,
	})
	openSink := func(ctx context.Context) (crawler.IndexSink, error) {
		return index.Open(ctx, index.Options{
			Destination: cfg.IndexDestination,
			Incremental: cfg.Incremental,
			Table:       v.GetString("index.table"),
		}, logger)
	}
	coord := dispatcher.New(cfg, fetcher, openSink, system.New(), uuid.New(), logger)

	serverDone := make(chan error, 1)
	serverCtx, stopServer := context.WithCancel(ctx)
	if addr := v.GetString("metrics.addr"); addr != "" {
		go func() {
			serverDone <- api.NewServer(coord, logger.Named("api")).ListenAndServe(serverCtx, addr)
		}()
	} else {
		serverDone <- nil
	}

	summary, runErr := coord.Run(ctx)
	stopServer()
	if err := <-serverDone; err != nil {
		logger.Warn("Metrics server failed", zap.Error(err))
	}
	if runErr != nil && summary.RunID == "" {
		return fmt.Errorf("run crawl: %w", runErr)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Indexed %d URLs (%d KB) in %d seconds\n",
		summary.URLsIndexed, summary.Bytes/1024, int64(summary.Elapsed.Seconds()))
	if runErr != nil {
		return fmt.Errorf("run crawl: %w", runErr)
	}
	if errors.Is(ctx.Err(), context.Canceled) {
		logger.Warn("Crawl stopped before completion")
	}
	return nil
}

func mustBind(v *viper.Viper, key string, flag *pflag.Flag) {
	if err := v.BindPFlag(key, flag); err != nil {
		panic(fmt.Sprintf("bind flag %s: %v", key, err))
	}
}
