// Package dispatcher owns one crawl run: it seeds the frontier, fans the
// work out to a fixed pool of workers, waits for quiescence and finalizes
// the index.
package dispatcher

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/JakeFAU/spindle/internal/crawler"
	"github.com/JakeFAU/spindle/internal/frontier"
	"github.com/JakeFAU/spindle/internal/metrics"
	"github.com/JakeFAU/spindle/internal/worker"
)

const defaultProgressInterval = 5 * time.Second

// SinkOpener opens the index sink for a run.
type SinkOpener func(ctx context.Context) (crawler.IndexSink, error)

// Sink returns a SinkOpener that always yields s.
func Sink(s crawler.IndexSink) SinkOpener {
	return func(context.Context) (crawler.IndexSink, error) {
		return s, nil
	}
}

// Coordinator runs crawls.
type Coordinator struct {
	cfg              crawler.Config
	fetcher          crawler.Fetcher
	openSink         SinkOpener
	clock            crawler.Clock
	ids              crawler.IDGenerator
	logger           *zap.Logger
	progressInterval time.Duration

	state atomic.Pointer[runState]
}

type runState struct {
	runID    string
	start    time.Time
	frontier *frontier.Frontier
	counters *worker.Counters
	finished atomic.Bool
}

// New creates a Coordinator.
func New(
	cfg crawler.Config,
	fetcher crawler.Fetcher,
	openSink SinkOpener,
	clock crawler.Clock,
	ids crawler.IDGenerator,
	logger *zap.Logger,
) *Coordinator {
	if logger == nil {
		logger = zap.NewNop()
	}
	metrics.Init()
	return &Coordinator{
		cfg:              cfg,
		fetcher:          fetcher,
		openSink:         openSink,
		clock:            clock,
		ids:              ids,
		logger:           logger,
		progressInterval: defaultProgressInterval,
	}
}

// Run crawls from the configured seeds until no worker can find more work,
// or until ctx is canceled. The sink is closed exactly once, after every
// worker has returned, and the summary is returned even for an interrupted
// run. Configuration errors abort before any worker starts.
func (c *Coordinator) Run(ctx context.Context) (crawler.Summary, error) {
	if err := c.cfg.Validate(); err != nil {
		return crawler.Summary{}, fmt.Errorf("invalid crawl config: %w", err)
	}
	runID, err := c.ids.NewID()
	if err != nil {
		return crawler.Summary{}, err
	}
	logger := c.logger.With(zap.String("run_id", runID))

	sink, err := c.openSink(ctx)
	if err != nil {
		return crawler.Summary{}, fmt.Errorf("open index: %w", err)
	}

	start := c.clock.Now()
	f := frontier.New(c.cfg.Threads)
	for _, seed := range c.cfg.Seeds {
		f.Enqueue(seed)
	}
	logger.Info("Starting crawl",
		zap.Strings("seeds", c.cfg.Seeds),
		zap.Int("threads", c.cfg.Threads),
		zap.String("index", c.cfg.IndexDestination),
	)

	counters := &worker.Counters{}
	st := &runState{runID: runID, start: start, frontier: f, counters: counters}
	c.state.Store(st)

	var g errgroup.Group
	for i := 0; i < c.cfg.Threads; i++ {
		w := worker.New(c.cfg, f, c.fetcher, sink, counters, logger.Named("worker").With(zap.Int("index", i)))
		g.Go(func() error {
			w.Run(ctx)
			return nil
		})
	}

	stop := make(chan struct{})
	watched := make(chan struct{})
	go func() {
		defer close(watched)
		c.watch(ctx, f, counters, stop, logger)
	}()
	_ = g.Wait()
	close(stop)
	<-watched

	// The sink must be finalized even when the run was interrupted.
	closeErr := sink.Close(context.WithoutCancel(ctx))
	st.finished.Store(true)

	stats := f.Stats()
	metrics.SetFrontier(stats.Seen, stats.Pending)
	snap := counters.Snapshot()
	summary := crawler.Summary{
		RunID:       runID,
		URLsIndexed: stats.Seen,
		Documents:   snap.Documents,
		Bytes:       snap.Bytes,
		Skipped:     snap.Skipped,
		Elapsed:     c.clock.Now().Sub(start),
	}
	if ctx.Err() != nil {
		logger.Warn("Crawl interrupted", zap.Int("pending", stats.Pending), zap.Error(ctx.Err()))
	}
	logger.Info("Crawl finished",
		zap.Int("urls", summary.URLsIndexed),
		zap.Int64("pages", snap.Pages),
		zap.Int64("documents", summary.Documents),
		zap.Int64("bytes", summary.Bytes),
		zap.Int64("skipped", summary.Skipped),
		zap.Duration("elapsed", summary.Elapsed),
	)
	if closeErr != nil {
		return summary, fmt.Errorf("close index: %w", closeErr)
	}
	return summary, nil
}

// Progress reports on the current or most recent run. It is the zero value
// before the first run starts.
func (c *Coordinator) Progress() crawler.Progress {
	st := c.state.Load()
	if st == nil {
		return crawler.Progress{}
	}
	stats := st.frontier.Stats()
	snap := st.counters.Snapshot()
	return crawler.Progress{
		RunID:     st.runID,
		Running:   !st.finished.Load(),
		Seen:      stats.Seen,
		Pending:   stats.Pending,
		Active:    stats.Active,
		Pages:     snap.Pages,
		Documents: snap.Documents,
		Bytes:     snap.Bytes,
		Skipped:   snap.Skipped,
		Elapsed:   c.clock.Now().Sub(st.start),
	}
}

// watch shuts the frontier down when ctx is canceled and periodically
// publishes progress until stop is closed.
func (c *Coordinator) watch(
	ctx context.Context,
	f *frontier.Frontier,
	counters *worker.Counters,
	stop <-chan struct{},
	logger *zap.Logger,
) {
	ticker := time.NewTicker(c.progressInterval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ctx.Done():
			f.Shutdown()
			return
		case <-ticker.C:
			stats := f.Stats()
			metrics.SetFrontier(stats.Seen, stats.Pending)
			snap := counters.Snapshot()
			logger.Debug("Crawl progress",
				zap.Int("seen", stats.Seen),
				zap.Int("pending", stats.Pending),
				zap.Int("active", stats.Active),
				zap.Int64("documents", snap.Documents),
			)
		}
	}
}
