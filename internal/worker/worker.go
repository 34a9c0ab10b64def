// Package worker implements the per-worker crawl loop: dequeue a URL, fetch
// it, index its documents and queue its outbound links.
package worker

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/JakeFAU/spindle/internal/crawler"
	"github.com/JakeFAU/spindle/internal/extract"
	"github.com/JakeFAU/spindle/internal/metrics"
)

// Counters are the run totals shared by every worker.
type Counters struct {
	pages     atomic.Int64
	documents atomic.Int64
	bytes     atomic.Int64
	skipped   atomic.Int64
}

// CounterSnapshot is a point-in-time copy of Counters.
type CounterSnapshot struct {
	Pages     int64
	Documents int64
	Bytes     int64
	Skipped   int64
}

// Snapshot returns the current totals.
func (c *Counters) Snapshot() CounterSnapshot {
	return CounterSnapshot{
		Pages:     c.pages.Load(),
		Documents: c.documents.Load(),
		Bytes:     c.bytes.Load(),
		Skipped:   c.skipped.Load(),
	}
}

// Worker drains a shared frontier until it reports no more work.
type Worker struct {
	cfg        crawler.Config
	frontier   crawler.Frontier
	fetcher    crawler.Fetcher
	sink       crawler.IndexSink
	extractor  *extract.Extractor
	fragmenter *extract.Fragmenter
	counters   *Counters
	logger     *zap.Logger
}

// New constructs a Worker. counters may be shared between workers; a nil
// counters gets a private set.
func New(
	cfg crawler.Config,
	frontier crawler.Frontier,
	fetcher crawler.Fetcher,
	sink crawler.IndexSink,
	counters *Counters,
	logger *zap.Logger,
) *Worker {
	if logger == nil {
		logger = zap.NewNop()
	}
	if counters == nil {
		counters = &Counters{}
	}
	metrics.Init()
	extractor := extract.New(extract.Options{
		DescriptionSize: cfg.DescriptionSize,
		DescriptionTags: cfg.DescriptionTags,
		AllowHTTPS:      cfg.AllowHTTPS,
	})
	return &Worker{
		cfg:        cfg,
		frontier:   frontier,
		fetcher:    fetcher,
		sink:       sink,
		extractor:  extractor,
		fragmenter: extract.NewFragmenter(extractor, cfg.FragmentByAnchor, logger),
		counters:   counters,
		logger:     logger,
	}
}

// Run blocks until the frontier is done or ctx is canceled. A panic while
// processing a URL ends this worker only; it leaves the frontier so the
// remaining workers can still reach quiescence.
func (w *Worker) Run(ctx context.Context) {
	metrics.IncActiveWorkers()
	defer metrics.DecActiveWorkers()
	defer func() {
		if r := recover(); r != nil {
			w.logger.Error("worker panicked", zap.Any("panic", r), zap.Stack("stack"))
			w.frontier.Leave()
		}
	}()

	for {
		if ctx.Err() != nil {
			w.frontier.Leave()
			return
		}
		rawURL, ok := w.frontier.Dequeue()
		if !ok {
			w.logger.Debug("no more work")
			return
		}
		if err := w.Process(ctx, rawURL); err != nil {
			if errors.Is(err, crawler.ErrSkip) {
				w.counters.skipped.Add(1)
				w.logger.Debug("skipped URL", zap.String("url", rawURL), zap.Error(err))
				continue
			}
			w.logger.Warn("process URL failed", zap.String("url", rawURL), zap.Error(err))
		}
	}
}

// Process fetches rawURL, indexes its documents and queues the outbound
// links that pass the include/exclude filter. Pages that yield nothing
// indexable return an error wrapping crawler.ErrSkip.
func (w *Worker) Process(ctx context.Context, rawURL string) error {
	w.logger.Debug("adding URL", zap.String("url", rawURL))

	base, err := url.Parse(rawURL)
	if err != nil {
		metrics.ObserveFetch(rawURL, metrics.OutcomeError)
		return fmt.Errorf("%w: parse %s: %w", crawler.ErrSkip, rawURL, err)
	}
	res, err := w.fetcher.Fetch(ctx, rawURL)
	if err != nil {
		metrics.ObserveFetch(rawURL, metrics.OutcomeError)
		return fmt.Errorf("%w: fetch %s: %w", crawler.ErrSkip, rawURL, err)
	}
	if res.StatusCode != http.StatusOK {
		metrics.ObserveFetch(rawURL, metrics.OutcomeStatus)
		return fmt.Errorf("%w: unexpected status code %d for %s", crawler.ErrSkip, res.StatusCode, rawURL)
	}
	if !w.cfg.AcceptsContentType(res.ContentType) {
		metrics.ObserveFetch(rawURL, metrics.OutcomeContentType)
		return fmt.Errorf("%w: content type %q not accepted for %s", crawler.ErrSkip, res.ContentType, rawURL)
	}

	body := string(res.Body)
	extracted, err := w.extractor.Extract(base, body, w.frontier.Seen)
	if err != nil {
		metrics.ObserveFetch(rawURL, metrics.OutcomeError)
		return fmt.Errorf("%w: extract %s: %w", crawler.ErrSkip, rawURL, err)
	}
	page := crawler.PageSummary{
		URL:         base,
		Body:        body,
		Title:       extracted.Title,
		Description: extracted.Description,
	}
	docs, err := w.fragmenter.Split(page, extracted.Text)
	if err != nil {
		metrics.ObserveFetch(rawURL, metrics.OutcomeError)
		return fmt.Errorf("%w: fragment %s: %w", crawler.ErrSkip, rawURL, err)
	}

	metrics.ObserveFetch(rawURL, metrics.OutcomeIndexed)
	w.counters.pages.Add(1)
	for _, doc := range docs {
		if err := w.sink.AddDocument(ctx, doc); err != nil {
			metrics.ObserveSinkError()
			w.logger.Warn("index document failed", zap.String("url", doc.URL), zap.Error(err))
			continue
		}
		w.counters.documents.Add(1)
		w.counters.bytes.Add(int64(len(doc.Body)))
		metrics.ObserveDocument(doc.URL, len(doc.Body))
	}

	queued := 0
	for _, link := range extracted.Links {
		if !Allowed(link, w.cfg.Include, w.cfg.Exclude) {
			continue
		}
		if w.frontier.Enqueue(link) {
			queued++
		}
	}
	w.logger.Debug("indexed URL",
		zap.String("url", rawURL),
		zap.Int("documents", len(docs)),
		zap.Int("links_queued", queued),
	)
	return nil
}
