package crawler

import (
	"errors"
	"net/url"
	"time"
)

// ErrSkip reports that a fetched URL produced nothing indexable: a non-200
// status, an unaccepted content type, or a transport failure. A skipped URL
// contributes no documents and no outbound links.
var ErrSkip = errors.New("url skipped")

// FetchResult is what a Fetcher returns for a single GET.
type FetchResult struct {
	URL         string
	StatusCode  int
	ContentType string
	Body        []byte
}

// PageSummary is a fetched page while a worker extracts it.
// Title and Description are filled in by the extractor.
type PageSummary struct {
	URL         *url.URL
	Body        string
	Title       string
	Description string
}

// Document is a single entry handed to an IndexSink. URL may carry a
// "#name" suffix when the document is a fragment of a larger page.
type Document struct {
	URL         string
	Title       string
	Description string
	// Body is the raw page text (or the slice of it covered by a fragment).
	Body string
	// Text is the visible text of Body, whitespace-collapsed.
	Text string
}

// Summary reports the outcome of one crawl run.
type Summary struct {
	RunID       string        `json:"run_id"`
	URLsIndexed int           `json:"urls_indexed"`
	Documents   int64         `json:"documents"`
	Bytes       int64         `json:"bytes"`
	Skipped     int64         `json:"skipped"`
	Elapsed     time.Duration `json:"elapsed"`
}

// Progress is a live view of a crawl run.
type Progress struct {
	RunID     string        `json:"run_id"`
	Running   bool          `json:"running"`
	Seen      int           `json:"seen"`
	Pending   int           `json:"pending"`
	Active    int           `json:"active"`
	Pages     int64         `json:"pages"`
	Documents int64         `json:"documents"`
	Bytes     int64         `json:"bytes"`
	Skipped   int64         `json:"skipped"`
	Elapsed   time.Duration `json:"elapsed"`
}
