package crawler

import (
	"context"
	"time"
)

// Fetcher fetches a URL and returns the body plus metadata.
type Fetcher interface {
	Fetch(ctx context.Context, rawURL string) (FetchResult, error)
}

// IndexSink accepts documents from every worker concurrently and is closed
// exactly once after all workers have returned.
type IndexSink interface {
	AddDocument(ctx context.Context, doc Document) error
	Close(ctx context.Context) error
}

// Frontier is the shared URL queue the workers drain.
type Frontier interface {
	Enqueue(rawURL string) bool
	Dequeue() (string, bool)
	Seen(rawURL string) bool
	Leave()
}

// Clock returns the current time (useful for testing).
type Clock interface {
	Now() time.Time
}

// IDGenerator produces run IDs (UUIDs).
type IDGenerator interface {
	NewID() (string, error)
}
