// Package crawler defines the data model, configuration and collaborator
// interfaces shared by the spindle crawl engine: the frontier, the extractor,
// the workers, the dispatcher, the fetcher adapters and the index sinks.
package crawler
