// Package memory stores indexed documents in-memory for tests and dry runs.
package memory

import (
	"context"
	"errors"
	"sync"

	"github.com/JakeFAU/spindle/internal/crawler"
)

// ErrClosed is returned when a document arrives after Close.
var ErrClosed = errors.New("memory sink closed")

// Sink keeps every document it receives, in arrival order.
type Sink struct {
	mu     sync.Mutex
	docs   []crawler.Document
	closed bool
	closes int
}

// NewSink creates an empty in-memory sink.
func NewSink() *Sink {
	return &Sink{}
}

// AddDocument records doc.
func (s *Sink) AddDocument(_ context.Context, doc crawler.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	s.docs = append(s.docs, doc)
	return nil
}

// Close marks the sink closed.
func (s *Sink) Close(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.closes++
	return nil
}

// Documents returns a copy of the stored documents.
func (s *Sink) Documents() []crawler.Document {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]crawler.Document(nil), s.docs...)
}

// URLs returns the URL of every stored document.
func (s *Sink) URLs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.docs))
	for i, d := range s.docs {
		out[i] = d.URL
	}
	return out
}

// Closes reports how many times Close was called.
func (s *Sink) Closes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closes
}
