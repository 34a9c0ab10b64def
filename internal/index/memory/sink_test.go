package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/spindle/internal/crawler"
)

func TestSinkStoresAndCloses(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := NewSink()
	require.NoError(t, s.AddDocument(ctx, crawler.Document{URL: "http://h/a"}))
	require.NoError(t, s.AddDocument(ctx, crawler.Document{URL: "http://h/a#x"}))
	require.Equal(t, []string{"http://h/a", "http://h/a#x"}, s.URLs())
	require.Len(t, s.Documents(), 2)

	require.NoError(t, s.Close(ctx))
	require.Equal(t, 1, s.Closes())
	require.ErrorIs(t, s.AddDocument(ctx, crawler.Document{URL: "http://h/b"}), ErrClosed)
}
