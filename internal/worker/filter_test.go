package worker

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAllowed(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name    string
		url     string
		include []string
		exclude []string
		want    bool
	}{
		{"no filters", "http://h/x", nil, nil, true},
		{"include matched", "http://h/docs/public/x", []string{"/docs/"}, []string{"/docs/internal/"}, true},
		{"exclude wins", "http://h/docs/internal/x", []string{"/docs/"}, []string{"/docs/internal/"}, false},
		{"include missing", "http://h/blog/x", []string{"/docs/"}, nil, false},
		{"every include required", "http://h/docs/x", []string{"/docs/", ".html"}, nil, false},
		{"any exclude drops", "http://h/a.pdf", nil, []string{".zip", ".pdf"}, false},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			require.Equal(t, tc.want, Allowed(tc.url, tc.include, tc.exclude))
		})
	}
}
