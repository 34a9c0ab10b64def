package extract

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/require"
)

func mustParse(t *testing.T, raw string) *url.URL {
	t.Helper()
	u, err := url.Parse(raw)
	require.NoError(t, err)
	return u
}

func TestResolve(t *testing.T) {
	t.Parallel()

	base := mustParse(t, "http://h/a/b/c.html")
	testCases := []struct {
		rel  string
		want string
	}{
		{"../d.html", "http://h/a/d.html"},
		{"x.html", "http://h/a/b/x.html"},
		{"/z.html", "http://h/z.html"},
		{"./x.html", "http://h/a/b/x.html"},
		{"../../e.html", "http://h/e.html"},
		{"../../../../f.html", "http://h/f.html"},
		{"..", "http://h/a/"},
		{"sub/page.html?q=1", "http://h/a/b/sub/page.html?q=1"},
	}
	for _, tc := range testCases {
		t.Run(tc.rel, func(t *testing.T) {
			t.Parallel()
			got, err := Resolve(base, tc.rel)
			require.NoError(t, err)
			require.Equal(t, tc.want, got)
		})
	}
}

func TestResolveKeepsEscapedBasePath(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		base string
		rel  string
		want string
	}{
		{"http://h/a%20b/c.html", "x.html", "http://h/a%20b/x.html"},
		{"http://h/a%2Fb/c.html", "x.html", "http://h/a%2Fb/x.html"},
		{"http://h/a%2Fb/c.html", "../d.html", "http://h/d.html"},
		{"http://h/a%20b/c%20d/e.html", "../f.html", "http://h/a%20b/f.html"},
	}
	for _, tc := range testCases {
		t.Run(tc.base+" "+tc.rel, func(t *testing.T) {
			t.Parallel()
			base := mustParse(t, tc.base)
			got, err := Resolve(base, tc.rel)
			require.NoError(t, err)
			require.Equal(t, tc.want, got)

			// The relative and absolute spellings must reach the frontier as one URL.
			abs, ok := ResolveLink(base, tc.want, true)
			require.True(t, ok)
			require.Equal(t, abs, got)
		})
	}
}

func TestResolveKeepsPort(t *testing.T) {
	t.Parallel()

	got, err := Resolve(mustParse(t, "http://h:8080/docs/"), "guide.html")
	require.NoError(t, err)
	require.Equal(t, "http://h:8080/docs/guide.html", got)

	got, err = Resolve(mustParse(t, "http://h"), "index.html")
	require.NoError(t, err)
	require.Equal(t, "http://h/index.html", got)
}

func TestResolveLinkOriginScoping(t *testing.T) {
	t.Parallel()

	base := mustParse(t, "http://h:80/p")
	_, ok := ResolveLink(base, "http://h:8080/q", true)
	require.False(t, ok, "port mismatch must be rejected")

	got, ok := ResolveLink(base, "http://h:80/q", true)
	require.True(t, ok)
	require.Equal(t, "http://h:80/q", got)

	_, ok = ResolveLink(base, "http://other:80/q", true)
	require.False(t, ok, "host mismatch must be rejected")
}

func TestResolveLinkHTTPSRequiresTLSSupport(t *testing.T) {
	t.Parallel()

	base := mustParse(t, "http://h/p")
	got, ok := ResolveLink(base, "https://h/q", true)
	require.True(t, ok)
	require.Equal(t, "https://h/q", got)

	_, ok = ResolveLink(base, "https://h/q", false)
	require.False(t, ok)
}

func TestResolveLinkHTTPSWithExplicitPort(t *testing.T) {
	t.Parallel()

	// Ports compare as written: ":80" on the base does not match the
	// omitted port of https://h/q, even with TLS support on.
	base := mustParse(t, "http://h:80/p")
	_, ok := ResolveLink(base, "https://h/q", true)
	require.False(t, ok)
	_, ok = ResolveLink(base, "https://h/q", false)
	require.False(t, ok)

	got, ok := ResolveLink(base, "https://h:80/q", true)
	require.True(t, ok)
	require.Equal(t, "https://h:80/q", got)

	_, ok = ResolveLink(base, "https://h:80/q", false)
	require.False(t, ok)
}

func TestResolveLinkDiscardsAndChops(t *testing.T) {
	t.Parallel()

	base := mustParse(t, "http://h/a/b.html")
	for _, raw := range []string{
		"mailto:someone@h",
		"MAILTO:someone@h",
		"#top",
		"javascript:void(0)",
		"ftp://h/file",
		"tel:+1555",
		"",
		"   ",
	} {
		_, ok := ResolveLink(base, raw, true)
		require.False(t, ok, raw)
	}

	got, ok := ResolveLink(base, "c.html#section", true)
	require.True(t, ok)
	require.Equal(t, "http://h/a/c.html", got)

	got, ok = ResolveLink(base, "http://h/x#y", true)
	require.True(t, ok)
	require.Equal(t, "http://h/x", got)

	got, ok = ResolveLink(base, "//h/proto-relative", true)
	require.True(t, ok)
	require.Equal(t, "http://h/proto-relative", got)

	_, ok = ResolveLink(base, "http://h/%zz", true)
	require.False(t, ok, "malformed URL must be dropped")
}
