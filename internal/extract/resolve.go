package extract

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/JakeFAU/spindle/internal/frontier"
)

// discardPrefixes mark links that never name a fetchable page.
var discardPrefixes = []string{"mailto:", "javascript:", "tel:", "data:", "#"}

// ResolveLink applies the link policy to a raw href/src value found on the
// page at base. It returns the absolute, anchor-free URL to follow, or false
// when the link must be dropped: wrong scheme, different host or port,
// discarded prefix, or a URL that does not parse.
func ResolveLink(base *url.URL, raw string, allowHTTPS bool) (string, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" || base == nil {
		return "", false
	}
	lower := strings.ToLower(raw)
	for _, p := range discardPrefixes {
		if strings.HasPrefix(lower, p) {
			return "", false
		}
	}
	if strings.HasPrefix(raw, "//") {
		raw = base.Scheme + ":" + raw
		lower = strings.ToLower(raw)
	}

	var resolved string
	switch {
	case strings.HasPrefix(lower, "http://") || (allowHTTPS && strings.HasPrefix(lower, "https://")):
		u, err := url.Parse(raw)
		if err != nil || !SameOrigin(base, u) {
			return "", false
		}
		resolved = raw
	case strings.Contains(raw, "://"):
		return "", false
	default:
		abs, err := Resolve(base, raw)
		if err != nil {
			return "", false
		}
		resolved = abs
	}

	resolved = frontier.ChopAnchor(resolved)
	if resolved == "" {
		return "", false
	}
	return resolved, true
}

// SameOrigin reports whether u has the same host and the same port as
// written as base. The scheme is not compared, and an omitted port only
// matches another omitted port.
func SameOrigin(base, u *url.URL) bool {
	return strings.EqualFold(base.Hostname(), u.Hostname()) && base.Port() == u.Port()
}

// Resolve turns a relative reference into an absolute URL on base's origin.
//
// A "/"-rooted reference replaces the whole path. Otherwise the reference is
// appended to base's directory after each leading "../" (or a bare "..")
// has removed one directory segment; leading "./" segments are dropped.
// base's path is used in its escaped form so the result spells the
// directory exactly as an absolute link to it would.
func Resolve(base *url.URL, rel string) (string, error) {
	var b strings.Builder
	b.WriteString(base.Scheme)
	b.WriteString("://")
	b.WriteString(base.Host)

	if strings.HasPrefix(rel, "/") {
		b.WriteString(rel)
	} else {
		dir := base.EscapedPath()
		if i := strings.LastIndexByte(dir, '/'); i >= 0 {
			dir = dir[:i]
		} else {
			dir = ""
		}
		for {
			switch {
			case strings.HasPrefix(rel, "./"):
				rel = rel[2:]
			case strings.HasPrefix(rel, "../"):
				rel = rel[3:]
				dir = parentDir(dir)
			case rel == "..":
				rel = ""
				dir = parentDir(dir)
			default:
				b.WriteString(dir)
				b.WriteByte('/')
				b.WriteString(rel)
				return validate(b.String())
			}
		}
	}
	return validate(b.String())
}

func parentDir(dir string) string {
	if i := strings.LastIndexByte(dir, '/'); i >= 0 {
		return dir[:i]
	}
	return ""
}

func validate(abs string) (string, error) {
	u, err := url.Parse(abs)
	if err != nil {
		return "", fmt.Errorf("resolve %q: %w", abs, err)
	}
	if u.Host == "" {
		return "", fmt.Errorf("resolve %q: missing host", abs)
	}
	return abs, nil
}
