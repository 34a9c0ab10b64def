package crawler

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Default values applied when the corresponding key is unset.
const (
	DefaultThreads         = 2
	DefaultDescriptionSize = 256
	DefaultMaxBodyBytes    = 10 * 1024 * 1024
	DefaultUserAgent       = "spindle/1.0 (+https://github.com/JakeFAU/spindle)"
)

// DefaultContentTypes is the accept-set used when none is configured.
var DefaultContentTypes = []string{"text/html", "text/plain"}

// Config captures every knob that influences a crawl run. It is built once at
// startup and never mutated afterwards.
type Config struct {
	Seeds            []string
	Include          []string
	Exclude          []string
	ContentTypes     []string
	Threads          int
	DescriptionSize  int
	DescriptionTags  []string
	FragmentByAnchor bool
	AllowHTTPS       bool
	UserAgent        string
	RequestTimeout   time.Duration
	MaxBodyBytes     int
	IndexDestination string
	Incremental      bool
	Verbose          bool
}

// LoadConfig constructs a Config by reading from Viper.
func LoadConfig(v *viper.Viper) (Config, error) {
	cfg := Config{
		Seeds:            cleanList(v.GetStringSlice("crawl.seeds")),
		Include:          cleanList(v.GetStringSlice("crawl.include")),
		Exclude:          cleanList(v.GetStringSlice("crawl.exclude")),
		ContentTypes:     normalizeContentTypes(v.GetStringSlice("crawl.content_types")),
		Threads:          v.GetInt("crawl.threads"),
		DescriptionSize:  v.GetInt("crawl.description_size"),
		DescriptionTags:  lowerList(v.GetStringSlice("crawl.description_tags")),
		FragmentByAnchor: v.GetBool("crawl.fragment_by_anchor"),
		AllowHTTPS:       v.GetBool("crawl.https"),
		UserAgent:        v.GetString("crawl.user_agent"),
		RequestTimeout:   v.GetDuration("crawl.request_timeout"),
		MaxBodyBytes:     v.GetInt("crawl.max_body_bytes"),
		IndexDestination: strings.TrimSpace(v.GetString("index.destination")),
		Incremental:      v.GetBool("index.incremental"),
		Verbose:          v.GetBool("log.verbose"),
	}
	if len(cfg.ContentTypes) == 0 {
		cfg.ContentTypes = append([]string(nil), DefaultContentTypes...)
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = DefaultUserAgent
	}
	return cfg, cfg.Validate()
}

// Validate checks for configuration that must abort the run before any
// worker starts.
func (c Config) Validate() error {
	if len(c.Seeds) == 0 {
		return fmt.Errorf("crawl.seeds must include at least one seed URL")
	}
	for _, seed := range c.Seeds {
		u, err := url.Parse(seed)
		if err != nil {
			return fmt.Errorf("crawl.seeds: invalid seed %q: %w", seed, err)
		}
		if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return fmt.Errorf("crawl.seeds: seed %q must be an absolute http(s) URL", seed)
		}
	}
	if c.IndexDestination == "" {
		return fmt.Errorf("index.destination must be set")
	}
	if c.Threads < 1 {
		return fmt.Errorf("crawl.threads must be >= 1, got %d", c.Threads)
	}
	if c.DescriptionSize < 0 {
		return fmt.Errorf("crawl.description_size must be >= 0")
	}
	if c.MaxBodyBytes < 0 {
		return fmt.Errorf("crawl.max_body_bytes must be >= 0")
	}
	if c.RequestTimeout < 0 {
		return fmt.Errorf("crawl.request_timeout must be >= 0")
	}
	return nil
}

// AcceptsContentType reports whether the media type of a Content-Type header
// value is in the configured accept-set. Parameters such as charset are
// ignored.
func (c Config) AcceptsContentType(contentType string) bool {
	mediaType := contentType
	if i := strings.IndexByte(mediaType, ';'); i >= 0 {
		mediaType = mediaType[:i]
	}
	mediaType = strings.ToLower(strings.TrimSpace(mediaType))
	if mediaType == "" {
		return false
	}
	for _, ct := range c.ContentTypes {
		if ct == mediaType {
			return true
		}
	}
	return false
}

func cleanList(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		s = strings.TrimSpace(s)
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}

func lowerList(in []string) []string {
	out := cleanList(in)
	for i, s := range out {
		out[i] = strings.ToLower(s)
	}
	return out
}

func normalizeContentTypes(in []string) []string {
	out := make([]string, 0, len(in))
	seen := make(map[string]struct{})
	for _, ct := range lowerList(in) {
		if _, ok := seen[ct]; ok {
			continue
		}
		seen[ct] = struct{}{}
		out = append(out, ct)
	}
	return out
}
