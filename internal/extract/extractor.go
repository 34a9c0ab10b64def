package extract

import (
	"net/url"
	"strings"
	"unicode/utf8"
)

// Options configures an Extractor.
type Options struct {
	// DescriptionSize caps the description length in bytes.
	DescriptionSize int
	// DescriptionTags, when non-empty, limits the description to text found
	// between the start and end of these (lower case) tags.
	DescriptionTags []string
	// AllowHTTPS permits absolute https:// links to be followed.
	AllowHTTPS bool
}

// SeenFunc reports whether a URL is already known to the frontier.
type SeenFunc func(rawURL string) bool

// Result is everything extracted from one page or page fragment.
type Result struct {
	Title       string
	Description string
	// Text is all page text joined by single spaces, uncapped.
	Text  string
	Links []string
}

// Extractor pulls titles, descriptions and links out of HTML token streams.
// It holds no mutable state and is safe for concurrent use.
type Extractor struct {
	opts     Options
	descTags map[string]struct{}
}

// New creates an Extractor.
func New(opts Options) *Extractor {
	e := &Extractor{opts: opts}
	if len(opts.DescriptionTags) > 0 {
		e.descTags = make(map[string]struct{}, len(opts.DescriptionTags))
		for _, t := range opts.DescriptionTags {
			e.descTags[strings.ToLower(t)] = struct{}{}
		}
	}
	return e
}

// Extract tokenizes body and returns its title, description, text and the
// candidate links to follow from base. Links already reported by seen are
// left out; seen may be nil.
func (e *Extractor) Extract(base *url.URL, body string, seen SeenFunc) (Result, error) {
	tokens, err := Tokenize(body)
	if err != nil {
		return Result{}, err
	}
	return e.scan(tokens, base, seen), nil
}

// Describe extracts the title, description and text of body without
// collecting links.
func (e *Extractor) Describe(body string) (Result, error) {
	return e.Extract(nil, body, nil)
}

func (e *Extractor) scan(tokens []Token, base *url.URL, seen SeenFunc) Result {
	var (
		res        Result
		desc       []string
		text       []string
		titleSet   bool
		inDescTag  bool
		watchTags  = len(e.descTags) > 0
		linksFound = make(map[string]struct{})
	)

	for i := 0; i < len(tokens); i++ {
		switch tok := tokens[i].(type) {
		case TagToken:
			if watchTags {
				if _, ok := e.descTags[tok.Name]; ok {
					inDescTag = !tok.End && !tok.SelfClosing
				}
			}
			if tok.End {
				continue
			}

			var link string
			switch tok.Name {
			case "a":
				link, _ = tok.Attr("href")
			case "frame":
				link, _ = tok.Attr("src")
			case "title":
				// The title's text is consumed here and never feeds the description.
				if i+1 < len(tokens) {
					if t, ok := tokens[i+1].(TextToken); ok {
						i++
						if !titleSet {
							res.Title = strings.TrimSpace(t.Text)
							titleSet = true
						}
					}
				}
			}
			if link == "" || base == nil {
				continue
			}
			resolved, ok := ResolveLink(base, link, e.opts.AllowHTTPS)
			if !ok {
				continue
			}
			if _, dup := linksFound[resolved]; dup {
				continue
			}
			linksFound[resolved] = struct{}{}
			if seen != nil && seen(resolved) {
				continue
			}
			res.Links = append(res.Links, resolved)

		case TextToken:
			trimmed := strings.TrimSpace(tok.Text)
			if trimmed == "" {
				continue
			}
			text = append(text, trimmed)
			if inDescTag || !watchTags {
				desc = append(desc, trimmed)
			}
		}
	}

	res.Description = Truncate(strings.Join(desc, " "), e.opts.DescriptionSize)
	res.Text = strings.Join(text, " ")
	return res
}

// Truncate cuts s to at most size bytes without splitting a UTF-8 sequence.
// No attempt is made to break at a word boundary.
func Truncate(s string, size int) string {
	if size < 0 || len(s) <= size {
		return s
	}
	cut := size
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}
