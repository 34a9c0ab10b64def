package extract

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/net/html"

	"github.com/JakeFAU/spindle/internal/crawler"
)

// anchorMark locates the start tag of a named anchor in a page body.
type anchorMark struct {
	offset int
	name   string
}

// Fragmenter turns an extracted page into the documents to index.
type Fragmenter struct {
	extractor *Extractor
	enabled   bool
	logger    *zap.Logger
}

// NewFragmenter creates a Fragmenter. When enabled is false every page
// becomes exactly one document.
func NewFragmenter(extractor *Extractor, enabled bool, logger *zap.Logger) *Fragmenter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Fragmenter{
		extractor: extractor,
		enabled:   enabled,
		logger:    logger,
	}
}

// Split returns the documents for page in document order. text is the
// visible text of the whole page as returned by the extractor.
//
// With fragmentation on, the body is cut at every named anchor. The first
// fragment runs from the top of the page to the first anchor and keeps the
// page URL; each later fragment starts at its anchor and is addressed as
// page#name. Fragments share the page title; descriptions are recomputed
// from each slice.
func (f *Fragmenter) Split(page crawler.PageSummary, text string) ([]crawler.Document, error) {
	pageURL := page.URL.String()
	whole := crawler.Document{
		URL:         pageURL,
		Title:       page.Title,
		Description: page.Description,
		Body:        page.Body,
		Text:        text,
	}
	if !f.enabled {
		return []crawler.Document{whole}, nil
	}
	marks, err := namedAnchors(page.Body)
	if err != nil {
		return nil, fmt.Errorf("split %s: %w", pageURL, err)
	}
	if len(marks) == 0 {
		return []crawler.Document{whole}, nil
	}

	docs := make([]crawler.Document, 0, len(marks)+1)
	pos := 0
	name := ""
	for _, m := range marks {
		doc, err := f.fragment(page, pageURL, name, page.Body[pos:m.offset])
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
		pos = m.offset
		name = m.name
	}
	doc, err := f.fragment(page, pageURL, name, page.Body[pos:])
	if err != nil {
		return nil, err
	}
	return append(docs, doc), nil
}

func (f *Fragmenter) fragment(page crawler.PageSummary, pageURL, name, body string) (crawler.Document, error) {
	u := pageURL
	if name != "" {
		u = pageURL + "#" + name
	}
	f.logger.Debug("forming document fragment", zap.String("url", u), zap.Int("bytes", len(body)))

	res, err := f.extractor.Describe(body)
	if err != nil {
		return crawler.Document{}, fmt.Errorf("describe fragment %s: %w", u, err)
	}
	return crawler.Document{
		URL:         u,
		Title:       page.Title,
		Description: res.Description,
		Body:        body,
		Text:        res.Text,
	}, nil
}

// namedAnchors returns the <a> start tags of body that carry a non-empty
// name attribute, in document order. Offsets are byte positions in body.
// Markup inside comments, script or attribute values never counts.
func namedAnchors(body string) ([]anchorMark, error) {
	z := html.NewTokenizer(strings.NewReader(body))
	var (
		marks  []anchorMark
		offset int
	)
	for {
		tt := z.Next()
		start := offset
		offset += len(z.Raw())
		switch tt {
		case html.ErrorToken:
			if err := z.Err(); !errors.Is(err, io.EOF) {
				return nil, fmt.Errorf("locate named anchors: %w", err)
			}
			return marks, nil
		case html.StartTagToken, html.SelfClosingTagToken:
			tag, hasAttr := z.TagName()
			if string(tag) != "a" || !hasAttr {
				continue
			}
			for more := true; more; {
				var key, val []byte
				key, val, more = z.TagAttr()
				if string(key) != "name" {
					continue
				}
				if name := strings.TrimSpace(string(val)); name != "" {
					marks = append(marks, anchorMark{offset: start, name: name})
				}
				break
			}
		}
	}
}
