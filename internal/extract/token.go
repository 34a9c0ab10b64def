// Package extract turns a fetched page body into the pieces the crawler
// needs: a title, a bounded description, the same-origin links to follow,
// and, when anchor fragmentation is on, one document per named anchor.
//
// Pages are read as a flat stream of tag and text tokens produced by
// golang.org/x/net/html's tokenizer rather than as a parsed DOM, so broken
// markup degrades gracefully and anchors can be located by position.
package extract

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/net/html"
)

// Token is either a TagToken or a TextToken.
type Token interface {
	isToken()
}

// TagToken is a start, end or self-closing tag. Name and attribute keys are
// lower case.
type TagToken struct {
	Name        string
	Attrs       map[string]string
	End         bool
	SelfClosing bool
}

// TextToken is a run of character data with entities decoded.
type TextToken struct {
	Text string
}

func (TagToken) isToken()  {}
func (TextToken) isToken() {}

// Attr returns the value of the named attribute.
func (t TagToken) Attr(name string) (string, bool) {
	v, ok := t.Attrs[name]
	return v, ok
}

// rawTextElements hold script or style source, which is never page text.
var rawTextElements = map[string]struct{}{
	"script": {},
	"style":  {},
}

// Tokenize splits body into tag and text tokens. Comments and doctypes are
// dropped, as is the content of script and style elements.
func Tokenize(body string) ([]Token, error) {
	z := html.NewTokenizer(strings.NewReader(body))
	var (
		tokens []Token
		skip   string
	)
	for {
		tt := z.Next()
		switch tt {
		case html.ErrorToken:
			if err := z.Err(); !errors.Is(err, io.EOF) {
				return tokens, fmt.Errorf("tokenize html: %w", err)
			}
			return tokens, nil
		case html.TextToken:
			if skip != "" {
				continue
			}
			tokens = append(tokens, TextToken{Text: string(z.Text())})
		case html.StartTagToken, html.EndTagToken, html.SelfClosingTagToken:
			tok := z.Token()
			tag := TagToken{
				Name:        tok.Data,
				End:         tt == html.EndTagToken,
				SelfClosing: tt == html.SelfClosingTagToken,
			}
			if len(tok.Attr) > 0 {
				tag.Attrs = make(map[string]string, len(tok.Attr))
				for _, a := range tok.Attr {
					if _, dup := tag.Attrs[a.Key]; !dup {
						tag.Attrs[a.Key] = a.Val
					}
				}
			}
			if _, raw := rawTextElements[tag.Name]; raw {
				switch {
				case tt == html.StartTagToken:
					skip = tag.Name
				case tag.End && skip == tag.Name:
					skip = ""
				}
			}
			tokens = append(tokens, tag)
		}
	}
}
