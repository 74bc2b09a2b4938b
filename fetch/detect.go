package fetch

import (
	"bytes"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

var shellMarkers = [][]byte{
	[]byte(`<div id="root"></div>`),
	[]byte(`<div id="app"></div>`),
	[]byte(`<div id="__next"></div>`),
	[]byte(`<noscript>you need to enable javascript`),
	[]byte(`<noscript>enable javascript`),
}

// IsSufficient reports whether a plain HTTP response already holds the
// readable page: enough visible text, a sane text-to-markup ratio, and no
// client-rendered app shell.
func IsSufficient(page []byte) bool {
	if len(page) < 256 {
		return false
	}
	text, markup := textMarkupRatio(page)
	total := text + markup
	if total == 0 || text < 200 {
		return false
	}
	if float64(text)/float64(total) < 0.10 {
		return false
	}
	lower := bytes.ToLower(page)
	for _, m := range shellMarkers {
		if bytes.Contains(lower, m) {
			return false
		}
	}
	return true
}

// textMarkupRatio counts non-space bytes of visible text against every
// other byte of the document. Script and style bodies count as markup.
func textMarkupRatio(page []byte) (text, markup int) {
	z := html.NewTokenizer(bytes.NewReader(page))
	raw := 0
	for {
		tt := z.Next()
		if tt == html.ErrorToken {
			return text, markup
		}
		b := z.Raw()
		switch tt {
		case html.StartTagToken:
			name, _ := z.TagName()
			if a := atom.Lookup(name); a == atom.Script || a == atom.Style {
				raw++
			}
			markup += len(b)
		case html.EndTagToken:
			name, _ := z.TagName()
			if a := atom.Lookup(name); (a == atom.Script || a == atom.Style) && raw > 0 {
				raw--
			}
			markup += len(b)
		case html.TextToken:
			if raw > 0 {
				markup += len(b)
				continue
			}
			for _, c := range b {
				if c != ' ' && c != '\t' && c != '\n' && c != '\r' {
					text++
				}
			}
		default:
			markup += len(b)
		}
	}
}
