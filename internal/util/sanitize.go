package util

import (
	"strings"

	"golang.org/x/net/html"
)

// StripHTML removes markup from admin-supplied rich text, keeping only the
// text content. Book descriptions arrive from an editor that may embed tags;
// the portal stores and serves plain text.
func StripHTML(input string) string {
	if !strings.ContainsAny(input, "<>") {
		return strings.TrimSpace(input)
	}
	var b strings.Builder
	tokenizer := html.NewTokenizer(strings.NewReader(input))
	for {
		switch tokenizer.Next() {
		case html.ErrorToken:
			return strings.TrimSpace(b.String())
		case html.TextToken:
			b.Write(tokenizer.Text())
		case html.StartTagToken, html.EndTagToken, html.SelfClosingTagToken:
			// Block-level breaks become spaces so words do not run together.
			name, _ := tokenizer.TagName()
			switch string(name) {
			case "br", "p", "div", "li":
				b.WriteByte(' ')
			}
		}
	}
}
