package utils

import (
	"html"
	"strings"
)

// inlineTags are the emphasis tags search APIs wrap around matched terms.
var inlineTags = strings.NewReplacer(
	"<b>", "", "</b>", "",
	"<strong>", "", "</strong>", "",
	"<em>", "", "</em>", "",
	"<i>", "", "</i>", "",
)

// StripMarkup removes the known inline emphasis tags and decodes HTML
// entities. It is not a sanitiser: other markup passes through.
func StripMarkup(s string) string {
	if s == "" {
		return ""
	}
	return strings.TrimSpace(html.UnescapeString(inlineTags.Replace(s)))
}
