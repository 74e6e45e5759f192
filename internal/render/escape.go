// Package render turns scan records into HTML fragments.
//
// Everything derived from a scan (issue text, element snippets, AI output)
// is untrusted and goes through EscapeHTML before it touches markup.
package render

import "strings"

var htmlEscaper = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	`"`, "&quot;",
	"'", "&#039;",
)

// EscapeHTML escapes &, <, >, " and ' in that order. Input that already
// contains entities is escaped again.
func EscapeHTML(s string) string {
	return htmlEscaper.Replace(s)
}
