package render

import "strings"

// ReadabilityPrefix marks AI suggestions that quote a passage of the page.
const ReadabilityPrefix = "AI Suggestion for readability:"

// Suggestion is an AI suggestion split for display. Quoted is false for
// plain suggestions, in which case only Lead is set.
type Suggestion struct {
	Lead   string
	Quote  string
	Trail  string
	Quoted bool
}

// ParseSuggestion splits a readability suggestion on the double-quote
// character into lead, quoted excerpt and trail. Text past a second closing
// quote is dropped.
func ParseSuggestion(text string) Suggestion {
	if !strings.HasPrefix(text, ReadabilityPrefix) {
		return Suggestion{Lead: text}
	}
	parts := strings.Split(text, `"`)
	s := Suggestion{Lead: parts[0], Quoted: true}
	if len(parts) > 1 {
		s.Quote = parts[1]
	}
	if len(parts) > 2 {
		s.Trail = parts[2]
	}
	return s
}
