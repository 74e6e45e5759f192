package render

import (
	"fmt"
	"html/template"
	"strings"
	"time"

	"aura.app/internal/api"
)

// Section is one card of the results page.
type Section struct {
	ID    string
	Title string
	Body  template.HTML
}

// Options tune how results are rendered.
type Options struct {
	// APIBase prefixes the server-relative screenshot path.
	APIBase  string
	Location *time.Location
}

// NoIssues replaces the issue list of a clean scan.
const NoIssues = "No issues found! Great job!"

// Results builds the summary, screenshot, issues and suggestions sections
// for scan. Sections without content are left out, so the slice holds
// between two and four entries.
func Results(scan api.Scan, projectURL string, opts Options) []Section {
	sections := []Section{summary(scan, projectURL, opts)}
	if s, ok := screenshot(scan, opts); ok {
		sections = append(sections, s)
	}
	sections = append(sections, issues(scan))
	if s, ok := suggestions(scan); ok {
		sections = append(sections, s)
	}
	return sections
}

// HTML concatenates sections as <section class="card"> elements.
func HTML(sections []Section) template.HTML {
	var b strings.Builder
	for _, s := range sections {
		fmt.Fprintf(&b, `<section class="card" id="%s">`, EscapeHTML(s.ID))
		b.WriteString(string(s.Body))
		b.WriteString("</section>\n")
	}
	return template.HTML(b.String())
}

func summary(scan api.Scan, projectURL string, opts Options) Section {
	var b strings.Builder
	b.WriteString("<h2>Summary</h2>")
	fmt.Fprintf(&b, `<p><strong>Accessibility Score:</strong> <span class="score">%d</span> / 100</p>`, scan.AccessibilityScore)
	u := EscapeHTML(projectURL)
	if safeLink(projectURL) {
		fmt.Fprintf(&b, `<p><strong>URL Scanned:</strong> <a href="%s" target="_blank" rel="noopener noreferrer">%s</a></p>`, u, u)
	} else {
		fmt.Fprintf(&b, `<p><strong>URL Scanned:</strong> %s</p>`, u)
	}
	fmt.Fprintf(&b, `<p><strong>Date:</strong> %s</p>`, EscapeHTML(FormatTime(scan.CreatedAt.Time, opts.Location)))
	return Section{ID: "summary-card", Title: "Summary", Body: template.HTML(b.String())}
}

func screenshot(scan api.Scan, opts Options) (Section, bool) {
	src := ScreenshotURL(opts.APIBase, scan.ScreenshotURL)
	if src == "" {
		return Section{}, false
	}
	body := `<h2>Screenshot</h2>` +
		`<img class="screenshot" src="` + EscapeHTML(src) + `" alt="Page Screenshot" ` +
		`onerror="this.parentElement.style.display='none';">`
	return Section{ID: "screenshot-card", Title: "Screenshot", Body: template.HTML(body)}, true
}

func issues(scan api.Scan) Section {
	var b strings.Builder
	fmt.Fprintf(&b, "<h2>All Issues Found (%d)</h2>", len(scan.Issues))
	if len(scan.Issues) == 0 {
		fmt.Fprintf(&b, `<p class="placeholder">%s</p>`, NoIssues)
		return Section{ID: "issues-card", Title: "Issues", Body: template.HTML(b.String())}
	}
	b.WriteString(`<ul id="issues-list">`)
	for _, is := range scan.Issues {
		b.WriteString(`<li><div class="issue-info">`)
		fmt.Fprintf(&b, "<strong>%s</strong>", EscapeHTML(is.Guideline))
		fmt.Fprintf(&b, "<span>%s</span>", EscapeHTML(is.Description))
		fmt.Fprintf(&b, `<code class="snippet">%s</code>`, EscapeHTML(is.Element))
		b.WriteString("</div></li>")
	}
	b.WriteString("</ul>")
	return Section{ID: "issues-card", Title: "Issues", Body: template.HTML(b.String())}
}

func suggestions(scan api.Scan) (Section, bool) {
	var b strings.Builder
	if len(scan.AISuggestions) > 0 {
		b.WriteString("<h3>AI-Powered Suggestions</h3><ul>")
		for _, text := range scan.AISuggestions {
			b.WriteString(suggestionItem(ParseSuggestion(text)))
		}
		b.WriteString("</ul>")
	}
	if len(scan.GenericSuggestions) > 0 {
		b.WriteString("<h3>General Fixes</h3><ul>")
		for _, text := range scan.GenericSuggestions {
			fmt.Fprintf(&b, "<li>%s</li>", EscapeHTML(text))
		}
		b.WriteString("</ul>")
	}
	if b.Len() == 0 {
		return Section{}, false
	}
	body := "<h2>Suggestions</h2>" + b.String()
	return Section{ID: "suggestions-card", Title: "Suggestions", Body: template.HTML(body)}, true
}

func suggestionItem(s Suggestion) string {
	if !s.Quoted {
		return "<li>" + EscapeHTML(s.Lead) + "</li>"
	}
	return "<li>" +
		"<span>" + EscapeHTML(s.Lead) + "</span>" +
		`<blockquote class="text-preview">&quot;` + EscapeHTML(s.Quote) + `&quot;</blockquote>` +
		"<span>" + EscapeHTML(s.Trail) + "</span>" +
		"</li>"
}

// ScreenshotURL resolves a server-relative screenshot path against the API
// root. It is empty when the scan has no screenshot.
func ScreenshotURL(apiBase, path string) string {
	path = strings.TrimLeft(strings.TrimSpace(path), "/")
	if path == "" {
		return ""
	}
	return strings.TrimRight(apiBase, "/") + "/" + path
}

// safeLink keeps javascript: and similar schemes out of href attributes.
func safeLink(u string) bool {
	lower := strings.ToLower(strings.TrimSpace(u))
	return strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://")
}

// ErrorBlock is the inline failure shown instead of results.
func ErrorBlock(message, backHref string) template.HTML {
	return template.HTML(`<div class="error-block"><h2>Error</h2><p>` + EscapeHTML(message) +
		`</p><a href="` + EscapeHTML(backHref) + `">Go back</a></div>`)
}
