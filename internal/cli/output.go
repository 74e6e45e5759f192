package cli

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/fatih/color"

	"aura.app/internal/render"
	"aura.app/internal/views"
)

var (
	colorGreen  = color.New(color.FgGreen).SprintFunc()
	colorRed    = color.New(color.FgRed).SprintFunc()
	colorYellow = color.New(color.FgYellow).SprintFunc()
	colorCyan   = color.New(color.FgCyan).SprintFunc()
	colorBold   = color.New(color.Bold).SprintFunc()
	colorFaint  = color.New(color.Faint).SprintFunc()
)

func scoreColor(score int) func(...any) string {
	switch {
	case score >= 80:
		return colorGreen
	case score >= 50:
		return colorYellow
	default:
		return colorRed
	}
}

func newTable(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
}

func printProjects(w io.Writer, v *views.DashboardView) {
	if v.Placeholder != "" {
		fmt.Fprintln(w, colorFaint(v.Placeholder))
		return
	}
	tw := newTable(w)
	fmt.Fprintln(tw, colorBold("ID")+"\t"+colorBold("NAME")+"\t"+colorBold("URL"))
	for _, p := range v.Projects {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", p.ID, p.ProjectName, p.URL)
	}
	_ = tw.Flush()
}

func printHistory(w io.Writer, v *views.HistoryView) {
	fmt.Fprintln(w, colorBold(v.Header))
	if p := v.Placeholder(); p != "" {
		fmt.Fprintln(w, colorFaint(p))
		return
	}
	tw := newTable(w)
	fmt.Fprintln(tw, colorBold("SCAN ID")+"\t"+colorBold("SCORE")+"\t"+colorBold("DATE"))
	for _, row := range v.Rows {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", row.ScanID, scoreColor(row.Score)(fmt.Sprintf("%d / 100", row.Score)), row.When)
	}
	_ = tw.Flush()
}

// printResults writes the same sections as the web results page as text.
func printResults(w io.Writer, v *views.ResultsView, apiBase string, loc *time.Location) {
	scan := v.Scan
	fmt.Fprintln(w, colorBold("Summary"))
	fmt.Fprintf(w, "  Accessibility Score: %s\n", scoreColor(scan.AccessibilityScore)(fmt.Sprintf("%d / 100", scan.AccessibilityScore)))
	fmt.Fprintf(w, "  URL Scanned: %s\n", v.Project.URL)
	fmt.Fprintf(w, "  Scanned At: %s\n", render.FormatTime(scan.CreatedAt.Time, loc))

	if src := render.ScreenshotURL(apiBase, scan.ScreenshotURL); src != "" {
		fmt.Fprintln(w)
		fmt.Fprintln(w, colorBold("Screenshot"))
		fmt.Fprintf(w, "  %s\n", src)
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, colorBold(fmt.Sprintf("All Issues Found (%d)", len(scan.Issues))))
	if len(scan.Issues) == 0 {
		fmt.Fprintf(w, "  %s\n", colorGreen(render.NoIssues))
	}
	for _, is := range scan.Issues {
		fmt.Fprintf(w, "  - [%s] %s\n", colorCyan(is.Guideline), is.Description)
		if is.Element != "" {
			fmt.Fprintf(w, "      %s\n", colorFaint(oneLine(is.Element)))
		}
	}

	if len(scan.AISuggestions) == 0 && len(scan.GenericSuggestions) == 0 {
		return
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, colorBold("Suggestions"))
	if len(scan.AISuggestions) > 0 {
		fmt.Fprintln(w, "  AI-Powered Suggestions")
		for _, text := range scan.AISuggestions {
			s := render.ParseSuggestion(text)
			fmt.Fprintf(w, "    - %s\n", strings.TrimSpace(s.Lead))
			if s.Quoted {
				fmt.Fprintf(w, "        \"%s\"\n", s.Quote)
				if trail := strings.TrimSpace(s.Trail); trail != "" {
					fmt.Fprintf(w, "      %s\n", trail)
				}
			}
		}
	}
	if len(scan.GenericSuggestions) > 0 {
		fmt.Fprintln(w, "  General Fixes")
		for _, text := range scan.GenericSuggestions {
			fmt.Fprintf(w, "    - %s\n", text)
		}
	}
}

func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
