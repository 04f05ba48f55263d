package main

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/tidwall/sjson"
	"golang.org/x/term"

	"github.com/dshills/ksense/internal/app"
)

var (
	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("12"))

	kindStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241"))

	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("15"))

	detailStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241"))

	providerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("14"))

	warningStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("11"))
)

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// renderTable lays the results out in aligned, coloured columns.
func renderTable(c *app.Completion) string {
	if len(c.Results) == 0 {
		return warningStyle.Render(fmt.Sprintf("no completions for %q", c.Word)) + "\n"
	}

	header := []string{"KIND", "LABEL", "DETAIL", "PROVIDER"}
	widths := make([]int, len(header))
	for i, h := range header {
		widths[i] = lipgloss.Width(h)
	}
	for _, r := range c.Results {
		for i, cell := range []string{r.Kind, r.Label, r.Detail, r.Provider} {
			widths[i] = max(widths[i], lipgloss.Width(cell))
		}
	}

	var b strings.Builder
	row := func(cells []string, styles []lipgloss.Style) {
		parts := make([]string, len(cells))
		for i, cell := range cells {
			parts[i] = styles[i].Width(widths[i]).Render(cell)
		}
		b.WriteString(strings.TrimRight(strings.Join(parts, "  "), " "))
		b.WriteString("\n")
	}

	row(header, []lipgloss.Style{headerStyle, headerStyle, headerStyle, headerStyle})
	styles := []lipgloss.Style{kindStyle, labelStyle, detailStyle, providerStyle}
	for _, r := range c.Results {
		row([]string{r.Kind, r.Label, r.Detail, r.Provider}, styles)
	}
	return b.String()
}

// renderPlain prints one tab-separated result per line: label, kind,
// provider and detail.
func renderPlain(c *app.Completion) string {
	var b strings.Builder
	for _, r := range c.Results {
		fmt.Fprintf(&b, "%s\t%s\t%s\t%s\n", r.Label, r.Kind, r.Provider, r.Detail)
	}
	return b.String()
}

func renderJSON(c *app.Completion) (string, error) {
	doc := `{}`
	var err error
	set := func(path string, v any) {
		if err == nil {
			doc, err = sjson.Set(doc, path, v)
		}
	}

	set("word", c.Word)
	set("begin", c.Begin)
	set("end", c.End)
	set("timed_out", c.TimedOut)
	set("results", []any{})
	for i, r := range c.Results {
		prefix := fmt.Sprintf("results.%d.", i)
		set(prefix+"label", r.Label)
		set(prefix+"kind", r.Kind)
		set(prefix+"provider", r.Provider)
		if r.Detail != "" {
			set(prefix+"detail", r.Detail)
		}
	}
	for i, name := range failureNames(c) {
		prefix := fmt.Sprintf("failures.%d.", i)
		set(prefix+"provider", name)
		set(prefix+"error", c.Failures[name].Error())
	}
	return doc, err
}

// reportProblems notes provider failures and a timeout on w.
func reportProblems(w io.Writer, c *app.Completion) {
	for _, name := range failureNames(c) {
		fmt.Fprintf(w, "%s: %v\n", name, c.Failures[name])
	}
	if c.TimedOut {
		fmt.Fprintln(w, "some providers did not answer in time; results are partial")
	}
}

func failureNames(c *app.Completion) []string {
	names := make([]string, 0, len(c.Failures))
	for name := range c.Failures {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
