package main

import (
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/fleveque/sauce-service/internal/config"
	"github.com/fleveque/sauce-service/internal/model"
	"github.com/fleveque/sauce-service/internal/source"
)

// printer renders reports for a terminal. Styling is dropped automatically
// when w is not a TTY.
type printer struct {
	w     io.Writer
	limit int

	title lipgloss.Style
	score lipgloss.Style
	fail  lipgloss.Style
	dim   lipgloss.Style
}

func newPrinter(w io.Writer, limit int) *printer {
	r := lipgloss.NewRenderer(w)
	return &printer{
		w:     w,
		limit: limit,
		title: r.NewStyle().Bold(true),
		score: r.NewStyle().Foreground(lipgloss.Color("42")).Width(8),
		fail:  r.NewStyle().Foreground(lipgloss.Color("196")),
		dim:   r.NewStyle().Faint(true),
	}
}

func (p *printer) report(rep *model.SearchReport) {
	fmt.Fprintf(p.w, "%s %s\n\n", p.title.Render("Results for"), rep.URL)

	for _, res := range rep.Results {
		fmt.Fprintf(p.w, "%s %s\n", p.title.Render(res.Source), p.dim.Render(fmt.Sprintf("(%dms)", res.DurationMs)))

		switch {
		case !res.OK():
			fmt.Fprintf(p.w, "  %s %s\n", p.fail.Render("error ["+res.ErrorKind+"]"), res.Error)
		case len(res.Output.Items) == 0:
			fmt.Fprintf(p.w, "  %s\n", p.dim.Render("no matches"))
		default:
			items := res.Output.Items
			if p.limit > 0 && len(items) > p.limit {
				items = items[:p.limit]
			}
			scored := source.ReportsSimilarity(res.Source)
			for _, item := range items {
				fmt.Fprintf(p.w, "  %s %s\n", p.score.Render(formatSimilarity(item.Similarity, scored)), item.Link)
			}
			if hidden := len(res.Output.Items) - len(items); hidden > 0 {
				fmt.Fprintf(p.w, "  %s\n", p.dim.Render(fmt.Sprintf("... %d more", hidden)))
			}
		}
		fmt.Fprintln(p.w)
	}
}

func (p *printer) sources(names []string, cfg config.SourcesConfig) {
	enabled := make([]string, 0, len(cfg.Enabled))
	for _, n := range cfg.Enabled {
		enabled = append(enabled, strings.ToLower(strings.TrimSpace(n)))
	}

	for _, name := range names {
		status := p.dim.Render("disabled")
		if slices.Contains(enabled, name) {
			status = "enabled"
		}
		if missingKey(name, cfg) {
			status += " " + p.fail.Render("(no api key)")
		}
		fmt.Fprintf(p.w, "%-12s %s\n", name, status)
	}
}

func missingKey(name string, cfg config.SourcesConfig) bool {
	switch name {
	case "saucenao":
		return strings.TrimSpace(cfg.SauceNao.APIKey) == ""
	case "fuzzysearch":
		return strings.TrimSpace(cfg.FuzzySearch.APIKey) == ""
	default:
		return false
	}
}

// formatSimilarity renders a score. scored is false for sources that never
// report one, whose items all carry the placeholder.
func formatSimilarity(s float64, scored bool) string {
	switch {
	case !scored:
		return "?"
	case s == model.SimilarityUnparsed:
		return "n/a"
	default:
		return fmt.Sprintf("%.1f%%", s)
	}
}
