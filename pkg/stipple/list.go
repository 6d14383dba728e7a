package stipple

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"charm.land/lipgloss/v2"
	"github.com/charmbracelet/x/term"
	"github.com/muesli/reflow/wordwrap"

	"github.com/yaklabco/stipple/config"
	"github.com/yaklabco/stipple/internal/pipeline"
	"github.com/yaklabco/stipple/internal/task"
	"github.com/yaklabco/stipple/internal/ui"
)

const (
	termWidthFloor    = 20
	fallbackTermWidth = 80
	seriesMarker      = "[S]"
)

//nolint:gochecknoglobals // lookup table
var noColorTERMs = map[string]struct{}{
	"dumb":    {},
	"unknown": {},
	"cons25":  {},
	"emacs":   {},
}

type taskRow struct {
	name    string
	after   string
	desc    string
	aliases []string
	series  bool
}

func taskRows(p *pipeline.Pipeline) ([]taskRow, error) {
	reg := p.Registry()
	ordered, err := reg.Ordered()
	if err != nil {
		return nil, err
	}

	rows := make([]taskRow, 0, len(ordered))
	for _, t := range ordered {
		_, series := t.(task.Composite)
		after := strings.Join(reg.After(t.Name()), ", ")
		if after == "" {
			after = "-"
		}
		desc := strings.TrimSpace(t.Description())
		if desc == "" {
			desc = "-"
		}
		rows = append(rows, taskRow{
			name:    t.Name(),
			after:   after,
			desc:    desc,
			aliases: reg.Aliases(t.Name()),
			series:  series,
		})
	}
	return rows, nil
}

// renderTaskList prints every task in an order that satisfies the
// declared constraints, with a marker on tasks that only sequence others.
func renderTaskList(out io.Writer, p *pipeline.Pipeline, colorEnabled bool) error {
	rows, err := taskRows(p)
	if err != nil {
		return err
	}

	const indent = "  "

	titleStyle := lipgloss.NewStyle().Bold(colorEnabled)
	headerStyle := lipgloss.NewStyle().Bold(colorEnabled)
	nameStyle, descStyle, markerStyle := lipgloss.NewStyle(), lipgloss.NewStyle(), lipgloss.NewStyle()
	if colorEnabled {
		cs := ui.GetFangScheme()
		titleStyle = titleStyle.Foreground(cs.QuotedString)
		headerStyle = headerStyle.Foreground(cs.Base).Faint(true)
		nameStyle, descStyle, markerStyle = ui.TaskStyles()
	}

	_, _ = fmt.Fprintf(out, "%s (layout %s)\n\n", titleStyle.Render("Tasks:"), p.Layout())

	displayName := func(r taskRow) string {
		name := r.name
		if len(r.aliases) > 0 {
			name = fmt.Sprintf("%s (%s)", name, strings.Join(r.aliases, ", "))
		}
		if r.series {
			name += " " + seriesMarker
		}
		return name
	}

	maxName, maxAfter := lipgloss.Width("NAME"), lipgloss.Width("AFTER")
	for _, r := range rows {
		maxName = max(maxName, lipgloss.Width(displayName(r)))
		maxAfter = max(maxAfter, lipgloss.Width(r.after))
	}

	pad := func(text string, width int) string {
		if w := lipgloss.Width(text); w < width {
			return text + strings.Repeat(" ", width-w)
		}
		return text
	}

	const gap = 2
	spacer := strings.Repeat(" ", gap)
	header := strings.Join([]string{pad("NAME", maxName), pad("AFTER", maxAfter), "DESCRIPTION"}, spacer)
	_, _ = fmt.Fprintln(out, indent+headerStyle.Render(header))

	leftOffset := lipgloss.Width(indent) + maxName + gap + maxAfter + gap
	descWidth := max(termWidthFloor, detectTermWidth()-leftOffset)
	hanging := "\n" + strings.Repeat(" ", leftOffset)

	for _, r := range rows {
		name := nameStyle.Render(r.name)
		if len(r.aliases) > 0 {
			name += fmt.Sprintf(" (%s)", strings.Join(r.aliases, ", "))
		}
		if r.series {
			name += " " + markerStyle.Render(seriesMarker)
		}

		wrapped := strings.ReplaceAll(wordwrap.String(r.desc, descWidth), "\n", hanging)
		line := strings.Join([]string{pad(name, maxName), pad(r.after, maxAfter), descStyle.Render(wrapped)}, spacer)
		_, _ = fmt.Fprintln(out, indent+line)
	}

	_, _ = fmt.Fprintln(out)
	_, _ = fmt.Fprintln(out, seriesMarker+" = runs other tasks in sequence")
	return nil
}

// colorEnabled honours the enable_color setting, NO_COLOR and terminals
// known not to render ANSI color.
func colorEnabled(cfg *config.Config) bool {
	if !cfg.EnableColor || os.Getenv("NO_COLOR") != "" {
		return false
	}
	_, blacklisted := noColorTERMs[os.Getenv("TERM")]
	return !blacklisted
}

// detectTermWidth prefers the size of stdout, then $COLUMNS, then 80.
func detectTermWidth() int {
	if w, _, err := term.GetSize(os.Stdout.Fd()); err == nil && w > 0 {
		return w
	}
	if cols := os.Getenv("COLUMNS"); cols != "" {
		if v, err := strconv.Atoi(cols); err == nil && v > 0 {
			return v
		}
	}
	return fallbackTermWidth
}
