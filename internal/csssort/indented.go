package csssort

import (
	"regexp"
	"slices"
	"strings"
)

var indentedDecl = regexp.MustCompile(`^(-?[A-Za-z][A-Za-z0-9-]*):\s*\S`)

type line struct {
	text   string
	indent int
	prop   string
}

func indentOf(s string) int {
	return len(s) - len(strings.TrimLeft(s, " \t"))
}

// SortIndented sorts declarations in the indented Sass syntax. A run is a
// sequence of declaration lines at the same indentation. A declaration
// followed by a deeper-indented line opens a nested property block and
// ends the run.
func SortIndented(src string) string {
	raw := strings.SplitAfter(src, "\n")
	lines := make([]line, len(raw))
	for i, r := range raw {
		body := strings.TrimRight(r, "\r\n")
		trimmed := strings.TrimLeft(body, " \t")
		l := line{text: r, indent: indentOf(body)}
		if m := indentedDecl.FindStringSubmatch(trimmed); m != nil {
			l.prop = m[1]
		}
		lines[i] = l
	}

	for i := range lines {
		if lines[i].prop == "" {
			continue
		}
		if next := nextContent(lines, i); next >= 0 && lines[next].indent > lines[i].indent {
			lines[i].prop = ""
		}
	}

	for start := 0; start < len(lines); {
		if lines[start].prop == "" {
			start++
			continue
		}
		end := start + 1
		for end < len(lines) && lines[end].prop != "" && lines[end].indent == lines[start].indent {
			end++
		}
		sortLines(lines[start:end])
		start = end
	}

	var b strings.Builder
	for _, l := range lines {
		b.WriteString(l.text)
	}
	return b.String()
}

func nextContent(lines []line, i int) int {
	for j := i + 1; j < len(lines); j++ {
		if strings.TrimSpace(lines[j].text) != "" {
			return j
		}
	}
	return -1
}

func sortLines(run []line) {
	if len(run) < 2 {
		return
	}
	// The last line of the file may lack a newline; keep it last in bytes.
	lastHasNewline := strings.HasSuffix(run[len(run)-1].text, "\n")

	slices.SortStableFunc(run, func(a, b line) int {
		ra, rb := rankOf(a.prop), rankOf(b.prop)
		switch {
		case ra.less(rb):
			return -1
		case rb.less(ra):
			return 1
		default:
			return 0
		}
	})

	if lastHasNewline {
		return
	}
	for i := range run {
		if i < len(run)-1 && !strings.HasSuffix(run[i].text, "\n") {
			run[i].text += "\n"
		}
	}
	run[len(run)-1].text = strings.TrimRight(run[len(run)-1].text, "\n")
}
