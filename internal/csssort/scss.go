// Package csssort reorders declarations inside Sass rules into the SMACSS
// category order: positioning, box model, typography, visual, misc.
//
// Only contiguous runs of plain declarations are reordered. Variables,
// custom properties, at-rules and nested rules stay where they are and split
// the surrounding declarations into separate runs. Comments above a
// declaration or after it on the same line travel with it.
package csssort

import (
	"errors"
	"fmt"
	"regexp"
	"slices"
	"strings"
)

// ErrUnbalanced is returned for input with unmatched braces.
var ErrUnbalanced = errors.New("unbalanced braces")

type segment struct {
	lead  string
	text  string
	trail string
	prop  string
}

func (s segment) isDecl() bool {
	return s.prop != ""
}

var declPattern = regexp.MustCompile(`^(-?[A-Za-z][A-Za-z0-9-]*)\s*:([^:]|$)`)

func propertyOf(text string) string {
	m := declPattern.FindStringSubmatch(text)
	if m == nil {
		return ""
	}
	return m[1]
}

type scanner struct {
	src string
	pos int
}

func (s *scanner) eof() bool {
	return s.pos >= len(s.src)
}

func (s *scanner) at(prefix string) bool {
	return strings.HasPrefix(s.src[s.pos:], prefix)
}

// SortSCSS sorts the declarations of every rule in src, which uses the
// brace syntax. The output differs from the input only in declaration
// order and in a terminating semicolon added to a moved last declaration.
func SortSCSS(src string) (string, error) {
	s := &scanner{src: src}
	out, err := s.body()
	if err != nil {
		return "", err
	}
	if !s.eof() {
		return "", fmt.Errorf("%w: unexpected '}' at offset %d", ErrUnbalanced, s.pos)
	}
	return out, nil
}

// body reads statements until EOF or an unmatched '}', which it leaves
// unconsumed, and returns them rendered in sorted order.
func (s *scanner) body() (string, error) {
	var segs []segment
	var tail string

	for {
		lead := s.trivia()
		if s.eof() || s.src[s.pos] == '}' {
			tail = lead
			break
		}

		text, block, err := s.statement()
		if err != nil {
			return "", err
		}
		seg := segment{lead: lead, text: text, trail: s.sameLineTrail()}
		if !block {
			seg.prop = propertyOf(text)
		}
		segs = append(segs, seg)
	}

	sortRuns(segs)

	var b strings.Builder
	openComment := false
	for _, seg := range segs {
		// A same-line comment that moved ahead of a statement on its line
		// must not swallow that statement.
		if openComment && !strings.Contains(seg.lead, "\n") {
			b.WriteString("\n")
		}
		b.WriteString(seg.lead)
		b.WriteString(seg.text)
		b.WriteString(seg.trail)
		openComment = isLineComment(seg.trail)
	}
	if openComment && !s.eof() && !strings.Contains(tail, "\n") {
		b.WriteString("\n")
	}
	b.WriteString(tail)
	return b.String(), nil
}

func isLineComment(trail string) bool {
	return strings.HasPrefix(strings.TrimLeft(trail, " \t"), "//")
}

func sortRuns(segs []segment) {
	for start := 0; start < len(segs); {
		if !segs[start].isDecl() {
			start++
			continue
		}
		end := start
		for end < len(segs) && segs[end].isDecl() {
			end++
		}
		sortRun(segs[start:end])
		start = end
	}
}

func sortRun(run []segment) {
	if len(run) < 2 {
		return
	}
	sorted := slices.Clone(run)
	slices.SortStableFunc(sorted, func(a, b segment) int {
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

	changed := false
	for i := range run {
		if run[i].text != sorted[i].text {
			changed = true
			break
		}
	}
	if !changed {
		return
	}

	for i := range sorted {
		if !strings.HasSuffix(strings.TrimRight(sorted[i].text, " \t\r\n"), ";") {
			sorted[i].text = strings.TrimRight(sorted[i].text, " \t") + ";"
		}
	}
	copy(run, sorted)
}

// trivia consumes whitespace and comments.
func (s *scanner) trivia() string {
	start := s.pos
	for !s.eof() {
		switch {
		case isSpace(s.src[s.pos]):
			s.pos++
		case s.at("/*"):
			s.skipBlockComment()
		case s.at("//"):
			s.skipLineComment()
		default:
			return s.src[start:s.pos]
		}
	}
	return s.src[start:s.pos]
}

// sameLineTrail consumes blanks and one comment that share the line with
// the statement just read.
func (s *scanner) sameLineTrail() string {
	start := s.pos
	for !s.eof() && (s.src[s.pos] == ' ' || s.src[s.pos] == '\t') {
		s.pos++
	}
	switch {
	case s.at("//"):
		s.skipLineComment()
	case s.at("/*"):
		end := strings.Index(s.src[s.pos+2:], "*/")
		if end < 0 || strings.Contains(s.src[s.pos:s.pos+2+end], "\n") {
			s.pos = start
			return ""
		}
		s.skipBlockComment()
	}
	return s.src[start:s.pos]
}

// statement reads one statement. A statement ends after ';', before an
// unmatched '}' or line comment, or after the '}' closing its own block.
func (s *scanner) statement() (string, bool, error) {
	start := s.pos
	depth := 0

	for !s.eof() {
		c := s.src[s.pos]
		switch {
		case c == '"' || c == '\'':
			s.skipString(c)
		case s.at("/*"):
			s.skipBlockComment()
		case s.at("//") && depth == 0:
			text := strings.TrimRight(s.src[start:s.pos], " \t")
			s.pos = start + len(text)
			return text, false, nil
		case s.at("#{"):
			if err := s.skipInterpolation(); err != nil {
				return "", false, err
			}
		case c == '(' || c == '[':
			depth++
			s.pos++
		case c == ')' || c == ']':
			if depth > 0 {
				depth--
			}
			s.pos++
		case c == ';' && depth == 0:
			s.pos++
			return s.src[start:s.pos], false, nil
		case c == '{' && depth == 0:
			header := s.src[start:s.pos]
			s.pos++
			inner, err := s.body()
			if err != nil {
				return "", false, err
			}
			if s.eof() {
				return "", false, fmt.Errorf("%w: block %q is never closed", ErrUnbalanced, strings.TrimSpace(header))
			}
			s.pos++
			return header + "{" + inner + "}", true, nil
		case c == '}' && depth == 0:
			text := strings.TrimRight(s.src[start:s.pos], " \t\r\n")
			s.pos = start + len(text)
			return text, false, nil
		default:
			s.pos++
		}
	}

	text := strings.TrimRight(s.src[start:], " \t\r\n")
	s.pos = start + len(text)
	return text, false, nil
}

func (s *scanner) skipString(quote byte) {
	s.pos++
	for !s.eof() {
		switch s.src[s.pos] {
		case '\\':
			s.pos += 2
			continue
		case quote, '\n':
			s.pos++
			return
		}
		s.pos++
	}
	s.pos = min(s.pos, len(s.src))
}

func (s *scanner) skipBlockComment() {
	end := strings.Index(s.src[s.pos+2:], "*/")
	if end < 0 {
		s.pos = len(s.src)
		return
	}
	s.pos += 2 + end + 2
}

func (s *scanner) skipLineComment() {
	end := strings.IndexByte(s.src[s.pos:], '\n')
	if end < 0 {
		s.pos = len(s.src)
		return
	}
	s.pos += end
}

func (s *scanner) skipInterpolation() error {
	start := s.pos
	s.pos += 2
	depth := 1
	for !s.eof() {
		switch c := s.src[s.pos]; {
		case c == '"' || c == '\'':
			s.skipString(c)
			continue
		case c == '{':
			depth++
		case c == '}':
			depth--
			if depth == 0 {
				s.pos++
				return nil
			}
		}
		s.pos++
	}
	return fmt.Errorf("%w: interpolation at offset %d is never closed", ErrUnbalanced, start)
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r' || c == '\f'
}
