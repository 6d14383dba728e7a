// Package svgsprite bundles standalone SVG icons into one sprite where
// every icon becomes a <symbol> addressable by its file name stem.
package svgsprite

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/tdewolff/parse/v2"
	"github.com/tdewolff/parse/v2/xml"
)

// ErrNotSVG is returned for a document without an <svg> root element.
var ErrNotSVG = errors.New("no <svg> root element")

// Icon is one parsed icon ready to become a symbol.
type Icon struct {
	ID                  string
	ViewBox             string
	PreserveAspectRatio string
	Namespaces          map[string]string
	Content             []byte
	Defs                []byte
}

type attr struct {
	name  string
	value string
}

func unquote(v []byte) string {
	s := string(v)
	if len(s) >= 2 && (s[0] == '"' || s[0] == '\'') && s[len(s)-1] == s[0] {
		return s[1 : len(s)-1]
	}
	return s
}

func lengthValue(v string) (float64, bool) {
	f, err := strconv.ParseFloat(strings.TrimSuffix(strings.TrimSpace(v), "px"), 64)
	if err != nil || f <= 0 {
		return 0, false
	}
	return f, true
}

// ParseIcon reads one SVG document. The root's viewBox and
// preserveAspectRatio are kept, namespace declarations are collected for
// hoisting, top-level <defs> are split off and comments are dropped.
func ParseIcon(id string, data []byte) (*Icon, error) {
	l := xml.NewLexer(parse.NewInputBytes(bytes.Clone(data)))
	icon := &Icon{ID: id, Namespaces: make(map[string]string)}

	void, err := parseRoot(l, icon)
	if err != nil {
		return nil, fmt.Errorf("icon %s: %w", id, err)
	}
	if void {
		return icon, nil
	}
	if err := parseBody(l, icon); err != nil {
		return nil, fmt.Errorf("icon %s: %w", id, err)
	}
	return icon, nil
}

// parseRoot skips the prolog and reads the <svg> start tag. It reports
// whether the root is a void element.
func parseRoot(l *xml.Lexer, icon *Icon) (bool, error) {
	for {
		tt, _ := l.Next()
		switch tt {
		case xml.ErrorToken:
			if errors.Is(l.Err(), io.EOF) {
				return false, ErrNotSVG
			}
			return false, l.Err()
		case xml.StartTagToken:
			if string(l.Text()) != "svg" {
				return false, ErrNotSVG
			}
			return parseRootAttrs(l, icon)
		}
	}
}

func parseRootAttrs(l *xml.Lexer, icon *Icon) (bool, error) {
	var width, height string
	for {
		tt, _ := l.Next()
		switch tt {
		case xml.AttributeToken:
			name, value := string(l.Text()), unquote(l.AttrVal())
			switch {
			case name == "viewBox":
				icon.ViewBox = value
			case name == "preserveAspectRatio":
				icon.PreserveAspectRatio = value
			case name == "width":
				width = value
			case name == "height":
				height = value
			case strings.HasPrefix(name, "xmlns:"):
				icon.Namespaces[name] = value
			}
		case xml.StartTagCloseToken, xml.StartTagCloseVoidToken:
			if icon.ViewBox == "" {
				w, okW := lengthValue(width)
				h, okH := lengthValue(height)
				if okW && okH {
					icon.ViewBox = "0 0 " + strconv.FormatFloat(w, 'f', -1, 64) + " " + strconv.FormatFloat(h, 'f', -1, 64)
				}
			}
			return tt == xml.StartTagCloseVoidToken, nil
		default:
			return false, fmt.Errorf("malformed <svg> start tag: %w", l.Err())
		}
	}
}

// parseBody copies everything inside the root element. Children of
// top-level <defs> go to icon.Defs instead of icon.Content.
func parseBody(l *xml.Lexer, icon *Icon) error {
	var content, defs bytes.Buffer
	depth := 0
	defsDepth := -1
	out := &content

	for {
		tt, data := l.Next()
		switch tt {
		case xml.ErrorToken:
			if errors.Is(l.Err(), io.EOF) {
				return errors.New("unexpected end of document inside <svg>")
			}
			return l.Err()
		case xml.CommentToken, xml.StartTagPIToken, xml.StartTagClosePIToken, xml.DOCTYPEToken:
			continue
		case xml.StartTagToken:
			if depth == 0 && string(l.Text()) == "defs" {
				void, err := skipAttrs(l)
				if err != nil {
					return err
				}
				if !void {
					defsDepth = depth
					out = &defs
					depth++
				}
				continue
			}
			out.Write(data)
		case xml.AttributeToken:
			if strings.HasPrefix(string(l.Text()), "xmlns:") {
				icon.Namespaces[string(l.Text())] = unquote(l.AttrVal())
				continue
			}
			out.Write(data)
		case xml.StartTagCloseToken:
			depth++
			out.Write(data)
		case xml.StartTagCloseVoidToken:
			out.Write(data)
		case xml.EndTagToken:
			if depth == 0 {
				icon.Content = content.Bytes()
				icon.Defs = defs.Bytes()
				return nil
			}
			depth--
			if depth == defsDepth {
				defsDepth = -1
				out = &content
				continue
			}
			out.Write(data)
		case xml.TextToken:
			if len(bytes.TrimSpace(data)) == 0 && bytes.ContainsAny(data, "\r\n") {
				continue
			}
			out.Write(data)
		default:
			out.Write(data)
		}
	}
}

// skipAttrs consumes the attributes of a start tag that is dropped and
// reports whether the tag was void.
func skipAttrs(l *xml.Lexer) (bool, error) {
	for {
		tt, _ := l.Next()
		switch tt {
		case xml.AttributeToken:
			continue
		case xml.StartTagCloseToken:
			return false, nil
		case xml.StartTagCloseVoidToken:
			return true, nil
		default:
			return false, fmt.Errorf("malformed <defs> start tag: %w", l.Err())
		}
	}
}
