// Package cssproc post-processes compiled stylesheets: vendor prefixing,
// minification and source map rewriting.
package cssproc

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/tdewolff/parse/v2"
	"github.com/tdewolff/parse/v2/css"
)

// ParseError reports a stylesheet the prefixer could not walk.
type ParseError struct {
	Err error
}

func (e *ParseError) Error() string {
	return "parse stylesheet: " + e.Err.Error()
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// propertyPrefixes lists the vendor-prefixed forms emitted ahead of each
// unprefixed property.
var propertyPrefixes = map[string][]string{ //nolint:gochecknoglobals // lookup table
	"appearance":           {"-webkit-", "-moz-"},
	"backdrop-filter":      {"-webkit-"},
	"box-decoration-break": {"-webkit-"},
	"clip-path":            {"-webkit-"},
	"hyphens":              {"-webkit-", "-ms-"},
	"mask":                 {"-webkit-"},
	"mask-image":           {"-webkit-"},
	"mask-position":        {"-webkit-"},
	"mask-repeat":          {"-webkit-"},
	"mask-size":            {"-webkit-"},
	"print-color-adjust":   {"-webkit-"},
	"tab-size":             {"-moz-"},
	"text-size-adjust":     {"-webkit-", "-moz-", "-ms-"},
	"user-select":          {"-webkit-", "-moz-", "-ms-"},
}

// valuePrefixes lists prefixed values emitted ahead of a property:value pair.
var valuePrefixes = map[string]map[string][]string{ //nolint:gochecknoglobals // lookup table
	"position": {"sticky": {"-webkit-sticky"}},
}

type declaration struct {
	name  string
	value string
	raw   bool
}

type block struct {
	header string
	items  []declaration
}

func (b *block) has(name, value string) bool {
	for _, d := range b.items {
		if d.raw || d.name != name {
			continue
		}
		if value == "" || d.value == value {
			return true
		}
	}
	return false
}

func (b *block) render(out *bytes.Buffer) {
	out.WriteString(b.header)
	for _, d := range b.items {
		if d.raw {
			out.WriteString(d.value)
			continue
		}
		for _, p := range propertyPrefixes[d.name] {
			if !b.has(p+d.name, "") {
				writeDecl(out, p+d.name, d.value)
			}
		}
		for _, v := range valuePrefixes[d.name][d.value] {
			if !b.has(d.name, v) {
				writeDecl(out, d.name, v)
			}
		}
		writeDecl(out, d.name, d.value)
	}
	out.WriteString("}")
}

func writeDecl(out *bytes.Buffer, name, value string) {
	out.WriteString(name)
	out.WriteByte(':')
	out.WriteString(value)
	out.WriteByte(';')
}

func joinValues(tokens []css.Token) string {
	var b bytes.Buffer
	for _, t := range tokens {
		b.Write(t.Data)
	}
	return b.String()
}

// Prefix adds vendor-prefixed declarations in front of the unprefixed
// ones that need them, unless the block already declares them. The output
// is compact CSS that still needs minification.
func Prefix(src []byte) ([]byte, error) {
	p := css.NewParser(parse.NewInputBytes(src), false)

	var out bytes.Buffer
	var stack []*block

	emit := func(s string) {
		if len(stack) == 0 {
			out.WriteString(s)
			return
		}
		top := stack[len(stack)-1]
		top.items = append(top.items, declaration{value: s, raw: true})
	}

	for {
		gt, _, data := p.Next()
		switch gt {
		case css.ErrorGrammar:
			if !p.HasParseError() && errors.Is(p.Err(), io.EOF) {
				if len(stack) != 0 {
					return nil, &ParseError{Err: fmt.Errorf("unexpected end of stylesheet inside %q", stack[len(stack)-1].header)}
				}
				return out.Bytes(), nil
			}
			return nil, &ParseError{Err: p.Err()}
		case css.CommentGrammar:
			emit(string(data))
		case css.AtRuleGrammar:
			emit(string(data) + joinValues(p.Values()) + ";")
		case css.BeginAtRuleGrammar:
			stack = append(stack, &block{header: string(data) + joinValues(p.Values()) + "{"})
		case css.BeginRulesetGrammar:
			stack = append(stack, &block{header: joinValues(p.Values()) + "{"})
		case css.EndAtRuleGrammar, css.EndRulesetGrammar:
			if len(stack) == 0 {
				return nil, &ParseError{Err: errors.New("unbalanced closing brace")}
			}
			closed := stack[len(stack)-1]
			stack = stack[:len(stack)-1]

			var rendered bytes.Buffer
			closed.render(&rendered)
			emit(rendered.String())
		case css.DeclarationGrammar:
			d := declaration{name: string(data), value: joinValues(p.Values())}
			if len(stack) == 0 {
				writeDecl(&out, d.name, d.value)
				continue
			}
			top := stack[len(stack)-1]
			top.items = append(top.items, d)
		case css.CustomPropertyGrammar:
			emit(string(data) + ":" + joinValues(p.Values()) + ";")
		case css.TokenGrammar, css.QualifiedRuleGrammar:
			emit(string(data))
		}
	}
}
