package cssproc

import (
	"fmt"

	"github.com/tdewolff/minify/v2"
	mincss "github.com/tdewolff/minify/v2/css"
)

const cssMediaType = "text/css"

// Processor prefixes and minifies compiled stylesheets.
type Processor struct {
	minifier *minify.M
	prefix   bool
}

// New returns a Processor. With prefix false only minification runs.
func New(prefix bool) *Processor {
	m := minify.New()
	m.AddFunc(cssMediaType, mincss.Minify)

	return &Processor{minifier: m, prefix: prefix}
}

// Process runs the prefixer (when enabled) and then the minifier.
func (p *Processor) Process(src []byte) ([]byte, error) {
	out := src
	if p.prefix {
		prefixed, err := Prefix(out)
		if err != nil {
			return nil, err
		}
		out = prefixed
	}

	minified, err := p.minifier.Bytes(cssMediaType, out)
	if err != nil {
		return nil, &ParseError{Err: fmt.Errorf("minify: %w", err)}
	}
	return minified, nil
}
