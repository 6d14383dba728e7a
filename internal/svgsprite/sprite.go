package svgsprite

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sort"
	"strings"

	"github.com/tdewolff/minify/v2"
	minsvg "github.com/tdewolff/minify/v2/svg"
)

// ErrDuplicateID is returned when two icons map to the same symbol id.
var ErrDuplicateID = errors.New("duplicate symbol id")

const (
	svgNamespace = "http://www.w3.org/2000/svg"
	svgMediaType = "image/svg+xml"
)

// Builder collects icons in insertion order.
type Builder struct {
	icons []*Icon
	ids   map[string]string
}

// NewBuilder returns an empty Builder.
func NewBuilder() *Builder {
	return &Builder{ids: make(map[string]string)}
}

// Add parses data as the icon id. origin names the source in errors.
func (b *Builder) Add(id, origin string, data []byte) error {
	if prev, dup := b.ids[id]; dup {
		return fmt.Errorf("%w: %q from %s and %s", ErrDuplicateID, id, prev, origin)
	}
	icon, err := ParseIcon(id, data)
	if err != nil {
		return err
	}
	b.ids[id] = origin
	b.icons = append(b.icons, icon)
	return nil
}

// Len returns the number of icons added.
func (b *Builder) Len() int {
	return len(b.icons)
}

func escapeAttr(v string) string {
	r := strings.NewReplacer(`&`, "&amp;", `"`, "&quot;", `<`, "&lt;")
	return r.Replace(v)
}

// Bytes renders the sprite: namespace declarations hoisted onto the root,
// all defs merged into one leading <defs>, then one <symbol> per icon.
func (b *Builder) Bytes() []byte {
	namespaces := make(map[string]string)
	var defs bytes.Buffer
	for _, icon := range b.icons {
		for k, v := range icon.Namespaces {
			if _, seen := namespaces[k]; !seen {
				namespaces[k] = v
			}
		}
		defs.Write(icon.Defs)
	}

	var out bytes.Buffer
	out.WriteString(`<svg xmlns="` + svgNamespace + `"`)
	keys := make([]string, 0, len(namespaces))
	for k := range namespaces {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		out.WriteString(" " + k + `="` + escapeAttr(namespaces[k]) + `"`)
	}
	out.WriteString(">")

	if defs.Len() > 0 {
		out.WriteString("<defs>")
		out.Write(defs.Bytes())
		out.WriteString("</defs>")
	}

	for _, icon := range b.icons {
		out.WriteString(`<symbol id="` + escapeAttr(icon.ID) + `"`)
		if icon.ViewBox != "" {
			out.WriteString(` viewBox="` + escapeAttr(icon.ViewBox) + `"`)
		}
		if icon.PreserveAspectRatio != "" {
			out.WriteString(` preserveAspectRatio="` + escapeAttr(icon.PreserveAspectRatio) + `"`)
		}
		out.WriteString(">")
		out.Write(icon.Content)
		out.WriteString("</symbol>")
	}

	out.WriteString("</svg>\n")
	return out.Bytes()
}

// IDFromPath returns the symbol id for an icon file: its base name
// without the extension.
func IDFromPath(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// BuildFiles reads the icon files in name order and renders the sprite.
func BuildFiles(paths []string) ([]byte, int, error) {
	sorted := slices.Clone(paths)
	slices.SortFunc(sorted, func(a, b string) int {
		return strings.Compare(filepath.Base(a), filepath.Base(b))
	})

	b := NewBuilder()
	for _, p := range sorted {
		data, err := os.ReadFile(p)
		if err != nil {
			return nil, 0, fmt.Errorf("read icon: %w", err)
		}
		if err := b.Add(IDFromPath(p), p, data); err != nil {
			return nil, 0, err
		}
	}
	return b.Bytes(), b.Len(), nil
}

// Minify shrinks a rendered sprite with the tdewolff SVG minifier.
func Minify(sprite []byte) ([]byte, error) {
	m := minify.New()
	m.AddFunc(svgMediaType, minsvg.Minify)

	out, err := m.Bytes(svgMediaType, sprite)
	if err != nil {
		return nil, fmt.Errorf("minify sprite: %w", err)
	}
	return out, nil
}
