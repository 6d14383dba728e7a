package csssort

import (
	"regexp"
	"strings"
)

// Category is a SMACSS property group. Groups sort in declaration order.
type Category int

const (
	Positioning Category = iota
	BoxModel
	Typography
	Visual
	Misc
)

func (c Category) String() string {
	switch c {
	case Positioning:
		return "positioning"
	case BoxModel:
		return "box model"
	case Typography:
		return "typography"
	case Visual:
		return "visual"
	default:
		return "misc"
	}
}

var categories = [...][]string{ //nolint:gochecknoglobals // lookup table
	Positioning: {
		"position", "inset", "inset-block", "inset-inline",
		"top", "right", "bottom", "left",
		"z-index", "float", "clear",
	},
	BoxModel: {
		"display",
		"flex", "flex-basis", "flex-direction", "flex-flow", "flex-grow", "flex-shrink", "flex-wrap",
		"grid", "grid-area", "grid-template", "grid-template-areas", "grid-template-rows",
		"grid-template-columns", "grid-row", "grid-row-start", "grid-row-end", "grid-column",
		"grid-column-start", "grid-column-end", "grid-auto-rows", "grid-auto-columns",
		"grid-auto-flow", "gap", "row-gap", "column-gap",
		"place-content", "place-items", "place-self",
		"align-content", "align-items", "align-self",
		"justify-content", "justify-items", "justify-self",
		"order", "columns", "column-count", "column-width",
		"box-sizing",
		"width", "min-width", "max-width",
		"height", "min-height", "max-height",
		"aspect-ratio",
		"margin", "margin-top", "margin-right", "margin-bottom", "margin-left",
		"margin-block", "margin-inline",
		"padding", "padding-top", "padding-right", "padding-bottom", "padding-left",
		"padding-block", "padding-inline",
		"overflow", "overflow-x", "overflow-y", "resize",
		"object-fit", "object-position",
		"table-layout", "border-collapse", "border-spacing", "caption-side", "empty-cells",
	},
	Typography: {
		"color",
		"font", "font-family", "font-size", "font-style", "font-weight", "font-variant",
		"font-stretch", "font-feature-settings", "font-display",
		"line-height", "letter-spacing", "word-spacing",
		"text-align", "text-align-last", "text-decoration", "text-decoration-line",
		"text-decoration-color", "text-decoration-style", "text-indent", "text-overflow",
		"text-rendering", "text-shadow", "text-transform", "text-size-adjust",
		"white-space", "word-break", "word-wrap", "overflow-wrap", "hyphens", "tab-size",
		"vertical-align",
		"list-style", "list-style-type", "list-style-position", "list-style-image",
		"quotes", "content", "counter-reset", "counter-increment",
	},
	Visual: {
		"background", "background-color", "background-image", "background-repeat",
		"background-position", "background-size", "background-attachment", "background-clip",
		"background-origin", "background-blend-mode",
		"border", "border-width", "border-style", "border-color",
		"border-top", "border-top-width", "border-top-style", "border-top-color",
		"border-right", "border-right-width", "border-right-style", "border-right-color",
		"border-bottom", "border-bottom-width", "border-bottom-style", "border-bottom-color",
		"border-left", "border-left-width", "border-left-style", "border-left-color",
		"border-radius", "border-top-left-radius", "border-top-right-radius",
		"border-bottom-right-radius", "border-bottom-left-radius",
		"border-image",
		"outline", "outline-width", "outline-style", "outline-color", "outline-offset",
		"box-shadow", "opacity", "visibility",
		"filter", "backdrop-filter", "mix-blend-mode", "clip", "clip-path", "mask",
		"fill", "stroke",
		"transform", "transform-origin", "perspective",
		"transition", "transition-property", "transition-duration",
		"transition-timing-function", "transition-delay",
		"animation", "animation-name", "animation-duration", "animation-timing-function",
		"animation-delay", "animation-iteration-count", "animation-direction",
		"animation-fill-mode", "animation-play-state",
		"cursor", "pointer-events", "user-select", "appearance", "will-change",
	},
}

type rank struct {
	category Category
	index    int
}

var ranks = buildRanks() //nolint:gochecknoglobals // derived lookup table

func buildRanks() map[string]rank {
	out := make(map[string]rank)
	for c, props := range categories {
		for i, p := range props {
			out[p] = rank{category: Category(c), index: i}
		}
	}
	return out
}

var vendorPrefix = regexp.MustCompile(`^-(webkit|moz|ms|o)-`)

// CategoryOf returns the SMACSS group of a property. Vendor prefixes are
// ignored and unknown properties land in Misc.
func CategoryOf(property string) Category {
	return rankOf(property).category
}

func rankOf(property string) rank {
	name := vendorPrefix.ReplaceAllString(strings.ToLower(property), "")
	if r, ok := ranks[name]; ok {
		return r
	}
	return rank{category: Misc}
}

func (r rank) less(o rank) bool {
	if r.category != o.category {
		return r.category < o.category
	}
	return r.index < o.index
}
