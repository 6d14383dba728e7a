package cssproc

import (
	"encoding/json"
	"fmt"
	"net/url"
	"path/filepath"
	"strings"
)

// RewriteSourceMap points a compiler source map at its new home: "file"
// becomes file and every absolute "sources" entry becomes relative to
// mapDir. Other fields are kept. Keys are written in sorted order so the
// output is stable across runs.
func RewriteSourceMap(raw []byte, mapDir, file string) ([]byte, error) {
	var doc map[string]any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("decode source map: %w", err)
	}

	doc["file"] = file

	if sources, ok := doc["sources"].([]any); ok {
		for i, s := range sources {
			str, ok := s.(string)
			if !ok {
				continue
			}
			sources[i] = relativeSource(str, mapDir)
		}
		doc["sources"] = sources
	}

	out, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("encode source map: %w", err)
	}
	return out, nil
}

func relativeSource(source, mapDir string) string {
	p := source
	if strings.HasPrefix(source, "file://") {
		u, err := url.Parse(source)
		if err != nil {
			return source
		}
		p = filepath.FromSlash(u.Path)
	}
	if !filepath.IsAbs(p) {
		return source
	}

	rel, err := filepath.Rel(mapDir, p)
	if err != nil {
		return source
	}
	return filepath.ToSlash(rel)
}

// AppendMappingURL adds the sourceMappingURL comment pointing at mapName.
func AppendMappingURL(css []byte, mapName string) []byte {
	out := make([]byte, 0, len(css)+len(mapName)+28)
	out = append(out, css...)
	out = append(out, "\n/*# sourceMappingURL="...)
	out = append(out, mapName...)
	out = append(out, " */"...)
	return out
}
