// Package fsops holds the filesystem primitives the tasks share: glob
// expansion, atomic writes, incremental copies and content hashing.
package fsops

import (
	"fmt"
	"io/fs"
	"path"
	"path/filepath"
	"slices"
	"strings"

	"github.com/gobwas/glob"
)

// Matcher matches slash-separated relative paths.
type Matcher interface {
	Match(name string) bool
}

type anyOf []glob.Glob

func (a anyOf) Match(name string) bool {
	for _, g := range a {
		if g.Match(name) {
			return true
		}
	}
	return false
}

// Compile compiles a slash-separated glob pattern. "*" stays within one
// path segment, "**" spans segments and "{a,b}" alternates. A "/**/" in the
// middle of a pattern also matches zero directories, so "img/**/*.png"
// matches "img/logo.png".
func Compile(pattern string) (Matcher, error) {
	variants := []string{pattern}
	for i := 0; i < len(variants); i++ {
		if v := variants[i]; strings.Contains(v, "/**/") {
			collapsed := strings.Replace(v, "/**/", "/", 1)
			if !slices.Contains(variants, collapsed) {
				variants = append(variants, collapsed)
			}
		}
	}

	out := make(anyOf, 0, len(variants))
	for _, v := range variants {
		g, err := glob.Compile(v, '/')
		if err != nil {
			return nil, fmt.Errorf("compile glob %q: %w", pattern, err)
		}
		out = append(out, g)
	}
	return out, nil
}

// MustCompile is Compile that panics. It is meant for fixed patterns.
func MustCompile(pattern string) Matcher {
	m, err := Compile(pattern)
	if err != nil {
		panic(err)
	}
	return m
}

// CompileAll compiles every pattern into one matcher.
func CompileAll(patterns ...string) (Matcher, error) {
	out := make(anyOf, 0, len(patterns))
	for _, p := range patterns {
		m, err := Compile(p)
		if err != nil {
			return nil, err
		}
		out = append(out, m.(anyOf)...)
	}
	return out, nil
}

// staticPrefix returns the leading directory of pattern that contains no
// glob metacharacters.
func staticPrefix(pattern string) string {
	idx := strings.IndexAny(pattern, "*?[{\\")
	if idx < 0 {
		return path.Dir(pattern)
	}
	return path.Dir(pattern[:idx] + "x")
}

// Expand walks root and returns the regular files matching any of the
// patterns, as sorted slash-separated paths relative to root. A pattern
// whose static directory does not exist matches nothing. Hidden files and
// directories below a pattern's static directory never match.
func Expand(root string, patterns ...string) ([]string, error) {
	matcher, err := CompileAll(patterns...)
	if err != nil {
		return nil, err
	}

	bases := make([]string, 0, len(patterns))
	for _, p := range patterns {
		bases = append(bases, staticPrefix(p))
	}
	slices.Sort(bases)
	bases = slices.Compact(bases)

	seen := make(map[string]struct{})
	var out []string

	for _, base := range bases {
		start := filepath.Join(root, filepath.FromSlash(base))
		err := filepath.WalkDir(start, func(p string, d fs.DirEntry, walkErr error) error {
			if walkErr != nil {
				if p == start && errorsIsNotExist(walkErr) {
					return fs.SkipAll
				}
				return walkErr
			}
			if p != start && strings.HasPrefix(d.Name(), ".") {
				if d.IsDir() {
					return filepath.SkipDir
				}
				return nil
			}
			if !d.Type().IsRegular() {
				return nil
			}
			rel, err := filepath.Rel(root, p)
			if err != nil {
				return err
			}
			rel = filepath.ToSlash(rel)
			if _, dup := seen[rel]; dup {
				return nil
			}
			if matcher.Match(rel) {
				seen[rel] = struct{}{}
				out = append(out, rel)
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("expand %v under %s: %w", patterns, root, err)
		}
	}

	slices.Sort(out)
	return out, nil
}
