package pipeline

import (
	"fmt"
	"path"
)

// Layout decides where outputs go and which tasks exist.
type Layout string

const (
	// Build writes outputs to build/ and registers the full task set.
	Build Layout = "build"
	// InPlace writes outputs back into source/ and has no clean, copy,
	// html or deploy.
	InPlace Layout = "inplace"
)

// ParseLayout validates a layout name. The empty string means Build.
func ParseLayout(s string) (Layout, error) {
	switch Layout(s) {
	case "", Build:
		return Build, nil
	case InPlace:
		return InPlace, nil
	default:
		return "", fmt.Errorf("unknown layout %q (want %q or %q)", s, Build, InPlace)
	}
}

// Project-relative roots.
const (
	SourceDir = "source"
	BuildDir  = "build"
)

// Inputs, relative to the project directory.
const (
	StyleEntry     = SourceDir + "/sass/style.scss"
	StyleGlob      = SourceDir + "/sass/**/*.{scss,sass}"
	FragmentGlob   = SourceDir + "/sass/blocks/*.{scss,sass}"
	IconGlob       = SourceDir + "/img/icon-*.svg"
	HTMLGlob       = SourceDir + "/*.html"
	StylesheetName = "style.min.css"
	SourceMapName  = StylesheetName + ".map"
)

// Outputs, relative to the output root.
const (
	StylesheetPath = "css/" + StylesheetName
	SourceMapPath  = "css/" + SourceMapName
	SpritePath     = "img/sprite.svg"
)

// CopyGlobs are the static assets copied verbatim in the build layout.
func CopyGlobs() []string {
	return []string{
		SourceDir + "/fonts/**/*.{woff,woff2}",
		SourceDir + "/img/**",
		SourceDir + "/js/**",
		SourceDir + "/*.ico",
	}
}

// OutDir is the output root relative to the project directory.
func (l Layout) OutDir() string {
	if l == InPlace {
		return SourceDir
	}
	return BuildDir
}

// StylesheetURL is where the dev server serves the stylesheet.
func StylesheetURL() string {
	return path.Join("/", StylesheetPath)
}
