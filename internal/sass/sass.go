// Package sass compiles a Sass entry file to CSS with a source map.
package sass

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/yaklabco/stipple/internal/dryrun"
	"github.com/yaklabco/stipple/internal/sh"
)

// DefaultBinary is the dart-sass executable looked up on PATH.
const DefaultBinary = "sass"

// ErrDryRun is returned by compilers that only printed the command they
// would have run.
var ErrDryRun = errors.New("sass: dry run")

// CompileError reports a stylesheet the compiler rejected.
type CompileError struct {
	Entry   string
	Message string
	Code    int
}

func (e *CompileError) Error() string {
	msg := strings.TrimSpace(e.Message)
	if msg == "" {
		msg = fmt.Sprintf("exit code %d", e.Code)
	}
	return fmt.Sprintf("compile %s: %s", e.Entry, msg)
}

// IsCompileError reports whether err is, or wraps, a *CompileError.
func IsCompileError(err error) bool {
	var ce *CompileError
	return errors.As(err, &ce)
}

// Options controls one compilation.
type Options struct {
	LoadPaths []string
	SourceMap bool
}

// Result is the compiled stylesheet. Map is empty when no source map was
// requested. CSS carries no sourceMappingURL comment.
type Result struct {
	CSS []byte
	Map []byte
}

// Compiler turns a Sass entry file into CSS.
type Compiler interface {
	Compile(ctx context.Context, entry string, opts Options) (Result, error)
}

// DartSass runs the dart-sass command line compiler.
type DartSass struct {
	Binary string
}

// NewDartSass returns a DartSass that runs binary, or "sass" when empty.
func NewDartSass(binary string) *DartSass {
	if binary == "" {
		binary = DefaultBinary
	}
	return &DartSass{Binary: binary}
}

func (d *DartSass) args(entry, out string, opts Options) []string {
	args := []string{"--no-error-css", "--style=expanded"}
	if opts.SourceMap {
		args = append(args, "--source-map", "--source-map-urls=absolute", "--no-embed-sources")
	} else {
		args = append(args, "--no-source-map")
	}
	for _, p := range opts.LoadPaths {
		args = append(args, "--load-path="+p)
	}
	return append(args, entry, out)
}

// Compile writes the compiler output to a temp directory and reads it back.
// A non-zero exit becomes a *CompileError holding the compiler's stderr.
func (d *DartSass) Compile(ctx context.Context, entry string, opts Options) (Result, error) {
	tmp, err := os.MkdirTemp("", "stipple-sass-")
	if err != nil {
		return Result{}, fmt.Errorf("sass temp dir: %w", err)
	}
	defer func() { _ = os.RemoveAll(tmp) }()

	out := filepath.Join(tmp, "out.css")

	var stderr bytes.Buffer
	ran, err := sh.Exec(ctx, nil, nil, nil, &stderr, d.Binary, d.args(entry, out, opts)...)
	if err != nil {
		if ran {
			return Result{}, &CompileError{Entry: entry, Message: stderr.String(), Code: sh.ExitStatus(err)}
		}
		return Result{}, fmt.Errorf("run %s: %w", d.Binary, err)
	}
	if dryrun.IsDryRun() {
		return Result{}, ErrDryRun
	}

	css, err := os.ReadFile(out)
	if err != nil {
		return Result{}, fmt.Errorf("read compiled css: %w", err)
	}

	res := Result{CSS: StripSourceMappingURL(css)}
	if opts.SourceMap {
		res.Map, err = os.ReadFile(out + ".map")
		if err != nil {
			return Result{}, fmt.Errorf("read source map: %w", err)
		}
	}

	return res, nil
}

// Version returns the compiler's reported version.
func (d *DartSass) Version(ctx context.Context) (string, error) {
	return sh.Output(ctx, nil, d.Binary, "--version")
}

var mappingURLComment = regexp.MustCompile(`\n?/\*# sourceMappingURL=[^*]*\*/\s*$`)

// StripSourceMappingURL removes a trailing sourceMappingURL comment.
func StripSourceMappingURL(css []byte) []byte {
	return mappingURLComment.ReplaceAll(css, nil)
}
