// Package pipeline defines the asset tasks, the order they may run in and
// the watch session that reruns them on change.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"path/filepath"
	"time"

	"github.com/yaklabco/stipple/internal/cssproc"
	"github.com/yaklabco/stipple/internal/fsops"
	"github.com/yaklabco/stipple/internal/metrics"
	"github.com/yaklabco/stipple/internal/sass"
	"github.com/yaklabco/stipple/internal/task"
	"github.com/yaklabco/stipple/internal/watch"
)

// Task names.
const (
	TaskClean   = "clean"
	TaskCopy    = "copy"
	TaskCSS     = "css"
	TaskHTML    = "html"
	TaskSprite  = "sprite"
	TaskCSSSort = "cssSort"
	TaskBuild   = "build"
	TaskStart   = "start"
	TaskDeploy  = "deploy"
)

// ServerOptions configures the dev server of a watch session.
type ServerOptions struct {
	Host string
	Port int
	Open bool
	CORS bool
}

// WatchOptions configures the watch loop.
type WatchOptions struct {
	Policy   watch.Policy
	Debounce time.Duration
}

// DeployOptions configures the deploy task.
type DeployOptions struct {
	Remote   string
	Branch   string
	Message  string
	CacheDir string
	Token    string
	Push     bool
}

// Options configures a Pipeline.
type Options struct {
	ProjectDir string
	Layout     Layout

	Compiler     sass.Compiler
	LoadPaths    []string
	Prefix       bool
	SourceMap    bool
	MinifySprite bool

	Server ServerOptions
	Watch  WatchOptions
	Deploy DeployOptions

	Recorder metrics.Recorder
	// MetricsHandler is mounted on the dev server when set.
	MetricsHandler http.Handler
	// OpenBrowser is called with the dev server URL. Nil leaves the
	// browser alone.
	OpenBrowser func(ctx context.Context, url string) error
	Logger      *slog.Logger
}

// Pipeline holds the task registry for one project.
type Pipeline struct {
	opts      Options
	registry  *task.Registry
	runner    *task.Runner
	processor *cssproc.Processor
	logger    *slog.Logger
}

// New builds the registry for the layout and checks its ordering
// constraints.
func New(opts Options) (*Pipeline, error) {
	if opts.Layout == "" {
		opts.Layout = Build
	}
	if _, err := ParseLayout(string(opts.Layout)); err != nil {
		return nil, err
	}
	if opts.Compiler == nil {
		return nil, errors.New("pipeline: no sass compiler")
	}
	if opts.ProjectDir == "" {
		opts.ProjectDir = "."
	}
	root, err := fsops.TruePath(opts.ProjectDir)
	if errors.Is(err, fs.ErrNotExist) {
		root, err = filepath.Abs(opts.ProjectDir)
	}
	if err != nil {
		return nil, fmt.Errorf("project dir: %w", err)
	}
	opts.ProjectDir = root

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	p := &Pipeline{
		opts:      opts,
		registry:  task.NewRegistry(),
		runner:    task.NewRunner(logger, opts.Recorder),
		processor: cssproc.New(opts.Prefix),
		logger:    logger,
	}
	if err := p.register(); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *Pipeline) register() error {
	r := p.registry
	build := p.opts.Layout == Build

	var first []string
	if build {
		first = []string{TaskClean}
		r.MustRegister(task.New(TaskClean, "Delete the build directory", p.clean))
		r.MustRegister(task.New(TaskCopy, "Copy fonts, images, scripts and favicons", p.copyAssets), first...)
	}
	r.MustRegister(task.New(TaskCSS, "Compile, prefix and minify the stylesheet", p.css), first...)
	r.MustRegister(task.New(TaskSprite, "Bundle icon-*.svg into an SVG sprite", p.sprite), first...)
	if build {
		r.MustRegister(task.New(TaskHTML, "Copy HTML pages", p.html), first...)
	}
	r.MustRegister(task.New(TaskCSSSort, "Sort declarations in Sass fragments", p.cssSort))
	r.Alias("csssort", TaskCSSSort)

	buildSeq, err := r.Series(TaskBuild, "Run the full build", p.buildSteps()...)
	if err != nil {
		return err
	}
	if build {
		r.MustRegister(buildSeq)
	}

	r.MustRegister(task.New(TaskStart, "Build, then serve and rebuild on change", func(ctx context.Context) error {
		if err := task.RunnerFrom(ctx).Run(ctx, buildSeq); err != nil {
			return err
		}
		return p.NewSession().Run(ctx)
	}))

	if build {
		r.MustRegister(task.New(TaskDeploy, "Publish the build directory to a git branch", p.deploy), TaskBuild)
	}

	return r.Validate()
}

func (p *Pipeline) buildSteps() []string {
	if p.opts.Layout == Build {
		return []string{TaskClean, TaskCopy, TaskCSS, TaskSprite, TaskHTML}
	}
	return []string{TaskCSS, TaskSprite}
}

// Registry returns the registered tasks.
func (p *Pipeline) Registry() *task.Registry {
	return p.registry
}

// Runner returns the runner shared by CLI runs and watch reactions.
func (p *Pipeline) Runner() *task.Runner {
	return p.runner
}

// Layout returns the active layout.
func (p *Pipeline) Layout() Layout {
	return p.opts.Layout
}

// Plan composes the named tasks into one sequence, rejecting orders that
// break a declared constraint.
func (p *Pipeline) Plan(names ...string) (*task.Sequence, error) {
	return p.registry.Series("stipple", "command line tasks", names...)
}

// Run executes the named tasks in order.
func (p *Pipeline) Run(ctx context.Context, names ...string) error {
	seq, err := p.Plan(names...)
	if err != nil {
		return err
	}
	if len(names) == 1 {
		// A lone task runs under its own name rather than the wrapper's.
		return p.runner.Run(ctx, seq.Steps()[0])
	}
	return p.runner.Run(ctx, seq)
}

func (p *Pipeline) abs(rel string) string {
	return filepath.Join(p.opts.ProjectDir, filepath.FromSlash(rel))
}

func (p *Pipeline) out(rel string) string {
	return filepath.Join(p.opts.ProjectDir, p.opts.Layout.OutDir(), filepath.FromSlash(rel))
}
