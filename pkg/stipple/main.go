// Package stipple is the entrypoint behind the stipple command. It loads
// configuration, wires the pipeline and runs the requested tasks.
package stipple

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"

	"github.com/yaklabco/stipple/config"
	"github.com/yaklabco/stipple/internal/devserver"
	"github.com/yaklabco/stipple/internal/dryrun"
	"github.com/yaklabco/stipple/internal/logging"
	"github.com/yaklabco/stipple/internal/metrics"
	"github.com/yaklabco/stipple/internal/pipeline"
	"github.com/yaklabco/stipple/internal/sass"
	"github.com/yaklabco/stipple/internal/watch"
)

const curDir = "."

// RunParams contains the args for invoking a run of stipple.
type RunParams struct {
	BaseCtx context.Context // BaseCtx is the base context for the run, often used for cancellation.

	Stdout io.Writer // writer for the task list and --init output
	Stderr io.Writer // writer for logs and config warnings

	Init bool // write a default stipple.yaml
	List bool // print the task list

	Dir     string        // project directory
	Debug   bool          // turn on debug messages
	Verbose bool          // echo external commands
	DryRun  bool          // print commands and writes instead of running them
	Timeout time.Duration // cancel the run after this long
	Layout  string        // overrides the configured layout when set
	Port    int           // overrides the configured dev server port when non-zero
	NoOpen  bool          // don't open a browser for the dev server
	Args    []string      // tasks to run, in order

	// Compiler replaces the dart-sass binary named in the configuration.
	Compiler sass.Compiler
}

// Run is the entrypoint for running stipple. It exists apart from the
// command so other programs can drive a project's pipeline.
func Run(params RunParams) error {
	preprocessRunParams(&params)

	if howManyThingsToDo(params) > 1 {
		return errors.New("only one of --init, --tasks, or explicit tasks may be specified")
	}

	if params.Init {
		path, err := config.WriteDefaultConfig(params.Dir)
		if err != nil {
			return err
		}
		_, _ = fmt.Fprintln(params.Stdout, path, "created")
		return nil
	}

	cfg, err := config.Load(&config.LoadOptions{ProjectDir: params.Dir, Stderr: params.Stderr})
	if err != nil {
		return err
	}
	if err := applyFlags(cfg, params); err != nil {
		return err
	}

	handler := logging.SetupPrettyLogger(params.Stderr)
	logging.ApplyLevel(handler, cfg.Debug)
	logging.SetVerbose(cfg.Verbose)
	if params.DryRun {
		dryrun.Set(true)
	}

	opts, err := pipelineOptions(cfg, params)
	if err != nil {
		return err
	}
	p, err := pipeline.New(opts)
	if err != nil {
		return err
	}

	if params.List || len(params.Args) == 0 {
		return renderTaskList(params.Stdout, p, colorEnabled(cfg))
	}

	ctx, stop := signal.NotifyContext(params.BaseCtx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	if params.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, params.Timeout)
		defer cancel()
	}

	if ds, ok := opts.Compiler.(*sass.DartSass); ok && cfg.Debug {
		if v, err := ds.Version(ctx); err == nil {
			slog.Debug("sass compiler", "binary", ds.Binary, "version", v)
		}
	}

	return p.Run(ctx, params.Args...)
}

func preprocessRunParams(params *RunParams) {
	params.BaseCtx = cmp.Or(params.BaseCtx, context.Background())
	params.Stdout = cmp.Or(params.Stdout, io.Writer(os.Stdout))
	params.Stderr = cmp.Or(params.Stderr, io.Writer(os.Stderr))
	params.Dir = cmp.Or(params.Dir, curDir)
}

func howManyThingsToDo(params RunParams) int {
	n := 0
	if params.Init {
		n++
	}
	if params.List {
		n++
	}
	if len(params.Args) > 0 {
		n++
	}
	return n
}

// applyFlags layers command-line flags over the loaded configuration and
// re-validates the result.
func applyFlags(cfg *config.Config, params RunParams) error {
	cfg.Debug = cfg.Debug || params.Debug
	cfg.Verbose = cfg.Verbose || params.Verbose
	if params.Layout != "" {
		cfg.Layout = params.Layout
	}
	if params.Port != 0 {
		cfg.Server.Port = params.Port
	}
	if params.NoOpen {
		cfg.Server.Open = false
	}

	if res := cfg.Validate(); res.HasErrors() {
		return errors.New(res.ErrorMessage())
	}
	return nil
}

func pipelineOptions(cfg *config.Config, params RunParams) (pipeline.Options, error) {
	layout, err := pipeline.ParseLayout(cfg.Layout)
	if err != nil {
		return pipeline.Options{}, err
	}
	policy, err := watch.ParsePolicy(cfg.Watch.Policy)
	if err != nil {
		return pipeline.Options{}, err
	}

	compiler := params.Compiler
	if compiler == nil {
		compiler = sass.NewDartSass(cfg.Sass.Binary)
	}

	opts := pipeline.Options{
		ProjectDir:   params.Dir,
		Layout:       layout,
		Compiler:     compiler,
		LoadPaths:    cfg.Sass.LoadPaths,
		Prefix:       cfg.CSS.Prefix,
		SourceMap:    cfg.CSS.SourceMap,
		MinifySprite: cfg.Sprite.Minify,
		Server: pipeline.ServerOptions{
			Host: cfg.Server.Host,
			Port: cfg.Server.Port,
			Open: cfg.Server.Open,
			CORS: cfg.Server.CORS,
		},
		Watch: pipeline.WatchOptions{
			Policy:   policy,
			Debounce: cfg.Watch.Debounce,
		},
		Deploy: pipeline.DeployOptions{
			Remote:   cfg.Deploy.Remote,
			Branch:   cfg.Deploy.Branch,
			Message:  cfg.Deploy.Message,
			CacheDir: cfg.Deploy.CacheDir,
			Token:    cfg.Deploy.Token(),
			Push:     cfg.Deploy.Push,
		},
		Logger: slog.Default(),
	}

	if cfg.Server.Metrics {
		recorder := metrics.NewPrometheusRecorder(prom.NewRegistry())
		opts.Recorder = recorder
		opts.MetricsHandler = recorder.Handler()
	}
	if cfg.Server.Open {
		opts.OpenBrowser = devserver.OpenBrowser
	}

	return opts, nil
}

// TaskNames returns the tasks available in the project at dir, for shell
// completion.
func TaskNames(dir string) ([]string, error) {
	params := RunParams{Dir: dir, Stderr: io.Discard}
	preprocessRunParams(&params)

	cfg, err := config.Load(&config.LoadOptions{ProjectDir: params.Dir, Stderr: params.Stderr})
	if err != nil {
		return nil, err
	}
	opts, err := pipelineOptions(cfg, params)
	if err != nil {
		return nil, err
	}
	p, err := pipeline.New(opts)
	if err != nil {
		return nil, err
	}

	rows, err := taskRows(p)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(rows))
	for _, r := range rows {
		names = append(names, r.name)
	}
	return names, nil
}
