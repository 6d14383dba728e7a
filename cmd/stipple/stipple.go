// Package stipple builds the root stipple command.
package stipple

import (
	"context"

	"github.com/charmbracelet/fang"
	"github.com/spf13/cobra"

	"github.com/yaklabco/stipple/cmd/stipple/version"
	"github.com/yaklabco/stipple/internal/logging"
	"github.com/yaklabco/stipple/pkg/stipple"
)

const shortDescription = "Stipple builds, serves and publishes a static site's Sass, icons and assets."

type rootCmdOptions struct {
	runFunc func(params stipple.RunParams) error
}

// Option customizes NewRootCmd.
type Option func(*rootCmdOptions)

// withRunFunc replaces stipple.Run. It exists for tests only.
func withRunFunc(fn func(params stipple.RunParams) error) Option {
	return func(opts *rootCmdOptions) {
		opts.runFunc = fn
	}
}

// NewRootCmd returns the stipple command.
func NewRootCmd(ctx context.Context, opts ...Option) *cobra.Command {
	rootCmdOpts := &rootCmdOptions{
		runFunc: stipple.Run,
	}
	for _, opt := range opts {
		opt(rootCmdOpts)
	}

	var runParams stipple.RunParams
	rootCmd := &cobra.Command{
		Use:   "stipple [flags] [task...]",
		Short: shortDescription,
		Example: `	# List tasks
	stipple -T

	# Build once, or build then serve and watch
	stipple build
	stipple start

	# Run tasks in order
	stipple clean css sprite

	# Publish build/ to the gh-pages branch
	stipple build deploy

	# Write a commented stipple.yaml
	stipple --init`,
		Version:       version.OverallVersionStringColorized(ctx),
		SilenceUsage:  true,
		SilenceErrors: true,
		ValidArgsFunction: func(cmd *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
			dir, err := cmd.Root().PersistentFlags().GetString("dir")
			if err != nil {
				return nil, cobra.ShellCompDirectiveError
			}

			names, err := stipple.TaskNames(dir)
			if err != nil {
				return nil, cobra.ShellCompDirectiveError
			}
			return names, cobra.ShellCompDirectiveNoFileComp
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			runParams.Args = args
			runParams.Stdout = cmd.OutOrStdout()
			runParams.Stderr = cmd.ErrOrStderr()
			runParams.BaseCtx = cmd.Context() //nolint:fatcontext // intentionally setting context from cmd

			return rootCmdOpts.runFunc(runParams)
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&runParams.Dir, "dir", "C", "", "project directory (default: current directory)")
	flags.BoolVarP(&runParams.Debug, "debug", "d", false, "turn on debug messages")
	flags.BoolVarP(&runParams.Verbose, "verbose", "v", logging.Verbose(), "echo external commands")
	flags.BoolVar(&runParams.DryRun, "dryrun", false, "print commands and writes instead of running them")
	flags.DurationVarP(&runParams.Timeout, "timeout", "t", 0, "timeout in duration parsable format (e.g. 5m30s)")
	flags.StringVar(&runParams.Layout, "layout", "", `output layout, "build" or "inplace" (default from config)`)
	flags.IntVar(&runParams.Port, "port", 0, "dev server port (default from config)")
	flags.BoolVar(&runParams.NoOpen, "no-open", false, "don't open a browser when the dev server starts")

	// Flags that are actually commands ("pseudo-flags").
	flags.BoolVarP(&runParams.List, "tasks", "T", false, "list tasks")
	flags.BoolVar(&runParams.Init, "init", false, "write a default stipple.yaml")

	return rootCmd
}

// ExecuteWithFang runs the root command with fang's help, errors and
// version output.
func ExecuteWithFang(ctx context.Context, rootCmd *cobra.Command) error {
	//nolint:wrapcheck // top-level error from cobra, wrapping not needed
	return fang.Execute(
		ctx, rootCmd, fang.WithVersion(rootCmd.Version), fang.WithoutManpage())
}
