// Package dryrun decides whether side effects should be simulated.
//
// Dry-run mode is on when the STIPPLE_DRYRUN environment variable holds a
// truthy value at the first call to IsDryRun, or when Set(true) was called.
// In dry-run mode tasks log what they would write, copy, delete or push
// and external commands are replaced by an echo of their command line.
package dryrun

import (
	"context"
	"os/exec"
	"sync"
	"sync/atomic"

	"github.com/yaklabco/stipple/internal/env"
)

// RequestedEnv is the environment variable that requests dry-run mode.
const RequestedEnv = env.Prefix + "DRYRUN"

var (
	envOnce  sync.Once   //nolint:gochecknoglobals // process-wide mode
	envValue bool        //nolint:gochecknoglobals // process-wide mode
	explicit atomic.Bool //nolint:gochecknoglobals // process-wide mode
)

// Set turns dry-run mode on or off for the rest of the process.
func Set(value bool) {
	explicit.Store(value)
}

// IsDryRun reports whether side effects should be simulated.
func IsDryRun() bool {
	envOnce.Do(func() {
		envValue = env.FailsafeParseBoolEnv(RequestedEnv, false)
	})

	return envValue || explicit.Load()
}

// Wrap creates an *exec.Cmd to run a command, or to print it in dry-run mode.
func Wrap(ctx context.Context, cmd string, args ...string) *exec.Cmd {
	if !IsDryRun() {
		return exec.CommandContext(ctx, cmd, args...)
	}

	return exec.CommandContext(ctx, "echo", append([]string{"DRYRUN: " + cmd}, args...)...) //nolint:gosec // It's echo!
}
