// Package sh runs external commands such as the Sass compiler and the
// platform browser opener. Every command goes through dryrun.Wrap.
package sh

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"

	"github.com/yaklabco/stipple/internal/dryrun"
	"github.com/yaklabco/stipple/internal/logging"
	"github.com/yaklabco/stipple/internal/task"
)

// Exec runs cmd with args, expanding $VARS in both from env and then the
// process environment. It reports whether the command actually started.
// A command that ran and exited non-zero yields an error carrying its
// exit status.
func Exec(ctx context.Context, env map[string]string, stdin io.Reader, stdout, stderr io.Writer, cmd string, args ...string) (bool, error) {
	expand := func(varName string) string {
		if v, ok := env[varName]; ok {
			return v
		}
		return os.Getenv(varName)
	}

	cmd = os.Expand(cmd, expand)
	expanded := make([]string, len(args))
	for i := range args {
		expanded[i] = os.Expand(args[i], expand)
	}

	ran, code, err := run(ctx, env, stdin, stdout, stderr, cmd, expanded...)
	if err == nil {
		return true, nil
	}
	if ran {
		return ran, task.Fatalf(code, `running "%s %s" failed with exit code %d`, cmd, strings.Join(expanded, " "), code)
	}
	return ran, fmt.Errorf(`failed to run "%s %s": %w`, cmd, strings.Join(expanded, " "), err)
}

func run(ctx context.Context, env map[string]string, stdin io.Reader, stdout, stderr io.Writer, cmd string, args ...string) (bool, int, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	theCmd := dryrun.Wrap(ctx, cmd, args...)
	theCmd.Env = os.Environ()
	for k, v := range env {
		theCmd.Env = append(theCmd.Env, k+"="+v)
	}
	theCmd.Stderr = stderr
	theCmd.Stdout = stdout
	theCmd.Stdin = stdin

	if logging.Verbose() {
		quoted := make([]string, 0, len(args))
		for i := range args {
			quoted = append(quoted, fmt.Sprintf("%q", args[i]))
		}
		logging.SimpleConsoleLogger.Println("exec:", cmd, strings.Join(quoted, " "))
	}

	err := theCmd.Run()

	return CmdRan(err), ExitStatus(err), err
}

// CmdRan reports whether err came from a command that started and exited.
func CmdRan(err error) bool {
	if err == nil {
		return true
	}
	var ee *exec.ExitError
	if errors.As(err, &ee) {
		return ee.Exited()
	}
	return false
}

// ExitStatus returns the exit status carried by err, 0 for nil and 1 otherwise.
func ExitStatus(err error) int {
	if err == nil {
		return 0
	}
	var e *exec.ExitError
	if errors.As(err, &e) {
		return e.ExitCode()
	}
	return task.ExitStatus(err)
}

// Run runs cmd. Its stdout is shown in verbose and dry-run mode only.
func Run(ctx context.Context, env map[string]string, cmd string, args ...string) error {
	var output io.Writer
	if logging.Verbose() || dryrun.IsDryRun() {
		output = os.Stdout
	}
	_, err := Exec(ctx, env, nil, output, os.Stderr, cmd, args...)
	return err
}

// Output runs cmd and returns its stdout without the trailing newline.
func Output(ctx context.Context, env map[string]string, cmd string, args ...string) (string, error) {
	buf := &bytes.Buffer{}
	_, err := Exec(ctx, env, nil, buf, os.Stderr, cmd, args...)
	return strings.TrimSuffix(buf.String(), "\n"), err
}
