package main

import (
	"context"
	"fmt"
	"os"

	"github.com/yaklabco/stipple/cmd/stipple"
	"github.com/yaklabco/stipple/internal/task"
)

func main() {
	os.Exit(actualMain())
}

func actualMain() int {
	ctx := context.Background()

	rootCmd := stipple.NewRootCmd(ctx)

	if err := stipple.ExecuteWithFang(ctx, rootCmd); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		return task.ExitStatus(err)
	}

	return 0
}
