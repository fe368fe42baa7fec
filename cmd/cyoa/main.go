// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/bureau-foundation/cyoa/cmd/cyoa/cli"
	"github.com/bureau-foundation/cyoa/lib/version"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	if err != nil {
		// An ExitError means the command already reported the problem.
		var exitError *cli.ExitError
		if !errors.As(err, &exitError) {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
		}
		os.Exit(cli.ExitCodeFor(err))
	}
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	if len(args) > 0 && args[0] == "--version" {
		fmt.Fprintf(stdout, "cyoa %s\n", version.Info())
		return nil
	}
	return newApp(ctx, stdout, stderr).root().Execute(args)
}
