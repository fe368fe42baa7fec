// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"
	"os"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/cyoa/cmd/cyoa/cli"
	"github.com/bureau-foundation/cyoa/lib/config"
	"github.com/bureau-foundation/cyoa/lib/service"
)

func (application *app) serveCommand() *cli.Command {
	var listen, logLevel string
	var flagSet *pflag.FlagSet
	return &cli.Command{
		Name:    "serve",
		Summary: "Serve a directory of archives over HTTP",
		Usage:   "cyoa serve <directory> [flags]",
		Description: `Serve the files under a directory with HTTP range support, logging each
request's Range header and status. Point --base at the listen address
to read the archives with the other commands. Stops on interrupt.`,
		Flags: func() *pflag.FlagSet {
			flagSet = pflag.NewFlagSet("serve", pflag.ContinueOnError)
			flagSet.StringVar(&listen, "listen", "127.0.0.1:8080", "TCP address to listen on")
			flagSet.StringVar(&logLevel, "log-level", "info", "debug, info, warn, or error")
			return flagSet
		},
		Examples: []cli.Example{{
			Description: "Serve stories and read one",
			Command:     "cyoa serve ./stories & cyoa walk --base http://127.0.0.1:8080 --path /cellar.cyoa",
		}},
		Run: func(args []string) error {
			if len(args) != 1 {
				return cli.Usagef("serve takes exactly one directory")
			}
			directory := args[0]
			stat, err := os.Stat(directory)
			if err != nil {
				return err
			}
			if !stat.IsDir() {
				return cli.Usagef("%s is not a directory", directory)
			}

			cfg, err := config.FromEnvironment()
			if err != nil {
				return err
			}
			if flagSet.Changed("log-level") || os.Getenv("CYOA_LOG_LEVEL") == "" {
				cfg.Log.Level = logLevel
			}
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("invalid configuration: %w", err)
			}
			logger := cli.NewCommandLogger(application.stderr, cfg.SlogLevel(), cfg.Log.Format)

			server, err := service.NewArchiveServer(service.ArchiveServerConfig{
				Address: listen,
				Root:    os.DirFS(directory),
				Logger:  logger,
			})
			if err != nil {
				return err
			}
			return server.Serve(application.ctx)
		},
	}
}
