// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import "github.com/bureau-foundation/cyoa/cmd/cyoa/cli"

func (application *app) root() *cli.Command {
	return &cli.Command{
		Name: "cyoa",
		Description: `Read CYOA story archives over HTTP range requests or from a bucket.

The archive is located by a base URL and a path, taken from flags, the
configuration file named by --config or CYOA_CONFIG, or CYOA_*
environment variables, in that order of precedence.`,
		Output: application.stderr,
		Subcommands: []*cli.Command{
			application.infoCommand(),
			application.idsCommand(),
			application.nodeCommand(),
			application.rootCommand(),
			application.walkCommand(),
			application.playCommand(),
			application.inspectCommand(),
			application.serveCommand(),
			application.versionCommand(),
		},
	}
}
