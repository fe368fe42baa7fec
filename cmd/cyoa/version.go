// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"
	"io"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/cyoa/cmd/cyoa/cli"
	"github.com/bureau-foundation/cyoa/lib/version"
)

func (application *app) versionCommand() *cli.Command {
	var format string
	return &cli.Command{
		Name:    "version",
		Summary: "Print build information",
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("version", pflag.ContinueOnError)
			flagSet.StringVar(&format, "format", formatText, "output format: text, json, or cbor")
			return flagSet
		},
		Run: func(args []string) error {
			if len(args) != 0 {
				return cli.Usagef("version takes no arguments")
			}
			options := globalOptions{format: format}
			if err := options.checkFormat(); err != nil {
				return err
			}
			return emit(application.stdout, format, version.Current(), func(w io.Writer) error {
				_, err := fmt.Fprintf(w, "cyoa %s\n", version.Full())
				return err
			})
		},
	}
}
