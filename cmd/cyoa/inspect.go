// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/cyoa/cmd/cyoa/cli"
	"github.com/bureau-foundation/cyoa/lib/codec"
	"github.com/bureau-foundation/cyoa/lib/story"
)

func (application *app) inspectCommand() *cli.Command {
	var format string
	return &cli.Command{
		Name:    "inspect",
		Summary: "Decode a save file",
		Usage:   "cyoa inspect <save-file> [flags]",
		Description: `Decode a save file without opening its archive. Text output is CBOR
diagnostic notation of the snapshot; json and cbor emit the decoded
snapshot.`,
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("inspect", pflag.ContinueOnError)
			flagSet.StringVar(&format, "format", formatText, "output format: text, json, or cbor")
			return flagSet
		},
		Run: func(args []string) error {
			if len(args) != 1 {
				return cli.Usagef("inspect takes exactly one save file")
			}
			options := globalOptions{format: format}
			if err := options.checkFormat(); err != nil {
				return err
			}
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}

			if format != formatText {
				snapshot, err := story.DecodeSnapshot(data)
				if err != nil {
					return fmt.Errorf("%s: %w", args[0], err)
				}
				return emit(application.stdout, format, snapshot, nil)
			}

			body, err := story.SnapshotBody(data)
			if err != nil {
				return fmt.Errorf("%s: %w", args[0], err)
			}
			notation, err := codec.Diagnose(body)
			if err != nil {
				return fmt.Errorf("%s: %w", args[0], err)
			}
			_, err = io.WriteString(application.stdout, notation+"\n")
			return err
		},
	}
}
