// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/cyoa/cmd/cyoa/cli"
	"github.com/bureau-foundation/cyoa/lib/archive"
)

func (application *app) idsCommand() *cli.Command {
	var options globalOptions
	return &cli.Command{
		Name:    "ids",
		Summary: "List the id of every index entry",
		Description: `List the id of every index entry in index order, as six uppercase hex
characters. The line number (from zero) of a node id is its position.`,
		Flags: func() *pflag.FlagSet {
			return options.newFlagSet("ids", true)
		},
		Run: func(args []string) error {
			if len(args) != 0 {
				return cli.Usagef("ids takes no arguments")
			}
			if err := options.checkFormat(); err != nil {
				return err
			}
			opened, err := application.open(&options)
			if err != nil {
				return err
			}
			defer opened.close()

			ids := opened.archive.ChunkIDs()
			return emit(application.stdout, options.format, ids, func(w io.Writer) error {
				return writeLines(w, ids)
			})
		},
	}
}

func (application *app) nodeCommand() *cli.Command {
	var options globalOptions
	return &cli.Command{
		Name:    "node",
		Summary: "Print the node at an index position",
		Usage:   "cyoa node <position> [flags]",
		Flags: func() *pflag.FlagSet {
			return options.newFlagSet("node", true)
		},
		Examples: []cli.Example{{
			Description: "Print node 12 as JSON",
			Command:     "cyoa node 12 --format json",
		}},
		Run: func(args []string) error {
			if len(args) != 1 {
				return cli.Usagef("node takes exactly one position argument")
			}
			position, err := strconv.Atoi(args[0])
			if err != nil || position < 0 {
				return cli.Usagef("position must be a non-negative integer, got %q", args[0])
			}
			if err := options.checkFormat(); err != nil {
				return err
			}
			opened, err := application.open(&options)
			if err != nil {
				return err
			}
			defer opened.close()

			view, err := opened.archive.LoadNode(application.ctx, position)
			if err != nil {
				return err
			}
			return emitNode(application.stdout, options.format, position, view)
		},
	}
}

func (application *app) rootCommand() *cli.Command {
	var options globalOptions
	return &cli.Command{
		Name:    "root",
		Summary: "Print the story's starting node",
		Flags: func() *pflag.FlagSet {
			return options.newFlagSet("root", true)
		},
		Run: func(args []string) error {
			if len(args) != 0 {
				return cli.Usagef("root takes no arguments")
			}
			if err := options.checkFormat(); err != nil {
				return err
			}
			opened, err := application.open(&options)
			if err != nil {
				return err
			}
			defer opened.close()

			position, err := opened.archive.RootPosition(application.ctx)
			if err != nil {
				return err
			}
			view, err := opened.archive.LoadNode(application.ctx, position)
			if err != nil {
				return err
			}
			return emitNode(application.stdout, options.format, position, view)
		},
	}
}

// emitNode writes a node view. JSON and CBOR carry the view alone; the
// text form adds the position as a heading.
func emitNode(w io.Writer, format string, position int, view *archive.NodeView) error {
	return emit(w, format, view, func(w io.Writer) error {
		fmt.Fprintf(w, "node %d\n\n%s\n", position, view.Content)
		if len(view.Edges) == 0 {
			_, err := fmt.Fprintln(w, "\n(no choices)")
			return err
		}
		fmt.Fprintln(w)
		for index, edge := range view.Edges {
			if _, err := fmt.Fprintf(w, "%d. %s -> node %d\n", index+1, edge.Label, edge.Destination); err != nil {
				return err
			}
		}
		return nil
	})
}
