// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/cyoa/cmd/cyoa/cli"
	"github.com/bureau-foundation/cyoa/lib/archive"
	"github.com/bureau-foundation/cyoa/lib/story"
	"github.com/bureau-foundation/cyoa/lib/transport"
)

type walkResult struct {
	Root      int                `json:"root"`
	Nodes     int                `json:"nodes"`
	Edges     int                `json:"edges"`
	Endings   int                `json:"endings"`
	MaxDepth  int                `json:"max_depth"`
	Cache     archive.CacheStats `json:"cache"`
	Transport transport.Totals   `json:"transport"`
}

func (application *app) walkCommand() *cli.Command {
	var options globalOptions
	var listNodes bool
	return &cli.Command{
		Name:    "walk",
		Summary: "Resolve every node reachable from the root",
		Description: `Resolve every node reachable from the root, breadth first, and report
the graph's shape with cache and transport statistics. Any node that
fails to resolve stops the walk with that node's error, so walk doubles
as an integrity check.`,
		Flags: func() *pflag.FlagSet {
			flagSet := options.newFlagSet("walk", true)
			flagSet.BoolVar(&listNodes, "list", false, "print each node's position and depth as it is reached (text only)")
			return flagSet
		},
		Examples: []cli.Example{{
			Description: "Check a story with range coalescing enabled",
			Command:     "cyoa walk --base file:///srv/stories --path cellar.cyoa --coalesce-gap 4096",
		}},
		Run: func(args []string) error {
			if len(args) != 0 {
				return cli.Usagef("walk takes no arguments")
			}
			if err := options.checkFormat(); err != nil {
				return err
			}
			opened, err := application.open(&options)
			if err != nil {
				return err
			}
			defer opened.close()

			root, err := opened.archive.RootPosition(application.ctx)
			if err != nil {
				return err
			}
			result := walkResult{Root: root}
			started := time.Now()
			err = story.Walk(application.ctx, opened.archive, root, func(position, depth int, view *archive.NodeView) error {
				result.Nodes++
				result.Edges += len(view.Edges)
				if len(view.Edges) == 0 {
					result.Endings++
				}
				result.MaxDepth = max(result.MaxDepth, depth)
				if listNodes && options.format == formatText {
					fmt.Fprintf(application.stdout, "%d\t%d\n", depth, position)
				}
				return nil
			})
			if err != nil {
				return err
			}
			result.Cache = opened.archive.CacheStats()
			result.Transport = opened.metrics.Totals()
			opened.logger.Info("walk complete", "nodes", result.Nodes, "elapsed", time.Since(started))

			return emit(application.stdout, options.format, result, func(w io.Writer) error {
				tw := tabwriter.NewWriter(w, 2, 0, 2, ' ', 0)
				fmt.Fprintf(tw, "root\tnode %d\n", result.Root)
				fmt.Fprintf(tw, "nodes\t%d\n", result.Nodes)
				fmt.Fprintf(tw, "edges\t%d\n", result.Edges)
				fmt.Fprintf(tw, "endings\t%d\n", result.Endings)
				fmt.Fprintf(tw, "max depth\t%d\n", result.MaxDepth)
				fmt.Fprintf(tw, "cache\t%d hits, %d misses, %d evictions\n",
					result.Cache.Hits, result.Cache.Misses, result.Cache.Evictions)
				fmt.Fprintf(tw, "transport\t%d requests (%d failed), %d bytes\n",
					result.Transport.Requests, result.Transport.Errors, result.Transport.Bytes)
				return tw.Flush()
			})
		},
	}
}
