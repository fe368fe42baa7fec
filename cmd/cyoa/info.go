// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"errors"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/cyoa/cmd/cyoa/cli"
	"github.com/bureau-foundation/cyoa/lib/archive"
)

type infoResult struct {
	Path           string         `json:"path"`
	Size           uint64         `json:"size"`
	SupportsRanges bool           `json:"supports_ranges"`
	Entries        int            `json:"entries"`
	ChunkCounts    map[string]int `json:"chunk_counts"`
	Fingerprint    string         `json:"fingerprint"`
	Root           *int           `json:"root,omitempty"`
}

func (application *app) infoCommand() *cli.Command {
	var options globalOptions
	return &cli.Command{
		Name:    "info",
		Summary: "Describe an archive's size, index, and root",
		Flags: func() *pflag.FlagSet {
			return options.newFlagSet("info", true)
		},
		Examples: []cli.Example{{
			Description: "Describe a published story",
			Command:     "cyoa info --base https://stories.example.org --path /cellar.cyoa",
		}},
		Run: func(args []string) error {
			if len(args) != 0 {
				return cli.Usagef("info takes no arguments")
			}
			if err := options.checkFormat(); err != nil {
				return err
			}
			opened, err := application.open(&options)
			if err != nil {
				return err
			}
			defer opened.close()

			result := infoResult{
				Path:           opened.archive.Path(),
				Size:           opened.archive.Size(),
				SupportsRanges: opened.archive.SupportsRanges(),
				Entries:        len(opened.archive.Entries()),
				ChunkCounts:    make(map[string]int),
				Fingerprint:    opened.archive.Fingerprint(),
			}
			for _, entry := range opened.archive.Entries() {
				result.ChunkCounts[entry.Type.String()]++
			}
			root, err := opened.archive.RootPosition(application.ctx)
			switch {
			case err == nil:
				result.Root = &root
			case !errors.Is(err, archive.ErrMissingRoot):
				return err
			}

			return emit(application.stdout, options.format, result, func(w io.Writer) error {
				tw := tabwriter.NewWriter(w, 2, 0, 2, ' ', 0)
				fmt.Fprintf(tw, "path\t%s\n", result.Path)
				fmt.Fprintf(tw, "size\t%d bytes\n", result.Size)
				fmt.Fprintf(tw, "entries\t%d\n", result.Entries)
				for _, chunkType := range []archive.ChunkType{archive.ChunkNode, archive.ChunkEdge, archive.ChunkContent, archive.ChunkMetadata} {
					fmt.Fprintf(tw, "  %s\t%d\n", chunkType, result.ChunkCounts[chunkType.String()])
				}
				if result.Root != nil {
					fmt.Fprintf(tw, "root\tnode %d\n", *result.Root)
				} else {
					fmt.Fprintf(tw, "root\tmissing\n")
				}
				fmt.Fprintf(tw, "fingerprint\t%s\n", result.Fingerprint)
				return tw.Flush()
			})
		},
	}
}
