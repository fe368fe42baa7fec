// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package story

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/bureau-foundation/cyoa/lib/archive"
)

// WalkParallelism bounds the number of concurrent loads in one
// breadth-first level.
const WalkParallelism = 8

// VisitFunc is called once per reachable node with its position, its
// distance in edges from the start, and its view. Returning an error
// stops the walk and Walk returns that error.
type VisitFunc func(position, depth int, view *archive.NodeView) error

// Walk visits every node reachable from start, breadth first. Each
// level is loaded concurrently; visits happen in discovery order, so
// the sequence is deterministic for a given archive. The first load
// error ends the walk.
func Walk(ctx context.Context, loader NodeLoader, start int, visit VisitFunc) error {
	seen := map[int]bool{start: true}
	frontier := []int{start}

	for depth := 0; len(frontier) > 0; depth++ {
		views := make([]*archive.NodeView, len(frontier))
		group, groupContext := errgroup.WithContext(ctx)
		group.SetLimit(WalkParallelism)
		for i, position := range frontier {
			group.Go(func() error {
				view, err := loader.LoadNode(groupContext, position)
				if err != nil {
					return fmt.Errorf("loading node %d: %w", position, err)
				}
				views[i] = view
				return nil
			})
		}
		if err := group.Wait(); err != nil {
			return err
		}

		var next []int
		for i, position := range frontier {
			if err := visit(position, depth, views[i]); err != nil {
				return err
			}
			for _, edge := range views[i].Edges {
				if !seen[edge.Destination] {
					seen[edge.Destination] = true
					next = append(next, edge.Destination)
				}
			}
		}
		frontier = next
	}
	return nil
}
