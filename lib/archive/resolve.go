// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package archive

import (
	"context"
	"strings"

	"golang.org/x/sync/errgroup"
)

// LoadNode resolves the node at an index position into its text and
// outgoing choices. It fetches the node chunk, then the selected
// content chunks and the edge chunks together, then the edge label
// chunks; each group is one concurrent batch and cached chunks are not
// fetched again. Any failure aborts the whole load.
func (archive *Archive) LoadNode(ctx context.Context, position int) (*NodeView, error) {
	if position < 0 || position >= len(archive.entries) {
		return nil, parseErrorf("node index out of range")
	}
	entry := archive.entries[position]
	if entry.Type != ChunkNode {
		return nil, parseErrorf("not a node chunk")
	}

	raw, err := archive.rawChunk(ctx, entry)
	if err != nil {
		return nil, err
	}
	payload, err := chunkPayload(raw)
	if err != nil {
		return nil, err
	}
	node, err := ParseNode(payload)
	if err != nil {
		return nil, err
	}

	contentEntries, err := archive.selectContent(node.Sequence)
	if err != nil {
		return nil, err
	}
	edgeEntries := make([]IndexEntry, len(node.Edges))
	for i, id := range node.Edges {
		edgeEntry, ok := archive.find(ChunkEdge, id)
		if !ok {
			return nil, parseErrorf("edge chunk not found")
		}
		edgeEntries[i] = edgeEntry
	}

	var contentChunks, edgeChunks [][]byte
	group, groupContext := errgroup.WithContext(ctx)
	group.Go(func() error {
		var err error
		contentChunks, err = archive.rawChunks(groupContext, contentEntries)
		return err
	})
	group.Go(func() error {
		var err error
		edgeChunks, err = archive.rawChunks(groupContext, edgeEntries)
		return err
	})
	if err := group.Wait(); err != nil {
		return nil, err
	}

	var text strings.Builder
	for _, chunk := range contentChunks {
		content, err := decodeContent(chunk)
		if err != nil {
			return nil, err
		}
		text.WriteString(content.Text)
	}

	edges := make([]*Edge, len(edgeChunks))
	labelEntries := make([]IndexEntry, len(edgeChunks))
	for i, chunk := range edgeChunks {
		edgePayload, err := chunkPayload(chunk)
		if err != nil {
			return nil, err
		}
		edge, err := ParseEdge(edgePayload)
		if err != nil {
			return nil, err
		}
		labelEntry, ok := archive.find(ChunkContent, edge.Label.Content)
		if !ok {
			return nil, parseErrorf("label content not found")
		}
		edges[i] = edge
		labelEntries[i] = labelEntry
	}

	labelChunks, err := archive.rawChunks(ctx, labelEntries)
	if err != nil {
		return nil, err
	}

	view := &NodeView{
		Content: text.String(),
		Edges:   make([]EdgeView, 0, len(edges)),
	}
	for i, edge := range edges {
		label, err := decodeContent(labelChunks[i])
		if err != nil {
			return nil, err
		}
		destination := archive.position(ChunkNode, edge.Destination)
		if destination < 0 {
			return nil, parseErrorf("edge destination node not found")
		}
		view.Edges = append(view.Edges, EdgeView{
			Label:       label.Text,
			Destination: destination,
		})
	}
	return view, nil
}

// selectContent applies the guard evaluator to a content sequence and
// resolves the surviving ids to Content entries, preserving order.
func (archive *Archive) selectContent(sequence []ContentRef) ([]IndexEntry, error) {
	selected := make([]IndexEntry, 0, len(sequence))
	for _, reference := range sequence {
		if reference.Guard != nil && !archive.guards.Evaluate(reference.Guard.FunctionID, reference.Guard.Argument) {
			continue
		}
		contentEntry, ok := archive.find(ChunkContent, reference.Content)
		if !ok {
			return nil, parseErrorf("content chunk not found")
		}
		selected = append(selected, contentEntry)
	}
	return selected, nil
}

// RootPosition reads the root pointer Metadata chunk and returns the
// index position of the root node.
func (archive *Archive) RootPosition(ctx context.Context) (int, error) {
	entry, ok := archive.find(ChunkMetadata, RootPointerID)
	if !ok {
		return 0, ErrMissingRoot
	}
	raw, err := archive.rawChunk(ctx, entry)
	if err != nil {
		return 0, err
	}
	payload, err := chunkPayload(raw)
	if err != nil {
		return 0, err
	}
	rootID, err := ParseRootPointer(payload)
	if err != nil {
		return 0, err
	}
	position := archive.position(ChunkNode, rootID)
	if position < 0 {
		return 0, parseErrorf("root node chunk not found")
	}
	return position, nil
}

// LoadRoot loads the node named by the root pointer. The result equals
// LoadNode at RootPosition.
func (archive *Archive) LoadRoot(ctx context.Context) (*NodeView, error) {
	position, err := archive.RootPosition(ctx)
	if err != nil {
		return nil, err
	}
	return archive.LoadNode(ctx, position)
}

func decodeContent(raw []byte) (*Content, error) {
	payload, err := chunkPayload(raw)
	if err != nil {
		return nil, err
	}
	return ParseContent(payload)
}
