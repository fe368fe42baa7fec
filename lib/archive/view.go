// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package archive

// NodeView is a resolved node: its assembled text and its outgoing
// choices in the order the node lists them.
type NodeView struct {
	Content string     `json:"content"`
	Edges   []EdgeView `json:"edges"`
}

// EdgeView is one outgoing choice. Destination is the index position
// of the target node, suitable for [Archive.LoadNode].
type EdgeView struct {
	Label       string `json:"label"`
	Destination int    `json:"dest_idx"`
}
