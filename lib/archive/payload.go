// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package archive

import "unicode/utf8"

// ParseNode decodes a decompressed node payload. Tags and entry
// functions are skipped. Guard arguments are sliced out of payload
// itself, so the returned Node aliases payload.
func ParseNode(payload []byte) (*Node, error) {
	reader := newCursor(payload)
	node := &Node{
		ID:              reader.string16(),
		DefaultLanguage: reader.shortString(),
	}

	tagCount := int(reader.u16())
	for i := 0; i < tagCount && reader.err == nil; i++ {
		reader.skip(int(reader.u8()))
		reader.skip(int(reader.u8()))
	}

	entryFunctionCount := int(reader.u16())
	reader.skip(entryFunctionCount * guardRecordLength)

	edgeCount := int(reader.u16())
	if reader.err == nil {
		node.Edges = make([]ChunkID, 0, edgeCount)
	}
	for i := 0; i < edgeCount && reader.err == nil; i++ {
		node.Edges = append(node.Edges, reader.chunkID())
	}

	translationCount := int(reader.u16())
	for i := 0; i < translationCount && reader.err == nil; i++ {
		node.Translations = append(node.Translations, Translation{
			Language: reader.shortString(),
			Content:  reader.chunkID(),
		})
	}

	sequenceCount := int(reader.u16())
	if reader.err == nil {
		node.Sequence = make([]ContentRef, 0, sequenceCount)
	}
	for i := 0; i < sequenceCount && reader.err == nil; i++ {
		var reference ContentRef
		if reader.u8() != 0 {
			functionID := reader.u32()
			argumentOffset := uint64(reader.u32())
			argumentLength := uint64(reader.u32())
			if reader.err == nil && argumentOffset+argumentLength > uint64(len(payload)) {
				reader.fail("guard argument out of bounds")
			}
			if reader.err == nil {
				reference.Guard = &Guard{
					FunctionID: functionID,
					Argument:   payload[argumentOffset : argumentOffset+argumentLength],
				}
			}
		} else {
			reader.skip(guardRecordLength)
		}
		reference.Content = reader.chunkID()
		node.Sequence = append(node.Sequence, reference)
	}

	if reader.err != nil {
		return nil, reader.err
	}
	return node, nil
}

// ParseEdge decodes a decompressed edge payload. Guards are skipped;
// of the labels only the first is returned. An edge without labels is
// a parse error.
func ParseEdge(payload []byte) (*Edge, error) {
	reader := newCursor(payload)
	edge := &Edge{
		ID:          reader.string16(),
		Source:      reader.chunkID(),
		Destination: reader.chunkID(),
	}
	guardCount := int(reader.u16())
	reader.skip(guardCount * guardRecordLength)

	labelCount := reader.u16()
	if reader.err == nil && labelCount == 0 {
		reader.fail("No edge labels")
	}
	edge.Label = Label{
		Language: reader.shortString(),
		Content:  reader.chunkID(),
	}

	if reader.err != nil {
		return nil, reader.err
	}
	return edge, nil
}

// ParseContent decodes a decompressed content payload. The text must
// be valid UTF-8.
func ParseContent(payload []byte) (*Content, error) {
	reader := newCursor(payload)
	id := reader.string16()
	text := reader.take(int(reader.u32()))
	if reader.err != nil {
		return nil, reader.err
	}
	if !utf8.Valid(text) {
		return nil, parseErrorf("Invalid UTF-8")
	}
	return &Content{ID: id, Text: string(text)}, nil
}

// ParseRootPointer reads the root node id from the first three bytes
// of the root pointer Metadata payload. Trailing bytes are ignored.
func ParseRootPointer(payload []byte) (ChunkID, error) {
	reader := newCursor(payload)
	id := reader.chunkID()
	if reader.err != nil {
		return ChunkID{}, reader.err
	}
	return id, nil
}
