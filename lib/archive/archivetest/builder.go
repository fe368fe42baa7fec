// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package archivetest builds synthetic CYOA archives and serves them
// over HTTP for tests. Production code never writes archives; this
// package exists so tests can describe a story graph in a few lines
// and get exact bytes back.
//
// A Builder allocates chunk ids per type, so ids of different chunk
// types overlap numerically. That is deliberate test coverage for
// consumers that must key chunks by (type, id).
package archivetest

import (
	"encoding/binary"

	"github.com/klauspost/compress/zstd"

	"github.com/bureau-foundation/cyoa/lib/archive"
)

var zstdEncoder *zstd.Encoder

func init() {
	var err error
	zstdEncoder, err = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		panic("archivetest: zstd encoder initialization failed: " + err.Error())
	}
}

// Node describes a node payload.
type Node struct {
	// Name is the payload's string id. Defaults to "node".
	Name string

	// Language is the default language tag. Defaults to "en".
	Language string

	// Tags are key/value pairs written and skipped by the parser.
	Tags [][2]string

	// EntryFunctions is the number of 12-byte entry-function records.
	EntryFunctions int

	Edges        []archive.ChunkID
	Translations []archive.Translation
	Sequence     []Entry
}

// Entry is one content-sequence entry. A nil Guard writes an
// unguarded entry.
type Entry struct {
	Content archive.ChunkID
	Guard   *Guard
}

// Guard is a guard record; Argument is appended to the node payload
// and referenced by offset.
type Guard struct {
	FunctionID uint32
	Argument   []byte
}

// Chunk is one chunk of a built archive. Raw, when set, replaces the
// encoded envelope and payload entirely (for malformed-chunk tests).
type Chunk struct {
	Type       archive.ChunkType
	ID         archive.ChunkID
	Payload    []byte
	Compressed bool
	Raw        []byte
}

// Builder accumulates chunks and emits archive bytes. The index lists
// chunks in the order they were added, so node positions are
// predictable.
type Builder struct {
	// Compress zstd-compresses every chunk added after it is set.
	Compress bool

	// IndexOffset, when non-zero, overrides the header's index
	// offset.
	IndexOffset uint64

	chunks []Chunk
	next   map[archive.ChunkType]uint32
}

// NewBuilder returns an empty builder.
func NewBuilder() *Builder {
	return &Builder{next: make(map[archive.ChunkType]uint32)}
}

// NextID allocates a fresh id for chunkType without adding a chunk.
// Use it to create cycles: allocate a node id, reference it from an
// edge, then add the node with [Builder.NodeWithID].
func (builder *Builder) NextID(chunkType archive.ChunkType) archive.ChunkID {
	builder.next[chunkType]++
	value := 0x000100 + builder.next[chunkType]
	return archive.ChunkID{byte(value >> 16), byte(value >> 8), byte(value)}
}

// Add appends a chunk as given.
func (builder *Builder) Add(chunk Chunk) {
	builder.chunks = append(builder.chunks, chunk)
}

// Content adds a content chunk holding text and returns its id.
func (builder *Builder) Content(text string) archive.ChunkID {
	id := builder.NextID(archive.ChunkContent)
	builder.add(archive.ChunkContent, id, EncodeContent("content", text))
	return id
}

// Edge adds an edge chunk with a single label and returns its id.
func (builder *Builder) Edge(source, destination, label archive.ChunkID) archive.ChunkID {
	id := builder.NextID(archive.ChunkEdge)
	builder.add(archive.ChunkEdge, id, EncodeEdge("edge", source, destination, 0, []archive.Label{{Language: "en", Content: label}}))
	return id
}

// Node adds a node chunk under a fresh id and returns it.
func (builder *Builder) Node(node Node) archive.ChunkID {
	id := builder.NextID(archive.ChunkNode)
	builder.NodeWithID(id, node)
	return id
}

// NodeWithID adds a node chunk under an id from [Builder.NextID].
func (builder *Builder) NodeWithID(id archive.ChunkID, node Node) {
	builder.add(archive.ChunkNode, id, EncodeNode(node))
}

// Root adds the root pointer Metadata chunk naming node.
func (builder *Builder) Root(node archive.ChunkID) {
	builder.add(archive.ChunkMetadata, archive.RootPointerID, node[:])
}

// Position returns the index position of the first chunk with the
// given type and id, or -1.
func (builder *Builder) Position(chunkType archive.ChunkType, id archive.ChunkID) int {
	for position, chunk := range builder.chunks {
		if chunk.Type == chunkType && chunk.ID == id {
			return position
		}
	}
	return -1
}

// Layout returns the index entries the built archive will contain.
func (builder *Builder) Layout() []archive.IndexEntry {
	entries, _ := builder.layout()
	return entries
}

// Bytes encodes the archive: header, chunks, then index.
func (builder *Builder) Bytes() []byte {
	entries, encoded := builder.layout()

	var body []byte
	for _, chunk := range encoded {
		body = append(body, chunk...)
	}
	indexOffset := uint64(archive.HeaderLength + len(body))
	if builder.IndexOffset != 0 {
		indexOffset = builder.IndexOffset
	}

	data := make([]byte, 0, archive.HeaderLength+len(body)+4+len(entries)*archive.IndexEntryLength)
	data = append(data, archive.Magic[:]...)
	data = append(data, make([]byte, 10)...)
	data = binary.LittleEndian.AppendUint64(data, indexOffset)
	data = append(data, body...)
	data = append(data, EncodeIndex(entries)...)
	return data
}

func (builder *Builder) add(chunkType archive.ChunkType, id archive.ChunkID, payload []byte) {
	builder.chunks = append(builder.chunks, Chunk{
		Type:       chunkType,
		ID:         id,
		Payload:    payload,
		Compressed: builder.Compress,
	})
}

func (builder *Builder) layout() ([]archive.IndexEntry, [][]byte) {
	entries := make([]archive.IndexEntry, len(builder.chunks))
	encoded := make([][]byte, len(builder.chunks))
	offset := uint64(archive.HeaderLength)
	for i, chunk := range builder.chunks {
		raw := chunk.Raw
		if raw == nil {
			raw = EncodeChunk(chunk.Type, chunk.ID, chunk.Payload, chunk.Compressed)
		}
		encoded[i] = raw
		entries[i] = archive.IndexEntry{
			Type:   chunk.Type,
			ID:     chunk.ID,
			Offset: offset,
			Length: uint32(len(raw)),
		}
		offset += uint64(len(raw))
	}
	return entries, encoded
}

// EncodeIndex encodes index entries with their u32 count prefix.
func EncodeIndex(entries []archive.IndexEntry) []byte {
	data := binary.LittleEndian.AppendUint32(nil, uint32(len(entries)))
	for _, entry := range entries {
		data = append(data, byte(entry.Type))
		data = append(data, entry.ID[:]...)
		data = binary.LittleEndian.AppendUint64(data, entry.Offset)
		data = binary.LittleEndian.AppendUint32(data, entry.Length)
	}
	return data
}

// EncodeChunk wraps payload in an envelope, compressing it when
// compressed is set.
func EncodeChunk(chunkType archive.ChunkType, id archive.ChunkID, payload []byte, compressed bool) []byte {
	data := []byte{byte(chunkType)}
	data = append(data, id[:]...)
	if !compressed {
		data = append(data, 0)
		data = binary.LittleEndian.AppendUint32(data, uint32(len(payload)))
		return append(data, payload...)
	}
	frame := zstdEncoder.EncodeAll(payload, nil)
	data = append(data, archive.FlagCompressed)
	data = binary.LittleEndian.AppendUint32(data, uint32(len(frame)))
	data = binary.LittleEndian.AppendUint32(data, uint32(len(payload)))
	return append(data, frame...)
}

// CompressFrame returns payload as a zstd frame.
func CompressFrame(payload []byte) []byte {
	return zstdEncoder.EncodeAll(payload, nil)
}

// EncodeContent encodes a content payload.
func EncodeContent(name, text string) []byte {
	data := appendString16(nil, name)
	data = binary.LittleEndian.AppendUint32(data, uint32(len(text)))
	return append(data, text...)
}

// EncodeEdge encodes an edge payload with guardCount zeroed guard
// records. An empty labels slice encodes a label count of zero.
func EncodeEdge(name string, source, destination archive.ChunkID, guardCount int, labels []archive.Label) []byte {
	data := appendString16(nil, name)
	data = append(data, source[:]...)
	data = append(data, destination[:]...)
	data = binary.LittleEndian.AppendUint16(data, uint16(guardCount))
	data = append(data, make([]byte, guardCount*12)...)
	data = binary.LittleEndian.AppendUint16(data, uint16(len(labels)))
	for _, label := range labels {
		data = appendString8(data, label.Language)
		data = append(data, label.Content[:]...)
	}
	return data
}

// EncodeNode encodes a node payload. Guard arguments are appended
// after the content sequence and referenced by offset.
func EncodeNode(node Node) []byte {
	fixed := encodeNodeFixed(node, 0)
	data := encodeNodeFixed(node, uint32(len(fixed)))
	for _, entry := range node.Sequence {
		if entry.Guard != nil {
			data = append(data, entry.Guard.Argument...)
		}
	}
	return data
}

func encodeNodeFixed(node Node, argumentBase uint32) []byte {
	name := node.Name
	if name == "" {
		name = "node"
	}
	language := node.Language
	if language == "" {
		language = "en"
	}
	data := appendString16(nil, name)
	data = appendString8(data, language)
	data = binary.LittleEndian.AppendUint16(data, uint16(len(node.Tags)))
	for _, tag := range node.Tags {
		data = appendString8(data, tag[0])
		data = appendString8(data, tag[1])
	}
	data = binary.LittleEndian.AppendUint16(data, uint16(node.EntryFunctions))
	data = append(data, make([]byte, node.EntryFunctions*12)...)
	data = binary.LittleEndian.AppendUint16(data, uint16(len(node.Edges)))
	for _, edge := range node.Edges {
		data = append(data, edge[:]...)
	}
	data = binary.LittleEndian.AppendUint16(data, uint16(len(node.Translations)))
	for _, translation := range node.Translations {
		data = appendString8(data, translation.Language)
		data = append(data, translation.Content[:]...)
	}
	data = binary.LittleEndian.AppendUint16(data, uint16(len(node.Sequence)))
	argumentOffset := argumentBase
	for _, entry := range node.Sequence {
		if entry.Guard == nil {
			data = append(data, 0)
			data = append(data, make([]byte, 12)...)
		} else {
			data = append(data, 1)
			data = binary.LittleEndian.AppendUint32(data, entry.Guard.FunctionID)
			data = binary.LittleEndian.AppendUint32(data, argumentOffset)
			data = binary.LittleEndian.AppendUint32(data, uint32(len(entry.Guard.Argument)))
			argumentOffset += uint32(len(entry.Guard.Argument))
		}
		data = append(data, entry.Content[:]...)
	}
	return data
}

func appendString8(data []byte, value string) []byte {
	data = append(data, byte(len(value)))
	return append(data, value...)
}

func appendString16(data []byte, value string) []byte {
	data = binary.LittleEndian.AppendUint16(data, uint16(len(value)))
	return append(data, value...)
}
