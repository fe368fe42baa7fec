// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package archive

import (
	"encoding/hex"
	"fmt"
	"strings"
)

// Magic is the four-byte signature at offset 0 of every archive.
var Magic = [4]byte{'C', 'Y', 'O', 'A'}

// Layout constants. These are protocol constants: changing any of
// them breaks compatibility with every archive produced so far.
const (
	// HeaderLength is the size of the fixed archive header: magic (4),
	// reserved (10), index offset (8).
	HeaderLength = 22

	// headerReservedLength is the gap between the magic and the index
	// offset. The bytes are ignored on read.
	headerReservedLength = 10

	// IndexEntryLength is the size of one index entry: type (1),
	// id (3), offset (8), length (4).
	IndexEntryLength = 16

	// envelopeBaseLength is the envelope size for an uncompressed
	// chunk: type (1), id (3), flags (1), compressed length (4).
	envelopeBaseLength = 9

	// envelopeCompressedLength adds the u32 uncompressed length that
	// only compressed envelopes carry.
	envelopeCompressedLength = 13

	// guardRecordLength is the size of one guard record in node entry
	// functions, edge guards, and content sequence entries.
	guardRecordLength = 12
)

// FlagCompressed is bit 0 of the envelope flags byte. When set, the
// payload is a zstd frame and the envelope carries the uncompressed
// length.
const FlagCompressed uint8 = 0x01

// ChunkType is the one-byte discriminant of an index entry and of a
// chunk envelope.
type ChunkType uint8

const (
	ChunkNode        ChunkType = 0x01
	ChunkEdge        ChunkType = 0x02
	ChunkContent     ChunkType = 0x03
	ChunkMetadata    ChunkType = 0x04
	ChunkArgBlobPool ChunkType = 0xFD
	ChunkWasmTable   ChunkType = 0xFE
)

// String returns the lowercase name of a chunk type.
func (chunkType ChunkType) String() string {
	switch chunkType {
	case ChunkNode:
		return "node"
	case ChunkEdge:
		return "edge"
	case ChunkContent:
		return "content"
	case ChunkMetadata:
		return "metadata"
	case ChunkArgBlobPool:
		return "arg_blob_pool"
	case ChunkWasmTable:
		return "wasm_table"
	default:
		return fmt.Sprintf("unknown(0x%02x)", uint8(chunkType))
	}
}

// parseChunkType validates a raw discriminant byte. ArgBlobPool and
// WasmTable are accepted but never read by the resolver.
func parseChunkType(value uint8) (ChunkType, error) {
	switch chunkType := ChunkType(value); chunkType {
	case ChunkNode, ChunkEdge, ChunkContent, ChunkMetadata, ChunkArgBlobPool, ChunkWasmTable:
		return chunkType, nil
	default:
		return 0, parseErrorf("Unknown chunk type")
	}
}

// ChunkID is the 3-byte identifier of a chunk. Ids are unique per
// chunk type, not across types.
type ChunkID [3]byte

// RootPointerID is the id of the Metadata chunk whose payload names
// the root node.
var RootPointerID = ChunkID{0x00, 0x00, 0x01}

// String renders the id as six uppercase hex characters, the form
// used by [Archive.ChunkIDs].
func (id ChunkID) String() string {
	return strings.ToUpper(hex.EncodeToString(id[:]))
}

// ParseChunkID parses the six-hex-character form produced by
// [ChunkID.String]. Case is ignored.
func ParseChunkID(text string) (ChunkID, error) {
	var id ChunkID
	if len(text) != 6 {
		return id, fmt.Errorf("chunk id %q: want 6 hex characters", text)
	}
	if _, err := hex.Decode(id[:], []byte(text)); err != nil {
		return id, fmt.Errorf("chunk id %q: %w", text, err)
	}
	return id, nil
}

// MarshalText encodes the id in its hex form so ids read naturally in
// JSON and CBOR output.
func (id ChunkID) MarshalText() ([]byte, error) {
	return []byte(id.String()), nil
}

// UnmarshalText is the inverse of [ChunkID.MarshalText].
func (id *ChunkID) UnmarshalText(text []byte) error {
	parsed, err := ParseChunkID(string(text))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

// ChunkKey identifies a chunk across types. It is the cache key.
type ChunkKey struct {
	Type ChunkType
	ID   ChunkID
}

// String renders the key as "type/ID".
func (key ChunkKey) String() string {
	return key.Type.String() + "/" + key.ID.String()
}

// IndexEntry locates one chunk inside the archive. Length covers the
// whole chunk: envelope plus payload.
type IndexEntry struct {
	Type   ChunkType
	ID     ChunkID
	Offset uint64
	Length uint32
}

// Key returns the cache key of the entry.
func (entry IndexEntry) Key() ChunkKey {
	return ChunkKey{Type: entry.Type, ID: entry.ID}
}

// Node is a decoded node payload. Tags and entry functions are
// skipped during parsing and not retained.
type Node struct {
	ID              string
	DefaultLanguage string
	Edges           []ChunkID
	Translations    []Translation
	Sequence        []ContentRef
}

// Translation maps a language tag to a content chunk. Translations
// are decoded so the content sequence can be located but are not
// used to assemble node text.
type Translation struct {
	Language string
	Content  ChunkID
}

// ContentRef is one entry of a node's content sequence.
type ContentRef struct {
	Guard   *Guard
	Content ChunkID
}

// Guard is a guard-function invocation attached to a content entry.
// Argument aliases the decompressed node payload and must not be
// modified.
type Guard struct {
	FunctionID uint32
	Argument   []byte
}

// Edge is a decoded edge payload. Only the first label is kept.
type Edge struct {
	ID          string
	Source      ChunkID
	Destination ChunkID
	Label       Label
}

// Label is the localized caption of an edge.
type Label struct {
	Language string
	Content  ChunkID
}

// Content is a decoded content payload.
type Content struct {
	ID   string
	Text string
}
