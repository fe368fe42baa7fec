// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package archive

import (
	"bytes"
	"fmt"

	"github.com/klauspost/compress/zstd"
)

// zstdDecoder is shared by every Decompress call. DecodeAll is safe
// for concurrent use.
var zstdDecoder *zstd.Decoder

func init() {
	var err error
	zstdDecoder, err = zstd.NewReader(nil, zstd.WithDecoderConcurrency(0))
	if err != nil {
		panic("archive: zstd decoder initialization failed: " + err.Error())
	}
}

// ParseHeader validates the 22-byte archive header and returns the
// index offset. A magic mismatch is [ErrInvalidMagic] regardless of
// what follows it; a short buffer with valid magic is a parse error.
func ParseHeader(data []byte) (uint64, error) {
	if len(data) < len(Magic) || !bytes.Equal(data[:len(Magic)], Magic[:]) {
		return 0, ErrInvalidMagic
	}
	reader := newCursor(data[len(Magic):])
	reader.skip(headerReservedLength)
	indexOffset := reader.u64()
	if reader.err != nil {
		return 0, reader.err
	}
	return indexOffset, nil
}

// ParseIndex decodes the index blob: a u32 entry count followed by
// that many 16-byte entries. Bytes past the last entry are ignored.
func ParseIndex(blob []byte) ([]IndexEntry, error) {
	reader := newCursor(blob)
	count := reader.u32()
	if reader.err != nil {
		return nil, reader.err
	}
	if uint64(count)*IndexEntryLength > uint64(len(blob)-4) {
		return nil, parseErrorf("index truncated")
	}

	entries := make([]IndexEntry, 0, count)
	for range count {
		rawType := reader.u8()
		id := reader.chunkID()
		offset := reader.u64()
		length := reader.u32()
		if reader.err != nil {
			return nil, reader.err
		}
		chunkType, err := parseChunkType(rawType)
		if err != nil {
			return nil, err
		}
		entries = append(entries, IndexEntry{
			Type:   chunkType,
			ID:     id,
			Offset: offset,
			Length: length,
		})
	}
	return entries, nil
}

// Envelope is the TLV header at the start of every chunk.
type Envelope struct {
	Type               ChunkType
	ID                 ChunkID
	Flags              uint8
	CompressedLength   uint32
	UncompressedLength uint32
}

// Compressed reports whether the payload is a zstd frame.
func (envelope Envelope) Compressed() bool {
	return envelope.Flags&FlagCompressed != 0
}

// Length is the encoded size of the envelope: 13 bytes when
// compressed, 9 otherwise.
func (envelope Envelope) Length() int {
	if envelope.Compressed() {
		return envelopeCompressedLength
	}
	return envelopeBaseLength
}

// ParseEnvelope decodes the envelope at the start of a raw chunk. The
// uncompressed length field is read only when the compressed flag is
// set; otherwise UncompressedLength is zero.
func ParseEnvelope(raw []byte) (Envelope, error) {
	reader := newCursor(raw)
	rawType := reader.u8()
	envelope := Envelope{
		ID:               reader.chunkID(),
		Flags:            reader.u8(),
		CompressedLength: reader.u32(),
	}
	if envelope.Compressed() {
		envelope.UncompressedLength = reader.u32()
	}
	if reader.err != nil {
		return Envelope{}, reader.err
	}
	chunkType, err := parseChunkType(rawType)
	if err != nil {
		return Envelope{}, err
	}
	envelope.Type = chunkType
	return envelope, nil
}

// Payload slices the payload that follows the envelope out of raw and
// decompresses it. The returned slice aliases raw when the chunk is
// not compressed.
func (envelope Envelope) Payload(raw []byte) ([]byte, error) {
	start := envelope.Length()
	end := uint64(start) + uint64(envelope.CompressedLength)
	if end > uint64(len(raw)) {
		return nil, parseErrorf("payload exceeds chunk")
	}
	return Decompress(envelope.Flags, raw[start:end], envelope.UncompressedLength)
}

// Decompress returns data unchanged when flags lacks
// [FlagCompressed]. Otherwise it decodes data as a zstd frame into a
// buffer sized to uncompressedLength; output shorter than declared is
// returned as produced, output longer than declared is an error.
// Decoder failures are returned wrapped, not as [*ParseError].
func Decompress(flags uint8, data []byte, uncompressedLength uint32) ([]byte, error) {
	if flags&FlagCompressed == 0 {
		return data, nil
	}
	destination := make([]byte, 0, uncompressedLength)
	result, err := zstdDecoder.DecodeAll(data, destination)
	if err != nil {
		return nil, fmt.Errorf("zstd decompress: %w", err)
	}
	if uint64(len(result)) > uint64(uncompressedLength) {
		return nil, fmt.Errorf("zstd decompress: got %d bytes, destination holds %d", len(result), uncompressedLength)
	}
	return result, nil
}

// chunkPayload parses the envelope of raw and returns its
// decompressed payload.
func chunkPayload(raw []byte) ([]byte, error) {
	envelope, err := ParseEnvelope(raw)
	if err != nil {
		return nil, err
	}
	return envelope.Payload(raw)
}
