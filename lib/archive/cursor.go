// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package archive

import "encoding/binary"

// cursor reads little-endian fields from a byte slice. The first
// overrun latches a parse error; later reads return zero values, so
// callers can decode a whole record and check err once at the end.
type cursor struct {
	data     []byte
	position int
	err      error
}

func newCursor(data []byte) *cursor {
	return &cursor{data: data}
}

// take returns the next length bytes, or nil after an overrun. The
// returned slice aliases the input.
func (reader *cursor) take(length int) []byte {
	if reader.err != nil {
		return nil
	}
	if length < 0 || length > len(reader.data)-reader.position {
		reader.err = parseErrorf("unexpected end of data")
		return nil
	}
	field := reader.data[reader.position : reader.position+length]
	reader.position += length
	return field
}

func (reader *cursor) skip(length int) {
	reader.take(length)
}

func (reader *cursor) u8() uint8 {
	field := reader.take(1)
	if field == nil {
		return 0
	}
	return field[0]
}

func (reader *cursor) u16() uint16 {
	field := reader.take(2)
	if field == nil {
		return 0
	}
	return binary.LittleEndian.Uint16(field)
}

func (reader *cursor) u32() uint32 {
	field := reader.take(4)
	if field == nil {
		return 0
	}
	return binary.LittleEndian.Uint32(field)
}

func (reader *cursor) u64() uint64 {
	field := reader.take(8)
	if field == nil {
		return 0
	}
	return binary.LittleEndian.Uint64(field)
}

func (reader *cursor) chunkID() ChunkID {
	var id ChunkID
	copy(id[:], reader.take(3))
	return id
}

// shortString reads a u8 length prefix followed by that many bytes.
func (reader *cursor) shortString() string {
	return string(reader.take(int(reader.u8())))
}

// string16 reads a u16 length prefix followed by that many bytes.
func (reader *cursor) string16() string {
	return string(reader.take(int(reader.u16())))
}

// fail latches a parse error if none is set yet.
func (reader *cursor) fail(reason string) {
	if reader.err == nil {
		reader.err = parseErrorf("%s", reason)
	}
}
