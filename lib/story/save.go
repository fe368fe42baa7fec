// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package story

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"maps"
	"slices"

	"github.com/pierrec/lz4/v4"

	"github.com/bureau-foundation/cyoa/lib/codec"
	"github.com/bureau-foundation/cyoa/lib/netutil"
)

// Save file layout:
//
//	magic        4 bytes  "CYSV"
//	version      u8
//	compression  u8       saveCompressionNone or saveCompressionLZ4
//	size         u32 LE   length of the CBOR snapshot
//	body                  the snapshot, LZ4 block compressed or raw
const (
	saveMagic         = "CYSV"
	saveHeaderLength  = 10
	saveFormatVersion = 1

	saveCompressionNone uint8 = 0
	saveCompressionLZ4  uint8 = 1

	// maxSnapshotSize bounds the declared snapshot size so a corrupt
	// header cannot force a huge allocation.
	maxSnapshotSize = 64 << 20
)

var (
	// ErrFingerprintMismatch is returned by Restore when the save was
	// made against a different archive.
	ErrFingerprintMismatch = errors.New("save belongs to a different archive")

	// ErrInvalidSave is returned for data that is not a save file.
	ErrInvalidSave = errors.New("invalid save file")
)

// Snapshot is the persisted state of a session.
type Snapshot struct {
	Fingerprint string      `cbor:"fingerprint" json:"fingerprint"`
	Path        []int       `cbor:"path" json:"path"`
	Visits      map[int]int `cbor:"visits" json:"visits"`
	Choices     int         `cbor:"choices" json:"choices"`
	Backtracks  int         `cbor:"backtracks,omitempty" json:"backtracks,omitempty"`
}

// Snapshot captures the session state. It fails before Start.
func (session *Session) Snapshot() (Snapshot, error) {
	session.mutex.Lock()
	defer session.mutex.Unlock()
	if len(session.path) == 0 {
		return Snapshot{}, ErrNotStarted
	}
	return Snapshot{
		Fingerprint: session.loader.Fingerprint(),
		Path:        slices.Clone(session.path),
		Visits:      maps.Clone(session.visits),
		Choices:     session.choices,
		Backtracks:  session.backtracks,
	}, nil
}

// Save writes the session state to writer.
func (session *Session) Save(writer io.Writer) error {
	snapshot, err := session.Snapshot()
	if err != nil {
		return err
	}
	data, err := EncodeSnapshot(snapshot)
	if err != nil {
		return err
	}
	if _, err := writer.Write(data); err != nil {
		return fmt.Errorf("writing save: %w", err)
	}
	return nil
}

// Restore replaces the session state with a save read from reader.
// Every position on the saved path is loaded before the state is
// replaced, so a failed restore leaves the session as it was.
func (session *Session) Restore(ctx context.Context, reader io.Reader) error {
	data, err := netutil.ReadLimited(reader, saveHeaderLength+maxSnapshotSize)
	if err != nil {
		return fmt.Errorf("reading save: %w", err)
	}
	snapshot, err := DecodeSnapshot(data)
	if err != nil {
		return err
	}
	if snapshot.Fingerprint != session.loader.Fingerprint() {
		return ErrFingerprintMismatch
	}

	session.mutex.Lock()
	defer session.mutex.Unlock()

	for _, position := range snapshot.Path {
		if _, err := session.view(ctx, position); err != nil {
			return fmt.Errorf("restoring node %d: %w", position, err)
		}
	}
	session.path = slices.Clone(snapshot.Path)
	session.visits = maps.Clone(snapshot.Visits)
	if session.visits == nil {
		session.visits = make(map[int]int)
	}
	session.choices = snapshot.Choices
	session.backtracks = snapshot.Backtracks
	session.logger.Debug("session restored",
		"position", snapshot.Path[len(snapshot.Path)-1],
		"depth", len(snapshot.Path),
	)
	return nil
}

// EncodeSnapshot serializes a snapshot into the save file format.
func EncodeSnapshot(snapshot Snapshot) ([]byte, error) {
	body, err := codec.Marshal(snapshot)
	if err != nil {
		return nil, fmt.Errorf("encoding snapshot: %w", err)
	}

	compression := saveCompressionLZ4
	compressed, ok, err := compressLZ4(body)
	if err != nil {
		return nil, err
	}
	if !ok {
		compression = saveCompressionNone
		compressed = body
	}

	output := make([]byte, saveHeaderLength, saveHeaderLength+len(compressed))
	copy(output, saveMagic)
	output[4] = saveFormatVersion
	output[5] = compression
	binary.LittleEndian.PutUint32(output[6:], uint32(len(body)))
	return append(output, compressed...), nil
}

// DecodeSnapshot parses a save file produced by EncodeSnapshot.
func DecodeSnapshot(data []byte) (Snapshot, error) {
	var snapshot Snapshot
	body, err := SnapshotBody(data)
	if err != nil {
		return snapshot, err
	}
	if err := codec.Unmarshal(body, &snapshot); err != nil {
		return snapshot, fmt.Errorf("%w: %v", ErrInvalidSave, err)
	}
	if len(snapshot.Path) == 0 {
		return snapshot, fmt.Errorf("%w: empty path", ErrInvalidSave)
	}
	return snapshot, nil
}

// SnapshotBody validates the save header and returns the decompressed
// CBOR snapshot.
func SnapshotBody(data []byte) ([]byte, error) {
	if len(data) < saveHeaderLength || !bytes.Equal(data[:4], []byte(saveMagic)) {
		return nil, ErrInvalidSave
	}
	if data[4] != saveFormatVersion {
		return nil, fmt.Errorf("%w: unsupported version %d", ErrInvalidSave, data[4])
	}
	size := binary.LittleEndian.Uint32(data[6:])
	if size > maxSnapshotSize {
		return nil, fmt.Errorf("%w: snapshot size %d exceeds limit", ErrInvalidSave, size)
	}
	body := data[saveHeaderLength:]

	switch data[5] {
	case saveCompressionNone:
		if len(body) != int(size) {
			return nil, fmt.Errorf("%w: size %d does not match body %d", ErrInvalidSave, size, len(body))
		}
		return body, nil
	case saveCompressionLZ4:
		return decompressLZ4(body, int(size))
	default:
		return nil, fmt.Errorf("%w: unknown compression %d", ErrInvalidSave, data[5])
	}
}

// compressLZ4 block-compresses data. The boolean is false when the
// data does not shrink.
func compressLZ4(data []byte) ([]byte, bool, error) {
	destination := make([]byte, lz4.CompressBlockBound(len(data)))
	written, err := lz4.CompressBlock(data, destination, nil)
	if err != nil {
		return nil, false, fmt.Errorf("lz4 compress: %w", err)
	}
	if written == 0 || written >= len(data) {
		return nil, false, nil
	}
	return destination[:written], true, nil
}

func decompressLZ4(compressed []byte, uncompressedSize int) ([]byte, error) {
	destination := make([]byte, uncompressedSize)
	read, err := lz4.UncompressBlock(compressed, destination)
	if err != nil {
		return nil, fmt.Errorf("%w: lz4 decompress: %v", ErrInvalidSave, err)
	}
	if read != uncompressedSize {
		return nil, fmt.Errorf("%w: lz4 decompress: got %d bytes, expected %d", ErrInvalidSave, read, uncompressedSize)
	}
	return destination, nil
}
