// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package archive

import (
	"context"
	"encoding/hex"
	"fmt"
	"log/slog"

	"github.com/zeebo/blake3"

	"github.com/bureau-foundation/cyoa/lib/transport"
)

// OpenConfig holds the parameters for [Open].
type OpenConfig struct {
	// Transport fetches archive bytes. Required.
	Transport transport.Transport

	// Path locates the archive on the transport. A leading "/" is
	// added when missing.
	Path string

	// CacheCapacity bounds the number of raw chunks kept in memory.
	// Zero means DefaultCacheCapacity.
	CacheCapacity int

	// Guards evaluates guarded content entries. Nil means DenyGuards.
	Guards GuardEvaluator

	// CoalesceGap enables range coalescing for batched fetches when
	// non-negative: ranges separated by at most this many bytes share
	// one request. Negative disables coalescing.
	CoalesceGap int64

	// Logger receives debug events. Nil discards them.
	Logger *slog.Logger
}

// Archive is an open archive: its immutable index plus the cache of
// chunks fetched so far. Methods are safe for concurrent use.
type Archive struct {
	transport      transport.Transport
	path           string
	size           uint64
	supportsRanges bool
	entries        []IndexEntry
	positions      map[ChunkKey]int
	fingerprint    string
	cache          *ChunkCache
	guards         GuardEvaluator
	coalesceGap    int64
	logger         *slog.Logger
}

// Open probes the resource, fetches and validates the header, and
// fetches and parses the index. No chunk is fetched. Open fails with
// ErrRangeUnsupported when the transport cannot serve byte ranges, with
// ErrInvalidMagic when the resource is not an archive, and with
// ErrIndexOutOfRange when the header points past the end.
func Open(ctx context.Context, config OpenConfig) (*Archive, error) {
	if config.Transport == nil {
		return nil, fmt.Errorf("opening archive: transport is required")
	}
	capacity := config.CacheCapacity
	if capacity == 0 {
		capacity = DefaultCacheCapacity
	}
	cache, err := NewChunkCache(capacity)
	if err != nil {
		return nil, fmt.Errorf("opening archive: %w", err)
	}
	guards := config.Guards
	if guards == nil {
		guards = DenyGuards
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	path := transport.NormalizePath(config.Path)

	probe, err := config.Transport.Probe(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("probing %s: %w", path, err)
	}
	if !probe.SupportsRanges {
		return nil, ErrRangeUnsupported
	}

	header, err := config.Transport.FetchRange(ctx, path, transport.ChunkRange(0, HeaderLength))
	if err != nil {
		return nil, fmt.Errorf("fetching header: %w", err)
	}
	indexOffset, err := ParseHeader(header)
	if err != nil {
		return nil, err
	}
	if indexOffset >= probe.Size {
		return nil, ErrIndexOutOfRange
	}

	indexBlob, err := config.Transport.FetchRange(ctx, path, transport.From(indexOffset))
	if err != nil {
		return nil, fmt.Errorf("fetching index: %w", err)
	}
	entries, err := ParseIndex(indexBlob)
	if err != nil {
		return nil, fmt.Errorf("parsing index: %w", err)
	}

	archive := &Archive{
		transport:      config.Transport,
		path:           path,
		size:           probe.Size,
		supportsRanges: probe.SupportsRanges,
		entries:        entries,
		positions:      indexPositions(entries),
		fingerprint:    fingerprint(header, indexBlob),
		cache:          cache,
		guards:         guards,
		coalesceGap:    config.CoalesceGap,
		logger:         logger.With("archive", path),
	}
	archive.logger.Debug("archive opened",
		"size", archive.size,
		"entries", len(entries),
		"fingerprint", archive.fingerprint,
	)
	return archive, nil
}

// fingerprint hashes the header and index bytes. Two archives with the
// same fingerprint have the same graph layout; it is an identity for
// save files, not an integrity check of chunk contents.
func fingerprint(header, index []byte) string {
	hasher := blake3.New()
	hasher.Write(header)
	hasher.Write(index)
	return hex.EncodeToString(hasher.Sum(nil))
}

// ChunkIDs returns the id of every index entry as six uppercase hex
// characters, in index order.
func (archive *Archive) ChunkIDs() []string {
	ids := make([]string, len(archive.entries))
	for i, entry := range archive.entries {
		ids[i] = entry.ID.String()
	}
	return ids
}

// Entries returns a copy of the index.
func (archive *Archive) Entries() []IndexEntry {
	entries := make([]IndexEntry, len(archive.entries))
	copy(entries, archive.entries)
	return entries
}

// Size is the resource length reported by the probe.
func (archive *Archive) Size() uint64 {
	return archive.size
}

// SupportsRanges reports whether the transport honors byte ranges.
// Always true for an archive returned by Open.
func (archive *Archive) SupportsRanges() bool {
	return archive.supportsRanges
}

// Path is the normalized resource path.
func (archive *Archive) Path() string {
	return archive.path
}

// Fingerprint is the hex BLAKE3 digest of the header and index bytes.
func (archive *Archive) Fingerprint() string {
	return archive.fingerprint
}

// CacheStats reports chunk cache activity.
func (archive *Archive) CacheStats() CacheStats {
	return archive.cache.Stats()
}

// find returns the first entry of the given type and id.
func (archive *Archive) find(chunkType ChunkType, id ChunkID) (IndexEntry, bool) {
	position := archive.position(chunkType, id)
	if position < 0 {
		return IndexEntry{}, false
	}
	return archive.entries[position], true
}

// position returns the index position of the first entry of the given
// type and id, or -1.
func (archive *Archive) position(chunkType ChunkType, id ChunkID) int {
	position, ok := archive.positions[ChunkKey{Type: chunkType, ID: id}]
	if !ok {
		return -1
	}
	return position
}

// indexPositions maps each key to the position of its first entry.
func indexPositions(entries []IndexEntry) map[ChunkKey]int {
	positions := make(map[ChunkKey]int, len(entries))
	for position, entry := range entries {
		if _, seen := positions[entry.Key()]; !seen {
			positions[entry.Key()] = position
		}
	}
	return positions
}
