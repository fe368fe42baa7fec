// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package archive

import (
	"bytes"
	"context"
	"fmt"

	"github.com/bureau-foundation/cyoa/lib/transport"
)

// rawChunk returns the raw bytes (envelope and payload) of one chunk,
// from the cache when present.
func (archive *Archive) rawChunk(ctx context.Context, entry IndexEntry) ([]byte, error) {
	chunks, err := archive.rawChunks(ctx, []IndexEntry{entry})
	if err != nil {
		return nil, err
	}
	return chunks[0], nil
}

// rawChunks returns the raw bytes of each entry in request order.
// Cache hits are served directly; misses are fetched as one concurrent
// batch, one request per distinct chunk, and added to the cache before
// returning.
func (archive *Archive) rawChunks(ctx context.Context, entries []IndexEntry) ([][]byte, error) {
	results := make([][]byte, len(entries))
	var missing []IndexEntry
	pending := make(map[ChunkKey]int)
	waiting := make(map[int]int)
	for i, entry := range entries {
		if slot, ok := pending[entry.Key()]; ok {
			waiting[i] = slot
			continue
		}
		if data, ok := archive.cache.Get(entry.Key()); ok {
			results[i] = data
			continue
		}
		pending[entry.Key()] = len(missing)
		waiting[i] = len(missing)
		missing = append(missing, entry)
	}
	if len(missing) == 0 {
		return results, nil
	}

	archive.logger.Debug("fetching chunks",
		"requested", len(entries),
		"missing", len(missing),
	)

	var fetched [][]byte
	var err error
	if archive.supportsRanges {
		fetched, err = archive.fetchRanges(ctx, missing)
	} else {
		fetched, err = archive.fetchFromWhole(ctx, missing)
	}
	if err != nil {
		return nil, err
	}

	for slot, entry := range missing {
		archive.cache.Add(entry.Key(), fetched[slot])
	}
	for i, slot := range waiting {
		results[i] = fetched[slot]
	}
	return results, nil
}

// fetchRanges fetches the chunk range of each missing entry.
func (archive *Archive) fetchRanges(ctx context.Context, missing []IndexEntry) ([][]byte, error) {
	ranges := make([]transport.Range, len(missing))
	for i, entry := range missing {
		if entry.Length == 0 {
			return nil, parseErrorf("empty chunk")
		}
		ranges[i] = transport.ChunkRange(entry.Offset, entry.Length)
	}
	var fetched [][]byte
	var err error
	if archive.coalesceGap >= 0 {
		fetched, err = transport.FetchCoalesced(ctx, archive.transport, archive.path, ranges, uint64(archive.coalesceGap))
	} else {
		fetched, err = transport.FetchMany(ctx, archive.transport, archive.path, ranges)
	}
	if err != nil {
		return nil, fmt.Errorf("fetching chunks: %w", err)
	}
	return fetched, nil
}

// fetchFromWhole serves a transport without range support: the whole
// resource is fetched once and each chunk is cut out of it. A buffer
// too short to hold the chunk is used as the chunk itself.
func (archive *Archive) fetchFromWhole(ctx context.Context, missing []IndexEntry) ([][]byte, error) {
	whole, err := archive.transport.FetchWhole(ctx, archive.path)
	if err != nil {
		return nil, fmt.Errorf("fetching %s: %w", archive.path, err)
	}
	fetched := make([][]byte, len(missing))
	for i, entry := range missing {
		end := entry.Offset + uint64(entry.Length)
		if end <= uint64(len(whole)) {
			// Copy so the cache does not pin the whole resource.
			fetched[i] = bytes.Clone(whole[entry.Offset:end])
		} else {
			fetched[i] = whole
		}
	}
	return fetched, nil
}
