// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package archive reads CYOA story archives: a directed content graph
// of narrative nodes and labelled edges stored as independently
// addressable chunks, fetched on demand over a byte-range transport.
//
// An archive file has four regions:
//
//	header   "CYOA" magic, 10 reserved bytes, u64 index offset (22 bytes)
//	chunks   TLV envelopes, each optionally zstd-compressed
//	index    u32 count, then 16-byte entries (type, id, offset, length)
//
// [Open] probes the resource, reads the header and the index, and
// returns an [Archive] whose index is immutable for its lifetime.
// Nothing else is downloaded until a node is requested. [Archive.LoadNode]
// fetches the node chunk, the content chunks its sequence references,
// the edge chunks it points to, and the label content of each edge,
// batching each group into concurrent range requests. Fetched chunks
// are kept in a bounded LRU [ChunkCache] keyed by (type, id), so
// revisiting a node costs no network traffic.
//
// The parser functions ([ParseHeader], [ParseIndex], [ParseEnvelope],
// [ParseNode], [ParseEdge], [ParseContent], [ParseRootPointer]) are
// pure: they read a byte slice through a bounds-checked cursor and
// return a [*ParseError] on any overrun or structural inconsistency.
// No partial results are returned.
//
// Guarded content is filtered through a [GuardEvaluator] supplied by
// the caller. The default, [DenyGuards], excludes every guarded entry.
//
// Errors are sentinels ([ErrRangeUnsupported], [ErrInvalidMagic],
// [ErrIndexOutOfRange], [ErrMissingRoot]) or typed ([*ParseError],
// transport.StatusError, transport.Error), and [Classify] maps any error returned by
// this package onto an [ErrorKind].
//
// The package never writes archives. Tests build synthetic archives
// with the archivetest subpackage.
package archive
