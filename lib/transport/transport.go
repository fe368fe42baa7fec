// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package transport

import (
	"context"
	"fmt"
	"strings"
)

// Transport retrieves bytes of a named resource. Implementations must
// be safe for concurrent use: archives issue batched fetches from
// several goroutines at once.
type Transport interface {
	// Probe reports the resource size and whether byte-range requests
	// are honored.
	Probe(ctx context.Context, path string) (Probe, error)

	// FetchRange returns the bytes of one range. A non-success status
	// is a [*StatusError].
	FetchRange(ctx context.Context, path string, byteRange Range) ([]byte, error)

	// FetchWhole returns the entire resource.
	FetchWhole(ctx context.Context, path string) ([]byte, error)
}

// Probe is the result of [Transport.Probe].
type Probe struct {
	// Size is the total resource length in bytes.
	Size uint64

	// SupportsRanges is true when a range request was answered with
	// partial content.
	SupportsRanges bool
}

// Range is a byte range of a resource. End is inclusive and ignored
// when OpenEnded is set.
type Range struct {
	Start     uint64
	End       uint64
	OpenEnded bool
}

// ChunkRange returns the closed range covering length bytes starting
// at offset. Offset 100 and length 50 give bytes=100-149. A zero
// length is not a valid range; callers never request empty chunks.
func ChunkRange(offset uint64, length uint32) Range {
	return Range{Start: offset, End: offset + uint64(length) - 1}
}

// From returns the open-ended range from offset to the end of the
// resource.
func From(offset uint64) Range {
	return Range{Start: offset, OpenEnded: true}
}

// Header renders the range as an HTTP Range header value.
func (byteRange Range) Header() string {
	if byteRange.OpenEnded {
		return fmt.Sprintf("bytes=%d-", byteRange.Start)
	}
	return fmt.Sprintf("bytes=%d-%d", byteRange.Start, byteRange.End)
}

// Length is the number of bytes a closed range covers. It is zero for
// open-ended ranges.
func (byteRange Range) Length() uint64 {
	if byteRange.OpenEnded {
		return 0
	}
	return byteRange.End - byteRange.Start + 1
}

func (byteRange Range) String() string {
	return byteRange.Header()
}

// StatusError is a non-success response to a fetch. Body holds the
// (bounded) response body for diagnostics and is not part of the
// message.
type StatusError struct {
	StatusCode int
	Body       string
}

func (err *StatusError) Error() string {
	return fmt.Sprintf("HTTP error: %d", err.StatusCode)
}

// Error is a fetch that produced no usable response: the request
// failed below HTTP, the body could not be read, or a probe answer
// lacked the size headers. Context cancellation is never wrapped in an
// Error; it is returned as the context's own error.
type Error struct {
	// Op is the failed operation: "probe", "fetch", or "read".
	Op   string
	Path string
	Err  error
}

func (err *Error) Error() string {
	return fmt.Sprintf("%s %s: %v", err.Op, err.Path, err.Err)
}

func (err *Error) Unwrap() error {
	return err.Err
}

// wrapError returns the context error when ctx is done and err as an
// [*Error] otherwise.
func wrapError(ctx context.Context, op, path string, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	return &Error{Op: op, Path: path, Err: err}
}

// NormalizePath prefixes path with "/" when it does not already start
// with one.
func NormalizePath(path string) string {
	if strings.HasPrefix(path, "/") {
		return path
	}
	return "/" + path
}
