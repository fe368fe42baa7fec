// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package archive

import (
	"errors"
	"fmt"

	"github.com/bureau-foundation/cyoa/lib/transport"
)

var (
	// ErrRangeUnsupported is returned by [Open] when the probe shows
	// the resource cannot be fetched by byte range.
	ErrRangeUnsupported = errors.New("Range requests not supported")

	// ErrInvalidMagic is returned when the first four bytes are not
	// "CYOA".
	ErrInvalidMagic = errors.New("Invalid file magic")

	// ErrIndexOutOfRange is returned when the header's index offset is
	// at or past the end of the resource.
	ErrIndexOutOfRange = errors.New("Index out of range")

	// ErrMissingRoot is returned by [Archive.LoadRoot] when the index
	// has no root pointer Metadata chunk.
	ErrMissingRoot = errors.New("Root pointer metadata missing")
)

// ParseError reports a structural problem in archive bytes: a read
// past the end of a buffer, an unknown discriminant, or a reference
// that does not resolve. Reason is a short fixed phrase.
type ParseError struct {
	Reason string
}

func (err *ParseError) Error() string {
	return err.Reason
}

func parseErrorf(format string, args ...any) *ParseError {
	return &ParseError{Reason: fmt.Sprintf(format, args...)}
}

// ErrorKind is the failure class of an error returned by this
// package. The CLI maps kinds to exit codes.
type ErrorKind int

const (
	KindOther ErrorKind = iota
	KindTransport
	KindRangeUnsupported
	KindInvalidMagic
	KindIndexOutOfRange
	KindParse
	KindMissingRoot
)

// String returns the name of the kind.
func (kind ErrorKind) String() string {
	switch kind {
	case KindTransport:
		return "transport"
	case KindRangeUnsupported:
		return "range_unsupported"
	case KindInvalidMagic:
		return "invalid_magic"
	case KindIndexOutOfRange:
		return "index_out_of_range"
	case KindParse:
		return "parse"
	case KindMissingRoot:
		return "missing_root"
	default:
		return "other"
	}
}

// Classify maps err onto an [ErrorKind], looking through wrapping.
// Failed requests, unreadable bodies, and probes without size headers
// are [KindTransport] alongside error statuses. Decompression failures
// and cancelled contexts are [KindOther]. A nil error is
// [KindOther] as well; callers classify only failures.
func Classify(err error) ErrorKind {
	var statusError *transport.StatusError
	var transportError *transport.Error
	var parseError *ParseError
	switch {
	case errors.As(err, &statusError), errors.As(err, &transportError):
		return KindTransport
	case errors.Is(err, ErrRangeUnsupported):
		return KindRangeUnsupported
	case errors.Is(err, ErrInvalidMagic):
		return KindInvalidMagic
	case errors.Is(err, ErrIndexOutOfRange):
		return KindIndexOutOfRange
	case errors.As(err, &parseError):
		return KindParse
	case errors.Is(err, ErrMissingRoot):
		return KindMissingRoot
	default:
		return KindOther
	}
}
