// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package netutil provides bounded HTTP body reads for the archive
// transports.
//
// ReadResponse bounds response body reads at MaxResponseSize so a
// misbehaving server cannot exhaust memory, and fails instead of
// silently truncating: a truncated chunk would surface later as a
// confusing parse error. ErrorBody reads a short diagnostic excerpt of
// an error response.
package netutil

import (
	"errors"
	"fmt"
	"io"
)

// MaxResponseSize is the bound on a single response body: 1 GiB. The
// largest legitimate body is a whole-archive download from a server
// without range support.
const MaxResponseSize int64 = 1 << 30

// MaxErrorBodySize bounds the excerpt ErrorBody keeps.
const MaxErrorBodySize int64 = 4 << 10

// ErrResponseTooLarge is returned by ReadResponse when the body
// exceeds the bound.
var ErrResponseTooLarge = errors.New("response body exceeds size limit")

// ReadResponse reads a response body up to MaxResponseSize bytes.
// Use instead of io.ReadAll when reading HTTP response bodies.
func ReadResponse(body io.Reader) ([]byte, error) {
	return ReadLimited(body, MaxResponseSize)
}

// ReadLimited reads body fully, failing with ErrResponseTooLarge if it
// holds more than limit bytes.
func ReadLimited(body io.Reader, limit int64) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(body, limit+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > limit {
		return nil, fmt.Errorf("%w (%d bytes)", ErrResponseTooLarge, limit)
	}
	return data, nil
}

// ErrorBody reads up to MaxErrorBodySize bytes of an HTTP error
// response body for diagnostic messages. Read errors are silently
// ignored: a partial or empty body is still useful in an error message.
func ErrorBody(body io.Reader) string {
	data, _ := io.ReadAll(io.LimitReader(body, MaxErrorBodySize))
	return string(data)
}
