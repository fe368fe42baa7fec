// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package netutil

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestReadResponse(t *testing.T) {
	t.Run("normal body", func(t *testing.T) {
		data, err := ReadResponse(bytes.NewReader([]byte("CYOA chunk bytes")))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if string(data) != "CYOA chunk bytes" {
			t.Fatalf("got %q, want %q", data, "CYOA chunk bytes")
		}
	})

	t.Run("empty body", func(t *testing.T) {
		data, err := ReadResponse(bytes.NewReader(nil))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(data) != 0 {
			t.Fatalf("expected empty, got %d bytes", len(data))
		}
	})

	t.Run("read error propagates", func(t *testing.T) {
		_, err := ReadResponse(&failReader{})
		if err == nil {
			t.Fatal("expected error from failing reader")
		}
	})
}

func TestReadLimited(t *testing.T) {
	t.Run("exactly at limit", func(t *testing.T) {
		data, err := ReadLimited(strings.NewReader("12345678"), 8)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(data) != 8 {
			t.Fatalf("got %d bytes, want 8", len(data))
		}
	})

	t.Run("over limit fails", func(t *testing.T) {
		_, err := ReadLimited(strings.NewReader("123456789"), 8)
		if !errors.Is(err, ErrResponseTooLarge) {
			t.Fatalf("got %v, want ErrResponseTooLarge", err)
		}
	})
}

func TestErrorBody(t *testing.T) {
	t.Run("returns body as string", func(t *testing.T) {
		got := ErrorBody(bytes.NewReader([]byte("404 page not found")))
		if got != "404 page not found" {
			t.Fatalf("got %q, want %q", got, "404 page not found")
		}
	})

	t.Run("truncates long bodies", func(t *testing.T) {
		got := ErrorBody(strings.NewReader(strings.Repeat("x", int(MaxErrorBodySize)+100)))
		if int64(len(got)) != MaxErrorBodySize {
			t.Fatalf("got %d bytes, want %d", len(got), MaxErrorBodySize)
		}
	})

	t.Run("empty body", func(t *testing.T) {
		if got := ErrorBody(bytes.NewReader(nil)); got != "" {
			t.Fatalf("expected empty, got %q", got)
		}
	})

	t.Run("read error returns empty", func(t *testing.T) {
		if got := ErrorBody(&failReader{}); got != "" {
			t.Fatalf("expected empty from failing reader, got %q", got)
		}
	})
}

// failReader always returns an error on Read.
type failReader struct{}

func (*failReader) Read([]byte) (int, error) {
	return 0, fmt.Errorf("simulated read failure")
}
