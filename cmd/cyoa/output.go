// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"encoding/json"
	"fmt"
	"io"
	"reflect"

	"github.com/bureau-foundation/cyoa/lib/codec"
)

// emit writes value in the selected format. For text output, writeText
// renders it; JSON is indented; CBOR is written raw for piping into
// other tools.
func emit(w io.Writer, format string, value any, writeText func(io.Writer) error) error {
	switch format {
	case formatJSON:
		encoder := json.NewEncoder(w)
		encoder.SetIndent("", "  ")
		return encoder.Encode(normalizeNilSlice(value))
	case formatCBOR:
		return codec.NewEncoder(w).Encode(value)
	default:
		return writeText(w)
	}
}

// normalizeNilSlice turns a nil slice into an empty one so JSON output
// is [] rather than null.
func normalizeNilSlice(value any) any {
	if value == nil {
		return value
	}
	reflected := reflect.ValueOf(value)
	if reflected.Kind() == reflect.Slice && reflected.IsNil() {
		return reflect.MakeSlice(reflected.Type(), 0, 0).Interface()
	}
	return value
}

// writeLines writes one value per line.
func writeLines[T any](w io.Writer, values []T) error {
	for _, value := range values {
		if _, err := fmt.Fprintln(w, value); err != nil {
			return err
		}
	}
	return nil
}
