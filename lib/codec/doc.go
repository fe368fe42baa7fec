// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package codec provides the project's standard CBOR encoding
// configuration.
//
// Two serialization formats are in use:
//
//   - JSON for human-facing output: `cyoa node --format json`, guard
//     table files, and anything a shell pipeline is likely to consume.
//   - CBOR for compact machine output (`--format cbor`) and for save
//     files written by lib/story.
//
// The encoder uses Core Deterministic Encoding (RFC 8949 §4.2): sorted
// map keys, smallest integer encoding, no indefinite-length items. The
// same session state always produces identical save bytes, so save
// files can be compared and hashed directly.
//
//	data, err := codec.Marshal(value)
//	err = codec.Unmarshal(data, &value)
//
// # Struct tags
//
// fxamacker/cbor reads `json` tags when `cbor` tags are absent, so
// types that appear in both formats (archive.NodeView) carry only
// `json` tags. Types that are only ever CBOR (save snapshots) carry
// only `cbor` tags. Never put both on one field.
package codec
