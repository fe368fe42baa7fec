// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package story tracks a reader's progress through an archive.
//
// A [Session] wraps anything that can load node views (an
// *archive.Archive in production, a map in tests) and keeps the path
// the reader has taken: the current node, the nodes before it, and
// per-node visit counts. Views are memoized per position, so going
// back or revisiting a node never reloads it.
//
// Sessions can be saved and restored. A save file records the path and
// statistics together with the fingerprint of the archive they were
// made against; restoring against a different archive fails with
// [ErrFingerprintMismatch] rather than replaying positions that mean
// something else.
//
// [Walk] visits every node reachable from a starting position, which
// `cyoa walk` uses to check that an archive's graph is closed.
package story
