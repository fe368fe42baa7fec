// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package testutil provides shared test helpers.
//
// [RequireReceive] and [RequireClosed] wrap the select-with-timeout
// pattern for tests that wait on a goroutine, such as a server's
// readiness and shutdown.
//
// [WriteFiles] lays out a directory of files for tests that read
// archives through file:// buckets or the development server.
//
// All helpers call t.Fatalf on failure rather than returning errors,
// since test setup failures are not recoverable.
//
// This package has no project-internal dependencies.
package testutil
