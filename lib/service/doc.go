// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package service serves story archives over HTTP for local authoring
// and testing.
//
// A reader fetches an archive with HTTP range requests, so any static
// file server that honors Range works. This package provides the one
// the cyoa command runs. [ArchiveServer] answers GET and HEAD from a
// directory (ranges, conditional requests, and 416 on unsatisfiable
// ranges come from net/http's ServeContent), logs every request with
// the Range it asked for and the status it got, and keeps request and
// byte totals. It owns its listener and shuts down gracefully when its
// context ends.
package service
