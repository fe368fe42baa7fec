// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package version reports build information for the cyoa binary.
//
// Release builds inject [GitCommit], [GitDirty], [BuildTime], and
// [Version] with -ldflags -X:
//
//	go build -ldflags "-X github.com/bureau-foundation/cyoa/lib/version.GitCommit=$(git rev-parse --short HEAD)" ./cmd/cyoa
//
// Development builds leave them unset; [Current] then reads the commit
// and time from the VCS stamp in the binary's build info.
package version
