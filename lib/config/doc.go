// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package config provides YAML configuration loading for the cyoa
// command.
//
// Configuration comes from at most one file, named by the CYOA_CONFIG
// environment variable (via [Load]) or a --config flag (via
// [LoadFile]). There is no automatic file discovery. Without a file,
// [FromEnvironment] starts from [Default].
//
// Loading happens in three steps:
//
//  1. The YAML file is decoded over [Default].
//  2. ${HOME}, ${CYOA_ROOT}, and ${VAR:-default} patterns are expanded
//     in path-valued fields.
//  3. CYOA_* environment variables override individual fields
//     (CYOA_ARCHIVE_BASE, CYOA_CACHE_CAPACITY, CYOA_LOG_LEVEL, ...).
//
// Command-line flags are applied by the caller after loading and take
// precedence over both.
//
// This package depends on no other project packages.
package config
