// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Cyoa reads CYOA story archives. It prints archive metadata and
// individual nodes for scripts, walks the whole story graph as an
// integrity check, plays the story in a terminal, decodes save files,
// and serves a directory of archives over HTTP with range support.
//
// Usage:
//
//	cyoa <command> [flags]
//
// Run "cyoa --help" for the command list and "cyoa <command> --help"
// for a command's flags. Exit status is 0 on success, 2 for usage
// errors, 3 when the archive has no root pointer, 4 when archive data
// fails to parse, 5 for transport failures, and 1 otherwise.
package main
