// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package cli provides the command-line framework for the cyoa
// command.
//
// The central type is [Command]: a named subcommand with optional
// nested [Command.Subcommands], a [pflag.FlagSet] factory, and a Run
// function. [Command.Execute] handles flag parsing, subcommand routing,
// and help output. An unknown subcommand or flag gets a suggestion
// when a known name is within Levenshtein distance 3.
//
// [ExitCodeFor] turns a command's error into the process exit code:
// usage mistakes, missing root pointers, malformed archives, and
// transport failures each have their own code.
package cli
