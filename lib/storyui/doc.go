// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package storyui is the interactive terminal player behind
// "cyoa play". Built on bubbletea, it shows the current node's text in
// a scrollable viewport above a numbered list of choices.
//
// Node content is rendered as markdown (goldmark for parsing, lipgloss
// for styling, chroma for fenced code). Reading preferences mirror the
// display section of the configuration: a [Theme] chosen with
// [ThemeByName] and a [TextWidth] that caps the text column.
//
// The player drives a [story.Session]. Every load runs in a tea.Cmd,
// and each arrival prefetches the node's children so the next choice
// is usually served from memory. Saves are written to the configured
// directory as timestamped [SaveExtension] files.
package storyui
