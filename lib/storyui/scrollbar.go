// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package storyui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// renderScrollbar draws a one-column scrollbar for a narrative of
// totalLines shown visibleLines at a time from scrollOffset. It is
// blank when the narrative fits, since there is nothing to scroll.
func renderScrollbar(theme Theme, height, totalLines, visibleLines, scrollOffset int) string {
	if height <= 0 {
		return ""
	}
	lines := make([]string, height)
	if totalLines <= visibleLines {
		for index := range lines {
			lines[index] = " "
		}
		return strings.Join(lines, "\n")
	}

	trackStyle := lipgloss.NewStyle().Foreground(theme.BorderColor)
	thumbStyle := lipgloss.NewStyle().Foreground(theme.AccentColor)

	thumbSize := max(height*visibleLines/totalLines, 1)
	scrollableRange := totalLines - visibleLines
	trackRange := height - thumbSize
	thumbOffset := 0
	if trackRange > 0 {
		thumbOffset = scrollOffset * trackRange / scrollableRange
	}
	thumbOffset = min(thumbOffset, height-thumbSize)

	for index := range lines {
		if index >= thumbOffset && index < thumbOffset+thumbSize {
			lines[index] = thumbStyle.Render("┃")
		} else {
			lines[index] = trackStyle.Render("│")
		}
	}
	return strings.Join(lines, "\n")
}
