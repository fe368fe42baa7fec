// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package storyui

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
)

// Theme defines the color palette for the story player. All colors
// use lipgloss ANSI 256-color codes.
type Theme struct {
	// Name is the value accepted by [ThemeByName].
	Name string

	// Narrative text.
	NormalText lipgloss.Color
	FaintText  lipgloss.Color

	// Choice list. The selected choice is drawn inverted.
	ChoiceForeground   lipgloss.Color
	SelectedBackground lipgloss.Color
	SelectedForeground lipgloss.Color

	// UI chrome.
	HeaderForeground lipgloss.Color
	BorderColor      lipgloss.Color
	HelpText         lipgloss.Color
	AccentColor      lipgloss.Color // Scrollbar thumb and heading rules.

	ErrorForeground lipgloss.Color
	LinkForeground  lipgloss.Color
}

// NeutralTheme is the default gray palette for dark terminals.
var NeutralTheme = Theme{
	Name:               "neutral",
	NormalText:         lipgloss.Color("252"),
	FaintText:          lipgloss.Color("245"),
	ChoiceForeground:   lipgloss.Color("252"),
	SelectedBackground: lipgloss.Color("236"),
	SelectedForeground: lipgloss.Color("255"),
	HeaderForeground:   lipgloss.Color("255"),
	BorderColor:        lipgloss.Color("240"),
	HelpText:           lipgloss.Color("241"),
	AccentColor:        lipgloss.Color("250"),
	ErrorForeground:    lipgloss.Color("196"),
	LinkForeground:     lipgloss.Color("75"),
}

// CoolTheme shifts text and chrome toward blue and teal.
var CoolTheme = Theme{
	Name:               "cool",
	NormalText:         lipgloss.Color("153"), // pale blue
	FaintText:          lipgloss.Color("103"),
	ChoiceForeground:   lipgloss.Color("116"), // teal
	SelectedBackground: lipgloss.Color("24"),
	SelectedForeground: lipgloss.Color("195"),
	HeaderForeground:   lipgloss.Color("117"),
	BorderColor:        lipgloss.Color("60"),
	HelpText:           lipgloss.Color("67"),
	AccentColor:        lipgloss.Color("75"),
	ErrorForeground:    lipgloss.Color("203"),
	LinkForeground:     lipgloss.Color("81"),
}

// WarmTheme is a sepia palette: amber chrome over cream text.
var WarmTheme = Theme{
	Name:               "warm",
	NormalText:         lipgloss.Color("223"), // cream
	FaintText:          lipgloss.Color("138"),
	ChoiceForeground:   lipgloss.Color("216"),
	SelectedBackground: lipgloss.Color("94"),
	SelectedForeground: lipgloss.Color("230"),
	HeaderForeground:   lipgloss.Color("221"), // amber
	BorderColor:        lipgloss.Color("95"),
	HelpText:           lipgloss.Color("137"),
	AccentColor:        lipgloss.Color("214"),
	ErrorForeground:    lipgloss.Color("167"),
	LinkForeground:     lipgloss.Color("180"),
}

// ThemeByName returns the theme called name. The empty string selects
// [NeutralTheme].
func ThemeByName(name string) (Theme, error) {
	switch name {
	case "", NeutralTheme.Name:
		return NeutralTheme, nil
	case CoolTheme.Name:
		return CoolTheme, nil
	case WarmTheme.Name:
		return WarmTheme, nil
	default:
		return Theme{}, fmt.Errorf("unknown theme %q (want neutral, cool, or warm)", name)
	}
}

// TextWidth limits how wide narrative text is set, independent of the
// terminal width.
type TextWidth string

const (
	WidthFull   TextWidth = "full"
	WidthMedium TextWidth = "medium"
	WidthLow    TextWidth = "low"
)

// Column caps for the narrower widths.
const (
	mediumColumns = 80
	lowColumns    = 60
)

// ParseTextWidth validates a width name. The empty string selects
// [WidthFull].
func ParseTextWidth(name string) (TextWidth, error) {
	switch TextWidth(name) {
	case "":
		return WidthFull, nil
	case WidthFull, WidthMedium, WidthLow:
		return TextWidth(name), nil
	default:
		return "", fmt.Errorf("unknown text width %q (want full, medium, or low)", name)
	}
}

// Columns returns the text column count for a terminal available
// columns wide.
func (width TextWidth) Columns(available int) int {
	limit := available
	switch width {
	case WidthMedium:
		limit = mediumColumns
	case WidthLow:
		limit = lowColumns
	}
	return max(min(available, limit), 0)
}
