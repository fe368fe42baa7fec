// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package storyui

import "github.com/charmbracelet/bubbles/key"

// KeyMap defines the player's key bindings. Choices 1 through 9 are
// also selectable by their number and are not listed here.
type KeyMap struct {
	Up       key.Binding // Move the choice cursor.
	Down     key.Binding
	Select   key.Binding // Follow the choice under the cursor.
	PageUp   key.Binding // Scroll the narrative.
	PageDown key.Binding
	Back     key.Binding
	Restart  key.Binding
	Save     key.Binding
	Quit     key.Binding
}

// DefaultKeyMap pairs vim-style keys with arrows.
var DefaultKeyMap = KeyMap{
	Up: key.NewBinding(
		key.WithKeys("k", "up"),
		key.WithHelp("↑/k", "up"),
	),
	Down: key.NewBinding(
		key.WithKeys("j", "down"),
		key.WithHelp("↓/j", "down"),
	),
	Select: key.NewBinding(
		key.WithKeys("enter"),
		key.WithHelp("enter", "choose"),
	),
	PageUp: key.NewBinding(
		key.WithKeys("pgup", "ctrl+u"),
		key.WithHelp("pgup", "scroll up"),
	),
	PageDown: key.NewBinding(
		key.WithKeys("pgdown", "ctrl+d", " "),
		key.WithHelp("pgdn", "scroll down"),
	),
	Back: key.NewBinding(
		key.WithKeys("b", "backspace"),
		key.WithHelp("b", "back"),
	),
	Restart: key.NewBinding(
		key.WithKeys("r"),
		key.WithHelp("r", "restart"),
	),
	Save: key.NewBinding(
		key.WithKeys("s"),
		key.WithHelp("s", "save"),
	),
	Quit: key.NewBinding(
		key.WithKeys("q", "ctrl+c"),
		key.WithHelp("q", "quit"),
	),
}

// helpBindings are the bindings listed in the footer, in order.
func (keys KeyMap) helpBindings() []key.Binding {
	return []key.Binding{keys.Select, keys.Back, keys.Restart, keys.Save, keys.Quit}
}
