// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/pflag"

	"github.com/bureau-foundation/cyoa/cmd/cyoa/cli"
	"github.com/bureau-foundation/cyoa/lib/story"
	"github.com/bureau-foundation/cyoa/lib/storyui"
)

func (application *app) playCommand() *cli.Command {
	var options globalOptions
	var width, theme, restore string
	return &cli.Command{
		Name:    "play",
		Summary: "Read the story interactively",
		Description: `Read the story in a full-screen terminal player. Choose with the number
keys or the arrows and enter; b goes back, r restarts, s saves to the
saves directory, q quits.`,
		Flags: func() *pflag.FlagSet {
			flagSet := options.newFlagSet("play", false)
			flagSet.StringVar(&width, "width", "", "text width: full, medium, or low (default: display.width)")
			flagSet.StringVar(&theme, "theme", "", "color theme: neutral, cool, or warm (default: display.theme)")
			flagSet.StringVar(&restore, "restore", "", "resume from a save file")
			return flagSet
		},
		Examples: []cli.Example{
			{Description: "Play with a narrow column", Command: "cyoa play --width low"},
			{Description: "Resume a saved game", Command: "cyoa play --restore ~/.local/share/cyoa/saves/20260304-050607.cysv"},
		},
		Run: func(args []string) error {
			if len(args) != 0 {
				return cli.Usagef("play takes no arguments")
			}
			if !cli.IsTerminal(application.stdout) {
				return cli.Usagef("play needs a terminal; use node or walk for scripted access")
			}
			opened, err := application.open(&options)
			if err != nil {
				return err
			}
			defer opened.close()

			if width == "" {
				width = opened.config.Display.Width
			}
			if theme == "" {
				theme = opened.config.Display.Theme
			}
			textWidth, err := storyui.ParseTextWidth(width)
			if err != nil {
				return cli.Usagef("%v", err)
			}
			palette, err := storyui.ThemeByName(theme)
			if err != nil {
				return cli.Usagef("%v", err)
			}

			session := story.NewSession(opened.archive, opened.logger)
			if restore != "" {
				file, err := os.Open(restore)
				if err != nil {
					return err
				}
				err = session.Restore(application.ctx, file)
				file.Close()
				if err != nil {
					return fmt.Errorf("restoring %s: %w", restore, err)
				}
			}

			saveDirectory := opened.config.Saves.Directory
			if err := opened.config.EnsureSaves(); err != nil {
				opened.logger.Warn("saving disabled", "error", err)
				saveDirectory = ""
			}

			model := storyui.NewModel(application.ctx, session, storyui.Options{
				Theme:         palette,
				Width:         textWidth,
				SaveDirectory: saveDirectory,
				Logger:        opened.logger,
			})
			program := tea.NewProgram(model,
				tea.WithAltScreen(),
				tea.WithContext(application.ctx),
				tea.WithOutput(application.stdout),
			)
			if _, err := program.Run(); err != nil {
				return fmt.Errorf("running player: %w", err)
			}

			stats := session.Stats()
			fmt.Fprintf(application.stdout, "%d choices, %d backtracks, %d distinct nodes\n",
				stats.Choices, stats.Backtracks, stats.DistinctNodes)
			return nil
		},
	}
}
