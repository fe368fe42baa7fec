// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package storyui

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/bureau-foundation/cyoa/lib/archive"
	"github.com/bureau-foundation/cyoa/lib/story"
)

// SaveExtension is appended to save file names.
const SaveExtension = ".cysv"

// Options configures a [Model]. The zero value is usable: neutral
// theme, full width, no saving.
type Options struct {
	Theme Theme
	Width TextWidth

	// SaveDirectory receives save files. Saving is disabled when it is
	// empty. The directory must already exist.
	SaveDirectory string

	Keys   *KeyMap
	Logger *slog.Logger

	// Now stamps save file names. Defaults to time.Now.
	Now func() time.Time
}

// Model is the bubbletea model for reading one archive. Loads run in
// tea.Cmds so the interface stays responsive over slow transports;
// while a load is in flight only Quit is handled.
type Model struct {
	ctx     context.Context
	session *story.Session
	theme   Theme
	width   TextWidth
	keys    KeyMap
	logger  *slog.Logger
	saves   string
	now     func() time.Time

	view     *archive.NodeView
	cursor   int
	loading  bool
	status   string
	failed   bool
	viewport viewport.Model

	terminalWidth  int
	terminalHeight int
	ready          bool
}

// nodeLoadedMsg carries the result of Start or Choose.
type nodeLoadedMsg struct {
	view *archive.NodeView
	err  error
}

type prefetchDoneMsg struct {
	err error
}

type savedMsg struct {
	path string
	err  error
}

// NewModel returns a player over session. The session is started by
// Init unless it already has a current node, as after Restore.
func NewModel(ctx context.Context, session *story.Session, options Options) Model {
	if options.Theme.Name == "" {
		options.Theme = NeutralTheme
	}
	if options.Width == "" {
		options.Width = WidthFull
	}
	keys := DefaultKeyMap
	if options.Keys != nil {
		keys = *options.Keys
	}
	if options.Logger == nil {
		options.Logger = slog.New(slog.DiscardHandler)
	}
	if options.Now == nil {
		options.Now = time.Now
	}
	return Model{
		ctx:      ctx,
		session:  session,
		theme:    options.Theme,
		width:    options.Width,
		keys:     keys,
		logger:   options.Logger,
		saves:    options.SaveDirectory,
		now:      options.Now,
		view:     session.Current(),
		loading:  session.Current() == nil,
		viewport: viewport.New(0, 0),
	}
}

// Init implements tea.Model.
func (model Model) Init() tea.Cmd {
	if model.view != nil {
		return model.prefetchCmd()
	}
	return model.startCmd()
}

func (model Model) startCmd() tea.Cmd {
	ctx, session := model.ctx, model.session
	return func() tea.Msg {
		view, err := session.Start(ctx)
		return nodeLoadedMsg{view: view, err: err}
	}
}

func (model Model) chooseCmd(index int) tea.Cmd {
	ctx, session := model.ctx, model.session
	return func() tea.Msg {
		view, err := session.Choose(ctx, index)
		return nodeLoadedMsg{view: view, err: err}
	}
}

// prefetchCmd warms the session's memo with the current node's
// children.
func (model Model) prefetchCmd() tea.Cmd {
	ctx, session := model.ctx, model.session
	return func() tea.Msg {
		return prefetchDoneMsg{err: session.Prefetch(ctx)}
	}
}

func (model Model) saveCmd() tea.Cmd {
	session := model.session
	path := filepath.Join(model.saves, model.now().UTC().Format("20060102-150405")+SaveExtension)
	return func() tea.Msg {
		return savedMsg{path: path, err: writeSave(session, path)}
	}
}

// writeSave writes through a temporary file so an interrupted save
// never leaves a truncated file under the final name.
func writeSave(session *story.Session, path string) error {
	file, err := os.CreateTemp(filepath.Dir(path), ".save-*")
	if err != nil {
		return err
	}
	defer os.Remove(file.Name())
	if err := session.Save(file); err != nil {
		file.Close()
		return err
	}
	if err := file.Close(); err != nil {
		return err
	}
	return os.Rename(file.Name(), path)
}

// Update implements tea.Model.
func (model Model) Update(message tea.Msg) (tea.Model, tea.Cmd) {
	switch message := message.(type) {
	case tea.KeyMsg:
		if key.Matches(message, model.keys.Quit) {
			return model, tea.Quit
		}
		if model.loading {
			return model, nil
		}
		return model.handleKey(message)

	case nodeLoadedMsg:
		model.loading = false
		if message.err != nil {
			model.setError(message.err)
			return model, nil
		}
		model.show(message.view)
		return model, model.prefetchCmd()

	case prefetchDoneMsg:
		if message.err != nil && !errors.Is(message.err, context.Canceled) {
			model.logger.Warn("prefetch failed", "error", message.err)
		}

	case savedMsg:
		if message.err != nil {
			model.setError(fmt.Errorf("saving: %w", message.err))
		} else {
			model.setStatus("saved " + message.path)
			model.logger.Info("session saved", "path", message.path)
		}

	case tea.WindowSizeMsg:
		model.terminalWidth = message.Width
		model.terminalHeight = message.Height
		model.ready = true
		model.layout()
	}
	return model, nil
}

func (model Model) handleKey(message tea.KeyMsg) (tea.Model, tea.Cmd) {
	choices := 0
	if model.view != nil {
		choices = len(model.view.Edges)
	}

	switch {
	case key.Matches(message, model.keys.Up):
		if model.cursor > 0 {
			model.cursor--
		}
	case key.Matches(message, model.keys.Down):
		if model.cursor < choices-1 {
			model.cursor++
		}
	case key.Matches(message, model.keys.Select):
		if model.cursor < choices {
			return model.choose(model.cursor)
		}
	case key.Matches(message, model.keys.PageUp):
		model.viewport.HalfViewUp()
	case key.Matches(message, model.keys.PageDown):
		model.viewport.HalfViewDown()
	case key.Matches(message, model.keys.Back):
		view, err := model.session.Back()
		if errors.Is(err, story.ErrAtStart) {
			model.setStatus("already at the beginning")
		} else if err != nil {
			model.setError(err)
		} else {
			model.show(view)
		}
	case key.Matches(message, model.keys.Restart):
		model.loading = true
		model.setStatus("")
		return model, model.startCmd()
	case key.Matches(message, model.keys.Save):
		if model.saves == "" {
			model.setStatus("saving is not configured")
			return model, nil
		}
		return model, model.saveCmd()
	default:
		if digit := message.String(); len(digit) == 1 && digit[0] >= '1' && digit[0] <= '9' {
			index := int(digit[0] - '1')
			if index < choices {
				model.cursor = index
				return model.choose(index)
			}
		}
	}
	return model, nil
}

func (model Model) choose(index int) (tea.Model, tea.Cmd) {
	model.loading = true
	model.setStatus("")
	return model, model.chooseCmd(index)
}

// show makes view the displayed node and scrolls to its top.
func (model *Model) show(view *archive.NodeView) {
	model.view = view
	model.cursor = 0
	model.status = ""
	model.failed = false
	model.layout()
	model.viewport.GotoTop()
}

func (model *Model) setStatus(status string) {
	model.status = status
	model.failed = false
}

func (model *Model) setError(err error) {
	model.status = err.Error()
	model.failed = true
	model.layout()
}

// layout sizes the viewport around the header, choices, and footer,
// and re-renders the narrative at the resulting width.
func (model *Model) layout() {
	if !model.ready {
		return
	}
	columns := model.width.Columns(model.terminalWidth - 2)
	chrome := 3 + model.choiceLines()
	model.viewport.Width = columns
	model.viewport.Height = max(model.terminalHeight-chrome, 1)
	content := ""
	if model.view != nil {
		content = renderNarrative(model.view.Content, model.theme, columns)
	}
	offset := model.viewport.YOffset
	model.viewport.SetContent(content)
	model.viewport.SetYOffset(offset)
}

func (model Model) choiceLines() int {
	if model.view == nil || len(model.view.Edges) == 0 {
		return 1
	}
	return len(model.view.Edges)
}

// View implements tea.Model.
func (model Model) View() string {
	if !model.ready {
		return ""
	}
	var sections []string
	sections = append(sections, model.renderHeader())

	scrollbar := renderScrollbar(model.theme, model.viewport.Height,
		model.viewport.TotalLineCount(), model.viewport.Height, model.viewport.YOffset)
	sections = append(sections, lipgloss.JoinHorizontal(lipgloss.Top, model.viewport.View(), " ", scrollbar))

	sections = append(sections, lipgloss.NewStyle().Foreground(model.theme.BorderColor).
		Render(strings.Repeat("─", max(model.terminalWidth, 0))))
	sections = append(sections, model.renderChoices())
	sections = append(sections, model.renderFooter())
	return strings.Join(sections, "\n")
}

func (model Model) renderHeader() string {
	style := lipgloss.NewStyle().Bold(true).Foreground(model.theme.HeaderForeground)
	faint := lipgloss.NewStyle().Foreground(model.theme.FaintText)
	position, ok := model.session.Position()
	if !ok {
		return style.Render("cyoa") + faint.Render("  loading…")
	}
	stats := model.session.Stats()
	detail := fmt.Sprintf("  node %d · step %d · %d visited", position, len(model.session.History()), stats.DistinctNodes)
	if model.loading {
		detail += " · loading…"
	}
	return style.Render("cyoa") + faint.Render(detail)
}

func (model Model) renderChoices() string {
	faint := lipgloss.NewStyle().Foreground(model.theme.FaintText).Italic(true)
	if model.view == nil {
		return faint.Render("")
	}
	if len(model.view.Edges) == 0 {
		return faint.Render("The End.")
	}
	normal := lipgloss.NewStyle().Foreground(model.theme.ChoiceForeground)
	selected := lipgloss.NewStyle().
		Foreground(model.theme.SelectedForeground).
		Background(model.theme.SelectedBackground).
		Bold(true)

	lines := make([]string, len(model.view.Edges))
	for index, edge := range model.view.Edges {
		label := edge.Label
		if label == "" {
			label = "(continue)"
		}
		line := fmt.Sprintf("%d. %s", index+1, label)
		if index == model.cursor {
			lines[index] = selected.Render("› " + line)
		} else {
			lines[index] = normal.Render("  " + line)
		}
	}
	return strings.Join(lines, "\n")
}

func (model Model) renderFooter() string {
	if model.status != "" {
		color := model.theme.FaintText
		if model.failed {
			color = model.theme.ErrorForeground
		}
		return lipgloss.NewStyle().Foreground(color).Render(model.status)
	}
	helpStyle := lipgloss.NewStyle().Foreground(model.theme.HelpText)
	var parts []string
	for _, binding := range model.keys.helpBindings() {
		help := binding.Help()
		parts = append(parts, help.Key+" "+help.Desc)
	}
	return helpStyle.Render(strings.Join(parts, " · "))
}
